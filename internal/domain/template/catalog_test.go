package template

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sdui/internal/domain/render"
	"github.com/GriffinCanCode/sdui/internal/domain/tree"
)

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(tree.DefaultValidator(), nil)
	require.NoError(t, err)
	return c
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuiltinCatalog(t *testing.T) {
	c := newCatalog(t)
	assert.Equal(t, 11, c.Len())

	counts := map[Category]int{}
	for _, tpl := range c.List("") {
		counts[tpl.Category]++
		assert.Equal(t, "builtin", tpl.Source)
		assert.Positive(t, tpl.NodeCount)
	}
	assert.Equal(t, map[Category]int{
		CategoryBasic:       3,
		CategoryForms:       3,
		CategoryLayouts:     2,
		CategoryCards:       2,
		CategoryInteractive: 1,
	}, counts)

	first := c.List("")[0]
	assert.Equal(t, "hello-world", first.ID)
}

func TestBuiltinTemplatesRenderWithoutPlaceholders(t *testing.T) {
	c := newCatalog(t)
	reg := render.NewRegistry(render.WithMode(render.ModeDevelopment))

	for _, tpl := range c.List("") {
		tr, err := c.Tree(tpl.ID)
		require.NoError(t, err, tpl.ID)

		for _, el := range reg.Render(tr, nil) {
			el.Walk(func(e *render.Element) bool {
				assert.NotEqual(t, render.ElementPlaceholder, e.Type, "%s: node %s", tpl.ID, e.NodeID)
				return true
			})
		}
	}
}

func TestListByCategory(t *testing.T) {
	c := newCatalog(t)

	forms := c.List(CategoryForms)
	ids := make([]string, len(forms))
	for i, f := range forms {
		ids[i] = f.ID
	}
	assert.Equal(t, []string{"login-form", "settings-form", "feedback-form"}, ids)
	assert.Empty(t, c.List("Nope"))
}

func TestGet(t *testing.T) {
	c := newCatalog(t)

	tpl, err := c.Get("two-column")
	require.NoError(t, err)
	assert.Equal(t, "Two Column Layout", tpl.Name)
	assert.Equal(t, CategoryLayouts, tpl.Category)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(tpl.Payload), "["))
	assert.Empty(t, tpl.Summary().Payload)

	_, err = c.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nested/promo.yml", `
id: promo
name: Promo
category: Cards
description: Seasonal promo
payload: |
  {"id": "p", "type": "badge", "props": {"label": "Sale"}}
`)
	writeFile(t, dir, "README.md", "not a template")

	c := newCatalog(t)
	require.NoError(t, c.LoadDir(dir))
	assert.Equal(t, 12, c.Len())

	tpl, err := c.Get("promo")
	require.NoError(t, err)
	assert.Equal(t, dir, tpl.Source)
	assert.Equal(t, 1, tpl.NodeCount)
}

func TestLoadDirRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "duplicate id",
			content: "id: hello-world\nname: Dup\ncategory: Basic\npayload: '[]'\n",
			errMsg:  "duplicate template id",
		},
		{
			name:    "unknown category",
			content: "id: x\nname: X\ncategory: Misc\npayload: '[]'\n",
			errMsg:  "unknown category",
		},
		{
			name:    "missing id",
			content: "name: X\ncategory: Basic\npayload: '[]'\n",
			errMsg:  "id is required",
		},
		{
			name:    "unknown field",
			content: "id: x\nname: X\ncategory: Basic\npayload: '[]'\nscript: alert(1)\n",
			errMsg:  "invalid template",
		},
		{
			name:    "invalid payload",
			content: "id: x\nname: X\ncategory: Basic\npayload: '[{\"id\": \"1\"}]'\n",
			errMsg:  "decoding failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "t.yaml", tt.content)

			c := newCatalog(t)
			err := c.LoadDir(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Equal(t, 11, c.Len(), "failed loads add nothing")
		})
	}
}

func TestLoadDirRespectsLimits(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "deep.yaml", `
id: deep
name: Deep
category: Layouts
payload: |
  {"id": "1", "type": "vstack", "props": {}, "children": [
    {"id": "2", "type": "vstack", "props": {}, "children": [
      {"id": "3", "type": "text", "props": {}}
    ]}
  ]}
`)

	c, err := NewCatalog(tree.NewValidator(tree.Limits{MaxDepth: 20}), nil)
	require.NoError(t, err)
	require.NoError(t, c.LoadDir(dir))

	shallow, err := NewCatalog(tree.NewValidator(tree.Limits{MaxDepth: 2}), nil)
	require.NoError(t, err)
	err = shallow.LoadDir(dir)
	assert.ErrorIs(t, err, tree.ErrMaxDepthExceeded)
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestBuiltinsOverLimitAreSkipped(t *testing.T) {
	c, err := NewCatalog(tree.NewValidator(tree.Limits{MaxNodeCount: 2}), nil)
	require.NoError(t, err)

	assert.Less(t, c.Len(), 11)
	assert.Len(t, c.Skipped(), 11-c.Len())
	assert.Contains(t, c.Skipped(), "hello-world")
	assert.Contains(t, c.Skipped(), "full-example")
	for _, tpl := range c.List("") {
		assert.LessOrEqual(t, tpl.NodeCount, 2, tpl.ID)
	}

	_, err = c.Get("full-example")
	assert.ErrorIs(t, err, ErrNotFound)

	// Several built-ins nest deeper than 2
	shallow, err := NewCatalog(tree.NewValidator(tree.Limits{MaxDepth: 2}), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, shallow.Skipped())
	for _, tpl := range shallow.List("") {
		assert.LessOrEqual(t, tpl.Depth, 2, tpl.ID)
	}

	assert.Empty(t, newCatalog(t).Skipped())
}

func TestLoadDirMissing(t *testing.T) {
	c := newCatalog(t)
	assert.Error(t, c.LoadDir(filepath.Join(t.TempDir(), "nope")))
}
