package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sdui/internal/domain/action"
	"github.com/GriffinCanCode/sdui/internal/domain/tree"
	"github.com/GriffinCanCode/sdui/internal/shared/value"
)

type call struct {
	kind    string
	id      string
	payload map[string]value.Value
}

type recordingHandler struct {
	calls []call
}

func (h *recordingHandler) HandleAction(id string, payload map[string]value.Value) {
	h.calls = append(h.calls, call{"action", id, payload})
}

func (h *recordingHandler) HandleNavigation(route string, params map[string]value.Value) {
	h.calls = append(h.calls, call{"navigation", route, params})
}

type countingObserver struct {
	rendered map[string]int
	notFound []string
	depthHit int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{rendered: map[string]int{}}
}

func (o *countingObserver) ElementRendered(t string) { o.rendered[t]++ }
func (o *countingObserver) ComponentNotFound(err *ComponentNotFoundError) {
	o.notFound = append(o.notFound, err.Type)
}
func (o *countingObserver) DepthLimitHit(int) { o.depthHit++ }

func node(id, typ string, props map[string]value.Value, children ...*tree.Node) *tree.Node {
	return tree.NewNode(id, typ, props, children...)
}

func load(t *testing.T, payload string) *tree.Tree {
	t.Helper()
	tr, err := tree.DefaultValidator().Load([]byte(payload))
	require.NoError(t, err)
	return tr
}

func TestEndToEndText(t *testing.T) {
	tr := load(t, `[{"id":"1","type":"text","props":{"content":"hi"}}]`)
	assert.Equal(t, 1, tr.NodeCount())
	assert.Equal(t, 1, tr.Depth())

	els := NewRegistry().Render(tr, nil)
	require.Len(t, els, 1)
	assert.Equal(t, ElementText, els[0].Type)

	cfg, ok := els[0].Props.(TextConfig)
	require.True(t, ok)
	assert.Equal(t, "hi", cfg.Content)
	assert.Equal(t, "body", cfg.Style)
	assert.False(t, cfg.Truncated)
}

func TestUnknownTypeFallback(t *testing.T) {
	n := node("x", "not-a-real-widget", nil)

	obs := newCountingObserver()
	dev := NewRegistry(WithMode(ModeDevelopment), WithObserver(obs))
	el := dev.Dispatch(n, nil, 1)
	require.NotNil(t, el)
	assert.Equal(t, ElementPlaceholder, el.Type)
	assert.Equal(t, PlaceholderConfig{ComponentType: "not-a-real-widget", Message: "Unknown: not-a-real-widget"}, el.Props)
	assert.Equal(t, []string{"not-a-real-widget"}, obs.notFound)

	prod := NewRegistry(WithMode(ModeProduction))
	assert.True(t, prod.Dispatch(n, nil, 1).IsEmpty())
}

func TestUnknownChildDoesNotStopSiblings(t *testing.T) {
	root := node("root", "vstack", nil,
		node("a", "text", map[string]value.Value{"content": value.String("before")}),
		node("b", "mystery", nil),
		node("c", "text", map[string]value.Value{"content": value.String("after")}),
	)
	el := NewRegistry(WithMode(ModeDevelopment)).Dispatch(root, nil, 1)

	require.Len(t, el.Children, 3)
	assert.Equal(t, ElementText, el.Children[0].Type)
	assert.Equal(t, ElementPlaceholder, el.Children[1].Type)
	assert.Equal(t, ElementText, el.Children[2].Type)
}

func TestBuiltinsBeatCustom(t *testing.T) {
	r := NewRegistry()
	calls := 0
	shadow := func(*tree.Node, action.Handler, int) *Element {
		calls++
		return NewElement("shadow", "", nil)
	}
	require.NoError(t, r.Register("text", shadow))
	require.NoError(t, r.Register("text", shadow))
	assert.Equal(t, []string{"text"}, r.CustomTypes())

	el := r.Dispatch(node("t", "text", map[string]value.Value{"content": value.String("hi")}), nil, 1)
	assert.Equal(t, ElementText, el.Type)
	assert.Zero(t, calls)

	require.NoError(t, r.Unregister("text"))
	assert.Empty(t, r.CustomTypes())
	assert.True(t, r.IsRegistered("text"))

	for _, typ := range r.BuiltinTypes() {
		assert.True(t, r.IsRegistered(typ), typ)
	}
	assert.Len(t, r.BuiltinTypes(), 13)
}

func TestCustomRegistration(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.IsRegistered("rating"))

	require.NoError(t, r.Register("rating", func(n *tree.Node, _ action.Handler, _ int) *Element {
		return NewElement("rating", n.ID(), map[string]int64{"stars": n.IntProp("stars", 0)})
	}))
	require.NoError(t, r.Register("rating", func(n *tree.Node, _ action.Handler, _ int) *Element {
		return NewElement("rating-v2", n.ID(), nil)
	}))

	assert.True(t, r.IsRegistered("rating"))
	assert.Equal(t, []string{"rating"}, r.CustomTypes())

	el := r.Dispatch(node("r", "rating", nil), nil, 1)
	assert.Equal(t, "rating-v2", el.Type, "last registration wins")

	require.NoError(t, r.Unregister("rating"))
	assert.False(t, r.IsRegistered("rating"))
	assert.ErrorIs(t, r.Unregister("rating"), ErrNotRegistered)

	assert.ErrorIs(t, r.Register("", func(*tree.Node, action.Handler, int) *Element { return nil }), ErrEmptyType)
	assert.ErrorIs(t, r.Register("x", nil), ErrNilRenderer)
}

func TestCustomContainerUsesDepthGuard(t *testing.T) {
	r := NewRegistry(WithLimits(tree.Limits{MaxDepth: 2}))
	require.NoError(t, r.Register("box", func(n *tree.Node, h action.Handler, depth int) *Element {
		return NewElement("box", n.ID(), nil, r.DispatchChildren(n, h, depth)...)
	}))

	el := r.Dispatch(node("1", "box", nil, node("2", "box", nil, node("3", "text", nil))), nil, 1)
	require.Len(t, el.Children, 1)
	require.Len(t, el.Children[0].Children, 1)
	assert.True(t, el.Children[0].Children[0].IsEmpty())
}

func TestDepthGuard(t *testing.T) {
	var cur *tree.Node
	for i := 25; i >= 1; i-- {
		if cur == nil {
			cur = node(fmt.Sprint(i), "vstack", nil)
		} else {
			cur = node(fmt.Sprint(i), "vstack", nil, cur)
		}
	}

	obs := newCountingObserver()
	el := NewRegistry(WithObserver(obs)).Dispatch(cur, nil, 1)

	depth := 0
	for e := el; e != nil && !e.IsEmpty(); {
		depth++
		if len(e.Children) == 0 {
			break
		}
		e = e.Children[0]
	}
	assert.Equal(t, tree.DefaultMaxDepth, depth)
	assert.Equal(t, 1, obs.depthHit)
	assert.Equal(t, tree.DefaultMaxDepth, obs.rendered["vstack"])
}

func TestTextTruncation(t *testing.T) {
	r := NewRegistry(WithLimits(tree.Limits{MaxTextLength: 5}))

	el := r.Dispatch(node("t", "text", map[string]value.Value{"content": value.String("héllo wörld")}), nil, 1)
	cfg := el.Props.(TextConfig)
	assert.Equal(t, "héllo", cfg.Content)
	assert.True(t, cfg.Truncated)

	long := strings.Repeat("a", tree.DefaultMaxTextLength+10)
	el = NewRegistry().Dispatch(node("t", "text", map[string]value.Value{"content": value.String(long)}), nil, 1)
	assert.Len(t, el.Props.(TextConfig).Content, tree.DefaultMaxTextLength)
}

func TestTextStyle(t *testing.T) {
	r := NewRegistry()
	styled := r.Dispatch(node("t", "text", map[string]value.Value{"style": value.String("headline")}), nil, 1)
	assert.Equal(t, "headline", styled.Props.(TextConfig).Style)

	bogus := r.Dispatch(node("t", "text", map[string]value.Value{"style": value.String("shouting")}), nil, 1)
	assert.Equal(t, "body", bogus.Props.(TextConfig).Style)
}

func TestButton(t *testing.T) {
	r := NewRegistry()
	h := &recordingHandler{}

	el := r.Dispatch(node("b", "button", map[string]value.Value{
		"label":    value.String("Sign In"),
		"size":     value.String("lg"),
		"variant":  value.String("sparkly"),
		"actionId": value.String("login"),
	}), h, 1)

	cfg := el.Props.(ButtonConfig)
	assert.Equal(t, ButtonConfig{Label: "Sign In", Variant: "default", Size: "lg", ActionID: "login"}, cfg)

	assert.True(t, el.Tap())
	require.Len(t, h.calls, 1)
	assert.Equal(t, call{"action", "login", nil}, h.calls[0])
}

func TestButtonNavigate(t *testing.T) {
	h := &recordingHandler{}
	el := NewRegistry().Dispatch(node("b", "button", map[string]value.Value{
		"navigate": value.String("settings"),
	}), h, 1)

	assert.True(t, el.Tap())
	assert.Equal(t, "navigation", h.calls[0].kind)
	assert.Equal(t, "settings", h.calls[0].id)
}

func TestButtonWithoutHandlerOrTarget(t *testing.T) {
	r := NewRegistry()

	el := r.Dispatch(node("b", "button", map[string]value.Value{"actionId": value.String("x")}), nil, 1)
	assert.False(t, el.Tap())

	h := &recordingHandler{}
	el = r.Dispatch(node("b", "button", map[string]value.Value{"label": value.String("Plain")}), h, 1)
	assert.False(t, el.Interactive())

	el = r.Dispatch(node("b", "button", map[string]value.Value{
		"actionId": value.String("x"),
		"disabled": value.Bool(true),
	}), h, 1)
	assert.False(t, el.Tap())
	assert.Empty(t, h.calls)
}

func TestStacks(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		typ  string
		axis string
		lazy bool
	}{
		{"vstack", AxisVertical, false},
		{"hstack", AxisHorizontal, false},
		{"lazy-vstack", AxisVertical, true},
		{"lazy-hstack", AxisHorizontal, true},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			el := r.Dispatch(node("s", tt.typ, nil, node("c", "divider", nil)), nil, 1)
			cfg := el.Props.(StackConfig)
			assert.Equal(t, ElementStack, el.Type)
			assert.Equal(t, tt.axis, cfg.Axis)
			assert.Equal(t, tt.lazy, cfg.Lazy)
			assert.Equal(t, DefaultStackSpacing, cfg.Spacing)
			require.Len(t, el.Children, 1)
			assert.Equal(t, ElementDivider, el.Children[0].Type)
		})
	}

	el := r.Dispatch(node("s", "vstack", map[string]value.Value{"spacing": value.Int(16)}), nil, 1)
	assert.Equal(t, 16.0, el.Props.(StackConfig).Spacing)
}

func TestCardAndBadge(t *testing.T) {
	r := NewRegistry()

	card := r.Dispatch(node("c", "card", nil, node("b", "badge", map[string]value.Value{
		"label":   value.String("New"),
		"variant": value.String("outline"),
	})), nil, 1)
	assert.Equal(t, CardConfig{Variant: "elevated"}, card.Props)
	require.Len(t, card.Children, 1)
	assert.Equal(t, BadgeConfig{Label: "New", Variant: "outline"}, card.Children[0].Props)

	outlined := r.Dispatch(node("c", "card", map[string]value.Value{"variant": value.String("outlined")}), nil, 1)
	assert.Equal(t, "outlined", outlined.Props.(CardConfig).Variant)
}

func TestInput(t *testing.T) {
	h := &recordingHandler{}
	el := NewRegistry().Dispatch(node("i", "input", map[string]value.Value{
		"placeholder": value.String("Email address"),
		"label":       value.String("Email"),
		"inputId":     value.String("email"),
	}), h, 1)

	cfg := el.Props.(InputConfig)
	assert.Equal(t, "Email address", cfg.Placeholder)
	assert.Equal(t, "email", cfg.InputID)

	assert.False(t, el.Change(value.Int(3)))
	assert.True(t, el.Change(value.String("me@example.com")))
	require.Len(t, h.calls, 1)
	assert.True(t, h.calls[0].payload["value"].Equal(value.String("me@example.com")))
}

func TestSwitch(t *testing.T) {
	h := &recordingHandler{}
	el := NewRegistry().Dispatch(node("s", "switch", map[string]value.Value{
		"label":    value.String("Dark Mode"),
		"isOn":     value.Bool(true),
		"switchId": value.String("dark_mode"),
	}), h, 1)

	assert.True(t, el.Props.(SwitchConfig).IsOn)
	assert.True(t, el.Change(value.Bool(false)))
	assert.Equal(t, "dark_mode", h.calls[0].id)
	assert.True(t, h.calls[0].payload["value"].Equal(value.Bool(false)))
}

func TestSlider(t *testing.T) {
	h := &recordingHandler{}
	el := NewRegistry().Dispatch(node("s", "slider", map[string]value.Value{
		"value":    value.Int(3),
		"min":      value.Int(1),
		"max":      value.Int(5),
		"step":     value.Int(1),
		"sliderId": value.String("rating"),
	}), h, 1)

	cfg := el.Props.(SliderConfig)
	assert.Equal(t, 3.0, cfg.Value)
	assert.Equal(t, 1.0, cfg.Min)
	assert.Equal(t, 5.0, cfg.Max)
	require.NotNil(t, cfg.Step)
	assert.Equal(t, 1.0, *cfg.Step)
	assert.False(t, cfg.ShowValue)

	assert.True(t, el.Change(value.Double(9)))
	assert.True(t, h.calls[0].payload["value"].Equal(value.Double(5)), "clamped to max")
	assert.False(t, el.Change(value.String("loud")))
}

func TestSliderDefaults(t *testing.T) {
	r := NewRegistry()

	cfg := r.Dispatch(node("s", "slider", nil), nil, 1).Props.(SliderConfig)
	assert.Equal(t, SliderConfig{Value: 0, Min: 0, Max: 100}, cfg)

	inverted := r.Dispatch(node("s", "slider", map[string]value.Value{
		"min":   value.Int(10),
		"max":   value.Int(2),
		"value": value.Int(50),
	}), nil, 1).Props.(SliderConfig)
	assert.Equal(t, 10.0, inverted.Max)
	assert.Equal(t, 10.0, inverted.Value)
}

func TestSpacer(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Dispatch(node("s", "spacer", nil), nil, 1).Props.(SpacerConfig).MinLength)

	cfg := r.Dispatch(node("s", "spacer", map[string]value.Value{"minLength": value.Int(12)}), nil, 1).Props.(SpacerConfig)
	require.NotNil(t, cfg.MinLength)
	assert.Equal(t, 12.0, *cfg.MinLength)
}

func TestBlockedActionThroughDispatcher(t *testing.T) {
	log := action.NewLog(action.DefaultLogCapacity)
	forwarded := 0
	d := action.NewDispatcher(
		action.NewAllowList(action.Policy{Actions: []string{"login"}}),
		action.WithLog(log),
		action.WithConsumer(action.ConsumerFunc(func(action.Event) { forwarded++ })),
	)

	tr := load(t, `[{"id":"1","type":"vstack","props":{},"children":[
		{"id":"2","type":"button","props":{"label":"Sign In","actionId":"login"}},
		{"id":"3","type":"button","props":{"label":"Sign Out","actionId":"logout"}}
	]}]`)
	els := NewRegistry().Render(tr, d)

	els[0].Find("2").Tap()
	els[0].Find("3").Tap()

	assert.Equal(t, 1, forwarded)
	require.Equal(t, 2, log.Len())
	assert.Equal(t, action.KindBlocked, log.Entries()[1].Kind)
}

func TestElementJSON(t *testing.T) {
	tr := load(t, `[{"id":"1","type":"card","props":{"variant":"filled"},"children":[
		{"id":"2","type":"text","props":{"content":"hi","style":"title"}}
	]}]`)
	els := NewRegistry().Render(tr, nil)

	data, err := json.Marshal(els)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"card","nodeId":"1","props":{"variant":"filled"},"children":[
		{"type":"text","nodeId":"2","props":{"content":"hi","style":"title"}}
	]}]`, string(data))
}

func TestElementCount(t *testing.T) {
	tr := load(t, `[{"id":"1","type":"vstack","props":{},"children":[
		{"id":"2","type":"text","props":{}},
		{"id":"3","type":"ghost","props":{}}
	]}]`)
	els := NewRegistry().Render(tr, nil)
	assert.Equal(t, 2, els[0].Count())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("dev")
	require.NoError(t, err)
	assert.Equal(t, ModeDevelopment, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeProduction, m)

	_, err = ParseMode("turbo")
	assert.Error(t, err)
}

func TestConcurrentRegisterAndDispatch(t *testing.T) {
	r := NewRegistry()
	n := node("w", "widget", nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = r.Register(fmt.Sprintf("widget-%d-%d", i, j), func(*tree.Node, action.Handler, int) *Element {
					return Empty()
				})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				assert.NotNil(t, r.Dispatch(n, nil, 1))
			}
		}()
	}
	wg.Wait()
	assert.Len(t, r.CustomTypes(), 800)
}

func TestElementJSONMarksInteractive(t *testing.T) {
	tr := load(t, `{"id":"b","type":"button","props":{"label":"Go","actionId":"go"}}`)
	els := NewRegistry().Render(tr, action.NewNoopHandler(nil))

	data, err := json.Marshal(els[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"interactive":true`)
}
