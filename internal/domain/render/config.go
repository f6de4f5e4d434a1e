package render

import (
	"math"
	"unicode/utf8"

	"github.com/GriffinCanCode/sdui/internal/domain/tree"
)

// ============================================================================
// Enumerated prop values
// ============================================================================

// oneOf returns the prop if it is one of allowed, otherwise def
func oneOf(n *tree.Node, key, def string, allowed ...string) string {
	s, ok := n.OptionalString(key)
	if !ok {
		return def
	}
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	return def
}

var (
	buttonVariants = []string{"default", "destructive", "outline", "secondary", "ghost", "link"}
	buttonSizes    = []string{"sm", "md", "lg"}
	badgeVariants  = []string{"default", "secondary", "destructive", "outline"}
	cardVariants   = []string{"elevated", "outlined", "filled"}
	textStyles     = []string{
		"largeTitle", "title", "title2", "title3", "headline", "subheadline",
		"body", "callout", "footnote", "caption", "caption2",
	}
	vAlignments = []string{"leading", "center", "trailing"}
	hAlignments = []string{"top", "center", "bottom"}
)

// ============================================================================
// Configs
// ============================================================================

// ButtonConfig is the props of a button element
type ButtonConfig struct {
	Label    string `json:"label"`
	Variant  string `json:"variant"`
	Size     string `json:"size"`
	ActionID string `json:"actionId,omitempty"`
	Navigate string `json:"navigate,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

func buttonConfig(n *tree.Node) ButtonConfig {
	return ButtonConfig{
		Label:    n.StringProp("label", ""),
		Variant:  oneOf(n, "variant", "default", buttonVariants...),
		Size:     oneOf(n, "size", "md", buttonSizes...),
		ActionID: n.StringProp("actionId", ""),
		Navigate: n.StringProp("navigate", ""),
		Disabled: n.BoolProp("disabled", false),
	}
}

// CardConfig is the props of a card element
type CardConfig struct {
	Variant string `json:"variant"`
}

func cardConfig(n *tree.Node) CardConfig {
	return CardConfig{Variant: oneOf(n, "variant", "elevated", cardVariants...)}
}

// BadgeConfig is the props of a badge element
type BadgeConfig struct {
	Label   string `json:"label"`
	Variant string `json:"variant"`
}

func badgeConfig(n *tree.Node) BadgeConfig {
	return BadgeConfig{
		Label:   n.StringProp("label", ""),
		Variant: oneOf(n, "variant", "default", badgeVariants...),
	}
}

// Stack axes
const (
	AxisVertical   = "vertical"
	AxisHorizontal = "horizontal"
)

// DefaultStackSpacing applies when a stack has no spacing prop
const DefaultStackSpacing = 8.0

// StackConfig is the props of a stack element
type StackConfig struct {
	Axis      string  `json:"axis"`
	Lazy      bool    `json:"lazy,omitempty"`
	Spacing   float64 `json:"spacing"`
	Alignment string  `json:"alignment"`
}

func stackConfig(n *tree.Node, axis string, lazy bool) StackConfig {
	alignments := vAlignments
	if axis == AxisHorizontal {
		alignments = hAlignments
	}
	spacing := n.DoubleProp("spacing", DefaultStackSpacing)
	if spacing < 0 || math.IsNaN(spacing) {
		spacing = DefaultStackSpacing
	}
	return StackConfig{
		Axis:      axis,
		Lazy:      lazy,
		Spacing:   spacing,
		Alignment: oneOf(n, "alignment", "center", alignments...),
	}
}

// TextConfig is the props of a text element
type TextConfig struct {
	Content   string `json:"content"`
	Style     string `json:"style"`
	Truncated bool   `json:"truncated,omitempty"`
}

func textConfig(n *tree.Node, maxLen int) TextConfig {
	content, truncated := truncate(n.StringProp("content", ""), maxLen)
	return TextConfig{
		Content:   content,
		Style:     oneOf(n, "style", "body", textStyles...),
		Truncated: truncated,
	}
}

// truncate cuts s to at most maxLen characters
func truncate(s string, maxLen int) (string, bool) {
	if len(s) <= maxLen {
		return s, false
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s, false
	}
	i, count := 0, 0
	for i < len(s) && count < maxLen {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		count++
	}
	return s[:i], true
}

// SpacerConfig is the props of a spacer element
type SpacerConfig struct {
	MinLength *float64 `json:"minLength,omitempty"`
}

func spacerConfig(n *tree.Node) SpacerConfig {
	var cfg SpacerConfig
	if f, ok := n.OptionalDouble("minLength"); ok && f >= 0 {
		cfg.MinLength = &f
	}
	return cfg
}

// InputConfig is the props of an input element
type InputConfig struct {
	Placeholder  string `json:"placeholder"`
	Label        string `json:"label,omitempty"`
	Value        string `json:"value,omitempty"`
	IsError      bool   `json:"isError,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	InputID      string `json:"inputId,omitempty"`
}

func inputConfig(n *tree.Node, maxLen int) InputConfig {
	text, _ := truncate(n.StringProp("value", ""), maxLen)
	return InputConfig{
		Placeholder:  n.StringProp("placeholder", ""),
		Label:        n.StringProp("label", ""),
		Value:        text,
		IsError:      n.BoolProp("isError", false),
		ErrorMessage: n.StringProp("errorMessage", ""),
		InputID:      n.StringProp("inputId", ""),
	}
}

// SwitchConfig is the props of a switch element
type SwitchConfig struct {
	Label    string `json:"label"`
	IsOn     bool   `json:"isOn"`
	SwitchID string `json:"switchId,omitempty"`
}

func switchConfig(n *tree.Node) SwitchConfig {
	return SwitchConfig{
		Label:    n.StringProp("label", ""),
		IsOn:     n.BoolProp("isOn", false),
		SwitchID: n.StringProp("switchId", ""),
	}
}

// SliderConfig is the props of a slider element
type SliderConfig struct {
	Label     string   `json:"label,omitempty"`
	Value     float64  `json:"value"`
	Min       float64  `json:"min"`
	Max       float64  `json:"max"`
	Step      *float64 `json:"step,omitempty"`
	ShowValue bool     `json:"showValue,omitempty"`
	SliderID  string   `json:"sliderId,omitempty"`
}

// Clamp bounds v to the slider range
func (c SliderConfig) Clamp(v float64) float64 {
	return math.Min(math.Max(v, c.Min), c.Max)
}

func sliderConfig(n *tree.Node) SliderConfig {
	cfg := SliderConfig{
		Label:     n.StringProp("label", ""),
		Min:       finite(n.DoubleProp("min", 0), 0),
		Max:       finite(n.DoubleProp("max", 100), 100),
		ShowValue: n.BoolProp("showValue", false),
		SliderID:  n.StringProp("sliderId", ""),
	}
	if cfg.Max < cfg.Min {
		cfg.Max = cfg.Min
	}
	cfg.Value = cfg.Clamp(finite(n.DoubleProp("value", cfg.Min), cfg.Min))
	if step, ok := n.OptionalDouble("step"); ok && step > 0 && !math.IsInf(step, 0) {
		cfg.Step = &step
	}
	return cfg
}

func finite(f, def float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// PlaceholderConfig is the props of the diagnostic element shown for
// unknown types in development mode
type PlaceholderConfig struct {
	ComponentType string `json:"componentType"`
	Message       string `json:"message"`
}
