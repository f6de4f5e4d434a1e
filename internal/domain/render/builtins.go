package render

import (
	"math"

	"github.com/GriffinCanCode/sdui/internal/domain/action"
	"github.com/GriffinCanCode/sdui/internal/domain/tree"
	"github.com/GriffinCanCode/sdui/internal/shared/value"
)

// Built-in component type names
const (
	TypeButton     = "button"
	TypeCard       = "card"
	TypeBadge      = "badge"
	TypeVStack     = "vstack"
	TypeHStack     = "hstack"
	TypeLazyVStack = "lazy-vstack"
	TypeLazyHStack = "lazy-hstack"
	TypeText       = "text"
	TypeSpacer     = "spacer"
	TypeDivider    = "divider"
	TypeInput      = "input"
	TypeSwitch     = "switch"
	TypeSlider     = "slider"
)

func (r *Registry) builtinTable() map[string]RenderFunc {
	return map[string]RenderFunc{
		TypeButton:     r.renderButton,
		TypeCard:       r.renderCard,
		TypeBadge:      r.renderBadge,
		TypeVStack:     r.stack(AxisVertical, false),
		TypeHStack:     r.stack(AxisHorizontal, false),
		TypeLazyVStack: r.stack(AxisVertical, true),
		TypeLazyHStack: r.stack(AxisHorizontal, true),
		TypeText:       r.renderText,
		TypeSpacer:     r.renderSpacer,
		TypeDivider:    r.renderDivider,
		TypeInput:      r.renderInput,
		TypeSwitch:     r.renderSwitch,
		TypeSlider:     r.renderSlider,
	}
}

func (r *Registry) renderButton(n *tree.Node, h action.Handler, _ int) *Element {
	cfg := buttonConfig(n)
	el := NewElement(ElementButton, n.ID(), cfg)
	if h == nil || cfg.Disabled {
		return el
	}
	switch {
	case cfg.ActionID != "":
		el.OnTap(func() { h.HandleAction(cfg.ActionID, nil) })
	case cfg.Navigate != "":
		el.OnTap(func() { h.HandleNavigation(cfg.Navigate, nil) })
	}
	return el
}

func (r *Registry) renderCard(n *tree.Node, h action.Handler, depth int) *Element {
	return NewElement(ElementCard, n.ID(), cardConfig(n), r.DispatchChildren(n, h, depth)...)
}

func (r *Registry) renderBadge(n *tree.Node, _ action.Handler, _ int) *Element {
	return NewElement(ElementBadge, n.ID(), badgeConfig(n))
}

func (r *Registry) stack(axis string, lazy bool) RenderFunc {
	return func(n *tree.Node, h action.Handler, depth int) *Element {
		return NewElement(ElementStack, n.ID(), stackConfig(n, axis, lazy), r.DispatchChildren(n, h, depth)...)
	}
}

func (r *Registry) renderText(n *tree.Node, _ action.Handler, _ int) *Element {
	return NewElement(ElementText, n.ID(), textConfig(n, r.limits.MaxTextLength))
}

func (r *Registry) renderSpacer(n *tree.Node, _ action.Handler, _ int) *Element {
	return NewElement(ElementSpacer, n.ID(), spacerConfig(n))
}

func (r *Registry) renderDivider(n *tree.Node, _ action.Handler, _ int) *Element {
	return NewElement(ElementDivider, n.ID(), nil)
}

func (r *Registry) renderInput(n *tree.Node, h action.Handler, _ int) *Element {
	cfg := inputConfig(n, r.limits.MaxTextLength)
	el := NewElement(ElementInput, n.ID(), cfg)
	if h == nil || cfg.InputID == "" {
		return el
	}
	maxLen := r.limits.MaxTextLength
	return el.OnChange(func(v value.Value) bool {
		text, ok := v.AsString()
		if !ok {
			return false
		}
		text, _ = truncate(text, maxLen)
		h.HandleAction(cfg.InputID, map[string]value.Value{"value": value.String(text)})
		return true
	})
}

func (r *Registry) renderSwitch(n *tree.Node, h action.Handler, _ int) *Element {
	cfg := switchConfig(n)
	el := NewElement(ElementSwitch, n.ID(), cfg)
	if h == nil || cfg.SwitchID == "" {
		return el
	}
	return el.OnChange(func(v value.Value) bool {
		on, ok := v.AsBool()
		if !ok {
			return false
		}
		h.HandleAction(cfg.SwitchID, map[string]value.Value{"value": value.Bool(on)})
		return true
	})
}

func (r *Registry) renderSlider(n *tree.Node, h action.Handler, _ int) *Element {
	cfg := sliderConfig(n)
	el := NewElement(ElementSlider, n.ID(), cfg)
	if h == nil || cfg.SliderID == "" {
		return el
	}
	return el.OnChange(func(v value.Value) bool {
		f, ok := v.AsDouble()
		if !ok || math.IsNaN(f) {
			return false
		}
		h.HandleAction(cfg.SliderID, map[string]value.Value{"value": value.Double(cfg.Clamp(f))})
		return true
	})
}
