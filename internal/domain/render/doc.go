/*
Package render turns validated SDUI trees into backend-neutral elements.

Dispatch order for a node type:

 1. Built-in table: button, card, badge, vstack, hstack, lazy-vstack,
    lazy-hstack, text, spacer, divider, input, switch, slider
 2. Custom renderers added with Registry.Register
 3. Fallback: placeholder in ModeDevelopment, empty element in ModeProduction

Each built-in maps its props to a typed config (ButtonConfig, StackConfig,
...). Missing or mistyped props fall back to defaults. Interactive elements
(button, input, switch, slider) call the action.Handler passed at dispatch
time; the rendering backend triggers them with Element.Tap and
Element.Change.

Dispatch stops at Limits.MaxDepth and text content is cut to
Limits.MaxTextLength even when the tree was validated with looser limits.
*/
package render
