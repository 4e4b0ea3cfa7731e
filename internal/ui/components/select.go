// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/promptforge/internal/ui/styles"
	"github.com/jeranaias/promptforge/internal/util"
)

// =============================================================================
// SELECT
// =============================================================================

// Option is one entry of a Select. Values are unique within a control.
type Option struct {
	Value string
	Label string
}

// Select is a single-choice dropdown.
//
// It has two states, closed and open. Toggle flips between them, Pick and
// Dismiss close it, and only Pick reports a change. While open it holds an
// outside-press listener on its DismissHub so a press anywhere else closes it.
//
// The selected value is either owned by the Select (seeded from
// WithDefaultValue) or controlled by the caller through WithControlledValue
// and SetValue. A controlled value that matches no option is kept as is and
// displayed as the placeholder.
type Select struct {
	id          string
	options     []Option
	value       string
	controlled  bool
	placeholder string
	onChange    func(string)

	open        bool
	highlighted int
	focused     bool
	unmounted   bool

	hub     *DismissHub
	release func()

	x, y  int
	width int
	theme *styles.Theme
}

// SelectOption configures a Select.
type SelectOption func(*Select)

// WithControlledValue makes the caller the authority for the selected value.
func WithControlledValue(v string) SelectOption {
	return func(s *Select) {
		s.value = v
		s.controlled = true
	}
}

// WithDefaultValue seeds an uncontrolled Select.
func WithDefaultValue(v string) SelectOption {
	return func(s *Select) {
		if !s.controlled {
			s.value = v
		}
	}
}

// WithOnChange sets the callback fired once per Pick.
func WithOnChange(fn func(string)) SelectOption {
	return func(s *Select) { s.onChange = fn }
}

// WithPlaceholder sets the text shown when no option matches the value.
func WithPlaceholder(p string) SelectOption {
	return func(s *Select) { s.placeholder = p }
}

// WithDismissHub shares an outside-press hub with other overlays.
func WithDismissHub(h *DismissHub) SelectOption {
	return func(s *Select) { s.hub = h }
}

// WithWidth fixes the rendered width in cells, borders included.
func WithWidth(w int) SelectOption {
	return func(s *Select) { s.width = w }
}

// WithID names the Select in its hub listener.
func WithID(id string) SelectOption {
	return func(s *Select) { s.id = id }
}

// WithTheme sets the render theme.
func WithTheme(t *styles.Theme) SelectOption {
	return func(s *Select) { s.theme = t }
}

// NewSelect creates a closed Select over options, in the given order.
func NewSelect(options []Option, opts ...SelectOption) *Select {
	s := &Select{
		id:      "select",
		options: append([]Option(nil), options...),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = NewDismissHub()
	}
	if s.theme == nil {
		s.theme = styles.NewTheme()
	}
	if s.width <= 0 {
		s.width = s.naturalWidth()
	}
	return s
}

// naturalWidth fits the widest label or placeholder plus check, chevron,
// padding and borders.
func (s *Select) naturalWidth() int {
	w := runewidth.StringWidth(s.placeholder)
	for _, o := range s.options {
		if lw := runewidth.StringWidth(o.Label); lw > w {
			w = lw
		}
	}
	return w + 8
}

// ResolveLabel returns the label of the option whose value equals value, or
// placeholder when none does (or value is empty).
func ResolveLabel(options []Option, value, placeholder string) string {
	if value != "" {
		for _, o := range options {
			if o.Value == value {
				return o.Label
			}
		}
	}
	return placeholder
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Toggle opens a closed Select and closes an open one. The value is untouched.
func (s *Select) Toggle() {
	if s.unmounted {
		return
	}
	if s.open {
		s.close()
		return
	}
	s.open = true
	s.highlighted = s.selectedIndex()
	s.release = s.hub.Acquire(s.id, s.Bounds, s.Dismiss)
}

// Pick selects value, closes, then calls onChange(value) once. Picking the
// current value still reports it.
func (s *Select) Pick(value string) {
	if s.unmounted {
		return
	}
	s.value = value
	s.close()
	if s.onChange != nil {
		s.onChange(value)
	}
}

// Dismiss closes an open Select without changing the value or reporting.
func (s *Select) Dismiss() {
	if s.unmounted || !s.open {
		return
	}
	s.close()
}

// Unmount ends the Select's lifecycle and releases its listener. Later
// operations are ignored.
func (s *Select) Unmount() {
	if s.unmounted {
		return
	}
	s.close()
	s.unmounted = true
}

// SetValue is the controlled update from the owner. It applies immediately,
// including while the list is open.
func (s *Select) SetValue(v string) {
	if s.unmounted {
		return
	}
	s.value = v
	if s.open {
		s.highlighted = s.selectedIndex()
	}
}

func (s *Select) close() {
	s.open = false
	if s.release != nil {
		s.release()
		s.release = nil
	}
}

func (s *Select) selectedIndex() int {
	for i, o := range s.options {
		if o.Value == s.value {
			return i
		}
	}
	return 0
}

// =============================================================================
// ACCESSORS
// =============================================================================

// IsOpen reports whether the option list is showing.
func (s *Select) IsOpen() bool { return s.open }

// Value returns the selected value, which may match no option.
func (s *Select) Value() string { return s.value }

// Label returns the text shown on the trigger.
func (s *Select) Label() string { return ResolveLabel(s.options, s.value, s.placeholder) }

// Options returns a copy of the options.
func (s *Select) Options() []Option { return append([]Option(nil), s.options...) }

// Highlighted returns the keyboard-highlighted option, or a zero Option when
// closed.
func (s *Select) Highlighted() Option {
	if !s.open || len(s.options) == 0 {
		return Option{}
	}
	return s.options[s.highlighted]
}

// Controlled reports whether the owner controls the value.
func (s *Select) Controlled() bool { return s.controlled }

// Focus gives the Select keyboard focus.
func (s *Select) Focus() { s.focused = true }

// Blur removes keyboard focus and dismisses the list.
func (s *Select) Blur() {
	s.focused = false
	s.Dismiss()
}

// Focused reports whether the Select has keyboard focus.
func (s *Select) Focused() bool { return s.focused }

// SetPosition records where the trigger is drawn, for hit testing.
func (s *Select) SetPosition(x, y int) {
	s.x = x
	s.y = y
}

// Width returns the rendered width in cells.
func (s *Select) Width() int { return s.width }

// Bounds is the hit region: the trigger row when closed, the trigger and
// option rows when open.
func (s *Select) Bounds() Rect {
	h := 1
	if s.open {
		h += len(s.options)
	}
	return Rect{X: s.x, Y: s.y, W: s.width, H: h}
}

// =============================================================================
// BUBBLE TEA METHODS
// =============================================================================

// Update handles keys while focused and left-button presses on the control.
// Presses elsewhere reach the Select through its DismissHub.
func (s *Select) Update(msg tea.Msg) (*Select, tea.Cmd) {
	if s.unmounted {
		return s, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !s.focused {
			return s, nil
		}
		s.handleKey(msg)

	case tea.MouseMsg:
		if msg.Type != tea.MouseLeft || !s.Bounds().Contains(msg.X, msg.Y) {
			return s, nil
		}
		row := msg.Y - s.y
		if row == 0 {
			s.Toggle()
			return s, nil
		}
		if s.open && row-1 < len(s.options) {
			s.Pick(s.options[row-1].Value)
		}
	}
	return s, nil
}

func (s *Select) handleKey(msg tea.KeyMsg) {
	if !s.open {
		switch msg.String() {
		case "enter", " ":
			s.Toggle()
		}
		return
	}

	switch msg.String() {
	case "up", "k":
		if s.highlighted > 0 {
			s.highlighted--
		}
	case "down", "j":
		if s.highlighted < len(s.options)-1 {
			s.highlighted++
		}
	case "home":
		s.highlighted = 0
	case "end":
		s.highlighted = len(s.options) - 1
	case "enter", " ":
		if len(s.options) > 0 {
			s.Pick(s.options[s.highlighted].Value)
		}
	case "esc":
		s.Dismiss()
	}
}

// View renders the trigger and, when open, one line per option.
func (s *Select) View() string {
	inner := s.width - 4
	if inner < 3 {
		inner = 3
	}

	label := s.Label()
	text := util.PadRight(util.TruncateWidth(label, inner-2), inner-2)
	if ResolveLabel(s.options, s.value, "") == "" {
		text = s.theme.SelectPlaceholder.Render(text)
	}
	chevron := "▾"
	if s.open {
		chevron = "▴"
	}

	trigger := s.theme.SelectTrigger
	if s.focused {
		trigger = s.theme.SelectTriggerFocused
	}
	lines := []string{trigger.Render(text + " " + chevron)}

	if s.open {
		for i, o := range s.options {
			mark := "  "
			if o.Value == s.value {
				mark = s.theme.SelectCheck.Render("✓") + " "
			}
			row := util.PadRight(util.TruncateWidth(o.Label, inner-2), inner-2)
			style := s.theme.SelectOption
			if i == s.highlighted {
				style = s.theme.SelectOptionActive
			}
			lines = append(lines, s.theme.SelectList.Render(mark+style.Render(row)))
		}
	}
	return strings.Join(lines, "\n")
}
