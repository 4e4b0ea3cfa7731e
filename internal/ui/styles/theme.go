// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	renderer *lipgloss.Renderer

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderUser  lipgloss.Style

	// ==========================================================================
	// PANEL STYLES
	// ==========================================================================

	Panel        lipgloss.Style
	PanelFocused lipgloss.Style
	Label        lipgloss.Style
	Muted        lipgloss.Style
	Output       lipgloss.Style

	// ==========================================================================
	// SELECT STYLES
	// ==========================================================================

	SelectTrigger        lipgloss.Style
	SelectTriggerFocused lipgloss.Style
	SelectPlaceholder    lipgloss.Style
	SelectList           lipgloss.Style
	SelectOption         lipgloss.Style
	SelectOptionActive   lipgloss.Style
	SelectCheck          lipgloss.Style

	// ==========================================================================
	// MODAL STYLES
	// ==========================================================================

	Modal      lipgloss.Style
	ModalTitle lipgloss.Style
	Tab        lipgloss.Style
	TabActive  lipgloss.Style
	FieldLabel lipgloss.Style
	Button     lipgloss.Style

	// ==========================================================================
	// BADGES AND MESSAGES
	// ==========================================================================

	BadgeSuccess lipgloss.Style
	BadgeWarning lipgloss.Style
	ErrorText    lipgloss.Style
	SuccessText  lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	Spinner      lipgloss.Style
}

// NewTheme creates a theme for the terminal on stdout.
func NewTheme() *Theme {
	output := termenv.NewOutput(os.Stdout)
	return newTheme(lipgloss.NewRenderer(os.Stdout), output.ColorProfile(), output.HasDarkBackground())
}

// NewThemeWithProfile creates a theme with a fixed color profile. Ascii
// renders without escape sequences.
func NewThemeWithProfile(profile termenv.Profile) *Theme {
	return newTheme(lipgloss.NewRenderer(io.Discard), profile, true)
}

// NewThemeForTerminal creates a theme for stdout with an explicit color
// profile. mode "dark" or "light" skips background detection; anything else
// asks the terminal.
func NewThemeForTerminal(profile termenv.Profile, mode string) *Theme {
	var dark bool
	switch mode {
	case "dark":
		dark = true
	case "light":
		dark = false
	default:
		dark = termenv.NewOutput(os.Stdout).HasDarkBackground()
	}
	return newTheme(lipgloss.NewRenderer(os.Stdout), profile, dark)
}

func newTheme(r *lipgloss.Renderer, profile termenv.Profile, dark bool) *Theme {
	r.SetColorProfile(profile)
	r.SetHasDarkBackground(dark)

	t := &Theme{
		IsDark:       dark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
		renderer:     r,
	}
	t.initStyles()
	return t
}

// NewStyle returns a style bound to the theme's renderer.
func (t *Theme) NewStyle() lipgloss.Style {
	return t.renderer.NewStyle()
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	s := t.renderer.NewStyle

	// Header
	t.Header = s().
		Foreground(TextPrimary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderBrand = s().Bold(true).Foreground(Cyan)
	t.HeaderUser = s().Foreground(TextSecondary)

	// Panels
	t.Panel = s().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.PanelFocused = t.Panel.
		BorderForeground(FocusRing)
	t.Label = s().Bold(true).Foreground(TextSecondary)
	t.Muted = s().Foreground(TextMuted)
	t.Output = s().Foreground(TextPrimary)

	// Select
	t.SelectTrigger = s().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Overlay).
		BorderTop(false).BorderBottom(false).
		BorderLeft(true).BorderRight(true).
		Padding(0, 1)
	t.SelectTriggerFocused = t.SelectTrigger.
		BorderForeground(FocusRing).
		Bold(true)
	t.SelectPlaceholder = s().Foreground(TextMuted).Italic(true)
	t.SelectList = s().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Overlay).
		BorderTop(false).BorderBottom(false).
		BorderLeft(true).BorderRight(true)
	t.SelectOption = s().Foreground(TextPrimary).Padding(0, 1)
	t.SelectOptionActive = t.SelectOption.
		Background(SurfaceBright).
		Foreground(Purple).
		Bold(true)
	t.SelectCheck = s().Foreground(Emerald).Bold(true)

	// Modal
	t.Modal = s().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)
	t.ModalTitle = s().Bold(true).Foreground(Cyan)
	t.Tab = s().Foreground(TextMuted).Padding(0, 1)
	t.TabActive = s().
		Foreground(TextInverse).
		Background(Purple).
		Bold(true).
		Padding(0, 1)
	t.FieldLabel = s().Foreground(TextSecondary)
	t.Button = s().
		Foreground(TextInverse).
		Background(PurpleDeep).
		Padding(0, 2)

	// Badges
	t.BadgeSuccess = s().
		Foreground(TextInverse).
		Background(Emerald).
		Bold(true).
		Padding(0, 1)
	t.BadgeWarning = s().
		Foreground(TextInverse).
		Background(Amber).
		Padding(0, 1)
	t.ErrorText = s().Foreground(Rose)
	t.SuccessText = s().Foreground(Emerald)

	// Status bar
	t.StatusBar = s().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.ShortcutKey = s().Bold(true).Foreground(Cyan)
	t.ShortcutDesc = s().Foreground(TextMuted)
	t.Spinner = s().Foreground(Purple)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // >= 100 columns
)
