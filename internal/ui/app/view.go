// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/promptforge/internal/prompt"
	"github.com/jeranaias/promptforge/internal/ui/styles"
)

// View implements tea.Model. It also records where each dropdown is drawn so
// mouse presses can be hit-tested against the frame the user sees.
func (m *Model) View() string {
	if m.auth.IsVisible() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.auth.View())
	}
	t := m.theme

	var blocks []string
	y := 0
	add := func(s string) {
		blocks = append(blocks, s)
		y += lipgloss.Height(s)
	}

	add(m.renderHeader())
	add("")
	add(t.Label.Render("Your goal"))
	add(m.panel(focusGoal).Render(m.goal.View()))
	add("")

	// The trigger row sits under the label row.
	gap := 2
	toolCol := t.Label.Render("AI tool") + "\n" + m.toolSel.View()
	m.toolSel.SetPosition(0, y+1)
	m.styleSel.SetPosition(lipgloss.Width(toolCol)+gap, y+1)
	styleCol := t.Label.Render("Style") + "\n" + m.styleSel.View()
	add(lipgloss.JoinHorizontal(lipgloss.Top, toolCol, strings.Repeat(" ", gap), styleCol))
	add("")

	add(m.renderOutputTitle())
	add(m.panel(focusOutput).Render(m.renderOutput()))
	add(m.renderStatus())

	return strings.Join(blocks, "\n")
}

func (m *Model) panel(area focusArea) lipgloss.Style {
	style := m.theme.Panel
	if m.focus == area {
		style = m.theme.PanelFocused
	}
	return style.Width(max(20, m.width-2))
}

func (m *Model) renderHeader() string {
	t := m.theme
	brand := t.HeaderBrand.Render("✦ promptforge")
	if m.opts.Version != "" {
		brand += t.Muted.Render(" " + m.opts.Version)
	}

	var right string
	switch {
	case m.opts.Account == nil:
		right = t.Muted.Render("offline")
	case m.user != nil:
		right = t.HeaderUser.Render("● " + m.user.Username)
	default:
		right = t.Muted.Render("not logged in · C-l login")
	}

	space := max(1, m.width-2-lipgloss.Width(brand)-lipgloss.Width(right))
	return t.Header.Width(m.width).Render(brand + strings.Repeat(" ", space) + right)
}

func (m *Model) renderOutputTitle() string {
	t := m.theme
	parts := []string{t.Label.Render("Generated prompt")}
	if m.generated != "" {
		parts = append(parts, styles.ToolBadge(m.tool))
	}
	if m.source == prompt.SourceLocal && m.generated != "" {
		parts = append(parts, t.BadgeWarning.Render("local"))
	}
	if m.editing {
		parts = append(parts, t.Muted.Render("editing · C-e done"))
	}
	if m.copied {
		parts = append(parts, t.BadgeSuccess.Render("Copied"))
	}
	if m.saved {
		parts = append(parts, t.BadgeSuccess.Render("Saved"))
	}
	return strings.Join(parts, " ")
}

func (m *Model) renderOutput() string {
	t := m.theme
	switch {
	case m.generating:
		return m.spinner.View() + " " + t.Muted.Render("Generating...")
	case m.editing:
		return m.edit.View()
	case m.generated == "":
		return t.Muted.Render("Your generated prompt will appear here. Press C-g to generate.")
	default:
		return m.output.View()
	}
}

func (m *Model) renderStatus() string {
	t := m.theme
	var line string
	switch {
	case m.errMsg != "":
		line = styles.RenderError(m.errMsg)
	case m.statusMsg != "":
		line = styles.RenderInfo(m.statusMsg)
	default:
		var hints []string
		for _, b := range m.keys.ShortHelp() {
			h := b.Help()
			hints = append(hints, t.ShortcutKey.Render(h.Key)+" "+t.ShortcutDesc.Render(h.Desc))
		}
		line = strings.Join(hints, "  ")
	}
	return t.StatusBar.Width(m.width).Render(line)
}
