// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the root Bubble Tea model of the promptforge terminal UI.
//
// The screen has a goal editor, tool and style dropdowns, and an output pane
// holding the generated prompt. Global shortcuts generate, copy, edit, save,
// and manage the account session; everything else goes to the focused widget.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/promptforge/internal/client"
	"github.com/jeranaias/promptforge/internal/prompt"
	"github.com/jeranaias/promptforge/internal/ui/components"
	"github.com/jeranaias/promptforge/internal/ui/styles"
	"github.com/jeranaias/promptforge/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// BadgeDuration is how long "Copied" and "Saved" stay visible.
	BadgeDuration = 2 * time.Second

	// RequestTimeout bounds each API call made from the UI.
	RequestTimeout = 30 * time.Second

	goalHeight = 4
)

// focusArea is the widget receiving unbound keys.
type focusArea int

const (
	focusGoal focusArea = iota
	focusTool
	focusStyle
	focusOutput
	focusCount
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Generator produces prompts. *prompt.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, req prompt.Request) (prompt.Result, error)
}

// Account is the API surface for sessions and saving. *client.Client
// satisfies it.
type Account interface {
	components.Authenticator
	Me(ctx context.Context) (*client.User, error)
	Logout(ctx context.Context) error
	SavePrompt(ctx context.Context, req client.SaveRequest) (*client.Prompt, error)
	Token() string
}

// Options configures the model.
type Options struct {
	Generator Generator
	// Account is nil in offline mode; login and save are then unavailable.
	Account      Account
	Theme        *styles.Theme
	Logger       zerolog.Logger
	DefaultTool  string
	DefaultStyle string
	Version      string

	// Clipboard writes text to the system clipboard. Defaults to
	// clipboard.WriteAll.
	Clipboard func(string) error
	// OnSession is called with the token after login or registration and
	// with "" after logout, so callers can persist it.
	OnSession func(token string)
}

// ErrOffline is shown when an account action is attempted without an API.
var ErrOffline = errors.New("offline mode: no API configured")

// =============================================================================
// MODEL
// =============================================================================

// Model is the generator screen.
type Model struct {
	opts   Options
	keys   KeyMap
	theme  *styles.Theme
	logger zerolog.Logger

	goal     textarea.Model
	edit     textarea.Model
	output   viewport.Model
	spinner  spinner.Model
	hub      *components.DismissHub
	toolSel  *components.Select
	styleSel *components.Select
	auth     *components.AuthModal

	// tool and style are the controlled values of the two dropdowns.
	tool  string
	style string

	generated  string
	source     string
	promptID   int64
	editing    bool
	generating bool

	user  *client.User
	focus focusArea

	copied    bool
	saved     bool
	badgeSeq  [2]int
	statusMsg string
	errMsg    string

	width  int
	height int
}

// New creates the screen.
func New(opts Options) *Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme()
	}
	if opts.Generator == nil {
		opts.Generator = prompt.NewGenerator(nil, nil, opts.Logger)
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if !prompt.IsKnownTool(opts.DefaultTool) {
		opts.DefaultTool = prompt.ToolChatGPT
	}
	if !prompt.IsKnownStyle(opts.DefaultStyle) {
		opts.DefaultStyle = prompt.StyleCreative
	}

	m := &Model{
		opts:   opts,
		keys:   DefaultKeyMap(),
		theme:  opts.Theme,
		logger: opts.Logger,
		hub:    components.NewDismissHub(),
		tool:   opts.DefaultTool,
		style:  opts.DefaultStyle,
		width:  80,
		height: 24,
	}

	m.goal = textarea.New()
	m.goal.Placeholder = "Describe what you want the AI to do..."
	m.goal.ShowLineNumbers = false
	m.goal.CharLimit = 4000
	m.goal.SetHeight(goalHeight)
	m.goal.Focus()

	m.edit = textarea.New()
	m.edit.ShowLineNumbers = false
	m.edit.CharLimit = 20000

	m.output = viewport.New(76, 8)

	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.spinner.Style = m.theme.Spinner

	toolOpts := make([]components.Option, 0, len(prompt.Tools()))
	for _, t := range prompt.Tools() {
		toolOpts = append(toolOpts, components.Option{Value: t.ID, Label: t.Glyph + " " + t.Label})
	}
	styleOpts := make([]components.Option, 0, len(prompt.Styles()))
	for _, s := range prompt.Styles() {
		styleOpts = append(styleOpts, components.Option{Value: s.ID, Label: s.Label})
	}

	m.toolSel = components.NewSelect(toolOpts,
		components.WithID("tool"),
		components.WithControlledValue(m.tool),
		components.WithOnChange(m.setTool),
		components.WithPlaceholder("Select AI tool"),
		components.WithDismissHub(m.hub),
		components.WithTheme(m.theme),
		components.WithWidth(24),
	)
	m.styleSel = components.NewSelect(styleOpts,
		components.WithID("style"),
		components.WithControlledValue(m.style),
		components.WithOnChange(m.setStyle),
		components.WithPlaceholder("Select style"),
		components.WithDismissHub(m.hub),
		components.WithTheme(m.theme),
		components.WithWidth(24),
	)

	var authn components.Authenticator
	if opts.Account != nil {
		authn = opts.Account
	}
	m.auth = components.NewAuthModal(authn, m.theme)

	m.resize(m.width, m.height)
	return m
}

// setTool is the tool dropdown's change callback; the model owns the value
// and echoes it back.
func (m *Model) setTool(v string) {
	m.tool = v
	m.toolSel.SetValue(v)
}

func (m *Model) setStyle(v string) {
	m.style = v
	m.styleSel.SetValue(v)
}

// Tool returns the selected tool id.
func (m *Model) Tool() string { return m.tool }

// Style returns the selected style id.
func (m *Model) Style() string { return m.style }

// Generated returns the current prompt text.
func (m *Model) Generated() string { return m.generated }

// User returns the logged-in user, or nil.
func (m *Model) User() *client.User { return m.user }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.opts.Account != nil && m.opts.Account.Token() != "" {
		cmds = append(cmds, m.checkSession())
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m *Model) checkSession() tea.Cmd {
	account := m.opts.Account
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()
		user, err := account.Me(ctx)
		return sessionMsg{user: user, err: err}
	}
}

func (m *Model) generate() tea.Cmd {
	if m.generating {
		return nil
	}
	input := m.goal.Value()
	if util.NormalizeInput(input) == "" {
		m.errMsg = "Enter a goal first"
		return nil
	}
	m.generating = true
	m.errMsg = ""
	m.statusMsg = ""

	req := prompt.Request{Input: input, Tool: m.tool, Style: m.style}
	if m.user != nil {
		id := m.user.ID
		req.UserID = &id
	}
	gen := m.opts.Generator
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()
		res, err := gen.Generate(ctx, req)
		return generatedMsg{result: res, err: err}
	})
}

// currentText is the prompt as the user sees it, including unsaved edits.
func (m *Model) currentText() string {
	if m.editing {
		return m.edit.Value()
	}
	return m.generated
}

func (m *Model) copyPrompt() tea.Cmd {
	text := m.currentText()
	if text == "" {
		return nil
	}
	write := m.opts.Clipboard
	return func() tea.Msg {
		return copiedMsg{err: write(text)}
	}
}

func (m *Model) toggleEdit() tea.Cmd {
	if m.generated == "" && !m.editing {
		return nil
	}
	if m.editing {
		m.generated = m.edit.Value()
		m.editing = false
		m.edit.Blur()
		m.output.SetContent(m.generated)
		return nil
	}
	m.editing = true
	m.edit.SetValue(m.generated)
	m.setFocus(focusOutput)
	return m.edit.Focus()
}

func (m *Model) savePrompt() tea.Cmd {
	text := m.currentText()
	if text == "" {
		return nil
	}
	if m.opts.Account == nil {
		m.errMsg = ErrOffline.Error()
		return nil
	}
	if m.user == nil {
		m.statusMsg = "Log in to save prompts"
		return m.openAuth()
	}
	req := client.SaveRequest{
		UserInput:       m.goal.Value(),
		GeneratedPrompt: text,
		TargetTool:      m.tool,
		PromptStyle:     m.style,
	}
	account := m.opts.Account
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()
		p, err := account.SavePrompt(ctx, req)
		return savedMsg{prompt: p, err: err}
	}
}

func (m *Model) openAuth() tea.Cmd {
	if m.opts.Account == nil {
		m.errMsg = ErrOffline.Error()
		return nil
	}
	m.toolSel.Dismiss()
	m.styleSel.Dismiss()
	m.auth.SetWidth(min(56, m.width-4))
	return m.auth.Show()
}

func (m *Model) logout() tea.Cmd {
	if m.opts.Account == nil || m.user == nil {
		return nil
	}
	account := m.opts.Account
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()
		return loggedOutMsg{err: account.Logout(ctx)}
	}
}

// showBadge turns a badge on and schedules it off. Re-showing restarts the
// timer.
func (m *Model) showBadge(b badge) tea.Cmd {
	m.badgeSeq[b]++
	m.setBadge(b, true)
	seq := m.badgeSeq[b]
	return tea.Tick(BadgeDuration, func(time.Time) tea.Msg {
		return badgeExpiredMsg{badge: b, seq: seq}
	})
}

func (m *Model) setBadge(b badge, on bool) {
	switch b {
	case badgeCopied:
		m.copied = on
	case badgeSaved:
		m.saved = on
	}
}

// =============================================================================
// FOCUS AND LAYOUT
// =============================================================================

func (m *Model) setFocus(f focusArea) {
	m.focus = (f + focusCount) % focusCount
	m.goal.Blur()
	// Blur dismisses, so the target Select keeps its open list.
	if m.focus != focusTool {
		m.toolSel.Blur()
	}
	if m.focus != focusStyle {
		m.styleSel.Blur()
	}
	if !m.editing {
		m.edit.Blur()
	}
	switch m.focus {
	case focusGoal:
		m.goal.Focus()
	case focusTool:
		m.toolSel.Focus()
	case focusStyle:
		m.styleSel.Focus()
	case focusOutput:
		if m.editing {
			m.edit.Focus()
		}
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	inner := max(20, width-4)
	m.goal.SetWidth(inner)
	m.edit.SetWidth(inner)
	m.output.Width = inner

	// header, labels, goal panel, selects, status line and borders
	outH := max(3, height-goalHeight-14)
	m.output.Height = outH
	m.edit.SetHeight(outH)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if !m.generating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case generatedMsg:
		m.generating = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.generated = msg.result.Text
		m.source = msg.result.Source
		m.promptID = msg.result.PromptID
		m.editing = false
		m.edit.Blur()
		m.output.SetContent(m.generated)
		m.output.GotoTop()
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.logger.Warn().Err(msg.err).Msg("CLIPBOARD_FAILED")
			m.errMsg = "Copy failed: " + msg.err.Error()
			return m, nil
		}
		return m, m.showBadge(badgeCopied)

	case savedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, client.ErrUnauthorized) {
				m.user = nil
				m.statusMsg = "Session expired, log in again"
				return m, m.openAuth()
			}
			m.errMsg = client.ErrorMessage(msg.err, "Save failed")
			return m, nil
		}
		m.logger.Info().Int64("prompt_id", msg.prompt.ID).Msg("PROMPT_SAVED")
		return m, m.showBadge(badgeSaved)

	case badgeExpiredMsg:
		if msg.seq == m.badgeSeq[msg.badge] {
			m.setBadge(msg.badge, false)
		}
		return m, nil

	case sessionMsg:
		if msg.err != nil {
			m.logger.Debug().Err(msg.err).Msg("SESSION_CHECK_FAILED")
			return m, nil
		}
		m.user = msg.user
		return m, nil

	case loggedOutMsg:
		if msg.err != nil {
			m.logger.Warn().Err(msg.err).Msg("LOGOUT_FAILED")
		}
		m.user = nil
		m.statusMsg = "Logged out"
		if m.opts.OnSession != nil {
			m.opts.OnSession("")
		}
		return m, nil

	case components.AuthSuccessMsg:
		if msg.Session != nil {
			u := msg.Session.User
			m.user = &u
			m.statusMsg = "Logged in as " + u.Username
			if m.opts.OnSession != nil {
				m.opts.OnSession(msg.Session.Token)
			}
		}
		return m, nil

	case components.AuthResultMsg:
		var cmd tea.Cmd
		m.auth, cmd = m.auth.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m, m.handleMouse(msg)

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	// Timer messages private to the modal and textarea blinks.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.auth, cmd = m.auth.Update(msg)
	cmds = append(cmds, cmd)
	m.goal, cmd = m.goal.Update(msg)
	cmds = append(cmds, cmd)
	if m.editing {
		m.edit, cmd = m.edit.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.auth.IsVisible() {
		return nil
	}
	// Outside presses close open dropdowns before anything else sees them.
	m.hub.Dispatch(msg)

	if msg.Type == tea.MouseLeft {
		switch {
		case m.toolSel.Bounds().Contains(msg.X, msg.Y):
			m.setFocus(focusTool)
		case m.styleSel.Bounds().Contains(msg.X, msg.Y):
			m.setFocus(focusStyle)
		}
	}
	m.toolSel.Update(msg)
	m.styleSel.Update(msg)

	if msg.Type == tea.MouseWheelUp || msg.Type == tea.MouseWheelDown {
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) {
		m.toolSel.Unmount()
		m.styleSel.Unmount()
		return tea.Quit
	}
	if m.auth.IsVisible() {
		var cmd tea.Cmd
		m.auth, cmd = m.auth.Update(msg)
		return cmd
	}
	m.errMsg = ""
	m.statusMsg = ""

	switch {
	case key.Matches(msg, m.keys.Generate):
		return m.generate()
	case key.Matches(msg, m.keys.Copy):
		return m.copyPrompt()
	case key.Matches(msg, m.keys.Edit):
		return m.toggleEdit()
	case key.Matches(msg, m.keys.Save):
		return m.savePrompt()
	case key.Matches(msg, m.keys.Login):
		if m.user != nil {
			m.statusMsg = "Already logged in as " + m.user.Username
			return nil
		}
		return m.openAuth()
	case key.Matches(msg, m.keys.Logout):
		return m.logout()
	case key.Matches(msg, m.keys.NextFocus):
		m.setFocus(m.focus + 1)
		return nil
	case key.Matches(msg, m.keys.PrevFocus):
		m.setFocus(m.focus - 1)
		return nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusGoal:
		m.goal, cmd = m.goal.Update(msg)
	case focusTool:
		m.toolSel.Update(msg)
	case focusStyle:
		m.styleSel.Update(msg)
	case focusOutput:
		if m.editing {
			m.edit, cmd = m.edit.Update(msg)
		} else {
			m.output, cmd = m.output.Update(msg)
		}
	}
	return cmd
}
