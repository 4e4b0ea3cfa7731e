// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/promptforge/internal/client"
	"github.com/jeranaias/promptforge/internal/ui/styles"
)

// =============================================================================
// AUTH MODAL
// =============================================================================

// AuthTab selects the login or registration form.
type AuthTab int

const (
	TabLogin AuthTab = iota
	TabRegister
)

// String returns the tab's name.
func (t AuthTab) String() string {
	if t == TabRegister {
		return "register"
	}
	return "login"
}

// Authenticator is the part of the API client the modal needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*client.Session, error)
	Register(ctx context.Context, username, email, password string) (*client.Session, error)
}

// AuthResultMsg carries the outcome of a login or registration request.
type AuthResultMsg struct {
	Tab     AuthTab
	Session *client.Session
	Err     error
	seq     int
}

// AuthSuccessMsg is emitted once the success message has been shown and the
// modal has closed.
type AuthSuccessMsg struct {
	Session *client.Session
}

type authCloseMsg struct {
	session *client.Session
	seq     int
}

// Messages shown by the modal.
const (
	MsgLoginSuccess     = "Login successful!"
	MsgRegisterSuccess  = "Registration successful!"
	MsgLoginFailed      = "Login failed"
	MsgRegisterFailed   = "Registration failed"
	MsgPasswordMismatch = "Passwords do not match"
)

// DefaultCloseDelay is how long the success message stays up.
const DefaultCloseDelay = time.Second

// Field indexes per tab.
const (
	loginEmail = iota
	loginPassword
)

const (
	regUsername = iota
	regEmail
	regPassword
	regConfirm
)

// AuthModal is the login/registration dialog.
type AuthModal struct {
	auth    Authenticator
	timeout time.Duration

	// CloseDelay is the pause between a success message and closing.
	CloseDelay time.Duration

	visible bool
	tab     AuthTab
	focus   int
	login   []textinput.Model
	reg     []textinput.Model

	loading bool
	errMsg  string
	okMsg   string

	// seq invalidates in-flight results when the modal is closed or reopened.
	seq int

	width int
	theme *styles.Theme
}

// NewAuthModal creates a hidden modal that authenticates through auth.
func NewAuthModal(auth Authenticator, theme *styles.Theme) *AuthModal {
	if theme == nil {
		theme = styles.NewTheme()
	}
	m := &AuthModal{
		auth:       auth,
		timeout:    15 * time.Second,
		CloseDelay: DefaultCloseDelay,
		theme:      theme,
		width:      48,
	}
	m.login = []textinput.Model{
		newField("Enter your email", false),
		newField("Enter your password", true),
	}
	m.reg = []textinput.Model{
		newField("Choose a username", false),
		newField("Enter your email", false),
		newField("Create a password", true),
		newField("Confirm your password", true),
	}
	return m
}

func newField(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 128
	ti.Width = 36
	ti.Prompt = ""
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return ti
}

// =============================================================================
// AUTH MODAL METHODS
// =============================================================================

// Show opens the modal on the login tab.
func (m *AuthModal) Show() tea.Cmd {
	m.reset()
	m.visible = true
	m.tab = TabLogin
	return m.focusField(0)
}

// Hide closes the modal and clears every field and message.
func (m *AuthModal) Hide() {
	m.visible = false
	m.reset()
}

func (m *AuthModal) reset() {
	m.seq++
	m.loading = false
	m.errMsg = ""
	m.okMsg = ""
	m.focus = 0
	for i := range m.login {
		m.login[i].Reset()
		m.login[i].Blur()
	}
	for i := range m.reg {
		m.reg[i].Reset()
		m.reg[i].Blur()
	}
}

// IsVisible returns whether the modal is open.
func (m *AuthModal) IsVisible() bool { return m.visible }

// Tab returns the active tab.
func (m *AuthModal) Tab() AuthTab { return m.tab }

// Loading reports whether a request is in flight.
func (m *AuthModal) Loading() bool { return m.loading }

// Error returns the error message, or "".
func (m *AuthModal) Error() string { return m.errMsg }

// Success returns the success message, or "".
func (m *AuthModal) Success() string { return m.okMsg }

// SetTab switches forms. Messages are cleared; field contents are kept.
func (m *AuthModal) SetTab(tab AuthTab) tea.Cmd {
	m.blurAll()
	m.tab = tab
	m.errMsg = ""
	m.okMsg = ""
	return m.focusField(0)
}

// SetWidth sets the modal width in cells.
func (m *AuthModal) SetWidth(w int) {
	if w < 30 {
		w = 30
	}
	m.width = w
	for i := range m.login {
		m.login[i].Width = w - 12
	}
	for i := range m.reg {
		m.reg[i].Width = w - 12
	}
}

// SetField sets a field on the active tab by index. Used by callers that
// prefill the form (and by tests).
func (m *AuthModal) SetField(i int, v string) {
	fields := m.fields()
	if i >= 0 && i < len(fields) {
		fields[i].SetValue(v)
	}
}

func (m *AuthModal) fields() []textinput.Model {
	if m.tab == TabRegister {
		return m.reg
	}
	return m.login
}

func (m *AuthModal) blurAll() {
	fields := m.fields()
	for i := range fields {
		fields[i].Blur()
	}
}

func (m *AuthModal) focusField(i int) tea.Cmd {
	fields := m.fields()
	m.blurAll()
	m.focus = (i + len(fields)) % len(fields)
	return fields[m.focus].Focus()
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit validates the active form and starts the request.
func (m *AuthModal) Submit() tea.Cmd {
	if m.loading {
		return nil
	}
	m.errMsg = ""
	m.okMsg = ""

	tab, seq, auth, timeout := m.tab, m.seq, m.auth, m.timeout
	if tab == TabRegister {
		username := strings.TrimSpace(m.reg[regUsername].Value())
		email := strings.TrimSpace(m.reg[regEmail].Value())
		password := m.reg[regPassword].Value()
		if password != m.reg[regConfirm].Value() {
			m.errMsg = MsgPasswordMismatch
			return nil
		}
		m.loading = true
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			sess, err := auth.Register(ctx, username, email, password)
			return AuthResultMsg{Tab: tab, Session: sess, Err: err, seq: seq}
		}
	}

	email := strings.TrimSpace(m.login[loginEmail].Value())
	password := m.login[loginPassword].Value()
	m.loading = true
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		sess, err := auth.Login(ctx, email, password)
		return AuthResultMsg{Tab: tab, Session: sess, Err: err, seq: seq}
	}
}

// =============================================================================
// BUBBLE TEA METHODS
// =============================================================================

// Update handles input while visible and request results.
func (m *AuthModal) Update(msg tea.Msg) (*AuthModal, tea.Cmd) {
	switch msg := msg.(type) {
	case AuthResultMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			fallback := MsgLoginFailed
			if msg.Tab == TabRegister {
				fallback = MsgRegisterFailed
			}
			m.errMsg = client.ErrorMessage(msg.Err, fallback)
			return m, nil
		}
		m.okMsg = MsgLoginSuccess
		if msg.Tab == TabRegister {
			m.okMsg = MsgRegisterSuccess
		}
		sess, seq := msg.Session, m.seq
		return m, tea.Tick(m.CloseDelay, func(time.Time) tea.Msg {
			return authCloseMsg{session: sess, seq: seq}
		})

	case authCloseMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.Hide()
		sess := msg.session
		return m, func() tea.Msg { return AuthSuccessMsg{Session: sess} }

	case tea.KeyMsg:
		if !m.visible {
			return m, nil
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *AuthModal) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.Hide()
		return nil
	case "ctrl+t":
		if m.tab == TabLogin {
			return m.SetTab(TabRegister)
		}
		return m.SetTab(TabLogin)
	case "tab", "down":
		return m.focusField(m.focus + 1)
	case "shift+tab", "up":
		return m.focusField(m.focus - 1)
	case "enter":
		if m.focus < len(m.fields())-1 {
			return m.focusField(m.focus + 1)
		}
		return m.Submit()
	}

	if m.loading {
		return nil
	}
	fields := m.fields()
	var cmd tea.Cmd
	fields[m.focus], cmd = fields[m.focus].Update(msg)
	return cmd
}

// View renders the modal, or "" when hidden.
func (m *AuthModal) View() string {
	if !m.visible {
		return ""
	}
	t := m.theme

	tabs := []string{t.Tab.Render("Login"), t.Tab.Render("Sign Up")}
	if m.tab == TabRegister {
		tabs[1] = t.TabActive.Render("Sign Up")
	} else {
		tabs[0] = t.TabActive.Render("Login")
	}

	var b strings.Builder
	b.WriteString(t.ModalTitle.Render("Welcome to promptforge"))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs[0], " ", tabs[1]))
	b.WriteString("\n\n")

	labels := []string{"Email", "Password"}
	button := "Login"
	busy := "Logging in..."
	if m.tab == TabRegister {
		labels = []string{"Username", "Email", "Password", "Confirm Password"}
		button = "Create Account"
		busy = "Creating Account..."
	}
	fields := m.fields()
	for i, f := range fields {
		b.WriteString(t.FieldLabel.Render(labels[i]))
		b.WriteString("\n")
		b.WriteString(f.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.loading {
		button = busy
	}
	b.WriteString(t.Button.Render(button))

	switch {
	case m.errMsg != "":
		b.WriteString("\n\n")
		b.WriteString(t.ErrorText.Render(styles.StatusIndicators.Error + " " + m.errMsg))
	case m.okMsg != "":
		b.WriteString("\n\n")
		b.WriteString(t.SuccessText.Render(styles.StatusIndicators.Success + " " + m.okMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(t.Muted.Render("enter submit · tab next · ctrl+t switch · esc close"))

	return t.Modal.Width(m.width).Render(b.String())
}
