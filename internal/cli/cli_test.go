// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/promptforge/internal/client"
	"github.com/jeranaias/promptforge/internal/config"
	"github.com/jeranaias/promptforge/internal/prompt"
)

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	t       *testing.T
	dir     string
	cfgPath string
	apiURL  string
}

// newHarness isolates the config directory and writes a config file pointing
// at apiURL.
func newHarness(t *testing.T, apiURL string) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PROMPTFORGE_HOME", dir)
	for _, name := range []string{
		"PROMPTFORGE_API_URL", "PROMPTFORGE_ADDR", "PROMPTFORGE_DB",
		"PROMPTFORGE_JWT_SECRET", "PROMPTFORGE_TEMPLATES", "PROMPTFORGE_OFFLINE",
		"PROMPTFORGE_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
	ForceColorsEnabled(false)

	h := &harness{t: t, dir: dir, cfgPath: filepath.Join(dir, "config.toml"), apiURL: apiURL}
	cfg := config.Default()
	if apiURL != "" {
		cfg.Client.APIURL = apiURL
	}
	cfg.Client.TimeoutSecs = 5
	cfg.Log.Level = "error"
	require.NoError(t, config.SaveTOML(cfg, h.cfgPath))
	return h
}

// withServer starts the API the way serve builds it.
func withServer(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t, "")

	e := &env{cfg: config.Default(), logger: zerolog.Nop(), errOut: io.Discard}
	e.cfg.Server.DBPath = filepath.Join(h.dir, "api.db")
	e.cfg.Server.JWTSecret = "test-secret"
	e.cfg.Server.RateLimitPerMinute = 0
	srv, cleanup, err := buildServer(e, &serveOptions{})
	require.NoError(t, err)
	t.Cleanup(cleanup)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	h.apiURL = ts.URL
	cfg, err := config.LoadFromPath(h.cfgPath)
	require.NoError(t, err)
	cfg.Client.APIURL = ts.URL
	require.NoError(t, config.SaveTOML(cfg, h.cfgPath))
	return h
}

func (h *harness) run(stdin string, args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd(strings.NewReader(stdin), &out, &errOut)
	root.SetArgs(append([]string{"--config", h.cfgPath, "--no-color"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// env loads configuration the way a subcommand would.
func (h *harness) env(stdin string) (*env, *bytes.Buffer) {
	h.t.Helper()
	var out bytes.Buffer
	e := &env{configPath: h.cfgPath, noColor: true, in: strings.NewReader(stdin), out: &out, errOut: &out}
	parent := &cobra.Command{Use: "promptforge"}
	child := &cobra.Command{Use: "repl"}
	parent.AddCommand(child)
	require.NoError(h.t, e.setup(child))
	h.t.Cleanup(e.teardown)
	return e, &out
}

func (h *harness) token() string {
	h.t.Helper()
	cfg, err := config.LoadFromPath(h.cfgPath)
	require.NoError(h.t, err)
	return cfg.Client.Token
}

func (h *harness) register() {
	h.t.Helper()
	_, _, err := h.run("Passw0rd1\nPassw0rd1\n", "register", "--username", "alice", "--email", "alice@example.com")
	require.NoError(h.t, err)
	require.NotEmpty(h.t, h.token())
}

type fakeLines struct {
	lines   []string
	history []string
}

func (f *fakeLines) Prompt(string) (string, error) {
	if len(f.lines) == 0 {
		return "", io.EOF
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	return line, nil
}

func (f *fakeLines) AppendHistory(item string) { f.history = append(f.history, item) }

// =============================================================================
// COMMAND TREE
// =============================================================================

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd(strings.NewReader(""), io.Discard, io.Discard)
	assert.Equal(t, "promptforge", root.Use)

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"tui", "serve", "generate", "repl", "history", "login", "register", "logout", "whoami", "config", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestVersion(t *testing.T) {
	h := newHarness(t, "")
	out, _, err := h.run("", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "promptforge "+Version)

	out, _, err = h.run("", "--json", "version")
	require.NoError(t, err)
	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, Version, v["version"])
}

func TestTUI_RequiresTerminal(t *testing.T) {
	if IsTTY() && IsStdoutTTY() {
		t.Skip("running in a terminal")
	}
	h := newHarness(t, "")
	_, _, err := h.run("", "tui")
	var ttyErr *TTYRequiredError
	require.ErrorAs(t, err, &ttyErr)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigPathAndShow(t *testing.T) {
	h := newHarness(t, "")
	cfg, err := config.LoadFromPath(h.cfgPath)
	require.NoError(t, err)
	cfg.Client.Token = "very-secret-token"
	require.NoError(t, config.SaveTOML(cfg, h.cfgPath))

	out, _, err := h.run("", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, h.cfgPath, strings.TrimSpace(out))

	out, _, err = h.run("", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "api_url")
	assert.NotContains(t, out, "very-secret-token")

	out, _, err = h.run("", "--json", "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "very-secret-token")
	assert.Contains(t, out, "********")
}

func TestConfigInit(t *testing.T) {
	h := newHarness(t, "")
	templates := filepath.Join(h.dir, "templates.yaml")

	_, _, err := h.run("", "config", "init")
	require.Error(t, err, "existing config is not overwritten")

	out, _, err := h.run("", "config", "init", "--force", "--templates", templates)
	require.NoError(t, err)
	assert.Contains(t, out, h.cfgPath)

	cfg, err := config.LoadFromPath(h.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, templates, cfg.Server.TemplatesPath)

	catalog, err := prompt.LoadCatalogFile(templates)
	require.NoError(t, err)
	assert.True(t, catalog.Has(prompt.ToolChatGPT, prompt.StyleCreative))
}

// =============================================================================
// GENERATE
// =============================================================================

func TestGenerate_Local(t *testing.T) {
	h := newHarness(t, "")
	out, _, err := h.run("", "generate", "--local", "--tool", "midjourney", "--style", "detailed", "a", "lighthouse")
	require.NoError(t, err)
	assert.Contains(t, out, "a lighthouse")
}

func TestGenerate_OfflineJSON(t *testing.T) {
	h := newHarness(t, "")
	out, _, err := h.run("", "--offline", "--json", "generate", "a lighthouse")
	require.NoError(t, err)

	var got generateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, prompt.ToolChatGPT, got.Tool)
	assert.Equal(t, prompt.StyleCreative, got.Style)
	assert.Equal(t, prompt.SourceLocal, got.Source)
	assert.Contains(t, got.Prompt, "a lighthouse")
}

func TestGenerate_FallsBackWhenAPIDown(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1")
	out, errOut, err := h.run("", "generate", "a lighthouse")
	require.NoError(t, err)
	assert.Contains(t, out, "a lighthouse")
	assert.Contains(t, errOut, "local templates")
}

func TestGenerate_CopyUsesClipboard(t *testing.T) {
	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { copyToClipboard = orig })

	h := newHarness(t, "")
	out, _, err := h.run("", "--offline", "generate", "--copy", "a lighthouse")
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(out), copied)
}

func TestGenerate_Errors(t *testing.T) {
	h := newHarness(t, "")

	_, _, err := h.run("", "--offline", "generate", "--tool", "gemini", "x")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "tool", vErr.Field)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, _, err = h.run("", "--offline", "generate", "--style", "poetic", "x")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "style", vErr.Field)

	_, _, err = h.run("   ", "--offline", "generate")
	assert.ErrorIs(t, err, prompt.ErrEmptyInput)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// =============================================================================
// ACCOUNT AND HISTORY AGAINST A LIVE API
// =============================================================================

func TestAccountFlow(t *testing.T) {
	h := withServer(t)

	_, _, err := h.run("", "history")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	h.register()

	out, _, err := h.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")

	_, _, err = h.run("", "logout")
	require.NoError(t, err)
	assert.Empty(t, h.token())

	_, errOut, err := h.run("wrongpass1\n", "login", "--email", "alice@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid email or password")
	assert.Equal(t, ExitAuthError, GetExitCode(err))
	assert.Contains(t, errOut, "Password:")

	out, _, err = h.run("alice@example.com\nPassw0rd1\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")
	assert.NotEmpty(t, h.token())
}

func TestRegister_PasswordMismatch(t *testing.T) {
	h := withServer(t)
	_, _, err := h.run("Passw0rd1\nPassw0rd2\n", "register", "--username", "bob", "--email", "bob@example.com")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Passwords do not match", vErr.Reason)
	assert.Empty(t, h.token())
}

func TestHistoryFlow(t *testing.T) {
	h := withServer(t)
	h.register()

	out, _, err := h.run("", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved prompts")

	out, _, err = h.run("", "generate", "--tool", "dalle", "a red fox")
	require.NoError(t, err)
	assert.Contains(t, out, "a red fox")

	c := client.New(h.apiURL, client.WithToken(h.token()))
	prompts, err := c.ListPrompts(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, prompts, 1, "generation while logged in is stored")
	id := prompts[0].ID

	out, _, err = h.run("", "history")
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("#%d", id))
	assert.Contains(t, out, "DALL-E")

	out, _, err = h.run("", "history", "--id", fmt.Sprint(id))
	require.NoError(t, err)
	assert.Contains(t, out, "a red fox")
	assert.Contains(t, out, "Generated prompt")

	dir := t.TempDir()
	out, _, err = h.run("", "history", "--export", "md", "--output", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 prompts")
	files, err := filepath.Glob(filepath.Join(dir, "prompts_*.md"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	_, _, err = h.run("", "history", "--export", "pdf")
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	out, _, err = h.run("", "history", "--delete", fmt.Sprint(id))
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted")

	_, _, err = h.run("", "history", "--id", fmt.Sprint(id))
	assert.ErrorIs(t, err, client.ErrNotFound)
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

// =============================================================================
// REPL
// =============================================================================

func TestRepl_Commands(t *testing.T) {
	h := newHarness(t, "")
	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { copyToClipboard = orig })

	e, out := h.env("")
	s, err := newReplSession(e, "", "", true)
	require.NoError(t, err)

	lines := &fakeLines{lines: []string{
		"/tool dalle",
		"/style bogus",
		"/style factual",
		"",
		"a quiet harbor",
		"/copy",
		"/nope",
		"exit",
		"never reached",
	}}
	require.NoError(t, s.run(context.Background(), lines))

	assert.Equal(t, prompt.ToolDALLE, s.tool)
	assert.Equal(t, prompt.StyleFactual, s.style)
	assert.Contains(t, s.last.Text, "a quiet harbor")
	assert.Equal(t, s.last.Text, copied)
	assert.Contains(t, out.String(), "unknown style")
	assert.Contains(t, out.String(), "unknown command /nope")
	assert.Equal(t, []string{"never reached"}, lines.lines)
	assert.NotContains(t, lines.history, "", "blank lines are not recorded")
}

func TestRepl_SaveNeedsLogin(t *testing.T) {
	h := withServer(t)
	e, _ := h.env("")
	s, err := newReplSession(e, "", "", false)
	require.NoError(t, err)

	more, err := s.handle(context.Background(), "/save")
	assert.True(t, more)
	assert.EqualError(t, err, "nothing to save yet")

	_, err = s.handle(context.Background(), "a quiet harbor")
	require.NoError(t, err)
	_, err = s.handle(context.Background(), "/save")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestRepl_SaveLoggedIn(t *testing.T) {
	h := withServer(t)
	h.register()
	e, out := h.env("")
	s, err := newReplSession(e, "midjourney", "detailed", false)
	require.NoError(t, err)

	_, err = s.handle(context.Background(), "a quiet harbor")
	require.NoError(t, err)
	_, err = s.handle(context.Background(), "/save")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Saved as #")
}

// =============================================================================
// ERRORS AND HELPERS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", &ValidationError{Field: "tool"}, ExitUsageError},
		{"empty input", fmt.Errorf("wrap: %w", prompt.ErrEmptyInput), ExitUsageError},
		{"not logged in", ErrNotLoggedIn, ExitAuthError},
		{"unauthorized", &client.APIError{Status: 401}, ExitAuthError},
		{"not found", &client.APIError{Status: 404}, ExitNotFoundError},
		{"network", fmt.Errorf("x: %w", client.ErrNetwork), ExitNetworkError},
		{"offline", ErrOffline, ExitNetworkError},
		{"deadline", context.DeadlineExceeded, ExitTimeoutError},
		{"config", fmt.Errorf("invalid config: %w", config.ValidateErrors{{Field: "ui.theme"}}), ExitConfigError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError_JSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, ErrNotLoggedIn, true)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, false, got["success"])
	assert.Equal(t, float64(ExitAuthError), got["exit_code"])
}

func TestReadLine(t *testing.T) {
	r := strings.NewReader("first\r\nsecond")
	line, err := readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "first", line)
	line, err = readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "second", line)
	_, err = readLine(r)
	assert.ErrorIs(t, err, io.EOF)
}

func TestPromptMarkdown(t *testing.T) {
	md := promptMarkdown(&client.Prompt{
		ID:              3,
		UserInput:       "a fox",
		GeneratedPrompt: "line one\nline two",
		TargetTool:      prompt.ToolDALLE,
		PromptStyle:     prompt.StyleCreative,
	})
	assert.Contains(t, md, "## Prompt #3")
	assert.Contains(t, md, "DALL-E")
	assert.Contains(t, md, "> line one\n> line two\n")
}
