// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/promptforge/internal/client"
	"github.com/jeranaias/promptforge/internal/config"
	"github.com/jeranaias/promptforge/internal/prompt"
)

const replHelp = `Type a goal to generate a prompt. Commands:
  /tool <id>     switch target tool (chatgpt, dalle, midjourney)
  /style <id>    switch style (creative, factual, detailed)
  /copy          copy the last prompt to the clipboard
  /save          save the last prompt to your account
  /help          show this help
  /quit          exit (also: exit, quit, Ctrl+D)`

// lineReader is the part of liner the repl needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// historyLiner wraps liner with a history file in the config directory.
type historyLiner struct {
	*liner.State
	historyFile string
}

func newHistoryLiner() *historyLiner {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	h := &historyLiner{State: line, historyFile: filepath.Join(dir, "repl_history")}
	if f, err := os.Open(h.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return h
}

// Close saves history with owner-only permissions and restores the terminal.
func (h *historyLiner) Close() error {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(h.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = h.WriteHistory(f)
			f.Close()
		}
	}
	return h.State.Close()
}

// =============================================================================
// SESSION
// =============================================================================

type replSession struct {
	e      *env
	gen    *prompt.Generator
	client *client.Client
	tool   string
	style  string
	last   prompt.Result
	goal   string
}

func newReplCmd(e *env) *cobra.Command {
	var tool, style string
	var local bool
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Generate prompts in an interactive loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newReplSession(e, tool, style, local)
			if err != nil {
				return err
			}
			line := newHistoryLiner()
			defer line.Close()
			return s.run(cmd.Context(), line)
		},
	}
	cmd.Flags().StringVarP(&tool, "tool", "t", "", "initial target tool")
	cmd.Flags().StringVarP(&style, "style", "s", "", "initial prompt style")
	cmd.Flags().BoolVar(&local, "local", false, "render from local templates without calling the API")
	return cmd
}

func newReplSession(e *env, tool, style string, local bool) (*replSession, error) {
	tool, style, err := resolveSelections(e, tool, style)
	if err != nil {
		return nil, err
	}
	gen, err := e.newGenerator(local)
	if err != nil {
		return nil, err
	}
	s := &replSession{e: e, gen: gen, tool: tool, style: style}
	if !e.cfg.Client.Offline {
		s.client = e.newClient()
	}
	return s, nil
}

func (s *replSession) promptLabel() string {
	return PromptStyle.Render(fmt.Sprintf("%s/%s> ", s.tool, s.style))
}

// run reads lines until EOF, Ctrl+C, or /quit.
func (s *replSession) run(ctx context.Context, in lineReader) error {
	fmt.Fprintln(s.e.out, DimStyle.Render("promptforge repl, /help for commands"))
	for {
		line, err := in.Prompt(s.promptLabel())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(s.e.out)
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		in.AppendHistory(line)

		more, err := s.handle(ctx, line)
		if err != nil {
			fmt.Fprintf(s.e.errOut, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
		if !more {
			return nil
		}
	}
}

// handle processes one line and reports whether the loop should continue.
func (s *replSession) handle(ctx context.Context, line string) (bool, error) {
	if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return true, s.generate(ctx, line)
	}

	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit", "/q":
		return false, nil
	case "/help", "/?":
		fmt.Fprintln(s.e.out, replHelp)
	case "/tool":
		tool, _, err := resolveSelections(s.e, arg, s.style)
		if err != nil || arg == "" {
			return true, NewValidationErrorWithExample("tool", arg, "unknown tool", "/tool "+strings.Join(toolIDs(), "|"))
		}
		s.tool = tool
	case "/style":
		_, style, err := resolveSelections(s.e, s.tool, arg)
		if err != nil || arg == "" {
			return true, NewValidationErrorWithExample("style", arg, "unknown style", "/style "+strings.Join(styleIDs(), "|"))
		}
		s.style = style
	case "/copy":
		if s.last.Text == "" {
			return true, errors.New("nothing to copy yet")
		}
		if err := copyToClipboard(s.last.Text); err != nil {
			return true, fmt.Errorf("copy failed: %w", err)
		}
		fmt.Fprintln(s.e.out, SuccessStyle.Render("Copied!"))
	case "/save":
		return true, s.save(ctx)
	default:
		return true, fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
	return true, nil
}

func (s *replSession) generate(ctx context.Context, goal string) error {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()
	res, err := s.gen.Generate(ctx, prompt.Request{Input: goal, Tool: s.tool, Style: s.style})
	if err != nil {
		return err
	}
	s.last = res
	s.goal = goal

	fmt.Fprintln(s.e.out, RenderSeparator())
	fmt.Fprintln(s.e.out, res.Text)
	if res.Source == prompt.SourceLocal {
		fmt.Fprintln(s.e.out, DimStyle.Render("(local)"))
	}
	fmt.Fprintln(s.e.out, RenderSeparator())
	return nil
}

func (s *replSession) save(ctx context.Context) error {
	if s.last.Text == "" {
		return errors.New("nothing to save yet")
	}
	if s.client == nil {
		return ErrOffline
	}
	if s.client.Token() == "" {
		return ErrNotLoggedIn
	}
	p, err := s.client.SavePrompt(ctx, client.SaveRequest{
		UserInput:       s.goal,
		GeneratedPrompt: s.last.Text,
		TargetTool:      s.tool,
		PromptStyle:     s.style,
	})
	if err != nil {
		return errors.New(client.ErrorMessage(err, "Save failed"))
	}
	fmt.Fprintln(s.e.out, SuccessStyle.Render(fmt.Sprintf("Saved as #%d", p.ID)))
	return nil
}
