// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	uiapp "github.com/jeranaias/promptforge/internal/ui/app"
	"github.com/jeranaias/promptforge/internal/ui/styles"
)

func newTUICmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal UI (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), e)
		},
	}
}

// tuiOptions assembles the model options from the loaded config.
func tuiOptions(e *env) (uiapp.Options, error) {
	gen, err := e.newGenerator(false)
	if err != nil {
		return uiapp.Options{}, err
	}
	opts := uiapp.Options{
		Generator:    gen,
		Theme:        styles.NewThemeForTerminal(GetColorProfile(), e.cfg.UI.Theme),
		Logger:       e.logger,
		DefaultTool:  e.cfg.UI.DefaultTool,
		DefaultStyle: e.cfg.UI.DefaultStyle,
		Version:      Version,
		OnSession: func(token string) {
			if err := e.saveToken(token); err != nil {
				e.logger.Warn().Err(err).Msg("TOKEN_SAVE_FAILED")
			}
		},
	}
	if !e.cfg.Client.Offline {
		// One client serves both generation and the account, so a login in
		// the UI also authenticates generate requests.
		c := e.newClient()
		opts.Account = c
		gen.Remote = c
	}
	return opts, nil
}

func runTUI(ctx context.Context, e *env) error {
	if !IsTTY() || !IsStdoutTTY() {
		return &TTYRequiredError{Operation: "run the terminal UI"}
	}

	opts, err := tuiOptions(e)
	if err != nil {
		return err
	}
	model := uiapp.New(opts)

	progOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if e.cfg.UI.Mouse {
		progOpts = append(progOpts, tea.WithMouseCellMotion())
	}

	e.logger.Info().
		Str("api_url", e.cfg.Client.APIURL).
		Bool("offline", e.cfg.Client.Offline).
		Msg("TUI_START")

	if _, err := tea.NewProgram(model, progOpts...).Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}
