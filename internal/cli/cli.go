// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the promptforge command line.
//
// Running promptforge with no subcommand starts the terminal UI. Other
// commands serve the HTTP API, generate prompts non-interactively, browse
// saved prompts, and manage the stored session and configuration.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/promptforge/internal/client"
	"github.com/jeranaias/promptforge/internal/config"
	"github.com/jeranaias/promptforge/internal/logging"
	"github.com/jeranaias/promptforge/internal/prompt"
)

// Version information (overridden at build time with -ldflags)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// SHARED COMMAND STATE
// =============================================================================

// env carries global flags and what PersistentPreRunE builds from them.
type env struct {
	// flags
	configPath string
	apiURL     string
	logLevel   string
	offline    bool
	noColor    bool
	jsonOut    bool

	cfg       *config.Config
	logger    zerolog.Logger
	logCloser io.Closer

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func (e *env) setup(cmd *cobra.Command) error {
	if e.noColor {
		ForceColorsEnabled(false)
	}
	configureColors()

	var cfg *config.Config
	var err error
	if e.configPath != "" {
		cfg, err = config.LoadFromPath(e.configPath)
		if err != nil {
			return err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return err
		}
		if err != nil {
			fmt.Fprintf(e.errOut, "%s %v (using defaults)\n", WarningStyle.Render("[WARN]"), err)
		}
	}

	if e.apiURL != "" {
		cfg.Client.APIURL = strings.TrimRight(e.apiURL, "/")
	}
	if e.offline {
		cfg.Client.Offline = true
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}
	e.cfg = cfg

	// The terminal UI owns the screen, so its log goes to a file.
	logOpts := logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		File:    cfg.Log.File,
		Writer:  e.errOut,
		NoColor: !ColorsEnabled(),
	}
	if logOpts.File == "" && isTUICommand(cmd) {
		path, err := config.DataPath("promptforge.log")
		if err != nil {
			return err
		}
		logOpts.File = path
	}
	logger, closer, err := logging.New(logOpts)
	if err != nil {
		return err
	}
	e.logger = logger
	e.logCloser = closer
	return nil
}

func (e *env) teardown() {
	if e.logCloser != nil {
		_ = e.logCloser.Close()
	}
}

func isTUICommand(cmd *cobra.Command) bool {
	return !cmd.HasParent() || cmd.Name() == "tui"
}

// newClient builds an API client carrying the stored session token.
func (e *env) newClient() *client.Client {
	return client.New(e.cfg.Client.APIURL,
		client.WithTimeout(time.Duration(e.cfg.Client.TimeoutSecs)*time.Second),
		client.WithToken(e.cfg.Client.Token),
	)
}

// requireClient is newClient for commands that cannot work offline.
func (e *env) requireClient() (*client.Client, error) {
	if e.cfg.Client.Offline {
		return nil, ErrOffline
	}
	return e.newClient(), nil
}

// loadCatalog returns the template catalog with any configured overrides.
func (e *env) loadCatalog() (*prompt.Catalog, error) {
	if e.cfg.Server.TemplatesPath == "" {
		return prompt.NewCatalog(), nil
	}
	catalog, err := prompt.LoadCatalogFile(e.cfg.Server.TemplatesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	return catalog, nil
}

// newGenerator renders locally when local is set or offline mode is on,
// otherwise asks the API and falls back to the catalog.
func (e *env) newGenerator(local bool) (*prompt.Generator, error) {
	catalog, err := e.loadCatalog()
	if err != nil {
		return nil, err
	}
	var remote prompt.Remote
	if !local && !e.cfg.Client.Offline {
		remote = e.newClient()
	}
	return prompt.NewGenerator(remote, catalog, e.logger), nil
}

// saveToken persists the session token to the config file in use.
func (e *env) saveToken(token string) error {
	e.cfg.Client.Token = token
	if e.configPath == "" {
		return config.Save(e.cfg)
	}
	return writeConfig(e.cfg, e.configPath)
}

// writeConfig saves cfg in the format implied by the path's extension.
func writeConfig(cfg *config.Config, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCmd builds the command tree reading from in and writing to out and
// errOut.
func NewRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	e := &env{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "promptforge",
		Short: "Turn a rough goal into a prompt for ChatGPT, DALL-E, or Midjourney",
		Long: `promptforge turns a rough goal into a ready-to-paste prompt for an AI tool.

Run it with no arguments to open the terminal UI. Pick the target tool and
prompt style from the dropdowns, generate, then copy, edit, or save.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			e.teardown()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), e)
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&e.configPath, "config", "", "config file (default ~/.promptforge/config.toml)")
	flags.StringVar(&e.apiURL, "api-url", "", "API base URL (overrides client.api_url)")
	flags.StringVar(&e.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&e.offline, "offline", false, "render prompts locally and skip the API")
	flags.BoolVar(&e.noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&e.jsonOut, "json", false, "print machine-readable JSON where supported")

	root.AddCommand(
		newTUICmd(e),
		newServeCmd(e),
		newGenerateCmd(e),
		newReplCmd(e),
		newHistoryCmd(e),
		newLoginCmd(e),
		newRegisterCmd(e),
		newLogoutCmd(e),
		newWhoamiCmd(e),
		newConfigCmd(e),
		newVersionCmd(e),
	)
	return root
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	root := NewRootCmd(os.Stdin, os.Stdout, os.Stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	jsonMode, _ := root.PersistentFlags().GetBool("json")
	DisplayError(os.Stderr, err, jsonMode)
	return GetExitCode(err)
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.jsonOut {
				return writeJSON(e.out, map[string]string{
					"version":    Version,
					"git_commit": GitCommit,
					"build_date": BuildDate,
				})
			}
			fmt.Fprintf(e.out, "promptforge %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}
