// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/promptforge/internal/config"
	"github.com/jeranaias/promptforge/internal/prompt"
)

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize configuration",
	}
	cmd.AddCommand(newConfigShowCmd(e), newConfigPathCmd(e), newConfigInitCmd(e))
	return cmd
}

func newConfigShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (secrets masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.jsonOut {
				masked := e.cfg.Clone()
				if masked.Client.Token != "" {
					masked.Client.Token = "********"
				}
				if masked.Server.JWTSecret != "" {
					masked.Server.JWTSecret = "********"
				}
				return writeJSON(e.out, masked)
			}
			fmt.Fprint(e.out, e.cfg.String())
			return nil
		},
	}
}

// configFilePath is --config when given, otherwise the default TOML path.
func (e *env) configFilePath() (string, error) {
	if e.configPath != "" {
		return e.configPath, nil
	}
	return config.ConfigPathTOML()
}

func newConfigPathCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := e.configFilePath()
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, path)
			return nil
		},
	}
}

func newConfigInitCmd(e *env) *cobra.Command {
	var force bool
	var templates string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: `Write a default config file. With --templates, also write the built-in
prompt templates as YAML so they can be edited and loaded through
server.templates_path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := e.configFilePath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			cfg := config.Default()
			if templates != "" {
				if err := prompt.WriteOverrides(templates); err != nil {
					return fmt.Errorf("failed to write templates: %w", err)
				}
				cfg.Server.TemplatesPath = templates
				fmt.Fprintln(e.out, RenderField("Templates", templates))
			}
			if err := writeConfig(cfg, path); err != nil {
				return err
			}
			fmt.Fprintln(e.out, RenderField("Config", path))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.Flags().StringVar(&templates, "templates", "", "also write the built-in templates to this YAML file")
	return cmd
}
