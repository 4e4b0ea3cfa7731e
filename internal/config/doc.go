// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for promptforge.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: main configuration structure
//   - ServerConfig: HTTP service settings (listen address, database, sessions)
//   - ClientConfig: API endpoint and stored session token for the terminal UI
//   - UIConfig: default tool/style and display preferences
//   - LogConfig: zerolog level, format, and destination
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (PROMPTFORGE_*)
//   - ~/.promptforge/config.toml
//   - ~/.promptforge/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	url := cfg.Client.APIURL
package config
