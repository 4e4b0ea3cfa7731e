// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/promptforge/internal/prompt"
	"github.com/jeranaias/promptforge/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete promptforge configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// HTTP service (promptforge serve)
	Server ServerConfig `toml:"server" json:"server"`

	// API client used by the terminal UI and CLI commands
	Client ClientConfig `toml:"client" json:"client"`

	UI  UIConfig  `toml:"ui" json:"ui"`
	Log LogConfig `toml:"log" json:"log"`
}

// ServerConfig contains settings for the companion HTTP service.
type ServerConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:5000"
	Addr string `toml:"addr" json:"addr"`
	// DBPath is the SQLite database file (empty = ~/.promptforge/promptforge.db)
	DBPath string `toml:"db_path" json:"db_path"`
	// JWTSecret signs session tokens. When empty, serve generates a random
	// secret at startup and sessions do not survive a restart.
	JWTSecret string `toml:"jwt_secret" json:"jwt_secret"`
	// TokenTTLHours is the session lifetime
	TokenTTLHours int `toml:"token_ttl_hours" json:"token_ttl_hours"`
	// CORSOrigins lists origins allowed to make credentialed requests
	CORSOrigins []string `toml:"cors_origins" json:"cors_origins"`
	// RateLimitPerMinute caps requests per client IP (0 = unlimited)
	RateLimitPerMinute int `toml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	// TemplatesPath is an optional YAML file overriding built-in templates
	TemplatesPath string `toml:"templates_path" json:"templates_path"`
}

// ClientConfig contains settings for talking to the HTTP service.
type ClientConfig struct {
	APIURL      string `toml:"api_url" json:"api_url"`
	TimeoutSecs int    `toml:"timeout_secs" json:"timeout_secs"`
	// Offline skips the remote service and renders templates locally
	Offline bool `toml:"offline" json:"offline"`
	// Token is the session token stored by "promptforge login"
	Token string `toml:"token" json:"token"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	DefaultTool  string `toml:"default_tool" json:"default_tool"`
	DefaultStyle string `toml:"default_style" json:"default_style"`
	// Mouse enables click handling for the dropdowns
	Mouse bool `toml:"mouse" json:"mouse"`
	// Theme is "auto", "dark", or "light"
	Theme string `toml:"theme" json:"theme"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is a zerolog level name: debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// Format is "console" or "json"
	Format string `toml:"format" json:"format"`
	// File is the log destination (empty = stderr, or ~/.promptforge/promptforge.log for the TUI)
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1",

		Server: ServerConfig{
			Addr:               "127.0.0.1:5000",
			TokenTTLHours:      24 * 7,
			CORSOrigins:        []string{"http://localhost:5173"},
			RateLimitPerMinute: 120,
		},

		Client: ClientConfig{
			APIURL:      "http://127.0.0.1:5000",
			TimeoutSecs: 30,
		},

		UI: UIConfig{
			DefaultTool:  prompt.ToolChatGPT,
			DefaultStyle: prompt.StyleCreative,
			Mouse:        true,
			Theme:        "auto",
		},

		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the promptforge configuration directory path.
// PROMPTFORGE_HOME overrides the default ~/.promptforge.
func ConfigDir() (string, error) {
	if dir := os.Getenv("PROMPTFORGE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".promptforge"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DataPath joins name onto the config directory.
func DataPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens config files to 0600; they may hold a
// session token and the JWT secret.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults. A file that fails
// to parse is reported alongside the default config.
func Load() (*Config, error) {
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			cfg := Default()
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			cfg := Default()
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// finish applies env overrides, defaults, and validation.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	_ = ensureSecurePermissions(path)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	_ = ensureSecurePermissions(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file. The format is chosen
// by extension (.json, otherwise TOML).
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default TOML location.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with a header comment. The file is written
// atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# promptforge configuration file")
	fmt.Fprintln(&buf, "# Generated by promptforge - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, data, 0600)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Server.TokenTTLHours < 1 {
		errs = append(errs, ValidationError{
			Field:   "server.token_ttl_hours",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Server.TokenTTLHours),
		})
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_limit_per_minute",
			Message: "must not be negative",
		})
	}
	if c.Server.JWTSecret != "" && len(c.Server.JWTSecret) < 16 {
		errs = append(errs, ValidationError{
			Field:   "server.jwt_secret",
			Message: "must be at least 16 characters",
		})
	}

	if u, err := url.Parse(c.Client.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "client.api_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", c.Client.APIURL),
		})
	}
	if c.Client.TimeoutSecs < 1 || c.Client.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "client.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.Client.TimeoutSecs),
		})
	}

	if !prompt.IsKnownTool(c.UI.DefaultTool) {
		errs = append(errs, ValidationError{
			Field:   "ui.default_tool",
			Message: fmt.Sprintf("unknown tool '%s'", c.UI.DefaultTool),
		})
	}
	if !prompt.IsKnownStyle(c.UI.DefaultStyle) {
		errs = append(errs, ValidationError{
			Field:   "ui.default_style",
			Message: fmt.Sprintf("unknown style '%s'", c.UI.DefaultStyle),
		})
	}
	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}

	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s'", c.Log.Level),
		})
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be console or json", c.Log.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values left by partial config files.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.TokenTTLHours == 0 {
		c.Server.TokenTTLHours = d.Server.TokenTTLHours
	}
	if c.Client.APIURL == "" {
		c.Client.APIURL = d.Client.APIURL
	}
	c.Client.APIURL = strings.TrimRight(c.Client.APIURL, "/")
	if c.Client.TimeoutSecs == 0 {
		c.Client.TimeoutSecs = d.Client.TimeoutSecs
	}
	if c.UI.DefaultTool == "" {
		c.UI.DefaultTool = d.UI.DefaultTool
	}
	if c.UI.DefaultStyle == "" {
		c.UI.DefaultStyle = d.UI.DefaultStyle
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - PROMPTFORGE_API_URL: overrides client.api_url
//   - PROMPTFORGE_ADDR: overrides server.addr
//   - PROMPTFORGE_DB: overrides server.db_path
//   - PROMPTFORGE_JWT_SECRET: overrides server.jwt_secret
//   - PROMPTFORGE_TEMPLATES: overrides server.templates_path
//   - PROMPTFORGE_OFFLINE: "1" or "true" renders prompts locally only
//   - PROMPTFORGE_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PROMPTFORGE_API_URL"); v != "" {
		c.Client.APIURL = v
	}
	if v := os.Getenv("PROMPTFORGE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PROMPTFORGE_DB"); v != "" {
		c.Server.DBPath = v
	}
	if v := os.Getenv("PROMPTFORGE_JWT_SECRET"); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv("PROMPTFORGE_TEMPLATES"); v != "" {
		c.Server.TemplatesPath = v
	}
	if v := os.Getenv("PROMPTFORGE_OFFLINE"); v != "" {
		b, err := strconv.ParseBool(v)
		c.Client.Offline = err == nil && b
	}
	if v := os.Getenv("PROMPTFORGE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// ResolveDBPath returns Server.DBPath or the default database location.
func (c *Config) ResolveDBPath() (string, error) {
	if c.Server.DBPath != "" {
		return c.Server.DBPath, nil
	}
	return DataPath("promptforge.db")
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	return &clone
}

// String renders the config as TOML with the session token and JWT secret
// masked.
func (c *Config) String() string {
	masked := c.Clone()
	if masked.Client.Token != "" {
		masked.Client.Token = "********"
	}
	if masked.Server.JWTSecret != "" {
		masked.Server.JWTSecret = "********"
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(masked); err != nil {
		return fmt.Sprintf("<config encode error: %v>", err)
	}
	return buf.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
