// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error display and exit codes for CLI commands.
//
// Commands always return errors; Execute displays them once and maps them
// to an exit code.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/promptforge/internal/client"
	"github.com/jeranaias/promptforge/internal/config"
	"github.com/jeranaias/promptforge/internal/prompt"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates a missing or rejected session
	ExitAuthError = 4
	// ExitNetworkError indicates the API could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason, Example: example}
}

// ErrNotLoggedIn is returned by commands that need a stored session.
var ErrNotLoggedIn = errors.New("not logged in; run 'promptforge login' first")

// ErrOffline is returned by commands that need the API while offline mode is on.
var ErrOffline = errors.New("offline mode is enabled; this command needs the API")

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON when jsonMode is set.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		out := map[string]any{
			"success":    false,
			"error":      err.Error(),
			"exit_code":  GetExitCode(err),
			"error_type": errorType(err),
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

func errorType(err error) string {
	var validationErr *ValidationError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &validationErr):
		return "validation_error"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.Is(err, client.ErrNetwork):
		return "network_error"
	default:
		return "generic_error"
	}
}

// GetExitCode maps an error to an exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var configErrs config.ValidateErrors
	var ttyErr *TTYRequiredError
	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &ttyErr),
		errors.Is(err, prompt.ErrEmptyInput),
		errors.Is(err, prompt.ErrUnknownTool),
		errors.Is(err, prompt.ErrUnknownStyle):
		return ExitUsageError
	case errors.As(err, &configErrs):
		return ExitConfigError
	case errors.Is(err, ErrNotLoggedIn), errors.Is(err, client.ErrUnauthorized):
		return ExitAuthError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.Is(err, client.ErrNetwork), errors.Is(err, ErrOffline):
		return ExitNetworkError
	case errors.Is(err, client.ErrNotFound):
		return ExitNotFoundError
	}
	return ExitGeneralError
}
