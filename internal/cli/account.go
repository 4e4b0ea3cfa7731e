// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/promptforge/internal/client"
)

// accountInput holds credentials from flags; missing ones are prompted for.
type accountInput struct {
	username string
	email    string
}

func (e *env) promptLine(label, current string) (string, error) {
	if current != "" {
		return current, nil
	}
	fmt.Fprint(e.errOut, label)
	line, err := readLine(e.in)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}

func (e *env) reportSession(s *client.Session, verb string) error {
	if err := e.saveToken(s.Token); err != nil {
		return fmt.Errorf("%s, but the token could not be saved: %w", verb, err)
	}
	e.logger.Info().Int64("user_id", s.User.ID).Msg("SESSION_STORED")
	if e.jsonOut {
		return writeJSON(e.out, s.User)
	}
	fmt.Fprintf(e.out, "%s as %s\n", SuccessStyle.Render(verb), s.User.Username)
	return nil
}

// =============================================================================
// LOGIN
// =============================================================================

func newLoginCmd(e *env) *cobra.Command {
	in := &accountInput{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), e, in)
		},
	}
	cmd.Flags().StringVar(&in.email, "email", "", "account email")
	return cmd
}

func runLogin(ctx context.Context, e *env, in *accountInput) error {
	c, err := e.requireClient()
	if err != nil {
		return err
	}
	email, err := e.promptLine("Email: ", in.email)
	if err != nil {
		return err
	}
	password, err := readPassword(e.errOut, e.in, "Password: ")
	if err != nil {
		return err
	}
	if email == "" || password == "" {
		return NewValidationErrorWithExample("credentials", "", "email and password are required", "promptforge login --email you@example.com")
	}

	session, err := c.Login(ctx, email, password)
	if err != nil {
		return loginError(err, "Login failed")
	}
	return e.reportSession(session, "Logged in")
}

// loginError keeps the server's message and the sentinel for exit codes.
func loginError(err error, fallback string) error {
	msg := client.ErrorMessage(err, fallback)
	if errors.Is(err, client.ErrUnauthorized) || errors.Is(err, client.ErrNetwork) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return errors.New(msg)
}

// =============================================================================
// REGISTER
// =============================================================================

func newRegisterCmd(e *env) *cobra.Command {
	in := &accountInput{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), e, in)
		},
	}
	cmd.Flags().StringVar(&in.username, "username", "", "username")
	cmd.Flags().StringVar(&in.email, "email", "", "account email")
	return cmd
}

func runRegister(ctx context.Context, e *env, in *accountInput) error {
	c, err := e.requireClient()
	if err != nil {
		return err
	}
	username, err := e.promptLine("Username: ", in.username)
	if err != nil {
		return err
	}
	email, err := e.promptLine("Email: ", in.email)
	if err != nil {
		return err
	}
	password, err := readPassword(e.errOut, e.in, "Password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword(e.errOut, e.in, "Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return &ValidationError{Field: "password", Reason: "Passwords do not match"}
	}

	session, err := c.Register(ctx, username, email, password)
	if err != nil {
		return loginError(err, "Registration failed")
	}
	return e.reportSession(session, "Registered")
}

// =============================================================================
// LOGOUT AND WHOAMI
// =============================================================================

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.Client.Token == "" {
				fmt.Fprintln(e.out, DimStyle.Render("Not logged in"))
				return nil
			}
			if !e.cfg.Client.Offline {
				// The token is forgotten locally even when the API is down.
				if err := e.newClient().Logout(cmd.Context()); err != nil {
					e.logger.Warn().Err(err).Msg("LOGOUT_FAILED")
				}
			}
			if err := e.saveToken(""); err != nil {
				return err
			}
			fmt.Fprintln(e.out, SuccessStyle.Render("Logged out"))
			return nil
		},
	}
}

func newWhoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.requireClient()
			if err != nil {
				return err
			}
			if c.Token() == "" {
				return ErrNotLoggedIn
			}
			user, err := c.Me(cmd.Context())
			if err != nil {
				if errors.Is(err, client.ErrUnauthorized) {
					return fmt.Errorf("session expired: %w", ErrNotLoggedIn)
				}
				return err
			}
			if e.jsonOut {
				return writeJSON(e.out, user)
			}
			fmt.Fprintln(e.out, RenderField("Username", user.Username))
			fmt.Fprintln(e.out, RenderField("Email", user.Email))
			fmt.Fprintln(e.out, RenderField("API", c.BaseURL()))
			return nil
		},
	}
}
