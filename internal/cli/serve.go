// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/promptforge/internal/auth"
	"github.com/jeranaias/promptforge/internal/server"
	"github.com/jeranaias/promptforge/internal/store"
)

type serveOptions struct {
	addr          string
	db            string
	secureCookies bool
	watch         bool
}

func newServeCmd(e *env) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the promptforge HTTP API",
		Long: `Run the HTTP API used by the terminal UI and web clients.

The service stores users and saved prompts in SQLite and signs sessions with
server.jwt_secret. Without a configured secret a random one is generated and
sessions end when the process exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, e, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&opts.db, "db", "", "SQLite database path (overrides server.db_path)")
	cmd.Flags().BoolVar(&opts.secureCookies, "secure-cookies", false, "mark the session cookie Secure (HTTPS only)")
	cmd.Flags().BoolVar(&opts.watch, "watch-templates", true, "reload server.templates_path when it changes")
	return cmd
}

// buildServer opens the store and assembles the server from config. The
// returned cleanup closes everything buildServer opened.
func buildServer(e *env, opts *serveOptions) (*server.Server, func(), error) {
	cfg := e.cfg
	addr := cfg.Server.Addr
	if opts.addr != "" {
		addr = opts.addr
	}

	dbPath := opts.db
	if dbPath == "" {
		p, err := cfg.ResolveDBPath()
		if err != nil {
			return nil, nil, err
		}
		dbPath = p
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){func() { _ = st.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	secret := cfg.Server.JWTSecret
	if secret == "" {
		secret, err = auth.GenerateSecret()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		e.logger.Warn().Msg("JWT_SECRET_EPHEMERAL")
	}
	authSvc := auth.NewService(secret,
		auth.WithTokenTTL(time.Duration(cfg.Server.TokenTTLHours)*time.Hour))

	catalog, err := e.loadCatalog()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if opts.watch && cfg.Server.TemplatesPath != "" {
		w, err := catalog.Watch(cfg.Server.TemplatesPath, e.logger)
		if err != nil {
			e.logger.Warn().Err(err).Str("path", cfg.Server.TemplatesPath).Msg("TEMPLATE_WATCH_FAILED")
		} else {
			closers = append(closers, func() { _ = w.Close() })
		}
	}

	// Config uses 0 for "no limit"; the server uses a negative value.
	rate := cfg.Server.RateLimitPerMinute
	if rate == 0 {
		rate = -1
	}

	srv, err := server.New(server.Options{
		Addr:               addr,
		Store:              st,
		Auth:               authSvc,
		Catalog:            catalog,
		Logger:             e.logger,
		CORSOrigins:        cfg.Server.CORSOrigins,
		RateLimitPerMinute: rate,
		Version:            Version,
		SecureCookies:      opts.secureCookies,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return srv, cleanup, nil
}

func runServe(ctx context.Context, e *env, opts *serveOptions) error {
	srv, cleanup, err := buildServer(e, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintf(e.errOut, "%s listening on http://%s\n", TitleStyle.Render("promptforge"), srv.Addr())
	return srv.ListenAndServe(ctx)
}
