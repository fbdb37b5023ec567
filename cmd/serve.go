package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/desertthunder/movli/internal/shared"
	"github.com/desertthunder/movli/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the reference watchlist API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if addr := cmd.String("addr"); addr != "" {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("%w: --addr: %v", shared.ErrInvalidFlag, err)
		}
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("%w: --addr port %q", shared.ErrInvalidFlag, port)
		}
		cfg.Host, cfg.Port = host, n
	}

	var db *sql.DB
	var err error
	if cmd.Bool("migrate") {
		db, err = shared.OpenDatabase(r.config.Database)
	} else {
		db, err = r.openDatabase()
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	srv := web.New(cfg, db, shared.WithLogger(r.logger, "component", "web"))
	if !srv.Authenticator().Verified() {
		r.logger.Warn("server.jwt_secret is empty, accepting unverified tokens")
	}

	r.writePlain("→ Serving watchlist API on http://%s (Ctrl+C to stop)\n", cfg.Addr())
	return srv.ListenAndServe(ctx)
}

// ServeToken signs a development token the reference server accepts.
func (r *Runner) ServeToken(ctx context.Context, cmd *cli.Command) error {
	auth := web.NewAuthenticator(r.config.Server.JWTSecret)
	if !auth.Verified() {
		return fmt.Errorf("%w: server.jwt_secret must be set in %s", shared.ErrInvalidConfig, r.configLabel())
	}

	token, err := auth.Issue(cmd.String("uid"), cmd.String("email"), cmd.String("name"), cmd.Duration("ttl"))
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", token)
}
