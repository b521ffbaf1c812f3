package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/target/inferq/internal/bootstrap"
)

type migrateOptions struct {
	Timeout time.Duration
}

type dbResetOptions struct {
	Timeout     time.Duration
	Yes         bool
	AllowRemote bool
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
	})
}

func runDBReset(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBResetFlags(args)
	if err != nil {
		return err
	}

	pg := cmdCtx.Config.Postgres
	gate := resetGate{
		yes:    opts.Yes,
		target: fmt.Sprintf("database %q on %s:%d", pg.Name, pg.Host, pg.Port),
	}
	if isLikelyRemoteHost(pg.Host) {
		if !opts.AllowRemote {
			return fmt.Errorf("refusing to reset potentially remote database host %q; pass --allow-remote if intended", pg.Host)
		}
		gate.remoteHost = pg.Host
	}
	if confirmErr := confirmAction(gate, "drop and recreate the public schema"); confirmErr != nil {
		return confirmErr
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		for _, stmt := range resetStatements(pg.User) {
			cmdCtx.Logger.DebugContext(ctx, "executing reset statement", "sql", stmt)
			if _, execErr := db.ExecContext(ctx, stmt); execErr != nil {
				return fmt.Errorf("exec %q: %w", stmt, execErr)
			}
		}
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return migrateErr
		}
		cmdCtx.Logger.InfoContext(ctx, "database reset completed", "database", pg.Name)
		return nil
	})
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := newFlagSet("migrate")
	opts := migrateOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration for migrations")
	if err := parseWithTimeout(fs, args, &opts.Timeout); err != nil {
		return migrateOptions{}, err
	}
	return opts, nil
}

func parseDBResetFlags(args []string) (dbResetOptions, error) {
	fs := newFlagSet("db-reset")
	opts := dbResetOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration for the reset")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt (ignored for remote hosts)")
	fs.BoolVar(&opts.AllowRemote, "allow-remote", false, "Permit database hosts that do not look local")
	if err := parseWithTimeout(fs, args, &opts.Timeout); err != nil {
		return dbResetOptions{}, err
	}
	return opts, nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func parseWithTimeout(fs *flag.FlagSet, args []string, timeout *time.Duration) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *timeout <= 0 {
		return errors.New("--timeout must be greater than zero")
	}
	return nil
}

// resetStatements recreates the public schema and re-grants it to the service role.
func resetStatements(user string) []string {
	stmts := []string{
		"DROP SCHEMA public CASCADE",
		"CREATE SCHEMA public",
		"GRANT ALL ON SCHEMA public TO public",
	}
	if u := strings.TrimSpace(user); u != "" && !strings.EqualFold(u, "public") {
		stmts = append(stmts, "GRANT ALL ON SCHEMA public TO "+quoteIdentifier(u))
	}
	return stmts
}

func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func isLikelyRemoteHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	switch {
	case h == "", h == "localhost", strings.HasSuffix(h, ".local"), strings.HasPrefix(h, "/"):
		return false
	}
	if ip := net.ParseIP(h); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}

// resetGate confirms a schema reset. Remote hosts always prompt and require the host name.
type resetGate struct {
	yes        bool
	target     string
	remoteHost string
}

func (g resetGate) IsDryRun() bool { return false }
func (g resetGate) IsYes() bool    { return g.yes && g.remoteHost == "" }
func (g resetGate) GetTarget() string {
	return g.target
}

func (g resetGate) GetWarning() string {
	if g.remoteHost != "" {
		return fmt.Sprintf("WARNING: host %q does not look local. All inferq data will be lost.", g.remoteHost)
	}
	return "WARNING: all inferq data will be lost."
}

func (g resetGate) ExpectedAnswer() string { return g.remoteHost }
