// Package pgxutil bridges database/sql pools to pgx-native connections and transactions.
package pgxutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// SQLTxConfig pairs the callback for WithSQLTx with its transaction options.
type SQLTxConfig struct {
	Opts *sql.TxOptions
	Fn   func(*sql.Tx) error
}

// TxConfig pairs the callback for WithPgxTx with its transaction options.
type TxConfig struct {
	Opts *sql.TxOptions
	Fn   func(pgx.Tx) error
}

// WithSQLTx runs the given function within a database/sql transaction.
func WithSQLTx(ctx context.Context, db *sql.DB, cfg SQLTxConfig) (err error) {
	tx, err := db.BeginTx(ctx, cfg.Opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rerr))
		}
	}()
	if err = cfg.Fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ToPgxTxOptions converts sql.TxOptions to pgx.TxOptions.
func ToPgxTxOptions(opts *sql.TxOptions) pgx.TxOptions {
	var pgxOpts pgx.TxOptions
	if opts == nil {
		return pgxOpts
	}
	pgxOpts.IsoLevel = ToPgxIsoLevel(opts.Isolation)
	pgxOpts.AccessMode = ToPgxAccessMode(opts.ReadOnly)
	return pgxOpts
}

func ToPgxIsoLevel(level sql.IsolationLevel) pgx.TxIsoLevel {
	switch level {
	case sql.LevelDefault:
		return pgx.TxIsoLevel("") // server default
	case sql.LevelSerializable, sql.LevelLinearizable:
		return pgx.Serializable
	case sql.LevelRepeatableRead, sql.LevelSnapshot:
		return pgx.RepeatableRead
	case sql.LevelReadCommitted, sql.LevelWriteCommitted:
		return pgx.ReadCommitted
	case sql.LevelReadUncommitted:
		return pgx.ReadUncommitted
	default:
		return pgx.TxIsoLevel("")
	}
}

func ToPgxAccessMode(readOnly bool) pgx.TxAccessMode {
	if readOnly {
		return pgx.ReadOnly
	}
	return pgx.ReadWrite
}

// WithPgxConn acquires a *pgx.Conn via the stdlib bridge and executes fn with it.
func WithPgxConn(ctx context.Context, db *sql.DB, fn func(*pgx.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(dc any) error {
		std, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		pgxConn := std.Conn()
		return fn(pgxConn)
	})
}

// WithPgxTx runs the given function within a pgx transaction using the stdlib bridge.
func WithPgxTx(ctx context.Context, db *sql.DB, cfg TxConfig) error {
	return WithPgxConn(ctx, db, func(pgxConn *pgx.Conn) error {
		tx, err := pgxConn.BeginTx(ctx, ToPgxTxOptions(cfg.Opts))
		if err != nil {
			return fmt.Errorf("begin pgx tx: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()
		if fnErr := cfg.Fn(tx); fnErr != nil {
			return fnErr
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			return fmt.Errorf("commit pgx tx: %w", commitErr)
		}
		return nil
	})
}

// AdvisoryKey namespaces a two-part transaction-scoped advisory lock.
type AdvisoryKey struct {
	Major int32
	Minor int32
}

// TryAdvisoryXactLock attempts pg_try_advisory_xact_lock within tx.
// The lock is released when tx ends. A false result means another session holds it.
func TryAdvisoryXactLock(ctx context.Context, tx *sql.Tx, key AdvisoryKey) (bool, error) {
	var locked bool
	if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1::integer, $2::integer)", key.Major, key.Minor).Scan(&locked); err != nil {
		return false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	return locked, nil
}

// LockedExec runs query inside a new transaction guarded by key and returns rows affected.
// When the lock is held elsewhere the query is skipped and 0 is returned.
func LockedExec(ctx context.Context, db *sql.DB, key AdvisoryKey, query string, args ...any) (int64, error) {
	var affected int64
	err := WithSQLTx(ctx, db, SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			locked, err := TryAdvisoryXactLock(ctx, tx, key)
			if err != nil || !locked {
				return err
			}
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return err
			}
			affected, err = res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}
