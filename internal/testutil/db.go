// Package testutil provides Postgres and Redis fixtures for tests that need real infrastructure.
// Tests skip when the infrastructure is unreachable unless TEST_REQUIRE_INFRA (or the
// per-store TEST_REQUIRE_DB / TEST_REQUIRE_REDIS) is set.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/target/inferq/internal/migrate"
)

// TestingTB is the subset of testing.TB used by the fixtures.
type TestingTB interface {
	Helper()
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
	Cleanup(func())
}

// TestDBConfig holds connection settings for the test database.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DefaultTestDBConfig reads TEST_DB_* variables. The default port 55432 matches the local
// compose test profile; CI sets TEST_DB_PORT=5432.
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "55432"),
		User:     getEnvOrDefault("TEST_DB_USER", "inferq"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "inferq"),
		DBName:   getEnvOrDefault("TEST_DB_NAME", "inferq"),
		SSLMode:  getEnvOrDefault("TEST_DB_SSL_MODE", "disable"),
	}
}

// DSN renders the config as a postgres URL, optionally pinning search_path to schema.
func (c TestDBConfig) DSN(schema string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.DBName,
	}
	q := url.Values{"sslmode": []string{c.SSLMode}}
	if schema != "" {
		q.Set("search_path", schema+",public")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// SkipIfNoTestDB skips (or fails, when required) if the test database cannot be pinged.
func SkipIfNoTestDB(t TestingTB) {
	t.Helper()

	db, err := sql.Open("pgx", DefaultTestDBConfig().DSN(""))
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = db.PingContext(ctx)
		cancel()
		closeAndLog(t, "probe DB", db)
	}
	if err == nil {
		return
	}
	if requireDB() {
		t.Fatal("test database not available:", err)
	}
	t.Skip("test database not available:", err)
}

// WithAutoDB runs fn against a migrated database. With TEST_DB_EPHEMERAL set each call gets
// its own schema, dropped on cleanup; otherwise the shared database is truncated before and after.
func WithAutoDB(t TestingTB, fn func(*sql.DB)) {
	t.Helper()
	SkipIfNoTestDB(t)

	if envBool("TEST_DB_EPHEMERAL") {
		fn(openEphemeralSchema(t))
		return
	}

	db := openDB(t, "")
	truncateTables(t, db)
	defer func() {
		truncateTables(t, db)
		closeAndLog(t, "test DB", db)
	}()
	fn(db)
}

// appTables lists tables truncated between shared-database tests.
var appTables = []string{"embeddings", "inference_jobs", "messages"}

func truncateTables(t TestingTB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "TRUNCATE "+strings.Join(appTables, ", ")+" CASCADE"); err != nil {
		t.Fatalf("truncate test tables: %v", err)
	}
}

func openDB(t TestingTB, schema string) *sql.DB {
	t.Helper()
	db, err := sql.Open("pgx", DefaultTestDBConfig().DSN(schema))
	if err != nil {
		t.Fatal("open test DB:", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		closeAndLog(t, "test DB", db)
		t.Fatal("ping test DB:", pingErr)
	}
	if migrateErr := migrate.Run(ctx, db); migrateErr != nil {
		closeAndLog(t, "test DB", db)
		t.Fatal("migrate test DB:", migrateErr)
	}
	return db
}

func openEphemeralSchema(t TestingTB) *sql.DB {
	t.Helper()

	admin, err := sql.Open("pgx", DefaultTestDBConfig().DSN(""))
	if err != nil {
		t.Fatal("open admin DB:", err)
	}
	schema := schemaName()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_, err = admin.ExecContext(ctx, "CREATE SCHEMA "+schema)
	cancel()
	if err != nil {
		closeAndLog(t, "admin DB", admin)
		t.Fatalf("create schema %s: %v", schema, err)
	}
	t.Logf("using ephemeral schema %s", schema)

	var db *sql.DB
	t.Cleanup(func() {
		if db != nil {
			closeAndLog(t, "schema DB", db)
		}
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dropCancel()
		if _, dropErr := admin.ExecContext(dropCtx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); dropErr != nil {
			t.Logf("warning: drop schema %s: %v", schema, dropErr)
		}
		closeAndLog(t, "admin DB", admin)
	})

	db = openDB(t, schema)
	db.SetMaxOpenConns(10)
	return db
}

func schemaName() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("t_%d", time.Now().UnixNano())
	}
	return "t_" + hex.EncodeToString(b)
}

func closeAndLog(t TestingTB, name string, closer interface{ Close() error }) {
	if err := closer.Close(); err != nil {
		t.Logf("warning: close %s: %v", name, err)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envBool reports whether key holds a truthy value.
func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }
