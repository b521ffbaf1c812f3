package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTestDBConfig(t *testing.T) {
	t.Run("defaults to local test database port 55432", func(t *testing.T) {
		for _, key := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME", "TEST_DB_SSL_MODE"} {
			t.Setenv(key, "")
		}

		cfg := DefaultTestDBConfig()
		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, "55432", cfg.Port)
		assert.Equal(t, "inferq", cfg.User)
		assert.Equal(t, "inferq", cfg.DBName)
		assert.Equal(t, "disable", cfg.SSLMode)
	})

	t.Run("respects TEST_DB_PORT environment variable", func(t *testing.T) {
		t.Setenv("TEST_DB_PORT", "5432")
		t.Setenv("TEST_DB_HOST", "postgres")

		cfg := DefaultTestDBConfig()
		assert.Equal(t, "5432", cfg.Port)
		assert.Equal(t, "postgres", cfg.Host)
	})
}

func TestTestDBConfigDSN(t *testing.T) {
	cfg := TestDBConfig{Host: "db", Port: "5432", User: "u", Password: "p@ss", DBName: "inferq", SSLMode: "disable"}

	assert.Equal(t, "postgres://u:p%40ss@db:5432/inferq?sslmode=disable", cfg.DSN(""))
	assert.Equal(t, "postgres://u:p%40ss@db:5432/inferq?search_path=t_1%2Cpublic&sslmode=disable", cfg.DSN("t_1"))
}

func TestEnvBool(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", "y"} {
		t.Setenv("INFERQ_TEST_FLAG", v)
		assert.True(t, envBool("INFERQ_TEST_FLAG"), v)
	}
	t.Setenv("INFERQ_TEST_FLAG", "off")
	assert.False(t, envBool("INFERQ_TEST_FLAG"))
}

func TestRunConcurrentPreservesOrder(t *testing.T) {
	boom := errors.New("boom")
	errs := NewConcurrentTestRunner(t).RunConcurrent(
		func() error { return nil },
		func() error { return boom },
	)
	assert.Equal(t, []error{nil, boom}, errs)
}
