package migrate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	seen := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		require.True(t, strings.HasSuffix(name, ".sql"), name)
		prefix, _, ok := strings.Cut(name, "_")
		require.True(t, ok, "migration %s lacks a version prefix", name)
		assert.False(t, seen[prefix], "duplicate migration version %s", prefix)
		seen[prefix] = true
	}

	body, err := migrationsFS.ReadFile("migrations/0003_embeddings.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "vector(1536)")
}
