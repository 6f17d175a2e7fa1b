package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
)

func TestRun_UnknownCommandPrintsUsageBeforeConfig(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MIGRATIONS_DIR", "/does/not/exist")

	err := run(logging.NewNop(), "upp", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "upp"`)
}

func TestRun_KnownCommandRequiresDBURL(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MIGRATIONS_DIR", "")
	t.Setenv("MIGRATIONS_PATH", "")

	err := run(logging.NewNop(), "up", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_URL is required")
}
