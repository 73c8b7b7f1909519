package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.Len(t, files, 3)

	for _, f := range files {
		body, err := fs.ReadFile(migrations, f)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(body), "-- +goose Up"), f)
		assert.True(t, strings.Contains(string(body), "-- +goose Down"), f)
	}
}
