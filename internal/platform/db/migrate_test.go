package db

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	body, err := fs.ReadFile(migrationsFS, "migrations/00001_init.sql")
	require.NoError(t, err)
	sql := string(body)
	require.Contains(t, sql, "-- +goose Up")
	require.Contains(t, sql, "-- +goose Down")
	require.True(t, strings.Contains(sql, "users_email_key"))
}

func TestMigrateRejectsUnknownCommand(t *testing.T) {
	err := Migrate(context.Background(), "postgres://unused", "sideways", nil)
	require.ErrorContains(t, err, "unknown migrate command")
}
