package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/homesync/internal/launcher"
	"github.com/roach88/homesync/internal/stream"
)

func TestOpen_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.PutItem(ctx, launcher.ItemRow{ID: 1, Modified: 10, Title: "Clock"}))
	require.NoError(t, s.WriteEntity(ctx, stream.Value("k", []byte{1})))
	require.NoError(t, s.Close())

	for i := 0; i < 2; i++ {
		s, err = Open(path)
		require.NoError(t, err, "reopen %d", i)
		require.NoError(t, s.Close())
	}

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	it, err := s.ReadItem(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Clock", it.Title)

	entities, err := s.ReadEntities(ctx)
	require.NoError(t, err)
	assert.Len(t, entities, 1)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/launcher.db")
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"user_version", fmt.Sprint(schemaVersion)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.pragma(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMigrations_CreateIndexes(t *testing.T) {
	s := createTestStore(t)

	for _, name := range []string{"idx_favorites_modified", "idx_favorites_item_type"} {
		var got string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", name,
		).Scan(&got)
		assert.NoError(t, err, name)
	}
}

func TestMigrations_ResumeFromOldVersion(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec("DROP INDEX idx_favorites_item_type")
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)

	require.NoError(t, migrate(s.db))

	v, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprint(schemaVersion), v)

	var got string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name='idx_favorites_item_type'").Scan(&got)
	assert.NoError(t, err)
}
