package model

import (
	"context"
	"genarchive/internal/config"
	"genarchive/internal/entity"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepository(t *testing.T) Repository {
	t.Helper()
	cfg := &config.Config{DBType: DBTypeSQLite, DBPath: filepath.Join(t.TempDir(), "nested", "history.db")}
	repo, err := InitRepository(cfg)
	require.NoError(t, err)
	require.NotNil(t, repo)
	return repo
}

func TestInitRepositorySkipsEmptyType(t *testing.T) {
	repo, err := InitRepository(&config.Config{})
	assert.NoError(t, err)
	assert.Nil(t, repo)
}

func TestInitRepositoryUnsupportedType(t *testing.T) {
	_, err := InitRepository(&config.Config{DBType: "oracle"})
	assert.EqualError(t, err, "unsupported database type: oracle")
}

func TestReconcileStaleEntries(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	entry := &entity.DbHistoryEntry{Prompt: "Sticker: fox", Model: "m", GenerationType: "sticker-generation", ImageCount: 1}
	require.NoError(t, repo.CreateHistoryEntry(ctx, entry))

	affected, err := ReconcileStaleEntries(ctx, repo, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, affected)

	affected, err = ReconcileStaleEntries(ctx, repo, 0)
	require.NoError(t, err)
	assert.Zero(t, affected)

	affected, err = ReconcileStaleEntries(ctx, repo, -time.Minute)
	require.NoError(t, err)
	assert.Zero(t, affected)

	affected, err = ReconcileStaleEntries(ctx, repo, time.Nanosecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	loaded, err := repo.GetHistoryEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFailed, loaded.Status)
	assert.Equal(t, InterruptedMessage, loaded.Error)

	affected, err = ReconcileStaleEntries(ctx, nil, time.Minute)
	assert.NoError(t, err)
	assert.Zero(t, affected)
}

func TestInitRepositoryReconcilesOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	first, err := InitRepository(&config.Config{DBType: DBTypeSQLite, DBPath: path})
	require.NoError(t, err)
	entry := &entity.DbHistoryEntry{Prompt: "Logo: fox", Model: "m", GenerationType: "logo-generation", ImageCount: 1}
	require.NoError(t, first.CreateHistoryEntry(ctx, entry))

	// 关闭对账时保持原状
	second, err := InitRepository(&config.Config{DBType: DBTypeSQLite, DBPath: path})
	require.NoError(t, err)
	loaded, err := second.GetHistoryEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusGenerating, loaded.Status)

	third, err := InitRepository(&config.Config{DBType: "SQLite", DBPath: path, StaleGeneratingAfter: time.Nanosecond})
	require.NoError(t, err)
	loaded, err = third.GetHistoryEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFailed, loaded.Status)
	assert.Equal(t, InterruptedMessage, loaded.Error)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "datas/a.db?_busy_timeout=5000&_journal_mode=WAL", sqliteDSN("datas/a.db"))
	assert.Equal(t, "file:a.db?cache=shared&_busy_timeout=5000&_journal_mode=WAL", sqliteDSN("file:a.db?cache=shared"))
}
