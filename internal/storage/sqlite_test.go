package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bantrap/internal/models"
)

func TestSQLiteBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bantrap.db")

	b, err := OpenSQLite(path)
	require.NoError(t, err)

	snapshot := map[string]models.CommunityConfig{
		"111": {CommunityID: "111", TrapChannelID: "222"},
	}
	require.NoError(t, b.Persist(ctx, snapshot, "111"))

	snapshot["111"] = models.CommunityConfig{CommunityID: "111", TrapChannelID: "222", LogChannelID: "333"}
	snapshot["444"] = models.CommunityConfig{CommunityID: "444", LogChannelID: "555"}
	require.NoError(t, b.Persist(ctx, snapshot, "111"))
	require.NoError(t, b.Persist(ctx, snapshot, "444"))
	require.NoError(t, b.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for id, want := range snapshot {
		assert.True(t, want.SameChannels(got[id]), "community %s: %+v", id, got[id])
	}
}

func TestSQLiteBackendClearedRowStays(t *testing.T) {
	ctx := context.Background()
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "bantrap.db"))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Persist(ctx, map[string]models.CommunityConfig{
		"111": {CommunityID: "111", TrapChannelID: "222"},
	}, "111"))
	require.NoError(t, b.Persist(ctx, map[string]models.CommunityConfig{
		"111": {CommunityID: "111"},
	}, "111"))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got["111"].IsEmpty())
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("  ")
	assert.Error(t, err)
}
