package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mapgrove/mapsync/internal/adapter"
	"github.com/mapgrove/mapsync/internal/config"
	"github.com/mapgrove/mapsync/internal/logger"
	"github.com/mapgrove/mapsync/internal/mock"
	"github.com/mapgrove/mapsync/internal/store"
	"github.com/mapgrove/mapsync/models"
)

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func newTestStorages(t *testing.T) *store.Storages {
	t.Helper()

	cfg := config.Storage{DB: config.DB{DSN: filepath.Join(t.TempDir(), "mapsync-test.db")}}
	storages, err := store.NewStorages(cfg, logger.Nop())
	require.NoError(t, err)

	return storages
}

func seedMap(t *testing.T, storages *store.Storages, m models.Map) {
	t.Helper()

	err := storages.Vaults.SaveVault(context.Background(), models.Vault{ID: m.VaultID, Name: m.VaultID})
	require.NoError(t, err)
	require.NoError(t, storages.Maps.SaveMap(context.Background(), m))
}

func dirtyMap(vaultID, mapID string, modifiedAt time.Time) models.Map {
	return models.Map{
		ID:      mapID,
		VaultID: vaultID,
		Title:   "local title",
		Nodes: []models.Node{
			{ID: mapID + "-n1", MapID: mapID, Title: "local node", ModifiedAt: modifiedAt},
		},
		LocalModifiedAt: modifiedAt,
		RemoteRevision:  "rev-old",
	}
}

func remotePayload(mapID, title string, modifiedAt time.Time, revision string) models.MapPayload {
	return models.MapPayload{
		Map: models.Map{
			ID:    mapID,
			Title: title,
			Nodes: []models.Node{
				{ID: mapID + "-n1", MapID: mapID, Title: "remote node", ModifiedAt: modifiedAt},
			},
		},
		ModifiedTime: modifiedAt,
		Revision:     revision,
	}
}

// ─────────────────────────────────────────────
// Resolve
// ─────────────────────────────────────────────

func TestResolve_LocalNewerPushes(t *testing.T) {
	ctrl := gomock.NewController(t)
	storages := newTestStorages(t)
	remote := mock.NewMockRemoteAdapter(ctrl)
	events := NewEventBus()
	statusCh := events.SubscribeStatus()
	conflictCh := events.SubscribeConflicts()

	now := time.Now().UTC().Truncate(time.Second)
	local := dirtyMap("v1", "m1", now)
	seedMap(t, storages, local)

	remote.EXPECT().
		ReadFile(gomock.Any(), "v1", "m1").
		Return(remotePayload("m1", "remote title", now.Add(-time.Hour), "rev-remote"), nil)
	remote.EXPECT().
		WriteFile(gomock.Any(), "v1", "m1", gomock.Any(), "rev-remote").
		Return("rev-new", nil)

	r := NewConflictResolver(storages, remote, events, logger.Nop())
	require.NoError(t, r.Resolve(context.Background(), local))

	got, err := storages.Maps.GetMap(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "local title", got.Title)
	assert.Equal(t, "rev-new", got.RemoteRevision)
	assert.False(t, got.Dirty())

	ev := <-conflictCh
	assert.Equal(t, models.WinnerLocal, ev.Winner)
	assert.Empty(t, ev.BackupRef)

	status := <-statusCh
	assert.Equal(t, models.StatusClean, status.Status)

	entries, err := storages.Backups.ListResolutions(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.WinnerLocal, entries[0].Winner)
}

func TestResolve_RemoteNewerBacksUpAndOverwrites(t *testing.T) {
	ctrl := gomock.NewController(t)
	storages := newTestStorages(t)
	remote := mock.NewMockRemoteAdapter(ctrl)
	events := NewEventBus()
	conflictCh := events.SubscribeConflicts()

	now := time.Now().UTC().Truncate(time.Second)
	local := dirtyMap("v1", "m1", now.Add(-time.Hour))
	seedMap(t, storages, local)

	remote.EXPECT().
		ReadFile(gomock.Any(), "v1", "m1").
		Return(remotePayload("m1", "remote title", now, "rev-remote"), nil)

	r := NewConflictResolver(storages, remote, events, logger.Nop())
	require.NoError(t, r.Resolve(context.Background(), local))

	got, err := storages.Maps.GetMap(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "remote title", got.Title)
	assert.Equal(t, "rev-remote", got.RemoteRevision)
	assert.False(t, got.Dirty())

	ev := <-conflictCh
	assert.Equal(t, models.WinnerRemote, ev.Winner)
	require.NotEmpty(t, ev.BackupRef)

	// The losing local content must stay recoverable.
	backup, err := storages.Backups.GetBackup(context.Background(), ev.BackupRef)
	require.NoError(t, err)
	assert.Equal(t, "local title", backup.Payload.Title)
	require.Len(t, backup.Payload.Nodes, 1)
	assert.Equal(t, "local node", backup.Payload.Nodes[0].Title)
}

func TestResolve_TieGoesToRemote(t *testing.T) {
	ctrl := gomock.NewController(t)
	storages := newTestStorages(t)
	remote := mock.NewMockRemoteAdapter(ctrl)
	events := NewEventBus()

	now := time.Now().UTC().Truncate(time.Second)
	local := dirtyMap("v1", "m1", now)
	seedMap(t, storages, local)

	remote.EXPECT().
		ReadFile(gomock.Any(), "v1", "m1").
		Return(remotePayload("m1", "remote title", now, "rev-remote"), nil)

	r := NewConflictResolver(storages, remote, events, logger.Nop())
	require.NoError(t, r.Resolve(context.Background(), local))

	got, err := storages.Maps.GetMap(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "remote title", got.Title)
}

func TestResolve_RemoteGonePushesLocal(t *testing.T) {
	ctrl := gomock.NewController(t)
	storages := newTestStorages(t)
	remote := mock.NewMockRemoteAdapter(ctrl)
	events := NewEventBus()

	now := time.Now().UTC().Truncate(time.Second)
	local := dirtyMap("v1", "m1", now)
	seedMap(t, storages, local)

	remote.EXPECT().
		ReadFile(gomock.Any(), "v1", "m1").
		Return(models.MapPayload{}, adapter.ErrNotFound)
	remote.EXPECT().
		WriteFile(gomock.Any(), "v1", "m1", gomock.Any(), "").
		Return("rev-new", nil)

	r := NewConflictResolver(storages, remote, events, logger.Nop())
	require.NoError(t, r.Resolve(context.Background(), local))

	got, err := storages.Maps.GetMap(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "rev-new", got.RemoteRevision)
	assert.False(t, got.Dirty())
}
