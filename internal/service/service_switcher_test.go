package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mapgrove/mapsync/internal/logger"
	"github.com/mapgrove/mapsync/internal/mock"
	"github.com/mapgrove/mapsync/internal/store"
	"github.com/mapgrove/mapsync/models"
)

func newTestSwitcher(t *testing.T, storages *store.Storages, remote *mock.MockRemoteAdapter, queue OperationQueue) VaultSwitcher {
	t.Helper()

	locks := NewLockManager(storages.Locks, 2*time.Minute, logger.Nop())
	return NewVaultSwitcher(storages, remote, queue, locks, NewEventBus(), logger.Nop())
}

func TestOpenVault_UnknownVault(t *testing.T) {
	ctrl := gomock.NewController(t)
	storages := newTestStorages(t)
	remote := mock.NewMockRemoteAdapter(ctrl)

	s := newTestSwitcher(t, storages, remote, NewOperationQueue())

	err := s.OpenVault(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrVaultNotFound)
	assert.Equal(t, VaultClosed, s.State("missing"))
}

func TestOpenVault_FirstOpenFullPull(t *testing.T) {
	ctrl := gomock.NewController(t)
	storages := newTestStorages(t)
	remote := mock.NewMockRemoteAdapter(ctrl)
	ctx := context.Background()

	require.NoError(t, storages.Vaults.SaveVault(ctx, models.Vault{ID: "v1", Name: "personal"}))

	now := time.Now().UTC().Truncate(time.Second)
	remote.EXPECT().GetVaultTimestamp(gomock.Any(), "v1").Return(now, nil)
	remote.EXPECT().ListFiles(gomock.Any(), "v1").Return([]models.RemoteFile{
		{FileID: "m1", ModifiedTime: now, Revision: "rev-1"},
		{FileID: "m2", ModifiedTime: now, Revision: "rev-2"},
	}, nil)
	remote.EXPECT().ReadFile(gomock.Any(), "v1", "m1").
		Return(remotePayload("m1", "first", now, "rev-1"), nil)
	remote.EXPECT().ReadFile(gomock.Any(), "v1", "m2").
		Return(remotePayload("m2", "second", now, "rev-2"), nil)

	s := newTestSwitcher(t, storages, remote, NewOperationQueue())
	require.NoError(t, s.OpenVault(ctx, "v1"))

	assert.Equal(t, VaultReady, s.State("v1"))
	assert.Equal(t, "v1", s.ActiveVault())

	maps, err := storages.Maps.ListMaps(ctx, "v1")
	require.NoError(t, err)
	assert.Len(t, maps, 2)

	// Pulled maps are clean and carry the backend revision.
	m1, err := storages.Maps.GetMap(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, m1.Dirty())
	assert.Equal(t, "rev-1", m1.RemoteRevision)

	// Sync bookkeeping recorded; lock released.
	vault, err := storages.Vaults.GetVault(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, vault.LastFullSync.IsZero())
	assert.Equal(t, now, vault.RemoteTimestamp.UTC())

	_, held, err := storages.Locks.GetLock(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestOpenVault_FreshVaultSkipsMergePass(t *testing.T) {
	ctrl := gomock.NewController(t)
	storages := newTestStorages(t)
	remote := mock.NewMockRemoteAdapter(ctrl)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, storages.Vaults.SaveVault(ctx, models.Vault{
		ID:              "v1",
		Name:            "personal",
		LastFullSync:    now,
		RemoteTimestamp: now,
	}))

	// Backend unchanged: no ListFiles, no ReadFile.
	remote.EXPECT().GetVaultTimestamp(gomock.Any(), "v1").Return(now, nil)

	s := newTestSwitcher(t, storages, remote, NewOperationQueue())
	require.NoError(t, s.OpenVault(ctx, "v1"))
	assert.Equal(t, VaultReady, s.State("v1"))
}

func TestOpenVault_StaleVaultSelectiveMerge(t *testing.T) {
	ctrl := gomock.NewController(t)
	storages := newTestStorages(t)
	remote := mock.NewMockRemoteAdapter(ctrl)
	queue := NewOperationQueue()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	earlier := now.Add(-time.Hour)

	require.NoError(t, storages.Vaults.SaveVault(ctx, models.Vault{
		ID:              "v1",
		Name:            "personal",
		LastFullSync:    earlier,
		RemoteTimestamp: earlier,
	}))

	// unchanged: same revision locally and remotely, must not be re-read.
	unchanged := dirtyMap("v1", "unchanged", earlier)
	unchanged.RemoteRevision = "rev-same"
	require.NoError(t, storages.Maps.SaveMap(ctx, unchanged))
	require.NoError(t, storages.Maps.MarkSynced(ctx, "unchanged", earlier, "rev-same"))

	// moved: clean locally but the backend has a newer revision.
	moved := dirtyMap("v1", "moved", earlier)
	require.NoError(t, storages.Maps.SaveMap(ctx, moved))
	require.NoError(t, storages.Maps.MarkSynced(ctx, "moved", earlier, "rev-1"))

	// edited: dirty locally and diverged remotely; kept and queued.
	edited := dirtyMap("v1", "edited", now)
	require.NoError(t, storages.Maps.SaveMap(ctx, edited))

	remote.EXPECT().GetVaultTimestamp(gomock.Any(), "v1").Return(now, nil)
	remote.EXPECT().ListFiles(gomock.Any(), "v1").Return([]models.RemoteFile{
		{FileID: "unchanged", ModifiedTime: earlier, Revision: "rev-same"},
		{FileID: "moved", ModifiedTime: now, Revision: "rev-2"},
		{FileID: "edited", ModifiedTime: now, Revision: "rev-theirs"},
	}, nil)
	remote.EXPECT().ReadFile(gomock.Any(), "v1", "moved").
		Return(remotePayload("moved", "their update", now, "rev-2"), nil)

	s := newTestSwitcher(t, storages, remote, queue)
	require.NoError(t, s.OpenVault(ctx, "v1"))

	got, err := storages.Maps.GetMap(ctx, "moved")
	require.NoError(t, err)
	assert.Equal(t, "their update", got.Title)
	assert.Equal(t, "rev-2", got.RemoteRevision)

	// The dirty map kept its local edits and went into the queue.
	kept, err := storages.Maps.GetMap(ctx, "edited")
	require.NoError(t, err)
	assert.Equal(t, "local title", kept.Title)
	assert.True(t, kept.Dirty())

	ready := queue.DequeueReady(10, time.Now().UTC())
	require.Len(t, ready, 1)
	assert.Equal(t, "edited", ready[0].Op.MapID)
}

func TestOpenVault_LockedByAnotherServesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	storages := newTestStorages(t)
	remote := mock.NewMockRemoteAdapter(ctrl)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	earlier := now.Add(-time.Hour)
	require.NoError(t, storages.Vaults.SaveVault(ctx, models.Vault{
		ID:              "v1",
		Name:            "personal",
		LastFullSync:    earlier,
		RemoteTimestamp: earlier,
	}))

	// Another device holds the vault lock.
	require.NoError(t, storages.Locks.AcquireLock(ctx, models.Lock{
		LockID:     "other-device",
		VaultID:    "v1",
		AcquiredAt: now,
		ExpiresAt:  now.Add(time.Minute),
		Operation:  "full-sync",
	}))

	remote.EXPECT().GetVaultTimestamp(gomock.Any(), "v1").Return(now, nil)

	s := newTestSwitcher(t, storages, remote, NewOperationQueue())
	require.NoError(t, s.OpenVault(ctx, "v1"))
	assert.Equal(t, VaultReady, s.State("v1"))
}

func TestOpenVault_SwitchEvictsPreviousVault(t *testing.T) {
	ctrl := gomock.NewController(t)
	storages := newTestStorages(t)
	remote := mock.NewMockRemoteAdapter(ctrl)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	for _, id := range []string{"v1", "v2"} {
		require.NoError(t, storages.Vaults.SaveVault(ctx, models.Vault{
			ID:              id,
			Name:            id,
			LastFullSync:    now,
			RemoteTimestamp: now,
		}))
	}

	remote.EXPECT().GetVaultTimestamp(gomock.Any(), "v1").Return(now, nil)
	remote.EXPECT().GetVaultTimestamp(gomock.Any(), "v2").Return(now, nil)

	s := newTestSwitcher(t, storages, remote, NewOperationQueue())
	require.NoError(t, s.OpenVault(ctx, "v1"))
	require.NoError(t, s.OpenVault(ctx, "v2"))

	assert.Equal(t, "v2", s.ActiveVault())
	assert.Equal(t, VaultClosed, s.State("v1"))
	assert.Equal(t, VaultReady, s.State("v2"))
}

func TestOpenVault_FirstPullFailureClosesVault(t *testing.T) {
	ctrl := gomock.NewController(t)
	storages := newTestStorages(t)
	remote := mock.NewMockRemoteAdapter(ctrl)
	ctx := context.Background()

	require.NoError(t, storages.Vaults.SaveVault(ctx, models.Vault{ID: "v1", Name: "personal"}))

	remote.EXPECT().GetVaultTimestamp(gomock.Any(), "v1").
		Return(time.Time{}, assert.AnError)

	s := newTestSwitcher(t, storages, remote, NewOperationQueue())
	err := s.OpenVault(ctx, "v1")
	require.Error(t, err)
	assert.Equal(t, VaultClosed, s.State("v1"))
	assert.Empty(t, s.ActiveVault())
}

func TestOpenVault_CachedVaultSurvivesOffline(t *testing.T) {
	ctrl := gomock.NewController(t)
	storages := newTestStorages(t)
	remote := mock.NewMockRemoteAdapter(ctrl)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, storages.Vaults.SaveVault(ctx, models.Vault{
		ID:              "v1",
		Name:            "personal",
		LastFullSync:    now,
		RemoteTimestamp: now,
	}))

	remote.EXPECT().GetVaultTimestamp(gomock.Any(), "v1").
		Return(time.Time{}, assert.AnError)

	s := newTestSwitcher(t, storages, remote, NewOperationQueue())
	require.NoError(t, s.OpenVault(ctx, "v1"), "cached vault must open despite the backend being unreachable")
	assert.Equal(t, VaultReady, s.State("v1"))
}
