package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapgrove/mapsync/internal/config"
	"github.com/mapgrove/mapsync/internal/logger"
	"github.com/mapgrove/mapsync/models"
)

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func newTestStorages(t *testing.T) *Storages {
	t.Helper()

	cfg := config.Storage{DB: config.DB{DSN: filepath.Join(t.TempDir(), "mapsync-test.db")}}
	storages, err := NewStorages(cfg, logger.Nop())
	require.NoError(t, err)

	return storages
}

func saveTestVault(t *testing.T, s *Storages, vaultID string) {
	t.Helper()

	err := s.Vaults.SaveVault(context.Background(), models.Vault{
		ID:   vaultID,
		Name: "vault " + vaultID,
	})
	require.NoError(t, err)
}

func testMap(vaultID, mapID string) models.Map {
	now := time.Now().UTC().Truncate(time.Second)
	rootID := mapID + "-root"
	return models.Map{
		ID:      mapID,
		VaultID: vaultID,
		Title:   "trip planning",
		Nodes: []models.Node{
			{ID: rootID, MapID: mapID, Title: "root", Content: "overview", Order: 0, ModifiedAt: now},
			{ID: mapID + "-child", MapID: mapID, ParentID: &rootID, Title: "flights", Content: "compare fares", Order: 1, ModifiedAt: now},
		},
		Edges:           []models.Edge{{FromID: rootID, ToID: mapID + "-child", Label: "next"}},
		LocalModifiedAt: now,
	}
}

// ─────────────────────────────────────────────
// SaveMap / GetMap
// ─────────────────────────────────────────────

func TestSaveMap_RoundTrip(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()
	saveTestVault(t, s, "v1")

	want := testMap("v1", "m1")
	require.NoError(t, s.Maps.SaveMap(ctx, want))

	got, err := s.Maps.GetMap(ctx, "m1")
	require.NoError(t, err)

	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.VaultID, got.VaultID)
	assert.Len(t, got.Nodes, 2)
	assert.Len(t, got.Edges, 1)
	assert.Equal(t, "next", got.Edges[0].Label)
	assert.True(t, got.Dirty(), "freshly saved map should be dirty")
}

func TestSaveMap_ReplacesNodes(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()
	saveTestVault(t, s, "v1")

	m := testMap("v1", "m1")
	require.NoError(t, s.Maps.SaveMap(ctx, m))

	m.Nodes = m.Nodes[:1]
	m.Nodes[0].Title = "renamed root"
	require.NoError(t, s.Maps.SaveMap(ctx, m))

	got, err := s.Maps.GetMap(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, got.Nodes, 1)
	assert.Equal(t, "renamed root", got.Nodes[0].Title)
}

func TestSaveMap_InvalidTreeRejected(t *testing.T) {
	s := newTestStorages(t)
	saveTestVault(t, s, "v1")

	missing := "no-such-node"
	m := models.Map{
		ID:              "m1",
		VaultID:         "v1",
		LocalModifiedAt: time.Now().UTC(),
		Nodes: []models.Node{
			{ID: "n1", MapID: "m1", ParentID: &missing},
		},
	}

	err := s.Maps.SaveMap(context.Background(), m)
	assert.ErrorIs(t, err, ErrInvalidTree)
}

func TestSaveMap_UpdatesVaultMapCount(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()
	saveTestVault(t, s, "v1")

	require.NoError(t, s.Maps.SaveMap(ctx, testMap("v1", "m1")))
	require.NoError(t, s.Maps.SaveMap(ctx, testMap("v1", "m2")))

	vault, err := s.Vaults.GetVault(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, vault.MapCount)
}

func TestGetMap_NotFound(t *testing.T) {
	s := newTestStorages(t)

	_, err := s.Maps.GetMap(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrMapNotFound)
}

// ─────────────────────────────────────────────
// UpdateNode
// ─────────────────────────────────────────────

func TestUpdateNode_BumpsLocalModifiedAt(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()
	saveTestVault(t, s, "v1")

	m := testMap("v1", "m1")
	require.NoError(t, s.Maps.SaveMap(ctx, m))
	require.NoError(t, s.Maps.MarkSynced(ctx, "m1", m.LocalModifiedAt, "rev-1"))

	node := m.Nodes[1]
	node.Content = "book the early flight"
	node.ModifiedAt = time.Now().UTC()
	require.NoError(t, s.Maps.UpdateNode(ctx, node))

	got, err := s.Maps.GetMap(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, got.Dirty(), "node edit must make the map dirty again")
	assert.Equal(t, "book the early flight", findNode(t, got.Nodes, node.ID).Content)
}

func TestUpdateNode_NewNodeAppended(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()
	saveTestVault(t, s, "v1")

	m := testMap("v1", "m1")
	require.NoError(t, s.Maps.SaveMap(ctx, m))

	rootID := m.Nodes[0].ID
	added := models.Node{
		ID:         "m1-extra",
		MapID:      "m1",
		ParentID:   &rootID,
		Title:      "hotels",
		Order:      2,
		ModifiedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Maps.UpdateNode(ctx, added))

	got, err := s.Maps.GetMap(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, got.Nodes, 3)
}

func TestUpdateNode_CycleRejected(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()
	saveTestVault(t, s, "v1")

	m := testMap("v1", "m1")
	require.NoError(t, s.Maps.SaveMap(ctx, m))

	// Reparent the root under its own child.
	childID := m.Nodes[1].ID
	root := m.Nodes[0]
	root.ParentID = &childID

	err := s.Maps.UpdateNode(ctx, root)
	assert.ErrorIs(t, err, ErrInvalidTree)
}

func TestUpdateNode_MapNotFound(t *testing.T) {
	s := newTestStorages(t)

	err := s.Maps.UpdateNode(context.Background(), models.Node{
		ID:         "n1",
		MapID:      "missing",
		ModifiedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, ErrMapNotFound)
}

// ─────────────────────────────────────────────
// DeleteMap
// ─────────────────────────────────────────────

func TestDeleteMap(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()
	saveTestVault(t, s, "v1")

	require.NoError(t, s.Maps.SaveMap(ctx, testMap("v1", "m1")))
	require.NoError(t, s.Maps.DeleteMap(ctx, "m1"))

	_, err := s.Maps.GetMap(ctx, "m1")
	assert.ErrorIs(t, err, ErrMapNotFound)

	vault, err := s.Vaults.GetVault(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 0, vault.MapCount)
}

func TestDeleteMap_NotFound(t *testing.T) {
	s := newTestStorages(t)

	err := s.Maps.DeleteMap(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrMapNotFound)
}

// ─────────────────────────────────────────────
// MarkSynced / DirtyMaps
// ─────────────────────────────────────────────

func TestMarkSynced_CleansMap(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()
	saveTestVault(t, s, "v1")

	m := testMap("v1", "m1")
	require.NoError(t, s.Maps.SaveMap(ctx, m))

	dirty, err := s.Maps.DirtyMaps(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, dirty, 1)

	require.NoError(t, s.Maps.MarkSynced(ctx, "m1", m.LocalModifiedAt, "rev-1"))

	dirty, err = s.Maps.DirtyMaps(ctx, "v1")
	require.NoError(t, err)
	assert.Empty(t, dirty)

	got, err := s.Maps.GetMap(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, got.Dirty())
	assert.Equal(t, "rev-1", got.RemoteRevision)
}

func TestMarkSynced_NotFound(t *testing.T) {
	s := newTestStorages(t)

	err := s.Maps.MarkSynced(context.Background(), "missing", time.Now().UTC(), "rev")
	assert.ErrorIs(t, err, ErrMapNotFound)
}

// ─────────────────────────────────────────────
// Search
// ─────────────────────────────────────────────

func TestSearch_MatchesTitleAndContent(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()
	saveTestVault(t, s, "v1")
	saveTestVault(t, s, "v2")

	trip := testMap("v1", "m1")
	require.NoError(t, s.Maps.SaveMap(ctx, trip))

	other := testMap("v2", "m2")
	other.Title = "groceries"
	other.Nodes[1].Content = "buy flights of stairs, somehow"
	require.NoError(t, s.Maps.SaveMap(ctx, other))

	// Node content match, scoped to one vault.
	results, err := s.Maps.Search(ctx, "v1", "fares")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "m1", results[0].ID)

	// Cross-vault search hits both.
	results, err = s.Maps.Search(ctx, "", "flights")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = s.Maps.Search(ctx, "v1", "no such text")
	require.NoError(t, err)
	assert.Empty(t, results)
}

// ─────────────────────────────────────────────
// Cache / EvictVault
// ─────────────────────────────────────────────

func TestEvictVault_DropsCacheKeepsRows(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()
	saveTestVault(t, s, "v1")

	require.NoError(t, s.Maps.SaveMap(ctx, testMap("v1", "m1")))

	_, err := s.Maps.GetMap(ctx, "m1")
	require.NoError(t, err)

	repo := s.Maps.(*mapRepository)
	repo.mu.RLock()
	_, cached := repo.cache["m1"]
	repo.mu.RUnlock()
	require.True(t, cached, "GetMap should populate the cache")

	s.Maps.EvictVault("v1")

	repo.mu.RLock()
	_, cached = repo.cache["m1"]
	repo.mu.RUnlock()
	assert.False(t, cached)

	// The row itself survives eviction.
	got, err := s.Maps.GetMap(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)
}

func findNode(t *testing.T, nodes []models.Node, id string) models.Node {
	t.Helper()
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %s not found", id)
	return models.Node{}
}
