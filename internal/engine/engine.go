// Package engine exposes the caller-facing API of the sync engine. All
// reads and writes complete against the local store immediately; remote
// propagation happens on the background worker, never on the caller's
// goroutine.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mapgrove/mapsync/internal/adapter"
	"github.com/mapgrove/mapsync/internal/logger"
	"github.com/mapgrove/mapsync/internal/service"
	"github.com/mapgrove/mapsync/internal/store"
	"github.com/mapgrove/mapsync/models"
)

// Engine is the facade a UI or editor layer talks to.
type Engine struct {
	storages *store.Storages
	remote   adapter.RemoteAdapter
	queue    service.OperationQueue
	worker   service.SyncWorker
	switcher service.VaultSwitcher
	locks    service.LockManager
	events   *service.EventBus
	logger   *logger.Logger
}

// NewEngine wires the facade over already-constructed components.
func NewEngine(
	storages *store.Storages,
	remote adapter.RemoteAdapter,
	queue service.OperationQueue,
	worker service.SyncWorker,
	switcher service.VaultSwitcher,
	locks service.LockManager,
	events *service.EventBus,
	logger *logger.Logger,
) *Engine {
	return &Engine{
		storages: storages,
		remote:   remote,
		queue:    queue,
		worker:   worker,
		switcher: switcher,
		locks:    locks,
		events:   events,
		logger:   logger,
	}
}

// Start launches the background sync worker and rebuilds the operation
// queue from maps whose local changes never made it to the backend.
func (e *Engine) Start(ctx context.Context) error {
	ctx = e.logger.WithContext(ctx)

	vaults, err := e.storages.Vaults.ListVaults(ctx)
	if err != nil {
		return fmt.Errorf("list vaults on startup: %w", err)
	}

	for _, v := range vaults {
		dirty, err := e.storages.Maps.DirtyMaps(ctx, v.ID)
		if err != nil {
			return fmt.Errorf("scan dirty maps of vault %s: %w", v.ID, err)
		}
		for _, m := range dirty {
			e.queue.Enqueue(models.SyncOperation{
				Kind:       models.OpUpdate,
				VaultID:    v.ID,
				MapID:      m.ID,
				EnqueuedAt: time.Now().UTC(),
			})
		}
	}

	e.worker.Start(ctx)
	e.logger.Info().Int("requeued", e.queue.Len()).Msg("engine started")

	return nil
}

// Stop shuts the background worker down and waits for it to exit. Pending
// operations stay in the local store as dirty maps and are requeued on the
// next Start.
func (e *Engine) Stop() {
	e.worker.Stop()
	e.logger.Info().Msg("engine stopped")
}

// SetToken hands the bearer token from the external authentication layer
// to the remote adapter and wakes the worker, since a fresh token often
// follows a stretch of failed unauthorized requests.
func (e *Engine) SetToken(token string) {
	e.remote.SetToken(token)
	e.worker.Wake()
}

// NotifyOnline signals that network connectivity returned. The worker
// drains the accumulated queue immediately instead of waiting for the next
// tick.
func (e *Engine) NotifyOnline() {
	e.worker.Wake()
}

// Subscribe returns the event streams a UI layer renders sync state from.
// Both channels are buffered; a subscriber that stops reading loses events
// rather than blocking the engine.
func (e *Engine) Subscribe() (<-chan models.SyncStatusChanged, <-chan models.ConflictResolved) {
	return e.events.SubscribeStatus(), e.events.SubscribeConflicts()
}

// CreateVault registers a new vault locally. The remote folder is created
// lazily by the first map write.
func (e *Engine) CreateVault(ctx context.Context, name, remoteLocation string) (models.Vault, error) {
	vault := models.Vault{
		ID:             uuid.NewString(),
		Name:           name,
		RemoteLocation: remoteLocation,
	}

	if err := e.storages.Vaults.SaveVault(e.logger.WithContext(ctx), vault); err != nil {
		return models.Vault{}, fmt.Errorf("create vault: %w", err)
	}

	return vault, nil
}

// ListVaults returns all locally known vaults.
func (e *Engine) ListVaults(ctx context.Context) ([]models.Vault, error) {
	return e.storages.Vaults.ListVaults(e.logger.WithContext(ctx))
}

// DeleteVault removes the vault and its maps from the local store only.
// The remote folder is left untouched so other devices keep working; use
// DeleteMap per map to remove content everywhere.
func (e *Engine) DeleteVault(ctx context.Context, vaultID string) error {
	if err := e.storages.Vaults.DeleteVault(e.logger.WithContext(ctx), vaultID); err != nil {
		return fmt.Errorf("delete vault %s: %w", vaultID, err)
	}
	e.storages.Maps.EvictVault(vaultID)

	return nil
}

// OpenVault loads the vault and makes it the active one. See
// [service.VaultSwitcher].
func (e *Engine) OpenVault(ctx context.Context, vaultID string) error {
	return e.switcher.OpenVault(ctx, vaultID)
}

// SwitchVault closes the active vault and opens another. The previous
// vault's cached maps are evicted; its metadata and any queued operations
// survive.
func (e *Engine) SwitchVault(ctx context.Context, vaultID string) error {
	return e.switcher.OpenVault(ctx, vaultID)
}

// VaultState reports the switcher state for UI display.
func (e *Engine) VaultState(vaultID string) service.VaultState {
	return e.switcher.State(vaultID)
}

// SyncInProgress reports whether a full-vault reconciliation currently
// holds the vault lock, locally or from another device.
func (e *Engine) SyncInProgress(ctx context.Context, vaultID string) (models.LockStatus, error) {
	return e.locks.IsLocked(e.logger.WithContext(ctx), vaultID)
}

// CreateMap creates an empty map in the vault and queues its upload. The
// local write is synchronous; the caller gets the map back before any
// network traffic happens.
func (e *Engine) CreateMap(ctx context.Context, vaultID, title string) (models.Map, error) {
	ctx = e.logger.WithContext(ctx)

	now := time.Now().UTC()
	m := models.Map{
		ID:              uuid.NewString(),
		VaultID:         vaultID,
		Title:           title,
		LocalModifiedAt: now,
	}

	if err := e.storages.Maps.SaveMap(ctx, m); err != nil {
		return models.Map{}, fmt.Errorf("create map: %w", err)
	}

	e.enqueue(models.OpCreate, vaultID, m.ID)
	return m, nil
}

// SaveMap persists a full map edit (title, nodes, edges) and queues the
// upload.
func (e *Engine) SaveMap(ctx context.Context, m models.Map) error {
	m.LocalModifiedAt = time.Now().UTC()
	if err := e.storages.Maps.SaveMap(e.logger.WithContext(ctx), m); err != nil {
		return fmt.Errorf("save map %s: %w", m.ID, err)
	}

	e.enqueue(models.OpUpdate, m.VaultID, m.ID)
	return nil
}

// GetMap returns a single map with its nodes and edges.
func (e *Engine) GetMap(ctx context.Context, mapID string) (models.Map, error) {
	return e.storages.Maps.GetMap(e.logger.WithContext(ctx), mapID)
}

// ListMaps returns all maps of a vault.
func (e *Engine) ListMaps(ctx context.Context, vaultID string) ([]models.Map, error) {
	return e.storages.Maps.ListMaps(e.logger.WithContext(ctx), vaultID)
}

// UpdateNode applies a single node edit inside its map's transaction and
// queues the map's upload. New nodes get an ID here if the caller left it
// empty.
func (e *Engine) UpdateNode(ctx context.Context, node models.Node) (models.Node, error) {
	ctx = e.logger.WithContext(ctx)

	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	node.ModifiedAt = time.Now().UTC()

	if err := e.storages.Maps.UpdateNode(ctx, node); err != nil {
		return models.Node{}, fmt.Errorf("update node %s: %w", node.ID, err)
	}

	m, err := e.storages.Maps.GetMap(ctx, node.MapID)
	if err != nil {
		return models.Node{}, err
	}

	e.enqueue(models.OpUpdate, m.VaultID, m.ID)
	return node, nil
}

// DeleteMap removes the map locally and queues the remote delete.
func (e *Engine) DeleteMap(ctx context.Context, mapID string) error {
	ctx = e.logger.WithContext(ctx)

	m, err := e.storages.Maps.GetMap(ctx, mapID)
	if err != nil {
		return err
	}

	if err := e.storages.Maps.DeleteMap(ctx, mapID); err != nil {
		return fmt.Errorf("delete map %s: %w", mapID, err)
	}

	e.enqueue(models.OpDelete, m.VaultID, mapID)
	return nil
}

// Search matches query against map titles, node titles and node content.
// Empty vaultID searches across all vaults.
func (e *Engine) Search(ctx context.Context, vaultID, query string) ([]models.Map, error) {
	return e.storages.Maps.Search(e.logger.WithContext(ctx), vaultID, query)
}

// Resolutions returns the conflict history of one map, newest first.
func (e *Engine) Resolutions(ctx context.Context, mapID string) ([]models.ResolutionEntry, error) {
	return e.storages.Backups.ListResolutions(e.logger.WithContext(ctx), mapID)
}

// RestoreBackup reinstates a pre-conflict snapshot as the map's current
// local content. The restored content counts as a fresh local edit and is
// queued for upload like any other.
func (e *Engine) RestoreBackup(ctx context.Context, backupRef string) (models.Map, error) {
	ctx = e.logger.WithContext(ctx)

	backup, err := e.storages.Backups.GetBackup(ctx, backupRef)
	if err != nil {
		return models.Map{}, fmt.Errorf("restore backup %s: %w", backupRef, err)
	}

	current, err := e.storages.Maps.GetMap(ctx, backup.MapID)
	if err != nil {
		return models.Map{}, fmt.Errorf("restore backup %s: %w", backupRef, err)
	}

	restored := backup.Payload
	restored.ID = backup.MapID
	restored.VaultID = current.VaultID
	restored.LocalModifiedAt = time.Now().UTC()
	restored.LastSyncedAt = current.LastSyncedAt
	restored.RemoteRevision = current.RemoteRevision

	if err := e.storages.Maps.SaveMap(ctx, restored); err != nil {
		return models.Map{}, fmt.Errorf("restore backup %s: %w", backupRef, err)
	}

	e.enqueue(models.OpUpdate, restored.VaultID, restored.ID)
	return restored, nil
}

func (e *Engine) enqueue(kind models.OperationKind, vaultID, mapID string) {
	e.queue.Enqueue(models.SyncOperation{
		Kind:       kind,
		VaultID:    vaultID,
		MapID:      mapID,
		EnqueuedAt: time.Now().UTC(),
	})
	e.events.PublishStatus(models.SyncStatusChanged{MapID: mapID, Status: models.StatusPending})
}
