package store

import (
	"context"
	"time"

	"github.com/mapgrove/mapsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// VaultRepository is the local repository for vault metadata. Vault rows
// survive cache eviction; they carry the timestamps the engine needs to
// resume sync correctly after a restart.
type VaultRepository interface {
	SaveVault(ctx context.Context, vault models.Vault) error
	GetVault(ctx context.Context, vaultID string) (models.Vault, error)
	ListVaults(ctx context.Context) ([]models.Vault, error)
	UpdateSyncInfo(ctx context.Context, vaultID string, lastFullSync, remoteTimestamp time.Time) error
	TouchOpened(ctx context.Context, vaultID string, at time.Time) error
	DeleteVault(ctx context.Context, vaultID string) error
}

// MapRepository is the local repository for map documents and their nodes.
// All mutating calls run inside one transaction covering the map row and
// its nodes, and bump local_modified_at.
type MapRepository interface {
	SaveMap(ctx context.Context, m models.Map) error
	GetMap(ctx context.Context, mapID string) (models.Map, error)
	ListMaps(ctx context.Context, vaultID string) ([]models.Map, error)
	DeleteMap(ctx context.Context, mapID string) error
	UpdateNode(ctx context.Context, node models.Node) error
	Search(ctx context.Context, vaultID, query string) ([]models.Map, error)

	// MarkSynced records a successful push or pull without touching
	// local_modified_at.
	MarkSynced(ctx context.Context, mapID string, syncedAt time.Time, revision string) error

	// DirtyMaps lists maps with local_modified_at > last_synced_at. The
	// operation queue is rebuilt from this scan at startup.
	DirtyMaps(ctx context.Context, vaultID string) ([]models.Map, error)

	// EvictVault drops the in-memory cache entries for a vault. The SQLite
	// rows stay; only resident memory is reclaimed on vault switch.
	EvictVault(vaultID string)
}

// BackupRepository stores pre-overwrite snapshots and the resolution log.
type BackupRepository interface {
	SaveBackup(ctx context.Context, m models.Map, takenAt time.Time) (ref string, err error)
	GetBackup(ctx context.Context, ref string) (models.Backup, error)
	AppendResolution(ctx context.Context, entry models.ResolutionEntry) error
	ListResolutions(ctx context.Context, mapID string) ([]models.ResolutionEntry, error)
}

// LockRepository performs the single atomic write that backs the advisory
// vault lock.
type LockRepository interface {
	AcquireLock(ctx context.Context, lock models.Lock) error
	ReleaseLock(ctx context.Context, lock models.Lock) error
	GetLock(ctx context.Context, vaultID string) (models.Lock, bool, error)
}
