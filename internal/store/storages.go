package store

import (
	"context"
	"fmt"

	"github.com/mapgrove/mapsync/internal/config"
	"github.com/mapgrove/mapsync/internal/logger"
)

// Storages groups all local repositories into a single value that can be
// passed around the service layer.
type Storages struct {
	db *DB


	// Vaults is the repository for vault metadata rows.
	Vaults VaultRepository
	// Maps is the repository for map documents and their nodes.
	Maps MapRepository
	// Backups stores pre-overwrite snapshots and the resolution log.
	Backups BackupRepository
	// Locks backs the advisory vault lock.
	Locks LockRepository
}

// NewStorages initialises the local storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Opens an SQLite connection to the file path in cfg.DB.DSN, creating
//     the database file if it does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Constructs a [Storages] value wired to fresh repositories.
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewStorages(cfg config.Storage, logger *logger.Logger) (*Storages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(context.Background(), cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Storages{
		db:      db,
		Vaults:  NewVaultRepository(db),
		Maps:    NewMapRepository(db),
		Backups: NewBackupRepository(db),
		Locks:   NewLockRepository(db),
	}, nil
}

// Close closes the underlying database connection. Repositories must not
// be used afterwards.
func (s *Storages) Close() error {
	return s.db.Close()
}
