package store

import (
	"database/sql"

	"github.com/mapgrove/mapsync/internal/logger"
	"github.com/mapgrove/mapsync/migrations"
)

type DB struct {
	*sql.DB
	logger *logger.Logger
}

func (db *DB) Migrate() error {
	db.logger.Debug().Str("func", "DB.Migrate").Msg("applying schema migrations")
	return migrations.Migrate(db.DB)
}
