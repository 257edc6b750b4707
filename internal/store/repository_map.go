package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mapgrove/mapsync/internal/logger"
	"github.com/mapgrove/mapsync/models"
)

type mapRepository struct {
	*DB

	// cache holds fully hydrated maps for the active vault. GetMap fills
	// it, mutations invalidate the touched entry, EvictVault clears a
	// whole vault on switch-away.
	mu    sync.RWMutex
	cache map[string]models.Map
}

func NewMapRepository(db *DB) MapRepository {
	return &mapRepository{
		DB:    db,
		cache: make(map[string]models.Map),
	}
}

// SaveMap upserts the map row and replaces its node set in one transaction.
// The caller is responsible for setting LocalModifiedAt; create/update paths
// in the engine stamp it with the mutation time.
func (r *mapRepository) SaveMap(ctx context.Context, m models.Map) error {
	log := logger.FromContext(ctx)

	if err := validateTree(m.Nodes); err != nil {
		return err
	}

	edges, err := json.Marshal(m.Edges)
	if err != nil {
		return fmt.Errorf("failed to encode edges (map_id=%s): %w", m.ID, err)
	}

	err = r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, saveMapRow,
			m.ID,
			m.VaultID,
			m.Title,
			string(edges),
			m.LocalModifiedAt,
			nullableTime(m.LastSyncedAt),
			m.RemoteRevision,
		); err != nil {
			return fmt.Errorf("upsert map row: %w", err)
		}

		if _, err := tx.ExecContext(ctx, deleteMapNodes, m.ID); err != nil {
			return fmt.Errorf("clear map nodes: %w", err)
		}

		for _, node := range m.Nodes {
			if _, err := tx.ExecContext(ctx, saveNode,
				node.ID,
				m.ID,
				node.ParentID,
				node.Title,
				node.Content,
				node.Order,
				node.ModifiedAt,
			); err != nil {
				return fmt.Errorf("insert node %s: %w", node.ID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, refreshVaultMapCount, m.VaultID); err != nil {
			return fmt.Errorf("refresh vault map count: %w", err)
		}

		return nil
	})
	if err != nil {
		log.Err(err).
			Str("func", "mapRepository.SaveMap").
			Str("map_id", m.ID).
			Msg("failed to save map")
		return fmt.Errorf("failed to save map (map_id=%s): %w", m.ID, err)
	}

	r.invalidate(m.ID)
	return nil
}

func (r *mapRepository) GetMap(ctx context.Context, mapID string) (models.Map, error) {
	log := logger.FromContext(ctx)

	r.mu.RLock()
	if m, ok := r.cache[mapID]; ok {
		r.mu.RUnlock()
		return m, nil
	}
	r.mu.RUnlock()

	row := r.DB.QueryRowContext(ctx, getMapRow, mapID)
	m, err := scanMap(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Map{}, ErrMapNotFound
		}
		log.Err(err).
			Str("func", "mapRepository.GetMap").
			Str("map_id", mapID).
			Msg("failed to scan map row")
		return models.Map{}, err
	}

	nodes, err := r.loadNodes(ctx, mapID)
	if err != nil {
		log.Err(err).
			Str("func", "mapRepository.GetMap").
			Str("map_id", mapID).
			Msg("failed to load map nodes")
		return models.Map{}, err
	}
	m.Nodes = nodes

	r.mu.Lock()
	r.cache[mapID] = m
	r.mu.Unlock()

	return m, nil
}

// ListMaps returns the map rows of a vault without their nodes. Callers
// needing the full document go through GetMap.
func (r *mapRepository) ListMaps(ctx context.Context, vaultID string) ([]models.Map, error) {
	return r.queryMaps(ctx, "mapRepository.ListMaps", listMapRows, vaultID)
}

func (r *mapRepository) DirtyMaps(ctx context.Context, vaultID string) ([]models.Map, error) {
	return r.queryMaps(ctx, "mapRepository.DirtyMaps", listDirtyMapRows, vaultID)
}

func (r *mapRepository) DeleteMap(ctx context.Context, mapID string) error {
	log := logger.FromContext(ctx)

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var vaultID string
		if err := tx.QueryRowContext(ctx, `SELECT vault_id FROM maps WHERE id = $1`, mapID).Scan(&vaultID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMapNotFound
			}
			return fmt.Errorf("resolve vault: %w", err)
		}

		// nodes cascade via foreign keys
		if _, err := tx.ExecContext(ctx, deleteMapRow, mapID); err != nil {
			return fmt.Errorf("delete map row: %w", err)
		}

		if _, err := tx.ExecContext(ctx, refreshVaultMapCount, vaultID); err != nil {
			return fmt.Errorf("refresh vault map count: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrMapNotFound) {
			return ErrMapNotFound
		}
		log.Err(err).
			Str("func", "mapRepository.DeleteMap").
			Str("map_id", mapID).
			Msg("failed to delete map")
		return fmt.Errorf("failed to delete map (map_id=%s): %w", mapID, err)
	}

	r.invalidate(mapID)
	return nil
}

// UpdateNode upserts a single node and bumps the owning map's
// local_modified_at, all in one transaction. The tree invariants are
// checked against the node set as it will be after the write.
func (r *mapRepository) UpdateNode(ctx context.Context, node models.Node) error {
	log := logger.FromContext(ctx)
	now := time.Now().UTC()

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM maps WHERE id = $1`, node.MapID).Scan(&exists); err != nil {
			return fmt.Errorf("check map: %w", err)
		}
		if exists == 0 {
			return ErrMapNotFound
		}

		nodes, err := loadNodesTx(ctx, tx, node.MapID)
		if err != nil {
			return fmt.Errorf("load nodes: %w", err)
		}

		if err := validateTree(applyNode(nodes, node)); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, saveNode,
			node.ID,
			node.MapID,
			node.ParentID,
			node.Title,
			node.Content,
			node.Order,
			node.ModifiedAt,
		); err != nil {
			return fmt.Errorf("upsert node: %w", err)
		}

		if _, err := tx.ExecContext(ctx, touchMapModified, now, node.MapID); err != nil {
			return fmt.Errorf("touch map: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrMapNotFound) || errors.Is(err, ErrInvalidTree) {
			return err
		}
		log.Err(err).
			Str("func", "mapRepository.UpdateNode").
			Str("map_id", node.MapID).
			Str("node_id", node.ID).
			Msg("failed to update node")
		return fmt.Errorf("failed to update node (node_id=%s): %w", node.ID, err)
	}

	r.invalidate(node.MapID)
	return nil
}

// Search matches query against map titles and node titles/contents within
// a vault. The WHERE clause is assembled with squirrel because the vault
// filter is optional (empty vaultID searches everything).
func (r *mapRepository) Search(ctx context.Context, vaultID, query string) ([]models.Map, error) {
	log := logger.FromContext(ctx)

	pattern := "%" + query + "%"
	builder := sq.Select(
		"DISTINCT m.id",
		"m.vault_id",
		"m.title",
		"m.edges",
		"m.local_modified_at",
		"m.last_synced_at",
		"m.remote_revision",
	).
		From("maps m").
		LeftJoin("nodes n ON n.map_id = m.id").
		Where(sq.Or{
			sq.Like{"m.title": pattern},
			sq.Like{"n.title": pattern},
			sq.Like{"n.content": pattern},
		}).
		OrderBy("m.title")

	if vaultID != "" {
		builder = builder.Where(sq.Eq{"m.vault_id": vaultID})
	}

	sqlQuery, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build search query: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		log.Err(err).
			Str("func", "mapRepository.Search").
			Str("vault_id", vaultID).
			Msg("failed to execute search query")
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer rows.Close()

	return collectMaps(rows)
}

func (r *mapRepository) MarkSynced(ctx context.Context, mapID string, syncedAt time.Time, revision string) error {
	log := logger.FromContext(ctx)

	result, err := r.DB.ExecContext(ctx, markMapSynced, syncedAt, revision, mapID)
	if err != nil {
		log.Err(err).
			Str("func", "mapRepository.MarkSynced").
			Str("map_id", mapID).
			Msg("failed to mark map synced")
		return fmt.Errorf("failed to mark map synced (map_id=%s): %w", mapID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected (map_id=%s): %w", mapID, err)
	}
	if affected == 0 {
		return ErrMapNotFound
	}

	r.invalidate(mapID)
	return nil
}

func (r *mapRepository) EvictVault(vaultID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, m := range r.cache {
		if m.VaultID == vaultID {
			delete(r.cache, id)
		}
	}
}

func (r *mapRepository) invalidate(mapID string) {
	r.mu.Lock()
	delete(r.cache, mapID)
	r.mu.Unlock()
}

func (r *mapRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *mapRepository) queryMaps(ctx context.Context, funcName, query, vaultID string) ([]models.Map, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, query, vaultID)
	if err != nil {
		log.Err(err).
			Str("func", funcName).
			Str("vault_id", vaultID).
			Msg("failed to execute query for listing maps")
		return nil, fmt.Errorf("failed to query maps: %w", err)
	}
	defer rows.Close()

	return collectMaps(rows)
}

func (r *mapRepository) loadNodes(ctx context.Context, mapID string) ([]models.Node, error) {
	rows, err := r.DB.QueryContext(ctx, getMapNodes, mapID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	return collectNodes(rows)
}

func loadNodesTx(ctx context.Context, tx *sql.Tx, mapID string) ([]models.Node, error) {
	rows, err := tx.QueryContext(ctx, getMapNodes, mapID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNodes(rows)
}

func collectMaps(rows *sql.Rows) ([]models.Map, error) {
	var maps []models.Map
	for rows.Next() {
		m, err := scanMap(rows.Scan)
		if err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating map rows: %w", err)
	}

	return maps, nil
}

func collectNodes(rows *sql.Rows) ([]models.Node, error) {
	var nodes []models.Node
	for rows.Next() {
		var node models.Node
		if err := rows.Scan(
			&node.ID,
			&node.MapID,
			&node.ParentID,
			&node.Title,
			&node.Content,
			&node.Order,
			&node.ModifiedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan node row: %w", err)
		}
		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating node rows: %w", err)
	}

	return nodes, nil
}

func scanMap(scan func(dest ...any) error) (models.Map, error) {
	var (
		m          models.Map
		edgesJSON  string
		lastSynced sql.NullTime
	)

	err := scan(
		&m.ID,
		&m.VaultID,
		&m.Title,
		&edgesJSON,
		&m.LocalModifiedAt,
		&lastSynced,
		&m.RemoteRevision,
	)
	if err != nil {
		return models.Map{}, err
	}

	m.LastSyncedAt = lastSynced.Time

	if err := json.Unmarshal([]byte(edgesJSON), &m.Edges); err != nil {
		return models.Map{}, fmt.Errorf("%w: bad edges payload (map_id=%s): %v", ErrCorruptedMap, m.ID, err)
	}

	return m, nil
}

func applyNode(nodes []models.Node, updated models.Node) []models.Node {
	out := make([]models.Node, 0, len(nodes)+1)
	replaced := false
	for _, n := range nodes {
		if n.ID == updated.ID {
			out = append(out, updated)
			replaced = true
			continue
		}
		out = append(out, n)
	}
	if !replaced {
		out = append(out, updated)
	}
	return out
}
