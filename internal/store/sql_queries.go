package store

const (
	saveVault = `
		INSERT INTO vaults (
			id,
			name,
			remote_location,
			last_opened,
			last_full_sync,
			remote_timestamp,
			map_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name             = excluded.name,
			remote_location  = excluded.remote_location,
			last_opened      = excluded.last_opened,
			last_full_sync   = excluded.last_full_sync,
			remote_timestamp = excluded.remote_timestamp,
			map_count        = excluded.map_count;`

	getVault = `
		SELECT
			id,
			name,
			remote_location,
			last_opened,
			last_full_sync,
			remote_timestamp,
			map_count
		FROM vaults
		WHERE id = $1;`

	listVaults = `
		SELECT
			id,
			name,
			remote_location,
			last_opened,
			last_full_sync,
			remote_timestamp,
			map_count
		FROM vaults
		ORDER BY last_opened DESC;`

	updateVaultSyncInfo = `
		UPDATE vaults SET
			last_full_sync   = $1,
			remote_timestamp = $2
		WHERE id = $3;`

	touchVaultOpened = `
		UPDATE vaults SET last_opened = $1 WHERE id = $2;`

	refreshVaultMapCount = `
		UPDATE vaults SET
			map_count = (SELECT COUNT(*) FROM maps WHERE vault_id = vaults.id)
		WHERE id = $1;`

	deleteVault = `
		DELETE FROM vaults WHERE id = $1;`

	saveMapRow = `
		INSERT INTO maps (
			id,
			vault_id,
			title,
			edges,
			local_modified_at,
			last_synced_at,
			remote_revision
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title             = excluded.title,
			edges             = excluded.edges,
			local_modified_at = excluded.local_modified_at,
			last_synced_at    = excluded.last_synced_at,
			remote_revision   = excluded.remote_revision;`

	getMapRow = `
		SELECT
			id,
			vault_id,
			title,
			edges,
			local_modified_at,
			last_synced_at,
			remote_revision
		FROM maps
		WHERE id = $1;`

	listMapRows = `
		SELECT
			id,
			vault_id,
			title,
			edges,
			local_modified_at,
			last_synced_at,
			remote_revision
		FROM maps
		WHERE vault_id = $1
		ORDER BY title;`

	listDirtyMapRows = `
		SELECT
			id,
			vault_id,
			title,
			edges,
			local_modified_at,
			last_synced_at,
			remote_revision
		FROM maps
		WHERE vault_id = $1
		  AND (last_synced_at IS NULL OR local_modified_at > last_synced_at);`

	deleteMapRow = `
		DELETE FROM maps WHERE id = $1;`

	deleteMapNodes = `
		DELETE FROM nodes WHERE map_id = $1;`

	saveNode = `
		INSERT INTO nodes (
			id,
			map_id,
			parent_id,
			title,
			content,
			ord,
			modified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			parent_id   = excluded.parent_id,
			title       = excluded.title,
			content     = excluded.content,
			ord         = excluded.ord,
			modified_at = excluded.modified_at;`

	getMapNodes = `
		SELECT
			id,
			map_id,
			parent_id,
			title,
			content,
			ord,
			modified_at
		FROM nodes
		WHERE map_id = $1
		ORDER BY parent_id, ord;`

	touchMapModified = `
		UPDATE maps SET local_modified_at = $1 WHERE id = $2;`

	markMapSynced = `
		UPDATE maps SET
			last_synced_at  = $1,
			remote_revision = $2
		WHERE id = $3;`

	saveBackup = `
		INSERT INTO backups (ref, map_id, taken_at, payload)
		VALUES ($1, $2, $3, $4);`

	getBackup = `
		SELECT ref, map_id, taken_at, payload
		FROM backups
		WHERE ref = $1;`

	appendResolution = `
		INSERT INTO resolution_log (map_id, winner, backup_ref, resolved_at)
		VALUES ($1, $2, $3, $4);`

	listResolutions = `
		SELECT map_id, winner, backup_ref, resolved_at
		FROM resolution_log
		WHERE map_id = $1
		ORDER BY resolved_at DESC;`

	getLock = `
		SELECT vault_id, lock_id, operation, acquired_at, expires_at
		FROM locks
		WHERE vault_id = $1;`

	upsertLock = `
		INSERT INTO locks (vault_id, lock_id, operation, acquired_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (vault_id) DO UPDATE SET
			lock_id     = excluded.lock_id,
			operation   = excluded.operation,
			acquired_at = excluded.acquired_at,
			expires_at  = excluded.expires_at
		WHERE excluded.acquired_at > locks.expires_at;`

	deleteLock = `
		DELETE FROM locks WHERE vault_id = $1 AND lock_id = $2;`
)
