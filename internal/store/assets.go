package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/franz/photo-tidy/internal/catalog"
)

const assetColumns = `
	id, file_key, path, size_bytes, created_unix, mtime_unix, kind,
	favorite, COALESCE(fingerprint, ''), similarity_print, duration_ms,
	width, height, bitrate_kbps, status, COALESCE(error, ''),
	first_seen_at, last_update_at`

// UpsertAsset inserts or updates an asset record keyed by file_key
func (s *Store) UpsertAsset(a *Asset) error {
	_, err := s.db.Exec(`
		INSERT INTO assets (id, file_key, path, size_bytes, created_unix, mtime_unix, kind, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_key) DO UPDATE SET
			path = excluded.path,
			size_bytes = excluded.size_bytes,
			mtime_unix = excluded.mtime_unix,
			last_update_at = CURRENT_TIMESTAMP
		`, string(a.ID), a.FileKey, a.Path, a.SizeBytes, a.CreatedAt.Unix(),
		a.ModifiedAt.Unix(), string(a.Kind), a.Status)

	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}

	// On conflict the pre-minted id loses to the existing row; read it back
	err = s.db.QueryRow("SELECT id FROM assets WHERE file_key = ?", a.FileKey).
		Scan((*string)(&a.ID))
	if err != nil {
		return fmt.Errorf("failed to get asset id: %w", err)
	}

	return nil
}

func scanAsset(row interface{ Scan(...any) error }) (*Asset, error) {
	a := &Asset{}
	var createdUnix, mtimeUnix int64
	var simPrint int64
	err := row.Scan(
		(*string)(&a.ID), &a.FileKey, &a.Path, &a.SizeBytes, &createdUnix,
		&mtimeUnix, (*string)(&a.Kind), &a.Favorite, &a.Fingerprint,
		&simPrint, &a.DurationMs, &a.Width, &a.Height, &a.BitrateKbps,
		&a.Status, &a.Error, &a.FirstSeenAt, &a.LastUpdate,
	)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = time.Unix(createdUnix, 0).UTC()
	a.ModifiedAt = time.Unix(mtimeUnix, 0).UTC()
	a.SimilarityPrint = uint64(simPrint)
	return a, nil
}

// GetAssetByKey retrieves an asset by its file_key
func (s *Store) GetAssetByKey(fileKey string) (*Asset, error) {
	a, err := scanAsset(s.db.QueryRow(
		`SELECT `+assetColumns+` FROM assets WHERE file_key = ?`, fileKey))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return a, nil
}

// GetAssetByID retrieves an asset by id
func (s *Store) GetAssetByID(id catalog.AssetID) (*Asset, error) {
	a, err := scanAsset(s.db.QueryRow(
		`SELECT `+assetColumns+` FROM assets WHERE id = ?`, string(id)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return a, nil
}

// GetAssetsByStatus retrieves all assets with the given status, ordered by path
func (s *Store) GetAssetsByStatus(status string) ([]*Asset, error) {
	rows, err := s.db.Query(
		`SELECT `+assetColumns+` FROM assets WHERE status = ? ORDER BY path`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	return collectAssets(rows)
}

// ListAssets retrieves all assets ordered by path, with album memberships attached
func (s *Store) ListAssets() ([]*Asset, error) {
	rows, err := s.db.Query(`SELECT ` + assetColumns + ` FROM assets ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	assets, err := collectAssets(rows)
	if err != nil {
		return nil, err
	}

	if err := s.attachAlbums(assets); err != nil {
		return nil, err
	}

	return assets, nil
}

func collectAssets(rows *sql.Rows) ([]*Asset, error) {
	var assets []*Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *Store) attachAlbums(assets []*Asset) error {
	if len(assets) == 0 {
		return nil
	}

	byID := make(map[catalog.AssetID]*Asset, len(assets))
	for _, a := range assets {
		byID[a.ID] = a
	}

	rows, err := s.db.Query(`
		SELECT asset_id, album_id FROM album_members ORDER BY album_id`)
	if err != nil {
		return fmt.Errorf("failed to query album members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var assetID, albumID string
		if err := rows.Scan(&assetID, &albumID); err != nil {
			return fmt.Errorf("failed to scan album member: %w", err)
		}
		if a, ok := byID[catalog.AssetID(assetID)]; ok {
			a.Albums = append(a.Albums, catalog.AlbumID(albumID))
		}
	}
	return rows.Err()
}

// UpdateAssetStatus updates the status of an asset
func (s *Store) UpdateAssetStatus(id catalog.AssetID, status string, errorMsg string) error {
	_, err := s.db.Exec(`
		UPDATE assets SET status = ?, error = ?, last_update_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, errorMsg, string(id))

	if err != nil {
		return fmt.Errorf("failed to update asset status: %w", err)
	}

	return nil
}

// UpdateAssetProbe records fingerprints and stream properties after probing
func (s *Store) UpdateAssetProbe(id catalog.AssetID, fingerprint string, simPrint uint64,
	createdUnix int64, durationMs, width, height, bitrateKbps int) error {
	_, err := s.db.Exec(`
		UPDATE assets
		SET fingerprint = ?, similarity_print = ?, created_unix = ?,
		    duration_ms = ?, width = ?, height = ?, bitrate_kbps = ?,
		    status = 'ready', error = '', last_update_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, fingerprint, int64(simPrint), createdUnix, durationMs, width, height,
		bitrateKbps, string(id))

	if err != nil {
		return fmt.Errorf("failed to update asset probe data: %w", err)
	}

	return nil
}

// UpdateAssetContent records new size and fingerprint after a content swap
func (s *Store) UpdateAssetContent(id catalog.AssetID, sizeBytes int64, fingerprint string, mtimeUnix int64) error {
	_, err := s.db.Exec(`
		UPDATE assets
		SET size_bytes = ?, fingerprint = ?, mtime_unix = ?, last_update_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, sizeBytes, fingerprint, mtimeUnix, string(id))

	if err != nil {
		return fmt.Errorf("failed to update asset content: %w", err)
	}

	return nil
}

// SetFavorite sets the favorite flag on an asset
func (s *Store) SetFavorite(id catalog.AssetID, favorite bool) error {
	_, err := s.db.Exec(`
		UPDATE assets SET favorite = ?, last_update_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, favorite, string(id))

	if err != nil {
		return fmt.Errorf("failed to set favorite: %w", err)
	}

	return nil
}

// DeleteAssetRows removes asset rows (album memberships cascade)
func (s *Store) DeleteAssetRows(tx *sql.Tx, ids []catalog.AssetID) error {
	for _, id := range ids {
		if _, err := tx.Exec(`DELETE FROM assets WHERE id = ?`, string(id)); err != nil {
			return fmt.Errorf("failed to delete asset %s: %w", id, err)
		}
	}
	return nil
}

// AllFileKeys returns the set of known file keys for fast scan dedup
func (s *Store) AllFileKeys() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT file_key FROM assets`)
	if err != nil {
		return nil, fmt.Errorf("failed to query file keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys[key] = true
	}
	return keys, rows.Err()
}

// CountAssets returns the number of assets per status
func (s *Store) CountAssets() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM assets GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count assets: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
