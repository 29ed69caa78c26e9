package store

import (
	"database/sql"
	"fmt"
)

// Totals holds the cumulative savings accumulated across apply runs.
// Single row, single writer.
type Totals struct {
	BytesDeleted   int64
	AssetsDeleted  int64
	BytesRecovered int64
	AssetsReplaced int64
}

// GetTotals retrieves the cumulative totals (zero value if never written)
func (s *Store) GetTotals() (*Totals, error) {
	var t Totals
	err := s.db.QueryRow(`
		SELECT bytes_deleted, assets_deleted, bytes_recovered, assets_replaced
		FROM totals WHERE id = 1
	`).Scan(&t.BytesDeleted, &t.AssetsDeleted, &t.BytesRecovered, &t.AssetsReplaced)

	if err == sql.ErrNoRows {
		return &Totals{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get totals: %w", err)
	}

	return &t, nil
}

// AddDeleted accumulates the result of an applied duplicates diff
func (s *Store) AddDeleted(bytes int64, count int64) error {
	return s.addTotals(bytes, count, 0, 0)
}

// AddRecovered accumulates the result of an applied transcode batch
func (s *Store) AddRecovered(bytes int64, count int64) error {
	return s.addTotals(0, 0, bytes, count)
}

func (s *Store) addTotals(bytesDeleted, assetsDeleted, bytesRecovered, assetsReplaced int64) error {
	_, err := s.db.Exec(`
		INSERT INTO totals (id, bytes_deleted, assets_deleted, bytes_recovered, assets_replaced, updated_at)
		VALUES (1, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			bytes_deleted = bytes_deleted + excluded.bytes_deleted,
			assets_deleted = assets_deleted + excluded.assets_deleted,
			bytes_recovered = bytes_recovered + excluded.bytes_recovered,
			assets_replaced = assets_replaced + excluded.assets_replaced,
			updated_at = datetime('now')
	`, bytesDeleted, assetsDeleted, bytesRecovered, assetsReplaced)

	if err != nil {
		return fmt.Errorf("failed to update totals: %w", err)
	}

	return nil
}
