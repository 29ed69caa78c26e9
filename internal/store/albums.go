package store

import (
	"database/sql"
	"fmt"

	"github.com/franz/photo-tidy/internal/catalog"
)

// UpsertAlbum inserts or renames an album
func (s *Store) UpsertAlbum(a *Album) error {
	_, err := s.db.Exec(`
		INSERT INTO albums (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, string(a.ID), a.Name)

	if err != nil {
		return fmt.Errorf("failed to upsert album: %w", err)
	}

	return nil
}

// GetAlbum retrieves an album by id
func (s *Store) GetAlbum(id catalog.AlbumID) (*Album, error) {
	a := &Album{}
	err := s.db.QueryRow(`SELECT id, name FROM albums WHERE id = ?`, string(id)).
		Scan((*string)(&a.ID), &a.Name)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get album: %w", err)
	}

	return a, nil
}

// AddAlbumMember adds an asset to an album (no-op if already a member)
func (s *Store) AddAlbumMember(albumID catalog.AlbumID, assetID catalog.AssetID) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO album_members (album_id, asset_id) VALUES (?, ?)
	`, string(albumID), string(assetID))

	if err != nil {
		return fmt.Errorf("failed to add album member: %w", err)
	}

	return nil
}

// GetAlbumsForAsset returns the album ids an asset belongs to, sorted
func (s *Store) GetAlbumsForAsset(assetID catalog.AssetID) ([]catalog.AlbumID, error) {
	rows, err := s.db.Query(`
		SELECT album_id FROM album_members WHERE asset_id = ? ORDER BY album_id
	`, string(assetID))
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []catalog.AlbumID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		albums = append(albums, catalog.AlbumID(id))
	}
	return albums, rows.Err()
}
