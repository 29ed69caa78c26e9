package store

import (
	"database/sql"
	"time"
)

// ScanProgress tracks the state of a library scan for resumability
type ScanProgress struct {
	LastProcessedPath string
	TotalFiles        int
	FilesProcessed    int
	StartedAt         time.Time
	UpdatedAt         time.Time
}

// GetScanProgress retrieves the current scan progress
func (s *Store) GetScanProgress() (*ScanProgress, error) {
	var p ScanProgress
	var startedAt, updatedAt sql.NullString

	err := s.db.QueryRow(`
		SELECT COALESCE(last_processed_path, ''), total_files, files_processed,
		       started_at, updated_at
		FROM scan_progress
		WHERE id = 1
	`).Scan(&p.LastProcessedPath, &p.TotalFiles, &p.FilesProcessed,
		&startedAt, &updatedAt)

	if err == sql.ErrNoRows {
		// No progress tracked yet
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	// Parse timestamps
	if startedAt.Valid {
		p.StartedAt, _ = time.Parse("2006-01-02 15:04:05", startedAt.String)
	}
	if updatedAt.Valid {
		p.UpdatedAt, _ = time.Parse("2006-01-02 15:04:05", updatedAt.String)
	}

	return &p, nil
}

// InitScanProgress initializes or resets scan progress
func (s *Store) InitScanProgress(totalFiles int) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO scan_progress
		(id, last_processed_path, total_files, files_processed, started_at, updated_at)
		VALUES (1, '', ?, 0, datetime('now'), datetime('now'))
	`, totalFiles)
	return err
}

// UpdateScanProgress updates progress during a scan
func (s *Store) UpdateScanProgress(lastPath string, filesProcessed int) error {
	_, err := s.db.Exec(`
		UPDATE scan_progress
		SET last_processed_path = ?,
		    files_processed = ?,
		    updated_at = datetime('now')
		WHERE id = 1
	`, lastPath, filesProcessed)
	return err
}

// ClearScanProgress removes progress tracking (called when a scan completes)
func (s *Store) ClearScanProgress() error {
	_, err := s.db.Exec(`DELETE FROM scan_progress WHERE id = 1`)
	return err
}
