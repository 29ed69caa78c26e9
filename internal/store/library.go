package store

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/franz/photo-tidy/internal/catalog"
	"github.com/franz/photo-tidy/internal/util"
)

// Library implements catalog.Catalog over the sqlite store and a filesystem.
// All destructive media operations live here; the engines above only see the
// four capability calls.
type Library struct {
	store *Store
	fs    afero.Fs
	retry *util.RetryConfig
}

// NewLibrary creates a Library over the given store and filesystem
func NewLibrary(s *Store, fs afero.Fs, retry *util.RetryConfig) *Library {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if retry == nil {
		retry = util.DefaultRetryConfig()
	}
	return &Library{store: s, fs: fs, retry: retry}
}

// Store returns the underlying store
func (l *Library) Store() *Store {
	return l.store
}

// List returns a snapshot of all ready assets with album memberships
func (l *Library) List(ctx context.Context) ([]catalog.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := l.store.ListAssets()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}

	assets := make([]catalog.Asset, 0, len(rows))
	for _, row := range rows {
		if row.Status == "error" {
			continue
		}
		assets = append(assets, row.Asset)
	}
	return assets, nil
}

// MergeMetadata ORs the favorite flag and unions album memberships into the
// given asset, in one transaction
func (l *Library) MergeMetadata(ctx context.Context, into catalog.AssetID, favorite bool, albums []catalog.AlbumID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := l.store.GetAssetByID(into)
	if err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	if target == nil {
		return fmt.Errorf("%w: %s", catalog.ErrNotFound, into)
	}

	return l.store.Transaction(func(tx *sql.Tx) error {
		if favorite && !target.Favorite {
			if _, err := tx.Exec(`
				UPDATE assets SET favorite = 1, last_update_at = CURRENT_TIMESTAMP
				WHERE id = ?`, string(into)); err != nil {
				return fmt.Errorf("%w: %v", catalog.ErrStore, err)
			}
		}
		for _, album := range albums {
			if _, err := tx.Exec(`
				INSERT OR IGNORE INTO album_members (album_id, asset_id)
				VALUES (?, ?)`, string(album), string(into)); err != nil {
				return fmt.Errorf("%w: %v", catalog.ErrStore, err)
			}
		}
		return nil
	})
}

// DeleteBatch removes the given assets: files first, then rows. A file that
// is already gone is not an error; the row still goes away.
func (l *Library) DeleteBatch(ctx context.Context, ids []catalog.AssetID) error {
	deleted := make([]catalog.AssetID, 0, len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		a, err := l.store.GetAssetByID(id)
		if err != nil {
			return fmt.Errorf("%w: %v", catalog.ErrStore, err)
		}
		if a == nil {
			return fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
		}

		if err := util.RetryableRemove(l.fs, a.Path, l.retry); err != nil {
			if os.IsNotExist(err) {
				util.DebugLog("Asset file already gone: %s", a.Path)
			} else if os.IsPermission(err) {
				return fmt.Errorf("%w: delete %s: %v", catalog.ErrPermission, a.Path, err)
			} else {
				return fmt.Errorf("%w: delete %s: %v", catalog.ErrStore, a.Path, err)
			}
		}
		deleted = append(deleted, id)
	}

	err := l.store.Transaction(func(tx *sql.Tx) error {
		return l.store.DeleteAssetRows(tx, deleted)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}

	return nil
}

// Replace atomically swaps the asset's content for the file at contentPath.
// The new content is written beside the original as a .part file and renamed
// over it, so the original survives any failure before the rename.
func (l *Library) Replace(ctx context.Context, id catalog.AssetID, contentPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a, err := l.store.GetAssetByID(id)
	if err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}
	if a == nil {
		return fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
	}

	src, err := util.RetryableOpen(l.fs, contentPath, l.retry)
	if err != nil {
		return fmt.Errorf("failed to open replacement content: %w", err)
	}
	defer src.Close()

	tempPath := a.Path + ".part"
	dest, err := util.RetryableCreate(l.fs, tempPath, l.retry)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	h := sha1.New()
	written, err := io.Copy(dest, io.TeeReader(src, h))
	if err == nil {
		err = dest.Sync()
	}
	if closeErr := dest.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		util.RetryableRemove(l.fs, tempPath, l.retry) // Clean up on error
		return fmt.Errorf("failed to write replacement: %w", err)
	}

	// The swap itself: only after the temp content is durable
	if err := util.RetryableRename(l.fs, tempPath, a.Path, l.retry); err != nil {
		util.RetryableRemove(l.fs, tempPath, l.retry) // Clean up on error
		return fmt.Errorf("failed to swap content: %w", err)
	}

	fingerprint := fmt.Sprintf("%x", h.Sum(nil))
	now := time.Now().Unix()
	if err := l.store.UpdateAssetContent(id, written, fingerprint, now); err != nil {
		// The swap is already durable; surface the bookkeeping failure
		return fmt.Errorf("%w: %v", catalog.ErrStore, err)
	}

	util.DebugLog("Replaced content of %s (%d bytes)", a.Path, written)
	return nil
}
