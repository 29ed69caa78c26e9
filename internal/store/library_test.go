package store

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/franz/photo-tidy/internal/catalog"
)

func setupTestLibrary(t *testing.T) (*Library, afero.Fs) {
	t.Helper()

	db := setupTestDB(t)
	fs := afero.NewMemMapFs()
	lib := NewLibrary(db, fs, nil)
	return lib, fs
}

func writeAssetFile(t *testing.T, fs afero.Fs, path string, content []byte) {
	t.Helper()

	if err := afero.WriteFile(fs, path, content, 0644); err != nil {
		t.Fatalf("Failed to write asset file: %v", err)
	}
}

func TestLibraryList(t *testing.T) {
	lib, _ := setupTestLibrary(t)

	ok := testAsset(t, "/lib/a.jpg", catalog.KindPhoto, 10)
	bad := testAsset(t, "/lib/b.jpg", catalog.KindPhoto, 20)
	bad.Status = "error"

	for _, a := range []*Asset{ok, bad} {
		if err := lib.Store().UpsertAsset(a); err != nil {
			t.Fatalf("UpsertAsset failed: %v", err)
		}
	}
	// UpsertAsset does not write status on conflict; set explicitly
	if err := lib.Store().UpdateAssetStatus(bad.ID, "error", "unreadable"); err != nil {
		t.Fatalf("UpdateAssetStatus failed: %v", err)
	}

	assets, err := lib.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("Expected 1 listable asset, got %d", len(assets))
	}
	if assets[0].ID != ok.ID {
		t.Errorf("Expected asset %s, got %s", ok.ID, assets[0].ID)
	}
}

func TestLibraryMergeMetadata(t *testing.T) {
	lib, _ := setupTestLibrary(t)
	db := lib.Store()

	keep := testAsset(t, "/lib/keep.jpg", catalog.KindPhoto, 10)
	if err := db.UpsertAsset(keep); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}
	if err := db.UpsertAlbum(&Album{ID: "vacation", Name: "Vacation"}); err != nil {
		t.Fatalf("UpsertAlbum failed: %v", err)
	}
	if err := db.UpsertAlbum(&Album{ID: "family", Name: "Family"}); err != nil {
		t.Fatalf("UpsertAlbum failed: %v", err)
	}
	if err := db.AddAlbumMember("family", keep.ID); err != nil {
		t.Fatalf("AddAlbumMember failed: %v", err)
	}

	err := lib.MergeMetadata(context.Background(), keep.ID, true,
		[]catalog.AlbumID{"vacation", "family"})
	if err != nil {
		t.Fatalf("MergeMetadata failed: %v", err)
	}

	got, err := db.GetAssetByID(keep.ID)
	if err != nil {
		t.Fatalf("GetAssetByID failed: %v", err)
	}
	if !got.Favorite {
		t.Error("Expected favorite flag to be set")
	}

	albums, err := db.GetAlbumsForAsset(keep.ID)
	if err != nil {
		t.Fatalf("GetAlbumsForAsset failed: %v", err)
	}
	if len(albums) != 2 {
		t.Errorf("Expected union of 2 albums, got %v", albums)
	}

	// Merging again changes nothing (idempotent)
	if err := lib.MergeMetadata(context.Background(), keep.ID, false,
		[]catalog.AlbumID{"family"}); err != nil {
		t.Fatalf("Second MergeMetadata failed: %v", err)
	}
	got, _ = db.GetAssetByID(keep.ID)
	if !got.Favorite {
		t.Error("Favorite flag must never be cleared by a merge")
	}
}

func TestLibraryMergeMetadataNotFound(t *testing.T) {
	lib, _ := setupTestLibrary(t)

	err := lib.MergeMetadata(context.Background(), "missing", true, nil)
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLibraryDeleteBatch(t *testing.T) {
	lib, fs := setupTestLibrary(t)
	db := lib.Store()

	a := testAsset(t, "/lib/a.jpg", catalog.KindPhoto, 10)
	b := testAsset(t, "/lib/b.jpg", catalog.KindPhoto, 20)
	for _, asset := range []*Asset{a, b} {
		if err := db.UpsertAsset(asset); err != nil {
			t.Fatalf("UpsertAsset failed: %v", err)
		}
	}
	writeAssetFile(t, fs, "/lib/a.jpg", []byte("aaa"))
	// b has no file on disk; delete must still succeed

	err := lib.DeleteBatch(context.Background(), []catalog.AssetID{a.ID, b.ID})
	if err != nil {
		t.Fatalf("DeleteBatch failed: %v", err)
	}

	if exists, _ := afero.Exists(fs, "/lib/a.jpg"); exists {
		t.Error("Expected /lib/a.jpg to be removed")
	}
	for _, id := range []catalog.AssetID{a.ID, b.ID} {
		got, err := db.GetAssetByID(id)
		if err != nil {
			t.Fatalf("GetAssetByID failed: %v", err)
		}
		if got != nil {
			t.Errorf("Expected asset row %s to be deleted", id)
		}
	}
}

func TestLibraryDeleteBatchUnknownID(t *testing.T) {
	lib, _ := setupTestLibrary(t)

	err := lib.DeleteBatch(context.Background(), []catalog.AssetID{"missing"})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLibraryReplace(t *testing.T) {
	lib, fs := setupTestLibrary(t)
	db := lib.Store()

	a := testAsset(t, "/lib/video.mov", catalog.KindVideo, 1000)
	a.Favorite = true
	if err := db.UpsertAsset(a); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}
	if err := db.SetFavorite(a.ID, true); err != nil {
		t.Fatalf("SetFavorite failed: %v", err)
	}
	if err := db.UpsertAlbum(&Album{ID: "clips", Name: "Clips"}); err != nil {
		t.Fatalf("UpsertAlbum failed: %v", err)
	}
	if err := db.AddAlbumMember("clips", a.ID); err != nil {
		t.Fatalf("AddAlbumMember failed: %v", err)
	}

	writeAssetFile(t, fs, "/lib/video.mov", []byte("original original original"))
	writeAssetFile(t, fs, "/tmp/transcoded.mov", []byte("small"))

	if err := lib.Replace(context.Background(), a.ID, "/tmp/transcoded.mov"); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	content, err := afero.ReadFile(fs, "/lib/video.mov")
	if err != nil {
		t.Fatalf("Failed to read swapped file: %v", err)
	}
	if string(content) != "small" {
		t.Errorf("Expected swapped content, got %q", content)
	}

	// No leftover temp file
	if exists, _ := afero.Exists(fs, "/lib/video.mov.part"); exists {
		t.Error("Expected .part temp file to be gone after swap")
	}

	// Identity and metadata untouched, size updated
	got, err := db.GetAssetByID(a.ID)
	if err != nil {
		t.Fatalf("GetAssetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("Asset row must survive a replace")
	}
	if !got.Favorite {
		t.Error("Favorite flag must survive a replace")
	}
	if got.SizeBytes != int64(len("small")) {
		t.Errorf("Expected updated size %d, got %d", len("small"), got.SizeBytes)
	}
	albums, _ := db.GetAlbumsForAsset(a.ID)
	if len(albums) != 1 || albums[0] != "clips" {
		t.Errorf("Album membership must survive a replace, got %v", albums)
	}
}

func TestLibraryReplaceMissingContent(t *testing.T) {
	lib, fs := setupTestLibrary(t)
	db := lib.Store()

	a := testAsset(t, "/lib/video.mov", catalog.KindVideo, 1000)
	if err := db.UpsertAsset(a); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}
	writeAssetFile(t, fs, "/lib/video.mov", []byte("original"))

	err := lib.Replace(context.Background(), a.ID, "/tmp/does-not-exist.mov")
	if err == nil {
		t.Fatal("Expected error for missing replacement content")
	}

	// Original must be untouched
	content, _ := afero.ReadFile(fs, "/lib/video.mov")
	if string(content) != "original" {
		t.Errorf("Original content must survive a failed replace, got %q", content)
	}
}
