package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/franz/photo-tidy/internal/catalog"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func testAsset(t *testing.T, path string, kind catalog.MediaKind, size int64) *Asset {
	t.Helper()

	a := &Asset{
		FileKey: "key-" + path,
		Status:  "ready",
	}
	a.ID = catalog.AssetID(uuid.NewString())
	a.Path = path
	a.Kind = kind
	a.SizeBytes = size
	a.CreatedAt = time.Unix(1700000000, 0).UTC()
	a.ModifiedAt = time.Unix(1700000100, 0).UTC()
	return a
}

func TestUpsertAndGetAsset(t *testing.T) {
	db := setupTestDB(t)

	a := testAsset(t, "/lib/photo1.jpg", catalog.KindPhoto, 1234)
	if err := db.UpsertAsset(a); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}

	got, err := db.GetAssetByKey(a.FileKey)
	if err != nil {
		t.Fatalf("GetAssetByKey failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected asset, got nil")
	}
	if got.ID != a.ID {
		t.Errorf("Expected id %s, got %s", a.ID, got.ID)
	}
	if got.SizeBytes != 1234 {
		t.Errorf("Expected size 1234, got %d", got.SizeBytes)
	}
	if got.Kind != catalog.KindPhoto {
		t.Errorf("Expected kind photo, got %s", got.Kind)
	}
}

func TestUpsertAssetKeepsIDOnConflict(t *testing.T) {
	db := setupTestDB(t)

	a := testAsset(t, "/lib/photo1.jpg", catalog.KindPhoto, 1234)
	if err := db.UpsertAsset(a); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}
	originalID := a.ID

	// Re-upsert the same file key with a fresh pre-minted id
	b := testAsset(t, "/lib/photo1-moved.jpg", catalog.KindPhoto, 1234)
	b.FileKey = a.FileKey
	if err := db.UpsertAsset(b); err != nil {
		t.Fatalf("Second UpsertAsset failed: %v", err)
	}

	if b.ID != originalID {
		t.Errorf("Expected existing id %s to win, got %s", originalID, b.ID)
	}

	got, err := db.GetAssetByID(originalID)
	if err != nil {
		t.Fatalf("GetAssetByID failed: %v", err)
	}
	if got.Path != "/lib/photo1-moved.jpg" {
		t.Errorf("Expected updated path, got %s", got.Path)
	}
}

func TestUpdateAssetProbe(t *testing.T) {
	db := setupTestDB(t)

	a := testAsset(t, "/lib/video1.mov", catalog.KindVideo, 5000)
	a.Status = "discovered"
	if err := db.UpsertAsset(a); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}

	err := db.UpdateAssetProbe(a.ID, "abc123", 0xDEADBEEF, 1700000000, 60000, 1920, 1080, 8000)
	if err != nil {
		t.Fatalf("UpdateAssetProbe failed: %v", err)
	}

	got, err := db.GetAssetByID(a.ID)
	if err != nil {
		t.Fatalf("GetAssetByID failed: %v", err)
	}
	if got.Status != "ready" {
		t.Errorf("Expected status ready, got %s", got.Status)
	}
	if got.Fingerprint != "abc123" {
		t.Errorf("Expected fingerprint abc123, got %s", got.Fingerprint)
	}
	if got.SimilarityPrint != 0xDEADBEEF {
		t.Errorf("Expected similarity print 0xDEADBEEF, got %x", got.SimilarityPrint)
	}
	if got.Width != 1920 || got.Height != 1080 {
		t.Errorf("Expected 1920x1080, got %dx%d", got.Width, got.Height)
	}
}

func TestAlbumMembership(t *testing.T) {
	db := setupTestDB(t)

	a := testAsset(t, "/lib/photo1.jpg", catalog.KindPhoto, 100)
	if err := db.UpsertAsset(a); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}

	if err := db.UpsertAlbum(&Album{ID: "album-b", Name: "Vacation"}); err != nil {
		t.Fatalf("UpsertAlbum failed: %v", err)
	}
	if err := db.UpsertAlbum(&Album{ID: "album-a", Name: "Family"}); err != nil {
		t.Fatalf("UpsertAlbum failed: %v", err)
	}

	for _, album := range []catalog.AlbumID{"album-b", "album-a", "album-b"} {
		if err := db.AddAlbumMember(album, a.ID); err != nil {
			t.Fatalf("AddAlbumMember failed: %v", err)
		}
	}

	albums, err := db.GetAlbumsForAsset(a.ID)
	if err != nil {
		t.Fatalf("GetAlbumsForAsset failed: %v", err)
	}
	if len(albums) != 2 {
		t.Fatalf("Expected 2 albums, got %d", len(albums))
	}
	if albums[0] != "album-a" || albums[1] != "album-b" {
		t.Errorf("Expected sorted albums [album-a album-b], got %v", albums)
	}

	// Membership attached on list
	listed, err := db.ListAssets()
	if err != nil {
		t.Fatalf("ListAssets failed: %v", err)
	}
	if len(listed) != 1 || len(listed[0].Albums) != 2 {
		t.Errorf("Expected listed asset with 2 albums, got %+v", listed)
	}
}

func TestScanProgress(t *testing.T) {
	db := setupTestDB(t)

	p, err := db.GetScanProgress()
	if err != nil {
		t.Fatalf("GetScanProgress failed: %v", err)
	}
	if p != nil {
		t.Fatal("Expected no progress before init")
	}

	if err := db.InitScanProgress(100); err != nil {
		t.Fatalf("InitScanProgress failed: %v", err)
	}
	if err := db.UpdateScanProgress("/lib/photo42.jpg", 42); err != nil {
		t.Fatalf("UpdateScanProgress failed: %v", err)
	}

	p, err = db.GetScanProgress()
	if err != nil {
		t.Fatalf("GetScanProgress failed: %v", err)
	}
	if p == nil {
		t.Fatal("Expected progress after init")
	}
	if p.TotalFiles != 100 || p.FilesProcessed != 42 {
		t.Errorf("Expected 42/100, got %d/%d", p.FilesProcessed, p.TotalFiles)
	}
	if p.LastProcessedPath != "/lib/photo42.jpg" {
		t.Errorf("Unexpected last path: %s", p.LastProcessedPath)
	}

	if err := db.ClearScanProgress(); err != nil {
		t.Fatalf("ClearScanProgress failed: %v", err)
	}
	p, err = db.GetScanProgress()
	if err != nil {
		t.Fatalf("GetScanProgress failed: %v", err)
	}
	if p != nil {
		t.Fatal("Expected no progress after clear")
	}
}

func TestTotalsAccumulate(t *testing.T) {
	db := setupTestDB(t)

	totals, err := db.GetTotals()
	if err != nil {
		t.Fatalf("GetTotals failed: %v", err)
	}
	if totals.BytesDeleted != 0 || totals.BytesRecovered != 0 {
		t.Errorf("Expected zero totals, got %+v", totals)
	}

	if err := db.AddDeleted(1000, 3); err != nil {
		t.Fatalf("AddDeleted failed: %v", err)
	}
	if err := db.AddDeleted(500, 2); err != nil {
		t.Fatalf("AddDeleted failed: %v", err)
	}
	if err := db.AddRecovered(2000, 1); err != nil {
		t.Fatalf("AddRecovered failed: %v", err)
	}

	totals, err = db.GetTotals()
	if err != nil {
		t.Fatalf("GetTotals failed: %v", err)
	}
	if totals.BytesDeleted != 1500 || totals.AssetsDeleted != 5 {
		t.Errorf("Expected 1500 bytes / 5 assets deleted, got %d/%d",
			totals.BytesDeleted, totals.AssetsDeleted)
	}
	if totals.BytesRecovered != 2000 || totals.AssetsReplaced != 1 {
		t.Errorf("Expected 2000 bytes / 1 asset recovered, got %d/%d",
			totals.BytesRecovered, totals.AssetsReplaced)
	}
}

func TestOpenNetworkOptimized(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenWithOptions(dbPath, &OpenOptions{NetworkOptimized: true})
	if err != nil {
		t.Fatalf("OpenWithOptions failed: %v", err)
	}
	defer db.Close()

	// The tuned pragmas must be in effect on the connection
	var tempStore int
	if err := db.DB().QueryRow("PRAGMA temp_store").Scan(&tempStore); err != nil {
		t.Fatalf("Failed to read temp_store pragma: %v", err)
	}
	if tempStore != 2 { // 2 = MEMORY
		t.Errorf("Expected temp_store=2 (memory), got %d", tempStore)
	}

	// The store must still be fully usable
	a := testAsset(t, "/lib/photo1.jpg", catalog.KindPhoto, 100)
	if err := db.UpsertAsset(a); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}
}
