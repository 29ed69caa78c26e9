package scan

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/franz/photo-tidy/internal/catalog"
	"github.com/franz/photo-tidy/internal/store"
)

func setupTestDB(t *testing.T) *store.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// fakeProber returns fixed stream properties for every video
type fakeProber struct {
	info VideoInfo
}

func (f *fakeProber) Probe(path string) (*VideoInfo, error) {
	info := f.info
	return &info, nil
}

func writeFile(t *testing.T, afs afero.Fs, path string, content []byte) {
	t.Helper()
	if err := afs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := afero.WriteFile(afs, path, content, 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
}

func TestScanDiscoversAndProbes(t *testing.T) {
	db := setupTestDB(t)
	afs := afero.NewMemMapFs()

	writeFile(t, afs, "/library/2024/photo.jpg", []byte("jpeg content"))
	writeFile(t, afs, "/library/2024/clip.mov", []byte("video content here"))
	writeFile(t, afs, "/library/notes.txt", []byte("not media"))

	scanner := New(&Config{
		Store: db,
		Fs:    afs,
		Prober: &fakeProber{info: VideoInfo{
			DurationMs:  12000,
			Width:       1920,
			Height:      1080,
			BitrateKbps: 8000,
		}},
	})

	result, err := scanner.Scan(context.Background(), "/library")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if result.AssetsDiscovered != 2 {
		t.Errorf("discovered %d assets, want 2", result.AssetsDiscovered)
	}
	if result.AssetsProbed != 2 {
		t.Errorf("probed %d assets, want 2", result.AssetsProbed)
	}

	ready, err := db.GetAssetsByStatus("ready")
	if err != nil {
		t.Fatalf("GetAssetsByStatus failed: %v", err)
	}
	if len(ready) != 2 {
		t.Fatalf("expected 2 ready assets, got %d", len(ready))
	}

	for _, a := range ready {
		if a.Fingerprint == "" {
			t.Errorf("%s has no fingerprint", a.Path)
		}
		if a.ID == "" {
			t.Errorf("%s has no id", a.Path)
		}
		switch a.Kind {
		case catalog.KindVideo:
			if a.Width != 1920 || a.Height != 1080 || a.DurationMs != 12000 {
				t.Errorf("video properties not recorded: %+v", a)
			}
			if a.SimilarityPrint == 0 {
				t.Errorf("video has no similarity print")
			}
		case catalog.KindPhoto:
			if a.SimilarityPrint != 0 {
				t.Errorf("photo got a similarity print")
			}
		}
	}
}

func TestScanSecondRunFindsNothingNew(t *testing.T) {
	db := setupTestDB(t)
	afs := afero.NewMemMapFs()
	writeFile(t, afs, "/library/a.jpg", []byte("content a"))
	writeFile(t, afs, "/library/b.jpg", []byte("content b"))

	scanner := New(&Config{Store: db, Fs: afs, Prober: &fakeProber{}})

	if _, err := scanner.Scan(context.Background(), "/library"); err != nil {
		t.Fatalf("first scan failed: %v", err)
	}

	result, err := scanner.Scan(context.Background(), "/library")
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if result.AssetsDiscovered != 0 {
		t.Errorf("second scan discovered %d assets, want 0", result.AssetsDiscovered)
	}
	if result.AssetsKnown != 2 {
		t.Errorf("second scan knew %d assets, want 2", result.AssetsKnown)
	}
}

func TestScanResumesInterruptedProbing(t *testing.T) {
	db := setupTestDB(t)
	afs := afero.NewMemMapFs()
	writeFile(t, afs, "/library/a.jpg", []byte("content a"))

	// A previous run registered the file but died before probing it
	asset := &store.Asset{
		Asset: catalog.Asset{
			ID:        "leftover",
			Path:      "/library/a.jpg",
			SizeBytes: 9,
			Kind:      catalog.KindPhoto,
		},
		FileKey: "stale-key",
		Status:  "discovered",
	}
	if err := db.UpsertAsset(asset); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}

	scanner := New(&Config{Store: db, Fs: afs, Prober: &fakeProber{}})
	if _, err := scanner.Scan(context.Background(), "/library"); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	got, err := db.GetAssetByID("leftover")
	if err != nil {
		t.Fatalf("GetAssetByID failed: %v", err)
	}
	if got == nil || got.Status != "ready" {
		t.Errorf("leftover asset not probed on resume: %+v", got)
	}
}

func TestScanMarksUnreadableAssets(t *testing.T) {
	db := setupTestDB(t)
	afs := afero.NewMemMapFs()

	asset := &store.Asset{
		Asset: catalog.Asset{
			ID:        "gone",
			Path:      "/library/missing.jpg",
			SizeBytes: 10,
			Kind:      catalog.KindPhoto,
		},
		FileKey: "gone-key",
		Status:  "discovered",
	}
	if err := db.UpsertAsset(asset); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}
	afs.MkdirAll("/library", 0755)

	scanner := New(&Config{Store: db, Fs: afs, Prober: &fakeProber{}})
	result, err := scanner.Scan(context.Background(), "/library")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if result.ProbeErrors != 1 {
		t.Errorf("probe errors = %d, want 1", result.ProbeErrors)
	}
	got, err := db.GetAssetByID("gone")
	if err != nil {
		t.Fatalf("GetAssetByID failed: %v", err)
	}
	if got == nil || got.Status != "error" {
		t.Errorf("unreadable asset not marked: %+v", got)
	}
}

func TestKindForPath(t *testing.T) {
	tests := []struct {
		path string
		kind catalog.MediaKind
		ok   bool
	}{
		{"/x/photo.jpg", catalog.KindPhoto, true},
		{"/x/photo.HEIC", catalog.KindPhoto, true},
		{"/x/raw.dng", catalog.KindPhoto, true},
		{"/x/clip.mov", catalog.KindVideo, true},
		{"/x/clip.MP4", catalog.KindVideo, true},
		{"/x/track.mp3", "", false},
		{"/x/notes.txt", "", false},
		{"/x/noext", "", false},
	}

	for _, tt := range tests {
		kind, ok := KindForPath(tt.path)
		if ok != tt.ok || kind != tt.kind {
			t.Errorf("KindForPath(%s) = (%v, %v), want (%v, %v)",
				tt.path, kind, ok, tt.kind, tt.ok)
		}
	}
}

func TestSimilarityPrintStability(t *testing.T) {
	afs := afero.NewMemMapFs()
	content := make([]byte, 64*1024)
	for i := range content {
		content[i] = byte(i * 31)
	}
	writeFile(t, afs, "/a.mov", content)
	writeFile(t, afs, "/b.mov", content)

	p1, err := SimilarityPrint(afs, "/a.mov", int64(len(content)))
	if err != nil {
		t.Fatalf("SimilarityPrint failed: %v", err)
	}
	p2, err := SimilarityPrint(afs, "/b.mov", int64(len(content)))
	if err != nil {
		t.Fatalf("SimilarityPrint failed: %v", err)
	}

	if p1 == 0 {
		t.Error("print is zero for non-empty content")
	}
	if p1 != p2 {
		t.Errorf("identical content produced different prints: %x vs %x", p1, p2)
	}
}

func TestExtractVideoInfo(t *testing.T) {
	info := &FFprobeInfo{
		Streams: []FFprobeStream{
			{CodecType: "audio", CodecName: "aac"},
			{CodecType: "video", CodecName: "h264", Width: 1280, Height: 720,
				Duration: "42.5", BitRate: IntOrString{Value: 6_000_000}},
		},
		Format: &FFprobeFormat{
			Tags: map[string]string{"creation_time": "2024-06-01T12:00:00Z"},
		},
	}

	v, err := extractVideoInfo(info)
	if err != nil {
		t.Fatalf("extractVideoInfo failed: %v", err)
	}
	if v.Width != 1280 || v.Height != 720 {
		t.Errorf("dimensions = %dx%d, want 1280x720", v.Width, v.Height)
	}
	if v.DurationMs != 42500 {
		t.Errorf("duration = %d, want 42500", v.DurationMs)
	}
	if v.BitrateKbps != 6000 {
		t.Errorf("bitrate = %d, want 6000", v.BitrateKbps)
	}
	if v.CreatedUnix == 0 {
		t.Error("creation time not extracted")
	}
}
