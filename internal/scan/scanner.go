package scan

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"github.com/franz/photo-tidy/internal/catalog"
	"github.com/franz/photo-tidy/internal/report"
	"github.com/franz/photo-tidy/internal/store"
	"github.com/franz/photo-tidy/internal/util"
)

// Scanner discovers media files in a directory tree and probes their
// content. Discovery is a fast metadata walk; probing reads every file to
// fingerprint it and runs ffprobe on videos. Probing resumes where a killed
// scan left off because discovered assets keep their status until probed.
type Scanner struct {
	store       *store.Store
	fs          afero.Fs
	concurrency int
	logger      *report.EventLogger
	prober      Prober
}

// Config holds scanner configuration
type Config struct {
	Store       *store.Store
	Fs          afero.Fs // nil = OS filesystem
	Concurrency int
	Logger      *report.EventLogger
	Prober      Prober // nil = ffprobe
}

// New creates a new Scanner
func New(cfg *Config) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Prober == nil {
		cfg.Prober = FFprobeProber{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = report.NullLogger()
	}

	return &Scanner{
		store:       cfg.Store,
		fs:          cfg.Fs,
		concurrency: cfg.Concurrency,
		logger:      logger,
		prober:      cfg.Prober,
	}
}

// Result represents a scan result
type Result struct {
	AssetsDiscovered int
	AssetsKnown      int
	AssetsProbed     int
	ProbeErrors      int
	Errors           []error
}

// Scan walks the source directory, registers new media files and probes
// everything still waiting for content analysis
func (s *Scanner) Scan(ctx context.Context, sourcePath string) (*Result, error) {
	util.InfoLog("Starting scan of: %s", sourcePath)

	result := &Result{}

	if err := s.discover(ctx, sourcePath, result); err != nil {
		return result, err
	}
	if err := s.probePending(ctx, result); err != nil {
		return result, err
	}

	util.SuccessLog("Scan complete: %d new, %d known, %d probed, %d probe errors",
		result.AssetsDiscovered, result.AssetsKnown, result.AssetsProbed, result.ProbeErrors)
	return result, nil
}

// discover walks the tree and upserts an asset row per media file
func (s *Scanner) discover(ctx context.Context, sourcePath string, result *Result) error {
	existingKeys, err := s.store.AllFileKeys()
	if err != nil {
		return fmt.Errorf("failed to load existing file keys: %w", err)
	}
	util.DebugLog("Loaded %d existing file keys", len(existingKeys))

	if err := s.store.InitScanProgress(0); err != nil {
		return fmt.Errorf("failed to init scan progress: %w", err)
	}

	var found, known, walked int

	walkErr := afero.Walk(s.fs, sourcePath, func(path string, info os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			util.WarnLog("Error accessing path %s: %v", path, err)
			result.Errors = append(result.Errors, fmt.Errorf("access error: %s: %w", path, err))
			return nil // Continue walking
		}
		if info.IsDir() {
			return nil
		}

		kind, ok := KindForPath(path)
		if !ok {
			return nil
		}

		walked++
		if walked%250 == 0 {
			s.store.UpdateScanProgress(path, walked)
		}

		fileKey := util.GenerateFileKey(info)
		if existingKeys[fileKey] {
			known++
			return nil
		}
		existingKeys[fileKey] = true

		asset := &store.Asset{
			Asset: catalog.Asset{
				ID:         catalog.AssetID(uuid.NewString()),
				Path:       path,
				SizeBytes:  info.Size(),
				CreatedAt:  info.ModTime(),
				ModifiedAt: info.ModTime(),
				Kind:       kind,
			},
			FileKey: fileKey,
			Status:  "discovered",
		}
		if err := s.store.UpsertAsset(asset); err != nil {
			util.ErrorLog("Failed to register %s: %v", path, err)
			result.Errors = append(result.Errors, err)
			return nil
		}

		s.logger.LogScan(string(asset.ID), path, info.Size())
		found++
		return nil
	})

	result.AssetsDiscovered = found
	result.AssetsKnown = known

	if walkErr != nil && walkErr != context.Canceled {
		return fmt.Errorf("walk error: %w", walkErr)
	}

	if err := s.store.ClearScanProgress(); err != nil {
		util.WarnLog("Failed to clear scan progress: %v", err)
	}
	util.InfoLog("Discovery complete: %d new media files, %d already known", found, known)
	return nil
}

// probePending fingerprints and probes every asset still in the discovered
// state, using a bounded worker pool
func (s *Scanner) probePending(ctx context.Context, result *Result) error {
	pending, err := s.store.GetAssetsByStatus("discovered")
	if err != nil {
		return fmt.Errorf("failed to load pending assets: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	total := len(pending)
	util.InfoLog("Probing %d assets", total)

	var probed atomic.Int64
	var failed atomic.Int64

	// Progress bar on a terminal, periodic log lines otherwise
	isTTY := util.IsTerminal(os.Stdout.Fd())
	var bar *progressbar.ProgressBar
	if isTTY && !util.IsQuiet() {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Probing"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	progressCtx, cancelProgress := context.WithCancel(ctx)
	defer cancelProgress()

	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-progressCtx.Done():
				return
			case <-ticker.C:
				p := probed.Load()
				if bar != nil {
					bar.Set64(p)
				} else if p > 0 {
					util.InfoLog("Probing: %d/%d (%.1f%%)",
						p, total, float64(p)/float64(total)*100)
				}
			}
		}
	}()

	var resultMu sync.Mutex

	workers := pool.New().WithMaxGoroutines(s.concurrency)
	for _, asset := range pending {
		asset := asset
		workers.Go(func() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := s.probeOne(asset); err != nil {
				failed.Add(1)
				util.WarnLog("Failed to probe %s: %v", asset.Path, err)
				resultMu.Lock()
				result.Errors = append(result.Errors, err)
				resultMu.Unlock()
			}
			probed.Add(1)
		})
	}
	workers.Wait()

	cancelProgress()
	if bar != nil {
		bar.Finish()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	result.AssetsProbed = int(probed.Load()) - int(failed.Load())
	result.ProbeErrors = int(failed.Load())
	return nil
}

// probeOne fingerprints one asset and records its stream properties
func (s *Scanner) probeOne(asset *store.Asset) error {
	fingerprint, err := Fingerprint(s.fs, asset.Path)
	if err != nil {
		s.store.UpdateAssetStatus(asset.ID, "error", err.Error())
		s.logger.LogProbe(string(asset.ID), asset.Path, err)
		return fmt.Errorf("fingerprint %s: %w", asset.Path, err)
	}

	var simPrint uint64
	createdUnix := asset.CreatedAt.Unix()
	var durationMs, width, height, bitrate int

	if asset.Kind == catalog.KindVideo {
		simPrint, err = SimilarityPrint(s.fs, asset.Path, asset.SizeBytes)
		if err != nil {
			s.store.UpdateAssetStatus(asset.ID, "error", err.Error())
			s.logger.LogProbe(string(asset.ID), asset.Path, err)
			return fmt.Errorf("similarity print %s: %w", asset.Path, err)
		}

		info, err := s.prober.Probe(asset.Path)
		if err != nil {
			// Stream probing is best effort: the asset still participates
			// in exact matching without video properties
			util.DebugLog("Probe failed for %s: %v", asset.Path, err)
		} else {
			durationMs = info.DurationMs
			width = info.Width
			height = info.Height
			bitrate = info.BitrateKbps
			if info.CreatedUnix != 0 {
				createdUnix = info.CreatedUnix
			}
		}
	}

	if err := s.store.UpdateAssetProbe(asset.ID, fingerprint, simPrint,
		createdUnix, durationMs, width, height, bitrate); err != nil {
		return err
	}

	s.logger.LogProbe(string(asset.ID), asset.Path, nil)
	util.DebugLog("Probed: %s (%s)", asset.Path, fingerprint[:8])
	return nil
}

// SupportedExtensions returns all recognized media extensions
func SupportedExtensions() []string {
	exts := make([]string, 0, len(PhotoExtensions)+len(VideoExtensions))
	exts = append(exts, PhotoExtensions...)
	exts = append(exts, VideoExtensions...)
	return exts
}
