// Package ingest coordinates parallel fingerprinting of reference
// audio files and their durable insertion into an Index (spec §4.4).
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/media-luna/eureka/internal/decoder"
	"github.com/media-luna/eureka/internal/fingerprint"
	"github.com/media-luna/eureka/internal/metrics"
	"github.com/media-luna/eureka/internal/store"
	"github.com/media-luna/eureka/utils/logger"
)

// Result is the outcome of ingesting one file.
type Result struct {
	Path    string
	ClipID  int64
	Skipped bool
	Err     error
}

// Ingestor drives decode+extract workers and a single-threaded
// coordinator that owns every Index mutation, per spec §4.4's
// concurrency invariant.
type Ingestor struct {
	Index store.Index

	// digests mirrors the Index's fingerprinted content digests,
	// refreshed on construction and after every successful insert.
	// Owned by the coordinator; workers never touch it (spec §5).
	digests map[string]struct{}

	// fingerprintLimit is the decode duration cap, in seconds, passed
	// to decoder.Decode; -1 means no limit (spec §6 fingerprint_limit).
	fingerprintLimit int
}

// New constructs an Ingestor and seeds the in-memory digest cache from
// the Index's current fingerprinted clips. fingerprintLimit bounds the
// decoded duration, in seconds, per file; -1 means no limit.
func New(ctx context.Context, idx store.Index, fingerprintLimit int) (*Ingestor, error) {
	digests, err := idx.ListClipDigests(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Ingestor{Index: idx, digests: digests, fingerprintLimit: fingerprintLimit}, nil
}

type workerOutcome struct {
	path     string
	name     string
	pairs    []fingerprint.Pair
	digest   string
	duration float64
	err      error
}

// IngestDirectory enumerates files under path matching extensions,
// skips any whose content digest is already fingerprinted, and
// fingerprints the rest with up to workerCount concurrent decode+
// extract workers. All Index mutations happen on the calling
// goroutine after the worker pool completes its decode/extract work
// for each file.
func (ing *Ingestor) IngestDirectory(ctx context.Context, path string, extensions []string, workerCount int) ([]Result, error) {
	files, err := FindFiles(path, extensions)
	if err != nil {
		return nil, err
	}

	if workerCount <= 0 || workerCount > runtime.NumCPU() {
		workerCount = runtime.NumCPU()
	}

	outcomes := make(chan workerOutcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount)

	bar := progressbar.Default(int64(len(files)), "ingesting")

	for _, f := range files {
		f := f
		g.Go(func() error {
			defer bar.Add(1)
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			outcomes <- decodeAndExtract(f, ing.fingerprintLimit)
			return nil
		})
	}

	go func() {
		g.Wait()
		close(outcomes)
	}()

	var results []Result
	for outcome := range outcomes {
		results = append(results, ing.applyOutcome(ctx, outcome, nil, nil))
	}

	return results, nil
}

// IngestFile is the single-file variant of IngestDirectory: the same
// decode/extract/insert sequence, plus InsertTags before
// MarkFingerprinted when tagIDs is non-empty.
func (ing *Ingestor) IngestFile(ctx context.Context, path string, ownerID *int64, tagIDs []int64) Result {
	outcome := decodeAndExtract(path, ing.fingerprintLimit)
	return ing.applyOutcome(ctx, outcome, ownerID, tagIDs)
}

// applyOutcome runs the coordinator's serialized sequence for one
// decoded file: InsertClip -> InsertHashes -> (InsertTags) ->
// MarkFingerprinted -> digest cache refresh. Worker failures are
// logged and skipped; they never abort the batch (spec §4.4 step 5).
func (ing *Ingestor) applyOutcome(ctx context.Context, outcome workerOutcome, ownerID *int64, tagIDs []int64) Result {
	if outcome.err != nil {
		logger.Error(fmt.Errorf("ingest: %s: %w", outcome.path, outcome.err))
		metrics.ClipsFailed.Inc()
		return Result{Path: outcome.path, Err: outcome.err}
	}

	if _, already := ing.digests[outcome.digest]; already {
		metrics.ClipsSkipped.Inc()
		return Result{Path: outcome.path, Skipped: true}
	}

	clipID, err := ing.Index.InsertClip(ctx, outcome.name, outcome.digest, outcome.duration, ownerID)
	if err != nil {
		logger.Error(fmt.Errorf("ingest: insert_clip %s: %w", outcome.path, err))
		metrics.ClipsFailed.Inc()
		return Result{Path: outcome.path, Err: err}
	}

	postings := make([]store.Posting, len(outcome.pairs))
	for i, p := range outcome.pairs {
		postings[i] = store.Posting{Hash: p.Hash, Offset: p.Offset}
	}
	if err := ing.Index.InsertHashes(ctx, clipID, postings); err != nil {
		logger.Error(fmt.Errorf("ingest: insert_hashes %s: %w", outcome.path, err))
		metrics.ClipsFailed.Inc()
		return Result{Path: outcome.path, Err: err}
	}

	if len(tagIDs) > 0 {
		if err := ing.Index.InsertTags(ctx, clipID, tagIDs); err != nil {
			logger.Error(fmt.Errorf("ingest: insert_tags %s: %w", outcome.path, err))
			metrics.ClipsFailed.Inc()
			return Result{Path: outcome.path, Err: err}
		}
	}

	if err := ing.Index.MarkFingerprinted(ctx, clipID); err != nil {
		logger.Error(fmt.Errorf("ingest: mark_fingerprinted %s: %w", outcome.path, err))
		metrics.ClipsFailed.Inc()
		return Result{Path: outcome.path, Err: err}
	}

	ing.digests[outcome.digest] = struct{}{}
	metrics.ClipsIngested.Inc()
	return Result{Path: outcome.path, ClipID: clipID}
}

// decodeAndExtract runs the pure, parallelizable half of ingest: file
// decode and constellation extraction. It never touches the Index.
func decodeAndExtract(path string, fingerprintLimit int) workerOutcome {
	decoded, err := decoder.Decode(path, fingerprintLimit)
	if err != nil {
		return workerOutcome{path: path, err: err}
	}

	pairs := fingerprint.ExtractChannels(decoded.Channels, decoded.SampleRate)
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	return workerOutcome{
		path:     path,
		name:     name,
		pairs:    pairs,
		digest:   decoded.ContentDigest,
		duration: decoded.Duration,
	}
}

// FindFiles walks root and returns every file whose extension (matched
// case-insensitively) appears in extensions.
func FindFiles(root string, extensions []string) ([]string, error) {
	wanted := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		wanted[strings.ToLower(ext)] = struct{}{}
	}

	var files []string
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if _, ok := wanted[strings.ToLower(filepath.Ext(p))]; ok {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
