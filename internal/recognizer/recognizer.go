// Package recognizer implements the facade that drives decode ->
// extract -> match -> result shaping described in spec §4.6.
package recognizer

import (
	"context"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/media-luna/eureka/internal/decoder"
	"github.com/media-luna/eureka/internal/fingerprint"
	"github.com/media-luna/eureka/internal/ingest"
	"github.com/media-luna/eureka/internal/match"
	"github.com/media-luna/eureka/internal/metrics"
	"github.com/media-luna/eureka/internal/store"
)

// Canonical accept thresholds (spec §4.6/§6): a match must strictly
// exceed both; at or below either, it is treated as "not recognized"
// and collapsed to nil.
const (
	minRelativeConfidence = 3.0
	minConfidence         = 100
)

// MatchResult is the external match-result object of spec §6.
type MatchResult struct {
	ClipID             int64
	ClipName           string
	Confidence         int
	RelativeConfidence float64
	MatchTime          float64
	Offset             int
	OffsetSeconds      float64
	ContentDigest      string
	Duration           float64
	Tags               []int64
}

// Recognizer is the single entry point for turning a decoded audio
// source into a MatchResult.
type Recognizer struct {
	Index store.Index

	// fingerprintLimit is the decode duration cap, in seconds, passed
	// to decoder.Decode; -1 means no limit (spec §6 fingerprint_limit).
	fingerprintLimit int
}

// New returns a Recognizer backed by idx. fingerprintLimit bounds the
// decoded duration, in seconds, per query file; -1 means no limit.
func New(idx store.Index, fingerprintLimit int) *Recognizer {
	return &Recognizer{Index: idx, fingerprintLimit: fingerprintLimit}
}

// Recognize decodes path, extracts its constellation hashes, matches
// them against the Index, and shapes the result. It returns (nil, nil)
// when there is no match or the match falls below the accept
// thresholds — NoMatch is not an error (spec §7).
func (r *Recognizer) Recognize(ctx context.Context, path string) (*MatchResult, error) {
	decoded, err := decoder.Decode(path, r.fingerprintLimit)
	if err != nil {
		return nil, err
	}
	return r.recognizeDecoded(ctx, decoded)
}

// RecognizeSamples matches a raw mono PCM capture (e.g. from a
// microphone) the same way Recognize matches a decoded file, without
// requiring a content digest or duration — neither is meaningful for a
// live capture (spec §9: the microphone source is an opaque PCM
// producer sharing the decoder's contract).
func (r *Recognizer) RecognizeSamples(ctx context.Context, samples []int16, sampleRate int) (*MatchResult, error) {
	decoded := &decoder.Decoded{
		Channels:   [][]int16{samples},
		SampleRate: sampleRate,
	}
	return r.recognizeDecoded(ctx, decoded)
}

// DirectoryResult is the outcome of recognizing one file within a
// RecognizeDirectory batch.
type DirectoryResult struct {
	Path   string
	Result *MatchResult
	Err    error
}

// RecognizeDirectory enumerates files under path matching extensions
// and recognizes each with up to workerCount concurrent workers,
// mirroring ingest.IngestDirectory's worker-pool shape. Unlike
// ingestion, recognition only reads the Index, so workers run
// Recognize directly with no serializing coordinator. The pool is
// always drained: every file gets a DirectoryResult, in the original
// file order, rather than returning on the first match.
func (r *Recognizer) RecognizeDirectory(ctx context.Context, path string, extensions []string, workerCount int) ([]DirectoryResult, error) {
	files, err := ingest.FindFiles(path, extensions)
	if err != nil {
		return nil, err
	}

	if workerCount <= 0 || workerCount > runtime.NumCPU() {
		workerCount = runtime.NumCPU()
	}

	results := make([]DirectoryResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			result, err := r.Recognize(gctx, f)
			results[i] = DirectoryResult{Path: f, Result: result, Err: err}
			return nil
		})
	}
	g.Wait()

	return results, nil
}

// RecognizeTag is Recognize followed by a post-match tag filter: the
// result is accepted only if the matched clip's tag set contains
// expectedTag. This never prunes the index search (spec §4.6).
func (r *Recognizer) RecognizeTag(ctx context.Context, path string, expectedTag int64) (*MatchResult, error) {
	result, err := r.Recognize(ctx, path)
	if err != nil || result == nil {
		return result, err
	}

	for _, tag := range result.Tags {
		if tag == expectedTag {
			return result, nil
		}
	}
	return nil, nil
}

func (r *Recognizer) recognizeDecoded(ctx context.Context, decoded *decoder.Decoded) (*MatchResult, error) {
	start := time.Now()
	defer func() { metrics.MatchLatencySeconds.Observe(time.Since(start).Seconds()) }()

	pairs := fingerprint.ExtractChannels(decoded.Channels, decoded.SampleRate)
	if len(pairs) == 0 {
		return nil, nil
	}

	queryPairs := make(map[fingerprint.Hash]int, len(pairs))
	for _, p := range pairs {
		queryPairs[p.Hash] = p.Offset // last occurrence wins, per spec §4.5
	}

	matched, err := match.Match(ctx, r.Index, queryPairs, len(pairs))
	if err != nil {
		return nil, err
	}
	if matched == nil {
		return nil, nil
	}

	if matched.RelativeConfidence <= minRelativeConfidence || matched.Confidence <= minConfidence {
		return nil, nil
	}

	clip, err := r.Index.GetClip(ctx, matched.ClipID)
	if err != nil {
		return nil, err
	}
	if clip == nil {
		return nil, nil
	}

	tags, err := r.Index.GetTags(ctx, matched.ClipID)
	if err != nil {
		return nil, err
	}

	hop := float64(fingerprint.HopSize)
	offsetSeconds := round5(float64(matched.Offset) * hop / float64(decoded.SampleRate))

	return &MatchResult{
		ClipID:             clip.ClipID,
		ClipName:           clip.Name,
		Confidence:         matched.Confidence,
		RelativeConfidence: round2(matched.RelativeConfidence),
		MatchTime:          round2(time.Since(start).Seconds()),
		Offset:             matched.Offset,
		OffsetSeconds:      offsetSeconds,
		ContentDigest:      clip.ContentDigest,
		Duration:           clip.Duration,
		Tags:               tags,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round5(v float64) float64 {
	return math.Round(v*100000) / 100000
}
