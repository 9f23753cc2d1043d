// Package match implements the offset-difference histogram algorithm
// that aligns a query's hash set against stored postings (spec §4.5).
package match

import (
	"context"

	"github.com/media-luna/eureka/internal/fingerprint"
	"github.com/media-luna/eureka/internal/store"
)

// Result is the best-aligning clip found for a query, before the
// recognizer facade's accept-threshold and tag filtering.
type Result struct {
	ClipID             int64
	Confidence         int
	RelativeConfidence float64
	Offset             int
}

type histogramKey struct {
	delta  int
	clipID int64
}

// Match runs the matcher against idx for a query hash set. queryPairs
// maps each hash to the query-side offset at which it occurred (last
// occurrence wins on duplicate hashes, per spec §4.5).
// totalQueryHashes is the pre-dedup count used as the relative-
// confidence denominator. Returns (nil, nil) when no posting matched
// any query hash ("no match" is not an error, spec §7).
func Match(ctx context.Context, idx store.Index, queryPairs map[fingerprint.Hash]int, totalQueryHashes int) (*Result, error) {
	hashes := make([]fingerprint.Hash, 0, len(queryPairs))
	for h := range queryPairs {
		hashes = append(hashes, h)
	}

	hits, err := idx.Lookup(ctx, hashes)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	histogram := make(map[histogramKey]int)

	var bestKey histogramKey
	bestCount := 0

	// Ties are broken by first-seen: the running argmax only moves
	// when a count strictly exceeds the current leader, so a later key
	// reaching the same count never displaces an earlier one.
	for _, hit := range hits {
		queryOffset, ok := queryPairs[hit.Hash]
		if !ok {
			continue
		}
		delta := hit.Offset - queryOffset
		key := histogramKey{delta: delta, clipID: hit.ClipID}

		histogram[key]++
		if histogram[key] > bestCount {
			bestCount = histogram[key]
			bestKey = key
		}
	}

	if bestCount <= 0 {
		return nil, nil
	}

	relConf := 0.0
	if totalQueryHashes > 0 {
		relConf = 100 * float64(bestCount) / float64(totalQueryHashes)
	}

	return &Result{
		ClipID:             bestKey.clipID,
		Confidence:         bestCount,
		RelativeConfidence: relConf,
		Offset:             bestKey.delta,
	}, nil
}
