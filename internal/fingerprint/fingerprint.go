package fingerprint

// Constellation pairing parameters (spec.md §4.2).
const (
	// FanOut is the max number of forward pairings per anchor peak (F).
	FanOut = 15
	// MinDT is the minimum target-zone time delta, in frames, inclusive.
	MinDT = 0
	// MaxDT is the maximum target-zone time delta, in frames, inclusive.
	MaxDT = 200
)

// Pair is one (hash, offset) landmark produced by the extractor. Offset is
// the anchor peak's time-bin index (t1).
type Pair struct {
	Hash   Hash
	Offset int
}

// Extract converts one channel of 16-bit PCM samples into the set of
// constellation-pair landmarks described in spec.md §4.2. The result is a
// deduplicated set: identical (hash, offset) tuples collapse to one
// element, but the same hash at two different offsets remains two
// elements, since offset is part of the tuple identity.
//
// Extraction is pure and deterministic: identical input always produces
// an identical output set. Empty input yields an empty set, never an
// error.
func Extract(samples []int16, sampleRate int) []Pair {
	if len(samples) == 0 {
		return nil
	}

	floats := make([]float64, len(samples))
	for i, s := range samples {
		floats[i] = float64(s) / 32768.0
	}

	spec := computeSpectrogram(floats)
	peaks := pickPeaks(spec)
	return generatePairs(peaks)
}

// ExtractChannels applies Extract to each channel independently and
// returns the union of the resulting pair sets, per spec.md §4.2
// ("the union of pair sets is returned").
func ExtractChannels(channels [][]int16, sampleRate int) []Pair {
	seen := make(map[Pair]struct{})
	var union []Pair
	for _, ch := range channels {
		for _, p := range Extract(ch, sampleRate) {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			union = append(union, p)
		}
	}
	return union
}

// generatePairs fans each peak out to up to FanOut subsequent peaks (in
// time order, since pickPeaks returns peaks in ascending (t, f) order),
// keeping only pairs whose time delta falls in [MinDT, MaxDT].
func generatePairs(peaks []peak) []Pair {
	if len(peaks) == 0 {
		return nil
	}

	seen := make(map[Pair]struct{})
	var pairs []Pair
	for i, anchor := range peaks {
		end := i + 1 + FanOut
		if end > len(peaks) {
			end = len(peaks)
		}
		for j := i + 1; j < end; j++ {
			target := peaks[j]
			dt := target.t - anchor.t
			if dt < MinDT || dt > MaxDT {
				continue
			}

			p := Pair{
				Hash:   hashPair(anchor.f, target.f, dt),
				Offset: anchor.t,
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			pairs = append(pairs, p)
		}
	}
	return pairs
}
