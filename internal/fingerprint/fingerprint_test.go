package fingerprint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineWave(freq float64, sampleRate, n int, amplitude float64) []int16 {
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		samples[i] = int16(v)
	}
	return samples
}

func TestExtractEmptyInputYieldsEmptySet(t *testing.T) {
	pairs := Extract(nil, 44100)
	assert.Empty(t, pairs)

	pairs = Extract([]int16{}, 44100)
	assert.Empty(t, pairs)
}

func TestExtractDeterministic(t *testing.T) {
	samples := sineWave(1000, 44100, 44100*3, 20000)

	a := Extract(samples, 44100)
	b := Extract(samples, 44100)

	require.Equal(t, len(a), len(b))
	seenA := make(map[Pair]struct{}, len(a))
	for _, p := range a {
		seenA[p] = struct{}{}
	}
	for _, p := range b {
		_, ok := seenA[p]
		assert.True(t, ok, "pair %v present in second run but not first", p)
	}
}

func TestExtractFanOutBound(t *testing.T) {
	samples := sineWave(2000, 44100, 44100*5, 20000)
	spec := computeSpectrogram(floatsOf(samples))
	peaks := pickPeaks(spec)
	pairs := generatePairs(peaks)

	maxPairs := len(peaks) * FanOut
	assert.LessOrEqual(t, len(pairs), maxPairs)
}

func TestExtractShortSignalYieldsNoPeaks(t *testing.T) {
	samples := make([]int16, WindowSize-1)
	pairs := Extract(samples, 44100)
	assert.Empty(t, pairs)
}

func TestExtractChannelsUnion(t *testing.T) {
	ch1 := sineWave(1200, 44100, 44100*2, 20000)
	ch2 := sineWave(1800, 44100, 44100*2, 20000)

	union := ExtractChannels([][]int16{ch1, ch2}, 44100)
	a := Extract(ch1, 44100)
	b := Extract(ch2, 44100)

	assert.LessOrEqual(t, len(union), len(a)+len(b))
	assert.NotEmpty(t, union)
}

func TestHashRoundTrip(t *testing.T) {
	h := hashPair(512, 900, 37)
	s := h.String()
	require.Len(t, s, HashSize*2)

	parsed, err := ParseHash(s)
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestParseHashRejectsWrongLength(t *testing.T) {
	_, err := ParseHash("abcd")
	assert.Error(t, err)
}

func floatsOf(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / 32768.0
	}
	return out
}
