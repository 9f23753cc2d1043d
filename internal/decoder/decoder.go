// Package decoder adapts on-disk audio files to the PCM contract the
// fingerprint extractor consumes: per-channel 16-bit sample slices, a
// sample rate, a content digest for dedup, and a duration in seconds.
// It is out-of-core glue (spec §4.1) — the core engine only depends on
// the Decoded shape below, never on a specific container format.
package decoder

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Decoded is the result of adapting one audio file to the PCM contract.
type Decoded struct {
	// Channels holds one slice of interleaved-free 16-bit samples per
	// audio channel; every channel slice has the same length.
	Channels [][]int16
	// SampleRate is the sample rate, in Hz, of the samples in Channels.
	SampleRate int
	// ContentDigest is the uppercase hex SHA-1 of the raw file bytes.
	ContentDigest string
	// Duration is the audio length in seconds, computed from the full
	// (pre-truncation) sample count.
	Duration float64
}

// Decode reads path and returns its PCM contract. If limitSeconds is
// positive, each channel is truncated to the first
// limitSeconds*SampleRate samples; Duration always reflects the full
// file regardless of truncation. Unsupported formats and I/O failures
// return a *DecodeError.
func Decode(path string, limitSeconds int) (*Decoded, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, newDecodeError(path, err)
	}

	digest := sha1.Sum(raw)
	contentDigest := strings.ToUpper(hex.EncodeToString(digest[:]))

	ext := strings.ToLower(filepath.Ext(path))

	var channels [][]int16
	var sampleRate int
	var duration float64

	switch ext {
	case ".wav":
		channels, sampleRate, duration, err = decodeWAVBytes(raw)
	case ".mp3":
		channels, sampleRate, duration, err = decodeWithBeep(path, beepKindMP3)
	case ".flac":
		channels, sampleRate, duration, err = decodeWithBeep(path, beepKindFLAC)
	default:
		channels, sampleRate, duration, err = decodeViaFFmpeg(path)
	}
	if err != nil {
		return nil, newDecodeError(path, err)
	}
	if err := validateChannels(channels); err != nil {
		return nil, newDecodeError(path, err)
	}

	if limitSeconds > 0 {
		limit := limitSeconds * sampleRate
		for i, ch := range channels {
			if len(ch) > limit {
				channels[i] = ch[:limit]
			}
		}
	}

	return &Decoded{
		Channels:      channels,
		SampleRate:    sampleRate,
		ContentDigest: contentDigest,
		Duration:      duration,
	}, nil
}

func validateChannels(channels [][]int16) error {
	if len(channels) == 0 {
		return fmt.Errorf("decoder: no channels decoded")
	}
	n := len(channels[0])
	for i, ch := range channels {
		if len(ch) != n {
			return fmt.Errorf("decoder: channel %d has %d samples, want %d", i, len(ch), n)
		}
	}
	return nil
}
