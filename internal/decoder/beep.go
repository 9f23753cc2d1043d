package decoder

import (
	"fmt"
	"os"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/mewkiz/flac"
)

type beepKind int

const (
	beepKindMP3 beepKind = iota
	beepKindFLAC
)

// decodeWithBeep opens path and decodes it with the container-specific
// front end selected by kind, then drains the stream into per-channel
// PCM the same way the WAV path does.
func decodeWithBeep(path string, kind beepKind) ([][]int16, int, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	switch kind {
	case beepKindMP3:
		streamer, format, err := mp3.Decode(f)
		if err != nil {
			return nil, 0, 0, err
		}
		defer streamer.Close()
		return collectBeepStream(streamer, format)
	case beepKindFLAC:
		return decodeFLAC(f)
	default:
		return nil, 0, 0, fmt.Errorf("decoder: unknown beep kind %d", kind)
	}
}

// decodeFLAC reads a FLAC stream directly with mewkiz/flac, since beep
// has no FLAC front-end package of its own, and converts its frames to
// the same per-channel int16 shape the WAV/MP3 paths produce.
func decodeFLAC(f *os.File) ([][]int16, int, float64, error) {
	stream, err := flac.Parse(f)
	if err != nil {
		return nil, 0, 0, err
	}

	numChannels := int(stream.Info.NChannels)
	sampleRate := int(stream.Info.SampleRate)
	bitsPerSample := int(stream.Info.BitsPerSample)

	channels := make([][]int16, numChannels)

	for {
		frame, err := stream.ParseNext()
		if err != nil {
			break
		}
		for c := 0; c < numChannels && c < len(frame.Subframes); c++ {
			for _, s := range frame.Subframes[c].Samples {
				channels[c] = append(channels[c], shiftToInt16(s, bitsPerSample))
			}
		}
	}

	if len(channels) == 0 || len(channels[0]) == 0 {
		return nil, 0, 0, fmt.Errorf("flac: no samples decoded")
	}

	duration := float64(len(channels[0])) / float64(sampleRate)
	return channels, sampleRate, duration, nil
}

// shiftToInt16 rescales a FLAC sample of the stream's native bit depth
// down to 16-bit range.
func shiftToInt16(sample int32, bitsPerSample int) int16 {
	shift := bitsPerSample - 16
	if shift <= 0 {
		return int16(sample)
	}
	return int16(sample >> uint(shift))
}
