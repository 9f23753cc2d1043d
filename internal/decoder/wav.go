package decoder

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// riffHeader mirrors the fixed 44-byte canonical WAV header.
type riffHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	BytesPerSec   uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

const minWAVBytes = 44

// decodeWAVBytes decodes a WAV file's raw bytes to per-channel 16-bit
// PCM. beep/wav handles the common 16-bit case; some 24-bit files beep
// refuses outright, so those fall back to a manual header parse that
// downsamples 24-bit samples to 16 bits by dropping the least
// significant byte (spec §4.1: "24-bit WAV requires a fallback path").
func decodeWAVBytes(raw []byte) (channels [][]int16, sampleRate int, duration float64, err error) {
	channels, sampleRate, duration, err = decodeWAVWithBeep(raw)
	if err == nil {
		return channels, sampleRate, duration, nil
	}

	channels, sampleRate, duration, fallbackErr := decodeWAV24Manual(raw)
	if fallbackErr != nil {
		return nil, 0, 0, fmt.Errorf("beep decode failed (%v), manual fallback failed (%v)", err, fallbackErr)
	}
	return channels, sampleRate, duration, nil
}

func decodeWAVWithBeep(raw []byte) ([][]int16, int, float64, error) {
	streamer, format, err := wav.Decode(nopSeekCloser{bytes.NewReader(raw)})
	if err != nil {
		return nil, 0, 0, err
	}
	defer streamer.Close()

	return collectBeepStream(streamer, format)
}

// decodeWAV24Manual reads a canonical RIFF/WAVE header directly and
// unpacks 16- or 24-bit little-endian PCM data into per-channel int16
// slices.
func decodeWAV24Manual(raw []byte) ([][]int16, int, float64, error) {
	if len(raw) < minWAVBytes {
		return nil, 0, 0, fmt.Errorf("wav: file too short (%d bytes)", len(raw))
	}

	var header riffHeader
	if err := binary.Read(bytes.NewReader(raw[:minWAVBytes]), binary.LittleEndian, &header); err != nil {
		return nil, 0, 0, err
	}
	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		return nil, 0, 0, fmt.Errorf("wav: not a RIFF/WAVE file")
	}
	if header.AudioFormat != 1 {
		return nil, 0, 0, fmt.Errorf("wav: unsupported audio format %d (want PCM)", header.AudioFormat)
	}

	numChannels := int(header.NumChannels)
	bytesPerSample := int(header.BitsPerSample) / 8
	if numChannels == 0 || bytesPerSample == 0 {
		return nil, 0, 0, fmt.Errorf("wav: invalid channel/bit-depth header")
	}

	data := raw[minWAVBytes:]
	if int(header.Subchunk2Size) > 0 && int(header.Subchunk2Size) <= len(data) {
		data = data[:header.Subchunk2Size]
	}

	frameSize := bytesPerSample * numChannels
	numFrames := len(data) / frameSize

	channels := make([][]int16, numChannels)
	for c := range channels {
		channels[c] = make([]int16, numFrames)
	}

	for i := 0; i < numFrames; i++ {
		base := i * frameSize
		for c := 0; c < numChannels; c++ {
			off := base + c*bytesPerSample
			channels[c][i] = sampleToInt16(data[off:off+bytesPerSample], bytesPerSample)
		}
	}

	sampleRate := int(header.SampleRate)
	duration := float64(numFrames) / float64(sampleRate)
	return channels, sampleRate, duration, nil
}

// sampleToInt16 reads a little-endian PCM sample of the given byte
// width and scales it to 16-bit range. 24-bit samples drop their least
// significant byte rather than rounding, matching a straightforward
// bit-depth truncation.
func sampleToInt16(b []byte, width int) int16 {
	switch width {
	case 2:
		return int16(binary.LittleEndian.Uint16(b))
	case 3:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= -1 << 24 // sign-extend
		}
		return int16(v >> 8)
	default:
		return 0
	}
}

// nopSeekCloser adapts a bytes.Reader to beep's io.ReadSeekCloser
// contract without owning an underlying file descriptor to close.
type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }

// collectBeepStream drains a beep streamer into per-channel int16
// slices. beep always yields stereo float64 frames in [-1, 1]
// regardless of the source's channel count, so mono sources are
// recovered by keeping only the left copy when format.NumChannels <= 1.
func collectBeepStream(streamer beep.Streamer, format beep.Format) ([][]int16, int, float64, error) {
	const chunk = 4096
	buf := make([][2]float64, chunk)

	var left, right []int16
	for {
		n, ok := streamer.Stream(buf)
		for i := 0; i < n; i++ {
			left = append(left, floatToInt16(buf[i][0]))
			right = append(right, floatToInt16(buf[i][1]))
		}
		if !ok {
			break
		}
	}

	var channels [][]int16
	if format.NumChannels <= 1 {
		channels = [][]int16{left}
	} else {
		channels = [][]int16{left, right}
	}

	duration := float64(len(left)) / float64(format.SampleRate)
	return channels, int(format.SampleRate), duration, nil
}

func floatToInt16(v float64) int16 {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}
