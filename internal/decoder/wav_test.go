package decoder

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildWAV constructs a minimal canonical RIFF/WAVE header followed by
// the given raw PCM data, for a given bit depth and channel count.
func buildWAV(t *testing.T, sampleRate, numChannels, bitsPerSample int, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	bytesPerSample := bitsPerSample / 8
	blockAlign := uint16(bytesPerSample * numChannels)

	header := riffHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + len(data)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(numChannels),
		SampleRate:    uint32(sampleRate),
		BytesPerSec:   uint32(numChannels * sampleRate * bytesPerSample),
		BlockAlign:    blockAlign,
		BitsPerSample: uint16(bitsPerSample),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(data)),
	}

	require.NoError(t, binary.Write(&buf, binary.LittleEndian, header))
	buf.Write(data)
	return buf.Bytes()
}

func TestDecodeWAV24ManualMonoRoundTrip(t *testing.T) {
	// Three 24-bit little-endian frames: 0x000100 (256), 0x7FFFFF (max), 0x800000 (min).
	data := []byte{
		0x00, 0x01, 0x00,
		0xFF, 0xFF, 0x7F,
		0x00, 0x00, 0x80,
	}
	raw := buildWAV(t, 44100, 1, 24, data)

	channels, sampleRate, duration, err := decodeWAV24Manual(raw)
	require.NoError(t, err)
	require.Equal(t, 44100, sampleRate)
	require.Len(t, channels, 1)
	require.Len(t, channels[0], 3)
	require.InDelta(t, 3.0/44100.0, duration, 1e-9)

	require.Equal(t, int16(1), channels[0][0])
	require.Equal(t, int16(32767), channels[0][1])
	require.Equal(t, int16(-32768), channels[0][2])
}

func TestDecodeWAV24ManualRejectsNonRIFF(t *testing.T) {
	_, _, _, err := decodeWAV24Manual([]byte("not a wav file at all, too short"))
	require.Error(t, err)
}

func TestDecodeWAV24ManualStereoDeinterleaves(t *testing.T) {
	// Two 16-bit stereo frames: (L=100,R=200), (L=300,R=400).
	data := make([]byte, 8)
	binary.LittleEndian.PutUint16(data[0:2], 100)
	binary.LittleEndian.PutUint16(data[2:4], 200)
	binary.LittleEndian.PutUint16(data[4:6], 300)
	binary.LittleEndian.PutUint16(data[6:8], 400)

	raw := buildWAV(t, 8000, 2, 16, data)
	channels, sampleRate, _, err := decodeWAV24Manual(raw)
	require.NoError(t, err)
	require.Equal(t, 8000, sampleRate)
	require.Len(t, channels, 2)
	require.Equal(t, []int16{100, 300}, channels[0])
	require.Equal(t, []int16{200, 400}, channels[1])
}
