package ingest

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/media-luna/eureka/internal/store/storetest"
)

// writeToneWAV writes a mono 16-bit PCM WAV file containing a pure
// tone, long enough to produce at least one STFT frame.
func writeToneWAV(t *testing.T, path string, sampleRate, seconds int, freq float64) {
	t.Helper()

	n := sampleRate * seconds
	data := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16(10000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		binary.LittleEndian.PutUint16(data[i*2:i*2+2], uint16(v))
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestIngestFileInsertsFingerprintedClip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeToneWAV(t, path, 44100, 3, 1500)

	idx := storetest.New()
	ctx := context.Background()
	ing, err := New(ctx, idx, -1)
	require.NoError(t, err)

	result := ing.IngestFile(ctx, path, nil, nil)
	require.NoError(t, result.Err)
	require.False(t, result.Skipped)
	require.NotZero(t, result.ClipID)

	clip, err := idx.GetClip(ctx, result.ClipID)
	require.NoError(t, err)
	require.NotNil(t, clip)
	require.True(t, clip.Fingerprinted)
}

func TestIngestFileTwiceSkipsSecondInsert(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeToneWAV(t, path, 44100, 3, 1500)

	idx := storetest.New()
	ctx := context.Background()
	ing, err := New(ctx, idx, -1)
	require.NoError(t, err)

	first := ing.IngestFile(ctx, path, nil, nil)
	require.NoError(t, first.Err)

	second := ing.IngestFile(ctx, path, nil, nil)
	require.NoError(t, second.Err)
	require.True(t, second.Skipped)
}

func TestIngestDirectoryProcessesAllMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	writeToneWAV(t, filepath.Join(dir, "a.wav"), 44100, 3, 1200)
	writeToneWAV(t, filepath.Join(dir, "b.wav"), 44100, 3, 1800)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("not audio"), 0o644))

	idx := storetest.New()
	ctx := context.Background()
	ing, err := New(ctx, idx, -1)
	require.NoError(t, err)

	results, err := ing.IngestDirectory(ctx, dir, []string{".wav"}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
		require.NotZero(t, r.ClipID)
	}
}
