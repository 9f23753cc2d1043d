package recognizer

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/media-luna/eureka/internal/ingest"
	"github.com/media-luna/eureka/internal/store/storetest"
)

func writeToneWAV(t *testing.T, path string, sampleRate, seconds int, freq float64) {
	t.Helper()

	n := sampleRate * seconds
	data := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16(12000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
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

func TestRecognizeSelfMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.wav")
	writeToneWAV(t, path, 44100, 10, 1500)

	idx := storetest.New()
	ctx := context.Background()

	ing, err := ingest.New(ctx, idx, -1)
	require.NoError(t, err)
	ingested := ing.IngestFile(ctx, path, nil, nil)
	require.NoError(t, ingested.Err)

	r := New(idx, -1)
	result, err := r.Recognize(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, ingested.ClipID, result.ClipID)
	require.Equal(t, 0, result.Offset)
	require.InDelta(t, 0, result.OffsetSeconds, 0.05)
	require.Greater(t, result.Confidence, 100)
	require.Greater(t, result.RelativeConfidence, 3.0)
}

func TestRecognizeNoMatchReturnsNil(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "A.wav")
	b := filepath.Join(dir, "B.wav")
	writeToneWAV(t, a, 44100, 5, 1000)
	writeToneWAV(t, b, 44100, 5, 3000)

	idx := storetest.New()
	ctx := context.Background()

	ing, err := ingest.New(ctx, idx, -1)
	require.NoError(t, err)
	require.NoError(t, ing.IngestFile(ctx, a, nil, nil).Err)

	r := New(idx, -1)
	result, err := r.Recognize(ctx, b)
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestRecognizeDirectoryDrainsAllFiles(t *testing.T) {
	dir := t.TempDir()
	indexed := filepath.Join(dir, "A.wav")
	writeToneWAV(t, indexed, 44100, 10, 1500)

	idx := storetest.New()
	ctx := context.Background()

	ing, err := ingest.New(ctx, idx, -1)
	require.NoError(t, err)
	ingested := ing.IngestFile(ctx, indexed, nil, nil)
	require.NoError(t, ingested.Err)

	queryDir := t.TempDir()
	match := filepath.Join(queryDir, "match.wav")
	noMatch := filepath.Join(queryDir, "nomatch.wav")
	writeToneWAV(t, match, 44100, 10, 1500)
	writeToneWAV(t, noMatch, 44100, 5, 3000)

	r := New(idx, -1)
	results, err := r.RecognizeDirectory(ctx, queryDir, []string{".wav"}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byPath := make(map[string]DirectoryResult, len(results))
	for _, res := range results {
		byPath[res.Path] = res
	}

	matched := byPath[match]
	require.NoError(t, matched.Err)
	require.NotNil(t, matched.Result)
	require.Equal(t, ingested.ClipID, matched.Result.ClipID)

	unmatched := byPath[noMatch]
	require.NoError(t, unmatched.Err)
	require.Nil(t, unmatched.Result)
}

func TestRecognizeTagFilterRejectsUnexpectedTag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.wav")
	writeToneWAV(t, path, 44100, 10, 1500)

	idx := storetest.New()
	ctx := context.Background()

	ing, err := ingest.New(ctx, idx, -1)
	require.NoError(t, err)
	ingested := ing.IngestFile(ctx, path, nil, []int64{7})
	require.NoError(t, ingested.Err)

	r := New(idx, -1)
	result, err := r.RecognizeTag(ctx, path, 99)
	require.NoError(t, err)
	require.Nil(t, result)

	result, err = r.RecognizeTag(ctx, path, 7)
	require.NoError(t, err)
	require.NotNil(t, result)
}
