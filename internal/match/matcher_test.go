package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/media-luna/eureka/internal/fingerprint"
	"github.com/media-luna/eureka/internal/store"
	"github.com/media-luna/eureka/internal/store/storetest"
)

func hashOf(t *testing.T, hex string) fingerprint.Hash {
	t.Helper()
	h, err := fingerprint.ParseHash(hex)
	require.NoError(t, err)
	return h
}

func TestMatchNoHitsReturnsNilResult(t *testing.T) {
	idx := storetest.New()
	queryPairs := map[fingerprint.Hash]int{
		hashOf(t, "0011223344556677889a"): 0,
	}
	result, err := Match(context.Background(), idx, queryPairs, 1)
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestMatchEmptyQuerySkipsBackend(t *testing.T) {
	idx := storetest.New()
	result, err := Match(context.Background(), idx, nil, 0)
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestMatchPicksDominantDeltaClip(t *testing.T) {
	ctx := context.Background()
	idx := storetest.New()

	clipA, err := idx.InsertClip(ctx, "A", "AAAA", 10, nil)
	require.NoError(t, err)
	clipB, err := idx.InsertClip(ctx, "B", "BBBB", 10, nil)
	require.NoError(t, err)

	hA1 := hashOf(t, "0011223344556677889a")
	hA2 := hashOf(t, "1111223344556677889a")
	hA3 := hashOf(t, "2211223344556677889a")
	hB1 := hashOf(t, "3311223344556677889a")

	// Clip A's postings all align at delta=100 (ref_offset - query_offset).
	require.NoError(t, idx.InsertHashes(ctx, clipA, []store.Posting{
		{Hash: hA1, Offset: 110}, // query offset 10 -> delta 100
		{Hash: hA2, Offset: 120}, // query offset 20 -> delta 100
		{Hash: hA3, Offset: 130}, // query offset 30 -> delta 100
	}))
	// Clip B has a single, non-dominant posting.
	require.NoError(t, idx.InsertHashes(ctx, clipB, []store.Posting{
		{Hash: hB1, Offset: 5}, // query offset 40 -> delta -35
	}))

	queryPairs := map[fingerprint.Hash]int{
		hA1: 10,
		hA2: 20,
		hA3: 30,
		hB1: 40,
	}

	result, err := Match(ctx, idx, queryPairs, 4)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, clipA, result.ClipID)
	require.Equal(t, 3, result.Confidence)
	require.Equal(t, 100, result.Offset)
	require.InDelta(t, 75.0, result.RelativeConfidence, 1e-9)
}

func TestMatchSingleUniqueHitYieldsFullRelativeConfidence(t *testing.T) {
	ctx := context.Background()
	idx := storetest.New()

	clipA, err := idx.InsertClip(ctx, "A", "AAAA", 10, nil)
	require.NoError(t, err)

	h := hashOf(t, "0011223344556677889a")
	require.NoError(t, idx.InsertHashes(ctx, clipA, []store.Posting{{Hash: h, Offset: 5}}))

	result, err := Match(ctx, idx, map[fingerprint.Hash]int{h: 5}, 1)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, 1, result.Confidence)
	require.Equal(t, 100.0, result.RelativeConfidence)
	require.Equal(t, 0, result.Offset)
}
