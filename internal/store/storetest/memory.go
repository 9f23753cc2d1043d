// Package storetest provides an in-memory store.Index used by the
// ingest, match, and recognizer test suites in place of a live MySQL
// or PostgreSQL backend.
package storetest

import (
	"context"
	"sync"

	"github.com/media-luna/eureka/internal/fingerprint"
	"github.com/media-luna/eureka/internal/store"
)

// Index is a store.Index backed by plain maps, guarded by a mutex to
// match the concurrent-coordinator usage pattern of the real backends.
type Index struct {
	mu       sync.Mutex
	nextID   int64
	clips    map[int64]*store.Clip
	postings map[int64][]store.Posting
	tags     map[int64][]int64
	byHash   map[fingerprint.Hash][]store.Hit
}

// New returns an empty in-memory Index.
func New() *Index {
	return &Index{
		clips:    make(map[int64]*store.Clip),
		postings: make(map[int64][]store.Posting),
		tags:     make(map[int64][]int64),
		byHash:   make(map[fingerprint.Hash][]store.Hit),
	}
}

func (idx *Index) Close() error { return nil }

func (idx *Index) InsertClip(_ context.Context, name, contentDigest string, duration float64, ownerID *int64) (int64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.nextID++
	id := idx.nextID
	idx.clips[id] = &store.Clip{
		ClipID:        id,
		Name:          name,
		ContentDigest: contentDigest,
		Duration:      duration,
		Fingerprinted: false,
		OwnerID:       ownerID,
	}
	return id, nil
}

func (idx *Index) InsertTags(_ context.Context, clipID int64, tagIDs []int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tags[clipID] = append(idx.tags[clipID], tagIDs...)
	return nil
}

func (idx *Index) InsertHashes(_ context.Context, clipID int64, postings []store.Posting) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	existing := make(map[store.Posting]struct{}, len(idx.postings[clipID]))
	for _, p := range idx.postings[clipID] {
		existing[p] = struct{}{}
	}

	for _, p := range postings {
		if _, dup := existing[p]; dup {
			continue
		}
		existing[p] = struct{}{}
		idx.postings[clipID] = append(idx.postings[clipID], p)
		idx.byHash[p.Hash] = append(idx.byHash[p.Hash], store.Hit{
			Hash:   p.Hash,
			ClipID: clipID,
			Offset: p.Offset,
		})
	}
	return nil
}

func (idx *Index) MarkFingerprinted(_ context.Context, clipID int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if c, ok := idx.clips[clipID]; ok {
		c.Fingerprinted = true
	}
	return nil
}

func (idx *Index) Lookup(_ context.Context, hashes []fingerprint.Hash) ([]store.Hit, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	var hits []store.Hit
	for _, h := range hashes {
		hits = append(hits, idx.byHash[h]...)
	}
	return hits, nil
}

func (idx *Index) ListClipDigests(_ context.Context, ownerID *int64) (map[string]struct{}, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	digests := make(map[string]struct{})
	for _, c := range idx.clips {
		if !c.Fingerprinted {
			continue
		}
		if ownerID != nil && (c.OwnerID == nil || *c.OwnerID != *ownerID) {
			continue
		}
		digests[c.ContentDigest] = struct{}{}
	}
	return digests, nil
}

func (idx *Index) GetClip(_ context.Context, clipID int64) (*store.Clip, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	c, ok := idx.clips[clipID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (idx *Index) GetTags(_ context.Context, clipID int64) ([]int64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return append([]int64(nil), idx.tags[clipID]...), nil
}

func (idx *Index) DeleteUnfingerprinted(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for id, c := range idx.clips {
		if c.Fingerprinted {
			continue
		}
		delete(idx.clips, id)
		for _, p := range idx.postings[id] {
			idx.byHash[p.Hash] = removeHit(idx.byHash[p.Hash], id)
		}
		delete(idx.postings, id)
		delete(idx.tags, id)
	}
	return nil
}

func removeHit(hits []store.Hit, clipID int64) []store.Hit {
	out := hits[:0]
	for _, h := range hits {
		if h.ClipID != clipID {
			out = append(out, h)
		}
	}
	return out
}

var _ store.Index = (*Index)(nil)
