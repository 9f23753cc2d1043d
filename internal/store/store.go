// Package store defines the backend-agnostic persistence contract for
// Clips and HashPostings: the capability set the matching core depends
// on, independent of which SQL backend implements it.
package store

import (
	"context"
	"time"

	"github.com/media-luna/eureka/internal/fingerprint"
)

// Clip is a fingerprinted reference audio item.
type Clip struct {
	ClipID        int64
	Name          string
	ContentDigest string // uppercase hex SHA-1, 40 chars
	Duration      float64
	Fingerprinted bool
	OwnerID       *int64
}

// Posting is one (hash, offset) pair to be attached to a clip during
// bulk insert.
type Posting struct {
	Hash   fingerprint.Hash
	Offset int
}

// Hit is a single stored posting returned by a lookup, already
// resolved to its owning clip.
type Hit struct {
	Hash   fingerprint.Hash
	ClipID int64
	Offset int
}

// Index is the full capability set the ingestor, matcher, and
// recognizer depend on. Concrete backends (mysql, postgres) implement
// it; the matching core never depends on a specific backend type.
type Index interface {
	// InsertClip inserts a new Clip row with Fingerprinted = false and
	// returns its assigned clip_id. Content-digest uniqueness is not
	// enforced here; callers dedup upstream via ListClipDigests.
	InsertClip(ctx context.Context, name, contentDigest string, duration float64, ownerID *int64) (int64, error)

	// InsertTags attaches opaque tag ids to a clip.
	InsertTags(ctx context.Context, clipID int64, tagIDs []int64) error

	// InsertHashes durably persists all postings for a clip in one
	// transaction: either all are visible afterward, or none are.
	// Duplicate (hash, clip_id, offset) triples are silently dropped.
	InsertHashes(ctx context.Context, clipID int64, postings []Posting) error

	// MarkFingerprinted flips a clip's Fingerprinted flag. Idempotent.
	MarkFingerprinted(ctx context.Context, clipID int64) error

	// Lookup returns every stored posting whose hash is in hashes. An
	// empty input returns an empty result without contacting the
	// backend.
	Lookup(ctx context.Context, hashes []fingerprint.Hash) ([]Hit, error)

	// ListClipDigests returns the content digests of all fingerprinted
	// clips. If ownerID is non-nil, the result is scoped to that owner.
	ListClipDigests(ctx context.Context, ownerID *int64) (map[string]struct{}, error)

	// GetClip returns a clip by id, or (nil, nil) if it does not exist.
	GetClip(ctx context.Context, clipID int64) (*Clip, error)

	// GetTags returns the tag ids attached to a clip.
	GetTags(ctx context.Context, clipID int64) ([]int64, error)

	// DeleteUnfingerprinted garbage-collects clips inserted but never
	// completed (crash between InsertClip and MarkFingerprinted).
	DeleteUnfingerprinted(ctx context.Context) error

	// Close releases backend resources (connection pool).
	Close() error
}

// connectTimeout is the default dial/connect timeout. The mysql and
// postgres backends do not reference it: each sets the same 5-second
// value in its own DSN and setup code.
const connectTimeout = 5 * time.Second
