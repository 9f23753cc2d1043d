// Package postgres implements the Index contract on top of
// PostgreSQL, via github.com/lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/media-luna/eureka/internal/fingerprint"
	"github.com/media-luna/eureka/internal/store"
)

const (
	clipTable    = "clip"
	postingTable = "hash_posting"
	tagTable     = "clip_tag"

	maxOpenConns    = 5
	insertBatchSize = 1000
	connectTimeout  = 5 * time.Second
)

const createClipTable = `
CREATE TABLE IF NOT EXISTS ` + clipTable + ` (
	clip_id        BIGSERIAL PRIMARY KEY,
	name           VARCHAR(250) NOT NULL,
	fingerprinted  BOOLEAN NOT NULL DEFAULT FALSE,
	content_digest BYTEA NOT NULL,
	duration       DOUBLE PRECISION,
	owner_id       BIGINT
);`

const createPostingTable = `
CREATE TABLE IF NOT EXISTS ` + postingTable + ` (
	hash    BYTEA NOT NULL,
	clip_id BIGINT NOT NULL REFERENCES ` + clipTable + `(clip_id) ON DELETE CASCADE,
	offset_ INT NOT NULL,
	UNIQUE (hash, clip_id, offset_)
);
CREATE INDEX IF NOT EXISTS hash_posting_hash_idx ON ` + postingTable + ` (hash);`

const createTagTable = `
CREATE TABLE IF NOT EXISTS ` + tagTable + ` (
	id      BIGSERIAL PRIMARY KEY,
	clip_id BIGINT NOT NULL REFERENCES ` + clipTable + `(clip_id) ON DELETE CASCADE,
	tag_id  BIGINT NOT NULL
);`

const deleteUnfingerprinted = `DELETE FROM ` + clipTable + ` WHERE fingerprinted = FALSE;`

// Index implements store.Index against PostgreSQL.
type Index struct {
	db *sql.DB
}

// Config holds the connection parameters for Open.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (c Config) dsn() string {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=5",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Open connects to PostgreSQL, creates the schema if absent, and runs
// the startup garbage collection of partially-ingested clips, mirroring
// SQLDatabase.setup()'s unconditional DELETE_UNFINGERPRINTED call.
func Open(cfg Config) (*Index, error) {
	db, err := sql.Open("postgres", cfg.dsn())
	if err != nil {
		return nil, store.NewStoreError("open", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	idx := &Index{db: db}
	if err := idx.setup(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) setup() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	for _, stmt := range []string{createClipTable, createPostingTable, createTagTable, deleteUnfingerprinted} {
		if _, err := idx.db.ExecContext(ctx, stmt); err != nil {
			return store.NewStoreError("setup", err)
		}
	}
	return nil
}

func (idx *Index) Close() error {
	return idx.db.Close()
}

func (idx *Index) InsertClip(ctx context.Context, name, contentDigest string, duration float64, ownerID *int64) (int64, error) {
	digest, err := hex.DecodeString(contentDigest)
	if err != nil {
		return 0, store.NewStoreError("insert_clip", err)
	}

	var clipID int64
	err = idx.db.QueryRowContext(ctx,
		`INSERT INTO `+clipTable+` (name, content_digest, duration, owner_id) VALUES ($1, $2, $3, $4) RETURNING clip_id`,
		name, digest, duration, ownerID,
	).Scan(&clipID)
	if err != nil {
		return 0, store.NewStoreError("insert_clip", err)
	}
	return clipID, nil
}

func (idx *Index) InsertTags(ctx context.Context, clipID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return store.NewStoreError("insert_tags", err)
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+tagTable+` (clip_id, tag_id) VALUES ($1, $2)`, clipID, tagID,
		); err != nil {
			tx.Rollback()
			return store.NewStoreError("insert_tags", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return store.NewStoreError("insert_tags", err)
	}
	return nil
}

// InsertHashes batches postings by insertBatchSize, sorted by hash,
// inside one transaction, relying on ON CONFLICT DO NOTHING for the
// unique (hash, clip_id, offset) constraint.
func (idx *Index) InsertHashes(ctx context.Context, clipID int64, postings []store.Posting) error {
	if len(postings) == 0 {
		return nil
	}

	sorted := make([]store.Posting, len(postings))
	copy(sorted, postings)
	sort.Slice(sorted, func(i, j int) bool {
		return string(sorted[i].Hash[:]) < string(sorted[j].Hash[:])
	})

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return store.NewStoreError("insert_hashes", err)
	}

	for start := 0; start < len(sorted); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(sorted) {
			end = len(sorted)
		}
		batch := sorted[start:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*3)
		for i, p := range batch {
			n := i * 3
			placeholders[i] = fmt.Sprintf("($%d, $%d, $%d)", n+1, n+2, n+3)
			args = append(args, p.Hash[:], clipID, p.Offset)
		}

		query := fmt.Sprintf(
			`INSERT INTO %s (hash, clip_id, offset_) VALUES %s ON CONFLICT DO NOTHING`,
			postingTable, strings.Join(placeholders, ","),
		)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			tx.Rollback()
			return store.NewStoreError("insert_hashes", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return store.NewStoreError("insert_hashes", err)
	}
	return nil
}

func (idx *Index) MarkFingerprinted(ctx context.Context, clipID int64) error {
	_, err := idx.db.ExecContext(ctx, `UPDATE `+clipTable+` SET fingerprinted = TRUE WHERE clip_id = $1`, clipID)
	if err != nil {
		return store.NewStoreError("mark_fingerprinted", err)
	}
	return nil
}

func (idx *Index) Lookup(ctx context.Context, hashes []fingerprint.Hash) ([]store.Hit, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(hashes))
	args := make([]interface{}, len(hashes))
	for i, h := range hashes {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = h[:]
	}

	query := fmt.Sprintf(
		`SELECT hash, clip_id, offset_ FROM %s WHERE hash = ANY(ARRAY[%s])`,
		postingTable, strings.Join(placeholders, ","),
	)
	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("lookup", err)
	}
	defer rows.Close()

	var hits []store.Hit
	for rows.Next() {
		var rawHash []byte
		var hit store.Hit
		if err := rows.Scan(&rawHash, &hit.ClipID, &hit.Offset); err != nil {
			return nil, store.NewStoreError("lookup", err)
		}
		copy(hit.Hash[:], rawHash)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (idx *Index) ListClipDigests(ctx context.Context, ownerID *int64) (map[string]struct{}, error) {
	query := `SELECT content_digest FROM ` + clipTable + ` WHERE fingerprinted = TRUE`
	args := []interface{}{}
	if ownerID != nil {
		query += ` AND owner_id = $1`
		args = append(args, *ownerID)
	}

	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("list_clip_digests", err)
	}
	defer rows.Close()

	digests := make(map[string]struct{})
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, store.NewStoreError("list_clip_digests", err)
		}
		digests[strings.ToUpper(hex.EncodeToString(raw))] = struct{}{}
	}
	return digests, rows.Err()
}

func (idx *Index) GetClip(ctx context.Context, clipID int64) (*store.Clip, error) {
	row := idx.db.QueryRowContext(ctx,
		`SELECT clip_id, name, content_digest, duration, fingerprinted, owner_id FROM `+clipTable+` WHERE clip_id = $1`,
		clipID,
	)

	var c store.Clip
	var rawDigest []byte
	if err := row.Scan(&c.ClipID, &c.Name, &rawDigest, &c.Duration, &c.Fingerprinted, &c.OwnerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, store.NewStoreError("get_clip", err)
	}
	c.ContentDigest = strings.ToUpper(hex.EncodeToString(rawDigest))
	return &c, nil
}

func (idx *Index) GetTags(ctx context.Context, clipID int64) ([]int64, error) {
	rows, err := idx.db.QueryContext(ctx, `SELECT tag_id FROM `+tagTable+` WHERE clip_id = $1`, clipID)
	if err != nil {
		return nil, store.NewStoreError("get_tags", err)
	}
	defer rows.Close()

	var tags []int64
	for rows.Next() {
		var t int64
		if err := rows.Scan(&t); err != nil {
			return nil, store.NewStoreError("get_tags", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (idx *Index) DeleteUnfingerprinted(ctx context.Context) error {
	if _, err := idx.db.ExecContext(ctx, deleteUnfingerprinted); err != nil {
		return store.NewStoreError("delete_unfingerprinted", err)
	}
	return nil
}
