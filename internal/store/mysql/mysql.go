// Package mysql implements the Index contract on top of MySQL, via
// github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/media-luna/eureka/internal/fingerprint"
	"github.com/media-luna/eureka/internal/store"
)

const (
	clipTable    = "clip"
	postingTable = "hash_posting"
	tagTable     = "clip_tag"

	// maxOpenConns caps the pool size per spec §5 ("a connection pool
	// of small fixed size (<=5)").
	maxOpenConns = 5
	// insertBatchSize matches the original's grouper(values, 1000).
	insertBatchSize = 1000
)

const createClipTable = `
CREATE TABLE IF NOT EXISTS ` + clipTable + ` (
	clip_id        BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	name           VARCHAR(250) NOT NULL,
	fingerprinted  TINYINT NOT NULL DEFAULT 0,
	content_digest BINARY(20) NOT NULL,
	duration       FLOAT,
	owner_id       BIGINT UNSIGNED NULL,
	PRIMARY KEY (clip_id)
) ENGINE=INNODB;`

const createPostingTable = `
CREATE TABLE IF NOT EXISTS ` + postingTable + ` (
	hash      BINARY(10) NOT NULL,
	clip_id   BIGINT UNSIGNED NOT NULL,
	offset    INT UNSIGNED NOT NULL,
	INDEX (hash),
	UNIQUE KEY unique_posting (hash, clip_id, offset),
	FOREIGN KEY (clip_id) REFERENCES ` + clipTable + `(clip_id) ON DELETE CASCADE
) ENGINE=INNODB;`

const createTagTable = `
CREATE TABLE IF NOT EXISTS ` + tagTable + ` (
	id      BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	clip_id BIGINT UNSIGNED NOT NULL,
	tag_id  BIGINT UNSIGNED NOT NULL,
	PRIMARY KEY (id),
	FOREIGN KEY (clip_id) REFERENCES ` + clipTable + `(clip_id) ON DELETE CASCADE
) ENGINE=INNODB;`

const deleteUnfingerprinted = `DELETE FROM ` + clipTable + ` WHERE fingerprinted = 0;`

// Index implements store.Index against a MySQL database.
type Index struct {
	db *sql.DB
}

// Config holds the connection parameters for Open, matching the
// `database` section of the configuration map (spec §6).
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

func (c Config) dsn() string {
	if c.Port == 0 {
		c.Port = 3306
	}
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true&timeout=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, connectTimeoutParam(),
	)
}

func connectTimeoutParam() string {
	return "5s"
}

// Open connects to MySQL, creates the schema if absent, and garbage
// collects partial ingests left over from a crash (spec §4.3's
// delete_unfingerprinted, called unconditionally at startup per the
// original's SQLDatabase.setup()).
func Open(cfg Config) (*Index, error) {
	db, err := sql.Open("mysql", cfg.dsn())
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
	digest, err := decodeDigest(contentDigest)
	if err != nil {
		return 0, store.NewStoreError("insert_clip", err)
	}

	res, err := idx.db.ExecContext(ctx,
		`INSERT INTO `+clipTable+` (name, content_digest, duration, owner_id) VALUES (?, ?, ?, ?)`,
		name, digest, duration, ownerID,
	)
	if err != nil {
		return 0, store.NewStoreError("insert_clip", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, store.NewStoreError("insert_clip", err)
	}
	return id, nil
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
			`INSERT INTO `+tagTable+` (clip_id, tag_id) VALUES (?, ?)`, clipID, tagID,
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

// InsertHashes batches postings by insertBatchSize, sorted by hash to
// reduce index-page contention, and inserts them inside one
// transaction with duplicate-ignore semantics.
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
			placeholders[i] = "(?, ?, ?)"
			args = append(args, p.Hash[:], clipID, p.Offset)
		}

		query := fmt.Sprintf(
			`INSERT IGNORE INTO %s (hash, clip_id, offset) VALUES %s`,
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
	_, err := idx.db.ExecContext(ctx, `UPDATE `+clipTable+` SET fingerprinted = 1 WHERE clip_id = ?`, clipID)
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
		placeholders[i] = "?"
		args[i] = h[:]
	}

	query := fmt.Sprintf(
		`SELECT hash, clip_id, offset FROM %s WHERE hash IN (%s)`,
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
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("lookup", err)
	}
	return hits, nil
}

func (idx *Index) ListClipDigests(ctx context.Context, ownerID *int64) (map[string]struct{}, error) {
	query := `SELECT content_digest FROM ` + clipTable + ` WHERE fingerprinted = 1`
	args := []interface{}{}
	if ownerID != nil {
		query += ` AND owner_id = ?`
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
		digests[encodeDigest(raw)] = struct{}{}
	}
	return digests, rows.Err()
}

func (idx *Index) GetClip(ctx context.Context, clipID int64) (*store.Clip, error) {
	row := idx.db.QueryRowContext(ctx,
		`SELECT clip_id, name, content_digest, duration, fingerprinted, owner_id FROM `+clipTable+` WHERE clip_id = ?`,
		clipID,
	)

	var c store.Clip
	var rawDigest []byte
	var fingerprinted int
	if err := row.Scan(&c.ClipID, &c.Name, &rawDigest, &c.Duration, &fingerprinted, &c.OwnerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, store.NewStoreError("get_clip", err)
	}
	c.ContentDigest = encodeDigest(rawDigest)
	c.Fingerprinted = fingerprinted != 0
	return &c, nil
}

func (idx *Index) GetTags(ctx context.Context, clipID int64) ([]int64, error) {
	rows, err := idx.db.QueryContext(ctx, `SELECT tag_id FROM `+tagTable+` WHERE clip_id = ?`, clipID)
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

func decodeDigest(hexDigest string) ([]byte, error) {
	return hex.DecodeString(hexDigest)
}

func encodeDigest(raw []byte) string {
	return strings.ToUpper(hex.EncodeToString(raw))
}

const connectTimeout = 5 * time.Second
