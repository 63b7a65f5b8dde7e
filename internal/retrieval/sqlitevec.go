//go:build sqlite_vec && cgo

package retrieval

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Registers the vec0 extension with the sqlite3 driver; mirrors the
	// build-tagged auto-load pattern used for opt-in cgo vector indexes.
	vec.Auto()
}

// SQLiteVec is the optional sqlite-vec-backed Index (§4.8's "pluggable
// index" supplement), available only with the sqlite dialect and the
// sqlite_vec build tag. It delegates nearest-neighbor scoring to the vec0
// virtual table's vec_distance_cosine rather than scanning in Go, trading
// portability for query-planner-assisted search at larger per-course
// document counts.
type SQLiteVec struct {
	cfg Config
	db  *sql.DB
}

// NewSQLiteVec wires an Index against db, which must already have vec0
// loaded (the blank init above does this for any *sql.DB opened against the
// sqlite3 driver in this build).
func NewSQLiteVec(cfg Config, db *sql.DB) *SQLiteVec {
	return &SQLiteVec{cfg: cfg, db: db}
}

// Invalidate is a no-op: the vec0 virtual table is always queried live.
func (s *SQLiteVec) Invalidate(string) {}

func (s *SQLiteVec) Search(ctx context.Context, courseID string, query []float32, topK int) ([]Result, error) {
	topK = s.cfg.ClampTopK(topK)

	blob, err := encodeVector(query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: encode query vector: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.name, m.media_type, m.extracted_text, m.created_at,
		       vec_distance_cosine(m.embedding, ?) AS distance
		FROM materials m
		WHERE m.course_id = ? AND m.processing_status = 'completed'
		ORDER BY distance ASC, m.created_at ASC
		LIMIT ?
	`, blob, courseID, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval: sqlite-vec query: %w", err)
	}
	defer rows.Close()

	type hit struct {
		id        string
		name      string
		mediaType string
		text      string
		distance  float64
	}

	var hits []hit

	for rows.Next() {
		var h hit

		var createdAt sql.NullTime

		if err := rows.Scan(&h.id, &h.name, &h.mediaType, &h.text, &createdAt, &h.distance); err != nil {
			return nil, fmt.Errorf("retrieval: scan: %w", err)
		}

		hits = append(hits, h)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			MaterialID: h.id,
			Name:       h.name,
			MediaType:  h.mediaType,
			Score:      float32(1 - h.distance),
			Excerpt:    excerpt(h.text, s.cfg.ExcerptChars),
		})
	}

	return results, nil
}

// encodeVector little-endian-encodes a float32 vector the way vec0 expects
// its BLOB column to be laid out, matching the embedding column's own
// on-disk format (internal/materials' embedding codec).
func encodeVector(v []float32) ([]byte, error) {
	buf := make([]byte, 4*len(v))

	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}

	return buf, nil
}
