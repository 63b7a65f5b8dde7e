// Package retrieval implements Vector Search (C8): per-course cosine
// similarity search over completed materials' embeddings, feeding excerpts
// to the Context Composer (§4.8).
package retrieval

import (
	"context"
	"time"
)

// Document is one searchable unit: a completed material's text and
// embedding, scoped to exactly one course (P5 — strict per-course
// isolation; a search never crosses course_id).
type Document struct {
	MaterialID string
	CourseID   string
	Name       string
	MediaType  string
	Text       string
	Embedding  []float32
	CreatedAt  time.Time
}

// Result is one scored hit, already excerpted to ExcerptChars. Name and
// MediaType ride along so the Context Composer can prefix each excerpt with
// a stable identifier (§4.9) without a second store round trip.
type Result struct {
	MaterialID string
	Name       string
	MediaType  string
	Score      float32
	Excerpt    string
}

// Source loads the documents eligible for search in one course — i.e.
// materials with processing_status=completed and a non-nil embedding. The
// Index asks for a fresh load on cache miss; Source is normally backed by
// the ent MaterialStore.
type Source interface {
	LoadCourse(ctx context.Context, courseID string) ([]Document, error)
}

// Index is Vector Search's query surface. Implementations may cache
// per-course document sets (BruteForce does, via an LRU) or delegate
// entirely to a backing store (the sqlite-vec implementation).
type Index interface {
	// Search returns up to topK results for courseID, ordered by descending
	// score with ties broken by ascending CreatedAt (stable, deterministic
	// ordering per §4.8).
	Search(ctx context.Context, courseID string, query []float32, topK int) ([]Result, error)
	// Invalidate drops any cached state for courseID, called after a
	// material in that course finishes processing.
	Invalidate(courseID string)
}
