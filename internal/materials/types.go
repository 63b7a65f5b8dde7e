// Package materials implements the Material Processing Service (C6): the
// pipeline that turns an uploaded file into extracted text and an embedding,
// per §4.6.
package materials

import (
	"context"
	"time"
)

// Status is one of the material's processing states (§4.6).
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Material is the persistence-agnostic view the service operates on; the
// ent-backed Store implementation maps this to/from its generated schema
// type.
type Material struct {
	ID            string
	CourseID      string
	FileRef       string
	Name          string
	MediaType     string
	SizeBytes     int64
	ExtractedText string
	Embedding     []float32
	Status        Status
	ProcessedAt   *time.Time
	ErrorMessage  string
	CreatedAt     time.Time
}

// UploadRequest is what the caller supplies when registering a new material
// (§6.1's materials endpoints, invoked before processing begins).
type UploadRequest struct {
	CourseID  string
	Name      string
	MediaType string
	Data      []byte
}

// Store is the persistence boundary for materials: row creation, status
// transitions, and read paths used by retrieval (§4.6, §4.8).
type Store interface {
	Create(ctx context.Context, courseID, fileRef, name, mediaType string, sizeBytes int64) (*Material, error)
	Get(ctx context.Context, id string) (*Material, error)
	// MarkProcessing transitions pending->processing; it returns false (no
	// error) when the material is no longer pending, implementing the
	// idempotency guard (§4.6 step 1) without a separate locking primitive.
	MarkProcessing(ctx context.Context, id string) (bool, error)
	Complete(ctx context.Context, id, extractedText string, embedding []float32) error
	Fail(ctx context.Context, id, message string) error
	ListByCourse(ctx context.Context, courseID string) ([]*Material, error)
	// ListStuckProcessing returns materials that have been in "processing"
	// since before cutoff, for the read-only visibility sweep (§4.7).
	ListStuckProcessing(ctx context.Context, cutoff time.Time) ([]*Material, error)
}

// FileStore resolves a file_ref to raw bytes, abstracting over the
// multi-backend storage the spec leaves unspecified (local disk, S3, GCS).
type FileStore interface {
	Put(ctx context.Context, courseID, name string, data []byte) (fileRef string, err error)
	Get(ctx context.Context, fileRef string) ([]byte, error)
}

// Invalidator drops any cached document set for a course. It is the shape
// of retrieval.Index's Invalidate method, duck-typed here so this package
// doesn't need to import retrieval (which already imports materials.Store).
// Service calls it after a material's terminal write so Vector Search
// (§4.8) never serves a stale course cache for materials that finish
// processing after the course was first searched.
type Invalidator interface {
	Invalidate(courseID string)
}
