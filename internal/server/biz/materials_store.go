package biz

import (
	"context"
	"time"

	"github.com/Shaswata28/studymate/internal/ent"
	"github.com/Shaswata28/studymate/internal/ent/material"
	"github.com/Shaswata28/studymate/internal/materials"
)

// MaterialStore is the ent-backed materials.Store (§4.6), following the
// same thin ent.Client wrapper shape as the teacher's QuotaService/
// DataStorageService: a struct holding *ent.Client, methods translating
// domain calls into ent queries/mutations.
type MaterialStore struct {
	db *ent.Client
}

func NewMaterialStore(db *ent.Client) *MaterialStore {
	return &MaterialStore{db: db}
}

var _ materials.Store = (*MaterialStore)(nil)

func (s *MaterialStore) Create(ctx context.Context, courseID, fileRef, name, mediaType string, sizeBytes int64) (*materials.Material, error) {
	row, err := s.db.Material.Create().
		SetCourseID(courseID).
		SetFileRef(fileRef).
		SetName(name).
		SetMediaType(mediaType).
		SetSizeBytes(sizeBytes).
		SetProcessingStatus(material.ProcessingStatusPending).
		Save(ctx)
	if err != nil {
		return nil, err
	}

	return fromEnt(row), nil
}

func (s *MaterialStore) Get(ctx context.Context, id string) (*materials.Material, error) {
	row, err := s.db.Material.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return fromEnt(row), nil
}

// MarkProcessing conditionally transitions pending->processing in one
// statement; its affected-row count (rather than a separate read-then-write)
// is the idempotency guard against two workers picking up the same material
// (§4.6 step 1).
func (s *MaterialStore) MarkProcessing(ctx context.Context, id string) (bool, error) {
	n, err := s.db.Material.Update().
		Where(material.ID(id), material.ProcessingStatusEQ(material.ProcessingStatusPending)).
		SetProcessingStatus(material.ProcessingStatusProcessing).
		Save(ctx)
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (s *MaterialStore) Complete(ctx context.Context, id, extractedText string, embedding []float32) error {
	now := time.Now().UTC()

	return s.db.Material.UpdateOneID(id).
		SetProcessingStatus(material.ProcessingStatusCompleted).
		SetExtractedText(extractedText).
		SetEmbedding(materials.EncodeEmbedding(embedding)).
		SetProcessedAt(now).
		Exec(ctx)
}

func (s *MaterialStore) Fail(ctx context.Context, id, message string) error {
	now := time.Now().UTC()

	return s.db.Material.UpdateOneID(id).
		SetProcessingStatus(material.ProcessingStatusFailed).
		SetErrorMessage(message).
		SetProcessedAt(now).
		Exec(ctx)
}

func (s *MaterialStore) ListByCourse(ctx context.Context, courseID string) ([]*materials.Material, error) {
	rows, err := s.db.Material.Query().
		Where(material.CourseID(courseID)).
		Order(ent.Asc(material.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*materials.Material, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromEnt(r))
	}

	return out, nil
}

func (s *MaterialStore) ListStuckProcessing(ctx context.Context, cutoff time.Time) ([]*materials.Material, error) {
	rows, err := s.db.Material.Query().
		Where(
			material.ProcessingStatusEQ(material.ProcessingStatusProcessing),
			material.UpdatedAtLT(cutoff),
		).
		All(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*materials.Material, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromEnt(r))
	}

	return out, nil
}

func fromEnt(r *ent.Material) *materials.Material {
	m := &materials.Material{
		ID:            r.ID,
		CourseID:      r.CourseID,
		FileRef:       r.FileRef,
		Name:          r.Name,
		MediaType:     r.MediaType,
		SizeBytes:     r.SizeBytes,
		ExtractedText: r.ExtractedText,
		Embedding:     materials.DecodeEmbedding(r.Embedding),
		Status:        materials.Status(r.ProcessingStatus),
		ErrorMessage:  r.ErrorMessage,
		CreatedAt:     r.CreatedAt,
	}

	if r.ProcessedAt != nil {
		m.ProcessedAt = r.ProcessedAt
	}

	return m
}
