package retrieval

import (
	"context"

	"github.com/Shaswata28/studymate/internal/materials"
)

// MaterialSource adapts materials.Store to the Source interface BruteForce
// consumes, keeping Vector Search decoupled from the ent-backed store's
// concrete type.
type MaterialSource struct {
	Store materials.Store
}

func (s MaterialSource) LoadCourse(ctx context.Context, courseID string) ([]Document, error) {
	all, err := s.Store.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(all))

	for _, m := range all {
		if m.Status != materials.StatusCompleted || len(m.Embedding) == 0 {
			continue
		}

		docs = append(docs, Document{
			MaterialID: m.ID,
			CourseID:   m.CourseID,
			Name:       m.Name,
			MediaType:  m.MediaType,
			Text:       m.ExtractedText,
			Embedding:  m.Embedding,
			CreatedAt:  m.CreatedAt,
		})
	}

	return docs, nil
}
