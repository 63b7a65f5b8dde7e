package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Shaswata28/studymate/internal/errs"
)

type fakeSource struct {
	docs map[string][]Document
	n    int
}

func (f *fakeSource) LoadCourse(ctx context.Context, courseID string) ([]Document, error) {
	f.n++
	return f.docs[courseID], nil
}

func testIndexConfig() Config {
	return Config{TopKDefault: 2, TopKMax: 5, ExcerptChars: 100, LRUCourses: 8}
}

func TestClampTopK(t *testing.T) {
	cfg := Config{TopKDefault: 3, TopKMax: 10}

	require.Equal(t, 3, cfg.ClampTopK(0))
	require.Equal(t, 3, cfg.ClampTopK(-1))
	require.Equal(t, 5, cfg.ClampTopK(5))
	require.Equal(t, 10, cfg.ClampTopK(100))
}

func TestBruteForceSearch_OrdersByDescendingScore(t *testing.T) {
	now := time.Now()
	source := &fakeSource{docs: map[string][]Document{
		"course-1": {
			{MaterialID: "low", Embedding: []float32{1, 0}, Text: "low relevance", CreatedAt: now},
			{MaterialID: "high", Embedding: []float32{0, 1}, Text: "high relevance", CreatedAt: now},
		},
	}}

	idx, err := NewBruteForce(testIndexConfig(), source)
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), "course-1", []float32{0, 1}, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "high", results[0].MaterialID)
	require.Equal(t, "low", results[1].MaterialID)
	require.InDelta(t, 1.0, results[0].Score, 0.0001)
}

func TestBruteForceSearch_BreaksTiesByCreatedAtAscending(t *testing.T) {
	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	source := &fakeSource{docs: map[string][]Document{
		"course-1": {
			{MaterialID: "newer", Embedding: []float32{1, 0}, CreatedAt: newer},
			{MaterialID: "older", Embedding: []float32{1, 0}, CreatedAt: older},
		},
	}}

	idx, err := NewBruteForce(testIndexConfig(), source)
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), "course-1", []float32{1, 0}, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "older", results[0].MaterialID, "equal scores should break ties toward the older document")
}

func TestBruteForceSearch_ClampsToTopK(t *testing.T) {
	source := &fakeSource{docs: map[string][]Document{
		"course-1": {
			{MaterialID: "a", Embedding: []float32{1, 0}},
			{MaterialID: "b", Embedding: []float32{0, 1}},
			{MaterialID: "c", Embedding: []float32{1, 1}},
		},
	}}

	idx, err := NewBruteForce(testIndexConfig(), source)
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), "course-1", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestBruteForceSearch_DimensionMismatchFailsLoudly(t *testing.T) {
	source := &fakeSource{docs: map[string][]Document{
		"course-1": {
			{MaterialID: "bad-dims", Embedding: []float32{1, 0, 0}},
		},
	}}

	idx, err := NewBruteForce(testIndexConfig(), source)
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), "course-1", []float32{1, 0}, 0)
	require.Error(t, err)
	require.Equal(t, errs.KindDimensionMismatch, errs.KindOf(err))
}

func TestBruteForceSearch_CachesPerCourse(t *testing.T) {
	source := &fakeSource{docs: map[string][]Document{
		"course-1": {{MaterialID: "a", Embedding: []float32{1, 0}}},
	}}

	idx, err := NewBruteForce(testIndexConfig(), source)
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), "course-1", []float32{1, 0}, 0)
	require.NoError(t, err)
	_, err = idx.Search(context.Background(), "course-1", []float32{1, 0}, 0)
	require.NoError(t, err)

	require.Equal(t, 1, source.n, "a second search for the same course should hit the LRU cache, not reload")
}

func TestBruteForceSearch_InvalidateForcesReload(t *testing.T) {
	source := &fakeSource{docs: map[string][]Document{
		"course-1": {{MaterialID: "a", Embedding: []float32{1, 0}}},
	}}

	idx, err := NewBruteForce(testIndexConfig(), source)
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), "course-1", []float32{1, 0}, 0)
	require.NoError(t, err)

	idx.Invalidate("course-1")

	_, err = idx.Search(context.Background(), "course-1", []float32{1, 0}, 0)
	require.NoError(t, err)

	require.Equal(t, 2, source.n)
}

func TestCosine(t *testing.T) {
	require.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 0.0001)
	require.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 0.0001)
	require.Equal(t, float32(0), cosine(nil, []float32{1}))
	require.Equal(t, float32(0), cosine([]float32{1, 2}, []float32{1}))
}
