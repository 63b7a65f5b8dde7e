package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Shaswata28/studymate/internal/errs"
)

// Config controls topK bounds, excerpting, and the per-course document
// cache size (§6.3).
type Config struct {
	TopKDefault  int `conf:"top_k_default" yaml:"top_k_default" json:"top_k_default"`
	TopKMax      int `conf:"top_k_max" yaml:"top_k_max" json:"top_k_max"`
	ExcerptChars int `conf:"excerpt_chars" yaml:"excerpt_chars" json:"excerpt_chars"`
	LRUCourses   int `conf:"lru_courses" yaml:"lru_courses" json:"lru_courses"`
	// Backend selects "bruteforce" (default) or "sqlite_vec".
	Backend string `conf:"backend" yaml:"backend" json:"backend"`
}

// ClampTopK applies the Config's default/max bounds to a caller-requested
// topK (0 means "use the default"), per §4.8.
func (c Config) ClampTopK(requested int) int {
	if requested <= 0 {
		requested = c.TopKDefault
	}

	if requested > c.TopKMax {
		requested = c.TopKMax
	}

	return requested
}

// BruteForce is the default Index: an exact cosine-similarity scan over
// each course's document set, cached per course in an LRU so a course with
// many searches in a row doesn't reload from the store every time.
type BruteForce struct {
	cfg    Config
	source Source
	cache  *lru.Cache[string, []Document]
	mu     sync.Mutex
}

// NewBruteForce builds the default Index over source.
func NewBruteForce(cfg Config, source Source) (*BruteForce, error) {
	size := cfg.LRUCourses
	if size <= 0 {
		size = 64
	}

	cache, err := lru.New[string, []Document](size)
	if err != nil {
		return nil, err
	}

	return &BruteForce{cfg: cfg, source: source, cache: cache}, nil
}

func (b *BruteForce) Invalidate(courseID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache.Remove(courseID)
}

func (b *BruteForce) Search(ctx context.Context, courseID string, query []float32, topK int) ([]Result, error) {
	docs, err := b.courseDocs(ctx, courseID)
	if err != nil {
		return nil, err
	}

	// A dimension mismatch between the query and any stored vector is a bug,
	// not a "no match" (§4.8): fail loudly instead of silently scoring 0.
	for _, d := range docs {
		if len(d.Embedding) != len(query) {
			return nil, errs.DimensionMismatch(fmt.Sprintf(
				"query vector has %d dimensions, material %s has %d", len(query), d.MaterialID, len(d.Embedding)))
		}
	}

	topK = b.cfg.ClampTopK(topK)

	type scored struct {
		doc   Document
		score float32
	}

	scoredDocs := make([]scored, 0, len(docs))

	for _, d := range docs {
		scoredDocs = append(scoredDocs, scored{doc: d, score: cosine(query, d.Embedding)})
	}

	sort.SliceStable(scoredDocs, func(i, j int) bool {
		if scoredDocs[i].score != scoredDocs[j].score {
			return scoredDocs[i].score > scoredDocs[j].score
		}

		return scoredDocs[i].doc.CreatedAt.Before(scoredDocs[j].doc.CreatedAt)
	})

	if topK > len(scoredDocs) {
		topK = len(scoredDocs)
	}

	results := make([]Result, 0, topK)
	for _, sd := range scoredDocs[:topK] {
		results = append(results, Result{
			MaterialID: sd.doc.MaterialID,
			Name:       sd.doc.Name,
			MediaType:  sd.doc.MediaType,
			Score:      sd.score,
			Excerpt:    excerpt(sd.doc.Text, b.cfg.ExcerptChars),
		})
	}

	return results, nil
}

func (b *BruteForce) courseDocs(ctx context.Context, courseID string) ([]Document, error) {
	b.mu.Lock()
	if docs, ok := b.cache.Get(courseID); ok {
		b.mu.Unlock()
		return docs, nil
	}
	b.mu.Unlock()

	docs, err := b.source.LoadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.cache.Add(courseID, docs)
	b.mu.Unlock()

	return docs, nil
}

// cosine returns the cosine similarity of a and b, or 0 if either vector is
// empty or of mismatched length (a defensive zero rather than a panic; §4.8
// treats it as "no match" and lets dimension mismatches surface earlier, at
// write time in the Material Processing Service).
func cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
