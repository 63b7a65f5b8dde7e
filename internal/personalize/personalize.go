// Package personalize reads the academic profile and personalization
// preferences the Context Composer folds into its prompt, through a short
// TTL cache so a chat burst doesn't re-read the same row on every turn
// (§6.4 supplement).
package personalize

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/Shaswata28/studymate/internal/pkg/xcache"
)

// Profile is the student's academic profile, rendered to the short text
// blocks the Context Composer consumes directly.
type Profile struct {
	AcademicProfile string
	Preferences     string
}

// Source reads the underlying, uncached academic profile and preference
// tables. The core treats both as read-only (§6.4): it never writes to
// them.
type Source interface {
	AcademicProfile(ctx context.Context, courseID string) (string, error)
	Preferences(ctx context.Context, courseID string) (string, error)
}

// Reader is the cached facade used by the Context Composer.
type Reader struct {
	source Source
	cache  xcache.Cache[Profile]
}

// NewReader wraps source with cache, normally an xcache.NewFromConfig
// two-level (memory, optionally chained to redis) cache configured with a
// short TTL (30s) — long enough to absorb a burst of turns in one session,
// short enough that a profile edit is picked up quickly (§6.4).
func NewReader(source Source, cache xcache.Cache[Profile]) *Reader {
	return &Reader{source: source, cache: cache}
}

// Get returns courseID's personalization data, serving from cache when
// present.
func (r *Reader) Get(ctx context.Context, courseID string) (Profile, error) {
	key := cacheKey(courseID)

	if cached, err := r.cache.Get(ctx, key); err == nil {
		return cached, nil
	}

	academic, err := r.source.AcademicProfile(ctx, courseID)
	if err != nil {
		return Profile{}, err
	}

	prefs, err := r.source.Preferences(ctx, courseID)
	if err != nil {
		return Profile{}, err
	}

	profile := Profile{AcademicProfile: academic, Preferences: prefs}

	_ = r.cache.Set(ctx, key, profile)

	return profile, nil
}

// cacheKey hashes courseID with xxhash rather than embedding it verbatim:
// course_id is an opaque, externally issued handle (§3) of unbounded length
// and character set, and a fixed-width hash keeps cache key sizing/hashing
// cost constant regardless of what the external layer hands the core.
func cacheKey(courseID string) string {
	return fmt.Sprintf("personalize:%x", xxhash.Sum64String(courseID))
}
