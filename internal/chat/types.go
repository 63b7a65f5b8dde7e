// Package chat implements the Chat Pipeline (C10): validating a turn,
// routing any single attachment, composing the prompt, calling the Brain
// Client, and appending the resulting (user, model) pair atomically (§4.10).
package chat

import (
	"context"
	"time"
)

// GlobalCourseID is the pseudo-course history turns are scoped under when a
// chat request carries no course_id (§6.1, §9 Open Questions: the source's
// global-chat-with-no-persistence-vs-implicit-default-course ambiguity is
// resolved by giving global chat its own fixed scope rather than skipping
// persistence, so the same dedup/retry semantics apply uniformly).
const GlobalCourseID = "__global__"

// Turn is one persisted (user or model) message in a course's history.
type Turn struct {
	CourseID  string
	Role      string
	Content   string
	DedupToken string
	CreatedAt time.Time
}

// AttachmentKind mirrors brainclient's; kept distinct so this package does
// not leak brainclient's HTTP-layer type into its own request surface.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentAudio AttachmentKind = "audio"
)

// Attachment is the single optional file a chat turn may carry (§4.3, §4.10
// — at most one attachment per turn; images and audio only).
type Attachment struct {
	Kind      AttachmentKind
	Data      []byte
	MediaType string
	Filename  string
}

// Request is one incoming chat turn (§6.1's POST /chat body).
type Request struct {
	CourseID    string
	Message     string
	Attachment  *Attachment
	DedupToken  string
}

// Response is what the pipeline returns to the API layer. Degraded is set
// only on the PartialCompletion path (§7): the reply was generated but the
// turn could not be persisted, so it is returned alongside a non-nil error
// rather than silently discarded.
type Response struct {
	Reply      string
	Model      string
	DedupToken string
	Degraded   bool
}

// History is the bounded read/append surface the pipeline needs from
// persistence; internal/server/biz provides the ent-backed implementation.
type History interface {
	Recent(ctx context.Context, courseID string, limit int) ([]Turn, error)
	// FindByDedupToken supports safe client retry after a PartialCompletion
	// (§4.10): if a turn with this token already exists, the pipeline
	// returns its stored reply instead of generating a new one.
	FindByDedupToken(ctx context.Context, courseID, token string) (*Turn, bool, error)
	Append(ctx context.Context, userTurn, modelTurn Turn) error
}
