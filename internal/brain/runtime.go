// Package brain implements the Model Runtime Adapter (C1), the Residency
// Manager (C2), and the Brain Service (C3): the standalone process that
// fronts a local model runtime with a persistent-core / on-demand-specialist
// residency policy.
package brain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind is the Model Runtime Adapter's narrow failure taxonomy (§4.1). It is
// deliberately smaller than errs.Kind: the Brain Client maps these onto the
// closed error-kind taxonomy at the API-server edge.
type Kind string

const (
	KindUnavailable Kind = "Unavailable"
	KindBadInput    Kind = "BadInput"
	KindTimeout     Kind = "Timeout"
	KindInternal    Kind = "Internal"
)

// Error is the Runtime's own error type, kept separate from errs.Error so
// this package has zero dependency on the HTTP edge's taxonomy.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// KindOf extracts the Kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}

// ServiceConfig configures the Brain process itself: which models back each
// capability and where the underlying runtime listens (§6.3 CORE_MODEL,
// VISION_MODEL, EMBED_MODEL, AUDIO_MODEL, EMBED_DIM).
type ServiceConfig struct {
	Port        int    `conf:"port" yaml:"port" json:"port"`
	RuntimeURL  string `conf:"runtime_url" yaml:"runtime_url" json:"runtime_url"`
	CoreModel   string `conf:"core_model" yaml:"core_model" json:"core_model"`
	VisionModel string `conf:"vision_model" yaml:"vision_model" json:"vision_model"`
	EmbedModel  string `conf:"embed_model" yaml:"embed_model" json:"embed_model"`
	// AudioModel is optional; empty means transcription is declared
	// unavailable at startup and fails closed thereafter (§4.1, §9).
	AudioModel string `conf:"audio_model" yaml:"audio_model" json:"audio_model"`
	EmbedDim   int    `conf:"embed_dim" yaml:"embed_dim" json:"embed_dim"`

	GenerateTimeout time.Duration `conf:"generate_timeout" yaml:"generate_timeout" json:"generate_timeout"`
	SpecialistTimeout time.Duration `conf:"specialist_timeout" yaml:"specialist_timeout" json:"specialist_timeout"`
}

// Runtime is the narrow capability interface the Residency Manager and Brain
// Service drive; it is the single seam a deployment swaps to point at a
// different local model server (Ollama-compatible HTTP API by default).
type Runtime interface {
	// Load requests the runtime load model with the given keep-alive
	// duration ("" backend default, 0 immediate-unload-after-use, negative
	// unbounded). It blocks until the runtime reports the model ready.
	Load(ctx context.Context, model string, keepAlive time.Duration) error

	// Unload issues a zero keep-alive request for model, asking the runtime
	// to evict it as soon as the in-flight call (if any) completes.
	Unload(ctx context.Context, model string) error

	// ReclaimMemory clears whatever cache the runtime exposes and invokes
	// its GC hook, if any. Best-effort; errors are logged, never fatal.
	ReclaimMemory(ctx context.Context) error

	// Probe verifies model is loaded and responsive with a trivial request.
	Probe(ctx context.Context, model string) error

	Generate(ctx context.Context, model, prompt string) (string, error)
	Embed(ctx context.Context, model, text string) ([]float32, error)
	VisionExtract(ctx context.Context, model string, data []byte, mediaType, instruction string) (string, error)
	Transcribe(ctx context.Context, model string, data []byte) (string, error)
}
