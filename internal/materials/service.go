package materials

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Shaswata28/studymate/internal/brainclient"
	"github.com/Shaswata28/studymate/internal/errs"
	"github.com/Shaswata28/studymate/internal/log"
	"github.com/Shaswata28/studymate/internal/pdfsplit"
	"github.com/Shaswata28/studymate/internal/pkg/xcontext"
)

// failWriteTimeout bounds the detached terminal write fail() issues once the
// processing ctx has already expired or been cancelled, so a timed-out
// attempt can still record status=failed instead of leaving the material
// stuck in "processing" (§5).
const failWriteTimeout = 10 * time.Second

// Config controls upload limits and the extraction instruction sent to the
// vision specialist (§4.6, §6.3).
type Config struct {
	ProcessingTimeout time.Duration `conf:"processing_timeout" yaml:"processing_timeout" json:"processing_timeout"`
	MaxUploadBytes    int64         `conf:"max_upload_bytes" yaml:"max_upload_bytes" json:"max_upload_bytes"`
	AllowedMediaTypes []string      `conf:"allowed_media_types" yaml:"allowed_media_types" json:"allowed_media_types"`
	// PageRenderDPI is retained for the §4.6 step-3 contract (pages are
	// rendered at a fixed DPI); the pdfsplit substitution does not use it
	// directly but a future true rasterizer would. See DESIGN.md.
	PageRenderDPI int `conf:"page_render_dpi" yaml:"page_render_dpi" json:"page_render_dpi"`

	ExtractionPrompt string `conf:"extraction_prompt" yaml:"extraction_prompt" json:"extraction_prompt"`
}

const defaultExtractionPrompt = "Transcribe all readable text from this page verbatim. Do not summarize or add commentary."

// Service is the Material Processing Service (C6).
type Service struct {
	cfg        Config
	store      Store
	files      FileStore
	brain      *brainclient.Client
	embedDim   int
	invalidate Invalidator
}

// NewService wires a Service. embedDim, when > 0, enforces §4.6's
// dimension-mismatch check against every embedding produced. invalidate may
// be nil (e.g. in tests); when set, it is notified after every terminal
// write so Vector Search's per-course cache (§4.8) picks up the material on
// the next search instead of serving a stale document set.
func NewService(cfg Config, store Store, files FileStore, brain *brainclient.Client, embedDim int, invalidate Invalidator) *Service {
	if cfg.ExtractionPrompt == "" {
		cfg.ExtractionPrompt = defaultExtractionPrompt
	}

	return &Service{cfg: cfg, store: store, files: files, brain: brain, embedDim: embedDim, invalidate: invalidate}
}

// Upload validates and registers a new material in "pending" state, storing
// its bytes via FileStore, then returns the created row. Processing is
// triggered separately (by the Background Queue), per §4.6 step 0.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*Material, error) {
	if strings.TrimSpace(req.CourseID) == "" {
		return nil, errs.Validation("course_id is required")
	}

	if strings.TrimSpace(req.Name) == "" {
		return nil, errs.Validation("name is required")
	}

	if int64(len(req.Data)) > s.cfg.MaxUploadBytes {
		return nil, errs.Validation(fmt.Sprintf("file exceeds the %d byte upload limit", s.cfg.MaxUploadBytes))
	}

	if !s.mediaTypeAllowed(req.MediaType) {
		return nil, errs.BadMaterial(fmt.Sprintf("unsupported media type %q", req.MediaType))
	}

	fileRef, err := s.files.Put(ctx, req.CourseID, req.Name, req.Data)
	if err != nil {
		return nil, errs.Internal(err)
	}

	return s.store.Create(ctx, req.CourseID, fileRef, req.Name, req.MediaType, int64(len(req.Data)))
}

func (s *Service) mediaTypeAllowed(mediaType string) bool {
	for _, allowed := range s.cfg.AllowedMediaTypes {
		if allowed == mediaType {
			return true
		}
	}

	return false
}

// Process runs the full extraction + embedding pipeline for one material
// (§4.6 steps 1-6). It is the unit of work the Background Queue submits.
// Idempotent: a material no longer "pending" is skipped without error.
func (s *Service) Process(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ProcessingTimeout)
	defer cancel()

	ok, err := s.store.MarkProcessing(ctx, id)
	if err != nil {
		return errs.Internal(err)
	}

	if !ok {
		log.Info(ctx, "material already processed or in flight, skipping", log.String("material_id", id))
		return nil
	}

	m, err := s.store.Get(ctx, id)
	if err != nil {
		return errs.Internal(err)
	}

	text, procErr := s.extract(ctx, m)
	if procErr != nil {
		return s.fail(ctx, id, m.CourseID, procErr)
	}

	// Empty text is not a failure (§4.6 step 6): the material completes with
	// no embedding and is searchable by metadata only.
	if strings.TrimSpace(text) == "" {
		if err := s.store.Complete(ctx, id, "", nil); err != nil {
			return s.fail(ctx, id, m.CourseID, err)
		}

		s.notifyInvalidate(m.CourseID)
		log.Info(ctx, "material processed with no extractable text", log.String("material_id", id))

		return nil
	}

	embedding, err := s.brain.GenerateEmbedding(ctx, text)
	if err != nil {
		return s.fail(ctx, id, m.CourseID, err)
	}

	if s.embedDim > 0 && len(embedding) != s.embedDim {
		return s.fail(ctx, id, m.CourseID, errs.DimensionMismatch(fmt.Sprintf("embedding has %d dimensions, expected %d", len(embedding), s.embedDim)))
	}

	if err := s.store.Complete(ctx, id, text, embedding); err != nil {
		return s.fail(ctx, id, m.CourseID, err)
	}

	s.notifyInvalidate(m.CourseID)
	log.Info(ctx, "material processed", log.String("material_id", id), log.Int("text_len", len(text)))

	return nil
}

// notifyInvalidate drops courseID's cached document set, if an Invalidator
// was wired, so Vector Search (§4.8) picks up a just-completed material on
// its next search instead of serving a stale cache entry.
func (s *Service) notifyInvalidate(courseID string) {
	if s.invalidate != nil {
		s.invalidate.Invalidate(courseID)
	}
}

// extract dispatches by media type: images go straight to vision
// extraction, PDFs are split page by page and concatenated with page
// markers, everything else is unsupported (§4.6 step 2-3).
func (s *Service) extract(ctx context.Context, m *Material) (string, error) {
	data, err := s.files.Get(ctx, m.FileRef)
	if err != nil {
		return "", errs.Internal(err)
	}

	switch {
	case m.MediaType == "application/pdf":
		return s.extractPDF(ctx, data, m.Name)
	case strings.HasPrefix(m.MediaType, "image/"):
		text, _, err := s.brain.RouteAttachment(ctx, brainclient.AttachmentImage, data, m.MediaType, m.Name, s.cfg.ExtractionPrompt)
		if err != nil {
			return "", err
		}

		return text, nil
	default:
		return "", errs.BadMaterial(fmt.Sprintf("unsupported media type %q", m.MediaType))
	}
}

func (s *Service) extractPDF(ctx context.Context, data []byte, name string) (string, error) {
	pages, err := pdfsplit.Split(data)
	if err != nil {
		return "", errs.BadMaterial(fmt.Sprintf("could not split pdf: %v", err))
	}

	var sb strings.Builder

	for i, page := range pages {
		text, _, err := s.brain.RouteAttachment(ctx, brainclient.AttachmentImage, page, "application/pdf", fmt.Sprintf("%s-page-%d.pdf", name, i+1), s.cfg.ExtractionPrompt)
		if err != nil {
			return "", err
		}

		if i > 0 {
			sb.WriteString("\n\n")
		}

		fmt.Fprintf(&sb, "--- Page %d ---\n%s", i+1, text)
	}

	return sb.String(), nil
}

// fail writes the single terminal "failed" state, truncating the error
// message so a verbose Brain failure doesn't blow out the column (§4.6
// step 5). The write runs on a detached context so a processing ctx that is
// already cancelled or timed out (the common case: ProcessingTimeout just
// elapsed inside extract/GenerateEmbedding) doesn't also doom the terminal
// write itself and leave the material stuck in "processing" (§5's cancelled-
// task-must-still-transition-to-failed requirement).
func (s *Service) fail(ctx context.Context, id, courseID string, cause error) error {
	msg := cause.Error()
	const maxLen = 2000

	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}

	failCtx, cancel := xcontext.DetachWithTimeout(ctx, failWriteTimeout)
	defer cancel()

	if err := s.store.Fail(failCtx, id, msg); err != nil {
		return errs.Internal(err)
	}

	s.notifyInvalidate(courseID)

	log.Warn(ctx, "material processing failed", log.String("material_id", id), log.Cause(cause))

	return nil
}
