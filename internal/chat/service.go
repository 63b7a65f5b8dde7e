package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/Shaswata28/studymate/internal/brainclient"
	"github.com/Shaswata28/studymate/internal/compose"
	"github.com/Shaswata28/studymate/internal/errs"
	"github.com/Shaswata28/studymate/internal/log"
	"github.com/Shaswata28/studymate/internal/personalize"
	"github.com/Shaswata28/studymate/internal/pkg/xmap"
	"github.com/Shaswata28/studymate/internal/retrieval"
)

// Config controls which attachment media types a chat turn may carry
// (§6.3); generation/prompt-budget knobs live in brainclient.Config and
// compose.Config respectively.
type Config struct {
	AllowedAttachmentTypes []string `conf:"allowed_attachment_types" yaml:"allowed_attachment_types" json:"allowed_attachment_types"`
}

// Service is the Chat Pipeline (C10).
type Service struct {
	cfg        Config
	composeCfg compose.Config
	history    History
	personal   *personalize.Reader
	index      retrieval.Index
	brain      *brainclient.Client

	locks xmap.Map[string, *sync.Mutex]
}

// NewService wires a Service.
func NewService(cfg Config, composeCfg compose.Config, history History, personal *personalize.Reader, index retrieval.Index, brain *brainclient.Client) *Service {
	return &Service{
		cfg:        cfg,
		composeCfg: composeCfg,
		history:    history,
		personal:   personal,
		index:      index,
		brain:      brain,
	}
}

// Handle runs one chat turn end to end: validate, serialize per course
// (P9), route any attachment, compose the prompt, generate, and append the
// (user, model) pair atomically (§4.10).
func (s *Service) Handle(ctx context.Context, req Request) (Response, error) {
	// course_id is optional (§6.1): its absence selects global chat with no
	// retrieval rather than being a validation error (§9 Open Questions).
	if strings.TrimSpace(req.Message) == "" && req.Attachment == nil {
		return Response{}, errs.Validation("message or attachment is required")
	}

	if req.Attachment != nil && !s.attachmentAllowed(req.Attachment.MediaType) {
		return Response{}, errs.Validation("unsupported attachment media type")
	}

	courseID := strings.TrimSpace(req.CourseID)
	if courseID == "" {
		courseID = GlobalCourseID
	}

	lock := s.lockFor(courseID)
	lock.Lock()
	defer lock.Unlock()

	if req.DedupToken != "" {
		if existing, found, err := s.history.FindByDedupToken(ctx, courseID, req.DedupToken); err != nil {
			return Response{}, errs.Internal(err)
		} else if found {
			return Response{Reply: existing.Content, DedupToken: req.DedupToken}, nil
		}
	}

	effectiveMessage, reply, model, err := s.generate(ctx, courseID, req)
	if err != nil {
		return Response{}, err
	}

	userTurn := Turn{CourseID: courseID, Role: "user", Content: effectiveMessage, DedupToken: req.DedupToken}
	modelTurn := Turn{CourseID: courseID, Role: "model", Content: reply, DedupToken: req.DedupToken}

	// Cancellation between generation and append must not leave a partial
	// pair (P10): Append is given a context that ignores the caller's
	// cancellation for this one atomic write.
	if err := s.history.Append(context.WithoutCancel(ctx), userTurn, modelTurn); err != nil {
		// §4.10/§7: a persistence failure *after* a successful generation is
		// PartialCompletion, not an internal error — the response text the
		// model already produced is still returned to the caller, who may
		// re-submit with the same dedup token once persistence recovers.
		return Response{Reply: reply, Model: model, DedupToken: req.DedupToken, Degraded: true},
			errs.PartialCompletion("the reply was generated but could not be saved to history", err)
	}

	return Response{Reply: reply, Model: model, DedupToken: req.DedupToken}, nil
}

// generate resolves the effective user message (routing any attachment
// through the Brain first) and produces the model's reply. Only the audio
// path is terminal: per §4.3 the Brain's own /router already calls
// generate(transcription, history=nil) for audio, so its response text *is*
// the final answer. The image path is not: /router only returns the OCR
// text, which becomes the "effective user message" that step 3/4 of §4.10
// still has to compose (history, retrieval, personalization) and send
// through a normal GenerateResponse call (scenario 5, §8).
func (s *Service) generate(ctx context.Context, courseID string, req Request) (effectiveMessage, reply, model string, err error) {
	effectiveMessage = req.Message

	if req.Attachment != nil {
		text, routerModel, terminal, rerr := s.routeAttachment(ctx, req)
		if rerr != nil {
			if strings.TrimSpace(req.Message) == "" {
				return "", "", "", errs.AttachmentProcessingFailed(rerr)
			}

			log.Warn(ctx, "attachment preprocessing failed, falling back to text only",
				log.String("course_id", courseID), log.Cause(rerr))
		} else if terminal {
			// Audio: the Brain already transcribed and generated in one
			// round trip (§4.3), so there is no separate transcription text
			// to record as the user's turn — fall back to whatever text the
			// user typed alongside the recording, or a placeholder.
			userContent := strings.TrimSpace(req.Message)
			if userContent == "" {
				userContent = "[audio attachment]"
			}

			return userContent, text, routerModel, nil
		} else {
			effectiveMessage = text
		}
	}

	// Retrieval is gated on the caller's *original* course_id, not the
	// normalized storage scope: global chat (no course_id) never retrieves,
	// even though its turns are still persisted under GlobalCourseID.
	retrievalCourseID := strings.TrimSpace(req.CourseID)

	prompt, err := s.composePrompt(ctx, courseID, retrievalCourseID, effectiveMessage)
	if err != nil {
		return "", "", "", err
	}

	reply, model, err = s.brain.GenerateResponse(ctx, prompt)
	if err != nil {
		return "", "", "", err
	}

	return effectiveMessage, reply, model, nil
}

// routeAttachment calls the Brain's /router specialist path for the one
// attachment on this turn. terminal reports whether the returned text is
// already the final chat reply (audio) or needs to flow back through
// composition and a second generate call (image).
func (s *Service) routeAttachment(ctx context.Context, req Request) (text, model string, terminal bool, err error) {
	kind := brainclient.AttachmentImage
	if req.Attachment.Kind == AttachmentAudio {
		kind = brainclient.AttachmentAudio
	}

	prompt := strings.TrimSpace(req.Message)
	if prompt == "" {
		prompt = "Describe and answer about the attached file."
	}

	text, model, err = s.brain.RouteAttachment(ctx, kind, req.Attachment.Data, req.Attachment.MediaType, req.Attachment.Filename, prompt)
	if err != nil {
		return "", "", false, err
	}

	return text, model, kind == brainclient.AttachmentAudio, nil
}

// composePrompt gathers history, personalization, and (if gated) retrieval
// results for message and renders the final prompt. History, personalization,
// and retrieval are all recoverable inputs (§7): a failure in any of them
// degrades that block and is logged at warning level rather than failing the
// turn.
func (s *Service) composePrompt(ctx context.Context, courseID, retrievalCourseID, message string) (string, error) {
	history, err := s.history.Recent(ctx, courseID, s.composeCfg.HistoryTurns)
	if err != nil {
		log.Warn(ctx, "chat history read failed, composing without it", log.String("course_id", courseID), log.Cause(err))
		history = nil
	}

	composeHistory := make([]compose.HistoryTurn, 0, len(history))
	for _, t := range history {
		composeHistory = append(composeHistory, compose.HistoryTurn{Role: t.Role, Content: t.Content})
	}

	var profile personalize.Profile

	if p, err := s.personal.Get(ctx, courseID); err != nil {
		log.Warn(ctx, "personalization read failed, composing without it", log.String("course_id", courseID), log.Cause(err))
	} else {
		profile = p
	}

	var excerpts []retrieval.Result

	if s.composeCfg.ShouldRetrieve(retrievalCourseID, message) {
		if embedding, err := s.brain.GenerateEmbedding(ctx, message); err != nil {
			log.Warn(ctx, "retrieval embedding failed, composing without material context", log.String("course_id", courseID), log.Cause(err))
		} else if results, err := s.index.Search(ctx, retrievalCourseID, embedding, 0); err != nil {
			log.Warn(ctx, "vector search failed, composing without material context", log.String("course_id", courseID), log.Cause(err))
		} else {
			excerpts = results
		}
	}

	return compose.Compose(s.composeCfg, compose.Request{
		CourseID:    courseID,
		UserMessage: message,
		History:     compose.RecentHistory(s.composeCfg, composeHistory),
		Personalization: compose.Personalization{
			AcademicProfile: profile.AcademicProfile,
			Preferences:     profile.Preferences,
		},
		Excerpts: excerpts,
	})
}

func (s *Service) attachmentAllowed(mediaType string) bool {
	for _, allowed := range s.cfg.AllowedAttachmentTypes {
		if allowed == mediaType {
			return true
		}
	}

	return false
}

// lockFor returns the per-course mutex serializing chat turns (P9),
// creating one on first use.
func (s *Service) lockFor(courseID string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(courseID, &sync.Mutex{})
	return lock
}
