package brain

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Shaswata28/studymate/internal/log"
	"github.com/Shaswata28/studymate/internal/pdfsplit"
)

// Service is the Brain Service (C3): an HTTP front over the Runtime (C1),
// residency-managed by ResidencyManager (C2). It is run as its own process
// (cmd/brain) and supervised by internal/supervisor (C4) from the API
// server.
type Service struct {
	cfg       ServiceConfig
	residency *ResidencyManager

	audioCapable bool
}

// NewService wires a Service from config and a Runtime (normally
// NewOllamaRuntime(cfg.RuntimeURL)).
func NewService(cfg ServiceConfig, runtime Runtime) *Service {
	return &Service{
		cfg:       cfg,
		residency: NewResidencyManager(runtime, cfg.CoreModel),
	}
}

// Start loads the core model (§4.2 "On startup") and, if AUDIO_MODEL is
// configured, probes transcription once to decide audioCapable for the
// lifetime of the process (§4.1: declared unavailable at startup, fail
// closed thereafter — never re-probed per request). A configured model name
// alone does not imply a working backend; the underlying runtime (the
// Ollama-compatible HTTP API by default) may simply have no transcription
// endpoint, and the probe is what catches that rather than GET /health
// reporting a capability every call then 503s.
func (s *Service) Start(ctx context.Context) error {
	if err := s.residency.Start(ctx); err != nil {
		return err
	}

	if s.cfg.AudioModel != "" {
		if _, err := s.residency.runtime.Transcribe(ctx, s.cfg.AudioModel, nil); err != nil {
			log.Warn(ctx, "audio transcription declared unavailable at startup",
				log.String("audio_model", s.cfg.AudioModel), log.Cause(err))
		} else {
			s.audioCapable = true
		}
	}

	return nil
}

// Engine builds the gin engine implementing §6.2's three routes.
func (s *Service) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	e := gin.New()
	e.Use(gin.Recovery())

	e.GET("/", s.handleHealth)
	e.POST("/router", s.handleRouter)
	e.POST("/utility/embed", s.handleEmbed)

	return e
}

type healthResponse struct {
	Status         string `json:"status"`
	CoreModel      string `json:"core_model"`
	Mode           string `json:"mode"`
	AudioAvailable bool   `json:"audio_available"`
}

func (s *Service) handleHealth(c *gin.Context) {
	status := "Active"

	if err := s.residency.runtime.Probe(c.Request.Context(), s.cfg.CoreModel); err != nil {
		status = "Unavailable"
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:         status,
		CoreModel:      s.residency.CoreModel(),
		Mode:           "Persistent Core",
		AudioAvailable: s.audioCapable,
	})
}

type routerResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

// handleRouter implements §4.3's POST /router: exactly one of {image, audio,
// none} is honored; image wins over audio when both are supplied, with the
// precedence documented here rather than guessed (§9 Open Questions).
func (s *Service) handleRouter(c *gin.Context) {
	ctx := c.Request.Context()

	prompt := c.PostForm("prompt")
	if strings.TrimSpace(prompt) == "" {
		// prompt is still required even on attachment-only calls; the
		// caller passes a fixed instruction (chat attachment) or the
		// material-processing instruction (OCR).
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	imageFile, imageHeader, imageErr := c.Request.FormFile("image")
	audioFile, audioHeader, audioErr := c.Request.FormFile("audio")

	switch {
	case imageErr == nil:
		if audioErr == nil {
			log.Warn(ctx, "router received both image and audio; image wins, audio dropped")
			_ = audioFile.Close()
		}

		defer imageFile.Close()
		s.routeImage(c, imageFile, imageHeader, prompt)
	case audioErr == nil:
		if !s.audioAvailable() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audio transcription unavailable"})
			return
		}

		defer audioFile.Close()
		s.routeAudio(c, audioFile, prompt)
	default:
		s.routeText(c, prompt)
	}
}

func (s *Service) audioAvailable() bool { return s.audioCapable }

func (s *Service) routeText(c *gin.Context, prompt string) {
	text, err := s.residency.Generate(c.Request.Context(), prompt)
	if err != nil {
		writeRuntimeErr(c, err)
		return
	}

	c.JSON(http.StatusOK, routerResponse{Response: text, Model: s.cfg.CoreModel})
}

func (s *Service) routeImage(c *gin.Context, f multipart.File, header *multipart.FileHeader, prompt string) {
	ctx := c.Request.Context()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image"})
		return
	}

	mediaType := header.Header.Get("Content-Type")

	var text string

	if mediaType == "application/pdf" || strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		text, err = s.visionExtractPDF(ctx, data, prompt)
	} else {
		result, verr := WithSpecialist(ctx, s.residency, s.cfg.VisionModel, s.cfg.SpecialistTimeout, func(ctx context.Context) (string, error) {
			return s.residency.runtime.VisionExtract(ctx, s.cfg.VisionModel, data, mediaType, prompt)
		})
		text, err = result, verr
	}

	if err != nil {
		writeRuntimeErr(c, err)
		return
	}

	c.JSON(http.StatusOK, routerResponse{Response: text, Model: s.cfg.VisionModel})
}

// visionExtractPDF page-splits a PDF and vision-extracts each page,
// concatenating with page markers (§4.3, §4.6 step 3).
func (s *Service) visionExtractPDF(ctx context.Context, data []byte, instruction string) (string, error) {
	pages, err := pdfsplit.Split(data)
	if err != nil {
		return "", newErr(KindBadInput, "could not split pdf pages", err)
	}

	var sb strings.Builder

	for i, page := range pages {
		text, err := WithSpecialist(ctx, s.residency, s.cfg.VisionModel, s.cfg.SpecialistTimeout, func(ctx context.Context) (string, error) {
			return s.residency.runtime.VisionExtract(ctx, s.cfg.VisionModel, page, "application/pdf", instruction)
		})
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

func (s *Service) routeAudio(c *gin.Context, f multipart.File, prompt string) {
	ctx := c.Request.Context()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable audio"})
		return
	}

	transcript, err := WithSpecialist(ctx, s.residency, s.cfg.AudioModel, s.cfg.SpecialistTimeout, func(ctx context.Context) (string, error) {
		return s.residency.runtime.Transcribe(ctx, s.cfg.AudioModel, data)
	})
	if err != nil {
		writeRuntimeErr(c, err)
		return
	}

	response, err := s.residency.Generate(ctx, transcript)
	if err != nil {
		writeRuntimeErr(c, err)
		return
	}

	c.JSON(http.StatusOK, routerResponse{Response: response, Model: s.cfg.CoreModel})
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (s *Service) handleEmbed(c *gin.Context) {
	var req embedRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	vec, err := WithSpecialist(c.Request.Context(), s.residency, s.cfg.EmbedModel, s.cfg.SpecialistTimeout, func(ctx context.Context) ([]float32, error) {
		return s.residency.runtime.Embed(ctx, s.cfg.EmbedModel, req.Text)
	})
	if err != nil {
		writeRuntimeErr(c, err)
		return
	}

	if s.cfg.EmbedDim > 0 && len(vec) != s.cfg.EmbedDim {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "embedding dimension mismatch"})
		return
	}

	c.JSON(http.StatusOK, embedResponse{Embedding: vec})
}

func writeRuntimeErr(c *gin.Context, err error) {
	switch KindOf(err) {
	case KindBadInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case KindTimeout:
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case KindUnavailable:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
