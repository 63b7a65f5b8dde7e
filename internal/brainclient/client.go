// Package brainclient implements the Brain Client (C5): a timeout- and
// failure-aware HTTP client from the API server to the Brain Service (C3).
// It is stateless — it never caches embeddings or completions (§4.5) — and
// maps connection failures and deadline exceedances onto the
// errs.KindAIUnavailable / errs.KindTimeout distinction callers rely on.
package brainclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Shaswata28/studymate/internal/errs"
)

// Config is the Brain Client's view of where the Brain listens and the
// per-operation-class deadlines from §4.5.
type Config struct {
	Endpoint      string        `conf:"endpoint" yaml:"endpoint" json:"endpoint"`
	ChatTimeout   time.Duration `conf:"chat_timeout" yaml:"chat_timeout" json:"chat_timeout"`
	EmbedTimeout  time.Duration `conf:"embed_timeout" yaml:"embed_timeout" json:"embed_timeout"`
	VisionTimeout time.Duration `conf:"vision_timeout" yaml:"vision_timeout" json:"vision_timeout"`
	HealthTimeout time.Duration `conf:"health_timeout" yaml:"health_timeout" json:"health_timeout"`
}

// Client is the Brain Client (C5).
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New builds a Client for cfg.
func New(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

// HealthStatus mirrors GET / (§6.2).
type HealthStatus struct {
	Status         string `json:"status"`
	CoreModel      string `json:"core_model"`
	Mode           string `json:"mode"`
	AudioAvailable bool   `json:"audio_available"`
}

// HealthCheck reports whether the Brain is ready, per §4.5. It fails
// closed: any error is reported as not-healthy.
func (c *Client) HealthCheck(ctx context.Context) (HealthStatus, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/", nil)
	if err != nil {
		return HealthStatus{}, false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthStatus{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return HealthStatus{}, false
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return HealthStatus{}, false
	}

	return status, status.Status == "Active"
}

type routerResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

// GenerateResponse sends the fully composed prompt (persona + history +
// retrieval + message, already assembled by the Context Composer) to the
// core model via POST /router with no attachment fields. §4.5's `history`
// parameter is absorbed into prompt upstream; the Brain Service's own
// `history=nil` on this path (§4.3) refers to the underlying runtime call,
// not to our composed context, which is already baked into the text. See
// DESIGN.md for this Open-Question resolution.
func (c *Client) GenerateResponse(ctx context.Context, prompt string) (text string, model string, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ChatTimeout)
	defer cancel()

	return c.postRouter(ctx, prompt, nil)
}

// attachmentKind selects the multipart field name for RouteAttachment.
type attachmentKind string

const (
	AttachmentImage attachmentKind = "image"
	AttachmentAudio attachmentKind = "audio"
)

// RouteAttachment posts an image or audio attachment (and accompanying
// prompt) to POST /router, used both by the Chat Pipeline for a
// single-attachment turn and by Material Processing for vision-extraction
// of an image or PDF material (§4.3, §4.6).
func (c *Client) RouteAttachment(ctx context.Context, kind attachmentKind, data []byte, mediaType, filename, prompt string) (text string, model string, err error) {
	timeout := c.cfg.VisionTimeout
	if kind == AttachmentAudio {
		timeout = c.cfg.ChatTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attachment := &attachment{kind: kind, data: data, mediaType: mediaType, filename: filename}

	return c.postRouter(ctx, prompt, attachment)
}

type attachment struct {
	kind      attachmentKind
	data      []byte
	mediaType string
	filename  string
}

func (c *Client) postRouter(ctx context.Context, prompt string, att *attachment) (string, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("prompt", prompt); err != nil {
		return "", "", errs.Internal(err)
	}

	if att != nil {
		part, err := writer.CreateFormFile(string(att.kind), filenameOrDefault(att))
		if err != nil {
			return "", "", errs.Internal(err)
		}

		if _, err := part.Write(att.data); err != nil {
			return "", "", errs.Internal(err)
		}
	}

	if err := writer.Close(); err != nil {
		return "", "", errs.Internal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/router", body)
	if err != nil {
		return "", "", errs.Internal(err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", mapErr(err)
	}
	defer resp.Body.Close()

	if httpErr := mapStatus(resp); httpErr != nil {
		return "", "", httpErr
	}

	var out routerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", errs.Internal(err)
	}

	return out.Response, out.Model, nil
}

func filenameOrDefault(att *attachment) string {
	if att.filename != "" {
		return att.filename
	}

	switch att.kind {
	case AttachmentImage:
		return "attachment.bin"
	case AttachmentAudio:
		return "audio.bin"
	default:
		return "file.bin"
	}
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// GenerateEmbedding requests an embedding from the Brain's embed specialist,
// per §4.5. It is a pure function of text modulo the model (L2); the client
// does not cache results.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.EmbedTimeout)
	defer cancel()

	if strings.TrimSpace(text) == "" {
		return nil, errs.Validation("text must not be empty")
	}

	payload, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, errs.Internal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/utility/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, errs.Internal(err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapErr(err)
	}
	defer resp.Body.Close()

	if httpErr := mapStatus(resp); httpErr != nil {
		return nil, httpErr
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errs.Internal(err)
	}

	return out.Embedding, nil
}

func mapErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.Timeout("brain request timed out", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Timeout("brain request timed out", err)
	}

	return errs.AIUnavailable(err)
}

func mapStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return errs.BadMaterial(string(msg))
	case resp.StatusCode == http.StatusGatewayTimeout:
		return errs.Timeout(string(msg), nil)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return errs.AIUnavailable(fmt.Errorf("%s", msg))
	case resp.StatusCode >= 500:
		return errs.AIUnavailable(fmt.Errorf("brain returned %d: %s", resp.StatusCode, msg))
	default:
		return errs.Internal(fmt.Errorf("brain returned %d: %s", resp.StatusCode, msg))
	}
}
