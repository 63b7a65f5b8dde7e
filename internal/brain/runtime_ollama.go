package brain

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// ollamaRuntime is the default Runtime, talking to an Ollama-compatible
// local model server over HTTP. Keep-alive, multimodal generate, and the
// embeddings endpoint all follow Ollama's `/api/generate`, `/api/embeddings`
// wire shapes, the same request/response-struct-over-http style the teacher
// uses for every upstream provider in llm/transformer.
type ollamaRuntime struct {
	baseURL string
	client  *http.Client
}

// NewOllamaRuntime builds a Runtime against baseURL (e.g. http://127.0.0.1:11434).
func NewOllamaRuntime(baseURL string) Runtime {
	return &ollamaRuntime{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

type ollamaGenerateRequest struct {
	Model     string   `json:"model"`
	Prompt    string   `json:"prompt"`
	Images    []string `json:"images,omitempty"`
	Stream    bool     `json:"stream"`
	KeepAlive *int     `json:"keep_alive,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaEmbedRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	KeepAlive *int   `json:"keep_alive,omitempty"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func keepAliveSeconds(d time.Duration) *int {
	var v int

	switch {
	case d < 0:
		v = -1
	case d == 0:
		v = 0
	default:
		v = int(d.Seconds())
		if v == 0 {
			v = 1
		}
	}

	return &v
}

func (r *ollamaRuntime) Load(ctx context.Context, model string, keepAlive time.Duration) error {
	// Ollama loads a model lazily on first use; an empty-prompt generate
	// call with the desired keep-alive both loads it and pins residency.
	_, err := r.generate(ctx, model, "", keepAliveSeconds(keepAlive))
	return err
}

func (r *ollamaRuntime) Unload(ctx context.Context, model string) error {
	zero := 0
	_, err := r.generate(ctx, model, "", &zero)
	return err
}

func (r *ollamaRuntime) ReclaimMemory(ctx context.Context) error {
	// Ollama has no explicit cache-clear endpoint; issuing the zero
	// keep-alive unload above is the primary reclamation mechanism. This
	// hook exists so a different runtime backend (e.g. one fronting a
	// CUDA allocator) has somewhere to plug a real cache-clear call.
	return nil
}

func (r *ollamaRuntime) Probe(ctx context.Context, model string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/tags", nil)
	if err != nil {
		return newErr(KindInternal, "build probe request", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return mapNetErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return newErr(KindUnavailable, "runtime not ready", nil)
	}

	return nil
}

func (r *ollamaRuntime) Generate(ctx context.Context, model, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", newErr(KindBadInput, "empty prompt", nil)
	}

	return r.generate(ctx, model, prompt, nil)
}

func (r *ollamaRuntime) generate(ctx context.Context, model, prompt string, keepAlive *int) (string, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:     model,
		Prompt:    prompt,
		Stream:    false,
		KeepAlive: keepAlive,
	})
	if err != nil {
		return "", newErr(KindInternal, "encode generate request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", newErr(KindInternal, "build generate request", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", mapNetErr(err)
	}
	defer resp.Body.Close()

	if err := statusErr(resp); err != nil {
		return "", err
	}

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", newErr(KindInternal, "decode generate response", err)
	}

	return out.Response, nil
}

func (r *ollamaRuntime) Embed(ctx context.Context, model, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, newErr(KindBadInput, "empty text", nil)
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: model, Prompt: text})
	if err != nil {
		return nil, newErr(KindInternal, "encode embed request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, newErr(KindInternal, "build embed request", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, mapNetErr(err)
	}
	defer resp.Body.Close()

	if err := statusErr(resp); err != nil {
		return nil, err
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, newErr(KindInternal, "decode embed response", err)
	}

	return out.Embedding, nil
}

func (r *ollamaRuntime) VisionExtract(ctx context.Context, model string, data []byte, mediaType, instruction string) (string, error) {
	if len(data) == 0 {
		return "", newErr(KindBadInput, "empty image", nil)
	}

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  model,
		Prompt: instruction,
		Images: []string{base64.StdEncoding.EncodeToString(data)},
		Stream: false,
	})
	if err != nil {
		return "", newErr(KindInternal, "encode vision request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", newErr(KindInternal, "build vision request", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", mapNetErr(err)
	}
	defer resp.Body.Close()

	if err := statusErr(resp); err != nil {
		return "", err
	}

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", newErr(KindInternal, "decode vision response", err)
	}

	return out.Response, nil
}

func (r *ollamaRuntime) Transcribe(ctx context.Context, model string, data []byte) (string, error) {
	return "", newErr(KindUnavailable, "audio transcription not configured", nil)
}

func mapNetErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newErr(KindTimeout, "runtime request timed out", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newErr(KindTimeout, "runtime request timed out", err)
	}

	return newErr(KindUnavailable, "runtime unreachable", err)
}

func statusErr(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))

	if resp.StatusCode == http.StatusBadRequest {
		return newErr(KindBadInput, string(msg), nil)
	}

	if resp.StatusCode >= 500 {
		return newErr(KindUnavailable, fmt.Sprintf("runtime returned %d: %s", resp.StatusCode, msg), nil)
	}

	return newErr(KindInternal, fmt.Sprintf("runtime returned %d: %s", resp.StatusCode, msg), nil)
}
