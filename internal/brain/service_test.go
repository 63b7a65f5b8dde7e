package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testServiceConfig() ServiceConfig {
	return ServiceConfig{
		CoreModel:   "llama3.1",
		VisionModel: "llama3.2-vision",
		EmbedModel:  "nomic-embed",
		AudioModel:  "",
	}
}

func postRouter(t *testing.T, s *Service, prompt string, fields map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("prompt", prompt))

	for field, data := range fields {
		part, err := writer.CreateFormFile(field, field+".bin")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/router", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	return rec
}

func TestHandleRouter_TextOnly(t *testing.T) {
	rt := newFakeRuntime()
	s := NewService(testServiceConfig(), rt)
	require.NoError(t, s.Start(context.Background()))

	rec := postRouter(t, s, "hello", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out routerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "generated:hello", out.Response)
	require.Equal(t, "llama3.1", out.Model)
}

func TestHandleRouter_ImageWinsOverAudio(t *testing.T) {
	rt := newFakeRuntime()
	rt.visionResult = "ocr text"
	rt.transcribeResult = "should not be used"

	cfg := testServiceConfig()
	cfg.AudioModel = "whisper"

	s := NewService(cfg, rt)
	require.NoError(t, s.Start(context.Background()))

	rec := postRouter(t, s, "describe", map[string][]byte{
		"image": []byte("fake-png-bytes"),
		"audio": []byte("fake-wav-bytes"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out routerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "ocr text", out.Response)
	require.Equal(t, "llama3.2-vision", out.Model)
}

func TestHandleRouter_AudioUnavailableByDefault(t *testing.T) {
	rt := newFakeRuntime()
	cfg := testServiceConfig()
	cfg.AudioModel = "whisper"

	s := NewService(cfg, rt)
	require.NoError(t, s.Start(context.Background()))
	require.False(t, s.audioAvailable(), "Transcribe probe fails in fakeRuntime's default stub, so capability must stay closed")

	rec := postRouter(t, s, "transcribe this", map[string][]byte{"audio": []byte("fake-wav-bytes")})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleRouter_AudioAvailableWhenProbeSucceeds(t *testing.T) {
	rt := newFakeRuntime()
	rt.transcribeResult = "transcribed text"

	cfg := testServiceConfig()
	cfg.AudioModel = "whisper"

	s := NewService(cfg, rt)
	require.NoError(t, s.Start(context.Background()))
	require.True(t, s.audioAvailable())

	rec := postRouter(t, s, "respond", map[string][]byte{"audio": []byte("fake-wav-bytes")})
	require.Equal(t, http.StatusOK, rec.Code)

	var out routerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "generated:transcribed text", out.Response)
}

func TestHandleRouter_RequiresPrompt(t *testing.T) {
	rt := newFakeRuntime()
	s := NewService(testServiceConfig(), rt)
	require.NoError(t, s.Start(context.Background()))

	rec := postRouter(t, s, "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth_ReportsAudioCapability(t *testing.T) {
	rt := newFakeRuntime()
	rt.transcribeResult = "ok"

	cfg := testServiceConfig()
	cfg.AudioModel = "whisper"

	s := NewService(cfg, rt)
	require.NoError(t, s.Start(context.Background()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	var out healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, out.AudioAvailable)
	require.Equal(t, "llama3.1", out.CoreModel)
	require.Equal(t, "Persistent Core", out.Mode)
}

func TestHandleEmbed_RejectsDimensionMismatch(t *testing.T) {
	rt := newFakeRuntime()
	rt.embedResult = []float32{0.1, 0.2}

	cfg := testServiceConfig()
	cfg.EmbedDim = 3

	s := NewService(cfg, rt)
	require.NoError(t, s.Start(context.Background()))

	body, _ := json.Marshal(embedRequest{Text: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/utility/embed", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
