package api

import (
	"time"

	"github.com/Shaswata28/studymate/internal/chat"
	"github.com/Shaswata28/studymate/internal/materials"
	"github.com/Shaswata28/studymate/internal/retrieval"
)

// chatRequest is the POST /chat body (§6.1). CourseID is only read from the
// body on the top-level, unscoped /chat route; the course-scoped route takes
// it from the path instead and ignores this field.
type chatRequest struct {
	Message    string  `json:"message" binding:"required"`
	CourseID   string  `json:"course_id"`
	DedupToken string  `json:"dedup_token"`
	Attachment *struct {
		Kind      string `json:"kind" binding:"required"`
		MediaType string `json:"media_type" binding:"required"`
		Filename  string `json:"filename"`
		// DataBase64 carries the attachment inline; the core accepts at
		// most one attachment per turn (§4.3).
		DataBase64 string `json:"data_base64" binding:"required"`
	} `json:"attachment"`
}

type chatResponse struct {
	Reply      string `json:"reply"`
	Model      string `json:"model"`
	DedupToken string `json:"dedup_token"`
	// Warning is set only on a PartialCompletion response (§7): the reply
	// was generated but the turn could not be persisted.
	Warning string `json:"warning,omitempty"`
}

func toChatResponse(r chat.Response) chatResponse {
	resp := chatResponse{Reply: r.Reply, Model: r.Model, DedupToken: r.DedupToken}

	if r.Degraded {
		resp.Warning = "reply generated but not saved to history; retry with the same dedup_token"
	}

	return resp
}

// materialResponse is one row of §6.1's GET .../materials response shape.
type materialResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	MediaType        string     `json:"media_type"`
	SizeBytes        int64      `json:"size_bytes"`
	ProcessingStatus string     `json:"processing_status"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	HasEmbedding     bool       `json:"has_embedding"`
}

func toMaterialResponse(m *materials.Material) materialResponse {
	return materialResponse{
		ID:               m.ID,
		Name:             m.Name,
		MediaType:        m.MediaType,
		SizeBytes:        m.SizeBytes,
		ProcessingStatus: string(m.Status),
		ProcessedAt:      m.ProcessedAt,
		ErrorMessage:     m.ErrorMessage,
		HasEmbedding:     len(m.Embedding) > 0,
	}
}

type uploadRequest struct {
	Name      string `json:"name" binding:"required"`
	MediaType string `json:"media_type" binding:"required"`
	// DataBase64 carries the raw file contents inline.
	DataBase64 string `json:"data_base64" binding:"required"`
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

// searchResult is one row of §6.1's POST .../materials/search response shape.
type searchResult struct {
	MaterialID string  `json:"material_id"`
	Name       string  `json:"name"`
	MediaType  string  `json:"media_type"`
	Excerpt    string  `json:"excerpt"`
	Similarity float32 `json:"similarity"`
}

func toSearchResult(r retrieval.Result, byID map[string]*materials.Material) searchResult {
	out := searchResult{MaterialID: r.MaterialID, Excerpt: r.Excerpt, Similarity: r.Score}

	if m, ok := byID[r.MaterialID]; ok {
		out.Name = m.Name
		out.MediaType = m.MediaType
	}

	return out
}

type healthResponse struct {
	Status string `json:"status"`
}
