package api

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shaswata28/studymate/internal/brainclient"
	"github.com/Shaswata28/studymate/internal/errs"
	"github.com/Shaswata28/studymate/internal/log"
	"github.com/Shaswata28/studymate/internal/materials"
	"github.com/Shaswata28/studymate/internal/queue"
	"github.com/Shaswata28/studymate/internal/retrieval"
	"github.com/Shaswata28/studymate/internal/server/middleware"
)

// MaterialHandlers serves the Material Processing / Vector Search HTTP
// surface (§6.1's materials list, upload and search endpoints).
type MaterialHandlers struct {
	materials *materials.Service
	store     materials.Store
	queue     *queue.Queue
	index     retrieval.Index
	brain     *brainclient.Client
}

func NewMaterialHandlers(svc *materials.Service, store materials.Store, q *queue.Queue, index retrieval.Index, brain *brainclient.Client) *MaterialHandlers {
	return &MaterialHandlers{materials: svc, store: store, queue: q, index: index, brain: brain}
}

func (h *MaterialHandlers) ListMaterials(c *gin.Context) {
	courseID := c.Param("course_id")

	rows, err := h.store.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, errs.Internal(err))
		return
	}

	out := make([]materialResponse, len(rows))
	for i, m := range rows {
		out[i] = toMaterialResponse(m)
	}

	c.JSON(http.StatusOK, out)
}

func (h *MaterialHandlers) UploadMaterial(c *gin.Context) {
	courseID := c.Param("course_id")

	var body uploadRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errs.Validation(err.Error()))
		return
	}

	data, err := base64.StdEncoding.DecodeString(body.DataBase64)
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errs.Validation("data_base64 is not valid base64"))
		return
	}

	m, err := h.materials.Upload(c.Request.Context(), materials.UploadRequest{
		CourseID:  courseID,
		Name:      body.Name,
		MediaType: body.MediaType,
		Data:      data,
	})
	if err != nil {
		middleware.AbortWithError(c, errs.HTTPStatus(errs.KindOf(err)), err)
		return
	}

	// The material is already created and "pending" at this point; a full
	// queue is backpressure, not a reason to fail the upload (§4.7: uploads
	// are never dropped, they just wait for capacity via an administrative
	// reset later).
	if err := h.queue.Enqueue(c.Request.Context(), queue.Job{MaterialID: m.ID}); err != nil {
		log.Warn(c.Request.Context(), "background queue enqueue failed, material left pending",
			log.String("material_id", m.ID), log.Cause(err))
	}

	c.JSON(http.StatusAccepted, toMaterialResponse(m))
}

func (h *MaterialHandlers) SearchMaterials(c *gin.Context) {
	courseID := c.Param("course_id")

	var body searchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errs.Validation(err.Error()))
		return
	}

	embedding, err := h.brain.GenerateEmbedding(c.Request.Context(), body.Query)
	if err != nil {
		middleware.AbortWithError(c, errs.HTTPStatus(errs.KindOf(err)), err)
		return
	}

	results, err := h.index.Search(c.Request.Context(), courseID, embedding, body.TopK)
	if err != nil {
		middleware.AbortWithError(c, errs.HTTPStatus(errs.KindOf(err)), err)
		return
	}

	rows, err := h.store.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, errs.Internal(err))
		return
	}

	byID := make(map[string]*materials.Material, len(rows))
	for _, m := range rows {
		byID[m.ID] = m
	}

	out := make([]searchResult, len(results))
	for i, r := range results {
		out[i] = toSearchResult(r, byID)
	}

	c.JSON(http.StatusOK, out)
}
