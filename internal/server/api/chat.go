package api

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shaswata28/studymate/internal/chat"
	"github.com/Shaswata28/studymate/internal/errs"
	"github.com/Shaswata28/studymate/internal/server/middleware"
)

// ChatHandlers serves the Chat Pipeline's HTTP surface (§6.1's POST /chat).
type ChatHandlers struct {
	chat *chat.Service
}

func NewChatHandlers(chatSvc *chat.Service) *ChatHandlers {
	return &ChatHandlers{chat: chatSvc}
}

// PostChat serves both the course-scoped route (course_id from the path)
// and the top-level /chat route (course_id, if any, from the body) — an
// absent course_id selects global chat with no retrieval (§6.1, §9).
func (h *ChatHandlers) PostChat(c *gin.Context) {
	courseID := c.Param("course_id")

	var body chatRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errs.Validation(err.Error()))
		return
	}

	if courseID == "" {
		courseID = body.CourseID
	}

	req := chat.Request{CourseID: courseID, Message: body.Message, DedupToken: body.DedupToken}

	if body.Attachment != nil {
		data, err := base64.StdEncoding.DecodeString(body.Attachment.DataBase64)
		if err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, errs.Validation("attachment data_base64 is not valid base64"))
			return
		}

		req.Attachment = &chat.Attachment{
			Kind:      chat.AttachmentKind(body.Attachment.Kind),
			Data:      data,
			MediaType: body.Attachment.MediaType,
			Filename:  body.Attachment.Filename,
		}
	}

	resp, err := h.chat.Handle(c.Request.Context(), req)
	if err != nil {
		// PartialCompletion (§7) is not an aborted request: the reply was
		// generated successfully and is still returned, with a warning flag
		// standing in for the "200 with a warning" status §7 calls for.
		if errs.KindOf(err) == errs.KindPartialCompletion {
			c.JSON(http.StatusOK, toChatResponse(resp))
			return
		}

		middleware.AbortWithError(c, errs.HTTPStatus(errs.KindOf(err)), err)
		return
	}

	c.JSON(http.StatusOK, toChatResponse(resp))
}
