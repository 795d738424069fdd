package responses

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/errs"
	"github.com/classpulse/backend/internal/middleware"
	"github.com/classpulse/backend/pkg/response"
)

// CreateRequest is the body for POST /lecture-questions/:id/responses.
type CreateRequest struct {
	AnswerID uuid.UUID `json:"answer_id" binding:"required"`
}

// Handler exposes the student-response HTTP surface.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a responses handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /lecture-questions/:id/responses (student). The
// student id comes from the authenticated context, never from the body.
func (h *Handler) Create(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lecture question id")
		return
	}
	studentID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	resp, err := h.svc.CreateResponse(c.Request.Context(), questionID, req.AnswerID, studentID)
	switch {
	case err == nil:
		response.Created(c, resp)
	case errors.Is(err, errs.ErrNotFound):
		response.NotFound(c, "lecture question or answer not found")
	case errors.Is(err, errs.ErrDuplicateResponse):
		response.Conflict(c, "student already responded to this question")
	default:
		h.logger.Error("failed to create response", zap.Error(err))
		response.Internal(c, "failed to create response")
	}
}

// Count handles GET /lecture-questions/:id/responses/count.
func (h *Handler) Count(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lecture question id")
		return
	}
	n, err := h.svc.CountResponses(c.Request.Context(), questionID)
	if err != nil {
		h.logger.Error("failed to count responses", zap.Error(err))
		response.Internal(c, "failed to count responses")
		return
	}
	response.OK(c, gin.H{"lecture_question_id": questionID, "count": n})
}
