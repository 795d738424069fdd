package lectures

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/errs"
	"github.com/classpulse/backend/internal/middleware"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/pkg/response"
)

// CreateRequest is the body for POST /lectures.
type CreateRequest struct {
	ChapterID   uuid.UUID   `json:"chapter_id" binding:"required"`
	Title       string      `json:"title" binding:"required"`
	QuestionIDs []uuid.UUID `json:"question_ids"`
}

// StatusRequest is the body for PATCH /lectures/:id/status and
// PATCH /lecture-questions/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// QuestionIDsRequest is the body for adding or removing lecture questions.
type QuestionIDsRequest struct {
	QuestionIDs []uuid.UUID `json:"question_ids" binding:"required,min=1"`
}

// Handler exposes the lecture HTTP surface.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a lectures handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /lectures (faculty).
func (h *Handler) Create(c *gin.Context) {
	facultyID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	detail, err := h.svc.CreateLecture(c.Request.Context(), facultyID, req.ChapterID, req.Title, req.QuestionIDs)
	if err != nil {
		h.fail(c, err, "failed to create lecture")
		return
	}
	response.Created(c, detail)
}

// GetByID handles GET /lectures/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lecture id")
		return
	}
	detail, err := h.svc.GetLecture(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to load lecture")
		return
	}
	response.OK(c, detail)
}

// List handles GET /lectures with faculty_id, chapter_id, status, page and
// page_size query parameters.
func (h *Handler) List(c *gin.Context) {
	var f ListFilter
	if v := c.Query("faculty_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid faculty_id")
			return
		}
		f.FacultyID = &id
	}
	if v := c.Query("chapter_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid chapter_id")
			return
		}
		f.ChapterID = &id
	}
	if v := c.Query("status"); v != "" {
		status := models.LectureStatus(v)
		if !status.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = &status
	}
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	list, total, err := h.svc.ListLectures(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err, "failed to list lectures")
		return
	}
	response.OK(c, gin.H{"lectures": list, "total": total})
}

// UpdateStatus handles PATCH /lectures/:id/status (faculty).
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lecture id")
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	l, err := h.svc.UpdateStatus(c.Request.Context(), id, models.LectureStatus(req.Status))
	if err != nil {
		h.fail(c, err, "failed to update lecture status")
		return
	}
	response.OK(c, l)
}

// AddQuestions handles POST /lectures/:id/questions (faculty).
func (h *Handler) AddQuestions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lecture id")
		return
	}
	var req QuestionIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	questions, err := h.svc.AddQuestions(c.Request.Context(), id, req.QuestionIDs)
	if err != nil {
		h.fail(c, err, "failed to add questions")
		return
	}
	response.Created(c, gin.H{"questions": questions})
}

// RemoveQuestions handles DELETE /lectures/:id/questions (faculty). The
// body lists the lecture-question ids to detach.
func (h *Handler) RemoveQuestions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lecture id")
		return
	}
	var req QuestionIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.svc.RemoveQuestions(c.Request.Context(), id, req.QuestionIDs); err != nil {
		h.fail(c, err, "failed to remove questions")
		return
	}
	response.NoContent(c)
}

// UpdateQuestionStatus handles PATCH /lecture-questions/:id/status
// (faculty).
func (h *Handler) UpdateQuestionStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lecture question id")
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	lq, err := h.svc.UpdateQuestionStatus(c.Request.Context(), id, models.QuestionStatus(req.Status))
	if err != nil {
		h.fail(c, err, "failed to update question status")
		return
	}
	response.OK(c, lq)
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		response.NotFound(c, "not found")
	case errors.Is(err, errs.ErrInvalidTransition):
		response.Conflict(c, "invalid status transition")
	case errors.Is(err, errs.ErrValidationFailed):
		response.UnprocessableEntity(c, "referenced ids could not be validated")
	default:
		h.logger.Error(msg, zap.Error(err))
		response.Internal(c, msg)
	}
}
