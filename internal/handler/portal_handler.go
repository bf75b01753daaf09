package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/middleware"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/model"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/proctor"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/response"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/service"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/validator"
)

// PortalHandler exposes the proctored session lifecycle over REST.
// The question flow itself runs over the WebSocket stream; these
// endpoints cover creation, the instructions gate, cancellation,
// state reads and persisted results.
type PortalHandler struct {
	sessionService *service.SessionService
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(sessionService *service.SessionService) *PortalHandler {
	return &PortalHandler{sessionService: sessionService}
}

// CreateSession godoc
// POST /api/v1/employee/exams/:exam_id/sessions
// Opens a session in the instructions state for the given job assignment.
// job_id 0 denotes a refresher run outside any hiring pipeline.
func (h *PortalHandler) CreateSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	key := model.SessionKey{
		EmployeeID: claims.EmployeeID,
		ExamID:     examID,
		JobID:      req.JobID,
	}

	ls, err := h.sessionService.Create(c.Request.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, proctor.ErrUnresolvedIdentity):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrUnresolvedIdentity)
		case errors.Is(err, service.ErrSessionActive):
			response.Fail(c, http.StatusConflict, response.ErrSessionActive)
		case errors.Is(err, service.ErrAttemptExists):
			response.Fail(c, http.StatusConflict, response.ErrAttemptExists)
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"session": ls.Engine.Snapshot(),
	})
}

// Proceed godoc
// POST /api/v1/employee/exams/:exam_id/sessions/proceed
// Acknowledges the instructions and moves the session into camera setup.
func (h *PortalHandler) Proceed(c *gin.Context) {
	ls, ok := h.live(c)
	if !ok {
		return
	}

	if err := ls.Engine.Proceed(c.Request.Context()); err != nil {
		failEngine(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session": ls.Engine.Snapshot(),
	})
}

// CancelSession godoc
// DELETE /api/v1/employee/exams/:exam_id/sessions
// Discards a session that has not started yet. No attempt is recorded.
func (h *PortalHandler) CancelSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	err := h.sessionService.Cancel(c.Request.Context(), claims.EmployeeID, examID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSession):
			response.Fail(c, http.StatusNotFound, response.ErrNoSession)
		default:
			failEngine(c, err)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetState godoc
// GET /api/v1/employee/exams/:exam_id/sessions
// Returns the current session snapshot, including terminal outcomes for a
// short window after the session closes.
func (h *PortalHandler) GetState(c *gin.Context) {
	ls, ok := h.live(c)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session": ls.Engine.Snapshot(),
	})
}

// GetResult godoc
// GET /api/v1/employee/exams/:exam_id/results?job_id=N
// Returns the persisted attempt outcome with per-group scores.
func (h *PortalHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	var query struct {
		JobID int `form:"job_id" binding:"min=0"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validator.TranslateErrors(err))
		return
	}

	key := model.SessionKey{
		EmployeeID: claims.EmployeeID,
		ExamID:     examID,
		JobID:      query.JobID,
	}

	attempt, scores, err := h.sessionService.Result(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrResultNotReady)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"attempt": attempt,
		"scores":  scores,
	})
}

func (h *PortalHandler) live(c *gin.Context) (*service.LiveSession, bool) {
	claims := middleware.GetClaims(c)
	examID, ok := parseExamID(c)
	if !ok {
		return nil, false
	}

	ls, err := h.sessionService.Get(claims.EmployeeID, examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoSession)
		return nil, false
	}
	return ls, true
}

func parseExamID(c *gin.Context) (uuid.UUID, bool) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return examID, true
}

// failEngine maps engine errors onto API error codes.
func failEngine(c *gin.Context, err error) {
	switch {
	case errors.Is(err, proctor.ErrSessionClosed):
		response.Fail(c, http.StatusGone, response.ErrNoSession)
	case errors.Is(err, proctor.ErrInvalidTransition):
		response.Fail(c, http.StatusConflict, response.ErrInvalidTransition)
	case errors.Is(err, proctor.ErrPresenceNotConfirmed):
		response.Fail(c, http.StatusPreconditionFailed, response.ErrPresenceNotConfirmed)
	case errors.Is(err, proctor.ErrFullscreenRequired):
		response.Fail(c, http.StatusPreconditionFailed, response.ErrFullscreenRequired)
	case errors.Is(err, proctor.ErrNoQuestions):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
