package handler

import (
	"context"
	"net/http"

	"crm_automation_backend/internal/sequences/catalog"
	"crm_automation_backend/internal/sequences/tracker"
	"crm_automation_backend/internal/sequences/transport"
	"crm_automation_backend/platform/httpkit"
	"crm_automation_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	tracker *tracker.Tracker
	catalog *catalog.Catalog
	val     *validator.Validator
}

func New(trk *tracker.Tracker, cat *catalog.Catalog, val *validator.Validator) *Handler {
	return &Handler{tracker: trk, catalog: cat, val: val}
}

// RegisterRoutes mounts sequence routes. sequences is the catalog surface,
// enrollments the per-contact lifecycle surface.
func (h *Handler) RegisterRoutes(sequences, enrollments *gin.RouterGroup) {
	sequences.GET("", h.ListSequences)
	sequences.GET("/:id", h.GetSequence)
	sequences.GET("/:id/analytics", h.Analytics)
	sequences.PATCH("/:id/active", h.SetActive)
	sequences.POST("/tick", h.Tick)

	enrollments.POST("", h.Enroll)
	enrollments.GET("", h.ListByContact)
	enrollments.GET("/:id", h.Get)
	enrollments.POST("/:id/pause", h.Pause)
	enrollments.POST("/:id/resume", h.Resume)
	enrollments.POST("/:id/cancel", h.Cancel)
}

func (h *Handler) ListSequences(c *gin.Context) {
	httpkit.OK(c, transport.ToSequenceResponses(h.catalog.All()))
}

func (h *Handler) GetSequence(c *gin.Context) {
	seq, ok := h.catalog.ByID(c.Param("id"))
	if !ok {
		httpkit.Error(c, http.StatusNotFound, "sequence not found", nil)
		return
	}
	httpkit.OK(c, transport.ToSequenceResponse(seq))
}

func (h *Handler) Analytics(c *gin.Context) {
	analytics, err := h.tracker.AnalyticsFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, analytics)
}

// SetActive toggles whether a sequence picks up new auto-enrollments.
// Existing enrollments keep running.
func (h *Handler) SetActive(c *gin.Context) {
	var req transport.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	id := c.Param("id")
	if !h.catalog.SetActive(id, req.Active) {
		httpkit.Error(c, http.StatusNotFound, "sequence not found", nil)
		return
	}

	seq, _ := h.catalog.ByID(id)
	httpkit.OK(c, transport.ToSequenceResponse(seq))
}

// Tick runs one processing pass on demand, the same work the scheduler
// does periodically. Useful for operators and local development.
func (h *Handler) Tick(c *gin.Context) {
	summary, err := h.tracker.ProcessAll(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, summary)
}

func (h *Handler) Enroll(c *gin.Context) {
	var req transport.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	enrollment, err := h.tracker.Enroll(c.Request.Context(), req.ContactID, req.SequenceID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, transport.ToEnrollmentResponse(enrollment))
}

func (h *Handler) ListByContact(c *gin.Context) {
	contactID, err := uuid.Parse(c.Query("contactId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "contactId query parameter required", nil)
		return
	}

	enrollments, err := h.tracker.ListByContact(c.Request.Context(), contactID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToEnrollmentResponses(enrollments))
}

func (h *Handler) Get(c *gin.Context) {
	enrollment, err := h.tracker.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToEnrollmentResponse(enrollment))
}

func (h *Handler) Pause(c *gin.Context) {
	h.transition(c, h.tracker.Pause, "enrollment cannot be paused")
}

func (h *Handler) Resume(c *gin.Context) {
	h.transition(c, h.tracker.Resume, "enrollment cannot be resumed")
}

func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, h.tracker.Cancel, "enrollment cannot be cancelled")
}

func (h *Handler) transition(c *gin.Context, op func(ctx context.Context, id string) bool, conflictMsg string) {
	id := c.Param("id")
	if !op(c.Request.Context(), id) {
		httpkit.Error(c, http.StatusConflict, conflictMsg, nil)
		return
	}

	enrollment, err := h.tracker.Get(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToEnrollmentResponse(enrollment))
}
