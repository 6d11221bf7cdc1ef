package handler

import (
	"net/http"
	"strconv"

	"crm_automation_backend/internal/crm/repository"
	"crm_automation_backend/internal/crm/scoring"
	"crm_automation_backend/internal/crm/service"
	"crm_automation_backend/internal/crm/transport"
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
	svc     *service.Service
	scoring *scoring.Service
	val     *validator.Validator
}

func New(svc *service.Service, scoringSvc *scoring.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, scoring: scoringSvc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.GET("/:id/duplicates", h.FindDuplicates)
	rg.GET("/:id/score", h.Score)
	rg.POST("/:id/score/recalculate", h.Recalculate)
	rg.GET("/:id/interactions", h.ListInteractions)
	rg.POST("/:id/interactions", h.LogInteraction)
	rg.GET("/:id/opportunities", h.ListOpportunities)
	rg.POST("/:id/opportunities", h.CreateOpportunity)
	rg.PATCH("/:id/opportunities/:opportunityId/stage", h.UpdateOpportunityStage)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	contact, duplicates, err := h.svc.CreateContact(c.Request.Context(), service.CreateContactInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Company:    req.Company,
		Address:    req.Address,
		City:       req.City,
		State:      req.State,
		LeadSource: req.LeadSource,
		Notes:      req.Notes,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.Created(c, transport.CreateContactResponse{
		Contact:    transport.ToContactResponse(contact),
		Duplicates: transport.ToDuplicateResponses(duplicates),
	})
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	contacts, total, err := h.svc.ListContacts(c.Request.Context(), repository.ListContactsParams{
		Search:      c.Query("search"),
		Temperature: c.Query("temperature"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ContactListResponse{
		Items: transport.ToContactResponses(contacts),
		Total: total,
	})
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	contact, err := h.svc.GetContact(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToContactResponse(contact))
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	contact, err := h.svc.UpdateContact(c.Request.Context(), id, service.UpdateContactInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		Company:         req.Company,
		Address:         req.Address,
		City:            req.City,
		State:           req.State,
		LeadSource:      req.LeadSource,
		LeadTemperature: req.LeadTemperature,
		Notes:           req.Notes,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToContactResponse(contact))
}

func (h *Handler) FindDuplicates(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	duplicates, err := h.svc.FindDuplicates(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToDuplicateResponses(duplicates))
}

// Score returns the current score breakdown. The stored lead_score is a
// cache, so reads recompute and refresh it in one pass.
func (h *Handler) Score(c *gin.Context) {
	h.recalculate(c)
}

// Recalculate recomputes the score on demand.
func (h *Handler) Recalculate(c *gin.Context) {
	h.recalculate(c)
}

func (h *Handler) recalculate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.scoring.Recalculate(c.Request.Context(), id)
	if err != nil {
		if err == repository.ErrNotFound {
			httpkit.Error(c, http.StatusNotFound, "contact not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToScoreResponse(id, result))
}

func (h *Handler) LogInteraction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.LogInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	item, err := h.svc.LogInteraction(c.Request.Context(), service.LogInteractionInput{
		ContactID:     id,
		OpportunityID: req.OpportunityID,
		Type:          req.Type,
		Direction:     req.Direction,
		Subject:       req.Subject,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.Created(c, transport.ToInteractionResponse(item))
}

func (h *Handler) ListInteractions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	items, err := h.svc.ListInteractions(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	responses := make([]transport.InteractionResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, transport.ToInteractionResponse(item))
	}
	httpkit.OK(c, responses)
}

func (h *Handler) CreateOpportunity(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.CreateOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	opp, err := h.svc.CreateOpportunity(c.Request.Context(), repository.CreateOpportunityParams{
		ContactID:         id,
		Title:             req.Title,
		ValueCents:        req.ValueCents,
		Urgency:           req.Urgency,
		ExpectedCloseDate: req.ExpectedCloseDate,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.Created(c, transport.ToOpportunityResponse(opp))
}

func (h *Handler) ListOpportunities(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	items, err := h.svc.ListOpportunities(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	responses := make([]transport.OpportunityResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, transport.ToOpportunityResponse(item))
	}
	httpkit.OK(c, responses)
}

func (h *Handler) UpdateOpportunityStage(c *gin.Context) {
	opportunityID, err := uuid.Parse(c.Param("opportunityId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateOpportunityStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	opp, err := h.svc.ChangeOpportunityStage(c.Request.Context(), opportunityID, req.Stage)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToOpportunityResponse(opp))
}
