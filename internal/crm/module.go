// Package crm provides the contact management bounded context module.
// This file defines the module that encapsulates all CRM setup and route registration.
package crm

import (
	"context"

	"crm_automation_backend/internal/crm/dedupe"
	"crm_automation_backend/internal/crm/handler"
	"crm_automation_backend/internal/crm/repository"
	"crm_automation_backend/internal/crm/scoring"
	"crm_automation_backend/internal/crm/service"
	"crm_automation_backend/internal/events"
	apphttp "crm_automation_backend/internal/http"
	"crm_automation_backend/platform/logger"
	"crm_automation_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the CRM bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	scoring *scoring.Service
}

// NewModule creates and initializes the CRM module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	detector := dedupe.NewDetector()

	scoringSvc := scoring.NewService(repo, scoring.NewEngine(), eventBus, log)
	svc := service.New(repo, detector, eventBus, log)

	// Any activity on a contact changes its score inputs, so recalculate
	// off the hot path whenever one of these events fires.
	recalc := func(contactID uuid.UUID) {
		go func() {
			if _, err := scoringSvc.Recalculate(context.Background(), contactID); err != nil {
				log.Error("score recalculation failed", "error", err, "contactId", contactID)
			}
		}()
	}

	eventBus.Subscribe(events.ContactCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.ContactCreated); ok {
			recalc(e.ContactID)
		}
		return nil
	}))
	eventBus.Subscribe(events.InteractionLogged{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.InteractionLogged); ok {
			recalc(e.ContactID)
		}
		return nil
	}))
	eventBus.Subscribe(events.OpportunityStageChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.OpportunityStageChanged); ok {
			recalc(e.ContactID)
		}
		return nil
	}))

	h := handler.New(svc, scoringSvc, val)

	return &Module{
		handler: h,
		service: svc,
		scoring: scoringSvc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "crm"
}

// Service returns the contact service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// ScoringService returns the scoring service for external use.
func (m *Module) ScoringService() *scoring.Service {
	return m.scoring
}

// RegisterRoutes mounts CRM routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// All contact routes require authentication
	contactsGroup := ctx.Protected.Group("/contacts")
	m.handler.RegisterRoutes(contactsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
