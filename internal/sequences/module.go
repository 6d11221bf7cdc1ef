// Package sequences provides the nurture sequence bounded context module.
// It owns the catalog, enrollment tracking and tick processing, and maps
// CRM domain events onto enrollment triggers.
package sequences

import (
	"context"

	crmdomain "crm_automation_backend/internal/crm/domain"
	"crm_automation_backend/internal/events"
	apphttp "crm_automation_backend/internal/http"
	"crm_automation_backend/internal/sequences/catalog"
	"crm_automation_backend/internal/sequences/domain"
	"crm_automation_backend/internal/sequences/handler"
	"crm_automation_backend/internal/sequences/repository"
	"crm_automation_backend/internal/sequences/template"
	"crm_automation_backend/internal/sequences/tracker"
	"crm_automation_backend/platform/config"
	"crm_automation_backend/platform/logger"
	"crm_automation_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the sequences bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	tracker *tracker.Tracker
	catalog *catalog.Catalog
}

// NewModule creates and initializes the sequences module. The contact
// source and notifier are injected so the module stays decoupled from how
// contacts are stored and messages delivered.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, contacts tracker.ContactSource, notifier tracker.Notifier, cfg config.NotifierConfig, log *logger.Logger) (*Module, error) {
	cat := catalog.New()

	renderer, err := template.New()
	if err != nil {
		return nil, err
	}

	store := repository.New(pool)
	trk := tracker.New(store, cat, contacts, renderer, notifier, eventBus, log,
		tracker.WithParallelism(cfg.GetNotifierParallelism()))

	m := &Module{
		handler: handler.New(trk, cat, val),
		tracker: trk,
		catalog: cat,
	}
	m.subscribe(eventBus, contacts, log)
	return m, nil
}

// subscribe maps CRM events to enrollment triggers. Enrollment happens off
// the publishing request's path; AutoEnroll's idempotency guard absorbs
// duplicate deliveries.
func (m *Module) subscribe(eventBus events.Bus, contacts tracker.ContactSource, log *logger.Logger) {
	enroll := func(contactID uuid.UUID, trigger string) {
		go func() {
			ctx := context.Background()
			contact, err := contacts.GetByID(ctx, contactID)
			if err != nil {
				log.Error("contact load failed for auto-enroll", "error", err, "contactId", contactID, "trigger", trigger)
				return
			}
			if _, err := m.tracker.AutoEnroll(ctx, contact, trigger); err != nil {
				log.Error("auto-enroll failed", "error", err, "contactId", contactID, "trigger", trigger)
			}
		}()
	}

	eventBus.Subscribe(events.ContactCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.ContactCreated); ok {
			enroll(e.ContactID, domain.TriggerNewLead)
		}
		return nil
	}))

	eventBus.Subscribe(events.OpportunityStageChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.OpportunityStageChanged)
		if !ok {
			return nil
		}
		switch e.NewStage {
		case crmdomain.StageProposal:
			enroll(e.ContactID, domain.TriggerProposalSent)
		case crmdomain.StageWon:
			enroll(e.ContactID, domain.TriggerWonDeal)
		case crmdomain.StageLost:
			enroll(e.ContactID, domain.TriggerLostDeal)
		}
		return nil
	}))

	eventBus.Subscribe(events.ContactWentCold{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.ContactWentCold); ok {
			enroll(e.ContactID, domain.TriggerColdLead)
		}
		return nil
	}))
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "sequences"
}

// Tracker returns the enrollment tracker for external use (scheduler worker).
func (m *Module) Tracker() *tracker.Tracker {
	return m.tracker
}

// RegisterRoutes mounts sequence routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	sequencesGroup := ctx.Protected.Group("/sequences")
	enrollmentsGroup := ctx.Protected.Group("/enrollments")
	m.handler.RegisterRoutes(sequencesGroup, enrollmentsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
