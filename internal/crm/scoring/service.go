package scoring

import (
	"context"
	"time"

	"crm_automation_backend/internal/crm/domain"
	"crm_automation_backend/internal/events"
	"crm_automation_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface the scoring service needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Contact, error)
	ListAll(ctx context.Context) ([]domain.Contact, error)
	UpdateLeadScore(ctx context.Context, id uuid.UUID, score int) error
	ListInteractions(ctx context.Context, contactID uuid.UUID) ([]domain.Interaction, error)
	ListOpportunities(ctx context.Context, contactID uuid.UUID) ([]domain.Opportunity, error)
}

// Service loads contact data, runs the engine and persists the result.
type Service struct {
	store  Store
	engine *Engine
	bus    events.Bus
	log    *logger.Logger
}

// NewService creates a scoring service.
func NewService(store Store, engine *Engine, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, engine: engine, bus: bus, log: log}
}

// Recalculate recomputes and persists the score for one contact. The computed
// temperature is advisory: only lead_score is written back, the stored
// lead_temperature stays under user control.
func (s *Service) Recalculate(ctx context.Context, contactID uuid.UUID) (Result, error) {
	contact, err := s.store.GetByID(ctx, contactID)
	if err != nil {
		return Result{}, err
	}

	interactions, err := s.store.ListInteractions(ctx, contactID)
	if err != nil {
		return Result{}, err
	}

	opportunities, err := s.store.ListOpportunities(ctx, contactID)
	if err != nil {
		return Result{}, err
	}

	result := s.engine.Score(contact, interactions, opportunities, time.Now().UTC())

	if err := s.store.UpdateLeadScore(ctx, contactID, result.Score); err != nil {
		return Result{}, err
	}

	if s.log != nil {
		s.log.ScoreComputed(contactID.String(), result.Score, result.Temperature)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadScored{
			BaseEvent:   events.NewBaseEvent(),
			ContactID:   contactID,
			Score:       result.Score,
			Temperature: result.Temperature,
			AutoActions: result.AutoActions,
		})
	}

	return result, nil
}

// RefreshSummary reports the outcome of a full score refresh pass.
type RefreshSummary struct {
	Processed int
	Failed    int
	WentCold  int
}

// RefreshAll recomputes every contact's score. Failures on individual
// contacts are logged and skipped so one bad record cannot stall the pass.
// Contacts that decay from warm or hot to cold get a ContactWentCold event,
// which is what enrolls them into the re-engagement sequence.
func (s *Service) RefreshAll(ctx context.Context) (RefreshSummary, error) {
	contacts, err := s.store.ListAll(ctx)
	if err != nil {
		return RefreshSummary{}, err
	}

	summary := RefreshSummary{}
	for _, contact := range contacts {
		previousBand := domain.TemperatureForScore(contact.LeadScore)

		result, err := s.Recalculate(ctx, contact.ID)
		if err != nil {
			summary.Failed++
			if s.log != nil {
				s.log.DatabaseError("score_refresh", err)
			}
			continue
		}
		summary.Processed++

		if previousBand != domain.TemperatureCold && result.Temperature == domain.TemperatureCold {
			summary.WentCold++
			if s.bus != nil {
				s.bus.Publish(ctx, events.ContactWentCold{
					BaseEvent: events.NewBaseEvent(),
					ContactID: contact.ID,
					Score:     result.Score,
				})
			}
		}
	}

	return summary, nil
}
