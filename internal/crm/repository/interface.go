package repository

import (
	"context"

	"crm_automation_backend/internal/crm/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// ContactReader provides read-only access to contact data.
type ContactReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Contact, error)
	List(ctx context.Context, params ListContactsParams) ([]domain.Contact, int, error)
	ListAll(ctx context.Context) ([]domain.Contact, error)
}

// ContactWriter provides write operations for contact management.
type ContactWriter interface {
	Create(ctx context.Context, params CreateContactParams) (domain.Contact, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateContactParams) (domain.Contact, error)
	UpdateLeadScore(ctx context.Context, id uuid.UUID, score int) error
}

// InteractionStore manages the append-only interaction log.
type InteractionStore interface {
	CreateInteraction(ctx context.Context, params CreateInteractionParams) (domain.Interaction, error)
	ListInteractions(ctx context.Context, contactID uuid.UUID) ([]domain.Interaction, error)
}

// OpportunityStore manages opportunities.
type OpportunityStore interface {
	CreateOpportunity(ctx context.Context, params CreateOpportunityParams) (domain.Opportunity, error)
	GetOpportunityByID(ctx context.Context, id uuid.UUID) (domain.Opportunity, error)
	UpdateOpportunityStage(ctx context.Context, id uuid.UUID, stage string) (domain.Opportunity, error)
	ListOpportunities(ctx context.Context, contactID uuid.UUID) ([]domain.Opportunity, error)
}

// =====================================
// Composite Interface
// =====================================

// CRMRepository defines the complete interface for CRM data operations.
// Composed of smaller, focused interfaces for better testability and flexibility.
type CRMRepository interface {
	ContactReader
	ContactWriter
	InteractionStore
	OpportunityStore
}

// Ensure Repository implements CRMRepository
var _ CRMRepository = (*Repository)(nil)
