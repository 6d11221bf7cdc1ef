package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm_automation_backend/internal/crm/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// =====================================
// Contacts
// =====================================

const contactColumns = `id, first_name, last_name, email, phone, company,
	address, city, state, lead_source, lead_score, lead_temperature, notes,
	created_at, updated_at`

func scanContact(row pgx.Row) (domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Company,
		&c.Address, &c.City, &c.State, &c.LeadSource, &c.LeadScore, &c.LeadTemperature, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

type CreateContactParams struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Company    string
	Address    string
	City       string
	State      string
	LeadSource string
	Notes      string
}

func (r *Repository) Create(ctx context.Context, params CreateContactParams) (domain.Contact, error) {
	contact, err := scanContact(r.pool.QueryRow(ctx, `
		INSERT INTO contacts (
			first_name, last_name, email, phone, company,
			address, city, state, lead_source, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+contactColumns,
		params.FirstName, params.LastName, params.Email, params.Phone, params.Company,
		params.Address, params.City, params.State, params.LeadSource, params.Notes,
	))
	if err != nil {
		return domain.Contact{}, err
	}
	return contact, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Contact, error) {
	contact, err := scanContact(r.pool.QueryRow(ctx, `
		SELECT `+contactColumns+` FROM contacts WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Contact{}, ErrNotFound
	}
	return contact, err
}

type ListContactsParams struct {
	Search      string
	Temperature string
	Limit       int
	Offset      int
}

func (r *Repository) List(ctx context.Context, params ListContactsParams) ([]domain.Contact, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if search := strings.TrimSpace(params.Search); search != "" {
		where = append(where, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d OR company ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx))
		args = append(args, "%"+search+"%")
		argIdx++
	}
	if params.Temperature != "" {
		where = append(where, fmt.Sprintf("lead_temperature = $%d", argIdx))
		args = append(args, params.Temperature)
		argIdx++
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM contacts WHERE "+whereClause, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT %s FROM contacts WHERE %s
		ORDER BY lead_score DESC, created_at DESC
		LIMIT $%d OFFSET $%d
	`, contactColumns, whereClause, argIdx, argIdx+1)
	args = append(args, limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	contacts := make([]domain.Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, 0, err
		}
		contacts = append(contacts, contact)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return contacts, total, nil
}

// ListAll returns every contact. Used by duplicate detection and the score
// refresh job; fine at CRM scale, revisit if the table grows past ~100k rows.
func (r *Repository) ListAll(ctx context.Context) ([]domain.Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+` FROM contacts ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]domain.Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

type UpdateContactParams struct {
	FirstName       *string
	LastName        *string
	Email           *string
	Phone           *string
	Company         *string
	Address         *string
	City            *string
	State           *string
	LeadSource      *string
	LeadTemperature *string
	Notes           *string
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateContactParams) (domain.Contact, error) {
	contact, err := scanContact(r.pool.QueryRow(ctx, `
		UPDATE contacts SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			email = COALESCE($4, email),
			phone = COALESCE($5, phone),
			company = COALESCE($6, company),
			address = COALESCE($7, address),
			city = COALESCE($8, city),
			state = COALESCE($9, state),
			lead_source = COALESCE($10, lead_source),
			lead_temperature = COALESCE($11, lead_temperature),
			notes = COALESCE($12, notes),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+contactColumns,
		id, params.FirstName, params.LastName, params.Email, params.Phone, params.Company,
		params.Address, params.City, params.State, params.LeadSource, params.LeadTemperature, params.Notes,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Contact{}, ErrNotFound
	}
	return contact, err
}

// UpdateLeadScore persists a recomputed score. The stored lead_temperature is
// user-editable and the computed classification is advisory, so it is not
// written here.
func (r *Repository) UpdateLeadScore(ctx context.Context, id uuid.UUID, score int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contacts SET lead_score = $2, updated_at = NOW() WHERE id = $1
	`, id, score)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =====================================
// Interactions
// =====================================

type CreateInteractionParams struct {
	ContactID     uuid.UUID
	OpportunityID *uuid.UUID
	Type          string
	Direction     string
	Subject       string
	OccurredAt    time.Time
}

func (r *Repository) CreateInteraction(ctx context.Context, params CreateInteractionParams) (domain.Interaction, error) {
	occurredAt := params.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	var item domain.Interaction
	err := r.pool.QueryRow(ctx, `
		INSERT INTO interactions (contact_id, opportunity_id, type, direction, subject, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, contact_id, opportunity_id, type, direction, subject, occurred_at
	`,
		params.ContactID, params.OpportunityID, params.Type, params.Direction, params.Subject, occurredAt,
	).Scan(
		&item.ID, &item.ContactID, &item.OpportunityID, &item.Type, &item.Direction, &item.Subject, &item.OccurredAt,
	)
	if err != nil {
		return domain.Interaction{}, err
	}
	return item, nil
}

func (r *Repository) ListInteractions(ctx context.Context, contactID uuid.UUID) ([]domain.Interaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contact_id, opportunity_id, type, direction, subject, occurred_at
		FROM interactions
		WHERE contact_id = $1
		ORDER BY occurred_at DESC
	`, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Interaction, 0)
	for rows.Next() {
		var item domain.Interaction
		if err := rows.Scan(
			&item.ID, &item.ContactID, &item.OpportunityID, &item.Type, &item.Direction, &item.Subject, &item.OccurredAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// =====================================
// Opportunities
// =====================================

const opportunityColumns = `id, contact_id, title, stage, value_cents, urgency,
	expected_close_date, created_at, updated_at`

func scanOpportunity(row pgx.Row) (domain.Opportunity, error) {
	var o domain.Opportunity
	err := row.Scan(
		&o.ID, &o.ContactID, &o.Title, &o.Stage, &o.ValueCents, &o.Urgency,
		&o.ExpectedCloseDate, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

type CreateOpportunityParams struct {
	ContactID         uuid.UUID
	Title             string
	ValueCents        int64
	Urgency           string
	ExpectedCloseDate *time.Time
}

func (r *Repository) CreateOpportunity(ctx context.Context, params CreateOpportunityParams) (domain.Opportunity, error) {
	opp, err := scanOpportunity(r.pool.QueryRow(ctx, `
		INSERT INTO opportunities (contact_id, title, stage, value_cents, urgency, expected_close_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+opportunityColumns,
		params.ContactID, params.Title, domain.StageNew, params.ValueCents, params.Urgency, params.ExpectedCloseDate,
	))
	if err != nil {
		return domain.Opportunity{}, err
	}
	return opp, nil
}

func (r *Repository) GetOpportunityByID(ctx context.Context, id uuid.UUID) (domain.Opportunity, error) {
	opp, err := scanOpportunity(r.pool.QueryRow(ctx, `
		SELECT `+opportunityColumns+` FROM opportunities WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Opportunity{}, ErrNotFound
	}
	return opp, err
}

func (r *Repository) UpdateOpportunityStage(ctx context.Context, id uuid.UUID, stage string) (domain.Opportunity, error) {
	opp, err := scanOpportunity(r.pool.QueryRow(ctx, `
		UPDATE opportunities SET stage = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+opportunityColumns,
		id, stage,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Opportunity{}, ErrNotFound
	}
	return opp, err
}

func (r *Repository) ListOpportunities(ctx context.Context, contactID uuid.UUID) ([]domain.Opportunity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+opportunityColumns+` FROM opportunities
		WHERE contact_id = $1
		ORDER BY created_at DESC
	`, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Opportunity, 0)
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, opp)
	}
	return items, rows.Err()
}
