// Package repository provides the PostgreSQL-backed enrollment store.
package repository

import (
	"context"
	"errors"

	"crm_automation_backend/internal/sequences/domain"
	"crm_automation_backend/internal/sequences/tracker"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const enrollmentColumns = `id, contact_id, sequence_id, current_step, status, started_at, completed_at`

// EnrollmentStore persists enrollments in PostgreSQL.
type EnrollmentStore struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *EnrollmentStore {
	return &EnrollmentStore{pool: pool}
}

func scanEnrollment(row pgx.Row) (domain.Enrollment, error) {
	var e domain.Enrollment
	err := row.Scan(&e.ID, &e.ContactID, &e.SequenceID, &e.CurrentStep, &e.Status, &e.StartedAt, &e.CompletedAt)
	return e, err
}

func (s *EnrollmentStore) Insert(ctx context.Context, enrollment domain.Enrollment) error {
	query := `
		INSERT INTO sequence_enrollments (id, contact_id, sequence_id, current_step, status, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.pool.Exec(ctx, query,
		enrollment.ID, enrollment.ContactID, enrollment.SequenceID,
		enrollment.CurrentStep, enrollment.Status, enrollment.StartedAt, enrollment.CompletedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		// The partial unique index on active (contact_id, sequence_id).
		return tracker.ErrDuplicateActive
	}
	return err
}

func (s *EnrollmentStore) Get(ctx context.Context, id string) (domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM sequence_enrollments WHERE id = $1`
	e, err := scanEnrollment(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Enrollment{}, tracker.ErrNotFound
	}
	return e, err
}

// UpdateStep is the optimistic-concurrency advance: the row only moves if
// its current_step still matches what the caller read.
func (s *EnrollmentStore) UpdateStep(ctx context.Context, id string, fromStep int, update domain.Enrollment) (bool, error) {
	query := `
		UPDATE sequence_enrollments
		SET current_step = $1, status = $2, completed_at = $3
		WHERE id = $4 AND current_step = $5`
	tag, err := s.pool.Exec(ctx, query, update.CurrentStep, update.Status, update.CompletedAt, id, fromStep)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetStatus uses the same guarded update as UpdateStep so a pause or cancel
// issued by the API process cannot clobber a completion written by the
// scheduler. Zero rows means the guard failed or the row is gone.
func (s *EnrollmentStore) SetStatus(ctx context.Context, id string, from, to string) (bool, error) {
	query := `UPDATE sequence_enrollments SET status = $1 WHERE id = $2 AND status = $3`
	tag, err := s.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *EnrollmentStore) FindActive(ctx context.Context, contactID uuid.UUID, sequenceID string) (domain.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM sequence_enrollments
		WHERE contact_id = $1 AND sequence_id = $2 AND status = $3
		LIMIT 1`
	e, err := scanEnrollment(s.pool.QueryRow(ctx, query, contactID, sequenceID, domain.StatusActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Enrollment{}, tracker.ErrNotFound
	}
	return e, err
}

func (s *EnrollmentStore) ListActive(ctx context.Context) ([]domain.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM sequence_enrollments
		WHERE status = $1
		ORDER BY started_at`
	return s.query(ctx, query, domain.StatusActive)
}

func (s *EnrollmentStore) ListByContact(ctx context.Context, contactID uuid.UUID) ([]domain.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM sequence_enrollments
		WHERE contact_id = $1
		ORDER BY started_at`
	return s.query(ctx, query, contactID)
}

func (s *EnrollmentStore) ListBySequence(ctx context.Context, sequenceID string) ([]domain.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM sequence_enrollments
		WHERE sequence_id = $1
		ORDER BY started_at`
	return s.query(ctx, query, sequenceID)
}

func (s *EnrollmentStore) query(ctx context.Context, query string, args ...any) ([]domain.Enrollment, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ tracker.Store = (*EnrollmentStore)(nil)
