package tracker

import (
	"context"
	"sort"
	"sync"

	"crm_automation_backend/internal/sequences/domain"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-memory Store. Insert rejects a second
// active enrollment for the same (contact, sequence) pair, matching the
// partial unique index the postgres store relies on.
type MemoryStore struct {
	mu          sync.Mutex
	enrollments map[string]domain.Enrollment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{enrollments: make(map[string]domain.Enrollment)}
}

func (s *MemoryStore) Insert(ctx context.Context, enrollment domain.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enrollment.Status == domain.StatusActive {
		for _, e := range s.enrollments {
			if e.ContactID == enrollment.ContactID && e.SequenceID == enrollment.SequenceID && e.Status == domain.StatusActive {
				return ErrDuplicateActive
			}
		}
	}
	s.enrollments[enrollment.ID] = enrollment
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	enrollment, ok := s.enrollments[id]
	if !ok {
		return domain.Enrollment{}, ErrNotFound
	}
	return enrollment, nil
}

func (s *MemoryStore) UpdateStep(ctx context.Context, id string, fromStep int, update domain.Enrollment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.enrollments[id]
	if !ok || current.CurrentStep != fromStep {
		return false, nil
	}
	s.enrollments[id] = update
	return true, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, id string, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	enrollment, ok := s.enrollments[id]
	if !ok || enrollment.Status != from {
		return false, nil
	}
	enrollment.Status = to
	s.enrollments[id] = enrollment
	return true, nil
}

func (s *MemoryStore) FindActive(ctx context.Context, contactID uuid.UUID, sequenceID string) (domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.enrollments {
		if e.ContactID == contactID && e.SequenceID == sequenceID && e.Status == domain.StatusActive {
			return e, nil
		}
	}
	return domain.Enrollment{}, ErrNotFound
}

func (s *MemoryStore) ListActive(ctx context.Context) ([]domain.Enrollment, error) {
	return s.list(func(e domain.Enrollment) bool { return e.Status == domain.StatusActive }), nil
}

func (s *MemoryStore) ListByContact(ctx context.Context, contactID uuid.UUID) ([]domain.Enrollment, error) {
	return s.list(func(e domain.Enrollment) bool { return e.ContactID == contactID }), nil
}

func (s *MemoryStore) ListBySequence(ctx context.Context, sequenceID string) ([]domain.Enrollment, error) {
	return s.list(func(e domain.Enrollment) bool { return e.SequenceID == sequenceID }), nil
}

func (s *MemoryStore) list(match func(domain.Enrollment) bool) []domain.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Enrollment
	for _, e := range s.enrollments {
		if match(e) {
			out = append(out, e)
		}
	}
	// Map iteration order is random, keep results stable for callers.
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

var _ Store = (*MemoryStore)(nil)
