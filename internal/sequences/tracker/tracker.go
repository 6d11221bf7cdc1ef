// Package tracker drives contacts through sequence steps. It is built for
// periodic polling: a tick processes whatever is due, send failures leave
// state untouched and are retried on the next tick.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	crmdomain "crm_automation_backend/internal/crm/domain"
	"crm_automation_backend/internal/events"
	"crm_automation_backend/internal/sequences/domain"
	"crm_automation_backend/internal/sequences/template"
	"crm_automation_backend/platform/apperr"
	"crm_automation_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNotFound is returned by stores when an enrollment does not exist.
var ErrNotFound = errors.New("enrollment not found")

// ErrDuplicateActive is returned by stores when inserting would create a
// second active enrollment for the same (contact, sequence) pair.
var ErrDuplicateActive = errors.New("contact already actively enrolled in sequence")

// Store persists enrollments. Implementations must enforce the guarded
// step update so two workers cannot advance the same enrollment twice.
type Store interface {
	Insert(ctx context.Context, enrollment domain.Enrollment) error
	Get(ctx context.Context, id string) (domain.Enrollment, error)
	// UpdateStep applies the update only if the stored CurrentStep still
	// equals fromStep. Returns false without error when the guard fails.
	UpdateStep(ctx context.Context, id string, fromStep int, update domain.Enrollment) (bool, error)
	// SetStatus moves an enrollment from one status to another only if the
	// stored status still equals from. Returns false without error when the
	// guard fails, so a pause or cancel cannot overwrite a completion that
	// landed in between.
	SetStatus(ctx context.Context, id string, from, to string) (bool, error)
	// FindActive returns the active enrollment for a (contact, sequence)
	// pair, or ErrNotFound.
	FindActive(ctx context.Context, contactID uuid.UUID, sequenceID string) (domain.Enrollment, error)
	ListActive(ctx context.Context) ([]domain.Enrollment, error)
	ListByContact(ctx context.Context, contactID uuid.UUID) ([]domain.Enrollment, error)
	ListBySequence(ctx context.Context, sequenceID string) ([]domain.Enrollment, error)
}

// Catalog is the sequence lookup the tracker needs.
type Catalog interface {
	ByID(id string) (domain.Sequence, bool)
	ByTrigger(trigger string) []domain.Sequence
}

// ContactSource loads the contacts whose enrollments are being processed.
type ContactSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (crmdomain.Contact, error)
}

// Renderer renders a step's message for a contact.
type Renderer interface {
	Render(templateType domain.TemplateType, contact crmdomain.Contact) (template.Message, error)
}

// Notifier delivers a rendered message. Best effort: a false return means
// the send did not happen and the step will be retried on a later tick.
type Notifier interface {
	Send(ctx context.Context, contact crmdomain.Contact, msg template.Message) bool
}

// Tracker implements enrollment lifecycle and tick processing.
type Tracker struct {
	store       Store
	catalog     Catalog
	contacts    ContactSource
	renderer    Renderer
	notifier    Notifier
	bus         events.Bus
	log         *logger.Logger
	parallelism int
	now         func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithParallelism bounds how many enrollments a tick processes concurrently.
// Values below 2 keep the tick sequential.
func WithParallelism(n int) Option {
	return func(t *Tracker) { t.parallelism = n }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func New(store Store, cat Catalog, contacts ContactSource, renderer Renderer, notifier Notifier, bus events.Bus, log *logger.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:       store,
		catalog:     cat,
		contacts:    contacts,
		renderer:    renderer,
		notifier:    notifier,
		bus:         bus,
		log:         log,
		parallelism: 1,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Enroll creates a new active enrollment at step zero.
func (t *Tracker) Enroll(ctx context.Context, contactID uuid.UUID, sequenceID string) (domain.Enrollment, error) {
	if _, ok := t.catalog.ByID(sequenceID); !ok {
		return domain.Enrollment{}, apperr.NotFound("sequence not found")
	}

	enrollment := domain.NewEnrollment(contactID, sequenceID, t.now())
	if err := t.store.Insert(ctx, enrollment); err != nil {
		return domain.Enrollment{}, apperr.Wrap(apperr.KindInternal, "failed to create enrollment", err)
	}
	return enrollment, nil
}

// AutoEnroll enrolls a contact into every active sequence for a trigger,
// skipping sequences the contact is already actively enrolled in. Safe to
// call repeatedly for the same (contact, trigger).
func (t *Tracker) AutoEnroll(ctx context.Context, contact crmdomain.Contact, trigger string) ([]domain.Enrollment, error) {
	var created []domain.Enrollment
	for _, seq := range t.catalog.ByTrigger(trigger) {
		_, err := t.store.FindActive(ctx, contact.ID, seq.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return created, apperr.Wrap(apperr.KindInternal, "failed to check existing enrollment", err)
		}

		enrollment, err := t.Enroll(ctx, contact.ID, seq.ID)
		if err != nil {
			// Another worker won the race between the existence check and
			// the insert; the contact is enrolled either way.
			if errors.Is(err, ErrDuplicateActive) {
				continue
			}
			return created, err
		}
		created = append(created, enrollment)
	}
	return created, nil
}

// ProcessStep attempts the enrollment's current step. It returns true when
// the enrollment advanced (send succeeded or the step's condition skipped
// it) and false when nothing changed: not yet due, send failed, unknown
// sequence, or the enrollment is not active.
func (t *Tracker) ProcessStep(ctx context.Context, enrollment domain.Enrollment, contact crmdomain.Contact) (bool, error) {
	if enrollment.Status != domain.StatusActive {
		return false, nil
	}

	seq, ok := t.catalog.ByID(enrollment.SequenceID)
	if !ok {
		// Unknown sequences are skipped rather than failing the tick.
		return false, nil
	}

	if enrollment.CurrentStep >= len(seq.Steps) {
		// Already past the last step, finish the bookkeeping.
		if err := t.advance(ctx, enrollment, seq); err != nil {
			return false, err
		}
		return false, nil
	}

	step := seq.Steps[enrollment.CurrentStep]

	if step.Condition != nil && !step.Condition(contact) {
		if err := t.advance(ctx, enrollment, seq); err != nil {
			return false, err
		}
		return true, nil
	}

	elapsed := t.now().Sub(enrollment.StartedAt).Hours()
	if elapsed < float64(step.DelayHours) {
		return false, nil
	}

	msg, err := t.renderer.Render(step.TemplateType, contact)
	if err != nil {
		t.log.Error("template render failed", "error", err, "templateType", step.TemplateType, "enrollmentId", enrollment.ID)
		return false, nil
	}

	if !t.notifier.Send(ctx, contact, msg) {
		// The notifier logs delivery detail; state stays put for retry.
		t.log.Warn("step not delivered", "enrollmentId", enrollment.ID, "templateType", step.TemplateType)
		return false, nil
	}

	if err := t.advance(ctx, enrollment, seq); err != nil {
		return false, err
	}
	return true, nil
}

// advance moves the enrollment to the next step, completing it when the
// steps are exhausted. A failed guard means another worker already moved
// it; that is treated as a no-op.
func (t *Tracker) advance(ctx context.Context, enrollment domain.Enrollment, seq domain.Sequence) error {
	updated := enrollment
	updated.CurrentStep = enrollment.CurrentStep + 1

	if updated.CurrentStep >= len(seq.Steps) {
		completedAt := t.now()
		updated.Status = domain.StatusCompleted
		updated.CompletedAt = &completedAt
	}

	ok, err := t.store.UpdateStep(ctx, enrollment.ID, enrollment.CurrentStep, updated)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to advance enrollment", err)
	}
	if !ok {
		return nil
	}

	if updated.Status == domain.StatusCompleted && t.bus != nil {
		t.bus.Publish(ctx, events.EnrollmentCompleted{
			BaseEvent:    events.NewBaseEvent(),
			EnrollmentID: updated.ID,
			ContactID:    updated.ContactID,
			SequenceID:   updated.SequenceID,
		})
	}
	return nil
}

// Pause moves an active enrollment to paused. Returns false for unknown
// IDs or enrollments not currently active.
func (t *Tracker) Pause(ctx context.Context, id string) bool {
	return t.setStatus(ctx, id, domain.StatusActive, domain.StatusPaused)
}

// Resume moves a paused enrollment back to active.
func (t *Tracker) Resume(ctx context.Context, id string) bool {
	return t.setStatus(ctx, id, domain.StatusPaused, domain.StatusActive)
}

// Cancel terminates an active or paused enrollment.
func (t *Tracker) Cancel(ctx context.Context, id string) bool {
	enrollment, err := t.store.Get(ctx, id)
	if err != nil {
		return false
	}
	if enrollment.IsTerminal() {
		return false
	}
	// Guard on the status we observed. If a tick completes the enrollment
	// in the meantime the store rejects the write and Cancel reports false.
	ok, err := t.store.SetStatus(ctx, id, enrollment.Status, domain.StatusCancelled)
	if err != nil {
		t.log.Error("enrollment status update failed", "error", err, "enrollmentId", id)
		return false
	}
	return ok
}

func (t *Tracker) setStatus(ctx context.Context, id, from, to string) bool {
	enrollment, err := t.store.Get(ctx, id)
	if err != nil {
		return false
	}
	if enrollment.Status != from {
		return false
	}
	ok, err := t.store.SetStatus(ctx, id, from, to)
	if err != nil {
		t.log.Error("enrollment status update failed", "error", err, "enrollmentId", id)
		return false
	}
	return ok
}

// TickSummary reports what one processing pass did.
type TickSummary struct {
	Active  int `json:"active"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ProcessAll runs one tick over every active enrollment. Contacts without
// an email address are skipped. Per-enrollment failures are counted and
// logged, never fatal to the tick.
func (t *Tracker) ProcessAll(ctx context.Context) (TickSummary, error) {
	started := t.now()

	active, err := t.store.ListActive(ctx)
	if err != nil {
		return TickSummary{}, apperr.Wrap(apperr.KindInternal, "failed to list active enrollments", err)
	}

	summary := TickSummary{Active: len(active)}
	var mu sync.Mutex

	process := func(enrollment domain.Enrollment) {
		contact, err := t.contacts.GetByID(ctx, enrollment.ContactID)
		if err != nil {
			t.log.Error("contact load failed during tick", "error", err, "contactId", enrollment.ContactID, "enrollmentId", enrollment.ID)
			mu.Lock()
			summary.Failed++
			mu.Unlock()
			return
		}
		if contact.Email == "" {
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			return
		}

		advanced, err := t.ProcessStep(ctx, enrollment, contact)
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			summary.Failed++
		case advanced:
			summary.Sent++
		default:
			summary.Skipped++
		}
	}

	if t.parallelism > 1 {
		// Each enrollment appears once in the active list, so workers never
		// touch the same enrollment; the store guard catches anything else.
		g := new(errgroup.Group)
		g.SetLimit(t.parallelism)
		for _, enrollment := range active {
			enrollment := enrollment
			g.Go(func() error {
				process(enrollment)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, enrollment := range active {
			process(enrollment)
		}
	}

	t.log.TickSummary(summary.Active, summary.Sent, summary.Skipped, summary.Failed, float64(t.now().Sub(started).Milliseconds()))
	return summary, nil
}

// Analytics aggregates enrollment outcomes for one sequence.
type Analytics struct {
	SequenceID          string         `json:"sequenceId"`
	Counts              map[string]int `json:"counts"`
	Completed           int            `json:"completed"`
	MeanCompletionHours float64        `json:"meanCompletionHours"`
}

// AnalyticsFor computes status counts and the mean hours from start to
// completion over completed enrollments of the sequence.
func (t *Tracker) AnalyticsFor(ctx context.Context, sequenceID string) (Analytics, error) {
	if _, ok := t.catalog.ByID(sequenceID); !ok {
		return Analytics{}, apperr.NotFound("sequence not found")
	}

	enrollments, err := t.store.ListBySequence(ctx, sequenceID)
	if err != nil {
		return Analytics{}, apperr.Wrap(apperr.KindInternal, "failed to list enrollments", err)
	}

	result := Analytics{SequenceID: sequenceID, Counts: make(map[string]int)}
	var totalHours float64
	for _, e := range enrollments {
		result.Counts[e.Status]++
		if e.Status == domain.StatusCompleted && e.CompletedAt != nil {
			result.Completed++
			totalHours += e.CompletedAt.Sub(e.StartedAt).Hours()
		}
	}
	if result.Completed > 0 {
		result.MeanCompletionHours = totalHours / float64(result.Completed)
	}
	return result, nil
}

// ListByContact returns every enrollment for a contact.
func (t *Tracker) ListByContact(ctx context.Context, contactID uuid.UUID) ([]domain.Enrollment, error) {
	enrollments, err := t.store.ListByContact(ctx, contactID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list enrollments", err)
	}
	return enrollments, nil
}

// Get returns one enrollment by ID.
func (t *Tracker) Get(ctx context.Context, id string) (domain.Enrollment, error) {
	enrollment, err := t.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Enrollment{}, apperr.NotFound("enrollment not found")
		}
		return domain.Enrollment{}, apperr.Wrap(apperr.KindInternal, "failed to load enrollment", err)
	}
	return enrollment, nil
}
