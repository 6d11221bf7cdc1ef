package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	crmdomain "crm_automation_backend/internal/crm/domain"
	"crm_automation_backend/internal/events"
	"crm_automation_backend/internal/sequences/catalog"
	"crm_automation_backend/internal/sequences/domain"
	"crm_automation_backend/internal/sequences/template"
	"crm_automation_backend/platform/logger"
)

type fakeContacts struct {
	mu       sync.Mutex
	contacts map[uuid.UUID]crmdomain.Contact
}

func (f *fakeContacts) GetByID(_ context.Context, id uuid.UUID) (crmdomain.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	contact, ok := f.contacts[id]
	if !ok {
		return crmdomain.Contact{}, errors.New("contact not found")
	}
	return contact, nil
}

type fakeRenderer struct {
	failFor domain.TemplateType
}

func (f *fakeRenderer) Render(templateType domain.TemplateType, contact crmdomain.Contact) (template.Message, error) {
	if templateType == f.failFor {
		return template.Message{}, errors.New("render failed")
	}
	return template.Message{
		Subject: string(templateType),
		Body:    "Hello " + contact.FirstName,
		Channel: template.ChannelEmail,
	}, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	sent     []template.Message
	failNext int
}

func (f *fakeNotifier) Send(_ context.Context, _ crmdomain.Contact, msg template.Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return false
	}
	f.sent = append(f.sent, msg)
	return true
}

func (f *fakeNotifier) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (f *fakeBus) Publish(_ context.Context, event events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
}

func (f *fakeBus) Subscribe(string, events.Handler) {}

func (f *fakeBus) byName(name string) []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Event
	for _, e := range f.published {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	tracker  *Tracker
	store    *MemoryStore
	contacts *fakeContacts
	notifier *fakeNotifier
	renderer *fakeRenderer
	bus      *fakeBus
	now      time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    NewMemoryStore(),
		contacts: &fakeContacts{contacts: make(map[uuid.UUID]crmdomain.Contact)},
		notifier: &fakeNotifier{},
		renderer: &fakeRenderer{},
		bus:      &fakeBus{},
		now:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	opts = append([]Option{WithClock(func() time.Time { return f.now })}, opts...)
	f.tracker = New(f.store, catalog.New(), f.contacts, f.renderer, f.notifier, f.bus, logger.New("test"), opts...)
	return f
}

func (f *fixture) addContact(contact crmdomain.Contact) crmdomain.Contact {
	if contact.ID == (uuid.UUID{}) {
		contact.ID = uuid.New()
	}
	if contact.Email == "" {
		contact.Email = "lead@example.com"
	}
	f.contacts.mu.Lock()
	f.contacts.contacts[contact.ID] = contact
	f.contacts.mu.Unlock()
	return contact
}

func (f *fixture) advanceHours(h int) {
	f.now = f.now.Add(time.Duration(h) * time.Hour)
}

func TestEnroll(t *testing.T) {
	f := newFixture(t)
	contact := f.addContact(crmdomain.Contact{FirstName: "Ada"})

	enrollment, err := f.tracker.Enroll(context.Background(), contact.ID, catalog.SeqNewLeadWelcome)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if enrollment.Status != domain.StatusActive {
		t.Errorf("status = %q, want active", enrollment.Status)
	}
	if enrollment.CurrentStep != 0 {
		t.Errorf("current step = %d, want 0", enrollment.CurrentStep)
	}
	if !enrollment.StartedAt.Equal(f.now) {
		t.Errorf("started at = %v, want %v", enrollment.StartedAt, f.now)
	}

	if _, err := f.tracker.Enroll(context.Background(), contact.ID, "seq-nonexistent"); err == nil {
		t.Error("expected error for unknown sequence")
	}
}

func TestAutoEnrollIdempotent(t *testing.T) {
	f := newFixture(t)
	contact := f.addContact(crmdomain.Contact{FirstName: "Ada"})
	ctx := context.Background()

	created, err := f.tracker.AutoEnroll(ctx, contact, domain.TriggerNewLead)
	if err != nil {
		t.Fatalf("AutoEnroll: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("created %d enrollments, want 1", len(created))
	}

	again, err := f.tracker.AutoEnroll(ctx, contact, domain.TriggerNewLead)
	if err != nil {
		t.Fatalf("second AutoEnroll: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second AutoEnroll created %d enrollments, want 0", len(again))
	}

	all, err := f.store.ListByContact(ctx, contact.ID)
	if err != nil {
		t.Fatalf("ListByContact: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("stored %d enrollments, want 1", len(all))
	}
}

func TestAutoEnrollUnknownTrigger(t *testing.T) {
	f := newFixture(t)
	contact := f.addContact(crmdomain.Contact{})

	created, err := f.tracker.AutoEnroll(context.Background(), contact, "renewal")
	if err != nil {
		t.Fatalf("AutoEnroll: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("created %d enrollments for unknown trigger, want 0", len(created))
	}
}

func TestAutoEnrollConcurrent(t *testing.T) {
	f := newFixture(t)
	contact := f.addContact(crmdomain.Contact{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.tracker.AutoEnroll(ctx, contact, domain.TriggerNewLead)
		}()
	}
	wg.Wait()

	all, err := f.store.ListByContact(ctx, contact.ID)
	if err != nil {
		t.Fatalf("ListByContact: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("stored %d enrollments after concurrent auto-enroll, want 1", len(all))
	}
}

func TestProcessStepDelayGate(t *testing.T) {
	f := newFixture(t)
	contact := f.addContact(crmdomain.Contact{FirstName: "Ada"})
	ctx := context.Background()

	// First step of the proposal sequence is due 48h after enrollment.
	enrollment, err := f.tracker.Enroll(ctx, contact.ID, catalog.SeqProposalFollowup)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	advanced, err := f.tracker.ProcessStep(ctx, enrollment, contact)
	if err != nil {
		t.Fatalf("ProcessStep: %v", err)
	}
	if advanced {
		t.Error("step before its delay should not advance")
	}
	if f.notifier.sentCount() != 0 {
		t.Errorf("sent %d messages, want 0", f.notifier.sentCount())
	}

	f.advanceHours(48)
	advanced, err = f.tracker.ProcessStep(ctx, enrollment, contact)
	if err != nil {
		t.Fatalf("ProcessStep: %v", err)
	}
	if !advanced {
		t.Error("due step should advance")
	}
	if f.notifier.sentCount() != 1 {
		t.Errorf("sent %d messages, want 1", f.notifier.sentCount())
	}

	stored, err := f.store.Get(ctx, enrollment.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.CurrentStep != 1 {
		t.Errorf("current step = %d, want 1", stored.CurrentStep)
	}
}

func TestProcessStepSendFailureRetries(t *testing.T) {
	f := newFixture(t)
	contact := f.addContact(crmdomain.Contact{FirstName: "Ada"})
	ctx := context.Background()

	enrollment, err := f.tracker.Enroll(ctx, contact.ID, catalog.SeqNewLeadWelcome)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	f.notifier.failNext = 1
	advanced, err := f.tracker.ProcessStep(ctx, enrollment, contact)
	if err != nil {
		t.Fatalf("ProcessStep: %v", err)
	}
	if advanced {
		t.Error("failed send should not advance")
	}

	stored, _ := f.store.Get(ctx, enrollment.ID)
	if stored.CurrentStep != 0 {
		t.Errorf("current step = %d after failed send, want 0", stored.CurrentStep)
	}

	// Next tick retries the same step.
	advanced, err = f.tracker.ProcessStep(ctx, stored, contact)
	if err != nil {
		t.Fatalf("retry ProcessStep: %v", err)
	}
	if !advanced {
		t.Error("retry should advance once the send succeeds")
	}
	if f.notifier.sentCount() != 1 {
		t.Errorf("sent %d messages, want 1", f.notifier.sentCount())
	}
}

func TestProcessStepRenderFailure(t *testing.T) {
	f := newFixture(t)
	f.renderer.failFor = domain.TemplateWelcome
	contact := f.addContact(crmdomain.Contact{})
	ctx := context.Background()

	enrollment, err := f.tracker.Enroll(ctx, contact.ID, catalog.SeqNewLeadWelcome)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	advanced, err := f.tracker.ProcessStep(ctx, enrollment, contact)
	if err != nil {
		t.Fatalf("ProcessStep: %v", err)
	}
	if advanced {
		t.Error("render failure should not advance")
	}
	if f.notifier.sentCount() != 0 {
		t.Error("render failure must not send")
	}
}

func TestProcessStepConditionSkip(t *testing.T) {
	f := newFixture(t)
	hot := f.addContact(crmdomain.Contact{FirstName: "Ada", LeadTemperature: crmdomain.TemperatureHot})
	ctx := context.Background()

	// The cold re-engage sequence opens with a step gated on the contact
	// not being hot.
	enrollment, err := f.tracker.Enroll(ctx, hot.ID, catalog.SeqColdReengage)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	advanced, err := f.tracker.ProcessStep(ctx, enrollment, hot)
	if err != nil {
		t.Fatalf("ProcessStep: %v", err)
	}
	if !advanced {
		t.Error("condition skip should still advance")
	}
	if f.notifier.sentCount() != 0 {
		t.Errorf("sent %d messages, want 0 for skipped step", f.notifier.sentCount())
	}

	stored, _ := f.store.Get(ctx, enrollment.ID)
	if stored.CurrentStep != 1 {
		t.Errorf("current step = %d, want 1", stored.CurrentStep)
	}
	if stored.Status != domain.StatusActive {
		t.Errorf("status = %q, want active", stored.Status)
	}
}

func TestProcessStepNonActive(t *testing.T) {
	f := newFixture(t)
	contact := f.addContact(crmdomain.Contact{})
	ctx := context.Background()

	enrollment, err := f.tracker.Enroll(ctx, contact.ID, catalog.SeqNewLeadWelcome)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if !f.tracker.Pause(ctx, enrollment.ID) {
		t.Fatal("Pause failed")
	}

	paused, _ := f.store.Get(ctx, enrollment.ID)
	advanced, err := f.tracker.ProcessStep(ctx, paused, contact)
	if err != nil {
		t.Fatalf("ProcessStep: %v", err)
	}
	if advanced || f.notifier.sentCount() != 0 {
		t.Error("paused enrollment must not be processed")
	}
}

func TestCompletion(t *testing.T) {
	f := newFixture(t)
	contact := f.addContact(crmdomain.Contact{FirstName: "Ada"})
	ctx := context.Background()

	// Won onboarding has two steps at 0h and 720h.
	enrollment, err := f.tracker.Enroll(ctx, contact.ID, catalog.SeqWonOnboarding)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	if advanced, _ := f.tracker.ProcessStep(ctx, enrollment, contact); !advanced {
		t.Fatal("first step should send immediately")
	}
	f.advanceHours(720)
	current, _ := f.store.Get(ctx, enrollment.ID)
	if advanced, _ := f.tracker.ProcessStep(ctx, current, contact); !advanced {
		t.Fatal("final step should send after its delay")
	}

	stored, _ := f.store.Get(ctx, enrollment.ID)
	if stored.Status != domain.StatusCompleted {
		t.Errorf("status = %q, want completed", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Fatal("completed enrollment must record completion time")
	}
	if !stored.CompletedAt.Equal(f.now) {
		t.Errorf("completed at = %v, want %v", stored.CompletedAt, f.now)
	}

	completed := f.bus.byName(events.EnrollmentCompleted{}.EventName())
	if len(completed) != 1 {
		t.Fatalf("published %d completion events, want 1", len(completed))
	}
	event := completed[0].(events.EnrollmentCompleted)
	if event.EnrollmentID != enrollment.ID || event.ContactID != contact.ID {
		t.Errorf("completion event = %+v", event)
	}

	// A later tick over the finished enrollment is a no-op.
	advanced, err := f.tracker.ProcessStep(ctx, stored, contact)
	if err != nil {
		t.Fatalf("ProcessStep after completion: %v", err)
	}
	if advanced {
		t.Error("completed enrollment must not advance again")
	}
	if f.notifier.sentCount() != 2 {
		t.Errorf("sent %d messages, want 2", f.notifier.sentCount())
	}
}

func TestPauseResumeCancel(t *testing.T) {
	f := newFixture(t)
	contact := f.addContact(crmdomain.Contact{})
	ctx := context.Background()

	enrollment, err := f.tracker.Enroll(ctx, contact.ID, catalog.SeqNewLeadWelcome)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	if f.tracker.Resume(ctx, enrollment.ID) {
		t.Error("resuming an active enrollment should fail")
	}
	if !f.tracker.Pause(ctx, enrollment.ID) {
		t.Error("pausing an active enrollment should succeed")
	}
	if f.tracker.Pause(ctx, enrollment.ID) {
		t.Error("pausing twice should fail")
	}
	if !f.tracker.Resume(ctx, enrollment.ID) {
		t.Error("resuming a paused enrollment should succeed")
	}
	if !f.tracker.Cancel(ctx, enrollment.ID) {
		t.Error("cancelling an active enrollment should succeed")
	}
	if f.tracker.Cancel(ctx, enrollment.ID) {
		t.Error("cancelling twice should fail")
	}
	if f.tracker.Resume(ctx, enrollment.ID) {
		t.Error("cancelled enrollment cannot resume")
	}

	if f.tracker.Pause(ctx, "missing:seq:1") {
		t.Error("unknown enrollment should not pause")
	}

	stored, _ := f.store.Get(ctx, enrollment.ID)
	if stored.Status != domain.StatusCancelled {
		t.Errorf("status = %q, want cancelled", stored.Status)
	}
}

// hookStore lets a test run code between Pause reading an enrollment and
// writing the new status, to exercise the status guard.
type hookStore struct {
	Store
	onGet func()
}

func (s *hookStore) Get(ctx context.Context, id string) (domain.Enrollment, error) {
	enrollment, err := s.Store.Get(ctx, id)
	if hook := s.onGet; hook != nil {
		s.onGet = nil
		hook()
	}
	return enrollment, err
}

func TestPauseDoesNotOverwriteCompletion(t *testing.T) {
	inner := NewMemoryStore()
	store := &hookStore{Store: inner}
	contacts := &fakeContacts{contacts: make(map[uuid.UUID]crmdomain.Contact)}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	trk := New(store, catalog.New(), contacts, &fakeRenderer{}, &fakeNotifier{}, &fakeBus{}, logger.New("test"),
		WithClock(func() time.Time { return now }))
	ctx := context.Background()

	contact := crmdomain.Contact{ID: uuid.New(), FirstName: "Ada", Email: "lead@example.com"}
	contacts.contacts[contact.ID] = contact

	enrollment, err := trk.Enroll(ctx, contact.ID, catalog.SeqWonOnboarding)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if _, err := trk.ProcessStep(ctx, enrollment, contact); err != nil {
		t.Fatalf("ProcessStep: %v", err)
	}
	now = now.Add(720 * time.Hour)

	// A tick finishes the final step after Pause has observed the
	// enrollment as active but before it writes the paused status.
	store.onGet = func() {
		current, err := inner.Get(ctx, enrollment.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if _, err := trk.ProcessStep(ctx, current, contact); err != nil {
			t.Fatalf("ProcessStep: %v", err)
		}
	}
	if trk.Pause(ctx, enrollment.ID) {
		t.Error("pause racing a completion should fail")
	}

	stored, err := inner.Get(ctx, enrollment.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != domain.StatusCompleted {
		t.Errorf("status = %q, want completed", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Error("completed at should remain set")
	}
	if trk.Cancel(ctx, enrollment.ID) {
		t.Error("cancelling a completed enrollment should fail")
	}
}

func TestProcessAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	withEmail := f.addContact(crmdomain.Contact{FirstName: "Ada"})
	noEmail := crmdomain.Contact{ID: uuid.New(), FirstName: "Bob"}
	f.contacts.contacts[noEmail.ID] = noEmail
	missing := uuid.New()

	e1, err := f.tracker.Enroll(ctx, withEmail.ID, catalog.SeqNewLeadWelcome)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if _, err := f.tracker.Enroll(ctx, noEmail.ID, catalog.SeqNewLeadWelcome); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if _, err := f.tracker.Enroll(ctx, missing, catalog.SeqNewLeadWelcome); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	summary, err := f.tracker.ProcessAll(ctx)
	if err != nil {
		t.Fatalf("ProcessAll: %v", err)
	}
	if summary.Active != 3 {
		t.Errorf("active = %d, want 3", summary.Active)
	}
	if summary.Sent != 1 {
		t.Errorf("sent = %d, want 1", summary.Sent)
	}
	if summary.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", summary.Skipped)
	}
	if summary.Failed != 1 {
		t.Errorf("failed = %d, want 1", summary.Failed)
	}

	stored, _ := f.store.Get(ctx, e1.ID)
	if stored.CurrentStep != 1 {
		t.Errorf("current step = %d, want 1", stored.CurrentStep)
	}
}

func TestProcessAllParallel(t *testing.T) {
	f := newFixture(t, WithParallelism(4))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		contact := f.addContact(crmdomain.Contact{FirstName: "Lead"})
		if _, err := f.tracker.Enroll(ctx, contact.ID, catalog.SeqNewLeadWelcome); err != nil {
			t.Fatalf("Enroll: %v", err)
		}
	}

	summary, err := f.tracker.ProcessAll(ctx)
	if err != nil {
		t.Fatalf("ProcessAll: %v", err)
	}
	if summary.Sent != 10 {
		t.Errorf("sent = %d, want 10", summary.Sent)
	}
	if f.notifier.sentCount() != 10 {
		t.Errorf("delivered %d messages, want 10", f.notifier.sentCount())
	}
}

func TestAnalyticsFor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Two contacts complete the won onboarding sequence at different
	// speeds, one stays active, one cancels.
	finish := func(hoursToFinal int) {
		contact := f.addContact(crmdomain.Contact{})
		enrollment, err := f.tracker.Enroll(ctx, contact.ID, catalog.SeqWonOnboarding)
		if err != nil {
			t.Fatalf("Enroll: %v", err)
		}
		if _, err := f.tracker.ProcessStep(ctx, enrollment, f.contacts.contacts[contact.ID]); err != nil {
			t.Fatalf("ProcessStep: %v", err)
		}
		start := f.now
		f.advanceHours(hoursToFinal)
		current, _ := f.store.Get(ctx, enrollment.ID)
		if _, err := f.tracker.ProcessStep(ctx, current, f.contacts.contacts[contact.ID]); err != nil {
			t.Fatalf("ProcessStep: %v", err)
		}
		f.now = start
	}
	finish(720)
	finish(820)

	active := f.addContact(crmdomain.Contact{})
	if _, err := f.tracker.Enroll(ctx, active.ID, catalog.SeqWonOnboarding); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	cancelled := f.addContact(crmdomain.Contact{})
	e, err := f.tracker.Enroll(ctx, cancelled.ID, catalog.SeqWonOnboarding)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	f.tracker.Cancel(ctx, e.ID)

	analytics, err := f.tracker.AnalyticsFor(ctx, catalog.SeqWonOnboarding)
	if err != nil {
		t.Fatalf("AnalyticsFor: %v", err)
	}
	if analytics.Counts[domain.StatusCompleted] != 2 {
		t.Errorf("completed count = %d, want 2", analytics.Counts[domain.StatusCompleted])
	}
	if analytics.Counts[domain.StatusActive] != 1 {
		t.Errorf("active count = %d, want 1", analytics.Counts[domain.StatusActive])
	}
	if analytics.Counts[domain.StatusCancelled] != 1 {
		t.Errorf("cancelled count = %d, want 1", analytics.Counts[domain.StatusCancelled])
	}
	if analytics.Completed != 2 {
		t.Errorf("completed = %d, want 2", analytics.Completed)
	}
	if analytics.MeanCompletionHours != 770 {
		t.Errorf("mean completion hours = %v, want 770", analytics.MeanCompletionHours)
	}

	if _, err := f.tracker.AnalyticsFor(ctx, "seq-nonexistent"); err == nil {
		t.Error("expected error for unknown sequence")
	}
}
