package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"crm_automation_backend/internal/crm/dedupe"
	"crm_automation_backend/internal/crm/domain"
	"crm_automation_backend/internal/crm/repository"
	"crm_automation_backend/internal/events"
	"crm_automation_backend/platform/apperr"
	"crm_automation_backend/platform/logger"
)

type fakeRepo struct {
	mu            sync.Mutex
	contacts      map[uuid.UUID]domain.Contact
	interactions  map[uuid.UUID][]domain.Interaction
	opportunities map[uuid.UUID]domain.Opportunity
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		contacts:      make(map[uuid.UUID]domain.Contact),
		interactions:  make(map[uuid.UUID][]domain.Interaction),
		opportunities: make(map[uuid.UUID]domain.Opportunity),
	}
}

func (r *fakeRepo) Create(_ context.Context, params repository.CreateContactParams) (domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contact := domain.Contact{
		ID:              uuid.New(),
		FirstName:       params.FirstName,
		LastName:        params.LastName,
		Email:           params.Email,
		Phone:           params.Phone,
		Company:         params.Company,
		Address:         params.Address,
		City:            params.City,
		State:           params.State,
		LeadSource:      params.LeadSource,
		LeadTemperature: domain.TemperatureCold,
		Notes:           params.Notes,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	r.contacts[contact.ID] = contact
	return contact, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contact, ok := r.contacts[id]
	if !ok {
		return domain.Contact{}, repository.ErrNotFound
	}
	return contact, nil
}

func (r *fakeRepo) List(_ context.Context, _ repository.ListContactsParams) ([]domain.Contact, int, error) {
	all, _ := r.ListAll(context.Background())
	return all, len(all), nil
}

func (r *fakeRepo) ListAll(_ context.Context) ([]domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Contact, 0, len(r.contacts))
	for _, c := range r.contacts {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeRepo) Update(_ context.Context, id uuid.UUID, params repository.UpdateContactParams) (domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contact, ok := r.contacts[id]
	if !ok {
		return domain.Contact{}, repository.ErrNotFound
	}
	if params.Phone != nil {
		contact.Phone = *params.Phone
	}
	if params.LeadSource != nil {
		contact.LeadSource = *params.LeadSource
	}
	if params.LeadTemperature != nil {
		contact.LeadTemperature = *params.LeadTemperature
	}
	if params.Notes != nil {
		contact.Notes = *params.Notes
	}
	r.contacts[id] = contact
	return contact, nil
}

func (r *fakeRepo) UpdateLeadScore(_ context.Context, id uuid.UUID, score int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	contact, ok := r.contacts[id]
	if !ok {
		return repository.ErrNotFound
	}
	contact.LeadScore = score
	r.contacts[id] = contact
	return nil
}

func (r *fakeRepo) CreateInteraction(_ context.Context, params repository.CreateInteractionParams) (domain.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := domain.Interaction{
		ID:            uuid.New(),
		ContactID:     params.ContactID,
		OpportunityID: params.OpportunityID,
		Type:          params.Type,
		Direction:     params.Direction,
		Subject:       params.Subject,
		OccurredAt:    time.Now(),
	}
	r.interactions[params.ContactID] = append(r.interactions[params.ContactID], item)
	return item, nil
}

func (r *fakeRepo) ListInteractions(_ context.Context, contactID uuid.UUID) ([]domain.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interactions[contactID], nil
}

func (r *fakeRepo) CreateOpportunity(_ context.Context, params repository.CreateOpportunityParams) (domain.Opportunity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	opp := domain.Opportunity{
		ID:                uuid.New(),
		ContactID:         params.ContactID,
		Title:             params.Title,
		Stage:             domain.StageNew,
		ValueCents:        params.ValueCents,
		Urgency:           params.Urgency,
		ExpectedCloseDate: params.ExpectedCloseDate,
	}
	r.opportunities[opp.ID] = opp
	return opp, nil
}

func (r *fakeRepo) GetOpportunityByID(_ context.Context, id uuid.UUID) (domain.Opportunity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	opp, ok := r.opportunities[id]
	if !ok {
		return domain.Opportunity{}, repository.ErrNotFound
	}
	return opp, nil
}

func (r *fakeRepo) UpdateOpportunityStage(_ context.Context, id uuid.UUID, stage string) (domain.Opportunity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	opp, ok := r.opportunities[id]
	if !ok {
		return domain.Opportunity{}, repository.ErrNotFound
	}
	opp.Stage = stage
	r.opportunities[id] = opp
	return opp, nil
}

func (r *fakeRepo) ListOpportunities(_ context.Context, contactID uuid.UUID) ([]domain.Opportunity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Opportunity
	for _, opp := range r.opportunities {
		if opp.ContactID == contactID {
			out = append(out, opp)
		}
	}
	return out, nil
}

var _ repository.CRMRepository = (*fakeRepo)(nil)

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) byName(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.published {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

func newService() (*Service, *fakeRepo, *recordingBus) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := New(repo, dedupe.NewDetector(), bus, logger.New("test"))
	return svc, repo, bus
}

func TestCreateContact(t *testing.T) {
	svc, _, bus := newService()
	ctx := context.Background()

	contact, duplicates, err := svc.CreateContact(ctx, CreateContactInput{
		FirstName:  " Ada ",
		LastName:   "Lovelace",
		Email:      "Ada.Lovelace@Example.COM",
		LeadSource: "Web Form",
	})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	if contact.Email != "ada.lovelace@example.com" {
		t.Errorf("email = %q, want lowercased", contact.Email)
	}
	if contact.FirstName != "Ada" {
		t.Errorf("first name = %q, want trimmed", contact.FirstName)
	}
	if contact.LeadSource != "web_form" {
		t.Errorf("lead source = %q, want normalized", contact.LeadSource)
	}
	if len(duplicates) != 0 {
		t.Errorf("fresh contact reported %d duplicates", len(duplicates))
	}

	created := bus.byName(events.ContactCreated{}.EventName())
	if len(created) != 1 {
		t.Fatalf("published %d ContactCreated events, want 1", len(created))
	}
	event := created[0].(events.ContactCreated)
	if event.ContactID != contact.ID || event.Source != "web_form" {
		t.Errorf("unexpected event %+v", event)
	}
}

func TestCreateContactRequiresEmailOrPhone(t *testing.T) {
	svc, _, bus := newService()

	_, _, err := svc.CreateContact(context.Background(), CreateContactInput{FirstName: "Ada"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if len(bus.published) != 0 {
		t.Error("no event should be published on validation failure")
	}

	// A phone number alone is enough.
	if _, _, err := svc.CreateContact(context.Background(), CreateContactInput{Phone: "+31612345678"}); err != nil {
		t.Errorf("phone-only contact rejected: %v", err)
	}
}

func TestCreateContactReportsDuplicates(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	original, _, err := svc.CreateContact(ctx, CreateContactInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
	})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}

	// Same email in different casing must come back as a duplicate, and
	// the second contact is still created.
	second, duplicates, err := svc.CreateContact(ctx, CreateContactInput{
		FirstName: "A.",
		LastName:  "Lovelace",
		Email:     "ADA@example.com",
	})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	if second.ID == original.ID {
		t.Fatal("expected a new contact record")
	}
	if len(duplicates) != 1 {
		t.Fatalf("found %d duplicates, want 1", len(duplicates))
	}
	if duplicates[0].Contact.ID != original.ID {
		t.Errorf("duplicate = %v, want original contact", duplicates[0].Contact.ID)
	}
}

func TestFindDuplicates(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	first, _, err := svc.CreateContact(ctx, CreateContactInput{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	if _, _, err := svc.CreateContact(ctx, CreateContactInput{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}); err != nil {
		t.Fatalf("CreateContact: %v", err)
	}

	duplicates, err := svc.FindDuplicates(ctx, first.ID)
	if err != nil {
		t.Fatalf("FindDuplicates: %v", err)
	}
	if len(duplicates) != 1 {
		t.Errorf("found %d duplicates, want 1", len(duplicates))
	}

	if _, err := svc.FindDuplicates(ctx, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestLogInteraction(t *testing.T) {
	svc, _, bus := newService()
	ctx := context.Background()

	contact, _, err := svc.CreateContact(ctx, CreateContactInput{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}

	item, err := svc.LogInteraction(ctx, LogInteractionInput{
		ContactID: contact.ID,
		Type:      domain.InteractionCall,
		Direction: domain.DirectionInbound,
		Subject:   "  Discovery call  ",
	})
	if err != nil {
		t.Fatalf("LogInteraction: %v", err)
	}
	if item.Subject != "Discovery call" {
		t.Errorf("subject = %q, want trimmed", item.Subject)
	}

	logged := bus.byName(events.InteractionLogged{}.EventName())
	if len(logged) != 1 {
		t.Fatalf("published %d InteractionLogged events, want 1", len(logged))
	}

	tests := []struct {
		name  string
		input LogInteractionInput
	}{
		{"unknown type", LogInteractionInput{ContactID: contact.ID, Type: "fax", Direction: domain.DirectionInbound}},
		{"unknown direction", LogInteractionInput{ContactID: contact.ID, Type: domain.InteractionCall, Direction: "sideways"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.LogInteraction(ctx, tt.input); !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}

	unknownContact := LogInteractionInput{ContactID: uuid.New(), Type: domain.InteractionCall, Direction: domain.DirectionInbound}
	if _, err := svc.LogInteraction(ctx, unknownContact); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestCreateOpportunity(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	contact, _, err := svc.CreateContact(ctx, CreateContactInput{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}

	opp, err := svc.CreateOpportunity(ctx, repository.CreateOpportunityParams{
		ContactID:  contact.ID,
		Title:      "HVAC install",
		ValueCents: -100,
	})
	if err != nil {
		t.Fatalf("CreateOpportunity: %v", err)
	}
	if opp.Stage != domain.StageNew {
		t.Errorf("stage = %q, want new", opp.Stage)
	}
	if opp.Urgency != domain.UrgencyNormal {
		t.Errorf("urgency = %q, want defaulted to normal", opp.Urgency)
	}
	if opp.ValueCents != 0 {
		t.Errorf("value = %d, want negative clamped to 0", opp.ValueCents)
	}

	bad := repository.CreateOpportunityParams{ContactID: contact.ID, Urgency: "apocalyptic"}
	if _, err := svc.CreateOpportunity(ctx, bad); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestChangeOpportunityStage(t *testing.T) {
	svc, _, bus := newService()
	ctx := context.Background()

	contact, _, err := svc.CreateContact(ctx, CreateContactInput{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	opp, err := svc.CreateOpportunity(ctx, repository.CreateOpportunityParams{
		ContactID:  contact.ID,
		Title:      "HVAC install",
		ValueCents: 250000,
	})
	if err != nil {
		t.Fatalf("CreateOpportunity: %v", err)
	}

	updated, err := svc.ChangeOpportunityStage(ctx, opp.ID, domain.StageQualified)
	if err != nil {
		t.Fatalf("ChangeOpportunityStage: %v", err)
	}
	if updated.Stage != domain.StageQualified {
		t.Errorf("stage = %q, want qualified", updated.Stage)
	}

	changed := bus.byName(events.OpportunityStageChanged{}.EventName())
	if len(changed) != 1 {
		t.Fatalf("published %d stage events, want 1", len(changed))
	}
	event := changed[0].(events.OpportunityStageChanged)
	if event.OldStage != domain.StageNew || event.NewStage != domain.StageQualified {
		t.Errorf("event stages = %q -> %q", event.OldStage, event.NewStage)
	}

	// Same stage is a no-op without an event.
	if _, err := svc.ChangeOpportunityStage(ctx, opp.ID, domain.StageQualified); err != nil {
		t.Fatalf("same-stage change: %v", err)
	}
	if got := bus.byName(events.OpportunityStageChanged{}.EventName()); len(got) != 1 {
		t.Errorf("no-op change published an event")
	}

	// Skipping the pipeline is a conflict.
	if _, err := svc.ChangeOpportunityStage(ctx, opp.ID, domain.StageWon); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("err = %v, want conflict", err)
	}
	if _, err := svc.ChangeOpportunityStage(ctx, opp.ID, "bogus"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("err = %v, want validation error", err)
	}
	if _, err := svc.ChangeOpportunityStage(ctx, uuid.New(), domain.StageQualified); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestListContactsRejectsUnknownTemperature(t *testing.T) {
	svc, _, _ := newService()

	_, _, err := svc.ListContacts(context.Background(), repository.ListContactsParams{Temperature: "lukewarm"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("err = %v, want validation error", err)
	}
}
