package template

import (
	"strings"
	"testing"

	crmdomain "crm_automation_backend/internal/crm/domain"
	"crm_automation_backend/internal/sequences/catalog"
	"crm_automation_backend/internal/sequences/domain"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

// Every template type referenced by a catalog step must render. This is the
// guard against adding a step before its template exists.
func TestCatalogTemplatesRegistered(t *testing.T) {
	r := newRenderer(t)
	contact := crmdomain.Contact{FirstName: "Ada", Email: "ada@example.com"}

	for _, seq := range catalog.New().All() {
		for _, step := range seq.Steps {
			msg, err := r.Render(step.TemplateType, contact)
			if err != nil {
				t.Errorf("sequence %q template %q: %v", seq.ID, step.TemplateType, err)
				continue
			}
			if msg.Subject == "" {
				t.Errorf("template %q rendered empty subject", step.TemplateType)
			}
			if msg.Body == "" {
				t.Errorf("template %q rendered empty body", step.TemplateType)
			}
			if msg.Channel != ChannelEmail {
				t.Errorf("template %q channel = %q, want email", step.TemplateType, msg.Channel)
			}
		}
	}
}

func TestRenderPersonalization(t *testing.T) {
	r := newRenderer(t)

	msg, err := r.Render(domain.TemplateWelcome, crmdomain.Contact{FirstName: "Ada"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(msg.Body, "Ada") {
		t.Errorf("body does not greet the contact by name: %q", msg.Body)
	}
}

func TestRenderFallbackGreeting(t *testing.T) {
	r := newRenderer(t)

	msg, err := r.Render(domain.TemplateWelcome, crmdomain.Contact{Email: "lead@example.com"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(msg.Body, "there") {
		t.Errorf("body missing fallback greeting: %q", msg.Body)
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	r := newRenderer(t)

	msg, err := r.Render(domain.TemplateWelcome, crmdomain.Contact{FirstName: "<script>"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(msg.Body, "<script>") {
		t.Error("contact fields must be escaped in rendered bodies")
	}
}

func TestRenderUnknownType(t *testing.T) {
	r := newRenderer(t)

	if _, err := r.Render(domain.TemplateType("bogus"), crmdomain.Contact{}); err == nil {
		t.Error("expected error for unknown template type")
	}
}
