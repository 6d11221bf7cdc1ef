// Package template renders sequence step messages. Each template type has
// its own implementation registered at startup so an unregistered type is
// caught by the registry test rather than at send time.
package template

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"

	crmdomain "crm_automation_backend/internal/crm/domain"
	"crm_automation_backend/internal/sequences/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Delivery channels for rendered messages.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Message is a rendered, ready-to-send step message.
type Message struct {
	Subject string
	Body    string
	Channel string
}

// Template produces the subject line for one template type. The HTML body
// lives in templates/<type>.html and is rendered with the contact's fields.
type Template interface {
	Type() domain.TemplateType
	Subject(contact crmdomain.Contact) string
}

// Renderer renders messages for every registered template type.
type Renderer struct {
	templates map[domain.TemplateType]Template
	bodies    *htmltemplate.Template
}

// New parses the embedded bodies and registers all template implementations.
func New() (*Renderer, error) {
	bodies, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse message templates: %w", err)
	}

	r := &Renderer{
		templates: make(map[domain.TemplateType]Template),
		bodies:    bodies,
	}
	for _, t := range registered {
		r.templates[t.Type()] = t
	}
	return r, nil
}

// Types returns all registered template types.
func (r *Renderer) Types() []domain.TemplateType {
	types := make([]domain.TemplateType, 0, len(r.templates))
	for t := range r.templates {
		types = append(types, t)
	}
	return types
}

type bodyData struct {
	FirstName string
	LastName  string
	Email     string
	Company   string
}

// Render produces the message for a template type and contact.
func (r *Renderer) Render(templateType domain.TemplateType, contact crmdomain.Contact) (Message, error) {
	t, ok := r.templates[templateType]
	if !ok {
		return Message{}, fmt.Errorf("unknown template type %q", templateType)
	}

	var buf bytes.Buffer
	data := bodyData{
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		Email:     contact.Email,
		Company:   contact.Company,
	}
	if err := r.bodies.ExecuteTemplate(&buf, string(templateType)+".html", data); err != nil {
		return Message{}, fmt.Errorf("render body for %q: %w", templateType, err)
	}

	return Message{
		Subject: t.Subject(contact),
		Body:    buf.String(),
		Channel: ChannelEmail,
	}, nil
}
