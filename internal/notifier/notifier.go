// Package notifier routes rendered messages to the right delivery channel.
// It is the send capability the enrollment tracker depends on: best effort,
// rate limited, with failures logged rather than returned.
package notifier

import (
	"context"

	crmdomain "crm_automation_backend/internal/crm/domain"
	"crm_automation_backend/internal/crm/scoring"
	"crm_automation_backend/internal/email"
	"crm_automation_backend/internal/events"
	"crm_automation_backend/internal/sequences/template"
	"crm_automation_backend/internal/sequences/tracker"
	"crm_automation_backend/internal/sms"
	"crm_automation_backend/platform/config"
	"crm_automation_backend/platform/logger"

	"golang.org/x/time/rate"
)

// Service fans rendered messages out to email or SMS.
type Service struct {
	email           email.Sender
	sms             *sms.Client
	limiter         *rate.Limiter
	salesAlertPhone string
	log             *logger.Logger
}

func New(emailSender email.Sender, smsClient *sms.Client, cfg config.NotifierConfig, salesAlertPhone string, log *logger.Logger) *Service {
	return &Service{
		email:           emailSender,
		sms:             smsClient,
		limiter:         rate.NewLimiter(rate.Limit(cfg.GetNotifierRatePerSecond()), cfg.GetNotifierBurst()),
		salesAlertPhone: salesAlertPhone,
		log:             log,
	}
}

// Send delivers one message to a contact. The rate limiter bounds pressure
// on providers during a tick; waiting respects the caller's context.
func (s *Service) Send(ctx context.Context, contact crmdomain.Contact, msg template.Message) bool {
	if err := s.limiter.Wait(ctx); err != nil {
		return false
	}

	var err error
	switch msg.Channel {
	case template.ChannelSMS:
		err = s.sms.Send(ctx, contact.Phone, msg.Subject)
	default:
		err = s.email.SendHTML(ctx, contact.Email, msg.Subject, msg.Body)
	}

	if err != nil {
		destination := contact.Email
		if msg.Channel == template.ChannelSMS {
			destination = contact.Phone
		}
		s.log.SendFailure(msg.Channel, destination, msg.Subject, err)
		return false
	}
	return true
}

// SubscribeSalesAlerts wires the SEND_SMS_ALERT auto-action: whenever a
// recalculated score carries it, the configured sales phone gets a text.
func (s *Service) SubscribeSalesAlerts(bus events.Bus) {
	bus.Subscribe(events.LeadScored{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadScored)
		if !ok {
			return nil
		}
		if s.salesAlertPhone == "" || !containsAction(e.AutoActions, scoring.ActionSendSMSAlert) {
			return nil
		}

		message := "Emergency lead needs attention: contact " + e.ContactID.String()
		if err := s.sms.Send(ctx, s.salesAlertPhone, message); err != nil {
			s.log.SendFailure(template.ChannelSMS, s.salesAlertPhone, "sales_alert", err)
		}
		return nil
	}))
}

func containsAction(actions []string, action string) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

var _ tracker.Notifier = (*Service)(nil)
