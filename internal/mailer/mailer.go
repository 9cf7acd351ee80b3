// Package mailer delivers registration emails over SMTP.
package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/felicity-fest/api/internal/config"
	"github.com/felicity-fest/api/internal/domain"
)

type Mailer struct {
	client *mail.Client
	from   string
}

func New(conf *config.SMTPConfig) (*Mailer, error) {
	client, err := mail.NewClient(conf.Host,
		mail.WithPort(conf.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(conf.Username),
		mail.WithPassword(conf.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("mail.NewClient -> %w", err)
	}

	return &Mailer{
		client: client,
		from:   conf.From,
	}, nil
}

func (m *Mailer) TicketIssued(ctx context.Context, user domain.User, event domain.Event, registration domain.Registration) error {
	subject := fmt.Sprintf("Your ticket for %s", event.Name)
	body := fmt.Sprintf("Hi %s,\n\nYour registration for %s is confirmed.\nTicket: %s\n",
		user.FullName(), event.Name, registration.TicketID)

	for _, sel := range registration.Selections {
		body += fmt.Sprintf("\n%dx %s @ %.2f", sel.Quantity, sel.Name, sel.Price)
	}
	if registration.TotalAmount > 0 {
		body += fmt.Sprintf("\n\nTotal paid: %.2f", registration.TotalAmount)
	}
	body += "\n\nShow the QR code attached to your registration at the venue.\n"

	return m.send(ctx, user.Email, subject, body)
}

func (m *Mailer) OrderRejected(ctx context.Context, user domain.User, event domain.Event, registration domain.Registration) error {
	subject := fmt.Sprintf("Your order for %s was declined", event.Name)
	body := fmt.Sprintf("Hi %s,\n\nYour order #%d for %s could not be approved.\nIf you paid already, contact the organizer for a refund.\n",
		user.FullName(), registration.ID, event.Name)

	return m.send(ctx, user.Email, subject, body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("msg.From -> %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("msg.To -> %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("m.client.DialAndSendWithContext -> %w", err)
	}

	return nil
}
