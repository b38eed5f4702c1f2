package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"navette/pkg/model"
)

type Config struct {
	Host         string
	Port         int
	Username     string
	Password     string
	From         string
	AdminAddress string
}

// Mailer sends templated booking notifications over SMTP. All sends are
// best-effort from the caller's point of view: the caller logs failures
// and moves on.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	admin  string
}

func New(cfg Config) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		admin:  cfg.AdminAddress,
	}
}

func (m *Mailer) BookingReceived(b *model.Booking) error {
	subject := fmt.Sprintf("New booking %s", b.BookingReference)
	return m.send(m.admin, subject, bookingReceivedTmpl, b)
}

func (m *Mailer) BookingConfirmed(b *model.Booking) error {
	subject := fmt.Sprintf("Booking %s confirmed", b.BookingReference)
	return m.send(b.Client.Email, subject, bookingConfirmedTmpl, b)
}

func (m *Mailer) BookingRejected(b *model.Booking) error {
	subject := fmt.Sprintf("Booking %s update", b.BookingReference)
	return m.send(b.Client.Email, subject, bookingRejectedTmpl, b)
}

func (m *Mailer) ReviewRequest(b *model.Booking) error {
	subject := "How was your ride?"
	return m.send(b.Client.Email, subject, reviewRequestTmpl, b)
}

func (m *Mailer) send(to, subject string, tmpl *template.Template, b *model.Booking) error {
	if to == "" {
		return fmt.Errorf("no recipient for %q", subject)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, b); err != nil {
		return fmt.Errorf("rendering email body: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}

	return nil
}
