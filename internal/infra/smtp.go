package infra

import (
	"bytes"
	"fmt"
	"net/smtp"

	"cierrecaja/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer wraps SMTP configuration for sending closing reports.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Configurado is false when no SMTP host was given.
func (m *Mailer) Configurado() bool { return m.host != "" }

// EnviarCierre mails body with the PDF report attached as nombre.
func (m *Mailer) EnviarCierre(to, subject, body, nombre string, pdf []byte) error {
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if len(pdf) > 0 {
		if _, err := e.Attach(bytes.NewReader(pdf), nombre, "application/pdf"); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return e.Send(m.addr, auth)
}
