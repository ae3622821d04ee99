// Package mailer delivers one-time codes by email over SMTP.
package mailer

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends transactional mail.
type Mailer interface {
	SendCode(to, purpose, code string) error
}

// SMTPConfig configures the SMTP sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends one-time codes via plain SMTP AUTH.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer validates the config and returns a mailer.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("smtp host is required")
	}
	port := cfg.Port
	if port <= 0 {
		port = 587
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		return nil, errors.New("smtp from address is required")
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
		send: smtp.SendMail,
	}, nil
}

// SendCode mails the code with a subject line matching the purpose.
func (m *SMTPMailer) SendCode(to, purpose, code string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("recipient is required")
	}
	subject := subjectFor(purpose)
	body := fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.\r\n", code)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.from, to, subject, body)
	if err := m.send(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func subjectFor(purpose string) string {
	switch purpose {
	case "signup":
		return "Confirm your registration"
	case "reset_password":
		return "Reset your password"
	case "change_password":
		return "Confirm your password change"
	case "delete_account":
		return "Confirm account deletion"
	default:
		return "Your verification code"
	}
}

// LogMailer is a drop-in used in development and tests. It records the last
// code instead of sending mail.
type LogMailer struct {
	LastTo      string
	LastPurpose string
	LastCode    string
}

func (m *LogMailer) SendCode(to, purpose, code string) error {
	m.LastTo = to
	m.LastPurpose = purpose
	m.LastCode = code
	return nil
}
