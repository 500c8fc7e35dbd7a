// Package mailer delivers portal notifications by email. Callers either send
// synchronously (the request fails when delivery fails) or hand the message
// to a bounded worker pool and move on.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/wneessen/go-mail"

	"github.com/zaqqye/college_portal_backend/internal/logging"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPSender delivers through go-mail with PLAIN auth and opportunistic
// STARTTLS.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(ctx context.Context, m *mail.Msg) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	s := &SMTPSender{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := s.build(msg)
	if err != nil {
		return err
	}
	if err := s.send(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (s *SMTPSender) build(msg Message) (*mail.Msg, error) {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return nil, errors.New("mailer: empty recipient")
	}
	m := mail.NewMsg()
	if err := m.FromFormat("College Management System", s.cfg.From); err != nil {
		return nil, fmt.Errorf("mailer: from address: %w", err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("mailer: recipient %q: %w", to, err)
	}
	m.Subject(headerValue(msg.Subject))
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}

func (s *SMTPSender) dialAndSend(ctx context.Context, m *mail.Msg) error {
	port, err := strconv.Atoi(s.cfg.Port)
	if err != nil || port <= 0 {
		port = 587
	}
	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(30*time.Second),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, m)
}

// headerValue folds control characters to spaces so user-supplied text in a
// subject stays on one header line.
func headerValue(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsControl), " ")
}

// LogSender only logs messages. Used when SMTP is not configured.
type LogSender struct {
	Log logging.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	s.Log.Info(ctx, "email not sent, smtp not configured", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Mailer is the entry point controllers use.
type Mailer struct {
	sender Sender
	pool   *Pool
	log    logging.Logger
}

func New(sender Sender, pool *Pool, log logging.Logger) *Mailer {
	return &Mailer{sender: sender, pool: pool, log: log}
}

// Send delivers msg before returning.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	return m.sender.Send(ctx, msg)
}

// SendAsync queues msg on the worker pool. Delivery errors are logged by the
// worker and never reach the caller.
func (m *Mailer) SendAsync(msg Message) {
	if m.pool == nil {
		go func() {
			if err := m.sender.Send(context.Background(), msg); err != nil {
				m.log.Error(context.Background(), "async email failed", "to", msg.To, "subject", msg.Subject, "error", err)
			}
		}()
		return
	}
	if !m.pool.Dispatch(msg) {
		m.log.Warn(context.Background(), "mail queue full, dropping email", "to", msg.To, "subject", msg.Subject)
	}
}
