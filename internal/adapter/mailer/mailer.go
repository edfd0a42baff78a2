package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/niksmo/catalog-audit/internal/core/port"
	"gopkg.in/gomail.v2"
)

var _ port.ReportMailer = (*SMTPMailer)(nil)

const defaultPort = 465

var (
	ErrNoHost       = errors.New("smtp host is required")
	ErrNoSender     = errors.New("from address is required")
	ErrNoRecipients = errors.New("at least one recipient is required")
)

// A Sender delivers composed messages, [gomail.Dialer] in production.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Renderer interface {
	Subject(domain.Report) string
	Text(domain.Report) string
	HTMLString(domain.Report) (string, error)
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

type SMTPMailer struct {
	from     string
	to       []string
	sender   Sender
	renderer Renderer
}

func New(cfg Config, renderer Renderer) (*SMTPMailer, error) {
	const op = "mailer.New"

	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoHost)
	}
	port := cfg.Port
	if port <= 0 {
		port = defaultPort
	}

	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		username = strings.TrimSpace(cfg.From)
	}

	d := gomail.NewDialer(host, port, username, cfg.Password)
	d.SSL = port == defaultPort

	return NewWithSender(cfg.From, cfg.To, d, renderer)
}

// NewWithSender builds a mailer on top of an existing transport.
func NewWithSender(
	from string, to []string, sender Sender, renderer Renderer,
) (*SMTPMailer, error) {
	const op = "mailer.NewWithSender"

	from = strings.TrimSpace(from)
	if from == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSender)
	}

	var recipients []string
	for _, v := range to {
		if v = strings.TrimSpace(v); v != "" {
			recipients = append(recipients, v)
		}
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoRecipients)
	}

	return &SMTPMailer{
		from:     from,
		to:       recipients,
		sender:   sender,
		renderer: renderer,
	}, nil
}

func (m *SMTPMailer) SendReport(ctx context.Context, r domain.Report) error {
	const op = "SMTPMailer.SendReport"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg, err := m.compose(r)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.sender.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Info("report mailed", "runID", r.RunID, "recipients", len(m.to))
	return nil
}

func (m *SMTPMailer) compose(r domain.Report) (*gomail.Message, error) {
	html, err := m.renderer.HTMLString(r)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to...)
	msg.SetHeader("Subject", m.renderer.Subject(r))
	msg.SetBody("text/plain", m.renderer.Text(r))
	msg.AddAlternative("text/html", html)
	return msg, nil
}
