package mailer

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/rajivgeraev/swapify-api/internal/config"
)

// Message is one outgoing email
type Message struct {
	To      string
	Subject string
	Body    string // plain text
}

// Sender delivers a single message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers mail through an SMTP server
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates an SMTP sender from the config
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers the message
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them. Used when SMTP is not configured.
type LogSender struct {
	log *zap.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the envelope of the message. The body is left out since it can carry reset links.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("email not sent, SMTP is not configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)))
	return nil
}

// Mailer sends messages in the background on a bounded worker pool
type Mailer struct {
	sender Sender
	pool   *ants.Pool
	log    *zap.Logger
	wg     sync.WaitGroup
}

// New creates a Mailer. An empty SMTP host selects the LogSender.
func New(cfg config.SMTPConfig, log *zap.Logger) (*Mailer, error) {
	var sender Sender = NewLogSender(log)
	if cfg.Host != "" {
		sender = NewSMTPSender(cfg)
	}
	return NewWithSender(sender, cfg.Workers, log)
}

// NewWithSender creates a Mailer around any sender
func NewWithSender(sender Sender, workers int, log *zap.Logger) (*Mailer, error) {
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create mail pool: %w", err)
	}
	return &Mailer{sender: sender, pool: pool, log: log}, nil
}

// SendAsync queues the message for delivery. Delivery errors are logged.
func (m *Mailer) SendAsync(msg Message) error {
	m.wg.Add(1)
	err := m.pool.Submit(func() {
		defer m.wg.Done()
		if err := m.sender.Send(context.Background(), msg); err != nil {
			m.log.Error("send email failed", zap.String("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
		}
	})
	if err != nil {
		m.wg.Done()
		return fmt.Errorf("queue email: %w", err)
	}
	return nil
}

// Close waits for queued messages and releases the pool
func (m *Mailer) Close() {
	m.wg.Wait()
	m.pool.Release()
}
