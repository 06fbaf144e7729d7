package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers TaskTypeSendEmail tasks over SMTP.
type Mailer struct {
	addr   string
	from   string
	send   SendFunc
	logger *slog.Logger
}

// NewMailer builds a Mailer for the given relay.
func NewMailer(host string, port int, from string, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{
		addr:   net.JoinHostPort(host, strconv.Itoa(port)),
		from:   from,
		send:   smtp.SendMail,
		logger: logger,
	}
}

// WithSender replaces the SMTP transport.
func (m *Mailer) WithSender(send SendFunc) *Mailer {
	if send != nil {
		m.send = send
	}
	return m
}

// Handle processes TaskTypeSendEmail tasks. Malformed payloads are not retried.
func (m *Mailer) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("missing recipient: %w", asynq.SkipRetry)
	}
	if err := m.send(m.addr, nil, m.from, []string{payload.To}, m.compose(payload)); err != nil {
		m.logger.Warn("send email", slog.String("subject", payload.Subject), slog.Any("error", err))
		return fmt.Errorf("send email: %w", err)
	}
	m.logger.Info("email sent", slog.String("subject", payload.Subject))
	return nil
}

func (m *Mailer) compose(p SendEmailPayload) []byte {
	var b strings.Builder
	b.WriteString("From: " + m.from + "\r\n")
	b.WriteString("To: " + p.To + "\r\n")
	b.WriteString("Subject: " + p.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(p.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
