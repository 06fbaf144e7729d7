package memstore

import (
	"context"
	"sync"

	"github.com/taskkeeper/taskkeeper/internal/shared"
)

// Audit collects audit records in memory.
type Audit struct {
	mu      sync.Mutex
	Records []shared.AuditLog
}

func (a *Audit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Records = append(a.Records, log)
	return nil
}

// Actions returns the recorded actions in order.
func (a *Audit) Actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.Records))
	for _, r := range a.Records {
		out = append(out, r.Action)
	}
	return out
}

// Mail captures queued emails.
type Mail struct {
	mu   sync.Mutex
	Sent []Email
	Err  error
}

// Email is a captured message.
type Email struct {
	To, Subject, Body string
}

func (m *Mail) EnqueueSendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, Email{To: to, Subject: subject, Body: body})
	return nil
}
