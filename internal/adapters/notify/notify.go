// Package notify provides best-effort notification and audit sinks. The real
// delivery pipeline lives outside this core; these adapters guarantee the
// call is made, not that anything arrives.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{ log *zap.Logger }

func NewLogNotifier(log *zap.Logger) *LogNotifier { return &LogNotifier{log: log} }

func (n *LogNotifier) Notify(_ context.Context, recipientID, event string, metadata map[string]string) error {
	n.log.Info("notification",
		zap.String("recipient_id", recipientID),
		zap.String("event", event),
		zap.Any("metadata", metadata))
	return nil
}

// LogAudit writes audit records to the structured log.
type LogAudit struct{ log *zap.Logger }

func NewLogAudit(log *zap.Logger) *LogAudit { return &LogAudit{log: log} }

func (a *LogAudit) Record(_ context.Context, actor, action, resource string, metadata map[string]string) error {
	a.log.Info("audit",
		zap.String("actor", actor),
		zap.String("action", action),
		zap.String("resource", resource),
		zap.Any("metadata", metadata))
	return nil
}

// AuditEntry is one recorded audit call.
type AuditEntry struct {
	Actor    string
	Action   string
	Resource string
	Metadata map[string]string
}

// MemoryAudit records audit calls for inspection in tests.
type MemoryAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func NewMemoryAudit() *MemoryAudit { return &MemoryAudit{} }

func (a *MemoryAudit) Record(_ context.Context, actor, action, resource string, metadata map[string]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, AuditEntry{Actor: actor, Action: action, Resource: resource, Metadata: metadata})
	return nil
}

func (a *MemoryAudit) Entries() []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]AuditEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// MemoryNotifier records notification calls for inspection in tests.
type MemoryNotifier struct {
	mu     sync.Mutex
	events []string
}

func NewMemoryNotifier() *MemoryNotifier { return &MemoryNotifier{} }

func (n *MemoryNotifier) Notify(_ context.Context, _, event string, _ map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *MemoryNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	copy(out, n.events)
	return out
}
