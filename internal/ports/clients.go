package ports

import (
	"context"
	"time"

	"leadmarket/internal/domain"
)

// ChargeStatus is the processor's view of a prior charge.
type ChargeStatus string

const (
	ChargeSucceeded ChargeStatus = "succeeded"
	ChargePending   ChargeStatus = "pending"
	ChargeFailed    ChargeStatus = "failed"
)

// PaymentGateway is the external processor. Refund must be safe to re-issue
// for the same charge reference; a failed call must leave no local state
// mutated (the caller enforces ordering).
type PaymentGateway interface {
	Refund(ctx context.Context, chargeRef string) (refundRef string, err error)
	Verify(ctx context.Context, chargeRef string) (ChargeStatus, error)
}

// Notifier delivers best-effort notifications. Failures are logged by the
// caller and never roll back the primary state transition.
type Notifier interface {
	Notify(ctx context.Context, recipientID, event string, metadata map[string]string) error
}

// AuditLog records who did what to which resource. Best-effort, same as
// Notifier.
type AuditLog interface {
	Record(ctx context.Context, actor, action, resource string, metadata map[string]string) error
}

// HealthCache holds computed broker health audits under a short TTL.
// Invalidation is time-based only.
type HealthCache interface {
	GetAudit(ctx context.Context, brokerID string) (domain.BrokerHealthAudit, bool, error)
	SetAudit(ctx context.Context, audit domain.BrokerHealthAudit, ttl time.Duration) error
}
