package ports

import (
	"context"
	"time"

	"leadmarket/internal/domain"
)

// JobRepository resolves the brokered job a lead is created from. Jobs are
// owned by the surrounding application; this core only checks existence.
type JobRepository interface {
	Exists(ctx context.Context, jobID string) (bool, error)
}

// LeadRepository stores leads and performs the conditional writes the
// lifecycle depends on. Conditional methods report whether the guarded
// precondition still held at write time; false means the row was present but
// already past the expected state.
type LeadRepository interface {
	Create(ctx context.Context, lead domain.Lead) error
	Get(ctx context.Context, id string) (domain.Lead, error)
	// MarkPosted moves draft -> active in a single guarded update.
	MarkPosted(ctx context.Context, id string, postedAt time.Time) (bool, error)
	// Purchase is the compare-and-swap on (status, buyer_id). Exactly one of
	// N concurrent callers may observe true.
	Purchase(ctx context.Context, id, buyerID string, buyerType domain.BuyerType, soldAt time.Time) (bool, error)
	Update(ctx context.Context, id string, patch domain.LeadPatch, updatedAt time.Time) (domain.Lead, error)
	Delete(ctx context.Context, id string) error
}

// PaymentRepository reads the billing rows refund eligibility is gated on and
// writes only their refund fields.
type PaymentRepository interface {
	Get(ctx context.Context, id string) (domain.Payment, error)
	// LatestCompleted returns the most recent completed payment for the
	// contractor/lead pair, or domain.ErrNotFound.
	LatestCompleted(ctx context.Context, contractorID, leadID string) (domain.Payment, error)
	CountCompletedByContractor(ctx context.Context, contractorID string) (int, error)
	SetRefundStatus(ctx context.Context, id string, status domain.PaymentRefundStatus) error
}

// RefundApproval carries everything MarkApproved writes atomically across the
// request and its payment: review fields plus the gateway refund reference
// recorded for idempotent retry.
type RefundApproval struct {
	RequestID  string
	ReviewerID string
	AdminNotes string
	RefundRef  string
	Amount     float64
	At         time.Time
}

type RefundRequestRepository interface {
	// Create persists a pending request; a pending duplicate for the same
	// (contractor, lead) pair yields domain.ErrConflict.
	Create(ctx context.Context, req domain.RefundRequest) error
	Get(ctx context.Context, id string) (domain.RefundRequest, error)
	HasPending(ctx context.Context, contractorID, leadID string) (bool, error)
	CountByContractor(ctx context.Context, contractorID string) (int, error)
	CountByContractorSince(ctx context.Context, contractorID string, since time.Time) (int, error)
	List(ctx context.Context, filter domain.RefundRequestFilter) ([]domain.RefundRequest, error)
	ListByContractor(ctx context.Context, contractorID string) ([]domain.RefundRequest, error)
	// MarkApproved finalizes the request and its payment in one transaction;
	// a request no longer reviewable yields domain.ErrConflict.
	MarkApproved(ctx context.Context, approval RefundApproval) (domain.RefundRequest, error)
	MarkDenied(ctx context.Context, id, reviewerID, reason string, at time.Time) (domain.RefundRequest, error)
	MarkMoreInfo(ctx context.Context, id, reviewerID, question string, at time.Time) (domain.RefundRequest, error)
}

// BrokerStatsRepository aggregates broker activity for the scoring engine.
// Implementations must read every aggregate inside one consistent snapshot so
// the composite score reflects a single point in time.
type BrokerStatsRepository interface {
	Summary(ctx context.Context, brokerID string) (domain.BrokerSummary, error)
	AuditStats(ctx context.Context, brokerID string, now time.Time) (domain.BrokerAuditStats, error)
}
