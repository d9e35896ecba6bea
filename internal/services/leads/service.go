package leads

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leadmarket/internal/domain"
	"leadmarket/internal/ports"
)

// Service owns the lead lifecycle: creation, posting, purchase, whitelisted
// updates, and deletion.
type Service struct {
	jobs  ports.JobRepository
	leads ports.LeadRepository
	audit ports.AuditLog
	log   *zap.Logger
	nowFn func() time.Time
}

func New(jobs ports.JobRepository, leads ports.LeadRepository, audit ports.AuditLog, log *zap.Logger) *Service {
	return &Service{jobs: jobs, leads: leads, audit: audit, log: log, nowFn: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(nowFn func() time.Time) *Service {
	s.nowFn = nowFn
	return s
}

// Create makes a new draft lead against an existing job.
func (s *Service) Create(ctx context.Context, jobID string, price float64, notes string, tags []string) (domain.Lead, error) {
	if price < 0 {
		return domain.Lead{}, fmt.Errorf("%w: price must be non-negative", domain.ErrValidation)
	}
	ok, err := s.jobs.Exists(ctx, jobID)
	if err != nil {
		return domain.Lead{}, err
	}
	if !ok {
		return domain.Lead{}, fmt.Errorf("%w: job %s", domain.ErrNotFound, jobID)
	}
	now := s.nowFn()
	lead := domain.Lead{
		ID:          uuid.NewString(),
		JobID:       jobID,
		Status:      domain.LeadStatusDraft,
		Price:       price,
		Notes:       notes,
		ServiceTags: tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return domain.Lead{}, err
	}
	s.recordAudit(ctx, "operator", "lead.created", lead.ID, map[string]string{"job_id": jobID})
	return lead, nil
}

// Post puts a draft lead up for sale.
func (s *Service) Post(ctx context.Context, leadID string) (domain.Lead, error) {
	lead, err := s.leads.Get(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if lead.Status != domain.LeadStatusDraft {
		return domain.Lead{}, fmt.Errorf("%w: lead is %s, only draft leads can be posted", domain.ErrConflict, lead.Status)
	}
	postedAt := s.nowFn()
	ok, err := s.leads.MarkPosted(ctx, leadID, postedAt)
	if err != nil {
		return domain.Lead{}, err
	}
	if !ok {
		return domain.Lead{}, fmt.Errorf("%w: lead left draft before posting completed", domain.ErrConflict)
	}
	return s.leads.Get(ctx, leadID)
}

// Purchase sells an active lead to buyerID. The storage write is a single
// conditional update on (status, buyer_id); a competing purchaser that loses
// the race gets Conflict, never a silent overwrite.
func (s *Service) Purchase(ctx context.Context, leadID, buyerID string, buyerType domain.BuyerType) (domain.Lead, error) {
	if !buyerType.IsValid() {
		return domain.Lead{}, fmt.Errorf("%w: unrecognized buyer type %q", domain.ErrValidation, buyerType)
	}
	lead, err := s.leads.Get(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if lead.Status != domain.LeadStatusActive || lead.BuyerID != nil {
		return domain.Lead{}, fmt.Errorf("%w: lead is not available for purchase", domain.ErrConflict)
	}
	soldAt := s.nowFn()
	ok, err := s.leads.Purchase(ctx, leadID, buyerID, buyerType, soldAt)
	if err != nil {
		return domain.Lead{}, err
	}
	if !ok {
		return domain.Lead{}, fmt.Errorf("%w: lead was sold to another buyer", domain.ErrConflict)
	}
	s.recordAudit(ctx, buyerID, "lead.purchased", leadID, map[string]string{"buyer_type": string(buyerType)})
	return s.leads.Get(ctx, leadID)
}

// Update applies a whitelisted partial mutation. A status change must be a
// recognized value and a legal forward transition; sold/expired/canceled
// remain terminal here too.
func (s *Service) Update(ctx context.Context, leadID string, patch domain.LeadPatch) (domain.Lead, error) {
	if patch.Empty() {
		return domain.Lead{}, fmt.Errorf("%w: no updatable field supplied", domain.ErrValidation)
	}
	if patch.Price != nil && *patch.Price < 0 {
		return domain.Lead{}, fmt.Errorf("%w: price must be non-negative", domain.ErrValidation)
	}
	lead, err := s.leads.Get(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if patch.Status != nil {
		if !patch.Status.IsValid() {
			return domain.Lead{}, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, *patch.Status)
		}
		if *patch.Status != lead.Status && !lead.Status.CanTransitionTo(*patch.Status) {
			return domain.Lead{}, fmt.Errorf("%w: cannot move lead from %s to %s", domain.ErrConflict, lead.Status, *patch.Status)
		}
		// Reaching active for the first time stamps posted_at, same as Post.
		if *patch.Status == domain.LeadStatusActive && lead.PostedAt == nil && patch.PostedAt == nil {
			now := s.nowFn()
			patch.PostedAt = &now
		}
	}
	return s.leads.Update(ctx, leadID, patch, s.nowFn())
}

// Delete permanently removes a lead.
func (s *Service) Delete(ctx context.Context, leadID string) error {
	if err := s.leads.Delete(ctx, leadID); err != nil {
		return err
	}
	s.recordAudit(ctx, "operator", "lead.deleted", leadID, nil)
	return nil
}

func (s *Service) Get(ctx context.Context, leadID string) (domain.Lead, error) {
	return s.leads.Get(ctx, leadID)
}

func (s *Service) recordAudit(ctx context.Context, actor, action, resource string, metadata map[string]string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, actor, action, resource, metadata); err != nil && s.log != nil {
		s.log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}
