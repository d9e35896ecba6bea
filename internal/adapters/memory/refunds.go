package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"leadmarket/internal/domain"
	"leadmarket/internal/ports"
)

// RefundRepo mirrors the postgres adapter's partial-unique-index guard by
// rechecking pending uniqueness under its lock on insert. It holds a
// reference to the payment repo so approval and denial update both records
// the way the postgres transaction does.
type RefundRepo struct {
	mu       sync.Mutex
	requests map[string]domain.RefundRequest
	payments *PaymentRepo
}

func NewRefundRepo(payments *PaymentRepo) *RefundRepo {
	return &RefundRepo{requests: map[string]domain.RefundRequest{}, payments: payments}
}

func (r *RefundRepo) Create(_ context.Context, req domain.RefundRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.requests {
		if existing.ContractorID == req.ContractorID && existing.LeadID == req.LeadID &&
			existing.Status == domain.RefundRequestPending {
			return fmt.Errorf("%w: a pending refund request already exists for this lead", domain.ErrConflict)
		}
	}
	r.requests[req.ID] = req
	return nil
}

func (r *RefundRepo) Get(_ context.Context, id string) (domain.RefundRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(id)
}

func (r *RefundRepo) getLocked(id string) (domain.RefundRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return domain.RefundRequest{}, fmt.Errorf("%w: refund request", domain.ErrNotFound)
	}
	return req, nil
}

func (r *RefundRepo) HasPending(_ context.Context, contractorID, leadID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.ContractorID == contractorID && req.LeadID == leadID && req.Status == domain.RefundRequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *RefundRepo) CountByContractor(_ context.Context, contractorID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, req := range r.requests {
		if req.ContractorID == contractorID {
			n++
		}
	}
	return n, nil
}

func (r *RefundRepo) CountByContractorSince(_ context.Context, contractorID string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, req := range r.requests {
		if req.ContractorID == contractorID && !req.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *RefundRepo) List(_ context.Context, filter domain.RefundRequestFilter) ([]domain.RefundRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.RefundRequest{}
	for _, req := range r.requests {
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.ContractorID != nil && req.ContractorID != *filter.ContractorID {
			continue
		}
		if filter.From != nil && req.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && req.CreatedAt.After(*filter.To) {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *RefundRepo) ListByContractor(ctx context.Context, contractorID string) ([]domain.RefundRequest, error) {
	return r.List(ctx, domain.RefundRequestFilter{ContractorID: &contractorID})
}

func (r *RefundRepo) MarkApproved(_ context.Context, approval ports.RefundApproval) (domain.RefundRequest, error) {
	r.mu.Lock()
	req, err := r.getLocked(approval.RequestID)
	if err != nil {
		r.mu.Unlock()
		return domain.RefundRequest{}, err
	}
	if !req.Status.Reviewable() {
		r.mu.Unlock()
		return domain.RefundRequest{}, fmt.Errorf("%w: refund request is not reviewable", domain.ErrConflict)
	}
	req.Status = domain.RefundRequestApproved
	req.ReviewedBy = &approval.ReviewerID
	req.ReviewedDate = &approval.At
	req.AdminNotes = &approval.AdminNotes
	req.RefundDate = &approval.At
	req.UpdatedAt = approval.At
	r.requests[req.ID] = req
	r.mu.Unlock()

	err = r.payments.apply(req.PaymentID, func(p *domain.Payment) {
		p.RefundStatus = domain.RefundStatusRefunded
		ref := approval.RefundRef
		amount := approval.Amount
		at := approval.At
		p.RefundRef = &ref
		p.RefundAmount = &amount
		p.RefundedAt = &at
	})
	if err != nil {
		return domain.RefundRequest{}, err
	}
	return req, nil
}

func (r *RefundRepo) MarkDenied(_ context.Context, id, reviewerID, reason string, at time.Time) (domain.RefundRequest, error) {
	r.mu.Lock()
	req, err := r.getLocked(id)
	if err != nil {
		r.mu.Unlock()
		return domain.RefundRequest{}, err
	}
	if !req.Status.Reviewable() {
		r.mu.Unlock()
		return domain.RefundRequest{}, fmt.Errorf("%w: refund request is not reviewable", domain.ErrConflict)
	}
	req.Status = domain.RefundRequestDenied
	req.ReviewedBy = &reviewerID
	req.ReviewedDate = &at
	req.AdminNotes = &reason
	req.UpdatedAt = at
	r.requests[id] = req
	r.mu.Unlock()

	err = r.payments.apply(req.PaymentID, func(p *domain.Payment) {
		p.RefundStatus = domain.RefundStatusDenied
	})
	if err != nil {
		return domain.RefundRequest{}, err
	}
	return req, nil
}

func (r *RefundRepo) MarkMoreInfo(_ context.Context, id, reviewerID, question string, at time.Time) (domain.RefundRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, err := r.getLocked(id)
	if err != nil {
		return domain.RefundRequest{}, err
	}
	if req.Status != domain.RefundRequestPending {
		return domain.RefundRequest{}, fmt.Errorf("%w: refund request is not pending", domain.ErrConflict)
	}
	req.Status = domain.RefundRequestMoreInfo
	req.InfoRequested = &question
	req.ReviewedBy = &reviewerID
	req.UpdatedAt = at
	r.requests[id] = req
	return req, nil
}
