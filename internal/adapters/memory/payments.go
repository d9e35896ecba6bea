package memory

import (
	"context"
	"fmt"
	"sync"

	"leadmarket/internal/domain"
)

// PaymentRepo stores completed payments; the billing side that would write
// incomplete ones lives outside this core, so Add only accepts completed rows.
type PaymentRepo struct {
	mu       sync.Mutex
	payments map[string]domain.Payment
}

func NewPaymentRepo() *PaymentRepo {
	return &PaymentRepo{payments: map[string]domain.Payment{}}
}

func (r *PaymentRepo) Add(p domain.Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.ID] = p
}

func (r *PaymentRepo) Get(_ context.Context, id string) (domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return domain.Payment{}, fmt.Errorf("%w: payment", domain.ErrNotFound)
	}
	return p, nil
}

func (r *PaymentRepo) LatestCompleted(_ context.Context, contractorID, leadID string) (domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Payment
	for _, p := range r.payments {
		if p.ContractorID != contractorID || p.LeadID != leadID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			cp := p
			latest = &cp
		}
	}
	if latest == nil {
		return domain.Payment{}, fmt.Errorf("%w: payment", domain.ErrNotFound)
	}
	return *latest, nil
}

func (r *PaymentRepo) CountCompletedByContractor(_ context.Context, contractorID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.payments {
		if p.ContractorID == contractorID {
			n++
		}
	}
	return n, nil
}

func (r *PaymentRepo) SetRefundStatus(_ context.Context, id string, status domain.PaymentRefundStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return fmt.Errorf("%w: payment", domain.ErrNotFound)
	}
	p.RefundStatus = status
	r.payments[id] = p
	return nil
}

func (r *PaymentRepo) apply(id string, fn func(*domain.Payment)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return fmt.Errorf("%w: payment", domain.ErrNotFound)
	}
	fn(&p)
	r.payments[id] = p
	return nil
}
