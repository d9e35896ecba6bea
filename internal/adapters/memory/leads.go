// Package memory provides mutex-guarded in-memory implementations of the
// repository ports, used by unit tests and database-free local runs. The
// conditional-write semantics mirror the postgres adapter exactly.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"leadmarket/internal/domain"
)

type JobRepo struct {
	mu   sync.RWMutex
	jobs map[string]struct{}
}

func NewJobRepo(ids ...string) *JobRepo {
	r := &JobRepo{jobs: map[string]struct{}{}}
	for _, id := range ids {
		r.jobs[id] = struct{}{}
	}
	return r
}

func (r *JobRepo) Add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = struct{}{}
}

func (r *JobRepo) Exists(_ context.Context, jobID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.jobs[jobID]
	return ok, nil
}

type LeadRepo struct {
	mu    sync.Mutex
	leads map[string]domain.Lead
}

func NewLeadRepo() *LeadRepo {
	return &LeadRepo{leads: map[string]domain.Lead{}}
}

func (r *LeadRepo) Create(_ context.Context, lead domain.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[lead.ID]; ok {
		return fmt.Errorf("%w: lead id already exists", domain.ErrConflict)
	}
	r.leads[lead.ID] = lead
	return nil
}

func (r *LeadRepo) Get(_ context.Context, id string) (domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok {
		return domain.Lead{}, fmt.Errorf("%w: lead", domain.ErrNotFound)
	}
	return lead, nil
}

func (r *LeadRepo) MarkPosted(_ context.Context, id string, postedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok || lead.Status != domain.LeadStatusDraft {
		return false, nil
	}
	lead.Status = domain.LeadStatusActive
	lead.PostedAt = &postedAt
	lead.UpdatedAt = postedAt
	r.leads[id] = lead
	return true, nil
}

// Purchase holds the lock across check and write, giving the same
// exactly-one-winner guarantee as the conditional UPDATE in postgres.
func (r *LeadRepo) Purchase(_ context.Context, id, buyerID string, buyerType domain.BuyerType, soldAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok || lead.Status != domain.LeadStatusActive || lead.BuyerID != nil {
		return false, nil
	}
	lead.Status = domain.LeadStatusSold
	lead.BuyerID = &buyerID
	lead.BuyerType = &buyerType
	lead.SoldAt = &soldAt
	lead.UpdatedAt = soldAt
	r.leads[id] = lead
	return true, nil
}

func (r *LeadRepo) Update(_ context.Context, id string, patch domain.LeadPatch, updatedAt time.Time) (domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok {
		return domain.Lead{}, fmt.Errorf("%w: lead", domain.ErrNotFound)
	}
	if patch.Status != nil {
		lead.Status = *patch.Status
	}
	if patch.Price != nil {
		lead.Price = *patch.Price
	}
	if patch.Notes != nil {
		lead.Notes = *patch.Notes
	}
	if patch.PostedAt != nil {
		lead.PostedAt = patch.PostedAt
	}
	if patch.ExpiresAt != nil {
		lead.ExpiresAt = patch.ExpiresAt
	}
	if patch.ServiceTags != nil {
		lead.ServiceTags = *patch.ServiceTags
	}
	lead.UpdatedAt = updatedAt
	r.leads[id] = lead
	return lead, nil
}

func (r *LeadRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[id]; !ok {
		return fmt.Errorf("%w: lead", domain.ErrNotFound)
	}
	delete(r.leads, id)
	return nil
}
