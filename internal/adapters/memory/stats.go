package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"leadmarket/internal/domain"
)

// StatsRepo serves pre-aggregated broker stats. Tests and database-free runs
// set the snapshot directly; each read returns the whole snapshot, so the
// single-point-in-time property holds trivially.
type StatsRepo struct {
	mu    sync.RWMutex
	stats map[string]domain.BrokerAuditStats
}

func NewStatsRepo() *StatsRepo {
	return &StatsRepo{stats: map[string]domain.BrokerAuditStats{}}
}

func (r *StatsRepo) Set(brokerID string, stats domain.BrokerAuditStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats.Summary.BrokerID = brokerID
	r.stats[brokerID] = stats
}

func (r *StatsRepo) Summary(_ context.Context, brokerID string) (domain.BrokerSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats, ok := r.stats[brokerID]
	if !ok {
		return domain.BrokerSummary{}, fmt.Errorf("%w: broker", domain.ErrNotFound)
	}
	return stats.Summary, nil
}

func (r *StatsRepo) AuditStats(_ context.Context, brokerID string, _ time.Time) (domain.BrokerAuditStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats, ok := r.stats[brokerID]
	if !ok {
		return domain.BrokerAuditStats{}, fmt.Errorf("%w: broker", domain.ErrNotFound)
	}
	return stats, nil
}
