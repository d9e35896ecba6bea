package brokerhealth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"leadmarket/internal/domain"
	"leadmarket/internal/ports"
)

// Service computes broker health scores and audit bundles on demand. All
// writes happen elsewhere; this is a read-then-compute engine.
type Service struct {
	stats    ports.BrokerStatsRepository
	cache    ports.HealthCache
	cacheTTL time.Duration
	log      *zap.Logger
	nowFn    func() time.Time
}

func New(stats ports.BrokerStatsRepository, log *zap.Logger) *Service {
	return &Service{stats: stats, log: log, nowFn: func() time.Time { return time.Now().UTC() }}
}

// WithCache enables short-TTL caching of audit bundles. Invalidation is
// time-based only.
func (s *Service) WithCache(cache ports.HealthCache, ttl time.Duration) *Service {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(nowFn func() time.Time) *Service {
	s.nowFn = nowFn
	return s
}

// HealthScore computes the weighted composite for one broker from a single
// consistent summary snapshot.
func (s *Service) HealthScore(ctx context.Context, brokerID string) (domain.HealthScore, error) {
	summary, err := s.stats.Summary(ctx, brokerID)
	if err != nil {
		return domain.HealthScore{}, err
	}
	return domain.CalculateHealthScore(summary, s.nowFn()), nil
}

// HealthAudit returns the full bundle: score, windowed lead counts, average
// days-to-close, revenue by service type, per-contractor engagement, and
// advisory alerts regenerated from current inputs.
func (s *Service) HealthAudit(ctx context.Context, brokerID string) (domain.BrokerHealthAudit, error) {
	if s.cache != nil {
		if cached, ok, err := s.cache.GetAudit(ctx, brokerID); err == nil && ok {
			return cached, nil
		} else if err != nil && s.log != nil {
			s.log.Warn("health cache read failed", zap.String("broker_id", brokerID), zap.Error(err))
		}
	}

	now := s.nowFn()
	stats, err := s.stats.AuditStats(ctx, brokerID, now)
	if err != nil {
		return domain.BrokerHealthAudit{}, err
	}
	score := domain.CalculateHealthScore(stats.Summary, now)
	audit := domain.BrokerHealthAudit{
		BrokerID:         brokerID,
		Score:            score,
		Summary:          stats.Summary,
		LeadsLast30Days:  stats.LeadsLast30Days,
		LeadsLast7Days:   stats.LeadsLast7Days,
		AvgDaysToClose:   stats.AvgDaysToClose,
		RevenueByService: stats.RevenueByService,
		Contractors:      stats.Contractors,
		Alerts:           deriveAlerts(stats.Summary, score),
		GeneratedAt:      now,
	}

	if s.cache != nil {
		if err := s.cache.SetAudit(ctx, audit, s.cacheTTL); err != nil && s.log != nil {
			s.log.Warn("health cache write failed", zap.String("broker_id", brokerID), zap.Error(err))
		}
	}
	return audit, nil
}

// deriveAlerts turns score thresholds into qualitative review hints. Alerts
// are advisory text, never persisted.
func deriveAlerts(summary domain.BrokerSummary, score domain.HealthScore) []string {
	alerts := []string{}
	if score.Activity <= 40 {
		alerts = append(alerts, "Low posting activity: fewer than 6 leads posted")
	}
	if summary.LeadsPosted > 0 && score.Conversion == 0 {
		alerts = append(alerts, "No posted leads have closed")
	}
	if score.Stickiness <= 50 {
		alerts = append(alerts, "No broker activity in the last two weeks")
	}
	if summary.ContractorCount+summary.HESAssessorCount+summary.InspectorCount == 0 {
		alerts = append(alerts, "Broker network is empty")
	} else {
		if summary.InspectorCount == 0 {
			alerts = append(alerts, "No inspectors in network")
		}
		if summary.HESAssessorCount == 0 {
			alerts = append(alerts, "No HES assessors in network")
		}
	}
	if score.RevenueTrend <= 30 {
		alerts = append(alerts, "Lifetime revenue below $500")
	}
	if score.RiskLevel == domain.RiskHigh {
		alerts = append(alerts, "Overall health is high risk; review recommended")
	}
	return alerts
}
