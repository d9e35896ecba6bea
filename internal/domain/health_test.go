package domain_test

import (
	"testing"
	"time"

	"leadmarket/internal/domain"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestCalculateHealthScoreScenarios(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		summary domain.BrokerSummary
		want    domain.HealthScore
	}{
		{
			name: "established mid-volume broker",
			summary: domain.BrokerSummary{
				LeadsPosted:      20,
				LeadsClosed:      5,
				RevenueEarned:    1200,
				ContractorCount:  4,
				HESAssessorCount: 1,
				InspectorCount:   1,
				LastActivity:     ptrTime(now.AddDate(0, 0, -3)),
				CreatedAt:        now.AddDate(0, 0, -90),
			},
			want: domain.HealthScore{
				Activity:       80,
				Conversion:     70,
				Stickiness:     100,
				NetworkQuality: 80,
				RevenueTrend:   85,
				Overall:        82,
				RiskLevel:      domain.RiskLow,
			},
		},
		{
			name: "strong conversion bumps overall",
			summary: domain.BrokerSummary{
				LeadsPosted:      20,
				LeadsClosed:      8,
				RevenueEarned:    1200,
				ContractorCount:  4,
				HESAssessorCount: 1,
				InspectorCount:   1,
				LastActivity:     ptrTime(now.AddDate(0, 0, -3)),
				CreatedAt:        now.AddDate(0, 0, -90),
			},
			want: domain.HealthScore{
				Activity:       80,
				Conversion:     85,
				Stickiness:     100,
				NetworkQuality: 80,
				RevenueTrend:   85,
				Overall:        86,
				RiskLevel:      domain.RiskLow,
			},
		},
		{
			name: "top tier broker",
			summary: domain.BrokerSummary{
				LeadsPosted:      45,
				LeadsClosed:      25,
				RevenueEarned:    8000,
				ContractorCount:  8,
				HESAssessorCount: 2,
				InspectorCount:   2,
				LastActivity:     ptrTime(now.AddDate(0, 0, -1)),
				CreatedAt:        now.AddDate(-1, 0, 0),
			},
			want: domain.HealthScore{
				Activity:       100,
				Conversion:     100,
				Stickiness:     100,
				NetworkQuality: 100,
				RevenueTrend:   100,
				Overall:        100,
				RiskLevel:      domain.RiskLow,
			},
		},
		{
			name: "brand new broker with nothing",
			summary: domain.BrokerSummary{
				CreatedAt: now.AddDate(0, 0, -1),
			},
			want: domain.HealthScore{
				Activity:       0,
				Conversion:     0,
				Stickiness:     20,
				NetworkQuality: 0,
				RevenueTrend:   0,
				Overall:        4,
				RiskLevel:      domain.RiskHigh,
			},
		},
		{
			name: "recent activity on a young account caps stickiness",
			summary: domain.BrokerSummary{
				LeadsPosted:     2,
				LeadsClosed:     1,
				RevenueEarned:   50,
				ContractorCount: 1,
				LastActivity:    ptrTime(now.AddDate(0, 0, -2)),
				CreatedAt:       now.AddDate(0, 0, -20),
			},
			want: domain.HealthScore{
				Activity:       40,
				Conversion:     100,
				Stickiness:     85,
				NetworkQuality: 40,
				RevenueTrend:   30,
				Overall:        63,
				RiskLevel:      domain.RiskMedium,
			},
		},
		{
			name: "idle broker slides to high risk",
			summary: domain.BrokerSummary{
				LeadsPosted:  3,
				LastActivity: ptrTime(now.AddDate(0, 0, -60)),
				CreatedAt:    now.AddDate(0, 0, -120),
			},
			want: domain.HealthScore{
				Activity:       40,
				Conversion:     0,
				Stickiness:     20,
				NetworkQuality: 0,
				RevenueTrend:   0,
				Overall:        16,
				RiskLevel:      domain.RiskHigh,
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := domain.CalculateHealthScore(tc.summary, now)
			if got != tc.want {
				t.Errorf("CalculateHealthScore() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestCalculateHealthScoreDeterministic(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	summary := domain.BrokerSummary{
		LeadsPosted:      11,
		LeadsClosed:      3,
		RevenueEarned:    640,
		ContractorCount:  2,
		HESAssessorCount: 1,
		LastActivity:     ptrTime(now.AddDate(0, 0, -10)),
		CreatedAt:        now.AddDate(0, 0, -200),
	}

	first := domain.CalculateHealthScore(summary, now)
	for i := 0; i < 10; i++ {
		if got := domain.CalculateHealthScore(summary, now); got != first {
			t.Fatalf("call %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestCalculateHealthScoreRange(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	activities := []*time.Time{nil, ptrTime(now.AddDate(0, 0, -1)), ptrTime(now.AddDate(0, 0, -45))}

	for _, posted := range []int{0, 1, 7, 20, 100} {
		for _, closed := range []int{0, 1, 5, 100} {
			for _, revenue := range []float64{0, 99, 4999, 100000} {
				for _, last := range activities {
					summary := domain.BrokerSummary{
						LeadsPosted:     posted,
						LeadsClosed:     closed,
						RevenueEarned:   revenue,
						ContractorCount: posted % 5,
						InspectorCount:  closed % 3,
						LastActivity:    last,
						CreatedAt:       now.AddDate(0, 0, -40),
					}
					got := domain.CalculateHealthScore(summary, now)
					for name, v := range map[string]int{
						"activity":        got.Activity,
						"conversion":      got.Conversion,
						"stickiness":      got.Stickiness,
						"network_quality": got.NetworkQuality,
						"revenue_trend":   got.RevenueTrend,
						"overall":         got.Overall,
					} {
						if v < 0 || v > 100 {
							t.Fatalf("%s = %d out of [0,100] for %+v", name, v, summary)
						}
					}
				}
			}
		}
	}
}
