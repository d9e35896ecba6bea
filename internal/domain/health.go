package domain

import (
	"math"
	"time"
)

// BrokerSummary is the aggregate snapshot the health score is computed from.
// All fields must come from one coherent read; see the postgres adapter's
// snapshot transaction.
type BrokerSummary struct {
	BrokerID         string     `json:"broker_id"`
	LeadsPosted      int        `json:"leads_posted"`
	LeadsClosed      int        `json:"leads_closed"`
	RevenueEarned    float64    `json:"revenue_earned"`
	ContractorCount  int        `json:"contractor_count"`
	HESAssessorCount int        `json:"hes_assessor_count"`
	InspectorCount   int        `json:"inspector_count"`
	LastActivity     *time.Time `json:"last_activity,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// RiskLevel is the coarse triage bucket derived from the overall health score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// HealthScore is the weighted composite summarizing a broker's performance.
// It is derived on demand and never persisted.
type HealthScore struct {
	Activity       int       `json:"activity"`
	Conversion     int       `json:"conversion"`
	Stickiness     int       `json:"stickiness"`
	NetworkQuality int       `json:"network_quality"`
	RevenueTrend   int       `json:"revenue_trend"`
	Overall        int       `json:"overall"`
	RiskLevel      RiskLevel `json:"risk_level"`
}

// Sub-score weights. Must sum to 1.
const (
	weightActivity   = 0.30
	weightConversion = 0.25
	weightStickiness = 0.20
	weightNetwork    = 0.15
	weightRevenue    = 0.10
)

// CalculateHealthScore is a pure function of the summary snapshot: identical
// inputs always produce identical output. now supplies the reference instant
// for the stickiness window.
func CalculateHealthScore(s BrokerSummary, now time.Time) HealthScore {
	hs := HealthScore{
		Activity:       activityScore(s.LeadsPosted),
		Conversion:     conversionScore(s.LeadsClosed, s.LeadsPosted),
		Stickiness:     stickinessScore(s.LastActivity, s.CreatedAt, now),
		NetworkQuality: networkScore(s.ContractorCount, s.HESAssessorCount, s.InspectorCount),
		RevenueTrend:   revenueScore(s.RevenueEarned),
	}
	hs.Overall = int(math.Round(
		float64(hs.Activity)*weightActivity +
			float64(hs.Conversion)*weightConversion +
			float64(hs.Stickiness)*weightStickiness +
			float64(hs.NetworkQuality)*weightNetwork +
			float64(hs.RevenueTrend)*weightRevenue))
	hs.RiskLevel = riskLevelFor(hs.Overall)
	return hs
}

func activityScore(leadsPosted int) int {
	switch {
	case leadsPosted >= 30:
		return 100
	case leadsPosted >= 16:
		return 80
	case leadsPosted >= 6:
		return 60
	case leadsPosted >= 1:
		return 40
	default:
		return 0
	}
}

func conversionScore(closed, posted int) int {
	if posted == 0 {
		return 0
	}
	rate := float64(closed) / float64(posted)
	switch {
	case rate >= 0.50:
		return 100
	case rate >= 0.30:
		return 85
	case rate >= 0.20:
		return 70
	case rate >= 0.10:
		return 50
	case rate > 0:
		return 30
	default:
		return 0
	}
}

// stickinessScore rewards recent activity, with a bonus tier for established
// accounts. A broker that has never been active gets the maximal-staleness
// bucket.
func stickinessScore(lastActivity *time.Time, createdAt, now time.Time) int {
	if lastActivity == nil {
		return 20
	}
	idleDays := now.Sub(*lastActivity).Hours() / 24
	accountAgeDays := now.Sub(createdAt).Hours() / 24
	switch {
	case idleDays <= 7 && accountAgeDays > 30:
		return 100
	case idleDays <= 7:
		return 85
	case idleDays <= 14:
		return 70
	case idleDays <= 30:
		return 50
	default:
		return 20
	}
}

func networkScore(contractors, hesAssessors, inspectors int) int {
	size := contractors + hesAssessors + inspectors
	diversity := 0
	for _, n := range []int{contractors, hesAssessors, inspectors} {
		if n >= 1 {
			diversity++
		}
	}
	switch {
	case size >= 10 && diversity == 3:
		return 100
	case size >= 6:
		return 80
	case size >= 3:
		return 60
	case size >= 1:
		return 40
	default:
		return 0
	}
}

func revenueScore(revenue float64) int {
	switch {
	case revenue >= 5000:
		return 100
	case revenue >= 1000:
		return 85
	case revenue >= 500:
		return 70
	case revenue >= 100:
		return 50
	case revenue > 0:
		return 30
	default:
		return 0
	}
}

func riskLevelFor(overall int) RiskLevel {
	switch {
	case overall >= 70:
		return RiskLow
	case overall >= 40:
		return RiskMedium
	default:
		return RiskHigh
	}
}
