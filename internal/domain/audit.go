package domain

import "time"

// ContractorEngagement is the per-contractor sent/closed breakdown inside a
// broker health audit.
type ContractorEngagement struct {
	ContractorID string `json:"contractor_id"`
	LeadsSent    int    `json:"leads_sent"`
	LeadsClosed  int    `json:"leads_closed"`
}

// BrokerAuditStats is everything the audit needs beyond the plain summary,
// read under the same snapshot as the summary itself.
type BrokerAuditStats struct {
	Summary          BrokerSummary          `json:"summary"`
	LeadsLast30Days  int                    `json:"leads_last_30_days"`
	LeadsLast7Days   int                    `json:"leads_last_7_days"`
	AvgDaysToClose   float64                `json:"avg_days_to_close"`
	RevenueByService map[string]float64     `json:"revenue_by_service"`
	Contractors      []ContractorEngagement `json:"contractors"`
}

// BrokerHealthAudit is the full on-demand bundle: score, windowed stats, and
// advisory alerts regenerated from current inputs on every call.
type BrokerHealthAudit struct {
	BrokerID         string                 `json:"broker_id"`
	Score            HealthScore            `json:"score"`
	Summary          BrokerSummary          `json:"summary"`
	LeadsLast30Days  int                    `json:"leads_last_30_days"`
	LeadsLast7Days   int                    `json:"leads_last_7_days"`
	AvgDaysToClose   float64                `json:"avg_days_to_close"`
	RevenueByService map[string]float64     `json:"revenue_by_service"`
	Contractors      []ContractorEngagement `json:"contractors"`
	Alerts           []string               `json:"alerts"`
	GeneratedAt      time.Time              `json:"generated_at"`
}
