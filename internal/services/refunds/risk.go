package refunds

import "time"

// Risk signal points. The score is advisory context for the reviewer; no
// request is auto-approved or auto-denied by score alone.
const (
	pointsFrequentRequester = 30 // more than 2 requests in the trailing 7 days
	pointsHighRefundRate    = 25 // lifetime requests / lifetime purchases > 30%
	pointsTerseNotes        = 15 // notes present but under 10 characters
	pointsImmediateRequest  = 20 // purchase-to-request gap under 1 day
	pointsHighValue         = 10 // payment amount over $100

	frequentRequestThreshold = 2
	refundRateThreshold      = 0.30
	terseNotesLength         = 10
	highValueAmount          = 100.0
	immediacyWindow          = 24 * time.Hour
)

// RiskInput is the contractor-history snapshot a score is computed from.
type RiskInput struct {
	RequestsLast7Days int
	LifetimeRequests  int
	LifetimePurchases int
	Notes             string
	PaymentAmount     float64
	PurchasedAt       time.Time
	RequestedAt       time.Time
}

// ComputeRiskScore sums the triggered signals and clamps to [0, 100].
// Deterministic: identical inputs always yield the identical score.
func ComputeRiskScore(in RiskInput) int {
	score := 0
	if frequentRequester(in.RequestsLast7Days) {
		score += pointsFrequentRequester
	}
	if highRefundRate(in.LifetimeRequests, in.LifetimePurchases) {
		score += pointsHighRefundRate
	}
	if terseNotes(in.Notes) {
		score += pointsTerseNotes
	}
	if immediateRequest(in.PurchasedAt, in.RequestedAt) {
		score += pointsImmediateRequest
	}
	if highValue(in.PaymentAmount) {
		score += pointsHighValue
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func frequentRequester(requestsLast7Days int) bool {
	return requestsLast7Days > frequentRequestThreshold
}

func highRefundRate(lifetimeRequests, lifetimePurchases int) bool {
	if lifetimePurchases == 0 {
		return false
	}
	return float64(lifetimeRequests)/float64(lifetimePurchases) > refundRateThreshold
}

func terseNotes(notes string) bool {
	return notes != "" && len(notes) < terseNotesLength
}

func immediateRequest(purchasedAt, requestedAt time.Time) bool {
	return requestedAt.Sub(purchasedAt) < immediacyWindow
}

func highValue(amount float64) bool {
	return amount > highValueAmount
}
