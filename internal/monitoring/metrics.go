package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LeadsSold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadmarket_leads_sold_total",
		Help: "Leads successfully purchased.",
	})
	PurchaseConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadmarket_purchase_conflicts_total",
		Help: "Purchase attempts rejected because the lead was unavailable.",
	})
	RefundRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadmarket_refund_requests_total",
		Help: "Refund requests filed by contractors.",
	})
	RefundsApproved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadmarket_refunds_approved_total",
		Help: "Refund requests approved and refunded.",
	})
	RefundsDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadmarket_refunds_denied_total",
		Help: "Refund requests denied.",
	})
	HighRiskRefundRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadmarket_high_risk_refund_requests_total",
		Help: "Refund requests created with a risk score of 70 or higher.",
	})
)
