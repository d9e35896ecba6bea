package domain

import "time"

// PaymentRefundStatus tracks where a payment sits in the refund workflow.
type PaymentRefundStatus string

const (
	RefundStatusNone      PaymentRefundStatus = "none"
	RefundStatusRequested PaymentRefundStatus = "requested"
	RefundStatusDenied    PaymentRefundStatus = "denied"
	RefundStatusRefunded  PaymentRefundStatus = "refunded"
)

// Payment is owned by the billing side of the application; this core reads it
// to gate refund eligibility and writes only its refund fields.
type Payment struct {
	ID           string              `json:"id"`
	ContractorID string              `json:"contractor_id"`
	LeadID       string              `json:"lead_id"`
	Amount       float64             `json:"amount"`
	ChargeRef    string              `json:"charge_ref"`
	RefundStatus PaymentRefundStatus `json:"refund_status"`
	RefundRef    *string             `json:"refund_ref,omitempty"`
	RefundAmount *float64            `json:"refund_amount,omitempty"`
	RefundedAt   *time.Time          `json:"refunded_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}
