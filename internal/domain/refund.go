package domain

import "time"

// RefundRequestStatus is the review state of a contractor refund claim.
type RefundRequestStatus string

const (
	RefundRequestPending  RefundRequestStatus = "pending"
	RefundRequestMoreInfo RefundRequestStatus = "more_info_requested"
	RefundRequestApproved RefundRequestStatus = "approved"
	RefundRequestDenied   RefundRequestStatus = "denied"
)

func (s RefundRequestStatus) IsValid() bool {
	switch s {
	case RefundRequestPending, RefundRequestMoreInfo, RefundRequestApproved, RefundRequestDenied:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the request admits no further transition.
func (s RefundRequestStatus) IsTerminal() bool {
	return s == RefundRequestApproved || s == RefundRequestDenied
}

// Reviewable reports whether approve/deny may act on a request in this state.
// more_info_requested deliberately remains reviewable without returning to
// pending; requesting info a second time is not.
func (s RefundRequestStatus) Reviewable() bool {
	return s == RefundRequestPending || s == RefundRequestMoreInfo
}

// ReasonCategory buckets the contractor's stated reason for the claim.
type ReasonCategory string

const (
	ReasonBadContactInfo   ReasonCategory = "bad_contact_info"
	ReasonDuplicateLead    ReasonCategory = "duplicate_lead"
	ReasonOutOfServiceArea ReasonCategory = "out_of_service_area"
	ReasonCustomerDeclined ReasonCategory = "customer_declined"
	ReasonOther            ReasonCategory = "other"
)

// RefundRequest is a contractor's claim against a completed lead payment.
// RiskScore is computed once at creation and never recomputed.
type RefundRequest struct {
	ID             string              `json:"id"`
	PaymentID      string              `json:"payment_id"`
	ContractorID   string              `json:"contractor_id"`
	LeadID         string              `json:"lead_id"`
	LeadType       string              `json:"lead_type"`
	Reason         string              `json:"reason"`
	ReasonCategory ReasonCategory      `json:"reason_category"`
	Notes          string              `json:"notes,omitempty"`
	RiskScore      int                 `json:"risk_score"`
	Status         RefundRequestStatus `json:"status"`
	InfoRequested  *string             `json:"info_requested,omitempty"`
	AdminNotes     *string             `json:"admin_notes,omitempty"`
	ReviewedBy     *string             `json:"reviewed_by,omitempty"`
	ReviewedDate   *time.Time          `json:"reviewed_date,omitempty"`
	RefundDate     *time.Time          `json:"refund_date,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// RefundRequestFilter narrows List results; each field is independently optional.
type RefundRequestFilter struct {
	Status       *RefundRequestStatus
	ContractorID *string
	From         *time.Time
	To           *time.Time
}
