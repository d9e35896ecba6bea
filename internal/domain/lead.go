package domain

import "time"

// LeadStatus represents the current state of a sellable lead.
type LeadStatus string

const (
	LeadStatusDraft    LeadStatus = "draft"
	LeadStatusActive   LeadStatus = "active"
	LeadStatusSold     LeadStatus = "sold"
	LeadStatusExpired  LeadStatus = "expired"
	LeadStatusCanceled LeadStatus = "canceled"
)

// IsValid reports whether s is one of the five recognized statuses.
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusDraft, LeadStatusActive, LeadStatusSold, LeadStatusExpired, LeadStatusCanceled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition may leave s.
func (s LeadStatus) IsTerminal() bool {
	return s == LeadStatusSold || s == LeadStatusExpired || s == LeadStatusCanceled
}

// CanTransitionTo encodes the forward-only lifecycle:
// draft -> active -> sold, with expired/canceled reachable from draft or active.
func (s LeadStatus) CanTransitionTo(next LeadStatus) bool {
	switch s {
	case LeadStatusDraft:
		return next == LeadStatusActive || next == LeadStatusExpired || next == LeadStatusCanceled
	case LeadStatusActive:
		return next == LeadStatusSold || next == LeadStatusExpired || next == LeadStatusCanceled
	default:
		return false
	}
}

// BuyerType discriminates who purchased a lead.
type BuyerType string

const (
	BuyerTypeContractor BuyerType = "contractor"
	BuyerTypeBroker     BuyerType = "broker"
	BuyerTypeOther      BuyerType = "other"
)

func (b BuyerType) IsValid() bool {
	switch b {
	case BuyerTypeContractor, BuyerTypeBroker, BuyerTypeOther:
		return true
	default:
		return false
	}
}

// Lead is a sellable unit of contractor-opportunity data tied to a brokered job.
// BuyerID is set iff Status is sold; PostedAt is set iff the lead has reached active.
type Lead struct {
	ID          string     `json:"id"`
	JobID       string     `json:"job_id"`
	Status      LeadStatus `json:"status"`
	Price       float64    `json:"price"`
	Notes       string     `json:"notes,omitempty"`
	ServiceTags []string   `json:"service_tags,omitempty"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	BuyerID     *string    `json:"buyer_id,omitempty"`
	BuyerType   *BuyerType `json:"buyer_type,omitempty"`
	SoldAt      *time.Time `json:"sold_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// LeadPatch is the whitelist of fields an operator may update in place.
// Nil fields are left untouched.
type LeadPatch struct {
	Status      *LeadStatus
	Price       *float64
	Notes       *string
	PostedAt    *time.Time
	ExpiresAt   *time.Time
	ServiceTags *[]string
}

// Empty reports whether the patch carries no recognized field.
func (p LeadPatch) Empty() bool {
	return p.Status == nil && p.Price == nil && p.Notes == nil &&
		p.PostedAt == nil && p.ExpiresAt == nil && p.ServiceTags == nil
}
