package httpadapter

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"leadmarket/internal/domain"
	"leadmarket/internal/monitoring"
)

type createLeadRequest struct {
	JobID       string   `json:"job_id"`
	Price       float64  `json:"price"`
	Notes       string   `json:"notes"`
	ServiceTags []string `json:"service_tags"`
}

func (s *Server) createLead(w http.ResponseWriter, r *http.Request) {
	var req createLeadRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	lead, err := s.leads.Create(r.Context(), req.JobID, req.Price, req.Notes, req.ServiceTags)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (s *Server) getLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.leads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) postLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.leads.Post(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

type purchaseLeadRequest struct {
	BuyerID   string `json:"buyer_id"`
	BuyerType string `json:"buyer_type"`
}

func (s *Server) purchaseLead(w http.ResponseWriter, r *http.Request) {
	var req purchaseLeadRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	lead, err := s.leads.Purchase(r.Context(), chi.URLParam(r, "id"), req.BuyerID, domain.BuyerType(req.BuyerType))
	if err != nil {
		if errorIsConflict(err) {
			monitoring.PurchaseConflicts.Inc()
		}
		s.writeError(w, err)
		return
	}
	monitoring.LeadsSold.Inc()
	writeJSON(w, http.StatusOK, lead)
}

type updateLeadRequest struct {
	Status      *string    `json:"status"`
	Price       *float64   `json:"price"`
	Notes       *string    `json:"notes"`
	PostedAt    *time.Time `json:"posted_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ServiceTags *[]string  `json:"service_tags"`
}

func (s *Server) updateLead(w http.ResponseWriter, r *http.Request) {
	var req updateLeadRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	patch := domain.LeadPatch{
		Price:       req.Price,
		Notes:       req.Notes,
		PostedAt:    req.PostedAt,
		ExpiresAt:   req.ExpiresAt,
		ServiceTags: req.ServiceTags,
	}
	if req.Status != nil {
		status := domain.LeadStatus(*req.Status)
		patch.Status = &status
	}
	lead, err := s.leads.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) deleteLead(w http.ResponseWriter, r *http.Request) {
	if err := s.leads.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createRefundRequest struct {
	ContractorID   string `json:"contractor_id"`
	LeadID         string `json:"lead_id"`
	LeadType       string `json:"lead_type"`
	Reason         string `json:"reason"`
	ReasonCategory string `json:"reason_category"`
	Notes          string `json:"notes"`
}

func (s *Server) createRefundRequest(w http.ResponseWriter, r *http.Request) {
	var req createRefundRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	created, err := s.refunds.RequestRefund(r.Context(), req.ContractorID, req.LeadID, req.LeadType,
		req.Reason, domain.ReasonCategory(req.ReasonCategory), req.Notes)
	if err != nil {
		s.writeError(w, err)
		return
	}
	monitoring.RefundRequests.Inc()
	if created.RiskScore >= 70 {
		monitoring.HighRiskRefundRequests.Inc()
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listRefundRequests(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRefundFilter(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.refunds.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getRefundRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.refunds.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type reviewRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Notes      string `json:"notes"`
	Reason     string `json:"reason"`
	Question   string `json:"question"`
}

func (s *Server) approveRefundRequest(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	approved, err := s.refunds.ApproveRefund(r.Context(), chi.URLParam(r, "id"), req.ReviewerID, req.Notes)
	if err != nil {
		s.writeError(w, err)
		return
	}
	monitoring.RefundsApproved.Inc()
	writeJSON(w, http.StatusOK, approved)
}

func (s *Server) denyRefundRequest(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	denied, err := s.refunds.DenyRefund(r.Context(), chi.URLParam(r, "id"), req.ReviewerID, req.Reason)
	if err != nil {
		s.writeError(w, err)
		return
	}
	monitoring.RefundsDenied.Inc()
	writeJSON(w, http.StatusOK, denied)
}

func (s *Server) requestRefundInfo(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	updated, err := s.refunds.RequestMoreInfo(r.Context(), chi.URLParam(r, "id"), req.ReviewerID, req.Question)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) listContractorRefundRequests(w http.ResponseWriter, r *http.Request) {
	out, err := s.refunds.ListForContractor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getBrokerHealth(w http.ResponseWriter, r *http.Request) {
	score, err := s.health.HealthScore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) getBrokerHealthAudit(w http.ResponseWriter, r *http.Request) {
	audit, err := s.health.HealthAudit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, audit)
}
