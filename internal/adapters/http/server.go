package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"leadmarket/internal/domain"
	"leadmarket/internal/services/brokerhealth"
	"leadmarket/internal/services/leads"
	"leadmarket/internal/services/refunds"
)

// Server exposes the marketplace core over HTTP. Callers are assumed
// pre-authorized by the surrounding application; this surface does no
// authentication of its own.
type Server struct {
	leads   *leads.Service
	refunds *refunds.Service
	health  *brokerhealth.Service
	log     *zap.Logger
}

func New(leadSvc *leads.Service, refundSvc *refunds.Service, healthSvc *brokerhealth.Service, log *zap.Logger) *Server {
	return &Server{leads: leadSvc, refunds: refundSvc, health: healthSvc, log: log}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/leads", s.createLead)
		r.Get("/leads/{id}", s.getLead)
		r.Post("/leads/{id}/post", s.postLead)
		r.Post("/leads/{id}/purchase", s.purchaseLead)
		r.Patch("/leads/{id}", s.updateLead)
		r.Delete("/leads/{id}", s.deleteLead)

		r.Post("/refund-requests", s.createRefundRequest)
		r.Get("/refund-requests", s.listRefundRequests)
		r.Get("/refund-requests/{id}", s.getRefundRequest)
		r.Post("/refund-requests/{id}/approve", s.approveRefundRequest)
		r.Post("/refund-requests/{id}/deny", s.denyRefundRequest)
		r.Post("/refund-requests/{id}/request-info", s.requestRefundInfo)
		r.Get("/contractors/{id}/refund-requests", s.listContractorRefundRequests)

		r.Get("/brokers/{id}/health", s.getBrokerHealth)
		r.Get("/brokers/{id}/health/audit", s.getBrokerHealthAudit)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto HTTP. Internal detail is
// logged, never surfaced.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		s.log.Error("internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json body: %v", domain.ErrValidation, err)
	}
	return nil
}
