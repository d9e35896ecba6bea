package refunds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leadmarket/internal/domain"
	"leadmarket/internal/ports"
)

// RefundWindow is the fixed eligibility period after purchase during which a
// contractor may file a refund request.
const RefundWindow = 30 * 24 * time.Hour

// Service owns the refund request workflow: creation with risk scoring, and
// the reviewer transitions approve/deny/request-info.
type Service struct {
	requests ports.RefundRequestRepository
	payments ports.PaymentRepository
	gateway  ports.PaymentGateway
	notifier ports.Notifier
	audit    ports.AuditLog
	log      *zap.Logger
	nowFn    func() time.Time
}

func New(requests ports.RefundRequestRepository, payments ports.PaymentRepository, gateway ports.PaymentGateway, notifier ports.Notifier, audit ports.AuditLog, log *zap.Logger) *Service {
	return &Service{
		requests: requests,
		payments: payments,
		gateway:  gateway,
		notifier: notifier,
		audit:    audit,
		log:      log,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(nowFn func() time.Time) *Service {
	s.nowFn = nowFn
	return s
}

// RequestRefund files a claim against the contractor's most recent completed
// payment for the lead. The risk score is computed here, once, and never
// recomputed.
func (s *Service) RequestRefund(ctx context.Context, contractorID, leadID, leadType, reason string, category domain.ReasonCategory, notes string) (domain.RefundRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return domain.RefundRequest{}, fmt.Errorf("%w: reason is required", domain.ErrValidation)
	}
	payment, err := s.payments.LatestCompleted(ctx, contractorID, leadID)
	if err != nil {
		return domain.RefundRequest{}, err
	}
	if payment.RefundStatus != domain.RefundStatusNone {
		return domain.RefundRequest{}, fmt.Errorf("%w: payment already has refund status %s", domain.ErrConflict, payment.RefundStatus)
	}
	now := s.nowFn()
	if now.Sub(payment.CreatedAt) > RefundWindow {
		return domain.RefundRequest{}, fmt.Errorf("%w: refund window of 30 days has passed", domain.ErrValidation)
	}
	pending, err := s.requests.HasPending(ctx, contractorID, leadID)
	if err != nil {
		return domain.RefundRequest{}, err
	}
	if pending {
		return domain.RefundRequest{}, fmt.Errorf("%w: a pending refund request already exists for this lead", domain.ErrConflict)
	}

	score, err := s.scoreRequest(ctx, contractorID, payment, notes, now)
	if err != nil {
		return domain.RefundRequest{}, err
	}
	req := domain.RefundRequest{
		ID:             uuid.NewString(),
		PaymentID:      payment.ID,
		ContractorID:   contractorID,
		LeadID:         leadID,
		LeadType:       leadType,
		Reason:         strings.TrimSpace(reason),
		ReasonCategory: category,
		Notes:          notes,
		RiskScore:      score,
		Status:         domain.RefundRequestPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// The storage layer re-checks pending uniqueness on insert, so two
	// simultaneous requests racing past HasPending cannot both land.
	if err := s.requests.Create(ctx, req); err != nil {
		return domain.RefundRequest{}, err
	}
	if err := s.payments.SetRefundStatus(ctx, payment.ID, domain.RefundStatusRequested); err != nil {
		return domain.RefundRequest{}, err
	}
	s.recordAudit(ctx, contractorID, "refund.requested", req.ID, map[string]string{"lead_id": leadID, "risk_score": fmt.Sprintf("%d", score)})
	s.notify(ctx, contractorID, "refund.requested", map[string]string{"request_id": req.ID})
	return req, nil
}

func (s *Service) scoreRequest(ctx context.Context, contractorID string, payment domain.Payment, notes string, now time.Time) (int, error) {
	recent, err := s.requests.CountByContractorSince(ctx, contractorID, now.Add(-7*24*time.Hour))
	if err != nil {
		return 0, err
	}
	lifetime, err := s.requests.CountByContractor(ctx, contractorID)
	if err != nil {
		return 0, err
	}
	purchases, err := s.payments.CountCompletedByContractor(ctx, contractorID)
	if err != nil {
		return 0, err
	}
	return ComputeRiskScore(RiskInput{
		RequestsLast7Days: recent,
		LifetimeRequests:  lifetime,
		LifetimePurchases: purchases,
		Notes:             notes,
		PaymentAmount:     payment.Amount,
		PurchasedAt:       payment.CreatedAt,
		RequestedAt:       now,
	}), nil
}

// ApproveRefund issues the refund through the payment gateway and finalizes
// request and payment together. A failed gateway call mutates nothing. If a
// prior attempt already obtained a refund reference, the recorded reference
// is reused instead of re-issuing the charge.
func (s *Service) ApproveRefund(ctx context.Context, requestID, reviewerID, notes string) (domain.RefundRequest, error) {
	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return domain.RefundRequest{}, err
	}
	if !req.Status.Reviewable() {
		return domain.RefundRequest{}, fmt.Errorf("%w: request is %s and cannot be approved", domain.ErrConflict, req.Status)
	}
	payment, err := s.payments.Get(ctx, req.PaymentID)
	if err != nil {
		return domain.RefundRequest{}, err
	}
	refundRef := ""
	if payment.RefundRef != nil {
		refundRef = *payment.RefundRef
	} else {
		refundRef, err = s.gateway.Refund(ctx, payment.ChargeRef)
		if err != nil {
			return domain.RefundRequest{}, fmt.Errorf("%w: gateway refund failed: %v", domain.ErrInternal, err)
		}
	}
	approved, err := s.requests.MarkApproved(ctx, ports.RefundApproval{
		RequestID:  requestID,
		ReviewerID: reviewerID,
		AdminNotes: notes,
		RefundRef:  refundRef,
		Amount:     payment.Amount,
		At:         s.nowFn(),
	})
	if err != nil {
		return domain.RefundRequest{}, err
	}
	s.recordAudit(ctx, reviewerID, "refund.approved", requestID, map[string]string{"refund_ref": refundRef})
	s.notify(ctx, req.ContractorID, "refund.approved", map[string]string{"request_id": requestID})
	return approved, nil
}

// DenyRefund closes the request without a refund.
func (s *Service) DenyRefund(ctx context.Context, requestID, reviewerID, reason string) (domain.RefundRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return domain.RefundRequest{}, fmt.Errorf("%w: denial reason is required", domain.ErrValidation)
	}
	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return domain.RefundRequest{}, err
	}
	if !req.Status.Reviewable() {
		return domain.RefundRequest{}, fmt.Errorf("%w: request is %s and cannot be denied", domain.ErrConflict, req.Status)
	}
	denied, err := s.requests.MarkDenied(ctx, requestID, reviewerID, strings.TrimSpace(reason), s.nowFn())
	if err != nil {
		return domain.RefundRequest{}, err
	}
	s.recordAudit(ctx, reviewerID, "refund.denied", requestID, map[string]string{"reason": reason})
	s.notify(ctx, req.ContractorID, "refund.denied", map[string]string{"request_id": requestID})
	return denied, nil
}

// RequestMoreInfo asks the contractor a question before review continues.
// Only a pending request can be moved here; once in more_info_requested the
// reviewer goes straight to approve or deny.
func (s *Service) RequestMoreInfo(ctx context.Context, requestID, reviewerID, question string) (domain.RefundRequest, error) {
	if strings.TrimSpace(question) == "" {
		return domain.RefundRequest{}, fmt.Errorf("%w: question is required", domain.ErrValidation)
	}
	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return domain.RefundRequest{}, err
	}
	if req.Status != domain.RefundRequestPending {
		return domain.RefundRequest{}, fmt.Errorf("%w: request is %s, more info can only be requested while pending", domain.ErrConflict, req.Status)
	}
	updated, err := s.requests.MarkMoreInfo(ctx, requestID, reviewerID, strings.TrimSpace(question), s.nowFn())
	if err != nil {
		return domain.RefundRequest{}, err
	}
	s.notify(ctx, req.ContractorID, "refund.info_requested", map[string]string{"request_id": requestID})
	return updated, nil
}

func (s *Service) Get(ctx context.Context, requestID string) (domain.RefundRequest, error) {
	return s.requests.Get(ctx, requestID)
}

func (s *Service) List(ctx context.Context, filter domain.RefundRequestFilter) ([]domain.RefundRequest, error) {
	return s.requests.List(ctx, filter)
}

func (s *Service) ListForContractor(ctx context.Context, contractorID string) ([]domain.RefundRequest, error) {
	return s.requests.ListByContractor(ctx, contractorID)
}

func (s *Service) recordAudit(ctx context.Context, actor, action, resource string, metadata map[string]string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, actor, action, resource, metadata); err != nil && s.log != nil {
		s.log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, recipientID, event string, metadata map[string]string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, recipientID, event, metadata); err != nil && s.log != nil {
		s.log.Warn("notification failed", zap.String("event", event), zap.Error(err))
	}
}
