package refunds_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leadmarket/internal/adapters/gateway"
	"leadmarket/internal/adapters/memory"
	"leadmarket/internal/adapters/notify"
	"leadmarket/internal/domain"
	"leadmarket/internal/services/refunds"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *refunds.Service
	payments *memory.PaymentRepo
	requests *memory.RefundRepo
	gw       *gateway.Static
	notifier *notify.MemoryNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	payments := memory.NewPaymentRepo()
	requests := memory.NewRefundRepo(payments)
	gw := gateway.NewStatic()
	notifier := notify.NewMemoryNotifier()
	svc := refunds.New(requests, payments, gw, notifier, notify.NewMemoryAudit(), zap.NewNop()).
		WithClock(func() time.Time { return fixedNow })
	return &fixture{svc: svc, payments: payments, requests: requests, gw: gw, notifier: notifier}
}

func (f *fixture) seedPayment(id, contractorID, leadID string, amount float64, createdAt time.Time) domain.Payment {
	p := domain.Payment{
		ID:           id,
		ContractorID: contractorID,
		LeadID:       leadID,
		Amount:       amount,
		ChargeRef:    "ch_" + id,
		RefundStatus: domain.RefundStatusNone,
		CreatedAt:    createdAt,
	}
	f.payments.Add(p)
	return p
}

func TestRequestRefund(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seedPayment("pay-1", "c-1", "lead-1", 60, fixedNow.Add(-48*time.Hour))

	req, err := f.svc.RequestRefund(ctx, "c-1", "lead-1", "standard", "customer already hired someone", domain.ReasonCustomerDeclined, "spoke to the homeowner on tuesday")
	if err != nil {
		t.Fatalf("RequestRefund: %v", err)
	}
	if req.Status != domain.RefundRequestPending {
		t.Errorf("status = %s, want pending", req.Status)
	}
	if req.PaymentID != "pay-1" {
		t.Errorf("PaymentID = %s, want pay-1", req.PaymentID)
	}
	if req.RiskScore < 0 || req.RiskScore > 100 {
		t.Errorf("RiskScore = %d out of range", req.RiskScore)
	}

	payment, err := f.payments.Get(ctx, "pay-1")
	if err != nil {
		t.Fatalf("Get payment: %v", err)
	}
	if payment.RefundStatus != domain.RefundStatusRequested {
		t.Errorf("payment refund status = %s, want requested", payment.RefundStatus)
	}

	events := f.notifier.Events()
	if len(events) != 1 || events[0] != "refund.requested" {
		t.Errorf("events = %v, want [refund.requested]", events)
	}
}

func TestRequestRefundValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.RequestRefund(ctx, "c-1", "lead-1", "standard", "  ", domain.ReasonOther, ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("blank reason err = %v, want ErrValidation", err)
	}
	if _, err := f.svc.RequestRefund(ctx, "c-1", "lead-1", "standard", "no answer", domain.ReasonBadContactInfo, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("no payment err = %v, want ErrNotFound", err)
	}
}

func TestRequestRefundAlreadyRequested(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedPayment("pay-1", "c-1", "lead-1", 60, fixedNow.Add(-48*time.Hour))
	p.RefundStatus = domain.RefundStatusRequested
	f.payments.Add(p)

	_, err := f.svc.RequestRefund(ctx, "c-1", "lead-1", "standard", "bad number", domain.ReasonBadContactInfo, "")
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestRequestRefundWindowBoundary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("just inside the window", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seedPayment("pay-1", "c-1", "lead-1", 60, fixedNow.Add(-refunds.RefundWindow+time.Second))
		if _, err := f.svc.RequestRefund(ctx, "c-1", "lead-1", "standard", "out of my area", domain.ReasonOutOfServiceArea, ""); err != nil {
			t.Errorf("err = %v, want success at day 30 minus a second", err)
		}
	})

	t.Run("just outside the window", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seedPayment("pay-1", "c-1", "lead-1", 60, fixedNow.Add(-refunds.RefundWindow-time.Second))
		_, err := f.svc.RequestRefund(ctx, "c-1", "lead-1", "standard", "out of my area", domain.ReasonOutOfServiceArea, "")
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("err = %v, want ErrValidation at day 30 plus a second", err)
		}
	})
}

func TestRequestRefundDuplicatePending(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seedPayment("pay-1", "c-1", "lead-1", 60, fixedNow.Add(-72*time.Hour))

	if _, err := f.svc.RequestRefund(ctx, "c-1", "lead-1", "standard", "duplicate of an earlier lead", domain.ReasonDuplicateLead, ""); err != nil {
		t.Fatalf("first request: %v", err)
	}

	// A fresh completed payment for the same lead does not open a second
	// request while the first is still pending.
	f.seedPayment("pay-2", "c-1", "lead-1", 60, fixedNow.Add(-time.Hour))
	_, err := f.svc.RequestRefund(ctx, "c-1", "lead-1", "standard", "still a duplicate", domain.ReasonDuplicateLead, "")
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestRequestRefundRiskScore(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	// Ten lifetime purchases keeps the refund-rate signal quiet at three
	// lifetime requests; everything else fires.
	for i := 0; i < 9; i++ {
		f.seedPayment(fmt.Sprintf("pay-old-%d", i), "c-1", fmt.Sprintf("lead-old-%d", i), 40, fixedNow.Add(-20*24*time.Hour))
	}
	f.seedPayment("pay-1", "c-1", "lead-1", 150, fixedNow.Add(-2*time.Hour))

	for i := 0; i < 3; i++ {
		err := f.requests.Create(ctx, domain.RefundRequest{
			ID:           uuid.NewString(),
			PaymentID:    fmt.Sprintf("pay-old-%d", i),
			ContractorID: "c-1",
			LeadID:       fmt.Sprintf("lead-old-%d", i),
			Reason:       "no answer",
			Status:       domain.RefundRequestDenied,
			CreatedAt:    fixedNow.Add(-6 * 24 * time.Hour),
		})
		if err != nil {
			t.Fatalf("seed request %d: %v", i, err)
		}
	}

	req, err := f.svc.RequestRefund(ctx, "c-1", "lead-1", "standard", "wrong address", domain.ReasonBadContactInfo, "nope!")
	if err != nil {
		t.Fatalf("RequestRefund: %v", err)
	}
	if req.RiskScore != 75 {
		t.Errorf("RiskScore = %d, want 75", req.RiskScore)
	}
}

func TestApproveRefund(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seedPayment("pay-1", "c-1", "lead-1", 60, fixedNow.Add(-48*time.Hour))

	req, err := f.svc.RequestRefund(ctx, "c-1", "lead-1", "standard", "bad number", domain.ReasonBadContactInfo, "")
	if err != nil {
		t.Fatalf("RequestRefund: %v", err)
	}

	approved, err := f.svc.ApproveRefund(ctx, req.ID, "admin-1", "verified with carrier")
	if err != nil {
		t.Fatalf("ApproveRefund: %v", err)
	}
	if approved.Status != domain.RefundRequestApproved {
		t.Errorf("status = %s, want approved", approved.Status)
	}
	if approved.ReviewedBy == nil || *approved.ReviewedBy != "admin-1" {
		t.Errorf("ReviewedBy = %v, want admin-1", approved.ReviewedBy)
	}
	if approved.RefundDate == nil {
		t.Error("RefundDate not stamped")
	}

	payment, err := f.payments.Get(ctx, "pay-1")
	if err != nil {
		t.Fatalf("Get payment: %v", err)
	}
	if payment.RefundStatus != domain.RefundStatusRefunded {
		t.Errorf("payment refund status = %s, want refunded", payment.RefundStatus)
	}
	if payment.RefundRef == nil || *payment.RefundRef != "re_ch_pay-1" {
		t.Errorf("RefundRef = %v, want re_ch_pay-1", payment.RefundRef)
	}
	if payment.RefundAmount == nil || *payment.RefundAmount != 60 {
		t.Errorf("RefundAmount = %v, want 60", payment.RefundAmount)
	}
	if f.gw.RefundCount() != 1 {
		t.Errorf("gateway refunds = %d, want 1", f.gw.RefundCount())
	}

	if _, err := f.svc.ApproveRefund(ctx, req.ID, "admin-1", ""); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("second approve err = %v, want ErrConflict", err)
	}
}

func TestApproveRefundGatewayFailureMutatesNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seedPayment("pay-1", "c-1", "lead-1", 60, fixedNow.Add(-48*time.Hour))

	req, err := f.svc.RequestRefund(ctx, "c-1", "lead-1", "standard", "bad number", domain.ReasonBadContactInfo, "")
	if err != nil {
		t.Fatalf("RequestRefund: %v", err)
	}

	f.gw.FailWith = errors.New("processor unavailable")
	if _, err := f.svc.ApproveRefund(ctx, req.ID, "admin-1", ""); !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("err = %v, want ErrInternal", err)
	}

	got, err := f.svc.Get(ctx, req.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.RefundRequestPending {
		t.Errorf("status after failed gateway call = %s, want pending", got.Status)
	}
	payment, err := f.payments.Get(ctx, "pay-1")
	if err != nil {
		t.Fatalf("Get payment: %v", err)
	}
	if payment.RefundStatus != domain.RefundStatusRequested {
		t.Errorf("payment refund status = %s, want requested", payment.RefundStatus)
	}
	if f.gw.RefundCount() != 0 {
		t.Errorf("gateway refunds = %d, want 0", f.gw.RefundCount())
	}

	// The reviewer retries once the processor recovers.
	f.gw.FailWith = nil
	if _, err := f.svc.ApproveRefund(ctx, req.ID, "admin-1", ""); err != nil {
		t.Errorf("retry after recovery: %v", err)
	}
}

func TestApproveRefundResumesFromRecordedReference(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seedPayment("pay-1", "c-1", "lead-1", 60, fixedNow.Add(-48*time.Hour))

	req, err := f.svc.RequestRefund(ctx, "c-1", "lead-1", "standard", "bad number", domain.ReasonBadContactInfo, "")
	if err != nil {
		t.Fatalf("RequestRefund: %v", err)
	}

	// A prior attempt got a reference from the gateway but crashed before the
	// local write. Approval must reuse it, not charge the processor again.
	payment, err := f.payments.Get(ctx, "pay-1")
	if err != nil {
		t.Fatalf("Get payment: %v", err)
	}
	prior := "re_prior"
	payment.RefundRef = &prior
	f.payments.Add(payment)

	approved, err := f.svc.ApproveRefund(ctx, req.ID, "admin-1", "")
	if err != nil {
		t.Fatalf("ApproveRefund: %v", err)
	}
	if approved.Status != domain.RefundRequestApproved {
		t.Errorf("status = %s, want approved", approved.Status)
	}
	if f.gw.RefundCount() != 0 {
		t.Errorf("gateway refunds = %d, want 0 (reference reused)", f.gw.RefundCount())
	}
	payment, _ = f.payments.Get(ctx, "pay-1")
	if payment.RefundRef == nil || *payment.RefundRef != "re_prior" {
		t.Errorf("RefundRef = %v, want re_prior", payment.RefundRef)
	}
}

func TestDenyRefund(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seedPayment("pay-1", "c-1", "lead-1", 60, fixedNow.Add(-48*time.Hour))

	req, err := f.svc.RequestRefund(ctx, "c-1", "lead-1", "standard", "bad number", domain.ReasonBadContactInfo, "")
	if err != nil {
		t.Fatalf("RequestRefund: %v", err)
	}

	if _, err := f.svc.DenyRefund(ctx, req.ID, "admin-1", " "); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("blank reason err = %v, want ErrValidation", err)
	}

	denied, err := f.svc.DenyRefund(ctx, req.ID, "admin-1", "call log shows contact was made")
	if err != nil {
		t.Fatalf("DenyRefund: %v", err)
	}
	if denied.Status != domain.RefundRequestDenied {
		t.Errorf("status = %s, want denied", denied.Status)
	}

	payment, _ := f.payments.Get(ctx, "pay-1")
	if payment.RefundStatus != domain.RefundStatusDenied {
		t.Errorf("payment refund status = %s, want denied", payment.RefundStatus)
	}

	if _, err := f.svc.DenyRefund(ctx, req.ID, "admin-1", "again"); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("second deny err = %v, want ErrConflict", err)
	}
}

func TestRequestMoreInfoFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seedPayment("pay-1", "c-1", "lead-1", 60, fixedNow.Add(-48*time.Hour))

	req, err := f.svc.RequestRefund(ctx, "c-1", "lead-1", "standard", "bad number", domain.ReasonBadContactInfo, "")
	if err != nil {
		t.Fatalf("RequestRefund: %v", err)
	}

	if _, err := f.svc.RequestMoreInfo(ctx, req.ID, "admin-1", ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("blank question err = %v, want ErrValidation", err)
	}

	updated, err := f.svc.RequestMoreInfo(ctx, req.ID, "admin-1", "which number did you call?")
	if err != nil {
		t.Fatalf("RequestMoreInfo: %v", err)
	}
	if updated.Status != domain.RefundRequestMoreInfo {
		t.Errorf("status = %s, want more_info_requested", updated.Status)
	}
	if updated.InfoRequested == nil || *updated.InfoRequested != "which number did you call?" {
		t.Errorf("InfoRequested = %v", updated.InfoRequested)
	}

	// Asking again once already in more_info_requested is not allowed.
	if _, err := f.svc.RequestMoreInfo(ctx, req.ID, "admin-1", "anything else?"); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("second info request err = %v, want ErrConflict", err)
	}

	// Approval proceeds directly from more_info_requested.
	approved, err := f.svc.ApproveRefund(ctx, req.ID, "admin-1", "contractor provided call records")
	if err != nil {
		t.Fatalf("ApproveRefund from more_info_requested: %v", err)
	}
	if approved.Status != domain.RefundRequestApproved {
		t.Errorf("status = %s, want approved", approved.Status)
	}
}

func TestListRefundRequests(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seedPayment("pay-1", "c-1", "lead-1", 60, fixedNow.Add(-48*time.Hour))
	f.seedPayment("pay-2", "c-2", "lead-2", 90, fixedNow.Add(-24*time.Hour))

	r1, err := f.svc.RequestRefund(ctx, "c-1", "lead-1", "standard", "bad number", domain.ReasonBadContactInfo, "")
	if err != nil {
		t.Fatalf("request 1: %v", err)
	}
	if _, err := f.svc.RequestRefund(ctx, "c-2", "lead-2", "standard", "outside my area", domain.ReasonOutOfServiceArea, ""); err != nil {
		t.Fatalf("request 2: %v", err)
	}
	if _, err := f.svc.DenyRefund(ctx, r1.ID, "admin-1", "contact was reachable"); err != nil {
		t.Fatalf("deny: %v", err)
	}

	pending := domain.RefundRequestPending
	got, err := f.svc.List(ctx, domain.RefundRequestFilter{Status: &pending})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ContractorID != "c-2" {
		t.Errorf("pending list = %+v, want the single c-2 request", got)
	}

	mine, err := f.svc.ListForContractor(ctx, "c-1")
	if err != nil {
		t.Fatalf("ListForContractor: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != r1.ID {
		t.Errorf("contractor list = %+v, want the single c-1 request", mine)
	}
}
