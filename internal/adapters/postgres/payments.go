package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"leadmarket/internal/domain"
)

const paymentColumns = `id, contractor_id, lead_id, amount, charge_ref, refund_status, refund_ref, refund_amount, refunded_at, created_at`

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.ContractorID, &p.LeadID, &p.Amount, &p.ChargeRef,
		&p.RefundStatus, &p.RefundRef, &p.RefundAmount, &p.RefundedAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, fmt.Errorf("%w: payment", domain.ErrNotFound)
	}
	return p, err
}

// PaymentRepo implements ports.PaymentRepository. Payments are written by the
// billing side; only refund fields are mutated here.
type PaymentRepo struct{ db *DB }

func NewPaymentRepo(db *DB) *PaymentRepo { return &PaymentRepo{db: db} }

func (r *PaymentRepo) Get(ctx context.Context, id string) (domain.Payment, error) {
	return scanPayment(r.db.Pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

func (r *PaymentRepo) LatestCompleted(ctx context.Context, contractorID, leadID string) (domain.Payment, error) {
	return scanPayment(r.db.Pool.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE contractor_id = $1 AND lead_id = $2 AND status = 'completed'
		ORDER BY created_at DESC
		LIMIT 1
	`, contractorID, leadID))
}

func (r *PaymentRepo) CountCompletedByContractor(ctx context.Context, contractorID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM payments WHERE contractor_id = $1 AND status = 'completed'
	`, contractorID).Scan(&n)
	return n, err
}

func (r *PaymentRepo) SetRefundStatus(ctx context.Context, id string, status domain.PaymentRefundStatus) error {
	ct, err := r.db.Pool.Exec(ctx, `UPDATE payments SET refund_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment", domain.ErrNotFound)
	}
	return nil
}
