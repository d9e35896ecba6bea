package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"leadmarket/internal/domain"
	"leadmarket/internal/ports"
)

const refundColumns = `id, payment_id, contractor_id, lead_id, lead_type, reason, reason_category, notes, risk_score, status, info_requested, admin_notes, reviewed_by, reviewed_date, refund_date, created_at, updated_at`

func scanRefund(row pgx.Row) (domain.RefundRequest, error) {
	var r domain.RefundRequest
	err := row.Scan(&r.ID, &r.PaymentID, &r.ContractorID, &r.LeadID, &r.LeadType,
		&r.Reason, &r.ReasonCategory, &r.Notes, &r.RiskScore, &r.Status,
		&r.InfoRequested, &r.AdminNotes, &r.ReviewedBy, &r.ReviewedDate, &r.RefundDate,
		&r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r, fmt.Errorf("%w: refund request", domain.ErrNotFound)
	}
	return r, err
}

// RefundRepo implements ports.RefundRequestRepository. The partial unique
// index on (contractor_id, lead_id) WHERE status = 'pending' serializes the
// check-then-insert race at the storage layer.
type RefundRepo struct{ db *DB }

func NewRefundRepo(db *DB) *RefundRepo { return &RefundRepo{db: db} }

func (r *RefundRepo) Create(ctx context.Context, req domain.RefundRequest) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO refund_requests (id, payment_id, contractor_id, lead_id, lead_type, reason, reason_category, notes, risk_score, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, req.ID, req.PaymentID, req.ContractorID, req.LeadID, req.LeadType, req.Reason,
		req.ReasonCategory, req.Notes, req.RiskScore, req.Status, req.CreatedAt, req.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: a pending refund request already exists for this lead", domain.ErrConflict)
	}
	return err
}

func (r *RefundRepo) Get(ctx context.Context, id string) (domain.RefundRequest, error) {
	return scanRefund(r.db.Pool.QueryRow(ctx, `SELECT `+refundColumns+` FROM refund_requests WHERE id = $1`, id))
}

func (r *RefundRepo) HasPending(ctx context.Context, contractorID, leadID string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM refund_requests WHERE contractor_id = $1 AND lead_id = $2 AND status = 'pending')
	`, contractorID, leadID).Scan(&exists)
	return exists, err
}

func (r *RefundRepo) CountByContractor(ctx context.Context, contractorID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM refund_requests WHERE contractor_id = $1`, contractorID).Scan(&n)
	return n, err
}

func (r *RefundRepo) CountByContractorSince(ctx context.Context, contractorID string, since time.Time) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM refund_requests WHERE contractor_id = $1 AND created_at >= $2
	`, contractorID, since).Scan(&n)
	return n, err
}

func (r *RefundRepo) List(ctx context.Context, filter domain.RefundRequestFilter) ([]domain.RefundRequest, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE 1=1`
	args := []any{}
	add := func(clause string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND %s $%d", clause, len(args))
	}
	if filter.Status != nil {
		add("status =", *filter.Status)
	}
	if filter.ContractorID != nil {
		add("contractor_id =", *filter.ContractorID)
	}
	if filter.From != nil {
		add("created_at >=", *filter.From)
	}
	if filter.To != nil {
		add("created_at <=", *filter.To)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRefunds(rows)
}

func (r *RefundRepo) ListByContractor(ctx context.Context, contractorID string) ([]domain.RefundRequest, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+refundColumns+` FROM refund_requests WHERE contractor_id = $1 ORDER BY created_at DESC
	`, contractorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRefunds(rows)
}

func collectRefunds(rows pgx.Rows) ([]domain.RefundRequest, error) {
	out := []domain.RefundRequest{}
	for rows.Next() {
		req, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// MarkApproved finalizes the request and its payment in one transaction. The
// guarded update keeps terminal requests terminal even under concurrent
// reviewers.
func (r *RefundRepo) MarkApproved(ctx context.Context, approval ports.RefundApproval) (domain.RefundRequest, error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.RefundRequest{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var req domain.RefundRequest
	req, err = scanRefund(tx.QueryRow(ctx, `
		UPDATE refund_requests
		SET status = 'approved', reviewed_by = $2, reviewed_date = $3, admin_notes = $4, refund_date = $3, updated_at = $3
		WHERE id = $1 AND status IN ('pending', 'more_info_requested')
		RETURNING `+refundColumns, approval.RequestID, approval.ReviewerID, approval.At, approval.AdminNotes))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = r.reviewConflict(ctx, approval.RequestID)
		}
		return domain.RefundRequest{}, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE payments SET refund_status = 'refunded', refund_ref = $2, refund_amount = $3, refunded_at = $4
		WHERE id = $1
	`, req.PaymentID, approval.RefundRef, approval.Amount, approval.At)
	if err != nil {
		return domain.RefundRequest{}, err
	}
	return req, nil
}

func (r *RefundRepo) MarkDenied(ctx context.Context, id, reviewerID, reason string, at time.Time) (domain.RefundRequest, error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.RefundRequest{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var req domain.RefundRequest
	req, err = scanRefund(tx.QueryRow(ctx, `
		UPDATE refund_requests
		SET status = 'denied', reviewed_by = $2, reviewed_date = $3, admin_notes = $4, updated_at = $3
		WHERE id = $1 AND status IN ('pending', 'more_info_requested')
		RETURNING `+refundColumns, id, reviewerID, at, reason))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = r.reviewConflict(ctx, id)
		}
		return domain.RefundRequest{}, err
	}
	_, err = tx.Exec(ctx, `UPDATE payments SET refund_status = 'denied' WHERE id = $1`, req.PaymentID)
	if err != nil {
		return domain.RefundRequest{}, err
	}
	return req, nil
}

func (r *RefundRepo) MarkMoreInfo(ctx context.Context, id, reviewerID, question string, at time.Time) (domain.RefundRequest, error) {
	req, err := scanRefund(r.db.Pool.QueryRow(ctx, `
		UPDATE refund_requests
		SET status = 'more_info_requested', info_requested = $2, reviewed_by = $3, updated_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING `+refundColumns, id, question, reviewerID, at))
	if err != nil && errors.Is(err, domain.ErrNotFound) {
		return domain.RefundRequest{}, r.reviewConflict(ctx, id)
	}
	return req, err
}

// reviewConflict distinguishes a missing request from one already past the
// expected state after a guarded update touched zero rows.
func (r *RefundRepo) reviewConflict(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: refund request is not reviewable", domain.ErrConflict)
}
