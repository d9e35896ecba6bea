package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"leadmarket/internal/domain"
)

const leadColumns = `id, job_id, status, price, notes, service_tags, posted_at, expires_at, buyer_id, buyer_type, sold_at, created_at, updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var l domain.Lead
	var buyerType *string
	err := row.Scan(&l.ID, &l.JobID, &l.Status, &l.Price, &l.Notes, &l.ServiceTags,
		&l.PostedAt, &l.ExpiresAt, &l.BuyerID, &buyerType, &l.SoldAt, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return l, fmt.Errorf("%w: lead", domain.ErrNotFound)
	}
	if err != nil {
		return l, err
	}
	if buyerType != nil {
		bt := domain.BuyerType(*buyerType)
		l.BuyerType = &bt
	}
	return l, nil
}

// JobRepo resolves job references owned by the surrounding application.
type JobRepo struct{ db *DB }

func NewJobRepo(db *DB) *JobRepo { return &JobRepo{db: db} }

func (r *JobRepo) Exists(ctx context.Context, jobID string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, jobID).Scan(&exists)
	return exists, err
}

// LeadRepo implements ports.LeadRepository on top of the leads table.
type LeadRepo struct{ db *DB }

func NewLeadRepo(db *DB) *LeadRepo { return &LeadRepo{db: db} }

func (r *LeadRepo) Create(ctx context.Context, lead domain.Lead) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO leads (id, job_id, status, price, notes, service_tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, lead.ID, lead.JobID, lead.Status, lead.Price, lead.Notes, lead.ServiceTags, lead.CreatedAt, lead.UpdatedAt)
	return err
}

func (r *LeadRepo) Get(ctx context.Context, id string) (domain.Lead, error) {
	return scanLead(r.db.Pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
}

// MarkPosted transitions draft -> active in one guarded statement.
func (r *LeadRepo) MarkPosted(ctx context.Context, id string, postedAt time.Time) (bool, error) {
	ct, err := r.db.Pool.Exec(ctx, `
		UPDATE leads SET status = 'active', posted_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'draft'
	`, id, postedAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// Purchase is the compare-and-swap the double-sell guard rests on: the row is
// only written while it is still active with no buyer, and the affected-row
// count decides the winner.
func (r *LeadRepo) Purchase(ctx context.Context, id, buyerID string, buyerType domain.BuyerType, soldAt time.Time) (bool, error) {
	ct, err := r.db.Pool.Exec(ctx, `
		UPDATE leads SET status = 'sold', buyer_id = $2, buyer_type = $3, sold_at = $4, updated_at = $4
		WHERE id = $1 AND status = 'active' AND buyer_id IS NULL
	`, id, buyerID, buyerType, soldAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *LeadRepo) Update(ctx context.Context, id string, patch domain.LeadPatch, updatedAt time.Time) (domain.Lead, error) {
	sets := "updated_at = $2"
	args := []any{id, updatedAt}
	add := func(col string, v any) {
		args = append(args, v)
		sets += fmt.Sprintf(", %s = $%d", col, len(args))
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if patch.PostedAt != nil {
		add("posted_at", *patch.PostedAt)
	}
	if patch.ExpiresAt != nil {
		add("expires_at", *patch.ExpiresAt)
	}
	if patch.ServiceTags != nil {
		add("service_tags", *patch.ServiceTags)
	}
	query := `UPDATE leads SET ` + sets + ` WHERE id = $1 RETURNING ` + leadColumns
	return scanLead(r.db.Pool.QueryRow(ctx, query, args...))
}

func (r *LeadRepo) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: lead", domain.ErrNotFound)
	}
	return nil
}
