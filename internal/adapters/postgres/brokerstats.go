package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"leadmarket/internal/domain"
)

// StatsRepo implements ports.BrokerStatsRepository. Every aggregate feeding a
// single score is read under one REPEATABLE READ transaction so the composite
// reflects a single point in time even under concurrent writes.
type StatsRepo struct{ db *DB }

func NewStatsRepo(db *DB) *StatsRepo { return &StatsRepo{db: db} }

const summaryQuery = `
	SELECT b.created_at, b.last_activity,
		(SELECT COUNT(*) FROM leads l JOIN jobs j ON j.id = l.job_id WHERE j.broker_id = b.id AND l.posted_at IS NOT NULL),
		(SELECT COUNT(*) FROM leads l JOIN jobs j ON j.id = l.job_id WHERE j.broker_id = b.id AND l.status = 'sold'),
		(SELECT COALESCE(SUM(p.amount), 0)
			FROM payments p JOIN leads l ON l.id = p.lead_id JOIN jobs j ON j.id = l.job_id
			WHERE j.broker_id = b.id AND p.status = 'completed'),
		(SELECT COUNT(*) FROM broker_network_members m WHERE m.broker_id = b.id AND m.role = 'contractor'),
		(SELECT COUNT(*) FROM broker_network_members m WHERE m.broker_id = b.id AND m.role = 'hes_assessor'),
		(SELECT COUNT(*) FROM broker_network_members m WHERE m.broker_id = b.id AND m.role = 'inspector')
	FROM brokers b
	WHERE b.id = $1
`

func scanSummary(row pgx.Row, brokerID string) (domain.BrokerSummary, error) {
	s := domain.BrokerSummary{BrokerID: brokerID}
	err := row.Scan(&s.CreatedAt, &s.LastActivity, &s.LeadsPosted, &s.LeadsClosed,
		&s.RevenueEarned, &s.ContractorCount, &s.HESAssessorCount, &s.InspectorCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, fmt.Errorf("%w: broker", domain.ErrNotFound)
	}
	return s, err
}

// Summary is a single statement, which gives it snapshot consistency for free.
func (r *StatsRepo) Summary(ctx context.Context, brokerID string) (domain.BrokerSummary, error) {
	return scanSummary(r.db.Pool.QueryRow(ctx, summaryQuery, brokerID), brokerID)
}

func (r *StatsRepo) AuditStats(ctx context.Context, brokerID string, now time.Time) (domain.BrokerAuditStats, error) {
	var out domain.BrokerAuditStats
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return out, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	out.Summary, err = scanSummary(tx.QueryRow(ctx, summaryQuery, brokerID), brokerID)
	if err != nil {
		return out, err
	}

	err = tx.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE l.created_at >= $2),
			COUNT(*) FILTER (WHERE l.created_at >= $3),
			COALESCE(AVG(EXTRACT(EPOCH FROM (l.sold_at - l.created_at)) / 86400) FILTER (WHERE l.status = 'sold'), 0)
		FROM leads l JOIN jobs j ON j.id = l.job_id
		WHERE j.broker_id = $1
	`, brokerID, now.AddDate(0, 0, -30), now.AddDate(0, 0, -7)).Scan(&out.LeadsLast30Days, &out.LeadsLast7Days, &out.AvgDaysToClose)
	if err != nil {
		return out, err
	}

	out.RevenueByService, err = r.revenueByService(ctx, tx, brokerID)
	if err != nil {
		return out, err
	}
	out.Contractors, err = r.contractorEngagement(ctx, tx, brokerID)
	return out, err
}

func (r *StatsRepo) revenueByService(ctx context.Context, tx pgx.Tx, brokerID string) (map[string]float64, error) {
	rows, err := tx.Query(ctx, `
		SELECT j.service_type, COALESCE(SUM(p.amount), 0)
		FROM payments p JOIN leads l ON l.id = p.lead_id JOIN jobs j ON j.id = l.job_id
		WHERE j.broker_id = $1 AND p.status = 'completed'
		GROUP BY j.service_type
	`, brokerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]float64{}
	for rows.Next() {
		var service string
		var amount float64
		if err := rows.Scan(&service, &amount); err != nil {
			return nil, err
		}
		out[service] = amount
	}
	return out, rows.Err()
}

// contractorEngagement counts leads sold to each contractor in the broker's
// funnel and how many of those purchases stuck (were not refunded).
func (r *StatsRepo) contractorEngagement(ctx context.Context, tx pgx.Tx, brokerID string) ([]domain.ContractorEngagement, error) {
	rows, err := tx.Query(ctx, `
		SELECT t.buyer_id, COUNT(*), COUNT(*) FILTER (WHERE NOT t.refunded)
		FROM (
			SELECT l.id, l.buyer_id,
				EXISTS (
					SELECT 1 FROM payments p
					WHERE p.lead_id = l.id AND p.refund_status = 'refunded'
				) AS refunded
			FROM leads l JOIN jobs j ON j.id = l.job_id
			WHERE j.broker_id = $1 AND l.status = 'sold' AND l.buyer_type = 'contractor'
		) t
		GROUP BY t.buyer_id
		ORDER BY COUNT(*) DESC
	`, brokerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.ContractorEngagement{}
	for rows.Next() {
		var e domain.ContractorEngagement
		if err := rows.Scan(&e.ContractorID, &e.LeadsSent, &e.LeadsClosed); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
