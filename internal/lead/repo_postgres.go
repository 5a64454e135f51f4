package lead

import (
	"context"
	"database/sql"
	"errors"

	"outreach-platform/pkg/utils"
)

// PostgresRepo persists leads in the leads table.
//
// Index notes: selection and the retry sweep rely on
// (campaign_id, status, order_index) and a partial index on retry_on.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const leadColumns = `
id, campaign_id, raw_number, number, timezone,
status, attempts, last_call_sid, retry_on, order_index,
sentiment, summary, calendar_booked, created_at, updated_at
`

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Lead, error) {
	const q = `
SELECT ` + leadColumns + `
FROM leads
WHERE id = $1
`
	l, err := scanLead(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	return l, nil
}

func (r *PostgresRepo) ListDialable(ctx context.Context, campaignID string, limit int) ([]Lead, error) {
	const q = `
SELECT ` + leadColumns + `
FROM leads
WHERE campaign_id = $1 AND status = $2 AND retry_on = ''
ORDER BY order_index
LIMIT $3
`
	rows, err := r.db.QueryContext(ctx, q, campaignID, StatusQueued, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

func (r *PostgresRepo) ListByRetryMarker(ctx context.Context, marker string) ([]Lead, error) {
	const q = `
SELECT ` + leadColumns + `
FROM leads
WHERE retry_on = $1
ORDER BY campaign_id, order_index
`
	rows, err := r.db.QueryContext(ctx, q, marker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

func (r *PostgresRepo) ListByCampaign(ctx context.Context, campaignID string) ([]Lead, error) {
	const q = `
SELECT ` + leadColumns + `
FROM leads
WHERE campaign_id = $1
ORDER BY order_index
`
	rows, err := r.db.QueryContext(ctx, q, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

func (r *PostgresRepo) CountByStatus(ctx context.Context, campaignID string, status Status) (int, error) {
	const q = `
SELECT count(*) FROM leads WHERE campaign_id = $1 AND status = $2
`
	var n int
	err := r.db.QueryRowContext(ctx, q, campaignID, status).Scan(&n)
	return n, err
}

func (r *PostgresRepo) CountsByCampaign(ctx context.Context, campaignID string) (map[Status]int, error) {
	const q = `
SELECT status, count(*) FROM leads WHERE campaign_id = $1 GROUP BY status
`
	rows, err := r.db.QueryContext(ctx, q, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[Status]int)
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}

func (r *PostgresRepo) NextOrderIndex(ctx context.Context, campaignID string) (int, error) {
	const q = `
SELECT coalesce(max(order_index) + 1, 0) FROM leads WHERE campaign_id = $1
`
	var n int
	err := r.db.QueryRowContext(ctx, q, campaignID).Scan(&n)
	return n, err
}

func (r *PostgresRepo) CreateBatch(ctx context.Context, leads []Lead) error {
	if len(leads) == 0 {
		return nil
	}
	const q = `
INSERT INTO leads (` + leadColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
`
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		for _, l := range leads {
			if _, err := tx.ExecContext(ctx, q,
				l.ID, l.CampaignID, l.RawNumber, l.Number, l.Timezone,
				l.Status, l.Attempts, l.LastCallSID, l.RetryOn, l.OrderIndex,
				l.Sentiment, l.Summary, l.CalendarBooked, l.CreatedAt, l.UpdatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRepo) Update(ctx context.Context, l Lead) error {
	const q = `
UPDATE leads
SET status = $2, attempts = $3, last_call_sid = $4, retry_on = $5,
    timezone = $6, sentiment = $7, summary = $8, calendar_booked = $9,
    updated_at = $10
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q,
		l.ID, l.Status, l.Attempts, l.LastCallSID, l.RetryOn,
		l.Timezone, l.Sentiment, l.Summary, l.CalendarBooked, l.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.CampaignID, &l.RawNumber, &l.Number, &l.Timezone,
		&l.Status, &l.Attempts, &l.LastCallSID, &l.RetryOn, &l.OrderIndex,
		&l.Sentiment, &l.Summary, &l.CalendarBooked, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

func collectLeads(rows *sql.Rows) ([]Lead, error) {
	var out []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
