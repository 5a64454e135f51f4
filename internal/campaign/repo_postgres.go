package campaign

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PostgresRepo persists campaigns in the campaigns table.
//
// Schema notes:
// - working_window, retry_policy, attempt_backoff, pacing are JSONB columns.
// - status carries the Status enum as text.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const campaignColumns = `
id, owner_id, caller_number, assistant_id,
working_window, retry_policy, attempt_backoff, pacing, lines,
status, start_at, stop_at, created_at, updated_at
`

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Campaign, error) {
	const q = `
SELECT ` + campaignColumns + `
FROM campaigns
WHERE id = $1
`
	row := r.db.QueryRowContext(ctx, q, id)
	c, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, err
	}
	return c, nil
}

func (r *PostgresRepo) ListByStatus(ctx context.Context, status Status) ([]Campaign, error) {
	const q = `
SELECT ` + campaignColumns + `
FROM campaigns
WHERE status = $1
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Create(ctx context.Context, c Campaign) error {
	window, retry, backoff, pacing, err := marshalConfig(c)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO campaigns (` + campaignColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`
	_, err = r.db.ExecContext(ctx, q,
		c.ID, c.OwnerID, c.CallerNumber, c.AssistantID,
		window, retry, backoff, pacing, c.Lines,
		c.Status, c.StartAt, c.StopAt, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, c Campaign) error {
	window, retry, backoff, pacing, err := marshalConfig(c)
	if err != nil {
		return err
	}
	const q = `
UPDATE campaigns
SET owner_id = $2, caller_number = $3, assistant_id = $4,
    working_window = $5, retry_policy = $6, attempt_backoff = $7,
    pacing = $8, lines = $9, status = $10, start_at = $11, stop_at = $12,
    updated_at = $13
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q,
		c.ID, c.OwnerID, c.CallerNumber, c.AssistantID,
		window, retry, backoff, pacing, c.Lines,
		c.Status, c.StartAt, c.StopAt, c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalConfig(c Campaign) (window, retry, backoff, pacing []byte, err error) {
	if window, err = json.Marshal(c.Window); err != nil {
		return
	}
	if retry, err = json.Marshal(c.Retry); err != nil {
		return
	}
	if backoff, err = json.Marshal(c.Backoff); err != nil {
		return
	}
	pacing, err = json.Marshal(c.Pacing)
	return
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (Campaign, error) {
	var c Campaign
	var window, retry, backoff, pacing []byte
	if err := row.Scan(
		&c.ID, &c.OwnerID, &c.CallerNumber, &c.AssistantID,
		&window, &retry, &backoff, &pacing, &c.Lines,
		&c.Status, &c.StartAt, &c.StopAt, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return Campaign{}, err
	}
	if err := json.Unmarshal(window, &c.Window); err != nil {
		return Campaign{}, err
	}
	if err := json.Unmarshal(retry, &c.Retry); err != nil {
		return Campaign{}, err
	}
	if err := json.Unmarshal(backoff, &c.Backoff); err != nil {
		return Campaign{}, err
	}
	if err := json.Unmarshal(pacing, &c.Pacing); err != nil {
		return Campaign{}, err
	}
	return c, nil
}
