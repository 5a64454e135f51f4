package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"outreach-platform/pkg/utils"

	"github.com/google/uuid"
)

// PostgresRepo persists call attempts in the call_attempts table.
//
// Schema notes: UNIQUE (call_sid).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const attemptColumns = `
id, campaign_id, lead_id, attempt_number, call_sid,
status, started_at, ended_at, duration,
recording_url, transcript, analysis, created_at, updated_at
`

func (r *PostgresRepo) Create(ctx context.Context, a Attempt) error {
	const q = `
INSERT INTO call_attempts (` + attemptColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`
	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.CampaignID, a.LeadID, a.AttemptNumber, a.CallSID,
		a.Status, a.StartedAt, a.EndedAt, a.DurationSeconds,
		a.RecordingURL, a.Transcript, a.Analysis, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) GetByCallSID(ctx context.Context, callSID string) (Attempt, error) {
	const q = `
SELECT ` + attemptColumns + `
FROM call_attempts
WHERE call_sid = $1
`
	a, err := scanAttempt(r.db.QueryRowContext(ctx, q, callSID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrNotFound
		}
		return Attempt{}, err
	}
	return a, nil
}

func (r *PostgresRepo) UpsertByCallSID(ctx context.Context, callSID string, u StatusUpdate, now time.Time) (Attempt, error) {
	var out Attempt
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const sel = `
SELECT ` + attemptColumns + `
FROM call_attempts
WHERE call_sid = $1
FOR UPDATE
`
		a, err := scanAttempt(tx.QueryRowContext(ctx, sel, callSID))
		if errors.Is(err, sql.ErrNoRows) {
			a = Attempt{
				ID:         uuid.NewString(),
				CampaignID: u.CampaignID,
				LeadID:     u.LeadID,
				CallSID:    callSID,
				Status:     u.Status,
				StartedAt:  now,
				CreatedAt:  now,
			}
			applyUpdate(&a, u, now)
			const ins = `
INSERT INTO call_attempts (` + attemptColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`
			if _, err := tx.ExecContext(ctx, ins,
				a.ID, a.CampaignID, a.LeadID, a.AttemptNumber, a.CallSID,
				a.Status, a.StartedAt, a.EndedAt, a.DurationSeconds,
				a.RecordingURL, a.Transcript, a.Analysis, a.CreatedAt, a.UpdatedAt,
			); err != nil {
				return err
			}
			out = a
			return nil
		}
		if err != nil {
			return err
		}

		applyUpdate(&a, u, now)
		const upd = `
UPDATE call_attempts
SET campaign_id = $2, lead_id = $3, status = $4, ended_at = $5,
    duration = $6, updated_at = $7
WHERE call_sid = $1
`
		if _, err := tx.ExecContext(ctx, upd,
			a.CallSID, a.CampaignID, a.LeadID, a.Status, a.EndedAt,
			a.DurationSeconds, a.UpdatedAt,
		); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

// applyUpdate merges one callback into an attempt. A row whose ended_at is
// set is finished: callbacks arrive out of order, so a late non-terminal or
// duplicate terminal delivery must not regress status or move ended_at and
// duration. Correlation backfill still applies.
func applyUpdate(a *Attempt, u StatusUpdate, now time.Time) {
	if a.EndedAt == nil {
		a.Status = u.Status
		if u.DurationSeconds != nil {
			a.DurationSeconds = *u.DurationSeconds
		}
		if u.EndedAt != nil {
			a.EndedAt = u.EndedAt
		}
	}
	if a.CampaignID == "" {
		a.CampaignID = u.CampaignID
	}
	if a.LeadID == "" {
		a.LeadID = u.LeadID
	}
	a.UpdatedAt = now
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	err := row.Scan(
		&a.ID, &a.CampaignID, &a.LeadID, &a.AttemptNumber, &a.CallSID,
		&a.Status, &a.StartedAt, &a.EndedAt, &a.DurationSeconds,
		&a.RecordingURL, &a.Transcript, &a.Analysis, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}
