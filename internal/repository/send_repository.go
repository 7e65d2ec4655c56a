package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ingressos/disparador-backend/internal/model"
)

type SendRepositoryInterface interface {
	SeedScheduled(sends []*model.Send) error
	PromoteScheduledToPending(campaignID string) (int, error)
	NextUnitOfWork(campaignID string, maxAttempts int) (*model.Send, error)
	ClaimPending(id string) (bool, error)
	MarkFailedRetrying(id string) (bool, error)
	RequeueStale(campaignID string, olderThan time.Duration) (int, error)
	RecordOutcome(id, outcome, errorMessage string) (bool, error)
	FailAllOpen(campaignID, reason string) (int, error)
	CountByStatus(campaignID string) (map[string]int, error)
	CountSentToday(campaignID string) (int, error)
	CountRetryableFailed(campaignID string, maxAttempts int) (int, error)
	ListByCampaign(campaignID string) ([]*model.Send, error)
	ListConsumedJIDs() (map[string]struct{}, error)
}

type SendRepository struct {
	DB *sql.DB
}

const sendColumns = `id, campaign_id, customer_id, customer_name, remote_jid, content, status,
        error_message, attempts, created_at, updated_at, sent_at, failed_at`

func scanSend(row interface{ Scan(...interface{}) error }) (*model.Send, error) {
	var s model.Send
	err := row.Scan(
		&s.ID, &s.CampaignID, &s.CustomerID, &s.CustomerName, &s.RemoteJID, &s.Content,
		&s.Status, &s.ErrorMessage, &s.Attempts, &s.CreatedAt, &s.UpdatedAt, &s.SentAt, &s.FailedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SeedScheduled inserts the ledger rows for a freshly created campaign in one
// transaction. Rows start as scheduled; starting the campaign promotes them.
func (r *SendRepository) SeedScheduled(sends []*model.Send) error {
	if len(sends) == 0 {
		return nil
	}
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO sends (id, campaign_id, customer_id, customer_name, remote_jid, content, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
    `
	now := time.Now()
	for _, s := range sends {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.Status == "" {
			s.Status = model.SendScheduled
		}
		s.CreatedAt = now
		s.UpdatedAt = now
		if _, err := tx.Exec(query, s.ID, s.CampaignID, s.CustomerID, s.CustomerName, s.RemoteJID, s.Content, s.Status, now); err != nil {
			return fmt.Errorf("failed to seed send for customer %s: %w", s.CustomerID, err)
		}
	}
	return tx.Commit()
}

func (r *SendRepository) PromoteScheduledToPending(campaignID string) (int, error) {
	query := `
        UPDATE sends SET status=$1, updated_at=NOW()
        WHERE campaign_id=$2 AND status=$3
    `
	res, err := r.DB.Exec(query, model.SendPending, campaignID, model.SendScheduled)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// NextUnitOfWork returns the oldest pending send for the campaign. When no
// pending work remains it falls back to the oldest failed row that still has
// attempts left, so new work always preempts retries. Returns nil when the
// campaign has nothing left to deliver.
func (r *SendRepository) NextUnitOfWork(campaignID string, maxAttempts int) (*model.Send, error) {
	pendingQuery := `
        SELECT ` + sendColumns + `
        FROM sends
        WHERE campaign_id=$1 AND status=$2
        ORDER BY created_at ASC, id ASC
        LIMIT 1
    `
	s, err := scanSend(r.DB.QueryRow(pendingQuery, campaignID, model.SendPending))
	if err == nil {
		return s, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	retryQuery := `
        SELECT ` + sendColumns + `
        FROM sends
        WHERE campaign_id=$1 AND status=$2 AND attempts < $3
        ORDER BY created_at ASC, id ASC
        LIMIT 1
    `
	s, err = scanSend(r.DB.QueryRow(retryQuery, campaignID, model.SendFailed, maxAttempts))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ClaimPending flips one row from pending to the in-flight marker and counts
// the attempt. Returns false when another invocation already claimed it.
func (r *SendRepository) ClaimPending(id string) (bool, error) {
	query := `
        UPDATE sends SET status=$1, attempts=attempts+1, updated_at=NOW()
        WHERE id=$2 AND status=$3
    `
	res, err := r.DB.Exec(query, model.SendSending, id, model.SendPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkFailedRetrying flips a failed row back to pending and clears its error,
// guarded on the current status so two ticks cannot double-retry it.
func (r *SendRepository) MarkFailedRetrying(id string) (bool, error) {
	query := `
        UPDATE sends SET status=$1, error_message='', updated_at=NOW()
        WHERE id=$2 AND status=$3
    `
	res, err := r.DB.Exec(query, model.SendPending, id, model.SendFailed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RequeueStale returns in-flight rows whose claim expired back to pending.
// A claim only goes stale when an invocation died mid-delivery.
func (r *SendRepository) RequeueStale(campaignID string, olderThan time.Duration) (int, error) {
	query := `
        UPDATE sends SET status=$1, updated_at=NOW()
        WHERE campaign_id=$2 AND status=$3 AND updated_at < $4
    `
	cutoff := time.Now().Add(-olderThan)
	res, err := r.DB.Exec(query, model.SendPending, campaignID, model.SendSending, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// RecordOutcome sets the terminal status for a send. The update is guarded on
// the row still being open, so recording an outcome for an already-terminal
// row is a no-op and reports false.
func (r *SendRepository) RecordOutcome(id, outcome, errorMessage string) (bool, error) {
	var query string
	switch outcome {
	case model.SendSent:
		query = `
            UPDATE sends SET status=$1, error_message='', sent_at=NOW(), updated_at=NOW()
            WHERE id=$2 AND status IN ($3, $4)
        `
	case model.SendFailed:
		query = `
            UPDATE sends SET status=$1, error_message=$5, failed_at=NOW(), updated_at=NOW()
            WHERE id=$2 AND status IN ($3, $4)
        `
	default:
		return false, fmt.Errorf("invalid send outcome %q", outcome)
	}

	args := []interface{}{outcome, id, model.SendPending, model.SendSending}
	if outcome == model.SendFailed {
		args = append(args, errorMessage)
	}
	res, err := r.DB.Exec(query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FailAllOpen fails every non-terminal row for the campaign. Used by cancel.
func (r *SendRepository) FailAllOpen(campaignID, reason string) (int, error) {
	query := `
        UPDATE sends SET status=$1, error_message=$2, failed_at=NOW(), updated_at=NOW()
        WHERE campaign_id=$3 AND status IN ($4, $5, $6)
    `
	res, err := r.DB.Exec(query, model.SendFailed, reason, campaignID,
		model.SendScheduled, model.SendPending, model.SendSending)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *SendRepository) CountByStatus(campaignID string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM sends WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *SendRepository) CountSentToday(campaignID string) (int, error) {
	query := `
        SELECT COUNT(*) FROM sends
        WHERE campaign_id=$1 AND status=$2 AND sent_at >= date_trunc('day', NOW())
    `
	var n int
	err := r.DB.QueryRow(query, campaignID, model.SendSent).Scan(&n)
	return n, err
}

// CountRetryableFailed counts failed rows that the retry pass will still pick
// up. Failed rows with exhausted attempts are terminal for completion.
func (r *SendRepository) CountRetryableFailed(campaignID string, maxAttempts int) (int, error) {
	query := `
        SELECT COUNT(*) FROM sends
        WHERE campaign_id=$1 AND status=$2 AND attempts < $3
    `
	var n int
	err := r.DB.QueryRow(query, campaignID, model.SendFailed, maxAttempts).Scan(&n)
	return n, err
}

func (r *SendRepository) ListByCampaign(campaignID string) ([]*model.Send, error) {
	query := `
        SELECT ` + sendColumns + `
        FROM sends WHERE campaign_id=$1
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sends := []*model.Send{}
	for rows.Next() {
		s, err := scanSend(rows)
		if err != nil {
			return nil, err
		}
		sends = append(sends, s)
	}
	return sends, rows.Err()
}

// ListConsumedJIDs returns every delivery address that appears in any send
// row, regardless of campaign or outcome. A consumed recipient is never
// eligible again.
func (r *SendRepository) ListConsumedJIDs() (map[string]struct{}, error) {
	rows, err := r.DB.Query(`SELECT DISTINCT remote_jid FROM sends`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	consumed := map[string]struct{}{}
	for rows.Next() {
		var jid string
		if err := rows.Scan(&jid); err != nil {
			return nil, err
		}
		consumed[jid] = struct{}{}
	}
	return consumed, rows.Err()
}

var _ SendRepositoryInterface = (*SendRepository)(nil)
