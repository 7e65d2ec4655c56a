package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ingressos/disparador-backend/internal/model"
)

type HistoryRepositoryInterface interface {
	Append(entry *model.HistoryEntry) error
	IncrementDailyLimit(campaignID string, day time.Time) error
}

type HistoryRepository struct {
	DB *sql.DB
}

// Append writes one delivery-outcome history entry.
func (r *HistoryRepository) Append(entry *model.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now()
	query := `
        INSERT INTO customer_history (id, customer_id, campaign_id, send_id, outcome, next_eligible_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.DB.Exec(query,
		entry.ID, entry.CustomerID, entry.CampaignID, entry.SendID,
		entry.Outcome, entry.NextEligibleAt, entry.CreatedAt,
	)
	return err
}

// IncrementDailyLimit bumps the per-day sent counter for a campaign.
func (r *HistoryRepository) IncrementDailyLimit(campaignID string, day time.Time) error {
	query := `
        INSERT INTO daily_limits (campaign_id, day, sent_count)
        VALUES ($1, $2, 1)
        ON CONFLICT (campaign_id, day) DO UPDATE SET sent_count = daily_limits.sent_count + 1
    `
	_, err := r.DB.Exec(query, campaignID, day.Format("2006-01-02"))
	return err
}

var _ HistoryRepositoryInterface = (*HistoryRepository)(nil)
