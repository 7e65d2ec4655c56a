package model

import "time"

// History outcomes.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// HistoryEntry records a delivery outcome per recipient, with a
// forward-looking stamp for future re-engagement logic.
type HistoryEntry struct {
	ID             string    `db:"id" json:"id"`
	CustomerID     string    `db:"customer_id" json:"customer_id"`
	CampaignID     string    `db:"campaign_id" json:"campaign_id"`
	SendID         string    `db:"send_id" json:"send_id"`
	Outcome        string    `db:"outcome" json:"outcome"`
	NextEligibleAt time.Time `db:"next_eligible_at" json:"next_eligible_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
