package model

import "time"

// Send statuses. "sending" is the in-flight claim marker used to guard
// against overlapping scheduler invocations; stats fold it into pending.
const (
	SendScheduled = "scheduled"
	SendPending   = "pending"
	SendSending   = "sending"
	SendSent      = "sent"
	SendFailed    = "failed"
)

// Send is one unit of work: a (campaign, recipient) pairing tracked through
// pending -> sent|failed.
type Send struct {
	ID           string     `db:"id" json:"id"`
	CampaignID   string     `db:"campaign_id" json:"campaign_id"`
	CustomerID   string     `db:"customer_id" json:"customer_id"`
	CustomerName string     `db:"customer_name" json:"customer_name"`
	RemoteJID    string     `db:"remote_jid" json:"remote_jid"`
	Content      string     `db:"content" json:"content"`
	Status       string     `db:"status" json:"status"`
	ErrorMessage string     `db:"error_message" json:"error_message,omitempty"`
	Attempts     int        `db:"attempts" json:"attempts"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	FailedAt     *time.Time `db:"failed_at" json:"failed_at,omitempty"`
}

// IsTerminalStatus reports whether a send status admits no further delivery.
func IsTerminalStatus(status string) bool {
	return status == SendSent || status == SendFailed
}

// CampaignStats is derived from the send ledger on demand, never stored.
type CampaignStats struct {
	Sent      int `json:"sent"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
	SentToday int `json:"sent_today"`
	Total     int `json:"total"`
}
