package model

import (
	"fmt"
	"time"
)

// Campaign statuses. These are the only values ever persisted; the legacy
// dashboard aliases ("active", "completed") are translated by ParseStatus.
const (
	StatusDraft       = "draft"
	StatusDispatching = "dispatching"
	StatusPaused      = "paused"
	StatusDispatched  = "dispatched"
	StatusCancelled   = "cancelled"
)

// Campaign tones. Immutable after creation.
const (
	ToneFormal   = "formal"
	ToneCasual   = "casual"
	ToneFriendly = "friendly"
	ToneUrgent   = "urgent"
)

type Campaign struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Message     string     `db:"message" json:"message"`
	Tone        string     `db:"tone" json:"tone"`
	ImageBase64 string     `db:"image_base64" json:"image_base64,omitempty"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// HasImage reports whether the campaign carries an image payload.
func (c *Campaign) HasImage() bool {
	return c.ImageBase64 != ""
}

// IsTerminal reports whether the campaign can no longer receive sends.
func (c *Campaign) IsTerminal() bool {
	return c.Status == StatusDispatched || c.Status == StatusCancelled
}

// ParseStatus maps a raw status string (including legacy dashboard aliases)
// onto the canonical enum. Returns an error for unknown values.
func ParseStatus(raw string) (string, error) {
	switch raw {
	case StatusDraft, StatusDispatching, StatusPaused, StatusDispatched, StatusCancelled:
		return raw, nil
	case "active":
		return StatusDispatching, nil
	case "completed":
		return StatusDispatched, nil
	}
	return "", fmt.Errorf("unknown campaign status %q", raw)
}

// ValidTone reports whether tone is one of the accepted values.
func ValidTone(tone string) bool {
	switch tone {
	case ToneFormal, ToneCasual, ToneFriendly, ToneUrgent:
		return true
	}
	return false
}
