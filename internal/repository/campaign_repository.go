package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/ingressos/disparador-backend/internal/errors"
	"github.com/ingressos/disparador-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id string) (*model.Campaign, error)
	List(status string) ([]*model.Campaign, error)
	ListByStatus(status string) ([]*model.Campaign, error)
	UpdateContent(id, name, message, imageBase64 string) error
	SetStatus(id, status string) error
	TransitionStatus(id string, from []string, to string) (bool, error)
	ClaimDispatching(id string, from []string) (bool, error)
	DeleteCascade(id string) error
}

type CampaignRepository struct {
	DB *sql.DB
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	c.CreatedAt = time.Now()
	query := `
        INSERT INTO campaigns (id, name, message, tone, image_base64, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.DB.Exec(query, c.ID, c.Name, c.Message, c.Tone, c.ImageBase64, c.Status, c.CreatedAt)
	return err
}

func (r *CampaignRepository) GetByID(id string) (*model.Campaign, error) {
	query := `
        SELECT id, name, message, tone, image_base64, status, created_at, updated_at
        FROM campaigns WHERE id=$1
    `
	var c model.Campaign
	err := r.DB.QueryRow(query, id).Scan(
		&c.ID, &c.Name, &c.Message, &c.Tone, &c.ImageBase64, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) List(status string) ([]*model.Campaign, error) {
	query := `
        SELECT id, name, message, tone, image_base64, status, created_at, updated_at
        FROM campaigns
    `
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status=$1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c := &model.Campaign{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Message, &c.Tone, &c.ImageBase64, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// ListByStatus returns campaigns in a single status, oldest first. The
// dispatcher uses it to discover dispatching campaigns each invocation.
func (r *CampaignRepository) ListByStatus(status string) ([]*model.Campaign, error) {
	query := `
        SELECT id, name, message, tone, image_base64, status, created_at, updated_at
        FROM campaigns WHERE status=$1
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.DB.Query(query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c := &model.Campaign{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Message, &c.Tone, &c.ImageBase64, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) UpdateContent(id, name, message, imageBase64 string) error {
	query := `
        UPDATE campaigns
        SET name=$1, message=$2, image_base64=$3, updated_at=NOW()
        WHERE id=$4
    `
	_, err := r.DB.Exec(query, name, message, imageBase64, id)
	return err
}

func (r *CampaignRepository) SetStatus(id, status string) error {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, status, id)
	return err
}

// TransitionStatus flips the campaign status only when the current status is
// in the allowed set. Returns false when the guard did not match.
func (r *CampaignRepository) TransitionStatus(id string, from []string, to string) (bool, error) {
	query := `
        UPDATE campaigns SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status = ANY($3)
    `
	res, err := r.DB.Exec(query, to, id, pq.Array(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClaimDispatching moves the campaign into dispatching while enforcing the
// global invariant: the update only matches when no other campaign currently
// holds the dispatching status.
func (r *CampaignRepository) ClaimDispatching(id string, from []string) (bool, error) {
	query := `
        UPDATE campaigns SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status = ANY($3)
        AND NOT EXISTS (
            SELECT 1 FROM campaigns WHERE status=$1 AND id <> $2
        )
    `
	res, err := r.DB.Exec(query, model.StatusDispatching, id, pq.Array(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteCascade removes the campaign and everything hanging off it in one
// transaction: sends, history, daily limits, then the campaign row.
func (r *CampaignRepository) DeleteCascade(id string) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM sends WHERE campaign_id=$1`,
		`DELETE FROM customer_history WHERE campaign_id=$1`,
		`DELETE FROM daily_limits WHERE campaign_id=$1`,
		`DELETE FROM campaigns WHERE id=$1`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt, id); err != nil {
			return fmt.Errorf("cascade delete of campaign %s failed: %w", id, err)
		}
	}
	return tx.Commit()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
