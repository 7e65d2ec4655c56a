package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ingressos/disparador-backend/internal/model"
)

// CustomerRepositoryInterface defines methods used by services
type CustomerRepositoryInterface interface {
	GetByID(id string) (*model.Customer, error)
	GetByIDs(ids []string) ([]*model.Customer, error)
	ListWithPhone() ([]*model.Customer, error)
	Create(c *model.Customer) error
}

// CustomerRepository is the concrete implementation
type CustomerRepository struct {
	DB *sql.DB
}

func (r *CustomerRepository) GetByID(id string) (*model.Customer, error) {
	query := `
        SELECT id, name, phone, email, created_at
        FROM customers
        WHERE id = $1
    `
	var c model.Customer
	if err := r.DB.QueryRow(query, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) GetByIDs(ids []string) ([]*model.Customer, error) {
	customers := make([]*model.Customer, 0, len(ids))
	for _, id := range ids {
		c, err := r.GetByID(id)
		if err != nil {
			return nil, err
		}
		if c == nil {
			continue
		}
		customers = append(customers, c)
	}
	return customers, nil
}

// ListWithPhone returns the recipient pool: customers with a delivery
// address, in a stable order.
func (r *CustomerRepository) ListWithPhone() ([]*model.Customer, error) {
	query := `
        SELECT id, name, phone, email, created_at
        FROM customers
        WHERE phone <> ''
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []*model.Customer{}
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, &c)
	}
	return customers, rows.Err()
}

func (r *CustomerRepository) Create(c *model.Customer) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now()
	query := `
        INSERT INTO customers (id, name, phone, email, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := r.DB.Exec(query, c.ID, c.Name, c.Phone, c.Email, c.CreatedAt)
	return err
}

var _ CustomerRepositoryInterface = (*CustomerRepository)(nil)
