package store

import (
	"context"
	"errors"
	"time"

	"github.com/example/centralino/internal/db"
)

// Customer is the remembered profile for a caller phone number. Phone is
// digits-only; there is no other uniqueness constraint.
type Customer struct {
	Phone         string
	Name          string
	Email         string
	LastVenue     string
	LastPartySize int
	LastSeats     int
	LastNote      string
	UpdatedAt     time.Time
}

type Customers struct{ db *db.DB }

func NewCustomers(d *db.DB) *Customers { return &Customers{db: d} }

// GetByPhone returns nil without error when the phone is unknown.
func (r *Customers) GetByPhone(ctx context.Context, phone string) (*Customer, error) {
	var c Customer
	err := r.db.QueryRow(ctx, `
SELECT phone,name,email,last_venue,last_party_size,last_seats,last_note,updated_at
FROM customers
WHERE phone=$1`, phone).
		Scan(&c.Phone, &c.Name, &c.Email, &c.LastVenue, &c.LastPartySize, &c.LastSeats, &c.LastNote, &c.UpdatedAt)
	if err != nil {
		if errors.Is(db.WrapNotFound(err), db.ErrNotFound) {
			return nil, nil
		}
		return nil, db.WrapNotFound(err)
	}
	return &c, nil
}

func (r *Customers) Upsert(ctx context.Context, c Customer) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	return r.db.Exec(ctx, `
INSERT INTO customers(phone,name,email,last_venue,last_party_size,last_seats,last_note,updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT(phone) DO UPDATE SET
  name=excluded.name,
  email=excluded.email,
  last_venue=excluded.last_venue,
  last_party_size=excluded.last_party_size,
  last_seats=excluded.last_seats,
  last_note=excluded.last_note,
  updated_at=excluded.updated_at`,
		c.Phone, c.Name, c.Email, c.LastVenue, c.LastPartySize, c.LastSeats, c.LastNote, c.UpdatedAt)
}

func (r *Customers) Recent(ctx context.Context, limit int) ([]Customer, error) {
	rows, err := r.db.Query(ctx, `
SELECT phone,name,email,last_venue,last_party_size,last_seats,last_note,updated_at
FROM customers
ORDER BY updated_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.Phone, &c.Name, &c.Email, &c.LastVenue, &c.LastPartySize, &c.LastSeats, &c.LastNote, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
