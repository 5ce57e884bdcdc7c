// Package store holds the Postgres repositories: the append-only booking
// audit and the phone-keyed customer profiles.
package store

import (
	"context"
	"time"

	"github.com/example/centralino/internal/db"
)

// BookingRecord is one terminal attempt outcome. Immutable after insertion.
type BookingRecord struct {
	ID        int64
	TS        time.Time
	Phone     string
	Name      string
	Email     string
	Venue     string
	Date      string
	Time      string
	PartySize int
	Seats     int
	Note      string
	OK        bool
	Message   string
}

// Stats summarizes the audit log for the admin dashboard.
type Stats struct {
	Total     int     `json:"total"`
	OK        int     `json:"ok"`
	OKRatePct float64 `json:"ok_rate_pct"`
}

type Bookings struct{ db *db.DB }

func NewBookings(d *db.DB) *Bookings { return &Bookings{db: d} }

func (r *Bookings) Append(ctx context.Context, rec BookingRecord) error {
	msg := rec.Message
	if len(msg) > 5000 {
		msg = msg[:5000]
	}
	return r.db.Exec(ctx, `
INSERT INTO bookings(phone,name,email,venue,booking_date,booking_time,party_size,seats,note,ok,message)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		rec.Phone, rec.Name, rec.Email, rec.Venue, rec.Date, rec.Time, rec.PartySize, rec.Seats, rec.Note, rec.OK, msg)
}

func (r *Bookings) Recent(ctx context.Context, limit int) ([]BookingRecord, error) {
	rows, err := r.db.Query(ctx, `
SELECT id,ts,phone,name,email,venue,booking_date,booking_time,party_size,seats,note,ok,message
FROM bookings
ORDER BY id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BookingRecord
	for rows.Next() {
		var b BookingRecord
		if err := rows.Scan(&b.ID, &b.TS, &b.Phone, &b.Name, &b.Email, &b.Venue, &b.Date, &b.Time,
			&b.PartySize, &b.Seats, &b.Note, &b.OK, &b.Message); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Bookings) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(CASE WHEN ok THEN 1 ELSE 0 END), 0) FROM bookings`).
		Scan(&s.Total, &s.OK)
	if err != nil {
		return Stats{}, db.WrapNotFound(err)
	}
	if s.Total > 0 {
		s.OKRatePct = float64(s.OK) / float64(s.Total) * 100.0
	}
	return s, nil
}
