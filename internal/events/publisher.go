// Package events publishes terminal booking outcomes on NATS for downstream
// consumers (analytics, callback notifications). Publishing is best-effort
// and never fails the request.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/example/centralino/internal/booking"
)

const (
	SubjectConfirmed = "bookings.confirmed"
	SubjectFailed    = "bookings.failed"
)

// OutcomeEvent is the JSON payload published per terminal outcome.
type OutcomeEvent struct {
	TS           time.Time `json:"ts"`
	Phase        string    `json:"phase"`
	Phone        string    `json:"phone,omitempty"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	PartySize    int       `json:"party_size"`
	OK           bool      `json:"ok"`
	Handoff      bool      `json:"handoff,omitempty"`
	SelectedTime string    `json:"selected_time,omitempty"`
	UsedFallback bool      `json:"used_fallback,omitempty"`
	Message      string    `json:"message"`
}

type Publisher struct {
	nc *nats.Conn
}

func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc}, nil
}

func (p *Publisher) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}

// PublishOutcome is nil-safe: a nil publisher drops the event.
func (p *Publisher) PublishOutcome(ctx context.Context, req booking.Request, res booking.Result) {
	if p == nil || p.nc == nil {
		return
	}

	subject := SubjectFailed
	if res.OK {
		subject = SubjectConfirmed
	}

	evt := OutcomeEvent{
		TS:           time.Now().UTC(),
		Phase:        req.Phase,
		Phone:        req.Phone,
		Date:         req.Date,
		Time:         req.Time,
		PartySize:    req.PartySize,
		OK:           res.OK,
		Handoff:      res.Handoff,
		SelectedTime: res.SelectedTime,
		UsedFallback: res.UsedFallback,
		Message:      res.Message,
	}

	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("events: marshal outcome err=%v", err)
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		log.Printf("events: publish subject=%s err=%v", subject, err)
	}
}
