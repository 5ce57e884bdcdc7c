package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/example/centralino/internal/booking"
	redisclient "github.com/example/centralino/internal/redis"
	"github.com/example/centralino/internal/store"
)

const lockBusyMessage = "C'è già una prenotazione in corso per questo numero, riprova tra poco."

func (s *Server) handleBookTable(w http.ResponseWriter, r *http.Request) {
	var p booking.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, booking.Result{OK: false, Message: "Corpo JSON non valido."})
		return
	}

	req := booking.FromPayload(p, s.DefaultEmail)

	if err := req.Validate(); err != nil {
		var verr *booking.ValidationError
		msg := "Richiesta non valida."
		if errors.As(err, &verr) {
			msg = verr.Message
		}
		s.auditValidationFailure(r, req, msg)
		writeJSON(w, http.StatusOK, booking.Result{OK: false, Message: msg})
		return
	}

	var res booking.Result
	run := func(ctx context.Context) error {
		res = s.Engine.Process(ctx, req)
		return nil
	}
	var err error
	if s.Locker != nil {
		err = s.Locker.WithPhoneLock(r.Context(), req.Phone, run)
	} else {
		err = run(r.Context())
	}
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		writeJSON(w, http.StatusConflict, booking.Result{OK: false, Message: lockBusyMessage})
		return
	}
	if err != nil {
		log.Printf("web: booking lock err=%v request_id=%s", err, GetRequestID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, booking.Result{OK: false, Message: "Errore interno, riprova."})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// auditValidationFailure records rejected requests too, so the dashboard
// shows what callers actually send.
func (s *Server) auditValidationFailure(r *http.Request, req booking.Request, msg string) {
	if s.Bookings == nil {
		return
	}
	rec := store.BookingRecord{
		Phone:     req.Phone,
		Name:      strings.TrimSpace(req.FirstName + " " + req.LastName),
		Email:     req.Email,
		Venue:     s.VenueName,
		Date:      req.Date,
		Time:      req.Time,
		PartySize: req.PartySize,
		Seats:     req.Seats,
		Note:      req.Note,
		OK:        false,
		Message:   msg,
	}
	if err := s.Bookings.Append(r.Context(), rec); err != nil {
		log.Printf("web: audit append failed err=%v", err)
	}
}
