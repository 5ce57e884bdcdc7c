// Package engine drives the multi-step reservation form: step sequencing,
// time resolution, confirmation listening and bounded retries.
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/example/centralino/internal/booking"
	"github.com/example/centralino/internal/store"
)

// Options is the orchestration configuration, injected explicitly so tests
// can run with deterministic values.
type Options struct {
	VenueName    string
	DefaultEmail string

	// TimeWindowMin is the maximum minute distance for a nearest-match
	// substitution.
	TimeWindowMin int

	// MaxSlotRetries bounds pre-submit selection retries for transient UI
	// failures (option list not yet populated).
	MaxSlotRetries int

	// MaxSubmitRetries bounds full-restart retries after a slot-full
	// rejection. 1 means two total attempts.
	MaxSubmitRetries int

	// Confirmation poll budget: ConfirmPolls intervals of ConfirmPoll each.
	ConfirmPoll  time.Duration
	ConfirmPolls int

	// DisableFinalSubmit drives the form through the contact step and stops
	// short of the final click, for dry-run testing.
	DisableFinalSubmit bool
}

func (o Options) confirmBudget() time.Duration {
	polls := o.ConfirmPolls
	if polls <= 0 {
		polls = 12
	}
	poll := o.ConfirmPoll
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return time.Duration(polls) * poll
}

// AuditLog appends one row per terminal attempt outcome.
type AuditLog interface {
	Append(ctx context.Context, rec store.BookingRecord) error
}

// ProfileStore reads and upserts remembered customer profiles by phone.
type ProfileStore interface {
	GetByPhone(ctx context.Context, phone string) (*store.Customer, error)
	Upsert(ctx context.Context, c store.Customer) error
}

// OutcomePublisher broadcasts terminal outcomes to interested consumers.
// Implementations must not fail the request.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, req booking.Request, res booking.Result)
}

type Engine struct {
	opts     Options
	surfaces SurfaceFactory
	audit    AuditLog
	profiles ProfileStore
	events   OutcomePublisher
}

func New(opts Options, surfaces SurfaceFactory, audit AuditLog, profiles ProfileStore, events OutcomePublisher) *Engine {
	return &Engine{opts: opts, surfaces: surfaces, audit: audit, profiles: profiles, events: events}
}

const handoffMessage = "Per tavoli da più di 9 persone serve un operatore. Dimmi quante persone siete e l'orario preferito."

// Process runs one booking request end to end and reports the normalized
// outcome. The request must already be validated.
func (e *Engine) Process(ctx context.Context, req booking.Request) booking.Result {
	if req.NeedsHandoff() {
		res := booking.Result{OK: false, Message: handoffMessage, Handoff: true}
		e.finish(ctx, req, res)
		return res
	}

	// Backfill the remembered email when the caller did not supply one.
	if req.Phone != "" && req.Email == e.opts.DefaultEmail && e.profiles != nil {
		if c, err := e.profiles.GetByPhone(ctx, req.Phone); err == nil && c != nil && strings.Contains(c.Email, "@") {
			req.Email = c.Email
		}
	}

	res := e.run(ctx, req)
	e.finish(ctx, req, res)
	return res
}

func (e *Engine) run(ctx context.Context, req booking.Request) booking.Result {
	s, err := e.surfaces.New(ctx)
	if err != nil {
		return e.failure(ctx, nil, fmt.Errorf("apertura sessione: %w", err))
	}
	defer s.Close()

	meal := booking.MealFor(req.Time)

	if err := e.driveSetup(ctx, s, req, meal); err != nil {
		return e.failure(ctx, s, err)
	}

	if req.Phase == booking.PhaseAvailability {
		times, err := e.availability(ctx, s)
		if err != nil {
			return e.failure(ctx, s, err)
		}
		return booking.Result{
			OK:        true,
			Fase:      "choose_time",
			Venue:     e.opts.VenueName,
			Meal:      string(meal),
			Date:      req.Date,
			Requested: req.Time,
			PartySize: req.PartySize,
			Times:     times,
		}
	}

	var (
		selected     string
		usedFallback bool
		selErr       error
	)
	attempts := e.opts.MaxSlotRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		selected, usedFallback, selErr = e.selectTime(ctx, s, req.Time)
		if selErr == nil {
			break
		}
	}
	if selErr != nil {
		return e.failure(ctx, s, selErr)
	}

	if err := e.completeForm(ctx, s, req); err != nil {
		return e.failure(ctx, s, err)
	}

	if e.opts.DisableFinalSubmit {
		return booking.Result{
			OK:           true,
			Message:      "FORM COMPILATO (test mode, submit disattivato)",
			SelectedTime: hhmm(selected),
			UsedFallback: usedFallback,
		}
	}

	res, err := e.submitLoop(ctx, s, req, meal, selected, usedFallback)
	if err != nil {
		return e.failure(ctx, s, err)
	}
	return res
}

// driveSetup executes steps 1-4: party size, accessory count, date, meal.
func (e *Engine) driveSetup(ctx context.Context, s Surface, req booking.Request, meal booking.Meal) error {
	if err := s.Open(ctx); err != nil {
		return fmt.Errorf("apertura modulo: %w", err)
	}
	if err := s.SelectPartySize(ctx, req.PartySize); err != nil {
		return fmt.Errorf("selezione persone: %w", err)
	}
	if err := s.SetAccessoryCount(ctx, req.Seats); err != nil {
		return fmt.Errorf("selezione seggiolini: %w", err)
	}
	if err := s.SetDate(ctx, req.Date); err != nil {
		return fmt.Errorf("selezione data: %w", err)
	}
	if err := s.SelectMeal(ctx, meal); err != nil {
		return fmt.Errorf("selezione pasto: %w", err)
	}
	return nil
}

// completeForm executes steps 6-8: note, confirm, contact details.
func (e *Engine) completeForm(ctx context.Context, s Surface, req booking.Request) error {
	if err := s.FillNote(ctx, req.Note); err != nil {
		return fmt.Errorf("nota: %w", err)
	}
	if err := s.ConfirmDetails(ctx); err != nil {
		return fmt.Errorf("conferma dati: %w", err)
	}
	if err := s.FillContact(ctx, req.Contact(e.opts.DefaultEmail)); err != nil {
		return fmt.Errorf("dati contatto: %w", err)
	}
	return nil
}

// availability scrapes the offered times as a sorted, deduplicated HH:MM
// list.
func (e *Engine) availability(ctx context.Context, s Surface) ([]string, error) {
	offered, err := s.TimeOptions(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(offered))
	// Non-nil even when empty: "no slots" still renders as a list.
	times := make([]string, 0, len(offered))
	for _, o := range offered {
		t := o.HHMM()
		if !booking.IsHHMM(t) || seen[t] {
			continue
		}
		seen[t] = true
		times = append(times, t)
	}
	sort.Strings(times)
	return times, nil
}

// selectTime applies the requested time to the selector via the fallback
// chain: direct value selection, text lookup, then nearest computed match.
func (e *Engine) selectTime(ctx context.Context, s Surface, requested string) (string, bool, error) {
	wantedVal := requested
	if booking.IsHHMM(requested) {
		wantedVal = requested + ":00"
	}
	if err := s.SelectTimeValue(ctx, wantedVal); err == nil {
		return wantedVal, false, nil
	}
	if got, err := s.SelectTimeByText(ctx, requested); err == nil {
		return got, false, nil
	}

	offered, err := s.TimeOptions(ctx)
	if err != nil {
		return "", false, err
	}
	slot, match := booking.Resolve(requested, offered, e.opts.TimeWindowMin)
	if match == booking.MatchNone {
		return "", false, fmt.Errorf("%w: %s", booking.ErrTimeUnavailable, requested)
	}
	if err := s.SelectTimeValue(ctx, slot.Value); err != nil {
		return "", false, err
	}
	return slot.Value, match == booking.MatchNearest, nil
}

// submitLoop submits the form and classifies the asynchronous confirmation,
// restarting once per slot-full rejection up to MaxSubmitRetries.
func (e *Engine) submitLoop(ctx context.Context, s Surface, req booking.Request, meal booking.Meal, selected string, usedFallback bool) (booking.Result, error) {
	attempts := 0
	for {
		attempts++

		// Arm before clicking so a fast response cannot be missed.
		confirm := s.ArmConfirmation()
		if err := s.Submit(ctx); err != nil {
			return booking.Result{}, fmt.Errorf("invio prenotazione: %w", err)
		}

		text, ok := e.awaitConfirmation(ctx, confirm)
		if !ok {
			return booking.Result{}, booking.ErrNoConfirmation
		}

		out := booking.ClassifyResponse(text)
		switch out.Kind {
		case booking.OutcomeConfirmed:
			e.rememberCustomer(ctx, req)
			msg := fmt.Sprintf("Prenotazione OK: %d pax - %s %s %s - %s %s",
				req.PartySize, e.opts.VenueName, req.Date, hhmm(selected), req.FirstName, req.LastName)
			return booking.Result{
				OK:           true,
				Message:      strings.TrimSpace(msg),
				SelectedTime: hhmm(selected),
				UsedFallback: usedFallback,
			}, nil

		case booking.OutcomeSlotFull:
			if attempts > e.opts.MaxSubmitRetries {
				return booking.Result{}, &booking.RejectedError{Text: out.Text}
			}
			offered, err := s.TimeOptions(ctx)
			if err != nil {
				return booking.Result{}, err
			}
			next, found := booking.Closest(req.Time, offered, selected, e.opts.TimeWindowMin)
			if !found {
				return booking.Result{}, &booking.NoAlternativeError{WindowMin: e.opts.TimeWindowMin, Text: out.Text}
			}

			// The form loses intermediate state on rejection; restart from a
			// fresh navigation with the alternate slot.
			if err := e.driveSetup(ctx, s, req, meal); err != nil {
				return booking.Result{}, err
			}
			if err := s.SelectTimeValue(ctx, next.Value); err != nil {
				return booking.Result{}, err
			}
			selected = next.Value
			usedFallback = true
			if err := e.completeForm(ctx, s, req); err != nil {
				return booking.Result{}, err
			}

		default:
			return booking.Result{}, &booking.RejectedError{Text: out.Text}
		}
	}
}

func (e *Engine) awaitConfirmation(ctx context.Context, confirm <-chan string) (string, bool) {
	timer := time.NewTimer(e.opts.confirmBudget())
	defer timer.Stop()
	select {
	case text := <-confirm:
		return text, true
	case <-timer.C:
		return "", false
	case <-ctx.Done():
		return "", false
	}
}

func (e *Engine) rememberCustomer(ctx context.Context, req booking.Request) {
	if req.Phone == "" || e.profiles == nil {
		return
	}
	c := store.Customer{
		Phone:         req.Phone,
		Name:          strings.TrimSpace(req.FirstName + " " + req.LastName),
		Email:         req.Email,
		LastVenue:     e.opts.VenueName,
		LastPartySize: req.PartySize,
		LastSeats:     req.Seats,
		LastNote:      req.Note,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := e.profiles.Upsert(ctx, c); err != nil {
		log.Printf("engine: customer upsert failed phone=%s err=%v", req.Phone, err)
	}
}

// failure maps any orchestration error to the generic caller-facing message,
// preserving the raw detail for the audit log and capturing a best-effort
// screenshot.
func (e *Engine) failure(ctx context.Context, s Surface, err error) booking.Result {
	res := booking.Result{
		OK:      false,
		Message: "Sto verificando la prenotazione, un attimo.",
		Err:     err.Error(),
	}
	if s != nil {
		if path, serr := s.Screenshot(ctx); serr == nil && path != "" {
			res.Screenshot = path
		}
	}
	return res
}

// finish appends the audit row and publishes the outcome event. Successful
// availability checks are not audited: only attempts that could book are.
func (e *Engine) finish(ctx context.Context, req booking.Request, res booking.Result) {
	if e.events != nil {
		e.events.PublishOutcome(ctx, req, res)
	}
	if e.audit == nil || (req.Phase == booking.PhaseAvailability && res.OK) {
		return
	}
	msg := res.Message
	if res.Err != "" {
		// Keep the raw target-site message in the audit trail even when the
		// caller sees a generic one.
		msg = res.Err
	}
	rec := store.BookingRecord{
		Phone:     req.Phone,
		Name:      strings.TrimSpace(req.FirstName + " " + req.LastName),
		Email:     req.Email,
		Venue:     e.opts.VenueName,
		Date:      req.Date,
		Time:      req.Time,
		PartySize: req.PartySize,
		Seats:     req.Seats,
		Note:      req.Note,
		OK:        res.OK,
		Message:   msg,
	}
	if res.SelectedTime != "" {
		rec.Time = res.SelectedTime
	}
	if err := e.audit.Append(ctx, rec); err != nil {
		log.Printf("engine: audit append failed err=%v", err)
	}
}

func hhmm(v string) string {
	if len(v) > 5 {
		return v[:5]
	}
	return v
}
