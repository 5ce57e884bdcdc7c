package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/centralino/internal/booking"
	"github.com/example/centralino/internal/store"
)

// fakeSurface scripts the remote form: offered slots, queued confirmation
// responses (one per submit, "" meaning no signal), and transient selection
// failures.
type fakeSurface struct {
	options   []booking.OfferedSlot
	responses []string

	transientSelectFailures int

	opens    int
	submits  int
	selected []string
	contacts []booking.Contact
	notes    []string

	conf chan string
}

func (f *fakeSurface) Open(ctx context.Context) error {
	f.opens++
	return nil
}

func (f *fakeSurface) SelectPartySize(ctx context.Context, n int) error     { return nil }
func (f *fakeSurface) SetAccessoryCount(ctx context.Context, n int) error   { return nil }
func (f *fakeSurface) SetDate(ctx context.Context, date string) error       { return nil }
func (f *fakeSurface) SelectMeal(ctx context.Context, m booking.Meal) error { return nil }

func (f *fakeSurface) TimeOptions(ctx context.Context) ([]booking.OfferedSlot, error) {
	return f.options, nil
}

func (f *fakeSurface) SelectTimeValue(ctx context.Context, value string) error {
	if f.transientSelectFailures > 0 {
		f.transientSelectFailures--
		return ErrOptionNotFound
	}
	for _, o := range f.options {
		if o.Value == value {
			f.selected = append(f.selected, value)
			return nil
		}
	}
	return ErrOptionNotFound
}

func (f *fakeSurface) SelectTimeByText(ctx context.Context, hhmm string) (string, error) {
	for _, o := range f.options {
		if strings.Contains(o.Text, hhmm) {
			f.selected = append(f.selected, o.Value)
			return o.Value, nil
		}
	}
	return "", ErrOptionNotFound
}

func (f *fakeSurface) FillNote(ctx context.Context, note string) error {
	f.notes = append(f.notes, note)
	return nil
}

func (f *fakeSurface) ConfirmDetails(ctx context.Context) error { return nil }

func (f *fakeSurface) FillContact(ctx context.Context, c booking.Contact) error {
	f.contacts = append(f.contacts, c)
	return nil
}

func (f *fakeSurface) ArmConfirmation() <-chan string {
	f.conf = make(chan string, 1)
	return f.conf
}

func (f *fakeSurface) Submit(ctx context.Context) error {
	f.submits++
	if len(f.responses) > 0 {
		r := f.responses[0]
		f.responses = f.responses[1:]
		if r != "" {
			f.conf <- r
		}
	}
	return nil
}

func (f *fakeSurface) Screenshot(ctx context.Context) (string, error) { return "", nil }
func (f *fakeSurface) Close()                                         {}

type fakeFactory struct {
	surface  *fakeSurface
	newCalls int
}

func (f *fakeFactory) New(ctx context.Context) (Surface, error) {
	f.newCalls++
	return f.surface, nil
}

type fakeAudit struct{ records []store.BookingRecord }

func (f *fakeAudit) Append(ctx context.Context, rec store.BookingRecord) error {
	f.records = append(f.records, rec)
	return nil
}

type fakeProfiles struct {
	byPhone map[string]*store.Customer
	upserts []store.Customer
}

func (f *fakeProfiles) GetByPhone(ctx context.Context, phone string) (*store.Customer, error) {
	return f.byPhone[phone], nil
}

func (f *fakeProfiles) Upsert(ctx context.Context, c store.Customer) error {
	f.upserts = append(f.upserts, c)
	return nil
}

const testDefaultEmail = "default@prenotazioni.com"

func testOptions() Options {
	return Options{
		VenueName:        "Dar Bottarolo",
		DefaultEmail:     testDefaultEmail,
		TimeWindowMin:    90,
		MaxSlotRetries:   2,
		MaxSubmitRetries: 1,
		ConfirmPoll:      time.Millisecond,
		ConfirmPolls:     5,
	}
}

func offered(times ...string) []booking.OfferedSlot {
	out := make([]booking.OfferedSlot, 0, len(times))
	for _, t := range times {
		out = append(out, booking.OfferedSlot{Value: t + ":00", Text: t})
	}
	return out
}

func bookRequest() booking.Request {
	return booking.Request{
		Phase:     booking.PhaseBook,
		Date:      "2025-03-10",
		Time:      "20:00",
		PartySize: 4,
		FirstName: "Mario",
		LastName:  "Rossi",
		Email:     testDefaultEmail,
		Phone:     "3331234567",
	}
}

func newTestEngine(opts Options, s *fakeSurface) (*Engine, *fakeFactory, *fakeAudit, *fakeProfiles) {
	factory := &fakeFactory{surface: s}
	audit := &fakeAudit{}
	profiles := &fakeProfiles{byPhone: map[string]*store.Customer{}}
	return New(opts, factory, audit, profiles, nil), factory, audit, profiles
}

func TestExactMatchBooksRequestedTime(t *testing.T) {
	s := &fakeSurface{
		options:   offered("19:30", "20:00", "20:30"),
		responses: []string{"OK"},
	}
	e, _, audit, profiles := newTestEngine(testOptions(), s)

	res := e.Process(context.Background(), bookRequest())

	require.True(t, res.OK, "message=%s err=%s", res.Message, res.Err)
	assert.Equal(t, "20:00", res.SelectedTime)
	assert.False(t, res.UsedFallback)
	assert.Equal(t, 1, s.submits)
	assert.Equal(t, 1, s.opens)

	require.Len(t, audit.records, 1)
	assert.True(t, audit.records[0].OK)
	assert.Equal(t, "20:00", audit.records[0].Time)

	require.Len(t, profiles.upserts, 1)
	assert.Equal(t, "3331234567", profiles.upserts[0].Phone)
	assert.Equal(t, "Mario Rossi", profiles.upserts[0].Name)
}

func TestAvailabilityListsSortedDedupedTimes(t *testing.T) {
	s := &fakeSurface{
		options: []booking.OfferedSlot{
			{Value: "20:30:00", Text: "20:30"},
			{Value: "19:30:00", Text: "19:30"},
			{Value: "19:30:01", Text: "19:30"},
			{Value: "junk", Text: "junk"},
		},
	}
	e, _, audit, _ := newTestEngine(testOptions(), s)

	req := bookRequest()
	req.Phase = booking.PhaseAvailability

	res := e.Process(context.Background(), req)
	require.True(t, res.OK)
	assert.Equal(t, []string{"19:30", "20:30"}, res.Times)
	assert.Equal(t, "choose_time", res.Fase)
	assert.Empty(t, audit.records, "successful availability checks are not audited")

	// Same inputs, unchanged target state: same list.
	again := e.Process(context.Background(), req)
	assert.Equal(t, res.Times, again.Times)
}

func TestAvailabilityWithNoSlotsReturnsEmptyList(t *testing.T) {
	s := &fakeSurface{}
	e, _, _, _ := newTestEngine(testOptions(), s)

	req := bookRequest()
	req.Phase = booking.PhaseAvailability

	res := e.Process(context.Background(), req)
	require.True(t, res.OK)
	require.NotNil(t, res.Times, "callers get an empty list, not a missing key")
	assert.Empty(t, res.Times)
}

func TestHandoffSkipsAllUIInteraction(t *testing.T) {
	s := &fakeSurface{}
	e, factory, audit, _ := newTestEngine(testOptions(), s)

	req := bookRequest()
	req.PartySize = 10

	res := e.Process(context.Background(), req)

	assert.False(t, res.OK)
	assert.True(t, res.Handoff)
	assert.Equal(t, 0, factory.newCalls, "no browser session for handoff")
	require.Len(t, audit.records, 1)
	assert.False(t, audit.records[0].OK)
}

func TestSlotFullRetriesWithNearestAlternative(t *testing.T) {
	s := &fakeSurface{
		options:   offered("19:30", "20:00", "20:30"),
		responses: []string{"Turno completo", "OK"},
	}
	e, _, _, _ := newTestEngine(testOptions(), s)

	res := e.Process(context.Background(), bookRequest())

	require.True(t, res.OK, "err=%s", res.Err)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, "19:30", res.SelectedTime, "nearest excluding the rejected slot, first in order on tie")
	assert.Equal(t, 2, s.submits)
	assert.Equal(t, 2, s.opens, "retry restarts from a fresh navigation")
}

func TestRetryBoundStopsAfterSecondSlotFull(t *testing.T) {
	s := &fakeSurface{
		options:   offered("19:30", "20:00", "20:30"),
		responses: []string{"Turno completo", "Turno completo", "OK"},
	}
	e, _, audit, _ := newTestEngine(testOptions(), s)

	res := e.Process(context.Background(), bookRequest())

	assert.False(t, res.OK)
	assert.Equal(t, 2, s.submits, "maxSubmitRetries=1 means exactly two attempts")
	assert.Contains(t, res.Err, "Turno completo")

	require.Len(t, audit.records, 1)
	assert.Contains(t, audit.records[0].Message, "Turno completo", "raw rejection preserved in audit")
}

func TestSlotFullWithNoAlternativeInWindow(t *testing.T) {
	s := &fakeSurface{
		options:   offered("20:00"),
		responses: []string{"completo"},
	}
	e, _, _, _ := newTestEngine(testOptions(), s)

	res := e.Process(context.Background(), bookRequest())

	assert.False(t, res.OK)
	assert.Contains(t, res.Err, "nessun orario alternativo")
	assert.Contains(t, res.Err, "entro 90 min")
	assert.Equal(t, 1, s.submits)
}

func TestNoOfferedTimeWithinWindow(t *testing.T) {
	// 21:45 is 105 minutes from the requested 20:00, beyond the 90 window.
	s := &fakeSurface{options: offered("21:45")}
	e, _, _, _ := newTestEngine(testOptions(), s)

	res := e.Process(context.Background(), bookRequest())

	assert.False(t, res.OK)
	assert.Contains(t, res.Err, "orario non disponibile")
	assert.Equal(t, 0, s.submits)
}

func TestNoConfirmationSignalIsFailure(t *testing.T) {
	s := &fakeSurface{
		options:   offered("20:00"),
		responses: []string{""},
	}
	e, _, audit, _ := newTestEngine(testOptions(), s)

	res := e.Process(context.Background(), bookRequest())

	assert.False(t, res.OK, "a missing signal is never assumed to be a success")
	assert.Contains(t, res.Err, "nessuna risposta")
	require.Len(t, audit.records, 1)
	assert.False(t, audit.records[0].OK)
}

func TestTransientSelectionFailureRetried(t *testing.T) {
	s := &fakeSurface{
		options:                 offered("20:00"),
		responses:               []string{"OK"},
		transientSelectFailures: 1,
	}
	e, _, _, _ := newTestEngine(testOptions(), s)

	res := e.Process(context.Background(), bookRequest())
	require.True(t, res.OK, "err=%s", res.Err)
}

func TestDryRunStopsBeforeSubmit(t *testing.T) {
	opts := testOptions()
	opts.DisableFinalSubmit = true
	s := &fakeSurface{options: offered("20:00")}
	e, _, _, _ := newTestEngine(opts, s)

	res := e.Process(context.Background(), bookRequest())

	require.True(t, res.OK)
	assert.Contains(t, res.Message, "test mode")
	assert.Equal(t, 0, s.submits)
	assert.Equal(t, "20:00", res.SelectedTime)
}

func TestRememberedEmailBackfillsDefault(t *testing.T) {
	s := &fakeSurface{
		options:   offered("20:00"),
		responses: []string{"OK"},
	}
	e, _, _, profiles := newTestEngine(testOptions(), s)
	profiles.byPhone["3331234567"] = &store.Customer{Phone: "3331234567", Email: "mario@example.com"}

	res := e.Process(context.Background(), bookRequest())

	require.True(t, res.OK)
	require.Len(t, s.contacts, 1)
	assert.Equal(t, "mario@example.com", s.contacts[0].Email)
}

func TestInvalidRequestedTimeFallsBackToFirstOffered(t *testing.T) {
	s := &fakeSurface{
		options:   offered("19:30", "20:00"),
		responses: []string{"OK"},
	}
	e, _, _, _ := newTestEngine(testOptions(), s)

	req := bookRequest()
	req.Time = "boh"

	res := e.Process(context.Background(), req)

	require.True(t, res.OK, "err=%s", res.Err)
	assert.Equal(t, "19:30", res.SelectedTime)
	assert.True(t, res.UsedFallback, "the substitution must be visible to the caller")
}
