package engine

import (
	"context"
	"errors"

	"github.com/example/centralino/internal/booking"
)

// Surface is the single adapter seam to the remote reservation form. Every
// selector key lives behind it, so a markup change on the target site only
// touches the implementation. Each method must be safely re-entrant: calling
// it again after a page reload reaches the same resulting state.
type Surface interface {
	// Open navigates to the booking form from scratch and waits until it is
	// interactive. Called again to restart an attempt after a rejection.
	Open(ctx context.Context) error

	SelectPartySize(ctx context.Context, n int) error

	// SetAccessoryCount tolerates an already-absent toggle: zero with no
	// visible "no" control is not an error.
	SetAccessoryCount(ctx context.Context, n int) error

	SetDate(ctx context.Context, date string) error
	SelectMeal(ctx context.Context, meal booking.Meal) error

	// TimeOptions scrapes the currently offered slots in selector order.
	TimeOptions(ctx context.Context) ([]booking.OfferedSlot, error)

	// SelectTimeValue selects a slot by its raw value, unmodified.
	SelectTimeValue(ctx context.Context, value string) error

	// SelectTimeByText selects the first slot whose label contains hhmm and
	// returns the raw value that ended up selected. ErrOptionNotFound when
	// no label matches.
	SelectTimeByText(ctx context.Context, hhmm string) (string, error)

	// FillNote is non-critical: a missing note field is swallowed.
	FillNote(ctx context.Context, note string) error

	ConfirmDetails(ctx context.Context) error
	FillContact(ctx context.Context, c booking.Contact) error

	// ArmConfirmation returns a fresh single-use channel that receives the
	// trimmed body of the next reservation-endpoint response. It must be
	// called before Submit so a fast response cannot be missed.
	ArmConfirmation() <-chan string

	Submit(ctx context.Context) error

	// Screenshot captures a best-effort diagnostic snapshot, returning its
	// path.
	Screenshot(ctx context.Context) (string, error)

	Close()
}

// ErrOptionNotFound is returned by Surface selection primitives when the
// wanted option is not present.
var ErrOptionNotFound = errors.New("option not found")

// SurfaceFactory opens one fresh browser session per request.
type SurfaceFactory interface {
	New(ctx context.Context) (Surface, error)
}
