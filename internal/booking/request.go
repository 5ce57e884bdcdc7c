package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	PhaseAvailability = "availability"
	PhaseBook         = "book"

	// Parties above this size are routed to a human operator.
	MaxAutomatedParty = 9

	MaxPartySize  = 20
	MaxSeats      = 5
	MaxNoteLength = 250
	MinPhoneDigit = 6
)

var (
	nonDigitRe   = regexp.MustCompile(`[^\d]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Payload is the wire shape of a booking request as the voice front end
// sends it. Numeric fields arrive as numbers or free-text strings, and the
// note travels under either "note" or "nota".
type Payload struct {
	Fase       string `json:"fase"`
	Nome       string `json:"nome"`
	Cognome    string `json:"cognome"`
	Email      string `json:"email"`
	Telefono   string `json:"telefono"`
	Sede       string `json:"sede"`
	Data       string `json:"data"`
	Orario     string `json:"orario"`
	Persone    any    `json:"persone"`
	Seggiolini any    `json:"seggiolini"`
	Note       string `json:"note"`
	Nota       string `json:"nota"`
}

// Request is a normalized booking request, immutable after Validate.
type Request struct {
	Phase     string
	Date      string // YYYY-MM-DD
	Time      string // HH:MM
	PartySize int
	Seats     int // seating accessories (high chairs)
	FirstName string
	LastName  string
	Email     string
	Phone     string // digits only
	Note      string
}

// FromPayload coerces a wire payload into a normalized Request.
// defaultEmail backfills a missing email address.
func FromPayload(p Payload, defaultEmail string) Request {
	phase := strings.ToLower(strings.TrimSpace(p.Fase))
	if phase == "" {
		phase = PhaseBook
	}

	note := p.Note
	if note == "" {
		note = p.Nota
	}
	note = whitespaceRe.ReplaceAllString(strings.TrimSpace(note), " ")
	// Clamp by characters, not bytes: accented notes must stay valid UTF-8.
	if r := []rune(note); len(r) > MaxNoteLength {
		note = string(r[:MaxNoteLength])
	}

	seats := coerceInt(p.Seggiolini)
	if seats < 0 {
		seats = 0
	}
	if seats > MaxSeats {
		seats = MaxSeats
	}

	email := strings.TrimSpace(p.Email)
	if email == "" {
		email = defaultEmail
	}

	return Request{
		Phase:     phase,
		Date:      strings.TrimSpace(p.Data),
		Time:      NormalizeTime(p.Orario),
		PartySize: coerceInt(p.Persone),
		Seats:     seats,
		FirstName: strings.TrimSpace(p.Nome),
		LastName:  strings.TrimSpace(p.Cognome),
		Email:     email,
		Phone:     nonDigitRe.ReplaceAllString(p.Telefono, ""),
		Note:      note,
	}
}

// coerceInt extracts an int from a JSON number or a free-text string such as
// "4 persone". Anything else yields zero.
func coerceInt(v any) int {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return int(n)
	case int:
		return n
	case string:
		digits := nonDigitRe.ReplaceAllString(n, "")
		if digits == "" {
			return 0
		}
		i, err := strconv.Atoi(digits)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// ValidationError is a malformed-input rejection, raised before any UI
// interaction and never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks the normalized request against the inbound contract.
// User-facing messages are in the caller's language.
func (r Request) Validate() error {
	if !IsDate(r.Date) {
		return &ValidationError{Message: fmt.Sprintf("Formato data non valido: %s. Usa YYYY-MM-DD.", r.Date)}
	}
	if !IsHHMM(r.Time) {
		return &ValidationError{Message: fmt.Sprintf("Formato orario non valido: %s. Usa HH:MM.", r.Time)}
	}
	if r.PartySize < 1 || r.PartySize > MaxPartySize {
		return &ValidationError{Message: fmt.Sprintf("Numero persone non valido: %d.", r.PartySize)}
	}
	if r.Phase != PhaseAvailability && r.Phase != PhaseBook {
		return &ValidationError{Message: fmt.Sprintf("Valore fase non valido: %s. Usa \"availability\" oppure \"book\".", r.Phase)}
	}
	if r.Phase == PhaseBook {
		if r.FirstName == "" {
			return &ValidationError{Message: "Nome mancante."}
		}
		if len(r.Phone) < MinPhoneDigit {
			return &ValidationError{Message: "Telefono mancante o non valido."}
		}
	}
	return nil
}

// NeedsHandoff reports whether the party is too large for automation.
func (r Request) NeedsHandoff() bool { return r.PartySize > MaxAutomatedParty }

// Contact is the subset of the request written into the target's contact
// form. Blank surname and email fall back to placeholders before filling.
type Contact struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Contact builds the contact-form values, applying the target's placeholder
// defaults for blank fields.
func (r Request) Contact(defaultEmail string) Contact {
	first := r.FirstName
	if first == "" {
		first = "Cliente"
	}
	last := r.LastName
	if last == "" {
		last = "Cliente"
	}
	email := r.Email
	if email == "" {
		email = defaultEmail
	}
	return Contact{FirstName: first, LastName: last, Email: email, Phone: r.Phone}
}
