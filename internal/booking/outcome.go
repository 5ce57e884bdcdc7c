package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// OutcomeKind classifies the target's post-submit response for one attempt.
type OutcomeKind int

const (
	// OutcomeConfirmed is the exact success token.
	OutcomeConfirmed OutcomeKind = iota
	// OutcomeSlotFull is a rejection explainable as "no capacity" and is the
	// only outcome eligible for an automatic retry with an alternate slot.
	OutcomeSlotFull
	// OutcomeRejected is any other rejection text.
	OutcomeRejected
)

// Outcome is the classified result of a single submission.
type Outcome struct {
	Kind OutcomeKind
	Text string
}

const successToken = "OK"

// Phrases the target uses when a slot has no remaining capacity.
var fullSlotPhrases = []string{
	"pieno",
	"sold out",
	"non disponibile",
	"esaur",
	"completo",
	"nessuna disponibil",
	"turno completo",
}

// ClassifyResponse maps the trimmed response body of the target's
// reservation endpoint to an outcome.
func ClassifyResponse(text string) Outcome {
	text = strings.TrimSpace(text)
	if text == successToken {
		return Outcome{Kind: OutcomeConfirmed, Text: text}
	}
	lower := strings.ToLower(text)
	for _, p := range fullSlotPhrases {
		if strings.Contains(lower, p) {
			return Outcome{Kind: OutcomeSlotFull, Text: text}
		}
	}
	return Outcome{Kind: OutcomeRejected, Text: text}
}

var (
	// ErrNoConfirmation means no response from the reservation endpoint was
	// observed within the poll budget. Never assumed to be a success.
	ErrNoConfirmation = errors.New("prenotazione NON confermata: nessuna risposta dal sito")

	// ErrTimeUnavailable means the time-selection fallback chain exhausted
	// every option, including the nearest computed match.
	ErrTimeUnavailable = errors.New("orario non disponibile")
)

// RejectedError carries the target's raw rejection text for diagnostics.
type RejectedError struct {
	Text string
}

func (e *RejectedError) Error() string { return "errore dal sito: " + e.Text }

// NoAlternativeError means the slot was full and no other offered slot lies
// within the tolerance window.
type NoAlternativeError struct {
	WindowMin int
	Text      string
}

func (e *NoAlternativeError) Error() string {
	return fmt.Sprintf("slot pieno e nessun orario alternativo entro %d min: %s", e.WindowMin, e.Text)
}

// Result is the caller-facing terminal state of a request. JSON field names
// follow the voice front end's contract.
type Result struct {
	OK           bool     `json:"ok"`
	Message      string   `json:"message"`
	Fase         string   `json:"fase,omitempty"`
	Venue        string   `json:"sede,omitempty"`
	Meal         string   `json:"pasto,omitempty"`
	Date         string   `json:"data,omitempty"`
	Requested    string   `json:"orario_richiesto,omitempty"`
	PartySize    int      `json:"pax,omitempty"`
	Times        []string `json:"orari,omitempty"`
	SelectedTime string   `json:"selected_time,omitempty"`
	UsedFallback bool     `json:"fallback_time,omitempty"`
	Handoff      bool     `json:"handoff,omitempty"`
	Err          string   `json:"error,omitempty"`
	Screenshot   string   `json:"screenshot,omitempty"`
}

// MarshalJSON distinguishes "no offered slots" (empty list, key present) from
// "not an availability response" (nil, key omitted). omitempty alone drops
// both.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	aux := struct {
		plain
		Times json.RawMessage `json:"orari,omitempty"`
	}{plain: plain(r)}
	if r.Times != nil {
		data, err := json.Marshal(r.Times)
		if err != nil {
			return nil, err
		}
		aux.Times = data
	}
	return json.Marshal(aux)
}
