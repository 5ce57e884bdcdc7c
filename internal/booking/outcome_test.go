package booking

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want OutcomeKind
	}{
		{"successToken", "OK", OutcomeConfirmed},
		{"successTokenPadded", "  OK  ", OutcomeConfirmed},
		{"turnoCompleto", "Turno completo, scegli un altro orario", OutcomeSlotFull},
		{"completo", "Orario completo", OutcomeSlotFull},
		{"soldOut", "SOLD OUT", OutcomeSlotFull},
		{"nonDisponibile", "orario non disponibile", OutcomeSlotFull},
		{"esaurito", "Posti esauriti", OutcomeSlotFull},
		{"nessunaDisponibilita", "nessuna disponibilità per la data scelta", OutcomeSlotFull},
		{"otherRejection", "Errore di sistema, riprova più tardi", OutcomeRejected},
		{"lowercaseOkIsNotSuccess", "ok", OutcomeRejected},
		{"empty", "", OutcomeRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ClassifyResponse(tt.in)
			if out.Kind != tt.want {
				t.Errorf("ClassifyResponse(%q).Kind = %v, want %v", tt.in, out.Kind, tt.want)
			}
		})
	}
}

func TestNoAlternativeErrorCitesWindow(t *testing.T) {
	err := &NoAlternativeError{WindowMin: 90, Text: "Turno completo"}
	got := err.Error()
	if !strings.Contains(got, "entro 90 min") {
		t.Errorf("error should cite the window, got %q", got)
	}
	if !strings.Contains(got, "Turno completo") {
		t.Errorf("error should carry the site text, got %q", got)
	}
}

func TestResultMarshalTimes(t *testing.T) {
	empty, err := json.Marshal(Result{OK: true, Fase: "choose_time", Times: []string{}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(empty), `"orari":[]`) {
		t.Errorf("empty availability should render an empty list, got %s", empty)
	}

	booked, err := json.Marshal(Result{OK: true, SelectedTime: "20:00"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(booked), "orari") {
		t.Errorf("booking responses carry no orari key, got %s", booked)
	}
}
