package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	hhmmRe     = regexp.MustCompile(`^\d{2}:\d{2}$`)
	hourOnlyRe = regexp.MustCompile(`^\d{1,2}$`)
	looseRe    = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Meal is the meal period toggle the target form exposes.
type Meal string

const (
	MealLunch  Meal = "PRANZO"
	MealDinner Meal = "CENA"
)

// Hours at or after this boundary book the dinner service. The boundary is
// the target site's, not ours.
const dinnerCutoffHour = 17

// NormalizeTime canonicalizes a caller-supplied time to zero-padded HH:MM.
// Descriptive words ("ore", "alle") and the separators "." and "," are
// tolerated. Anything that still does not parse is returned as-is; Validate
// rejects it later.
func NormalizeTime(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "ore", "")
	s = strings.ReplaceAll(s, "alle", "")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", ":")
	s = strings.ReplaceAll(s, ",", ":")

	if hourOnlyRe.MatchString(s) {
		h, _ := strconv.Atoi(s)
		return fmt.Sprintf("%02d:00", h)
	}
	if looseRe.MatchString(s) {
		parts := strings.SplitN(s, ":", 2)
		h, _ := strconv.Atoi(parts[0])
		m, _ := strconv.Atoi(parts[1])
		return fmt.Sprintf("%02d:%02d", h, m)
	}
	return s
}

// IsHHMM reports whether s is a strict zero-padded HH:MM.
func IsHHMM(s string) bool { return hhmmRe.MatchString(s) }

// IsDate reports whether s is a strict YYYY-MM-DD.
func IsDate(s string) bool { return dateRe.MatchString(s) }

// TimeToMinutes converts a strict HH:MM to minutes since midnight.
// ok is false when the string does not parse.
func TimeToMinutes(hhmm string) (int, bool) {
	if !hhmmRe.MatchString(hhmm) {
		return 0, false
	}
	h, _ := strconv.Atoi(hhmm[:2])
	m, _ := strconv.Atoi(hhmm[3:])
	return h*60 + m, true
}

// MealFor derives the meal period from the requested hour. Unparseable input
// defaults to dinner, matching the target's own default.
func MealFor(hhmm string) Meal {
	parts := strings.SplitN(hhmm, ":", 2)
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return MealDinner
	}
	if h < dinnerCutoffHour {
		return MealLunch
	}
	return MealDinner
}

// DateKind classifies a booking date relative to now.
type DateKind int

const (
	DateOther DateKind = iota
	DateToday
	DateTomorrow
)

// DateKindOf classifies a YYYY-MM-DD date against the reference time.
// Unparseable dates classify as DateOther.
func DateKindOf(date string, now time.Time) DateKind {
	d, err := time.ParseInLocation("2006-01-02", date, now.Location())
	if err != nil {
		return DateOther
	}
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, now.Location())
	switch {
	case d.Equal(today):
		return DateToday
	case d.Equal(today.AddDate(0, 0, 1)):
		return DateTomorrow
	default:
		return DateOther
	}
}
