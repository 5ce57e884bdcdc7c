package booking

import "strings"

// OfferedSlot is one entry scraped from the target's time selector. Value is
// opaque and must round-trip back to the selector unmodified; Text is the
// visible label and always contains an HH:MM.
type OfferedSlot struct {
	Value string
	Text  string
}

// HHMM extracts the slot's time component. The target encodes values as
// HH:MM or HH:MM:SS, so the first five characters are the time.
func (s OfferedSlot) HHMM() string {
	v := s.Value
	if v == "" {
		v = s.Text
	}
	if len(v) > 5 {
		v = v[:5]
	}
	return v
}

// Match classifies the outcome of resolving a requested time against the
// offered slots.
type Match int

const (
	MatchNone Match = iota
	MatchExact
	MatchNearest
)

// Resolve picks the offered slot for a requested HH:MM.
//
// An exact match is a slot whose value equals the requested time (with or
// without a trailing seconds component) or whose label contains it; the first
// such slot wins. Otherwise the slot with the minimum minute distance wins,
// ties broken by selector order, unless that minimum exceeds windowMin.
//
// A syntactically invalid requested time degrades to the first offered slot,
// reported as a nearest match so callers see the substitution.
func Resolve(requested string, offered []OfferedSlot, windowMin int) (OfferedSlot, Match) {
	if len(offered) == 0 {
		return OfferedSlot{}, MatchNone
	}

	target, ok := TimeToMinutes(requested)
	if !ok {
		return offered[0], MatchNearest
	}

	for _, s := range offered {
		if s.Value == requested || s.Value == requested+":00" || strings.Contains(s.Text, requested) {
			return s, MatchExact
		}
	}

	best, found := nearest(target, offered, "")
	if !found {
		return OfferedSlot{}, MatchNone
	}
	m, _ := TimeToMinutes(best.HHMM())
	if abs(m-target) > windowMin {
		return OfferedSlot{}, MatchNone
	}
	return best, MatchNearest
}

// Closest returns the offered slot nearest to the requested time, skipping
// the slot with excludeValue (the one the site just rejected). ok is false
// when no candidate lies within windowMin.
func Closest(requested string, offered []OfferedSlot, excludeValue string, windowMin int) (OfferedSlot, bool) {
	candidates := make([]OfferedSlot, 0, len(offered))
	for _, s := range offered {
		if s.Value != excludeValue {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return OfferedSlot{}, false
	}

	target, ok := TimeToMinutes(requested)
	if !ok {
		return candidates[0], true
	}

	best, found := nearest(target, candidates, excludeValue)
	if !found {
		return OfferedSlot{}, false
	}
	m, _ := TimeToMinutes(best.HHMM())
	if abs(m-target) > windowMin {
		return OfferedSlot{}, false
	}
	return best, true
}

func nearest(target int, offered []OfferedSlot, excludeValue string) (OfferedSlot, bool) {
	var best OfferedSlot
	bestDelta := -1
	for _, s := range offered {
		if excludeValue != "" && s.Value == excludeValue {
			continue
		}
		m, ok := TimeToMinutes(s.HHMM())
		if !ok {
			continue
		}
		if d := abs(m - target); bestDelta < 0 || d < bestDelta {
			bestDelta = d
			best = s
		}
	}
	return best, bestDelta >= 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
