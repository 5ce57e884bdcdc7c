package booking

import "testing"

func slots(values ...string) []OfferedSlot {
	out := make([]OfferedSlot, 0, len(values))
	for _, v := range values {
		out = append(out, OfferedSlot{Value: v + ":00", Text: v})
	}
	return out
}

func TestResolveExactMatch(t *testing.T) {
	offered := slots("19:30", "20:00", "20:30")

	slot, match := Resolve("20:00", offered, 90)
	if match != MatchExact {
		t.Fatalf("match = %v, want MatchExact", match)
	}
	if slot.Value != "20:00:00" {
		t.Errorf("value = %q, want %q", slot.Value, "20:00:00")
	}
}

func TestResolveExactByRawValue(t *testing.T) {
	offered := []OfferedSlot{{Value: "20:00", Text: "Tavolo interno"}}
	slot, match := Resolve("20:00", offered, 90)
	if match != MatchExact || slot.Value != "20:00" {
		t.Fatalf("got (%q, %v), want exact 20:00", slot.Value, match)
	}
}

func TestResolveNearestWithinWindow(t *testing.T) {
	offered := slots("19:30", "21:00")

	slot, match := Resolve("20:00", offered, 90)
	if match != MatchNearest {
		t.Fatalf("match = %v, want MatchNearest", match)
	}
	// 19:30 is 30 minutes away, 21:00 is 60; nearest wins.
	if slot.Value != "19:30:00" {
		t.Errorf("value = %q, want %q", slot.Value, "19:30:00")
	}
}

func TestResolveTieBrokenBySelectorOrder(t *testing.T) {
	offered := slots("19:30", "20:30")

	slot, match := Resolve("20:00", offered, 90)
	if match != MatchNearest || slot.Value != "19:30:00" {
		t.Fatalf("got (%q, %v), want first-encountered 19:30:00", slot.Value, match)
	}
}

func TestResolveOutsideWindow(t *testing.T) {
	// 21:45 is 105 minutes from 20:00, beyond the default 90.
	offered := slots("21:45")

	if _, match := Resolve("20:00", offered, 90); match != MatchNone {
		t.Fatalf("match = %v, want MatchNone", match)
	}
}

func TestResolveInvalidRequestedDegradesToFirst(t *testing.T) {
	offered := slots("19:30", "20:00")

	slot, match := Resolve("boh", offered, 90)
	if match != MatchNearest {
		t.Fatalf("match = %v, want MatchNearest fallback", match)
	}
	if slot.Value != "19:30:00" {
		t.Errorf("value = %q, want first offered", slot.Value)
	}
}

func TestResolveEmptyOffered(t *testing.T) {
	if _, match := Resolve("20:00", nil, 90); match != MatchNone {
		t.Fatalf("match = %v, want MatchNone", match)
	}
}

func TestClosestExcludesRejectedSlot(t *testing.T) {
	offered := slots("19:30", "20:00", "20:30")

	slot, ok := Closest("20:00", offered, "20:00:00", 90)
	if !ok {
		t.Fatal("expected an alternative slot")
	}
	// 19:30 and 20:30 are both 30 minutes away; first in order wins.
	if slot.Value != "19:30:00" {
		t.Errorf("value = %q, want %q", slot.Value, "19:30:00")
	}
}

func TestClosestNoAlternativeWithinWindow(t *testing.T) {
	offered := slots("20:00", "22:00")

	if _, ok := Closest("20:00", offered, "20:00:00", 90); ok {
		t.Fatal("expected no alternative within the window")
	}
}

func TestClosestAllExcluded(t *testing.T) {
	offered := slots("20:00")

	if _, ok := Closest("20:00", offered, "20:00:00", 90); ok {
		t.Fatal("expected no candidate when the only slot is excluded")
	}
}
