package booking

import (
	"testing"
	"time"
)

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"20:00", "20:00"},
		{"8:30", "08:30"},
		{"20", "20:00"},
		{"8", "08:00"},
		{"20.30", "20:30"},
		{"20,15", "20:15"},
		{"ore 20:00", "20:00"},
		{"alle 19.45", "19:45"},
		{"  21:00  ", "21:00"},
		{"stasera", "stasera"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTime(tt.in); got != tt.want {
			t.Errorf("NormalizeTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTimeToMinutes(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"00:00", 0, true},
		{"20:00", 1200, true},
		{"19:45", 1185, true},
		{"9:00", 0, false},
		{"20:00:00", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := TimeToMinutes(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("TimeToMinutes(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestMealFor(t *testing.T) {
	tests := []struct {
		in   string
		want Meal
	}{
		{"12:30", MealLunch},
		{"16:59", MealLunch},
		{"17:00", MealDinner},
		{"20:00", MealDinner},
		{"boh", MealDinner},
	}
	for _, tt := range tests {
		if got := MealFor(tt.in); got != tt.want {
			t.Errorf("MealFor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDateKindOf(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want DateKind
	}{
		{"2025-03-10", DateToday},
		{"2025-03-11", DateTomorrow},
		{"2025-03-12", DateOther},
		{"2025-03-09", DateOther},
		{"not-a-date", DateOther},
	}
	for _, tt := range tests {
		if got := DateKindOf(tt.in, now); got != tt.want {
			t.Errorf("DateKindOf(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
