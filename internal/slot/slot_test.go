package slot

import (
	"errors"
	"testing"
)

func TestFromClock(t *testing.T) {
	tests := []struct {
		name   string
		hour   int
		minute int
		want   int
	}{
		{"midnight", 0, 0, 0},
		{"eight am", 8, 0, 32},
		{"eight fifteen", 8, 15, 33},
		{"evening", 19, 30, 78},
		{"end of day", 24, 0, 96},
		{"minute truncated to slot", 9, 14, 36},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromClock(tt.hour, tt.minute); got != tt.want {
				t.Errorf("FromClock(%d, %d) = %d, want %d", tt.hour, tt.minute, got, tt.want)
			}
		})
	}
}

func TestClock_RoundTrip(t *testing.T) {
	for s := 0; s <= SlotsPerDay; s++ {
		h, m := Clock(s)
		if got := FromClock(h, m); got != s {
			t.Errorf("FromClock(Clock(%d)) = %d, want %d", s, got, s)
		}
	}
}

func TestIsValidRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		want       bool
	}{
		{"full day", 0, 96, true},
		{"single slot", 32, 33, true},
		{"empty", 32, 32, false},
		{"inverted", 40, 32, false},
		{"negative start", -1, 10, false},
		{"end past day", 90, 97, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidRange(tt.start, tt.end); got != tt.want {
				t.Errorf("IsValidRange(%d, %d) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestDurationMinutes(t *testing.T) {
	if got := DurationMinutes(32, 78); got != 690 {
		t.Errorf("DurationMinutes(32, 78) = %d, want 690", got)
	}
	if got := DurationMinutes(40, 40); got != 0 {
		t.Errorf("empty range duration = %d, want 0", got)
	}
	if got := DurationMinutes(50, 40); got != 0 {
		t.Errorf("inverted range duration = %d, want 0", got)
	}
}

func TestClamping(t *testing.T) {
	if got := ClampStart(-5); got != 0 {
		t.Errorf("ClampStart(-5) = %d, want 0", got)
	}
	if got := ClampStart(120); got != 95 {
		t.Errorf("ClampStart(120) = %d, want 95", got)
	}
	if got := ClampEnd(120); got != 96 {
		t.Errorf("ClampEnd(120) = %d, want 96", got)
	}
	if got := ClampEnd(-1); got != 0 {
		t.Errorf("ClampEnd(-1) = %d, want 0", got)
	}
}

func TestRangesOverlap(t *testing.T) {
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd int
		want                       bool
	}{
		{"identical", 32, 48, 32, 48, true},
		{"partial", 32, 48, 40, 56, true},
		{"contained", 32, 72, 40, 48, true},
		{"adjacent half-open", 32, 48, 48, 56, false},
		{"disjoint", 32, 40, 56, 72, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RangesOverlap(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
				t.Errorf("RangesOverlap(%d,%d,%d,%d) = %v, want %v",
					tt.aStart, tt.aEnd, tt.bStart, tt.bEnd, got, tt.want)
			}
		})
	}
}

func TestCareWindowClamp(t *testing.T) {
	w, err := NewCareWindow(FromClock(7, 0), FromClock(20, 0))
	if err != nil {
		t.Fatalf("NewCareWindow: %v", err)
	}

	t.Run("inside window unchanged", func(t *testing.T) {
		s, e, err := w.Clamp(32, 48)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s != 32 || e != 48 {
			t.Errorf("got [%d, %d), want [32, 48)", s, e)
		}
	})

	t.Run("overhang trimmed", func(t *testing.T) {
		s, e, err := w.Clamp(20, 90)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s != w.Start || e != w.End {
			t.Errorf("got [%d, %d), want [%d, %d)", s, e, w.Start, w.End)
		}
	})

	t.Run("disjoint is rejected", func(t *testing.T) {
		_, _, err := w.Clamp(0, 8)
		if !errors.Is(err, ErrOutsideCareWindow) {
			t.Errorf("got %v, want ErrOutsideCareWindow", err)
		}
	})

	t.Run("touching boundary is disjoint", func(t *testing.T) {
		_, _, err := w.Clamp(0, w.Start)
		if !errors.Is(err, ErrOutsideCareWindow) {
			t.Errorf("got %v, want ErrOutsideCareWindow", err)
		}
	})
}

func TestNewCareWindow_Invalid(t *testing.T) {
	if _, err := NewCareWindow(40, 30); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("got %v, want ErrInvalidRange", err)
	}
}
