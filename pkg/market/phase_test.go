package market

import (
	"testing"
	"time"
)

func istTime(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, ist)
}

func TestPhaseAt(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want Phase
	}{
		{"pre-open start", istTime(8, 0), PhasePre},
		{"just before open", istTime(9, 14), PhasePre},
		{"market open", istTime(9, 15), PhaseMid},
		{"late morning", istTime(11, 30), PhaseMid},
		{"just before close", istTime(15, 29), PhaseMid},
		{"market close", istTime(15, 30), PhasePost},
		{"evening", istTime(20, 0), PhasePost},
		{"midnight", istTime(0, 0), PhasePost},
		{"early morning", istTime(7, 59), PhasePost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PhaseAt(tt.at); got != tt.want {
				t.Errorf("PhaseAt(%s) = %q, want %q", tt.at.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestPhaseAt_ConvertsToIST(t *testing.T) {
	// 06:00 UTC is 11:30 IST, inside the trading session
	utc := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	if got := PhaseAt(utc); got != PhaseMid {
		t.Errorf("PhaseAt(06:00 UTC) = %q, want %q", got, PhaseMid)
	}

	// 18:00 UTC is 23:30 IST
	utc = time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	if got := PhaseAt(utc); got != PhasePost {
		t.Errorf("PhaseAt(18:00 UTC) = %q, want %q", got, PhasePost)
	}
}

func TestPhase_Valid(t *testing.T) {
	for _, p := range []Phase{PhasePre, PhaseMid, PhasePost} {
		if !p.Valid() {
			t.Errorf("Phase(%q).Valid() = false", p)
		}
	}
	if Phase("open").Valid() {
		t.Error(`Phase("open").Valid() = true`)
	}
}
