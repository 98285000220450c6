package market

import "time"

// Phase is the time-of-day market phase, derived against IST.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhaseMid  Phase = "mid"
	PhasePost Phase = "post"
)

// ist is UTC+05:30. A fixed zone avoids a tzdata dependency and the
// exchange does not observe DST.
var ist = time.FixedZone("IST", 5*3600+1800)

// Session boundaries in minutes since midnight IST.
const (
	preOpenMinute  = 8 * 60         // 08:00
	marketOpenMin  = 9*60 + 15      // 09:15
	marketCloseMin = 15*60 + 30     // 15:30
)

// PhaseAt derives the market phase from a timestamp:
// pre 08:00-09:15 IST, mid 09:15-15:30 IST, post otherwise.
func PhaseAt(t time.Time) Phase {
	local := t.In(ist)
	minute := local.Hour()*60 + local.Minute()

	switch {
	case minute >= preOpenMinute && minute < marketOpenMin:
		return PhasePre
	case minute >= marketOpenMin && minute < marketCloseMin:
		return PhaseMid
	default:
		return PhasePost
	}
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhasePre, PhaseMid, PhasePost:
		return true
	}
	return false
}
