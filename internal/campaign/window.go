package campaign

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WorkingWindow is the allowed local days/hours during which a lead may be
// dialed. Days are 0=Monday..6=Sunday; Start/End are "HH:MM" wall-clock
// times, inclusive on both ends.
type WorkingWindow struct {
	Timezone string `json:"timezone"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Days     []int  `json:"days"`
}

// Eligible reports whether now falls inside the window. tzOverride, when
// non-empty, takes precedence over the window's own timezone (the lead's
// detected zone overrides the campaign's). Eligibility is a function of
// wall-clock time only, so it is recomputed on every check.
func (w WorkingWindow) Eligible(now time.Time, tzOverride string) (bool, error) {
	start, err := parseClock(w.Start)
	if err != nil {
		return false, fmt.Errorf("window start: %w", err)
	}
	end, err := parseClock(w.End)
	if err != nil {
		return false, fmt.Errorf("window end: %w", err)
	}

	tz := tzOverride
	if tz == "" {
		tz = w.Timezone
	}
	local := now.In(loadLocation(tz))

	if !w.allowsWeekday(local.Weekday()) {
		return false, nil
	}

	minutes := local.Hour()*60 + local.Minute()
	return minutes >= start && minutes <= end, nil
}

func (w WorkingWindow) allowsWeekday(d time.Weekday) bool {
	// time.Weekday counts Sunday=0; the window counts Monday=0.
	idx := (int(d) + 6) % 7
	for _, day := range w.Days {
		if day == idx {
			return true
		}
	}
	return false
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// loadLocation falls back to UTC when the zone name is empty or unknown.
func loadLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
