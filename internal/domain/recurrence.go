package domain

import (
	"fmt"
	"strings"
	"time"
)

// Frequency represents the re-arm cadence of a recurring reminder.
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

func (f Frequency) String() string { return string(f) }

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

func ParseFrequencyFromString(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("%w: invalid frequency %q", ErrValidation, s)
	}
	return f, nil
}

// Next returns the fire time following t. Arithmetic is calendar-based,
// not fixed-duration, so daily steps track DST and month lengths.
//
// Monthly steps keep the day-of-month and rely on time.AddDate
// normalization when the target month is shorter: Jan 31 + 1 month lands
// on Mar 2 or Mar 3 rather than the end of February. This rollover policy
// is intentional and asserted by tests.
func (f Frequency) Next(t time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return t.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}
