package ledger

import (
	"fmt"
	"time"
)

// MonthLayout is the payment_month format ("YYYY-MM").
const MonthLayout = "2006-01"

// Month returns the payment month key of t.
func Month(t time.Time) string {
	return t.Format(MonthLayout)
}

// ParseMonth validates a "YYYY-MM" key and returns the first instant of that
// month in UTC.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid payment month %q: want YYYY-MM", s)
	}
	return t.UTC(), nil
}

// DueDate moves ref onto the chit's cycle day within ref's month.
// Cycle days past the month end (e.g. 31 in February) clamp to the last day.
// The result is the end of that day so a payment made on the due date is not
// yet overdue.
func DueDate(ref time.Time, cycleDay int) time.Time {
	ref = ref.UTC()
	if cycleDay < 1 {
		cycleDay = 1
	}
	last := daysIn(ref.Year(), ref.Month())
	if cycleDay > last {
		cycleDay = last
	}
	return time.Date(ref.Year(), ref.Month(), cycleDay, 23, 59, 59, 0, time.UTC)
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
