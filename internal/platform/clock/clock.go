package clock

import "time"

// Clock abstracts wall-clock time so day-keyed state can be tested
// deterministically.
type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

// DayKey returns the calendar-day partition key for t.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
