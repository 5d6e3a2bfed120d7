package ledger

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start civil.Date `json:"start"`
	End   civil.Date `json:"end"`
}

// NewDateRange validates that start is not after end.
func NewDateRange(start, end civil.Date) (DateRange, error) {
	if !start.IsValid() {
		return DateRange{}, invalid("date_range.start", "invalid date")
	}
	if !end.IsValid() {
		return DateRange{}, invalid("date_range.end", "invalid date")
	}
	if end.Before(start) {
		return DateRange{}, invalid("date_range", fmt.Sprintf("start %s is after end %s", start, end))
	}
	return DateRange{Start: start, End: end}, nil
}

// ForMonth returns the whole calendar month.
func ForMonth(year int, month time.Month) DateRange {
	start := civil.Date{Year: year, Month: month, Day: 1}
	end := civil.DateOf(start.In(time.UTC).AddDate(0, 1, -1))
	return DateRange{Start: start, End: end}
}

// ForYear returns 1 January to 31 December.
func ForYear(year int) DateRange {
	return DateRange{
		Start: civil.Date{Year: year, Month: time.January, Day: 1},
		End:   civil.Date{Year: year, Month: time.December, Day: 31},
	}
}

// Contains reports whether the calendar day of t (in UTC) is in the range.
func (r DateRange) Contains(t time.Time) bool {
	return r.ContainsDate(civil.DateOf(t.UTC()))
}

func (r DateRange) ContainsDate(d civil.Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) Overlaps(other DateRange) bool {
	return !r.Start.After(other.End) && !r.End.Before(other.Start)
}

// DayCount counts both ends.
func (r DateRange) DayCount() int {
	return r.End.DaysSince(r.Start) + 1
}

// Bounds returns the first and last instants of the range in UTC: start day at
// 00:00:00 and end day at 23:59:59.999999999.
func (r DateRange) Bounds() (from, to time.Time) {
	from = r.Start.In(time.UTC)
	to = r.End.In(time.UTC).Add(24*time.Hour - time.Nanosecond)
	return from, to
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s to %s", r.Start, r.End)
}
