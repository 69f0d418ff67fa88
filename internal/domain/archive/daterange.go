package archive

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are the accepted textual date forms, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"20060102",
	time.RFC3339,
	"Jan 2, 2006",
	"2 Jan 2006",
}

// DateRange is an inclusive span of calendar days. The zero value is not
// usable; construct through NewDateRange.
type DateRange struct {
	start time.Time
	end   time.Time
}

// NewDateRange parses start and end date strings into an inclusive range.
// end may be empty, in which case the range covers the single start day.
func NewDateRange(start, end string) (DateRange, error) {
	startDay, err := parseDay(start)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start date %q: %v", ErrInvalidDateRange, start, err)
	}

	endDay := startDay
	if strings.TrimSpace(end) != "" {
		endDay, err = parseDay(end)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: end date %q: %v", ErrInvalidDateRange, end, err)
		}
	}

	if endDay.Before(startDay) {
		return DateRange{}, fmt.Errorf("%w: end %s before start %s",
			ErrInvalidDateRange, endDay.Format("2006-01-02"), startDay.Format("2006-01-02"))
	}

	return DateRange{start: startDay, end: endDay}, nil
}

// Start returns the first day of the range.
func (r DateRange) Start() time.Time {
	return r.start
}

// End returns the last day of the range.
func (r DateRange) End() time.Time {
	return r.end
}

// Days returns the number of calendar days covered, inclusive.
func (r DateRange) Days() int {
	return int(r.end.Sub(r.start).Hours()/24) + 1
}

// Dates returns every day of the range in ascending order, one entry per
// calendar day. The slice is freshly allocated on each call.
func (r DateRange) Dates() []time.Time {
	dates := make([]time.Time, 0, r.Days())
	for d := r.start; !d.After(r.end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.start.Format("2006-01-02"), r.end.Format("2006-01-02"))
}

// parseDay tries each accepted layout and truncates to midnight UTC.
func parseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format")
}
