package loans

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar dates, YYYY-MM-DD.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Bounds returns [start, end) in UTC covering every instant whose calendar
// date in loc lies within the range.
func (r DateRange) Bounds(loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	from, err := time.ParseInLocation(DateLayout, strings.TrimSpace(r.From), loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	to, err := time.ParseInLocation(DateLayout, strings.TrimSpace(r.To), loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return from.UTC(), to.AddDate(0, 0, 1).UTC(), nil
}
