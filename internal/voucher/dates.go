package voucher

import (
	"fmt"
	"strings"
	"time"

	"github.com/alpakasoelde/dashboard-api/internal/domain/entity"
)

// Month and day accept one or two digits when parsing. Fractional seconds
// after the seconds field are accepted by every layout that has seconds.
var dateLayouts = []string{
	"2006-1-2",
	"2006-1-2T15:04:05Z07:00",
	"2006-1-2T15:04:05",
	"2006-1-2T15:04Z07:00",
	"2006-1-2T15:04",
	"2006-1-2 15:04:05Z07:00",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006/1/2",
}

// ParseDate accepts ISO dates and timestamps and returns the date part at
// midnight UTC. For timestamps the calendar date of their own offset is kept.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// DateOnly drops the time of day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders yyyy-MM-dd
func FormatDate(t time.Time) string {
	return t.Format(entity.DateLayout)
}
