// Package timezone decides which calendar date counts as "today" for reviews.
//
// Scheduling works on calendar dates. The date a review happens on is the
// local date in the learner's timezone, which may differ from the UTC date.
package timezone

import (
	"fmt"
	"time"

	"github.com/hrygo/retain/internal/sm2"
)

const (
	// TimezoneLocal selects the timezone of the machine.
	TimezoneLocal = "Local"
	// TimezoneUTC is the UTC timezone identifier.
	TimezoneUTC = "UTC"
)

// ParseTimezone parses an IANA timezone identifier (e.g., "Europe/Paris").
// The empty string and "Local" select the machine's timezone.
// If the timezone is invalid, returns time.Local and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	switch tz {
	case "", TimezoneLocal:
		return time.Local, nil
	case TimezoneUTC:
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	_, err := ParseTimezone(tz)
	return err == nil
}

// Today returns the calendar date of now in tz, as used by the scheduler.
func Today(now time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = time.Local
	}
	return sm2.Day(now.In(tz))
}

// FormatTimestamp formats a Unix timestamp in the given timezone.
func FormatTimestamp(ts int64, tz *time.Location) string {
	if tz == nil {
		tz = time.Local
	}
	return time.Unix(ts, 0).In(tz).Format("2006-01-02 15:04")
}
