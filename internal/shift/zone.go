package shift

import (
	"fmt"
	"time"

	// Embedded IANA database so zone rules do not depend on the host.
	_ "time/tzdata"
)

// DefaultZone is the civil timezone rosters are written in.
const DefaultZone = "Pacific/Auckland"

// UTCLayout is the iCalendar UTC date-time form.
const UTCLayout = "20060102T150405Z"

// LoadZone loads a named IANA zone. Fixed offsets and the host's local zone
// are refused because they would lose the daylight-saving rules.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	if name == "Local" || name == "UTC" {
		return nil, fmt.Errorf("shift: timezone %q is not a civil zone", name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("shift: load timezone %q: %w", name, err)
	}
	return loc, nil
}

// Localize attaches loc to the wall-clock time hour:min on date's calendar
// day. The zone's offset for that particular day applies. Wall times that
// fall in a spring-forward gap are moved forward by the gap length.
func Localize(date time.Time, hour, min int, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, min, 0, 0, loc)
}

// FormatUTC renders t as YYYYMMDDTHHMMSSZ.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(UTCLayout)
}
