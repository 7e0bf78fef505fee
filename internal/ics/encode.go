package ics

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"rostercal/internal/model"
)

// DefaultSummaryPrefix is the SUMMARY text placed before the shift length.
const DefaultSummaryPrefix = "HK Shift"

// Event is the rendered form of one shift.
type Event struct {
	UID         string
	Stamp       time.Time
	Start       time.Time
	End         time.Time
	Hours       float64
	Summary     string
	Description string
}

// Events renders shifts for owner in input order. All events share stamp.
func Events(owner string, shifts []model.Shift, stamp time.Time, prefix string) ([]Event, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, errors.New("ics: owner name is empty")
	}
	if prefix == "" {
		prefix = DefaultSummaryPrefix
	}

	out := make([]Event, 0, len(shifts))
	for i, s := range shifts {
		if !s.End.After(s.Start) {
			return nil, fmt.Errorf("ics: shift %d for %s ends at or before its start", i, owner)
		}
		hours := roundHours(s.Duration())
		out = append(out, Event{
			UID:         UID(owner, s.Start),
			Stamp:       stamp.UTC(),
			Start:       s.Start,
			End:         s.End,
			Hours:       hours,
			Summary:     prefix + " " + formatHours(hours) + " hrs",
			Description: "Shift for " + owner,
		})
	}
	return out, nil
}

// Encode renders events built by Events as a complete VCALENDAR document
// with "\n" line endings. Either the whole document is returned or an
// error; never a partial one.
func Encode(owner string, events []Event) (string, error) {
	if strings.TrimSpace(owner) == "" {
		return "", errors.New("ics: owner name is empty")
	}
	for i, ev := range events {
		if ev.UID == "" || !ev.End.After(ev.Start) {
			return "", fmt.Errorf("ics: event %d for %s has no UID or an empty interval", i, owner)
		}
	}

	cal := ical.NewCalendar()
	cal.SetVersion("2.0")
	cal.SetProductId(ProductID(owner))

	for _, ev := range events {
		ve := cal.AddEvent(ev.UID)
		ve.SetDtStampTime(ev.Stamp)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Summary)
		ve.SetDescription(ev.Description)
	}

	var b strings.Builder
	if err := cal.SerializeTo(&b, ical.WithNewLineUnix); err != nil {
		return "", fmt.Errorf("ics: serialize calendar for %s: %w", owner, err)
	}
	return b.String(), nil
}

// ProductID is the PRODID value of an owner's calendar.
func ProductID(owner string) string {
	return "-//" + owner + " Shift Calendar//EN"
}

// UID identifies a shift by its start instant and owner. Two shifts of the
// same owner starting at the same instant would collide; a roster holds at
// most one shift per person per day, so that does not happen.
func UID(owner string, start time.Time) string {
	return strconv.FormatInt(start.Unix(), 10) + "-" + owner + "@roster"
}

func roundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}

// formatHours prints the shortest form with at least one decimal: 8 -> "8.0",
// 8.5 -> "8.5", 7.75 -> "7.75".
func formatHours(h float64) string {
	s := strconv.FormatFloat(h, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
