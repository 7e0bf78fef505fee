package ics

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"rostercal/internal/model"
)

// Coverage summarizes an owner's roster window day by day.
type Coverage struct {
	Days      int         `json:"days"`
	Working   int         `json:"working"`
	DaysOff   []time.Time `json:"days_off"`
	Hours     float64     `json:"hours"`
	Overnight int         `json:"overnight"`
}

// Summarize walks every calendar day of w and marks the days that carry a
// shift. A header that is not ascending is treated as spanning from its
// earliest to its latest date.
func Summarize(w model.Window, shifts []model.Shift) (Coverage, error) {
	first, last := w.First, w.Last
	if last.Before(first) {
		first, last = last, first
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: civilDay(first),
		Until:   civilDay(last),
	})
	if err != nil {
		return Coverage{}, fmt.Errorf("ics: roster window: %w", err)
	}

	working := make(map[string]bool, len(shifts))
	var c Coverage
	for _, s := range shifts {
		working[s.Date.Format(time.DateOnly)] = true
		c.Hours += roundHours(s.Duration())
		if s.End.YearDay() != s.Start.YearDay() || s.End.Year() != s.Start.Year() {
			c.Overnight++
		}
	}

	for _, day := range r.All() {
		c.Days++
		if working[day.Format(time.DateOnly)] {
			c.Working++
			continue
		}
		c.DaysOff = append(c.DaysOff, day)
	}
	c.Hours = roundHours(time.Duration(c.Hours * float64(time.Hour)))
	return c, nil
}

// civilDay drops the zone and clock, keeping the calendar date.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
