package model

import "time"

// Grid is a roster table as handed over by the extraction layer: rows of
// cell strings, with absent cells represented as "". A Grid is never
// modified by the roster pipeline; normalization returns a new Grid.
type Grid [][]string

// Cell returns the cell at (row, col) or "" when out of range.
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) {
		return ""
	}
	r := g[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Shift is one resolved working interval for a single roster date.
//
// Start and End carry the roster timezone. End is always strictly after
// Start; overnight shifts end on the following calendar day.
type Shift struct {
	// Date is the roster column date (midnight in the roster timezone).
	Date time.Time

	Start time.Time
	End   time.Time

	// Token is the raw cell text the shift was parsed from.
	Token string
}

// Duration returns End - Start.
func (s Shift) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Window is the inclusive date range covered by a roster.
type Window struct {
	First time.Time
	Last  time.Time
}
