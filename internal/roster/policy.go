package roster

import "strings"

// Policy describes how a raw roster table is trimmed down to the label row,
// the date header row and the employee rows. Rostering tools differ in the
// technical rows and columns they add around the schedule, so the policy is
// data rather than code and can be set per deployment in the config file.
type Policy struct {
	// Columns keeps only the first N columns of every row (0 = all).
	Columns int `yaml:"columns" json:"columns"`

	// TrailingColumns drops N columns from the end of every row, e.g.
	// weekly total columns printed after the last date.
	TrailingColumns int `yaml:"trailing_columns" json:"trailing_columns"`

	// SkipMarkers drops rows whose first cell equals one of the values.
	SkipMarkers []string `yaml:"skip_markers" json:"skip_markers"`

	// EndMarkers ends the roster at the first row whose first cell equals
	// one of the values. That row and everything below it is dropped.
	EndMarkers []string `yaml:"end_markers" json:"end_markers"`

	// TrailingRows drops N rows from the bottom after marker handling.
	TrailingRows int `yaml:"trailing_rows" json:"trailing_rows"`

	// OffMarkers are cell values meaning "not working", compared as found.
	OffMarkers []string `yaml:"off_markers" json:"off_markers"`
}

// DefaultPolicy returns a marker-based policy that leaves plain
// name-plus-dates tables untouched.
func DefaultPolicy() Policy {
	return Policy{
		SkipMarkers: []string{"Total Hours", "Total hours", "Hours"},
		EndMarkers:  []string{"Notes", "Comments"},
		OffMarkers:  []string{"OFF"},
	}
}

// HakaPolicy matches the PDF export of the housekeeping roster the tool was
// first written for: a 12-row notes block below the schedule and three
// weekly-total columns on the right.
func HakaPolicy() Policy {
	return Policy{
		TrailingColumns: 3,
		TrailingRows:    12,
		OffMarkers:      []string{"OFF"},
	}
}

// PolicyByName resolves a named preset. Unknown names yield DefaultPolicy.
func PolicyByName(name string) Policy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "haka":
		return HakaPolicy()
	default:
		return DefaultPolicy()
	}
}

// Normalize fills unset values. Negative counts are treated as zero.
func (p *Policy) Normalize() {
	if p.Columns < 0 {
		p.Columns = 0
	}
	if p.TrailingColumns < 0 {
		p.TrailingColumns = 0
	}
	if p.TrailingRows < 0 {
		p.TrailingRows = 0
	}
	if p.OffMarkers == nil {
		p.OffMarkers = []string{"OFF"}
	}
}

func (p Policy) isSkip(first string) bool {
	return containsTrimmed(p.SkipMarkers, first)
}

func (p Policy) isEnd(first string) bool {
	return containsTrimmed(p.EndMarkers, first)
}

func containsTrimmed(markers []string, v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, m := range markers {
		if m == v {
			return true
		}
	}
	return false
}
