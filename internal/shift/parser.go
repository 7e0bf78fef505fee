package shift

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"rostercal/internal/model"
)

var tokenPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})-(\d{1,2}):(\d{2})$`)

// Parser turns shift cells into shifts. The zero value is not usable; use
// NewParser.
type Parser struct {
	loc *time.Location
	off map[string]bool
}

// NewParser returns a parser localizing into loc. offMarkers are cell
// values meaning "not working", compared exactly.
func NewParser(loc *time.Location, offMarkers []string) *Parser {
	off := make(map[string]bool, len(offMarkers))
	for _, m := range offMarkers {
		off[m] = true
	}
	return &Parser{loc: loc, off: off}
}

// Location returns the parser's timezone.
func (p *Parser) Location() *time.Location {
	return p.loc
}

// Parse resolves one cell of the given roster date. It reports false for
// empty cells, off markers and anything that is not an H[H]:MM-H[H]:MM
// range ('.' is accepted in place of ':'). Free text in shift cells is
// common, so none of these are errors.
//
// When the end clock time is not after the start, the shift runs overnight
// and ends on the next calendar day.
func (p *Parser) Parse(date time.Time, token string) (model.Shift, bool) {
	r, kind := p.match(token)
	if kind != cellShift {
		return model.Shift{}, false
	}
	return p.localize(date, token, r), true
}

// Ignored reports whether a cell held something other than a shift, an
// empty cell or an off marker: free text or a mistyped time.
func (p *Parser) Ignored(token string) bool {
	_, kind := p.match(token)
	return kind == cellIgnored
}

// ParseRow parses tokens against dates position by position and returns the
// shifts plus the positions of ignored cells. Extra tokens or dates are
// skipped. Every cell is matched once.
func (p *Parser) ParseRow(dates []time.Time, tokens []string) ([]model.Shift, []int) {
	n := len(dates)
	if len(tokens) < n {
		n = len(tokens)
	}
	out := make([]model.Shift, 0, n)
	var ignored []int
	for i := 0; i < n; i++ {
		r, kind := p.match(tokens[i])
		switch kind {
		case cellShift:
			out = append(out, p.localize(dates[i], tokens[i], r))
		case cellIgnored:
			ignored = append(ignored, i)
		}
	}
	return out, ignored
}

type cellKind int

const (
	cellBlank cellKind = iota // empty or off marker
	cellShift
	cellIgnored
)

// clockRange is a matched token's start and end clock times.
type clockRange struct {
	sh, sm, eh, em int
}

func (p *Parser) match(token string) (clockRange, cellKind) {
	t := strings.TrimSpace(token)
	if t == "" || p.off[t] || p.off[token] {
		return clockRange{}, cellBlank
	}

	m := tokenPattern.FindStringSubmatch(strings.ReplaceAll(t, ".", ":"))
	if m == nil {
		return clockRange{}, cellIgnored
	}
	sh, sm, ok1 := clock(m[1], m[2])
	eh, em, ok2 := clock(m[3], m[4])
	if !ok1 || !ok2 {
		return clockRange{}, cellIgnored
	}
	return clockRange{sh: sh, sm: sm, eh: eh, em: em}, cellShift
}

func (p *Parser) localize(date time.Time, raw string, r clockRange) model.Shift {
	day := Localize(date, 0, 0, p.loc)
	start := Localize(date, r.sh, r.sm, p.loc)
	end := Localize(date, r.eh, r.em, p.loc)
	if !end.After(start) {
		next := date.AddDate(0, 0, 1)
		end = Localize(next, r.eh, r.em, p.loc)
	}
	return model.Shift{Date: day, Start: start, End: end, Token: raw}
}

func clock(hh, mm string) (int, int, bool) {
	h, err := strconv.Atoi(hh)
	if err != nil || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
