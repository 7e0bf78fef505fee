package roster

import (
	"fmt"

	"rostercal/internal/model"
)

// Normalize applies the policy to a raw grid and returns a new grid where
// row 0 is the label row, row 1 the date header and the rest are employee
// rows, all with the same width.
//
// Row handling order:
//   - stop at the first end marker
//   - drop rows starting with a skip marker
//   - drop TrailingRows from the bottom
//
// The width is taken from the date header row: at most Columns cells, minus
// TrailingColumns. Shorter rows are padded with empty cells.
func Normalize(raw model.Grid, p Policy) (model.Grid, error) {
	p.Normalize()

	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no table found", ErrMalformedRoster)
	}

	rows := make(model.Grid, 0, len(raw))
	for _, row := range raw {
		first := ""
		if len(row) > 0 {
			first = row[0]
		}
		if p.isEnd(first) {
			break
		}
		if p.isSkip(first) {
			continue
		}
		rows = append(rows, row)
	}

	if p.TrailingRows > 0 {
		if p.TrailingRows >= len(rows) {
			rows = rows[:0]
		} else {
			rows = rows[:len(rows)-p.TrailingRows]
		}
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: %d usable rows, need a label row and a date header", ErrMalformedRoster, len(rows))
	}

	width := len(rows[1])
	if p.Columns > 0 && width > p.Columns {
		width = p.Columns
	}
	width -= p.TrailingColumns
	if width < 0 {
		width = 0
	}

	out := make(model.Grid, len(rows))
	for i, row := range rows {
		out[i] = fitWidth(row, width)
	}
	return out, nil
}

// fitWidth copies row truncated or padded to width.
func fitWidth(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}
