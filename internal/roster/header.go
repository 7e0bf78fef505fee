package roster

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rostercal/internal/model"
)

// MinSpan is the minimum number of header dates a roster must carry.
const MinSpan = 14

var headerDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

// HeaderDate is one parsed date of the header row together with the grid
// column it was read from.
type HeaderDate struct {
	Column int
	// Date is a civil date at midnight UTC; only Y/M/D are meaningful.
	Date time.Time
}

// ParseDateHeader reads row 1 of a normalized grid. Column 0 is the label
// cell and is skipped. Cells that are not a valid D/M/YYYY date are skipped
// too, so the result can be shorter than the row.
func ParseDateHeader(grid model.Grid) ([]HeaderDate, error) {
	if len(grid) < 2 {
		return nil, fmt.Errorf("%w: missing date header row", ErrMalformedRoster)
	}

	row := grid[1]
	dates := make([]HeaderDate, 0, len(row))
	for col := 1; col < len(row); col++ {
		d, ok := ParseDate(row[col])
		if !ok {
			continue
		}
		dates = append(dates, HeaderDate{Column: col, Date: d})
	}

	if len(dates) < MinSpan {
		return nil, fmt.Errorf("%w: found %d dates, need at least %d", ErrInsufficientSpan, len(dates), MinSpan)
	}
	return dates, nil
}

// ParseDate parses a day/month/4-digit-year cell. Impossible dates such as
// 31/02/2024 are rejected.
func ParseDate(cell string) (time.Time, bool) {
	m := headerDatePattern.FindStringSubmatch(strings.TrimSpace(cell))
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || int(d.Month()) != month || d.Year() != year {
		return time.Time{}, false
	}
	return d, true
}
