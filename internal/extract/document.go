package extract

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/unidoc/unioffice/document"

	"rostercal/internal/model"
)

// readDOCX returns the first table of a Word document. A document without
// tables yields an empty grid.
func readDOCX(data []byte) (model.Grid, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	tables := doc.Tables()
	if len(tables) == 0 {
		return model.Grid{}, nil
	}

	var grid model.Grid
	for _, row := range tables[0].Rows() {
		cells := row.Cells()
		out := make([]string, 0, len(cells))
		for _, cell := range cells {
			out = append(out, cellText(cell))
		}
		grid = append(grid, out)
	}
	return grid, nil
}

// cellText joins a table cell's paragraphs with spaces.
func cellText(cell document.Cell) string {
	var parts []string
	for _, p := range cell.Paragraphs() {
		var b strings.Builder
		for _, r := range p.Runs() {
			b.WriteString(r.Text())
		}
		if t := strings.TrimSpace(b.String()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// readCSV accepts ragged rows and stray quotes; exported rosters are rarely
// strict RFC 4180.
func readCSV(data []byte) (model.Grid, error) {
	r := csv.NewReader(bytes.NewReader(stripBOM(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return model.Grid(records), nil
}
