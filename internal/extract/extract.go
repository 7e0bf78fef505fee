// Package extract turns an uploaded roster file into a model.Grid.
//
// Only the first sheet (spreadsheets) or first table (Word documents) is
// read, mirroring how rosters are published: one page per fortnight.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	appLog "rostercal/internal/log"
	"rostercal/internal/model"
)

// ErrUnsupportedFormat is returned for file types no extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported roster format")

// maxUpload bounds how much of a roster file is read into memory.
const maxUpload = 32 << 20

// Kind is a supported roster file kind.
type Kind string

const (
	KindXLSX Kind = "xlsx"
	KindXLS  Kind = "xls"
	KindDOCX Kind = "docx"
	KindCSV  Kind = "csv"
)

// KindOf maps a file name to its kind by extension.
func KindOf(name string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return KindXLSX, nil
	case ".xls":
		return KindXLS, nil
	case ".docx":
		return KindDOCX, nil
	case ".csv", ".txt":
		return KindCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Supported reports whether name has an extension Read understands.
func Supported(name string) bool {
	_, err := KindOf(name)
	return err == nil
}

// Read extracts the roster table from r. name is only used to pick the
// extractor. An empty document yields an empty grid, not an error; the
// roster layer reports it as malformed.
func Read(name string, r io.Reader) (model.Grid, error) {
	kind, err := KindOf(name)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("extract: read %s: %w", name, err)
	}
	if len(data) > maxUpload {
		return nil, fmt.Errorf("extract: %s is larger than %d bytes", name, maxUpload)
	}

	var grid model.Grid
	switch kind {
	case KindXLSX:
		grid, err = readXLSX(data)
	case KindXLS:
		grid, err = readXLS(data)
	case KindDOCX:
		grid, err = readDOCX(data)
	case KindCSV:
		grid, err = readCSV(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", kind, err)
	}

	grid = clean(grid)
	appLog.Debug("roster extracted", "file", name, "kind", string(kind), "rows", len(grid))
	return grid, nil
}

// clean trims cell whitespace. Rows are kept as found, blank ones too, so
// positional trimming policies still line up.
func clean(g model.Grid) model.Grid {
	for _, row := range g {
		for i, c := range row {
			row[i] = strings.TrimSpace(c)
		}
	}
	return g
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}
