package extract

import (
	"bytes"
	"errors"
	"math"
	"strconv"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"rostercal/internal/model"
)

// Serial numbers Excel uses for dates between 1954 and 2119. Numeric cells
// in this range that are whole numbers are taken to be dates.
const (
	minDateSerial = 20000
	maxDateSerial = 80000
)

func readXLSX(data []byte) (model.Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("no worksheet found")
	}

	// Raw values keep date cells as serial numbers regardless of the
	// workbook's display format; they are converted below.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	grid := make(model.Grid, len(rows))
	for i, row := range rows {
		out := make([]string, len(row))
		for j, cell := range row {
			out[j] = serialToDate(cell)
		}
		grid[i] = out
	}
	return grid, nil
}

// serialToDate rewrites a whole-number date serial as DD/MM/YYYY and
// returns any other value unchanged.
func serialToDate(cell string) string {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || v != math.Trunc(v) || v < minDateSerial || v > maxDateSerial {
		return cell
	}
	t, err := excelize.ExcelDateToTime(v, false)
	if err != nil {
		return cell
	}
	return t.Format("02/01/2006")
}

func readXLS(data []byte) (model.Grid, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("no worksheet found")
	}
	// ReadAllCells walks every sheet in order until max rows are collected;
	// capping max at the first sheet's row count keeps it to that sheet.
	return model.Grid(wb.ReadAllCells(int(sheet.MaxRow) + 1)), nil
}
