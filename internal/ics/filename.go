package ics

import (
	"strings"

	"rostercal/internal/model"
)

// FilenameDateLayout is DD-MM-YYYY.
const FilenameDateLayout = "02-01-2006"

var unsafeName = strings.NewReplacer("/", "-", `\`, "-", "\x00", "")

// Filename is the calendar file name for owner over the roster window:
// "{owner}_shifts_{DD-MM-YYYY}_{DD-MM-YYYY}.ics".
func Filename(owner string, w model.Window) string {
	return unsafeName.Replace(owner) + "_shifts_" +
		w.First.Format(FilenameDateLayout) + "_" +
		w.Last.Format(FilenameDateLayout) + ".ics"
}
