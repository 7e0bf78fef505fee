package roster

import "errors"

var (
	// ErrMalformedRoster means the table has no room for a date header.
	// It is fatal for the whole roster.
	ErrMalformedRoster = errors.New("malformed roster")

	// ErrInsufficientSpan means the date header holds fewer than MinSpan
	// dates. It is fatal for the whole roster.
	ErrInsufficientSpan = errors.New("insufficient roster span")

	// ErrEmployeeNotFound only affects the request for that employee.
	ErrEmployeeNotFound = errors.New("employee not found")
)
