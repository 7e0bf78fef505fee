package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "rostercal/internal/log"
)

// Document is a shift calendar read back from its serialized form.
type Document struct {
	ProductID string
	Owner     string
	Events    []Event
}

// Inspect parses a calendar produced by Encode. Events that lack a UID or
// valid UTC start/end are reported as errors, since Encode never writes
// them.
func Inspect(body []byte) (Document, error) {
	var doc Document
	if len(body) == 0 {
		return doc, errors.New("ics: empty calendar body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return doc, fmt.Errorf("ics: parse calendar: %w", err)
	}

	for _, p := range cal.CalendarProperties {
		if p.IANAToken == string(ical.PropertyProductId) {
			doc.ProductID = p.Value
		}
	}
	doc.Owner = ownerFromProductID(doc.ProductID)

	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			return doc, perr
		}
		doc.Events = append(doc.Events, ev)
	}

	appLog.Debug("ics inspect completed", "owner", doc.Owner, "event_count", len(doc.Events))
	return doc, nil
}

func parseVEvent(ve *ical.VEvent) (Event, error) {
	var out Event

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("ics: event without UID")
	}
	out.UID = uidProp.Value

	var err error
	if out.Stamp, err = utcProp(ve, ical.ComponentPropertyDtstamp); err != nil {
		return out, err
	}
	if out.Start, err = utcProp(ve, ical.ComponentPropertyDtStart); err != nil {
		return out, err
	}
	if out.End, err = utcProp(ve, ical.ComponentPropertyDtEnd); err != nil {
		return out, err
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	out.Hours = hoursFromSummary(out.Summary)
	return out, nil
}

func utcProp(ve *ical.VEvent, prop ical.ComponentProperty) (time.Time, error) {
	p := ve.GetProperty(prop)
	if p == nil {
		return time.Time{}, fmt.Errorf("ics: event missing %s", prop)
	}
	t, err := time.Parse("20060102T150405Z", strings.TrimSpace(p.Value))
	if err != nil {
		return time.Time{}, fmt.Errorf("ics: %s: %w", prop, err)
	}
	return t, nil
}

func ownerFromProductID(prodID string) string {
	s := strings.TrimPrefix(prodID, "-//")
	s = strings.TrimSuffix(s, "//EN")
	return strings.TrimSuffix(s, " Shift Calendar")
}

// hoursFromSummary reads "<prefix> <hours> hrs". Returns 0 when absent.
func hoursFromSummary(summary string) float64 {
	fields := strings.Fields(summary)
	if len(fields) < 2 || fields[len(fields)-1] != "hrs" {
		return 0
	}
	h, err := strconv.ParseFloat(fields[len(fields)-2], 64)
	if err != nil {
		return 0
	}
	return h
}
