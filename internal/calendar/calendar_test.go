package calendar

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"rostercal/internal/model"
	"rostercal/internal/roster"
	"rostercal/internal/shift"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = func() time.Time { return time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC) }

func fortnightRoster(t *testing.T, rows ...[]string) *roster.Roster {
	t.Helper()
	label := []string{"Housekeeping"}
	dates := []string{""}
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 14; i++ {
		label = append(label, "")
		dates = append(dates, start.AddDate(0, 0, i).Format("02/01/2006"))
	}
	g := model.Grid{label, dates}
	for _, r := range rows {
		row := make([]string, 15)
		copy(row, r)
		g = append(g, row)
	}
	r, err := roster.New(g, roster.DefaultPolicy())
	require.NoError(t, err)
	return r
}

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	loc, err := shift.LoadZone(shift.DefaultZone)
	require.NoError(t, err)
	g, err := New(Options{Location: loc, Now: fixedNow})
	require.NoError(t, err)
	return g
}

func TestGenerateThreeShifts(t *testing.T) {
	r := fortnightRoster(t,
		[]string{"Jane Doe", "9.00-17.30", "OFF", "", "22:00-06:00", "see supervisor", "", "", "7:00-15:00"},
		[]string{"John Roe", "OFF"},
	)
	g := newGenerator(t)

	doc, err := g.Generate(r, "Jane Doe")
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(doc.Text, "BEGIN:VEVENT"))
	assert.Equal(t, 3, strings.Count(doc.Text, "END:VEVENT"))
	assert.Contains(t, doc.Text, "PRODID:-//Jane Doe Shift Calendar//EN\n")
	assert.Equal(t, 3, strings.Count(doc.Text, "DTSTAMP:20240301T083000Z"))
	assert.True(t, strings.HasPrefix(doc.Text, "BEGIN:VCALENDAR\nVERSION:2.0\n"))
	assert.True(t, strings.HasSuffix(doc.Text, "END:VCALENDAR\n"))

	assert.Equal(t, "Jane Doe_shifts_04-03-2024_17-03-2024.ics", doc.Filename)
	assert.Equal(t, 1, doc.Ignored)
	require.Len(t, doc.Shifts, 3)
	require.Len(t, doc.Events, 3)
	for i, s := range doc.Shifts {
		assert.True(t, s.End.After(s.Start))
		assert.True(t, doc.Events[i].Start.Equal(s.Start))
	}
	assert.Equal(t, 14, doc.Coverage.Days)
	assert.Equal(t, 3, doc.Coverage.Working)
}

func TestGenerateCountsIgnoredCellsOnce(t *testing.T) {
	r := fortnightRoster(t,
		[]string{"Jane Doe", "9.00-17.30", "OFF", "see supervisor", "22:00-06:00", " 7:00-15:00 ", "7:00-15:00x", "off"},
	)
	g := newGenerator(t)

	doc, err := g.Generate(r, "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(doc.Text, "BEGIN:VEVENT"))
	assert.Equal(t, 3, doc.Ignored)
	for i, ev := range doc.Events {
		assert.Contains(t, doc.Text, "UID:"+ev.UID, "event %d", i)
	}
}

func TestGenerateUnknownEmployee(t *testing.T) {
	r := fortnightRoster(t, []string{"Jane Doe", "9:00-17:00"})
	g := newGenerator(t)

	_, err := g.Generate(r, "Nobody")
	require.ErrorIs(t, err, roster.ErrEmployeeNotFound)

	doc, err := g.Generate(r, "Jane Doe")
	require.NoError(t, err)
	assert.Len(t, doc.Events, 1)
}

func TestGenerateConcurrentSameRoster(t *testing.T) {
	r := fortnightRoster(t,
		[]string{"Ana", "7:00-15:00", "7:00-15:00"},
		[]string{"Ben", "", "15:00-23:00"},
	)
	g := newGenerator(t)

	want, err := g.Generate(r, "Ana")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := g.Generate(r, "Ana")
			assert.NoError(t, err)
			assert.Equal(t, want.Text, doc.Text)
		}()
	}
	wg.Wait()
}

func TestGenerateAll(t *testing.T) {
	r := fortnightRoster(t,
		[]string{"Cleo", "6:00-14:00"},
		[]string{"Ana", "7:00-15:00", "7:00-15:00"},
		[]string{"Ben", "", "15:00-23:00"},
	)
	g := newGenerator(t)

	docs, failures, err := g.GenerateAll(context.Background(), r)
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, docs, 3)
	assert.Equal(t, "Ana", docs[0].Owner)
	assert.Equal(t, "Ben", docs[1].Owner)
	assert.Equal(t, "Cleo", docs[2].Owner)
	assert.Len(t, docs[0].Events, 2)

	docs, failures, err = g.GenerateAll(context.Background(), r, "Ben", "Zed")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Len(t, failures, 1)
	assert.Equal(t, "Zed", failures[0].Name)
	assert.ErrorIs(t, failures[0], roster.ErrEmployeeNotFound)
}

func TestGenerateAllCanceled(t *testing.T) {
	r := fortnightRoster(t, []string{"Ana", "7:00-15:00"})
	g := newGenerator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := g.GenerateAll(ctx, r)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRequiresLocation(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
