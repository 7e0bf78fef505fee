package shift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func auckland(t *testing.T) *time.Location {
	t.Helper()
	loc, err := LoadZone(DefaultZone)
	require.NoError(t, err)
	return loc
}

func civil(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDayShift(t *testing.T) {
	loc := auckland(t)
	p := NewParser(loc, []string{"OFF"})

	s, ok := p.Parse(civil(2024, 3, 4), "9.00-17.30")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 0, 0, 0, loc), s.Start)
	assert.Equal(t, time.Date(2024, 3, 4, 17, 30, 0, 0, loc), s.End)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, loc), s.Date)
	assert.Equal(t, "9.00-17.30", s.Token)
	assert.Equal(t, 8*time.Hour+30*time.Minute, s.Duration())
}

func TestParseOvernight(t *testing.T) {
	loc := auckland(t)
	p := NewParser(loc, []string{"OFF"})

	s, ok := p.Parse(civil(2024, 3, 4), "22:00-06:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 4, 22, 0, 0, 0, loc), s.Start)
	assert.Equal(t, time.Date(2024, 3, 5, 6, 0, 0, 0, loc), s.End)

	// Equal clock times mean a full day.
	s, ok = p.Parse(civil(2024, 3, 4), "7:00-7:00")
	require.True(t, ok)
	assert.Equal(t, 24*time.Hour, s.Duration())
}

func TestParseIgnoredTokens(t *testing.T) {
	p := NewParser(auckland(t), []string{"OFF"})
	for _, tok := range []string{
		"",
		"   ",
		"OFF",
		"see supervisor",
		"9:00-17:00 (training)",
		"9-17",
		"9:0-17:00",
		"123:00-17:00",
		"25:00-17:00",
		"9:60-17:00",
		"9:00 - 17:00",
		"AL",
	} {
		t.Run(tok, func(t *testing.T) {
			_, ok := p.Parse(civil(2024, 3, 4), tok)
			assert.False(t, ok)
		})
	}
}

func TestParseIdempotent(t *testing.T) {
	p := NewParser(auckland(t), nil)
	a, okA := p.Parse(civil(2024, 3, 9), "14.15-22.45")
	b, okB := p.Parse(civil(2024, 3, 9), "14.15-22.45")
	require.True(t, okA)
	require.True(t, okB)
	assert.Equal(t, a, b)
}

func TestParseEndAfterStart(t *testing.T) {
	p := NewParser(auckland(t), nil)
	day := civil(2024, 4, 1)
	for h := 0; h < 24; h++ {
		for _, end := range []string{"00:00", "06:30", "12:00", "23:59"} {
			tok := time.Date(2000, 1, 1, h, 0, 0, 0, time.UTC).Format("15:04") + "-" + end
			s, ok := p.Parse(day, tok)
			require.True(t, ok, tok)
			assert.True(t, s.End.After(s.Start), tok)
		}
	}
}

func TestParseDaylightSaving(t *testing.T) {
	p := NewParser(auckland(t), nil)

	// NZDT (+13) before the first Sunday of April 2024, NZST (+12) after.
	summer, ok := p.Parse(civil(2024, 3, 4), "09:00-17:00")
	require.True(t, ok)
	assert.Equal(t, "20240303T200000Z", FormatUTC(summer.Start))

	winter, ok := p.Parse(civil(2024, 4, 8), "09:00-17:00")
	require.True(t, ok)
	assert.Equal(t, "20240407T210000Z", FormatUTC(winter.Start))

	// Overnight across the transition gains an hour.
	across, ok := p.Parse(civil(2024, 4, 6), "22:00-06:00")
	require.True(t, ok)
	assert.Equal(t, "20240406T090000Z", FormatUTC(across.Start))
	assert.Equal(t, "20240406T180000Z", FormatUTC(across.End))
	assert.Equal(t, 9*time.Hour, across.Duration())
}

func TestParseRow(t *testing.T) {
	p := NewParser(auckland(t), []string{"OFF"})
	dates := []time.Time{civil(2024, 3, 4), civil(2024, 3, 5), civil(2024, 3, 6)}

	got, ignored := p.ParseRow(dates, []string{"7:00-15:00", "OFF", "15.00-23.00", "9:00-10:00"})
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Start.Day())
	assert.Equal(t, 6, got[1].Start.Day())
	assert.Empty(t, ignored)
}

func TestParseRowReportsIgnoredPositions(t *testing.T) {
	p := NewParser(auckland(t), []string{"OFF"})
	dates := []time.Time{civil(2024, 3, 4), civil(2024, 3, 5), civil(2024, 3, 6), civil(2024, 3, 7), civil(2024, 3, 8)}

	got, ignored := p.ParseRow(dates, []string{"see supervisor", " 7:00-15:00 ", "", "7:00-15:00x", "OFF"})
	require.Len(t, got, 1)
	assert.Equal(t, " 7:00-15:00 ", got[0].Token)
	assert.Equal(t, []int{0, 3}, ignored)

	// Consistent with the single-cell answers.
	for i, tok := range []string{"see supervisor", " 7:00-15:00 ", "", "7:00-15:00x", "OFF"} {
		_, ok := p.Parse(dates[i], tok)
		assert.Equal(t, p.Ignored(tok), !ok && tok != "" && tok != "OFF", tok)
	}
}

func TestIgnored(t *testing.T) {
	p := NewParser(auckland(t), []string{"OFF"})
	assert.False(t, p.Ignored(""))
	assert.False(t, p.Ignored("OFF"))
	assert.False(t, p.Ignored("9:00-17:00"))
	assert.True(t, p.Ignored("see supervisor"))
	assert.True(t, p.Ignored("9:00-27:00"))
}

func TestLoadZone(t *testing.T) {
	loc, err := LoadZone("")
	require.NoError(t, err)
	assert.Equal(t, DefaultZone, loc.String())

	_, err = LoadZone("UTC")
	assert.Error(t, err)

	_, err = LoadZone("Mars/Olympus_Mons")
	assert.Error(t, err)
}
