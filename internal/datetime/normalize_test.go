package datetime

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"14:30", "14:30"},
		{"14.30", "14:30"},
		{"2:30 PM", "14:30"},
		{"2.30pm", "14:30"},
		{"2:30pm", "14:30"},
		{"4 PM", "16:00"},
		{"4pm", "16:00"},
		{"12 AM", "00:00"},
		{"12:15 am", "00:15"},
		{"12 PM", "12:00"},
		{"11:05 AM", "11:05"},
		{"14", "14:00"},
		{"9", "09:00"},
		{" 0 ", "00:00"},
		{"9:5", "09:05"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeTime(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeTime_SameInstantSameCanonical(t *testing.T) {
	for _, in := range []string{"2:30 PM", "14:30", "14.30", "2.30 pm"} {
		got, err := NormalizeTime(in)
		require.NoError(t, err, in)
		assert.Equal(t, "14:30", got, in)
	}
}

func TestNormalizeTime_Rejects(t *testing.T) {
	for _, in := range []string{"", "25:00", "14:60", "13 PM", "0 AM", "13:30 PM", "noon", "24", "later today", "1:2:3"} {
		t.Run(in, func(t *testing.T) {
			_, err := NormalizeTime(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat))
			var fe *FormatError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "time", fe.Kind)
		})
	}
}

func TestDisplayTime(t *testing.T) {
	assert.Equal(t, "2:30 PM", DisplayTime("14:30"))
	assert.Equal(t, "12:00 AM", DisplayTime("00:00"))
	assert.Equal(t, "12:00 PM", DisplayTime("12:00"))
	assert.Equal(t, "11:00 AM", DisplayTime("11 am"))
	assert.Equal(t, "gibberish", DisplayTime("gibberish"))
}

func TestDisplayDate(t *testing.T) {
	assert.Equal(t, "25/12/2025", DisplayDate("2025-12-25"))
	assert.Equal(t, "not-a-date", DisplayDate("not-a-date"))
}

func TestParseDate_RelativePhrases(t *testing.T) {
	today := time.Date(2025, 3, 10, 15, 4, 0, 0, time.UTC)
	tests := map[string]time.Time{
		"today":                  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		"Tomorrow":               time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		"day after tomorrow":     time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		"the day after tomorrow": time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		"next week":              time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range tests {
		got, ok := ParseDate(in, today)
		require.True(t, ok, in)
		assert.True(t, want.Equal(got), "%s: got %s", in, got)
	}
}

func TestParseDate_FormatsRoundTrip(t *testing.T) {
	today := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	control, ok := ParseDate("2025-12-25", today)
	require.True(t, ok)

	for _, in := range []string{"25-12-2025", "25/12/2025", "12/25/2025", "25.12.2025", "2025.12.25", "2025-12-25"} {
		got, ok := ParseDate(in, today)
		require.True(t, ok, in)
		assert.Equal(t, ISODate(control), ISODate(got), in)
	}
}

func TestParseDate_DayFirstWinsWhenAmbiguous(t *testing.T) {
	today := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	got, ok := ParseDate("03/04/2025", today)
	require.True(t, ok)
	assert.Equal(t, "2025-04-03", ISODate(got))
}

func TestParseDate_Rejects(t *testing.T) {
	today := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"", "next thursday", "31/02/2025", "yesterday", "2025/12/25x"} {
		_, ok := ParseDate(in, today)
		assert.False(t, ok, in)
	}
}

func TestCombine(t *testing.T) {
	loc := time.FixedZone("SGT", 8*3600)
	got, err := Combine("2025-06-02", "3:30 PM", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 15, 30, 0, 0, loc), got)

	_, err = Combine("02/06/2025", "3pm", loc)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestClockMinutes(t *testing.T) {
	got, err := ClockMinutes("9:30 PM")
	require.NoError(t, err)
	assert.Equal(t, 21*60+30, got)

	got, err = ClockMinutes("07.05")
	require.NoError(t, err)
	assert.Equal(t, 7*60+5, got)

	_, err = ClockMinutes("noonish")
	assert.ErrorIs(t, err, ErrFormat)
}
