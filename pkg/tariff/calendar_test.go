package tariff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarroi/solarroi/pkg/types"
)

func TestEasterSunday(t *testing.T) {
	assert.Equal(t, "2023-04-09", EasterSunday(2023).Format(time.DateOnly))
	assert.Equal(t, "2024-03-31", EasterSunday(2024).Format(time.DateOnly))
	assert.Equal(t, "2025-04-20", EasterSunday(2025).Format(time.DateOnly))
}

func TestPublicHolidays(t *testing.T) {
	names := func(year int) map[string]string {
		out := make(map[string]string)
		for _, h := range PublicHolidays(year) {
			out[h.Date.Format(time.DateOnly)] = h.Name
		}
		return out
	}

	t.Run("2024", func(t *testing.T) {
		h := names(2024)
		assert.Equal(t, "Good Friday", h["2024-03-29"])
		assert.Equal(t, "Family Day", h["2024-04-01"])
		assert.Equal(t, "Youth Day", h["2024-06-16"])
		// 16 June 2024 is a Sunday
		assert.Equal(t, "Youth Day (observed)", h["2024-06-17"])
	})

	t.Run("observed does not replace an existing holiday", func(t *testing.T) {
		h := names(2022)
		// 25 December 2022 is a Sunday and 26 December is already a holiday
		assert.Equal(t, "Day of Goodwill", h["2022-12-26"])
	})

	t.Run("sorted", func(t *testing.T) {
		hs := PublicHolidays(2023)
		require.NotEmpty(t, hs)
		assert.Equal(t, "2023-01-01", hs[0].Date.Format(time.DateOnly))
		assert.Equal(t, "2023-01-02", hs[1].Date.Format(time.DateOnly))
		for i := 1; i < len(hs); i++ {
			assert.True(t, hs[i-1].Date.Before(hs[i].Date))
		}
	})
}

func TestCalendar(t *testing.T) {
	cal := NewCalendar(nil)
	at := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 10, 0, 0, 0, cal.Location)
	}

	t.Run("day types", func(t *testing.T) {
		assert.Equal(t, types.DayTypeWeekday, cal.DayTypeOf(at(2024, time.March, 20)))
		assert.Equal(t, types.DayTypeSunday, cal.DayTypeOf(at(2024, time.March, 21)))
		assert.Equal(t, types.DayTypeSaturday, cal.DayTypeOf(at(2024, time.March, 23)))
		assert.Equal(t, types.DayTypeSunday, cal.DayTypeOf(at(2024, time.March, 24)))
		assert.True(t, cal.IsWeekend(at(2024, time.March, 21)))
		assert.False(t, cal.IsWeekend(at(2024, time.March, 20)))
	})

	t.Run("seasons", func(t *testing.T) {
		assert.Equal(t, types.SeasonHighWinter, cal.SeasonOf(at(2024, time.June, 1)))
		assert.Equal(t, types.SeasonHighWinter, cal.SeasonOf(at(2024, time.August, 31)))
		assert.Equal(t, types.SeasonLowSummer, cal.SeasonOf(at(2024, time.September, 1)))
		assert.Equal(t, types.SeasonLowSummer, cal.SeasonOf(at(2024, time.January, 15)))
	})

	t.Run("added holiday", func(t *testing.T) {
		c := NewCalendar(nil)
		c.AddHoliday(time.Date(2024, time.May, 29, 0, 0, 0, 0, time.UTC), "Election Day")
		name, ok := c.HolidayName(time.Date(2024, time.May, 29, 9, 0, 0, 0, c.Location))
		require.True(t, ok)
		assert.Equal(t, "Election Day", name)
		assert.Equal(t, types.DayTypeSunday, c.DayTypeOf(time.Date(2024, time.May, 29, 9, 0, 0, 0, c.Location)))
	})

	t.Run("location matters", func(t *testing.T) {
		// 23:30 UTC on 20 March is already Human Rights Day in SAST
		ts := time.Date(2024, time.March, 20, 23, 30, 0, 0, time.UTC)
		assert.Equal(t, types.DayTypeSunday, cal.DayTypeOf(ts))
		assert.Equal(t, types.DayTypeWeekday, NewCalendar(time.UTC).DayTypeOf(ts))
	})
}
