package meter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const localLayout = "2006-01-02T15:04:05"

func TestParserFormats(t *testing.T) {
	p := NewParser(DMY, nil)

	check := func(t *testing.T, date, clock, want string) {
		t.Helper()
		got, ok := p.Parse(date, clock)
		require.True(t, ok, "failed to parse %q %q", date, clock)
		assert.Equal(t, want, got.Format(localLayout))
		assert.Equal(t, DefaultLocation(), got.Location())
	}

	t.Run("iso date time", func(t *testing.T) {
		check(t, "2024-03-15 08:45", "", "2024-03-15T08:45:00")
		check(t, "2024-03-15", "08:45", "2024-03-15T08:45:00")
	})

	t.Run("day first slashes", func(t *testing.T) {
		check(t, "15/03/2024 08:45", "", "2024-03-15T08:45:00")
		check(t, "5-3-2024", "7:05", "2024-03-05T07:05:00")
	})

	t.Run("month abbreviation", func(t *testing.T) {
		check(t, "31-Jan-24", "23:30", "2024-01-31T23:30:00")
		check(t, "05-jan-2024 10:00:15", "", "2024-01-05T10:00:15")
		check(t, "1 DEC 23", "", "2023-12-01T00:00:00")
	})

	t.Run("dotted year first", func(t *testing.T) {
		check(t, "2024.03.15 08:45:30", "", "2024-03-15T08:45:30")
	})

	t.Run("year first single digits", func(t *testing.T) {
		check(t, "2024/3/5 7:05", "", "2024-03-05T07:05:00")
	})

	t.Run("rfc3339 converted to location", func(t *testing.T) {
		check(t, "2024-03-15T06:45:00Z", "", "2024-03-15T08:45:00")
	})

	t.Run("end of day", func(t *testing.T) {
		check(t, "31/01/2024", "24:00", "2024-02-01T00:00:00")
	})

	t.Run("extra whitespace", func(t *testing.T) {
		check(t, "  15/03/2024  ", " 08:45 ", "2024-03-15T08:45:00")
	})
}

func TestParserDateOrder(t *testing.T) {
	t.Run("ambiguous follows flag", func(t *testing.T) {
		dmy, ok := NewParser(DMY, nil).Parse("03/04/2024", "")
		require.True(t, ok)
		assert.Equal(t, time.April, dmy.Month())
		assert.Equal(t, 3, dmy.Day())

		mdy, ok := NewParser(MDY, nil).Parse("03/04/2024", "")
		require.True(t, ok)
		assert.Equal(t, time.March, mdy.Month())
		assert.Equal(t, 4, mdy.Day())
	})

	t.Run("only valid reading wins", func(t *testing.T) {
		got, ok := NewParser(MDY, nil).Parse("13/04/2024", "")
		require.True(t, ok)
		assert.Equal(t, "2024-04-13T00:00:00", got.Format(localLayout))

		got, ok = NewParser(DMY, nil).Parse("04/13/2024", "")
		require.True(t, ok)
		assert.Equal(t, "2024-04-13T00:00:00", got.Format(localLayout))
	})

	t.Run("parse order", func(t *testing.T) {
		o, err := ParseDateOrder("mdy")
		require.NoError(t, err)
		assert.Equal(t, MDY, o)

		o, err = ParseDateOrder("")
		require.NoError(t, err)
		assert.Equal(t, DMY, o)

		_, err = ParseDateOrder("ymd")
		assert.Error(t, err)
	})
}

func TestParserFailures(t *testing.T) {
	p := NewParser(DMY, time.UTC)
	for _, s := range []string{
		"",
		"garbage",
		"31/02/2024",
		"2024-02-30",
		"32/01/2024",
		"15/03/2024 25:00",
		"15/03/2024 10:61",
		"15-Foo-24",
		"13/13/2024",
	} {
		_, ok := p.Parse(s, "")
		assert.False(t, ok, "expected %q to fail", s)
	}
}

func TestParserLocation(t *testing.T) {
	loc := time.FixedZone("TEST", -3*60*60)
	got, ok := NewParser(DMY, loc).Parse("15/03/2024", "08:45")
	require.True(t, ok)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 8, got.Hour())
}
