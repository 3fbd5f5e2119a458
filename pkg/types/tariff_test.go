package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTOURateContainsHour(t *testing.T) {
	t.Run("simple range", func(t *testing.T) {
		r := TOURate{HourStart: 7, HourEnd: 10}
		assert.False(t, r.ContainsHour(6))
		assert.True(t, r.ContainsHour(7))
		assert.True(t, r.ContainsHour(9))
		assert.False(t, r.ContainsHour(10))
	})

	t.Run("wraps midnight", func(t *testing.T) {
		r := TOURate{HourStart: 22, HourEnd: 6}
		assert.True(t, r.ContainsHour(22))
		assert.True(t, r.ContainsHour(0))
		assert.True(t, r.ContainsHour(5))
		assert.False(t, r.ContainsHour(6))
		assert.False(t, r.ContainsHour(21))
	})

	t.Run("end past 24", func(t *testing.T) {
		r := TOURate{HourStart: 22, HourEnd: 30}
		assert.True(t, r.ContainsHour(23))
		assert.True(t, r.ContainsHour(5))
		assert.False(t, r.ContainsHour(6))
	})

	t.Run("full day", func(t *testing.T) {
		r := TOURate{HourStart: 0, HourEnd: 24}
		for h := 0; h < 24; h++ {
			assert.True(t, r.ContainsHour(h))
		}
	})
}

func TestTariffValidate(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		assert.Error(t, Tariff{Type: TariffTypeFixed}.Validate())
	})

	t.Run("fixed", func(t *testing.T) {
		assert.NoError(t, Tariff{ID: "f", Type: TariffTypeFixed, FlatRatePerKWh: 2.5}.Validate())
	})

	t.Run("blocks must increase", func(t *testing.T) {
		tariff := Tariff{
			ID:   "b",
			Type: TariffTypeIncliningBlock,
			Blocks: []BlockRate{
				{UpToKWh: 600, RatePerKWh: 2},
				{UpToKWh: 500, RatePerKWh: 3},
			},
		}
		assert.Error(t, tariff.Validate())
	})

	t.Run("unbounded block only last", func(t *testing.T) {
		tariff := Tariff{
			ID:   "b",
			Type: TariffTypeIncliningBlock,
			Blocks: []BlockRate{
				{UpToKWh: 0, RatePerKWh: 2},
				{UpToKWh: 500, RatePerKWh: 3},
			},
		}
		assert.Error(t, tariff.Validate())

		tariff.Blocks = []BlockRate{{UpToKWh: 500, RatePerKWh: 2}, {RatePerKWh: 3}}
		assert.NoError(t, tariff.Validate())
	})

	t.Run("tou unknown period", func(t *testing.T) {
		tariff := Tariff{
			ID:    "t",
			Type:  TariffTypeTimeOfUse,
			Rates: []TOURate{{Period: "shoulder", DayType: DayTypeWeekday, Season: SeasonAllYear, HourStart: 0, HourEnd: 24}},
		}
		assert.Error(t, tariff.Validate())
	})

	t.Run("tou ok", func(t *testing.T) {
		tariff := Tariff{
			ID:    "t",
			Type:  TariffTypeTimeOfUse,
			Rates: []TOURate{{Period: TOUPeriodOffPeak, DayType: DayTypeSunday, Season: SeasonAllYear, HourStart: 0, HourEnd: 24, RatePerKWh: 1}},
		}
		assert.NoError(t, tariff.Validate())
	})

	t.Run("unknown type", func(t *testing.T) {
		assert.Error(t, Tariff{ID: "x", Type: "weird"}.Validate())
	})
}
