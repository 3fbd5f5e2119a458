package tariff

import (
	"github.com/solarroi/solarroi/pkg/types"
)

// touSchedule is the hour layout shared by both seasons of a TOU tariff.
type touSchedule struct {
	dayType types.DayType
	period  types.TOUPeriodKind
	start   int
	end     int
}

// megaflexSchedule follows the Eskom Megaflex time-of-use hours.
var megaflexSchedule = []touSchedule{
	{types.DayTypeWeekday, types.TOUPeriodPeak, 7, 10},
	{types.DayTypeWeekday, types.TOUPeriodPeak, 18, 20},
	{types.DayTypeWeekday, types.TOUPeriodStandard, 6, 7},
	{types.DayTypeWeekday, types.TOUPeriodStandard, 10, 18},
	{types.DayTypeWeekday, types.TOUPeriodStandard, 20, 22},
	{types.DayTypeWeekday, types.TOUPeriodOffPeak, 22, 6},

	{types.DayTypeSaturday, types.TOUPeriodStandard, 7, 12},
	{types.DayTypeSaturday, types.TOUPeriodStandard, 18, 20},
	{types.DayTypeSaturday, types.TOUPeriodOffPeak, 12, 18},
	{types.DayTypeSaturday, types.TOUPeriodOffPeak, 20, 31},

	{types.DayTypeSunday, types.TOUPeriodOffPeak, 0, 24},
}

func scheduleRates(schedule []touSchedule, season types.Season, rates map[types.TOUPeriodKind]float64) []types.TOURate {
	out := make([]types.TOURate, 0, len(schedule))
	for _, s := range schedule {
		out = append(out, types.TOURate{
			Period:     s.period,
			DayType:    s.dayType,
			Season:     season,
			HourStart:  s.start,
			HourEnd:    s.end,
			RatePerKWh: rates[s.period],
		})
	}
	return out
}

// megaflexExample is an illustrative Megaflex-style tariff in R/kWh. The rates
// are indicative and not a published tariff book.
func megaflexExample() types.Tariff {
	rates := scheduleRates(megaflexSchedule, types.SeasonHighWinter, map[types.TOUPeriodKind]float64{
		types.TOUPeriodPeak:     6.34,
		types.TOUPeriodStandard: 1.92,
		types.TOUPeriodOffPeak:  1.05,
	})
	rates = append(rates, scheduleRates(megaflexSchedule, types.SeasonLowSummer, map[types.TOUPeriodKind]float64{
		types.TOUPeriodPeak:     2.07,
		types.TOUPeriodStandard: 1.43,
		types.TOUPeriodOffPeak:  0.91,
	})...)
	return types.Tariff{
		ID:                 "eskom_megaflex_example",
		Name:               "Eskom Megaflex (example)",
		Type:               types.TariffTypeTimeOfUse,
		Rates:              rates,
		FixedMonthlyCharge: 2450,
		DemandChargePerKVA: 82.5,
		VoltageLevel:       ">= 500V & < 66kV",
	}
}

func municipalBlockExample() types.Tariff {
	return types.Tariff{
		ID:   "municipal_block_example",
		Name: "Municipal inclining block (example)",
		Type: types.TariffTypeIncliningBlock,
		Blocks: []types.BlockRate{
			{UpToKWh: 500, RatePerKWh: 2.55},
			{UpToKWh: 1000, RatePerKWh: 2.95},
			{RatePerKWh: 3.35},
		},
		FixedMonthlyCharge: 350,
		VoltageLevel:       "< 500V",
	}
}

func flatExample() types.Tariff {
	return types.Tariff{
		ID:             "flat_example",
		Name:           "Flat rate (example)",
		Type:           types.TariffTypeFixed,
		FlatRatePerKWh: 2.90,
		VoltageLevel:   "< 500V",
	}
}

// Builtin returns the tariffs that ship with the service.
func Builtin() []types.Tariff {
	return []types.Tariff{
		megaflexExample(),
		municipalBlockExample(),
		flatExample(),
	}
}
