// Package tariff classifies hours into time-of-use periods and prices
// consumption under South African tariff structures.
package tariff

import (
	"time"

	"github.com/solarroi/solarroi/pkg/types"
)

// Classify returns the rate row that applies to hour (0-23) on a day of
// dayType in season. A row for the exact season wins over an AllYear row.
// The boolean is false when no row covers the hour.
func Classify(t types.Tariff, hour int, dayType types.DayType, season types.Season) (types.TOURate, bool) {
	var (
		allYear      types.TOURate
		foundAllYear bool
	)
	for _, r := range t.Rates {
		if r.DayType != dayType || !r.ContainsHour(hour) {
			continue
		}
		if r.Season == season {
			return r, true
		}
		if r.Season == types.SeasonAllYear && !foundAllYear {
			allYear, foundAllYear = r, true
		}
	}
	return allYear, foundAllYear
}

// PeriodAt returns the period that applies at ts. Non time-of-use tariffs
// and uncovered hours are TOUPeriodAny.
func PeriodAt(t types.Tariff, ts time.Time, cal *Calendar) types.TOUPeriodKind {
	if t.Type != types.TariffTypeTimeOfUse {
		return types.TOUPeriodAny
	}
	if cal == nil {
		cal = NewCalendar(nil)
	}
	ts = ts.In(cal.Location)
	if r, ok := Classify(t, ts.Hour(), cal.DayTypeOf(ts), cal.SeasonOf(ts)); ok {
		return r.Period
	}
	return types.TOUPeriodAny
}

// DayPeriods classifies every hour of a day. Hours without a row are
// TOUPeriodAny.
func DayPeriods(t types.Tariff, dayType types.DayType, season types.Season) [types.HoursPerDay]types.TOUPeriodKind {
	var out [types.HoursPerDay]types.TOUPeriodKind
	for h := range out {
		if r, ok := Classify(t, h, dayType, season); ok {
			out[h] = r.Period
		} else {
			out[h] = types.TOUPeriodAny
		}
	}
	return out
}

// Block is a run of consecutive hours in the same period. EndHour is exclusive.
type Block struct {
	Period     types.TOUPeriodKind `json:"period"`
	StartHour  int                 `json:"startHour"`
	EndHour    int                 `json:"endHour"`
	RatePerKWh float64             `json:"ratePerKWh"`
}

// Boundaries returns the hours at which a new block starts. Hour 0 always
// starts a block; the previous day is never consulted.
func Boundaries(periods [types.HoursPerDay]types.TOUPeriodKind) []int {
	out := []int{0}
	for h := 1; h < types.HoursPerDay; h++ {
		if periods[h] != periods[h-1] {
			out = append(out, h)
		}
	}
	return out
}

// MergeBlocks merges adjacent hours sharing a period into blocks.
func MergeBlocks(periods [types.HoursPerDay]types.TOUPeriodKind) []Block {
	bounds := Boundaries(periods)
	blocks := make([]Block, 0, len(bounds))
	for i, start := range bounds {
		end := types.HoursPerDay
		if i+1 < len(bounds) {
			end = bounds[i+1]
		}
		blocks = append(blocks, Block{Period: periods[start], StartHour: start, EndHour: end})
	}
	return blocks
}

// DayBlocks returns the merged blocks of a day with their rates.
func DayBlocks(t types.Tariff, dayType types.DayType, season types.Season) []Block {
	blocks := MergeBlocks(DayPeriods(t, dayType, season))
	for i := range blocks {
		if r, ok := Classify(t, blocks[i].StartHour, dayType, season); ok {
			blocks[i].RatePerKWh = r.RatePerKWh
		}
	}
	return blocks
}
