package pvsyst

import (
	"time"

	"github.com/solarroi/solarroi/pkg/types"
)

// TypicalDay averages an hourly series by hour of day. A trailing partial day
// contributes only to the hours it covers.
func TypicalDay(series []float64) [types.HoursPerDay]float64 {
	var sums [types.HoursPerDay]float64
	var counts [types.HoursPerDay]int
	for i, v := range series {
		h := i % types.HoursPerDay
		sums[h] += v
		counts[h]++
	}
	var out [types.HoursPerDay]float64
	for h := range out {
		if counts[h] > 0 {
			out[h] = sums[h] / float64(counts[h])
		}
	}
	return out
}

// MonthlyTotals sums an hourly series starting at midnight on 1 January of
// year into calendar months. Hours past the end of the year are ignored.
func MonthlyTotals(series []float64, year int) [12]float64 {
	var out [12]float64
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range series {
		t := start.Add(time.Duration(i) * time.Hour)
		if t.Year() != year {
			break
		}
		out[t.Month()-1] += v
	}
	return out
}
