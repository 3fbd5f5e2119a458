package load

import (
	"time"

	"github.com/solarroi/solarroi/pkg/types"
)

// AnnualProfile expands typical weekday and weekend shapes into an hourly
// series for every day of year (8760 hours, 8784 in leap years). isWeekend
// decides which shape a date uses; nil means Saturday and Sunday.
func AnnualProfile(weekday, weekend [types.HoursPerDay]float64, year int, isWeekend func(time.Time) bool) []float64 {
	if isWeekend == nil {
		isWeekend = isSatSun
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	out := make([]float64, 0, types.HoursPerYear+types.HoursPerDay)
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		shape := &weekday
		if isWeekend(d) {
			shape = &weekend
		}
		out = append(out, shape[:]...)
	}
	return out
}
