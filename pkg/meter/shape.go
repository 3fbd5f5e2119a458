package meter

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/types"
)

// ImportMeta identifies the meter an import came from.
type ImportMeta struct {
	SiteName         string
	ShopName         string
	ShopNumber       string
	MeterLabel       string
	ReferenceAreaSqm float64
	SkippedRows      int
	// KeepReadings stores the raw readings on the import.
	KeepReadings bool
}

// IsWeekend returns true for Saturdays and Sundays.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

type dateKey struct {
	year  int
	month time.Month
	day   int
}

// BuildMeterImport turns interval readings into a MeterImport with average
// weekday and weekend load shapes. Readings within the same clock hour are
// summed, so the hourly kWh is also the average kW for that hour. Each hour of
// a shape is the mean over the dates of its kind that have a reading in that
// hour, so imports that start or end mid-day are not diluted.
func BuildMeterImport(ctx context.Context, readings []types.Reading, meta ImportMeta) types.MeterImport {
	mi := types.MeterImport{
		ID:               uuid.NewString(),
		SiteName:         meta.SiteName,
		ShopName:         meta.ShopName,
		ShopNumber:       meta.ShopNumber,
		MeterLabel:       meta.MeterLabel,
		ReferenceAreaSqm: meta.ReferenceAreaSqm,
		SkippedRows:      meta.SkippedRows,
		ImportedAt:       time.Now(),
	}
	if meta.KeepReadings {
		mi.Readings = readings
	}
	if len(readings) == 0 {
		log.Ctx(ctx).WarnContext(ctx, "meter import has no readings", slog.String("site", meta.SiteName))
		return mi
	}

	type hourKey struct {
		date dateKey
		hour int
	}
	weekdayDates := make(map[dateKey]struct{})
	weekendDates := make(map[dateKey]struct{})
	seenHours := make(map[hourKey]struct{})
	var weekdaySum, weekendSum [types.HoursPerDay]float64
	var weekdayCount, weekendCount [types.HoursPerDay]int

	for i, r := range readings {
		ts := r.Timestamp
		if i == 0 || ts.Before(mi.DateRangeStart) {
			mi.DateRangeStart = ts
		}
		if i == 0 || ts.After(mi.DateRangeEnd) {
			mi.DateRangeEnd = ts
		}
		y, m, d := ts.Date()
		key := dateKey{y, m, d}
		h := ts.Hour()
		hk := hourKey{key, h}
		_, seen := seenHours[hk]
		seenHours[hk] = struct{}{}
		if IsWeekend(ts) {
			weekendDates[key] = struct{}{}
			weekendSum[h] += r.Value
			if !seen {
				weekendCount[h]++
			}
		} else {
			weekdayDates[key] = struct{}{}
			weekdaySum[h] += r.Value
			if !seen {
				weekdayCount[h]++
			}
		}
	}

	mi.WeekdayDays = len(weekdayDates)
	mi.WeekendDays = len(weekendDates)
	for h := 0; h < types.HoursPerDay; h++ {
		if weekdayCount[h] > 0 {
			mi.LoadProfileWeekday[h] = weekdaySum[h] / float64(weekdayCount[h])
		}
		if weekendCount[h] > 0 {
			mi.LoadProfileWeekend[h] = weekendSum[h] / float64(weekendCount[h])
		}
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"built meter load shape",
		slog.String("id", mi.ID),
		slog.Int("weekdayDays", mi.WeekdayDays),
		slog.Int("weekendDays", mi.WeekendDays),
		slog.Time("start", mi.DateRangeStart),
		slog.Time("end", mi.DateRangeEnd),
	)
	return mi
}
