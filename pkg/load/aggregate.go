package load

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/solarroi/solarroi/pkg/types"
)

// ExcludedTenant is a tenant left out of the totals and why.
type ExcludedTenant struct {
	TenantID string
	Name     string
	Warnings []string
}

// Totals is the property load summed over included tenants. NoData is true
// when nothing was included, so callers can show "no data" rather than zero.
type Totals struct {
	Weekday  DayLoad
	Weekend  DayLoad
	Included int
	Excluded []ExcludedTenant
	NoData   bool
}

// Aggregate sums the loads of all included tenants.
func Aggregate(loads []TenantLoad) Totals {
	var (
		totals Totals
		wd, we [types.HoursPerDay]float64
	)
	for _, l := range loads {
		if l.Status != Included {
			totals.Excluded = append(totals.Excluded, ExcludedTenant{
				TenantID: l.Tenant.ID,
				Name:     l.Tenant.Name,
				Warnings: l.Warnings,
			})
			continue
		}
		totals.Included++
		floats.Add(wd[:], l.Weekday.HourlyKW[:])
		floats.Add(we[:], l.Weekend.HourlyKW[:])
	}
	totals.Weekday = newDayLoad(wd)
	totals.Weekend = newDayLoad(we)
	totals.NoData = totals.Included == 0
	return totals
}

// WindowKWh is the energy over a window of weekdays and weekend days, given
// typical-day totals.
func (t Totals) WindowKWh(w Window) float64 {
	return t.Weekday.DailyKWh*float64(w.WeekdayDays) + t.Weekend.DailyKWh*float64(w.WeekendDays)
}

// WindowBetween counts the weekday and weekend days from start to end
// inclusive, using weekend to classify days. A nil weekend uses Saturday and
// Sunday.
func WindowBetween(start, end time.Time, weekend func(time.Time) bool) Window {
	if weekend == nil {
		weekend = isSatSun
	}
	var w Window
	if end.Before(start) {
		return w
	}
	d := time.Date(start.Year(), start.Month(), start.Day(), 12, 0, 0, 0, start.Location())
	last := time.Date(end.Year(), end.Month(), end.Day(), 12, 0, 0, 0, start.Location())
	for !d.After(last) {
		if weekend(d) {
			w.WeekendDays++
		} else {
			w.WeekdayDays++
		}
		d = d.AddDate(0, 0, 1)
	}
	return w
}

func isSatSun(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
