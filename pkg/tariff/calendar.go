package tariff

import (
	"slices"
	"sync"
	"time"

	"github.com/solarroi/solarroi/pkg/types"
)

// sastLocation is South African Standard Time. There is no daylight saving so
// the fixed zone is exact when the tz database is missing.
var sastLocation = func() *time.Location {
	loc, err := time.LoadLocation("Africa/Johannesburg")
	if err != nil {
		return time.FixedZone("SAST", 2*60*60)
	}
	return loc
}()

type dateKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time) dateKey {
	y, m, d := t.Date()
	return dateKey{y, m, d}
}

// Calendar decides the tariff day type and season of a date. Public holidays
// are billed as Sundays.
type Calendar struct {
	Location *time.Location

	mu       sync.Mutex
	years    map[int]struct{}
	holidays map[dateKey]string
}

// NewCalendar returns a Calendar with South African public holidays. A nil
// location uses Africa/Johannesburg.
func NewCalendar(loc *time.Location) *Calendar {
	if loc == nil {
		loc = sastLocation
	}
	return &Calendar{
		Location: loc,
		years:    make(map[int]struct{}),
		holidays: make(map[dateKey]string),
	}
}

// AddHoliday adds a once-off holiday, e.g. one declared by the president.
func (c *Calendar) AddHoliday(date time.Time, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holidays[keyOf(date)] = name
}

// HolidayName returns the name of the public holiday on t's date.
func (c *Calendar) HolidayName(t time.Time) (string, bool) {
	t = t.In(c.Location)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.years[t.Year()]; !ok {
		for _, h := range PublicHolidays(t.Year()) {
			if _, exists := c.holidays[keyOf(h.Date)]; !exists {
				c.holidays[keyOf(h.Date)] = h.Name
			}
		}
		c.years[t.Year()] = struct{}{}
	}
	name, ok := c.holidays[keyOf(t)]
	return name, ok
}

// DayTypeOf returns the tariff day type of t's date.
func (c *Calendar) DayTypeOf(t time.Time) types.DayType {
	t = t.In(c.Location)
	if _, ok := c.HolidayName(t); ok {
		return types.DayTypeSunday
	}
	switch t.Weekday() {
	case time.Sunday:
		return types.DayTypeSunday
	case time.Saturday:
		return types.DayTypeSaturday
	}
	return types.DayTypeWeekday
}

// IsWeekend returns true for Saturdays, Sundays and public holidays.
func (c *Calendar) IsWeekend(t time.Time) bool {
	return c.DayTypeOf(t) != types.DayTypeWeekday
}

// SeasonOf returns HighWinter for June to August and LowSummer otherwise.
func (c *Calendar) SeasonOf(t time.Time) types.Season {
	switch t.In(c.Location).Month() {
	case time.June, time.July, time.August:
		return types.SeasonHighWinter
	}
	return types.SeasonLowSummer
}

// Holiday is a public holiday. Date is noon UTC on the holiday.
type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// PublicHolidays returns the South African public holidays of year in date
// order. A holiday on a Sunday moves the following Monday into the set.
func PublicHolidays(year int) []Holiday {
	fixed := []struct {
		month time.Month
		day   int
		name  string
	}{
		{time.January, 1, "New Year's Day"},
		{time.March, 21, "Human Rights Day"},
		{time.April, 27, "Freedom Day"},
		{time.May, 1, "Workers' Day"},
		{time.June, 16, "Youth Day"},
		{time.August, 9, "National Women's Day"},
		{time.September, 24, "Heritage Day"},
		{time.December, 16, "Day of Reconciliation"},
		{time.December, 25, "Christmas Day"},
		{time.December, 26, "Day of Goodwill"},
	}

	out := make(map[dateKey]string, len(fixed)+4)
	var sundays []time.Time
	for _, f := range fixed {
		d := time.Date(year, f.month, f.day, 12, 0, 0, 0, time.UTC)
		out[keyOf(d)] = f.name
		if d.Weekday() == time.Sunday {
			sundays = append(sundays, d)
		}
	}

	easter := EasterSunday(year)
	out[keyOf(easter.AddDate(0, 0, -2))] = "Good Friday"
	out[keyOf(easter.AddDate(0, 0, 1))] = "Family Day"

	for _, d := range sundays {
		monday := d.AddDate(0, 0, 1)
		if _, ok := out[keyOf(monday)]; !ok {
			out[keyOf(monday)] = out[keyOf(d)] + " (observed)"
		}
	}

	holidays := make([]Holiday, 0, len(out))
	for k, name := range out {
		holidays = append(holidays, Holiday{Date: time.Date(k.year, k.month, k.day, 12, 0, 0, 0, time.UTC), Name: name})
	}
	slices.SortFunc(holidays, func(a, b Holiday) int {
		return a.Date.Compare(b.Date)
	})
	return holidays
}

// EasterSunday returns the date of Western Easter Sunday (at noon UTC).
func EasterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
}
