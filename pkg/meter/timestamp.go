package meter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateOrder decides how ambiguous numeric dates such as 03/04/2024 are read.
// It is never guessed from the data.
type DateOrder int

const (
	// DMY reads 03/04/2024 as 3 April 2024.
	DMY DateOrder = iota
	// MDY reads 03/04/2024 as 4 March 2024.
	MDY
)

func (o DateOrder) String() string {
	if o == MDY {
		return "MDY"
	}
	return "DMY"
}

// ParseDateOrder parses "DMY" or "MDY". An empty string is DMY.
func ParseDateOrder(s string) (DateOrder, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "DMY", "DAY-MONTH-YEAR":
		return DMY, nil
	case "MDY", "MONTH-DAY-YEAR":
		return MDY, nil
	}
	return DMY, fmt.Errorf("unknown date order: %q", s)
}

// sastLocation is South African Standard Time. SA has no daylight saving so
// a fixed zone is correct when the tz database is unavailable.
var sastLocation = func() *time.Location {
	loc, err := time.LoadLocation("Africa/Johannesburg")
	if err != nil {
		return time.FixedZone("SAST", 2*60*60)
	}
	return loc
}()

// DefaultLocation is the location timestamps without an offset are read in.
func DefaultLocation() *time.Location {
	return sastLocation
}

// layouts that are unambiguous regardless of DateOrder. Day-first forms are
// deliberately absent so the order flag stays authoritative for them.
var directLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
}

const clockPattern = `(?:[ T]+(\d{1,2}):(\d{2})(?::(\d{2}))?)?`

var (
	dayFirstRE  = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})` + clockPattern + `$`)
	yearFirstRE = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})[/-](\d{1,2})` + clockPattern + `$`)
	monthNameRE = regexp.MustCompile(`^(\d{1,2})[/\- ]([A-Za-z]{3})[/\- ](\d{4}|\d{2})` + clockPattern + `$`)
)

var monthAbbreviations = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}

// Parser converts the textual timestamps found in SCADA exports into times.
// A failed parse is reported with ok=false so callers can skip the row.
type Parser struct {
	Order    DateOrder
	Location *time.Location
}

// NewParser returns a Parser for the given order. A nil location uses
// DefaultLocation.
func NewParser(order DateOrder, loc *time.Location) *Parser {
	if loc == nil {
		loc = DefaultLocation()
	}
	return &Parser{Order: order, Location: loc}
}

func (p *Parser) location() *time.Location {
	if p.Location == nil {
		return DefaultLocation()
	}
	return p.Location
}

// Parse parses a date and an optional separate clock string.
func (p *Parser) Parse(date, clock string) (time.Time, bool) {
	s := strings.Join(strings.Fields(strings.TrimSpace(date+" "+clock)), " ")
	if s == "" {
		return time.Time{}, false
	}
	loc := p.location()

	for _, layout := range directLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t.In(loc), true
		}
	}

	if m := dayFirstRE.FindStringSubmatch(s); m != nil {
		a, b, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
		day, month := a, b
		if p.Order == MDY {
			day, month = b, a
		}
		if t, ok := p.build(year, month, day, m[4:]); ok {
			return t, true
		}
		// the other reading is only used when it is the only valid one
		if day > 12 || month <= 12 {
			return time.Time{}, false
		}
		return p.build(year, day, month, m[4:])
	}

	if m := yearFirstRE.FindStringSubmatch(s); m != nil {
		return p.build(atoi(m[1]), atoi(m[2]), atoi(m[3]), m[4:])
	}

	if m := monthNameRE.FindStringSubmatch(s); m != nil {
		month, ok := monthAbbreviations[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, false
		}
		year := atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		return p.build(year, int(month), atoi(m[1]), m[4:])
	}

	return time.Time{}, false
}

// build validates the calendar date and clock and returns the time. clock
// holds the optional hour, minute and second captures. 24:00 is accepted as
// midnight at the end of the day.
func (p *Parser) build(year, month, day int, clock []string) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	var hour, minute, second int
	if len(clock) == 3 && clock[0] != "" {
		hour, minute = atoi(clock[0]), atoi(clock[1])
		if clock[2] != "" {
			second = atoi(clock[2])
		}
	}
	if minute > 59 || second > 59 {
		return time.Time{}, false
	}
	endOfDay := false
	if hour == 24 && minute == 0 && second == 0 {
		hour = 0
		endOfDay = true
	} else if hour > 23 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, p.location())
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		// time.Date normalizes 31 Feb into March
		return time.Time{}, false
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return t, true
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
