package types

import (
	"errors"
	"fmt"
	"math"
)

// TOUPeriodKind is the time-of-use bucket an hour falls into.
type TOUPeriodKind string

const (
	TOUPeriodPeak         TOUPeriodKind = "peak"
	TOUPeriodStandard     TOUPeriodKind = "standard"
	TOUPeriodOffPeak      TOUPeriodKind = "offPeak"
	TOUPeriodHighDemand   TOUPeriodKind = "highDemand"
	TOUPeriodLowDemand    TOUPeriodKind = "lowDemand"
	TOUPeriodCriticalPeak TOUPeriodKind = "criticalPeak"
	TOUPeriodAny          TOUPeriodKind = "any"
)

// Valid returns true if the kind is one of the known periods.
func (k TOUPeriodKind) Valid() bool {
	switch k {
	case TOUPeriodPeak, TOUPeriodStandard, TOUPeriodOffPeak, TOUPeriodHighDemand,
		TOUPeriodLowDemand, TOUPeriodCriticalPeak, TOUPeriodAny:
		return true
	}
	return false
}

// DayType groups calendar days for tariff purposes. Public holidays are
// treated as Sundays.
type DayType string

const (
	DayTypeWeekday  DayType = "weekday"
	DayTypeSaturday DayType = "saturday"
	DayTypeSunday   DayType = "sunday"
)

// Season is the tariff season. AllYear rows apply in every season but are
// overridden by a season-specific row for the same hour.
type Season string

const (
	SeasonAllYear    Season = "allYear"
	SeasonHighWinter Season = "highWinter"
	SeasonLowSummer  Season = "lowSummer"
)

// TOURate is one row of a time-of-use tariff. HourEnd is exclusive and may be
// less than HourStart to wrap past midnight (e.g. 22 to 6).
type TOURate struct {
	Period             TOUPeriodKind `json:"period" yaml:"period"`
	DayType            DayType       `json:"dayType" yaml:"day_type"`
	Season             Season        `json:"season" yaml:"season"`
	HourStart          int           `json:"hourStart" yaml:"hour_start"`
	HourEnd            int           `json:"hourEnd" yaml:"hour_end"`
	RatePerKWh         float64       `json:"ratePerKWh" yaml:"rate_per_kwh"`
	DemandChargePerKVA float64       `json:"demandChargePerKVA,omitempty" yaml:"demand_charge_per_kva"`
}

// ContainsHour checks if hour (0-23) falls within the row's hour window.
func (r TOURate) ContainsHour(hour int) bool {
	start, end := r.HourStart, r.HourEnd
	if end > HoursPerDay {
		end -= HoursPerDay
	}
	if start == end {
		// full day
		return true
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// TariffType is the structure of a tariff.
type TariffType string

const (
	TariffTypeFixed          TariffType = "fixed"
	TariffTypeIncliningBlock TariffType = "incliningBlock"
	TariffTypeTimeOfUse      TariffType = "timeOfUse"
)

// BlockRate is one step of an inclining-block tariff. UpToKWh is the upper
// bound of monthly consumption billed at RatePerKWh. Zero means unbounded and
// is only valid on the last block.
type BlockRate struct {
	UpToKWh    float64 `json:"upToKWh" yaml:"up_to_kwh"`
	RatePerKWh float64 `json:"ratePerKWh" yaml:"rate_per_kwh"`
}

// Tariff is a named rate structure.
type Tariff struct {
	ID                 string      `json:"id" yaml:"id"`
	Name               string      `json:"name" yaml:"name"`
	Type               TariffType  `json:"type" yaml:"type"`
	Rates              []TOURate   `json:"rates,omitempty" yaml:"rates"`
	Blocks             []BlockRate `json:"blocks,omitempty" yaml:"blocks"`
	FlatRatePerKWh     float64     `json:"flatRatePerKWh,omitempty" yaml:"flat_rate_per_kwh"`
	FixedMonthlyCharge float64     `json:"fixedMonthlyCharge,omitempty" yaml:"fixed_monthly_charge"`
	DemandChargePerKVA float64     `json:"demandChargePerKVA,omitempty" yaml:"demand_charge_per_kva"`
	VoltageLevel       string      `json:"voltageLevel,omitempty" yaml:"voltage_level"`
}

// Validate checks the tariff for structural problems that would make cost
// calculations meaningless.
func (t Tariff) Validate() error {
	if t.ID == "" {
		return errors.New("tariff id is required")
	}
	if t.FixedMonthlyCharge < 0 || t.DemandChargePerKVA < 0 {
		return fmt.Errorf("tariff %s: charges cannot be negative", t.ID)
	}
	switch t.Type {
	case TariffTypeFixed:
		if t.FlatRatePerKWh < 0 || math.IsNaN(t.FlatRatePerKWh) {
			return fmt.Errorf("tariff %s: invalid flat rate %v", t.ID, t.FlatRatePerKWh)
		}
	case TariffTypeIncliningBlock:
		if len(t.Blocks) == 0 {
			return fmt.Errorf("tariff %s: inclining block tariff has no blocks", t.ID)
		}
		prev := 0.0
		for i, b := range t.Blocks {
			last := i == len(t.Blocks)-1
			if b.UpToKWh == 0 && !last {
				return fmt.Errorf("tariff %s: only the last block can be unbounded", t.ID)
			}
			if b.UpToKWh != 0 && b.UpToKWh <= prev {
				return fmt.Errorf("tariff %s: block %d upper bound %v is not increasing", t.ID, i, b.UpToKWh)
			}
			if b.RatePerKWh < 0 {
				return fmt.Errorf("tariff %s: block %d has a negative rate", t.ID, i)
			}
			prev = b.UpToKWh
		}
	case TariffTypeTimeOfUse:
		if len(t.Rates) == 0 {
			return fmt.Errorf("tariff %s: time-of-use tariff has no rates", t.ID)
		}
		for i, r := range t.Rates {
			if !r.Period.Valid() {
				return fmt.Errorf("tariff %s: rate %d has unknown period %q", t.ID, i, r.Period)
			}
			switch r.DayType {
			case DayTypeWeekday, DayTypeSaturday, DayTypeSunday:
			default:
				return fmt.Errorf("tariff %s: rate %d has unknown day type %q", t.ID, i, r.DayType)
			}
			switch r.Season {
			case SeasonAllYear, SeasonHighWinter, SeasonLowSummer:
			default:
				return fmt.Errorf("tariff %s: rate %d has unknown season %q", t.ID, i, r.Season)
			}
			if r.HourStart < 0 || r.HourStart > 23 || r.HourEnd < 0 || r.HourEnd > 2*HoursPerDay {
				return fmt.Errorf("tariff %s: rate %d has invalid hours %d-%d", t.ID, i, r.HourStart, r.HourEnd)
			}
			if r.RatePerKWh < 0 {
				return fmt.Errorf("tariff %s: rate %d is negative", t.ID, i)
			}
		}
	default:
		return fmt.Errorf("tariff %s: unknown type %q", t.ID, t.Type)
	}
	return nil
}

// TariffInfo provides metadata about an available tariff.
type TariffInfo struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Type         TariffType `json:"type"`
	VoltageLevel string     `json:"voltageLevel,omitempty"`
	Custom       bool       `json:"custom,omitempty"`
}
