package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CurrentSettingsVersion is the current version of the project settings struct.
// Increment this value when adding new fields that require default values.
const CurrentSettingsVersion = 4

// DefaultTimezone is used when a project does not specify one.
const DefaultTimezone = "Africa/Johannesburg"

// ProjectSettings is the sizing, tariff and financial configuration of a
// project. They are stored alongside the project and migrated on load.
type ProjectSettings struct {
	// Location of the site. Used for irradiance lookups and the tariff calendar.
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`

	// Solar sizing
	SolarKWp float64 `json:"solarKWp"`
	// STC efficiency of the modules as a fraction (0.21 = 21%)
	ModuleEfficiency float64 `json:"moduleEfficiency"`
	// Collector area in m². 0 derives it from SolarKWp and ModuleEfficiency.
	CollectorAreaSqm float64 `json:"collectorAreaSqm"`
	// Inverter AC limit in kW. 0 disables clipping.
	InverterACLimitKW          float64            `json:"inverterACLimitKW"`
	ProductionReductionPercent float64            `json:"productionReductionPercent"`
	LossChain                  LossChainOverrides `json:"lossChain"`

	Battery BatterySettings `json:"battery"`

	// Tariff
	TariffID         string  `json:"tariffID"`
	ExportEnabled    bool    `json:"exportEnabled"`
	ExportRatePerKWh float64 `json:"exportRatePerKWh"`

	Costs      CostSchedule       `json:"costs"`
	Projection ProjectionSettings `json:"projection"`

	// DateOrder is the day/month order used when importing meter files ("DMY" or "MDY").
	DateOrder string `json:"dateOrder"`
	// DecimalSeparator is the decimal separator of meter file values ("auto", "." or ",").
	DecimalSeparator string `json:"decimalSeparator"`
	// ReportingWindow is the number of weekday and weekend days the load
	// totals are reported over. Zero reports a single typical day.
	ReportingWindow ReportingWindow `json:"reportingWindow"`
}

// BatterySettings describes the battery bank.
type BatterySettings struct {
	CapacityKWh                float64 `json:"capacityKWh"`
	PowerKW                    float64 `json:"powerKW"`
	RoundTripEfficiencyPercent float64 `json:"roundTripEfficiencyPercent"`
	// ReserveSOCPercent is the state of charge the battery never discharges below.
	ReserveSOCPercent float64 `json:"reserveSOCPercent"`
}

// ReportingWindow counts the days in a reporting window. When Start and End
// are set the days between them are counted instead, with public holidays
// counted as weekend days.
type ReportingWindow struct {
	WeekdayDays int        `json:"weekdayDays"`
	WeekendDays int        `json:"weekendDays"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
}

// AddOnCost is a fixed capital cost added before fees (e.g. grid connection).
type AddOnCost struct {
	Name   string          `json:"name" yaml:"name"`
	Amount decimal.Decimal `json:"amount" yaml:"amount"`
}

// CostSchedule is the capital cost schedule for a system.
type CostSchedule struct {
	CostPerKWp               decimal.Decimal `json:"costPerKWp"`
	CostPerKWhBattery        decimal.Decimal `json:"costPerKWhBattery"`
	AddOns                   []AddOnCost     `json:"addOns"`
	ProfessionalFeesPercent  decimal.Decimal `json:"professionalFeesPercent"`
	ProjectManagementPercent decimal.Decimal `json:"projectManagementPercent"`
	ContingencyPercent       decimal.Decimal `json:"contingencyPercent"`
}

// ProjectionSettings drive the multi-year savings projection.
type ProjectionSettings struct {
	Years                   int     `json:"years"`
	TariffEscalationPercent float64 `json:"tariffEscalationPercent"`
	DegradationPercent      float64 `json:"degradationPercent"`
	// OMPercent is the yearly operations and maintenance cost as a
	// percentage of the capital cost.
	OMPercent float64 `json:"omPercent"`
}

// MigrateSettings migrates the settings to the current version.
// It returns the migrated settings, a boolean indicating if changes were made, and an error if migration failed.
func MigrateSettings(s ProjectSettings, currentVersion int) (ProjectSettings, bool, error) {
	if currentVersion >= CurrentSettingsVersion {
		return s, false, nil
	}

	migrated := false
	for version := currentVersion + 1; version <= CurrentSettingsVersion; version++ {
		switch version {
		case 1:
			// version 1: initial
			if s.ModuleEfficiency == 0 {
				s.ModuleEfficiency = 0.21
				migrated = true
			}
			if s.Battery.RoundTripEfficiencyPercent == 0 {
				s.Battery.RoundTripEfficiencyPercent = 90
				migrated = true
			}
			if s.Battery.ReserveSOCPercent == 0 {
				s.Battery.ReserveSOCPercent = 10
				migrated = true
			}
			if s.Projection.Years == 0 {
				s.Projection.Years = 25
				migrated = true
			}
			// we don't assume escalation or export credits
		case 2:
			// version 2: add timezone and import date order
			if s.Timezone == "" {
				s.Timezone = DefaultTimezone
				migrated = true
			}
			if s.DateOrder == "" {
				s.DateOrder = "DMY"
				migrated = true
			}
		case 3:
			// version 3: add module degradation to the projection
			if s.Projection.DegradationPercent == 0 {
				s.Projection.DegradationPercent = 0.5
				migrated = true
			}
		case 4:
			// version 4: add the import decimal separator
			if s.DecimalSeparator == "" {
				s.DecimalSeparator = "auto"
				migrated = true
			}
		default:
			return s, false, fmt.Errorf("unknown settings version: %d", version)
		}
	}

	return s, migrated, nil
}
