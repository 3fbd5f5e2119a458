package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoadSourceKind identifies which data path produced a tenant's load.
type LoadSourceKind string

const (
	LoadSourceNone     LoadSourceKind = "none"
	LoadSourceStacked  LoadSourceKind = "stacked"
	LoadSourceMeter    LoadSourceKind = "meter"
	LoadSourceShopType LoadSourceKind = "shopType"
)

// TenantResult is the resolved load of one tenant for a typical weekday and
// weekend day.
type TenantResult struct {
	TenantID        string               `json:"tenantID"`
	TenantName      string               `json:"tenantName"`
	Source          LoadSourceKind       `json:"source"`
	Included        bool                 `json:"included"`
	AreaScale       float64              `json:"areaScale"`
	WeekdayHourlyKW [HoursPerDay]float64 `json:"weekdayHourlyKW"`
	WeekdayDailyKWh float64              `json:"weekdayDailyKWh"`
	WeekendHourlyKW [HoursPerDay]float64 `json:"weekendHourlyKW"`
	WeekendDailyKWh float64              `json:"weekendDailyKWh"`
	Warnings        []string             `json:"warnings,omitempty"`
}

// LoadSummary is the aggregate load over all included tenants. NoData is set
// when no tenant had a usable source so the totals must not be shown as zero.
type LoadSummary struct {
	WeekdayHourlyKW  [HoursPerDay]float64 `json:"weekdayHourlyKW"`
	WeekdayDailyKWh  float64              `json:"weekdayDailyKWh"`
	WeekendHourlyKW  [HoursPerDay]float64 `json:"weekendHourlyKW"`
	WeekendDailyKWh  float64              `json:"weekendDailyKWh"`
	WindowKWh        float64              `json:"windowKWh"`
	AnnualKWh        float64              `json:"annualKWh"`
	IncludedTenants  int                  `json:"includedTenants"`
	ExcludedTenants  int                  `json:"excludedTenants"`
	NoData           bool                 `json:"noData"`
	SkippedMeterRows int                  `json:"skippedMeterRows"`
}

// SolarSummary describes the converted PV generation.
type SolarSummary struct {
	AnnualDCKWh            float64              `json:"annualDCKWh"`
	AnnualACKWh            float64              `json:"annualACKWh"`
	ClippedKWh             float64              `json:"clippedKWh"`
	DCLossMultiplier       float64              `json:"dcLossMultiplier"`
	InverterLossMultiplier float64              `json:"inverterLossMultiplier"`
	SpecificYield          float64              `json:"specificYield"`
	TypicalDayACKWh        [HoursPerDay]float64 `json:"typicalDayACKWh"`
	MonthlyACKWh           [12]float64          `json:"monthlyACKWh"`
}

// EnergyStats are the energy flows over a simulated period.
type EnergyStats struct {
	LoadKWh       float64 `json:"loadKWh"`
	SolarKWh      float64 `json:"solarKWh"`
	GridImportKWh float64 `json:"gridImportKWh"`
	GridExportKWh float64 `json:"gridExportKWh"`
	CurtailedKWh  float64 `json:"curtailedKWh"`

	BatteryChargedKWh float64 `json:"batteryChargedKWh"`
	BatteryUsedKWh    float64 `json:"batteryUsedKWh"`

	// Source to destination
	SolarToLoadKWh    float64 `json:"solarToLoadKWh"`
	SolarToBatteryKWh float64 `json:"solarToBatteryKWh"`
	SolarToGridKWh    float64 `json:"solarToGridKWh"`
	BatteryToLoadKWh  float64 `json:"batteryToLoadKWh"`
}

// PeriodCost is the energy and cost billed in one TOU period.
type PeriodCost struct {
	KWh  float64 `json:"kWh"`
	Cost float64 `json:"cost"`
}

// CostBreakdown is the bill for a consumption series under a tariff.
type CostBreakdown struct {
	TariffID      string                       `json:"tariffID"`
	EnergyKWh     float64                      `json:"energyKWh"`
	EnergyCharge  float64                      `json:"energyCharge"`
	FixedCharges  float64                      `json:"fixedCharges"`
	DemandCharge  float64                      `json:"demandCharge"`
	Total         float64                      `json:"total"`
	ByPeriod      map[TOUPeriodKind]PeriodCost `json:"byPeriod,omitempty"`
	MonthlyTotals [12]float64                  `json:"monthlyTotals"`
}

// CostWaterfall exposes every stage of the capital cost calculation.
type CostWaterfall struct {
	Base                  decimal.Decimal `json:"base"`
	SolarCost             decimal.Decimal `json:"solarCost"`
	BatteryCost           decimal.Decimal `json:"batteryCost"`
	AddOnsTotal           decimal.Decimal `json:"addOnsTotal"`
	SubtotalBeforeFees    decimal.Decimal `json:"subtotalBeforeFees"`
	ProfessionalFees      decimal.Decimal `json:"professionalFees"`
	ProjectManagementFees decimal.Decimal `json:"projectManagementFees"`
	SubtotalWithFees      decimal.Decimal `json:"subtotalWithFees"`
	Contingency           decimal.Decimal `json:"contingency"`
	TotalCapitalCost      decimal.Decimal `json:"totalCapitalCost"`
}

// ProjectionYear is one year of the savings projection.
type ProjectionYear struct {
	Year              int     `json:"year"`
	SolarKWh          float64 `json:"solarKWh"`
	Savings           float64 `json:"savings"`
	OMCost            float64 `json:"omCost"`
	NetSavings        float64 `json:"netSavings"`
	CumulativeSavings float64 `json:"cumulativeSavings"`
}

// Projection is the multi-year financial outlook of a system. PaybackYears is
// zero when the system never pays back within the horizon.
type Projection struct {
	Years              []ProjectionYear `json:"years"`
	SimplePaybackYears float64          `json:"simplePaybackYears"`
	PaybackYears       float64          `json:"paybackYears"`
	TotalNetSavings    float64          `json:"totalNetSavings"`
	ROIPercent         float64          `json:"roiPercent"`
}

// CalculationResult is the output of a single calculation run.
type CalculationResult struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectID,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	TariffID  string    `json:"tariffID"`

	Tenants []TenantResult `json:"tenants"`
	Load    LoadSummary    `json:"load"`
	Solar   SolarSummary   `json:"solar"`
	Energy  EnergyStats    `json:"energy"`

	BaselineCost   CostBreakdown `json:"baselineCost"`
	WithSystemCost CostBreakdown `json:"withSystemCost"`
	ExportCredit   float64       `json:"exportCredit"`
	AnnualSavings  float64       `json:"annualSavings"`

	Capital    CostWaterfall `json:"capital"`
	Projection Projection    `json:"projection"`

	Warnings []string `json:"warnings,omitempty"`
}
