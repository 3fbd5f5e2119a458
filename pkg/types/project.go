package types

import "time"

// HoursPerDay is the number of hourly buckets in a load shape.
const HoursPerDay = 24

// HoursPerYear is the number of hours in a non-leap Typical Meteorological Year.
const HoursPerYear = 8760

// Project is the aggregate that owns tenants, their meter data and the
// project settings. Shop types and tariffs are shared reference data and are
// only referenced by id.
type Project struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Tenants         []Tenant         `json:"tenants"`
	MeterImports    []MeterImport    `json:"meterImports"`
	StackedProfiles []StackedProfile `json:"stackedProfiles"`
	Settings        ProjectSettings  `json:"settings"`
}

// Tenant is a leasable unit in a property.
//
// AreaSqm is a scaling hint only. A tenant with zero area but an assigned meter
// must still contribute its metered consumption.
type Tenant struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	AreaSqm            float64  `json:"areaSqm"`
	MonthlyKWhOverride *float64 `json:"monthlyKWhOverride,omitempty"`
	ShopTypeID         string   `json:"shopTypeID,omitempty"`
	MeterImportID      string   `json:"meterImportID,omitempty"`
	StackedProfileID   string   `json:"stackedProfileID,omitempty"`
}

// Reading is a single timestamped meter value after parsing. Value is the
// energy consumed in the interval starting at Timestamp (kWh).
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// MeterImport is one imported SCADA time series from a physical meter.
type MeterImport struct {
	ID         string `json:"id"`
	SiteName   string `json:"siteName"`
	ShopName   string `json:"shopName,omitempty"`
	ShopNumber string `json:"shopNumber,omitempty"`
	MeterLabel string `json:"meterLabel,omitempty"`

	// ReferenceAreaSqm is the floor area the meter measured. Zero means the
	// meter belongs to exactly the tenant it is assigned to.
	ReferenceAreaSqm float64 `json:"referenceAreaSqm,omitempty"`

	LoadProfileWeekday [HoursPerDay]float64 `json:"loadProfileWeekday"`
	LoadProfileWeekend [HoursPerDay]float64 `json:"loadProfileWeekend"`
	WeekdayDays        int                  `json:"weekdayDays"`
	WeekendDays        int                  `json:"weekendDays"`

	DateRangeStart time.Time `json:"dateRangeStart"`
	DateRangeEnd   time.Time `json:"dateRangeEnd"`
	Readings       []Reading `json:"readings,omitempty"`
	SkippedRows    int       `json:"skippedRows"`
	ImportedAt     time.Time `json:"importedAt"`
}

// ShopTypeTemplate is a statistical reference profile for a category of
// tenant. Shapes are percentages of the daily total and sum to roughly 100.
type ShopTypeTemplate struct {
	ID                 string               `json:"id" yaml:"id"`
	Name               string               `json:"name" yaml:"name"`
	KWhPerSqmMonth     float64              `json:"kwhPerSqmMonth" yaml:"kwh_per_sqm_month"`
	LoadProfileWeekday [HoursPerDay]float64 `json:"loadProfileWeekday" yaml:"load_profile_weekday"`
	LoadProfileWeekend [HoursPerDay]float64 `json:"loadProfileWeekend" yaml:"load_profile_weekend"`
}

// StackedProfile combines several meter imports whose hourly values are
// averaged, e.g. tenants sharing a single physical meter.
type StackedProfile struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	MeterImportIDs []string `json:"meterImportIDs"`
}

// MeterImport finds a meter import by id.
func (p *Project) MeterImport(id string) (MeterImport, bool) {
	for _, m := range p.MeterImports {
		if m.ID == id {
			return m, true
		}
	}
	return MeterImport{}, false
}

// StackedProfile finds a stacked profile by id.
func (p *Project) StackedProfile(id string) (StackedProfile, bool) {
	for _, s := range p.StackedProfiles {
		if s.ID == id {
			return s, true
		}
	}
	return StackedProfile{}, false
}
