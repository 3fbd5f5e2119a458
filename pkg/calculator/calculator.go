// Package calculator runs the full solar and battery return on investment
// calculation for a project.
package calculator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	// project timezones must resolve in minimal images
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"
	"gonum.org/v1/gonum/floats"

	"github.com/solarroi/solarroi/pkg/financial"
	"github.com/solarroi/solarroi/pkg/irradiance"
	"github.com/solarroi/solarroi/pkg/load"
	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/pvsyst"
	"github.com/solarroi/solarroi/pkg/simulation"
	"github.com/solarroi/solarroi/pkg/tariff"
	"github.com/solarroi/solarroi/pkg/types"
)

// DefaultYear is the reference year the hourly series are laid out on. It
// is not a leap year so it lines up with a typical meteorological year.
const DefaultYear = 2025

var (
	// ErrNoIrradiance is returned when the input has no irradiance and there
	// is no provider to fetch it from.
	ErrNoIrradiance = errors.New("no irradiance available")
	// ErrInvalidInput wraps errors caused by the project settings or input
	// series rather than by a dependency.
	ErrInvalidInput = errors.New("invalid input")
)

// Input is a single calculation request.
type Input struct {
	Project   types.Project
	ShopTypes []types.ShopTypeTemplate
	// Irradiance is used as is when set. Otherwise TMY data is fetched for
	// the project location.
	Irradiance *types.IrradianceSeries
	// Year the hourly series start in. Zero uses DefaultYear.
	Year int
}

// Calculator composes load resolution, PV conversion, simulation, tariff
// billing and the financial projection.
type Calculator struct {
	tariffs    *tariff.Map
	irradiance irradiance.Provider
	lossChain  types.LossChainConfig
	workers    int
	now        func() time.Time
}

// New returns a Calculator. baseLossChain is the loss chain project
// overrides are merged onto. irr may be nil when every input carries its own
// irradiance.
func New(tariffs *tariff.Map, irr irradiance.Provider, baseLossChain types.LossChainConfig) *Calculator {
	return &Calculator{
		tariffs:    tariffs,
		irradiance: irr,
		lossChain:  baseLossChain,
		workers:    4,
		now:        time.Now,
	}
}

// Configured registers the calculator flags and returns a Calculator whose
// base loss chain is the default chain with the configured overrides applied.
func Configured(tariffs *tariff.Map, irr irradiance.Provider) *Calculator {
	c := New(tariffs, irr, pvsyst.DefaultLossChain())
	lossChainConfig := lflag.String("loss-chain-config", "", "TOML file of loss chain overrides applied on top of the default chain")
	workers := lflag.Int("tenant-workers", 4, "number of tenants resolved concurrently")

	lflag.Do(func() {
		if *workers > 0 {
			c.workers = *workers
		}
		if *lossChainConfig == "" {
			return
		}
		overrides, err := pvsyst.LoadOverridesFile(*lossChainConfig)
		if err != nil {
			panic(fmt.Sprintf("failed to load loss chain config: %v", err))
		}
		c.lossChain = pvsyst.MergeLossChain(c.lossChain, overrides)
		if err := pvsyst.ValidateLossChain(c.lossChain); err != nil {
			panic(fmt.Sprintf("invalid loss chain config: %v", err))
		}
		log.Ctx(context.Background()).Info("loaded loss chain overrides", slog.String("path", *lossChainConfig))
	})
	return c
}

// SetWorkers sets how many tenants are resolved concurrently.
func (c *Calculator) SetWorkers(n int) {
	c.workers = n
}

// Tariffs returns the tariff registry used for billing.
func (c *Calculator) Tariffs() *tariff.Map {
	return c.tariffs
}

func location(tz string) (*time.Location, error) {
	if tz == "" {
		tz = types.DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timezone %q: %w", ErrInvalidInput, tz, err)
	}
	return loc, nil
}

func reportingWindow(rw types.ReportingWindow, cal *tariff.Calendar) (load.Window, error) {
	if rw.Start == nil || rw.End == nil {
		return load.Window{WeekdayDays: rw.WeekdayDays, WeekendDays: rw.WeekendDays}, nil
	}
	start, end := rw.Start.In(cal.Location), rw.End.In(cal.Location)
	if end.Before(start) {
		return load.Window{}, fmt.Errorf("%w: reporting window ends before it starts", ErrInvalidInput)
	}
	return load.WindowBetween(start, end, cal.IsWeekend), nil
}

// Run calculates a project. Tenants without usable data are excluded and
// reported as warnings. When no tenant has data the result only carries the
// load summary with NoData set and the capital cost.
func (c *Calculator) Run(ctx context.Context, in Input) (types.CalculationResult, error) {
	p := in.Project
	s := p.Settings
	ctx = log.WithAttrs(ctx, slog.String("projectID", p.ID))

	year := in.Year
	if year == 0 {
		year = DefaultYear
	}
	loc, err := location(s.Timezone)
	if err != nil {
		return types.CalculationResult{}, err
	}
	cal := tariff.NewCalendar(loc)

	res := types.CalculationResult{
		ID:        uuid.NewString(),
		ProjectID: p.ID,
		Timestamp: c.now(),
		TariffID:  s.TariffID,
	}

	// tariff first so a bad id fails before any work is done
	t, err := c.tariffs.Tariff(s.TariffID)
	if err != nil {
		return types.CalculationResult{}, err
	}

	// tenants are resolved as typical days, the annual series and the
	// reporting window are both built from those
	window, err := reportingWindow(s.ReportingWindow, cal)
	if err != nil {
		return types.CalculationResult{}, err
	}
	resolver := load.NewResolver(load.NewCatalog(p.MeterImports, p.StackedProfiles, in.ShopTypes), load.Window{})
	loads := resolver.ResolveAll(ctx, p.Tenants, c.workers)
	totals := load.Aggregate(loads)

	res.Tenants = make([]types.TenantResult, len(loads))
	for i, l := range loads {
		res.Tenants[i] = l.Result()
	}
	for _, ex := range totals.Excluded {
		for _, w := range ex.Warnings {
			res.Warnings = append(res.Warnings, fmt.Sprintf("tenant %s: %s", ex.Name, w))
		}
	}
	res.Load = types.LoadSummary{
		WeekdayHourlyKW: totals.Weekday.HourlyKW,
		WeekdayDailyKWh: totals.Weekday.DailyKWh,
		WeekendHourlyKW: totals.Weekend.HourlyKW,
		WeekendDailyKWh: totals.Weekend.DailyKWh,
		WindowKWh:       totals.WindowKWh(window),
		IncludedTenants: totals.Included,
		ExcludedTenants: len(totals.Excluded),
		NoData:          totals.NoData,
	}
	for _, m := range p.MeterImports {
		res.Load.SkippedMeterRows += m.SkippedRows
	}
	if res.Load.SkippedMeterRows > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d meter rows were skipped on import", res.Load.SkippedMeterRows))
	}
	// capital only depends on the system size
	res.Capital = financial.CapitalCost(s.Costs, s.SolarKWp, s.Battery.CapacityKWh)
	if totals.NoData {
		log.Ctx(ctx).WarnContext(ctx, "no tenant has usable load data", slog.Int("tenants", len(p.Tenants)))
		res.Warnings = append(res.Warnings, "no tenant has usable load data")
		return res, nil
	}

	isWeekend := func(d time.Time) bool {
		return cal.IsWeekend(time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, cal.Location))
	}
	annualLoad := load.AnnualProfile(totals.Weekday.HourlyKW, totals.Weekend.HourlyKW, year, isWeekend)

	series, err := c.irradianceFor(ctx, in, cal.Location)
	if err != nil {
		return types.CalculationResult{}, err
	}

	area := s.CollectorAreaSqm
	if area == 0 {
		area = pvsyst.CollectorArea(s.SolarKWp, s.ModuleEfficiency)
	}
	gen, err := pvsyst.ConvertTMYToSolarGeneration(ctx, pvsyst.ConvertInput{
		HourlyGHIWm2:     series.HourlyGHIWm2,
		CollectorAreaSqm: area,
		STCEfficiency:    s.ModuleEfficiency,
		LossChain:        pvsyst.MergeLossChain(c.lossChain, s.LossChain),
		ReductionFactor:  1 - s.ProductionReductionPercent/100,
		MaxACOutputKW:    s.InverterACLimitKW,
	})
	if err != nil {
		return types.CalculationResult{}, fmt.Errorf("%w: failed to convert irradiance: %w", ErrInvalidInput, err)
	}

	solar := gen.AC
	if len(annualLoad) != len(solar) {
		n := min(len(annualLoad), len(solar))
		res.Warnings = append(res.Warnings, fmt.Sprintf("load has %d hours and solar has %d, using the first %d", len(annualLoad), len(solar), n))
		annualLoad = annualLoad[:n]
		solar = solar[:n]
	}
	res.Load.AnnualKWh = floats.Sum(annualLoad)

	res.Solar = types.SolarSummary{
		AnnualDCKWh:            floats.Sum(gen.DC[:len(solar)]),
		AnnualACKWh:            floats.Sum(solar),
		ClippedKWh:             gen.ClippedKWh,
		DCLossMultiplier:       gen.DCLossMultiplier,
		InverterLossMultiplier: gen.InverterLossMultiplier,
		TypicalDayACKWh:        pvsyst.TypicalDay(solar),
		MonthlyACKWh:           pvsyst.MonthlyTotals(solar, year),
	}
	if s.SolarKWp > 0 {
		res.Solar.SpecificYield = res.Solar.AnnualACKWh / s.SolarKWp
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, cal.Location)
	sim, err := simulation.Simulate(ctx, simulation.Input{
		Start:         start,
		LoadKWh:       annualLoad,
		SolarKWh:      solar,
		Battery:       simulation.BatteryFromSettings(s.Battery),
		ExportEnabled: s.ExportEnabled,
		Period: func(ts time.Time) types.TOUPeriodKind {
			return tariff.PeriodAt(t, ts, cal)
		},
	})
	if err != nil {
		return types.CalculationResult{}, fmt.Errorf("%w: failed to simulate: %w", ErrInvalidInput, err)
	}
	res.Energy = sim.Totals

	res.BaselineCost, err = tariff.Cost(t, annualLoad, start, cal)
	if err != nil {
		return types.CalculationResult{}, fmt.Errorf("failed to cost baseline: %w", err)
	}
	res.WithSystemCost, err = tariff.Cost(t, sim.GridImport(), start, cal)
	if err != nil {
		return types.CalculationResult{}, fmt.Errorf("failed to cost with system: %w", err)
	}

	var exportKWh float64
	if s.ExportEnabled {
		exportKWh = sim.Totals.GridExportKWh
	}
	res.AnnualSavings, res.ExportCredit = financial.AnnualSavings(res.BaselineCost, res.WithSystemCost, exportKWh, s.ExportRatePerKWh)
	res.Projection = financial.Project(res.Capital, res.AnnualSavings, financial.ParamsFromSettings(s.Projection, res.Solar.AnnualACKWh))

	log.Ctx(ctx).InfoContext(
		ctx,
		"calculated project",
		slog.String("resultID", res.ID),
		slog.Int("includedTenants", res.Load.IncludedTenants),
		slog.Int("excludedTenants", res.Load.ExcludedTenants),
		slog.Float64("annualLoadKWh", res.Load.AnnualKWh),
		slog.Float64("annualSolarKWh", res.Solar.AnnualACKWh),
		slog.Float64("annualSavings", res.AnnualSavings),
		slog.String("capital", res.Capital.TotalCapitalCost.StringFixed(2)),
	)
	return res, nil
}

func (c *Calculator) irradianceFor(ctx context.Context, in Input, loc *time.Location) (types.IrradianceSeries, error) {
	if in.Irradiance != nil {
		return *in.Irradiance, nil
	}
	if c.irradiance == nil {
		return types.IrradianceSeries{}, ErrNoIrradiance
	}
	s := in.Project.Settings
	series, err := c.irradiance.TMY(ctx, s.Latitude, s.Longitude, loc)
	if err != nil {
		return types.IrradianceSeries{}, fmt.Errorf("failed to get irradiance: %w", err)
	}
	return series, nil
}
