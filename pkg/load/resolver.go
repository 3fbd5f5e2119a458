package load

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/profile"
	"github.com/solarroi/solarroi/pkg/types"
)

// DayKind is the weekday/weekend split used by load shapes.
type DayKind int

const (
	Weekday DayKind = iota
	Weekend
)

func (k DayKind) String() string {
	if k == Weekend {
		return "weekend"
	}
	return "weekday"
}

// DayBucket is a day kind with the number of days it stands for.
type DayBucket struct {
	Kind       DayKind
	Multiplier float64
}

// Window is the number of weekday and weekend days being reported on. The
// zero Window reports a single typical day of each kind.
type Window struct {
	WeekdayDays int
	WeekendDays int
}

// Bucket returns the day bucket for kind.
func (w Window) Bucket(kind DayKind) DayBucket {
	if w.WeekdayDays <= 0 && w.WeekendDays <= 0 {
		return DayBucket{Kind: kind, Multiplier: 1}
	}
	if kind == Weekend {
		return DayBucket{Kind: kind, Multiplier: float64(w.WeekendDays)}
	}
	return DayBucket{Kind: kind, Multiplier: float64(w.WeekdayDays)}
}

// Status is whether a tenant contributes to the totals.
type Status int

const (
	Included Status = iota
	Excluded
)

func (s Status) String() string {
	if s == Excluded {
		return "excluded"
	}
	return "included"
}

// DayLoad is the hourly load of one day bucket. DailyKWh is the sum of
// HourlyKW since each bucket is one hour long.
type DayLoad struct {
	HourlyKW [types.HoursPerDay]float64
	DailyKWh float64
}

func newDayLoad(hourly [types.HoursPerDay]float64) DayLoad {
	return DayLoad{HourlyKW: hourly, DailyKWh: floats.Sum(hourly[:])}
}

// TenantLoad is the resolved load of a tenant. Source is nil when the tenant
// is excluded.
type TenantLoad struct {
	Tenant    types.Tenant
	Source    Source
	Status    Status
	Weekday   DayLoad
	Weekend   DayLoad
	AreaScale float64
	Warnings  []string
}

// SourceKind returns the kind of the source, or none.
func (l TenantLoad) SourceKind() types.LoadSourceKind {
	if l.Source == nil {
		return types.LoadSourceNone
	}
	return l.Source.Kind()
}

// Result converts the load into its stored form.
func (l TenantLoad) Result() types.TenantResult {
	return types.TenantResult{
		TenantID:        l.Tenant.ID,
		TenantName:      l.Tenant.Name,
		Source:          l.SourceKind(),
		Included:        l.Status == Included,
		AreaScale:       l.AreaScale,
		WeekdayHourlyKW: l.Weekday.HourlyKW,
		WeekdayDailyKWh: l.Weekday.DailyKWh,
		WeekendHourlyKW: l.Weekend.HourlyKW,
		WeekendDailyKWh: l.Weekend.DailyKWh,
		Warnings:        l.Warnings,
	}
}

// Resolver picks a data source for each tenant and produces its hourly load.
//
// Tenant area only scales loads. A tenant with an assigned meter is never
// dropped because its area is zero; it is only excluded when no source can
// produce a load.
type Resolver struct {
	Catalog   *Catalog
	Validator profile.Validator
	Window    Window
}

// NewResolver returns a Resolver with the default validator.
func NewResolver(c *Catalog, w Window) *Resolver {
	return &Resolver{Catalog: c, Window: w}
}

// shapes is a validated weekday and weekend shape of a meter.
type shapes struct {
	weekday [types.HoursPerDay]float64
	weekend [types.HoursPerDay]float64
}

// Resolve resolves a single tenant. Sources are tried in priority order and
// an unusable source falls through to the next one.
func (r *Resolver) Resolve(ctx context.Context, t types.Tenant) TenantLoad {
	tl := TenantLoad{Tenant: t, Status: Excluded}
	sources, warnings := SelectSource(t, r.Catalog)
	tl.Warnings = append(tl.Warnings, warnings...)

	for _, src := range sources {
		var (
			ok   bool
			warn []string
		)
		switch s := src.(type) {
		case StackedSource:
			ok, warn = r.resolveStacked(&tl, s)
		case MeterSource:
			ok, warn = r.resolveMeter(&tl, s)
		case ShopTypeSource:
			ok, warn = r.resolveShopType(&tl, s)
		}
		tl.Warnings = append(tl.Warnings, warn...)
		if ok {
			tl.Source = src
			tl.Status = Included
			log.Ctx(ctx).DebugContext(
				ctx,
				"resolved tenant load",
				slog.String("tenantID", t.ID),
				slog.String("source", string(src.Kind())),
				slog.Float64("areaScale", tl.AreaScale),
				slog.Float64("weekdayKWh", tl.Weekday.DailyKWh),
			)
			return tl
		}
		log.Ctx(ctx).DebugContext(
			ctx,
			"tenant source unusable, falling back",
			slog.String("tenantID", t.ID),
			slog.String("source", string(src.Kind())),
			slog.Any("warnings", warn),
		)
	}

	tl.Warnings = append(tl.Warnings, "no viable data source: tenant excluded from totals")
	tl.Weekday, tl.Weekend = DayLoad{}, DayLoad{}
	tl.AreaScale = 0
	log.Ctx(ctx).InfoContext(ctx, "tenant excluded", slog.String("tenantID", t.ID), slog.Any("warnings", tl.Warnings))
	return tl
}

// meterShapes validates a meter's profiles. Each day kind is bounded by the
// peak of the other kind. A day kind without usable data borrows the other
// kind's shape.
func (r *Resolver) meterShapes(m types.MeterImport) (shapes, bool, []string) {
	label := meterLabel(m)
	wd := r.Validator.Validate(m.LoadProfileWeekday[:], profile.Peak(m.LoadProfileWeekend[:]))
	we := r.Validator.Validate(m.LoadProfileWeekend[:], profile.Peak(m.LoadProfileWeekday[:]))

	var warnings []string
	for _, w := range wd.Warnings {
		warnings = append(warnings, fmt.Sprintf("meter %s weekday profile: %s", label, w))
	}
	for _, w := range we.Warnings {
		warnings = append(warnings, fmt.Sprintf("meter %s weekend profile: %s", label, w))
	}

	s := shapes{weekday: m.LoadProfileWeekday, weekend: m.LoadProfileWeekend}
	switch {
	case wd.Invalid && we.Invalid:
		return shapes{}, false, warnings
	case wd.Invalid:
		s.weekday = m.LoadProfileWeekend
		warnings = append(warnings, fmt.Sprintf("meter %s has no usable weekday data, using weekend profile", label))
	case we.Invalid:
		s.weekend = m.LoadProfileWeekday
		warnings = append(warnings, fmt.Sprintf("meter %s has no usable weekend data, using weekday profile", label))
	}
	return s, true, warnings
}

func (r *Resolver) scale(s shapes, areaScale float64) (DayLoad, DayLoad) {
	var wd, we [types.HoursPerDay]float64
	wdMult := r.Window.Bucket(Weekday).Multiplier
	weMult := r.Window.Bucket(Weekend).Multiplier
	for h := 0; h < types.HoursPerDay; h++ {
		wd[h] = s.weekday[h] * wdMult * areaScale
		we[h] = s.weekend[h] * weMult * areaScale
	}
	return newDayLoad(wd), newDayLoad(we)
}

func (r *Resolver) resolveMeter(tl *TenantLoad, s MeterSource) (bool, []string) {
	sh, ok, warnings := r.meterShapes(s.Meter)
	if !ok {
		return false, warnings
	}
	areaScale := 1.0
	if tl.Tenant.AreaSqm > 0 && s.Meter.ReferenceAreaSqm > 0 {
		areaScale = tl.Tenant.AreaSqm / s.Meter.ReferenceAreaSqm
	}
	// area <= 0 uses the raw meter values
	tl.AreaScale = areaScale
	tl.Weekday, tl.Weekend = r.scale(sh, areaScale)
	return true, warnings
}

func (r *Resolver) resolveStacked(tl *TenantLoad, s StackedSource) (bool, []string) {
	if tl.Tenant.AreaSqm <= 0 {
		return false, []string{fmt.Sprintf("stacked profile %s requires a tenant area", s.Profile.ID)}
	}

	var (
		warnings []string
		valid    int
		sum      shapes
		refArea  float64
		refCount int
	)
	for _, m := range s.Meters {
		sh, ok, warn := r.meterShapes(m)
		warnings = append(warnings, warn...)
		if !ok {
			continue
		}
		valid++
		floats.Add(sum.weekday[:], sh.weekday[:])
		floats.Add(sum.weekend[:], sh.weekend[:])
		if m.ReferenceAreaSqm > 0 {
			refArea += m.ReferenceAreaSqm
			refCount++
		}
	}
	if valid == 0 {
		warnings = append(warnings, fmt.Sprintf("stacked profile %s has no valid meters", s.Profile.ID))
		return false, warnings
	}
	floats.Scale(1/float64(valid), sum.weekday[:])
	floats.Scale(1/float64(valid), sum.weekend[:])

	areaScale := 1.0
	if refCount > 0 {
		areaScale = tl.Tenant.AreaSqm / (refArea / float64(refCount))
	}
	tl.AreaScale = areaScale
	tl.Weekday, tl.Weekend = r.scale(sum, areaScale)
	return true, warnings
}

// DaysPerMonth converts monthly energy to daily energy (12 months over 365 days).
const DaysPerMonth = 365.0 / 12

func (r *Resolver) resolveShopType(tl *TenantLoad, s ShopTypeSource) (bool, []string) {
	if tl.Tenant.AreaSqm <= 0 {
		return false, []string{fmt.Sprintf("shop type %s estimate requires a tenant area", s.Template.Name)}
	}
	monthly := tl.Tenant.AreaSqm * s.Template.KWhPerSqmMonth
	if tl.Tenant.MonthlyKWhOverride != nil {
		monthly = *tl.Tenant.MonthlyKWhOverride
	}
	daily := monthly / DaysPerMonth

	wdSum := floats.Sum(s.Template.LoadProfileWeekday[:])
	weSum := floats.Sum(s.Template.LoadProfileWeekend[:])
	if wdSum <= 0 && weSum <= 0 {
		return false, []string{fmt.Sprintf("shop type %s has an empty load profile", s.Template.Name)}
	}
	wdShape, weShape := s.Template.LoadProfileWeekday, s.Template.LoadProfileWeekend
	var warnings []string
	if wdSum <= 0 {
		wdShape, wdSum = weShape, weSum
		warnings = append(warnings, fmt.Sprintf("shop type %s has no weekday profile, using weekend profile", s.Template.Name))
	}
	if weSum <= 0 {
		weShape, weSum = wdShape, wdSum
		warnings = append(warnings, fmt.Sprintf("shop type %s has no weekend profile, using weekday profile", s.Template.Name))
	}

	var sh shapes
	for h := 0; h < types.HoursPerDay; h++ {
		sh.weekday[h] = daily * wdShape[h] / wdSum
		sh.weekend[h] = daily * weShape[h] / weSum
	}
	tl.AreaScale = 1
	tl.Weekday, tl.Weekend = r.scale(sh, 1)
	return true, warnings
}

// ResolveAll resolves every tenant using up to workers goroutines. Results are
// in the same order as tenants.
func (r *Resolver) ResolveAll(ctx context.Context, tenants []types.Tenant, workers int) []TenantLoad {
	out := make([]TenantLoad, len(tenants))
	if workers <= 1 || len(tenants) <= 1 {
		for i, t := range tenants {
			out[i] = r.Resolve(ctx, t)
		}
		return out
	}
	if workers > len(tenants) {
		workers = len(tenants)
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				out[i] = r.Resolve(ctx, tenants[i])
			}
		}()
	}
	for i := range tenants {
		idx <- i
	}
	close(idx)
	wg.Wait()
	return out
}

func meterLabel(m types.MeterImport) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{m.MeterLabel, m.ShopName, m.ShopNumber} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return m.ID
	}
	return strings.Join(parts, "/")
}
