package financial

import (
	"math"

	"github.com/solarroi/solarroi/pkg/types"
)

// DefaultProjectionYears is used when no horizon is configured.
const DefaultProjectionYears = 25

// ProjectionParams drive Project.
type ProjectionParams struct {
	Years                   int
	TariffEscalationPercent float64
	DegradationPercent      float64
	// OMPercent is the first year operations and maintenance cost as a
	// percentage of capital. It escalates with the tariff.
	OMPercent         float64
	FirstYearSolarKWh float64
}

// ParamsFromSettings builds projection parameters from project settings.
func ParamsFromSettings(s types.ProjectionSettings, firstYearSolarKWh float64) ProjectionParams {
	return ProjectionParams{
		Years:                   s.Years,
		TariffEscalationPercent: s.TariffEscalationPercent,
		DegradationPercent:      s.DegradationPercent,
		OMPercent:               s.OMPercent,
		FirstYearSolarKWh:       firstYearSolarKWh,
	}
}

// AnnualSavings is what the system saves in a year: the baseline bill minus
// the bill with the system, plus the credit for exported energy.
func AnnualSavings(baseline, withSystem types.CostBreakdown, exportKWh, exportRatePerKWh float64) (savings, exportCredit float64) {
	exportCredit = math.Max(exportKWh, 0) * exportRatePerKWh
	return baseline.Total - withSystem.Total + exportCredit, exportCredit
}

// Project escalates first year savings over the horizon. Savings grow with
// the tariff and shrink with module degradation. Payback is interpolated
// within the year the cumulative net savings pass the capital cost and is
// zero when that never happens.
func Project(capital types.CostWaterfall, annualSavings float64, p ProjectionParams) types.Projection {
	years := p.Years
	if years <= 0 {
		years = DefaultProjectionYears
	}
	capex := capital.TotalCapitalCost.InexactFloat64()
	escalation := 1 + p.TariffEscalationPercent/100
	retention := 1 - p.DegradationPercent/100
	firstOM := capex * p.OMPercent / 100

	out := types.Projection{Years: make([]types.ProjectionYear, 0, years)}
	if net := annualSavings - firstOM; net > 0 && capex > 0 {
		out.SimplePaybackYears = capex / net
	}

	var cumulative float64
	for y := 1; y <= years; y++ {
		esc := math.Pow(escalation, float64(y-1))
		deg := math.Pow(retention, float64(y-1))
		row := types.ProjectionYear{
			Year:     y,
			SolarKWh: p.FirstYearSolarKWh * deg,
			Savings:  annualSavings * esc * deg,
			OMCost:   firstOM * esc,
		}
		row.NetSavings = row.Savings - row.OMCost
		prev := cumulative
		cumulative += row.NetSavings
		row.CumulativeSavings = cumulative

		if out.PaybackYears == 0 && capex > 0 && prev < capex && cumulative >= capex {
			out.PaybackYears = float64(y-1) + (capex-prev)/row.NetSavings
		}
		out.Years = append(out.Years, row)
	}
	out.TotalNetSavings = cumulative
	if capex > 0 {
		out.ROIPercent = (cumulative - capex) / capex * 100
	}
	return out
}
