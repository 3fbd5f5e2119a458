// Package financial turns system sizes, tariffs and energy flows into capital
// cost, yearly savings and payback.
package financial

import (
	"github.com/shopspring/decimal"

	"github.com/solarroi/solarroi/pkg/types"
)

var hundred = decimal.NewFromInt(100)

func percentOf(v, percent decimal.Decimal) decimal.Decimal {
	return v.Mul(percent).Div(hundred)
}

// CapitalCost runs the capital cost waterfall. Professional and project
// management fees are both taken on the subtotal before fees, contingency is
// taken on the subtotal with fees. Nothing is rounded along the way.
func CapitalCost(s types.CostSchedule, solarKWp, batteryKWh float64) types.CostWaterfall {
	var w types.CostWaterfall
	w.SolarCost = decimal.NewFromFloat(solarKWp).Mul(s.CostPerKWp)
	w.BatteryCost = decimal.NewFromFloat(batteryKWh).Mul(s.CostPerKWhBattery)
	w.Base = w.SolarCost.Add(w.BatteryCost)

	w.AddOnsTotal = decimal.Zero
	for _, a := range s.AddOns {
		w.AddOnsTotal = w.AddOnsTotal.Add(a.Amount)
	}
	w.SubtotalBeforeFees = w.Base.Add(w.AddOnsTotal)

	w.ProfessionalFees = percentOf(w.SubtotalBeforeFees, s.ProfessionalFeesPercent)
	w.ProjectManagementFees = percentOf(w.SubtotalBeforeFees, s.ProjectManagementPercent)
	w.SubtotalWithFees = w.SubtotalBeforeFees.Add(w.ProfessionalFees).Add(w.ProjectManagementFees)

	w.Contingency = percentOf(w.SubtotalWithFees, s.ContingencyPercent)
	w.TotalCapitalCost = w.SubtotalWithFees.Add(w.Contingency)
	return w
}
