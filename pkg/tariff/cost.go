package tariff

import (
	"fmt"
	"time"

	"github.com/solarroi/solarroi/pkg/types"
)

type monthKey struct {
	year  int
	month time.Month
}

type monthUsage struct {
	kWh        float64
	peakKW     float64
	periodPeak map[types.TOUPeriodKind]float64
	periodRate map[types.TOUPeriodKind]float64
}

// Cost bills hourly grid consumption under a tariff. hourlyKWh[i] is the
// energy drawn in the hour starting at start + i hours; negative values are
// treated as zero. Inclining blocks and demand charges are evaluated per
// calendar month and the fixed charge is applied once per month touched.
func Cost(t types.Tariff, hourlyKWh []float64, start time.Time, cal *Calendar) (types.CostBreakdown, error) {
	if err := t.Validate(); err != nil {
		return types.CostBreakdown{}, err
	}
	if cal == nil {
		cal = NewCalendar(nil)
	}

	out := types.CostBreakdown{
		TariffID: t.ID,
		ByPeriod: make(map[types.TOUPeriodKind]types.PeriodCost),
	}
	months := make(map[monthKey]*monthUsage)
	var order []monthKey

	start = start.In(cal.Location)
	for i, kwh := range hourlyKWh {
		if kwh < 0 {
			kwh = 0
		}
		ts := start.Add(time.Duration(i) * time.Hour)
		mk := monthKey{ts.Year(), ts.Month()}
		mu, ok := months[mk]
		if !ok {
			mu = &monthUsage{
				periodPeak: make(map[types.TOUPeriodKind]float64),
				periodRate: make(map[types.TOUPeriodKind]float64),
			}
			months[mk] = mu
			order = append(order, mk)
		}
		mu.kWh += kwh
		// an hour of kWh is its average kW
		if kwh > mu.peakKW {
			mu.peakKW = kwh
		}
		out.EnergyKWh += kwh

		switch t.Type {
		case types.TariffTypeTimeOfUse:
			r, ok := Classify(t, ts.Hour(), cal.DayTypeOf(ts), cal.SeasonOf(ts))
			if !ok {
				return types.CostBreakdown{}, fmt.Errorf("tariff %s has no rate for %s hour %d", t.ID, cal.DayTypeOf(ts), ts.Hour())
			}
			cost := kwh * r.RatePerKWh
			pc := out.ByPeriod[r.Period]
			pc.KWh += kwh
			pc.Cost += cost
			out.ByPeriod[r.Period] = pc
			out.EnergyCharge += cost
			out.MonthlyTotals[ts.Month()-1] += cost
			if r.DemandChargePerKVA > 0 {
				if kwh > mu.periodPeak[r.Period] {
					mu.periodPeak[r.Period] = kwh
				}
				if r.DemandChargePerKVA > mu.periodRate[r.Period] {
					mu.periodRate[r.Period] = r.DemandChargePerKVA
				}
			}
		case types.TariffTypeFixed:
			cost := kwh * t.FlatRatePerKWh
			pc := out.ByPeriod[types.TOUPeriodAny]
			pc.KWh += kwh
			pc.Cost += cost
			out.ByPeriod[types.TOUPeriodAny] = pc
			out.EnergyCharge += cost
			out.MonthlyTotals[ts.Month()-1] += cost
		}
	}

	for _, mk := range order {
		mu := months[mk]
		var monthly float64
		if t.Type == types.TariffTypeIncliningBlock {
			energy := blockCost(t.Blocks, mu.kWh)
			pc := out.ByPeriod[types.TOUPeriodAny]
			pc.KWh += mu.kWh
			pc.Cost += energy
			out.ByPeriod[types.TOUPeriodAny] = pc
			out.EnergyCharge += energy
			monthly += energy
		}

		demand := mu.peakKW * t.DemandChargePerKVA
		for period, peak := range mu.periodPeak {
			demand += peak * mu.periodRate[period]
		}
		out.DemandCharge += demand
		out.FixedCharges += t.FixedMonthlyCharge
		monthly += demand + t.FixedMonthlyCharge
		out.MonthlyTotals[mk.month-1] += monthly
	}

	out.Total = out.EnergyCharge + out.FixedCharges + out.DemandCharge
	return out, nil
}

// blockCost prices a month's consumption through inclining blocks.
func blockCost(blocks []types.BlockRate, kWh float64) float64 {
	var (
		cost  float64
		lower float64
	)
	for _, b := range blocks {
		if kWh <= lower {
			break
		}
		upper := b.UpToKWh
		if upper == 0 || kWh < upper {
			upper = kWh
		}
		cost += (upper - lower) * b.RatePerKWh
		lower = upper
	}
	if n := len(blocks); n > 0 && kWh > lower {
		// usage past a bounded last block stays at the last rate
		cost += (kWh - lower) * blocks[n-1].RatePerKWh
	}
	return cost
}
