// Package simulation balances hourly load against solar generation and a
// battery, producing the grid import and export a tariff is billed on.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/types"
)

// Battery describes the storage attached to the system. A zero capacity means
// no battery.
type Battery struct {
	CapacityKWh float64
	// PowerKW limits both charge and discharge per hour. Zero means no limit.
	PowerKW float64
	// RoundTripEfficiency is a fraction applied to energy going in.
	RoundTripEfficiency float64
	// ReserveSOC is the fraction of capacity that is never discharged.
	ReserveSOC float64
}

// BatteryFromSettings converts percentage settings into a Battery.
func BatteryFromSettings(s types.BatterySettings) Battery {
	return Battery{
		CapacityKWh:         s.CapacityKWh,
		PowerKW:             s.PowerKW,
		RoundTripEfficiency: s.RoundTripEfficiencyPercent / 100,
		ReserveSOC:          s.ReserveSOCPercent / 100,
	}
}

func (b Battery) validate() error {
	if b.CapacityKWh == 0 {
		return nil
	}
	if math.IsNaN(b.CapacityKWh) || b.CapacityKWh < 0 {
		return fmt.Errorf("invalid battery capacity: %v", b.CapacityKWh)
	}
	if math.IsNaN(b.PowerKW) || b.PowerKW < 0 {
		return fmt.Errorf("invalid battery power: %v", b.PowerKW)
	}
	if !(b.RoundTripEfficiency > 0 && b.RoundTripEfficiency <= 1) {
		return fmt.Errorf("battery round trip efficiency must be in (0, 1]: %v", b.RoundTripEfficiency)
	}
	if !(b.ReserveSOC >= 0 && b.ReserveSOC < 1) {
		return fmt.Errorf("battery reserve must be in [0, 1): %v", b.ReserveSOC)
	}
	return nil
}

// Input is one simulation run. LoadKWh and SolarKWh are equal length hourly
// series starting at Start.
type Input struct {
	Start         time.Time
	LoadKWh       []float64
	SolarKWh      []float64
	Battery       Battery
	ExportEnabled bool
	// Period classifies the hour starting at ts. The battery holds its charge
	// during off-peak hours. Nil lets it discharge whenever there is load.
	Period func(ts time.Time) types.TOUPeriodKind
}

// Hour is the energy flow of a single simulated hour.
type Hour struct {
	TS             time.Time           `json:"ts"`
	Period         types.TOUPeriodKind `json:"period"`
	LoadKWh        float64             `json:"loadKWh"`
	SolarKWh       float64             `json:"solarKWh"`
	SolarToLoad    float64             `json:"solarToLoad"`
	SolarToBattery float64             `json:"solarToBattery"`
	SolarToGrid    float64             `json:"solarToGrid"`
	Curtailed      float64             `json:"curtailed"`
	BatteryToLoad  float64             `json:"batteryToLoad"`
	GridImport     float64             `json:"gridImport"`
	BatteryKWh     float64             `json:"batteryKWh"`
	HitCapacity    bool                `json:"hitCapacity"`
	HitReserve     bool                `json:"hitReserve"`
}

// Result holds every simulated hour and their totals.
type Result struct {
	Hours  []Hour
	Totals types.EnergyStats
}

// GridImport returns the hourly energy drawn from the grid.
func (r Result) GridImport() []float64 {
	out := make([]float64, len(r.Hours))
	for i, h := range r.Hours {
		out[i] = h.GridImport
	}
	return out
}

// GridExport returns the hourly solar energy exported.
func (r Result) GridExport() []float64 {
	out := make([]float64, len(r.Hours))
	for i, h := range r.Hours {
		out[i] = h.SolarToGrid
	}
	return out
}

// Simulate runs the hourly balance. Solar serves load first, the surplus
// charges the battery and whatever remains is exported or curtailed. The
// battery starts at its reserve.
func Simulate(ctx context.Context, in Input) (Result, error) {
	if len(in.LoadKWh) != len(in.SolarKWh) {
		return Result{}, fmt.Errorf("load has %d hours but solar has %d", len(in.LoadKWh), len(in.SolarKWh))
	}
	b := in.Battery
	if err := b.validate(); err != nil {
		return Result{}, err
	}

	maxPower := b.PowerKW
	if maxPower == 0 {
		maxPower = math.Inf(1)
	}
	reserveKWh := b.CapacityKWh * b.ReserveSOC
	soc := reserveKWh

	res := Result{Hours: make([]Hour, len(in.LoadKWh))}
	var hitCapacity, hitReserve int
	ts := in.Start
	for i := range in.LoadKWh {
		load := math.Max(in.LoadKWh[i], 0)
		solar := math.Max(in.SolarKWh[i], 0)
		period := types.TOUPeriodAny
		if in.Period != nil {
			period = in.Period(ts)
		}

		h := Hour{
			TS:       ts,
			Period:   period,
			LoadKWh:  load,
			SolarKWh: solar,
		}
		h.SolarToLoad = math.Min(load, solar)
		surplus := solar - h.SolarToLoad
		deficit := load - h.SolarToLoad

		if b.CapacityKWh > 0 && surplus > 0 {
			// energy needed from solar to fill the battery after losses
			room := (b.CapacityKWh - soc) / b.RoundTripEfficiency
			charge := math.Min(surplus, math.Min(room, maxPower))
			if charge > 0 {
				h.SolarToBattery = charge
				soc += charge * b.RoundTripEfficiency
				surplus -= charge
			}
			if soc >= b.CapacityKWh-1e-9 {
				h.HitCapacity = true
				hitCapacity++
			}
		}

		if surplus > 0 {
			if in.ExportEnabled {
				h.SolarToGrid = surplus
			} else {
				h.Curtailed = surplus
			}
		}

		if b.CapacityKWh > 0 && deficit > 0 && period != types.TOUPeriodOffPeak {
			discharge := math.Min(deficit, math.Min(soc-reserveKWh, maxPower))
			if discharge > 0 {
				h.BatteryToLoad = discharge
				soc -= discharge
				deficit -= discharge
			}
			if deficit > 0 {
				h.HitReserve = true
				hitReserve++
			}
		}
		h.GridImport = deficit
		h.BatteryKWh = soc

		t := &res.Totals
		t.LoadKWh += load
		t.SolarKWh += solar
		t.SolarToLoadKWh += h.SolarToLoad
		t.SolarToBatteryKWh += h.SolarToBattery
		t.BatteryChargedKWh += h.SolarToBattery * b.RoundTripEfficiency
		t.SolarToGridKWh += h.SolarToGrid
		t.GridExportKWh += h.SolarToGrid
		t.CurtailedKWh += h.Curtailed
		t.BatteryToLoadKWh += h.BatteryToLoad
		t.BatteryUsedKWh += h.BatteryToLoad
		t.GridImportKWh += h.GridImport

		res.Hours[i] = h
		ts = ts.Add(time.Hour)
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"simulated energy balance",
		slog.Int("hours", len(res.Hours)),
		slog.Float64("gridImportKWh", res.Totals.GridImportKWh),
		slog.Float64("gridExportKWh", res.Totals.GridExportKWh),
		slog.Float64("curtailedKWh", res.Totals.CurtailedKWh),
		slog.Float64("batteryUsedKWh", res.Totals.BatteryUsedKWh),
		slog.Int("hoursAtCapacity", hitCapacity),
		slog.Int("hoursAtReserve", hitReserve),
	)
	return res, nil
}
