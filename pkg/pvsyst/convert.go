package pvsyst

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/types"
)

// ConvertInput is everything needed to turn hourly irradiance into energy.
type ConvertInput struct {
	// HourlyGHIWm2 is global horizontal irradiance per hour, normally 8760 values.
	HourlyGHIWm2     []float64
	CollectorAreaSqm float64
	// STCEfficiency is the module efficiency at standard test conditions as a
	// fraction.
	STCEfficiency float64
	LossChain     types.LossChainConfig
	// ReductionFactor scales production down, 1 meaning no reduction.
	ReductionFactor float64
	// MaxACOutputKW is the inverter AC limit. Zero means no limit.
	MaxACOutputKW float64
}

// Generation is the hourly output of ConvertTMYToSolarGeneration.
type Generation struct {
	DC                     []float64
	AC                     []float64
	DCLossMultiplier       float64
	InverterLossMultiplier float64
	// ClippedKWh is the AC energy discarded above MaxACOutputKW.
	ClippedKWh float64
}

// TotalDC returns the summed DC energy.
func (g Generation) TotalDC() float64 {
	return floats.Sum(g.DC)
}

// TotalAC returns the summed AC energy.
func (g Generation) TotalAC() float64 {
	return floats.Sum(g.AC)
}

func (in ConvertInput) validate() error {
	if len(in.HourlyGHIWm2) == 0 {
		return fmt.Errorf("no irradiance values")
	}
	if math.IsNaN(in.CollectorAreaSqm) || math.IsInf(in.CollectorAreaSqm, 0) || in.CollectorAreaSqm < 0 {
		return fmt.Errorf("invalid collector area: %v", in.CollectorAreaSqm)
	}
	if !(in.STCEfficiency > 0 && in.STCEfficiency <= 1) {
		return fmt.Errorf("stc efficiency must be a fraction in (0, 1]: %v", in.STCEfficiency)
	}
	if !(in.ReductionFactor > 0 && in.ReductionFactor <= 1) {
		return fmt.Errorf("reduction factor must be in (0, 1]: %v", in.ReductionFactor)
	}
	if math.IsNaN(in.MaxACOutputKW) || in.MaxACOutputKW < 0 {
		return fmt.Errorf("invalid max ac output: %v", in.MaxACOutputKW)
	}
	return ValidateLossChain(in.LossChain)
}

// ConvertTMYToSolarGeneration converts hourly irradiance into DC and AC
// energy per hour. Hours with no irradiance produce nothing. AC above the
// inverter limit is discarded.
func ConvertTMYToSolarGeneration(ctx context.Context, in ConvertInput) (Generation, error) {
	if err := in.validate(); err != nil {
		return Generation{}, err
	}
	dcMult := DCLossMultiplier(in.LossChain)
	invMult := InverterLossMultiplier(in.LossChain)
	perWm2 := in.CollectorAreaSqm * in.STCEfficiency * dcMult * in.ReductionFactor / 1000

	g := Generation{
		DC:                     make([]float64, len(in.HourlyGHIWm2)),
		AC:                     make([]float64, len(in.HourlyGHIWm2)),
		DCLossMultiplier:       dcMult,
		InverterLossMultiplier: invMult,
	}
	for i, ghi := range in.HourlyGHIWm2 {
		// also catches NaN
		if !(ghi > 0) {
			continue
		}
		g.DC[i] = ghi * perWm2
		ac := g.DC[i] * invMult
		if in.MaxACOutputKW > 0 && ac > in.MaxACOutputKW {
			g.ClippedKWh += ac - in.MaxACOutputKW
			ac = in.MaxACOutputKW
		}
		g.AC[i] = ac
	}

	if g.ClippedKWh > 0 {
		log.Ctx(ctx).DebugContext(
			ctx,
			"inverter clipping",
			slog.Float64("clippedKWh", g.ClippedKWh),
			slog.Float64("maxACOutputKW", in.MaxACOutputKW),
		)
	}
	return g, nil
}

// CollectorArea derives the module area for a system size. One kWp at 1000
// W/m² needs 1/efficiency square metres.
func CollectorArea(kWp, efficiency float64) float64 {
	if efficiency <= 0 {
		return 0
	}
	return kWp / efficiency
}
