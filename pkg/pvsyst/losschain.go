// Package pvsyst converts irradiance into DC and AC energy through a PVsyst
// style chain of multiplicative loss factors.
package pvsyst

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/floats"

	"github.com/solarroi/solarroi/pkg/types"
)

// ErrMissingStage is returned when a loss chain is missing a whole stage.
// A missing stage is never treated as lossless since that would overstate
// generation.
var ErrMissingStage = errors.New("loss chain stage missing")

// factor converts a percentage loss into a multiplier. Negative losses are gains.
func factor(loss float64) float64 {
	return 1 - loss/100
}

func irradianceLosses(g *types.IrradianceLosses) []float64 {
	return []float64{g.Transposition, g.NearShading, g.IAM, g.Soiling, g.Spectral, g.ElectricalShading}
}

func arrayLosses(g *types.ArrayLosses) []float64 {
	return []float64{g.IrradianceLevel, g.Temperature, g.ModuleQuality, g.LID, g.ModuleDegradation, g.Mismatch, g.Ohmic}
}

func inverterLosses(g *types.InverterLosses) []float64 {
	return []float64{g.OperatingEfficiency, g.OverNominalPower, g.MaxInputCurrent, g.OverNominalVoltage, g.PowerThreshold, g.VoltageThreshold}
}

func checkLosses(stage string, losses []float64) error {
	for i, l := range losses {
		if math.IsNaN(l) || math.IsInf(l, 0) {
			return fmt.Errorf("%s loss %d is not finite", stage, i)
		}
		if l >= 100 {
			return fmt.Errorf("%s loss %d is %v%%, must be below 100%%", stage, i, l)
		}
	}
	return nil
}

// ValidateLossChain fails when a stage is missing or a factor is not a
// usable percentage.
func ValidateLossChain(cfg types.LossChainConfig) error {
	if cfg.Irradiance == nil {
		return fmt.Errorf("%w: irradiance", ErrMissingStage)
	}
	if cfg.Array == nil {
		return fmt.Errorf("%w: array", ErrMissingStage)
	}
	if cfg.Inverter == nil {
		return fmt.Errorf("%w: inverter", ErrMissingStage)
	}
	if cfg.PostInverter == nil {
		return fmt.Errorf("%w: post-inverter", ErrMissingStage)
	}
	if err := checkLosses("irradiance", irradianceLosses(cfg.Irradiance)); err != nil {
		return err
	}
	if err := checkLosses("array", arrayLosses(cfg.Array)); err != nil {
		return err
	}
	if err := checkLosses("inverter", inverterLosses(cfg.Inverter)); err != nil {
		return err
	}
	return checkLosses("post-inverter", []float64{cfg.PostInverter.Availability})
}

func product(losses []float64) float64 {
	factors := make([]float64, len(losses))
	for i, l := range losses {
		factors[i] = factor(l)
	}
	return floats.Prod(factors)
}

// DCLossMultiplier is the product of every irradiance and array stage factor.
// The config must have passed ValidateLossChain.
func DCLossMultiplier(cfg types.LossChainConfig) float64 {
	return product(append(irradianceLosses(cfg.Irradiance), arrayLosses(cfg.Array)...))
}

// InverterLossMultiplier is the product of the inverter stage factors and the
// post-inverter availability. The config must have passed ValidateLossChain.
func InverterLossMultiplier(cfg types.LossChainConfig) float64 {
	return product(append(inverterLosses(cfg.Inverter), cfg.PostInverter.Availability))
}

// DefaultLossChain returns typical losses for a rooftop commercial system in
// South Africa.
func DefaultLossChain() types.LossChainConfig {
	return types.LossChainConfig{
		Irradiance: &types.IrradianceLosses{
			Transposition:     0,
			NearShading:       1.5,
			IAM:               2.5,
			Soiling:           2.0,
			Spectral:          0.5,
			ElectricalShading: 0.3,
		},
		Array: &types.ArrayLosses{
			IrradianceLevel:   0.8,
			Temperature:       7.5,
			ModuleQuality:     -0.4,
			LID:               1.5,
			ModuleDegradation: 0.4,
			Mismatch:          2.0,
			Ohmic:             1.1,
		},
		Inverter: &types.InverterLosses{
			OperatingEfficiency: 2.0,
			OverNominalPower:    0.1,
			PowerThreshold:      0.05,
		},
		PostInverter: &types.PostInverterLosses{
			Availability: 1.0,
		},
	}
}

func set(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func mergeIrradiance(base *types.IrradianceLosses, o *types.IrradianceLossOverrides) *types.IrradianceLosses {
	if base == nil && o == nil {
		return nil
	}
	out := types.IrradianceLosses{}
	if base != nil {
		out = *base
	}
	if o != nil {
		set(&out.Transposition, o.Transposition)
		set(&out.NearShading, o.NearShading)
		set(&out.IAM, o.IAM)
		set(&out.Soiling, o.Soiling)
		set(&out.Spectral, o.Spectral)
		set(&out.ElectricalShading, o.ElectricalShading)
	}
	return &out
}

func mergeArray(base *types.ArrayLosses, o *types.ArrayLossOverrides) *types.ArrayLosses {
	if base == nil && o == nil {
		return nil
	}
	out := types.ArrayLosses{}
	if base != nil {
		out = *base
	}
	if o != nil {
		set(&out.IrradianceLevel, o.IrradianceLevel)
		set(&out.Temperature, o.Temperature)
		set(&out.ModuleQuality, o.ModuleQuality)
		set(&out.LID, o.LID)
		set(&out.ModuleDegradation, o.ModuleDegradation)
		set(&out.Mismatch, o.Mismatch)
		set(&out.Ohmic, o.Ohmic)
	}
	return &out
}

func mergeInverter(base *types.InverterLosses, o *types.InverterLossOverrides) *types.InverterLosses {
	if base == nil && o == nil {
		return nil
	}
	out := types.InverterLosses{}
	if base != nil {
		out = *base
	}
	if o != nil {
		set(&out.OperatingEfficiency, o.OperatingEfficiency)
		set(&out.OverNominalPower, o.OverNominalPower)
		set(&out.MaxInputCurrent, o.MaxInputCurrent)
		set(&out.OverNominalVoltage, o.OverNominalVoltage)
		set(&out.PowerThreshold, o.PowerThreshold)
		set(&out.VoltageThreshold, o.VoltageThreshold)
	}
	return &out
}

func mergePostInverter(base *types.PostInverterLosses, o *types.PostInverterLossOverrides) *types.PostInverterLosses {
	if base == nil && o == nil {
		return nil
	}
	out := types.PostInverterLosses{}
	if base != nil {
		out = *base
	}
	if o != nil {
		set(&out.Availability, o.Availability)
	}
	return &out
}

// MergeLossChain applies the non-nil override fields onto base, one group at
// a time. base is not modified. An override for a group that base lacks
// creates the group from the overridden fields alone.
func MergeLossChain(base types.LossChainConfig, o types.LossChainOverrides) types.LossChainConfig {
	return types.LossChainConfig{
		Irradiance:   mergeIrradiance(base.Irradiance, o.Irradiance),
		Array:        mergeArray(base.Array, o.Array),
		Inverter:     mergeInverter(base.Inverter, o.Inverter),
		PostInverter: mergePostInverter(base.PostInverter, o.PostInverter),
	}
}

// DecodeOverrides reads loss-chain overrides in TOML. Unknown keys are an
// error so a typo cannot silently leave a loss at its default.
func DecodeOverrides(r io.Reader) (types.LossChainOverrides, error) {
	var o types.LossChainOverrides
	md, err := toml.NewDecoder(r).Decode(&o)
	if err != nil {
		return types.LossChainOverrides{}, fmt.Errorf("failed to decode loss chain overrides: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return types.LossChainOverrides{}, fmt.Errorf("unknown loss chain keys: %s", strings.Join(keys, ", "))
	}
	return o, nil
}

// LoadOverridesFile reads loss-chain overrides from a TOML file.
func LoadOverridesFile(path string) (types.LossChainOverrides, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.LossChainOverrides{}, fmt.Errorf("failed to open loss chain config: %w", err)
	}
	defer f.Close()
	return DecodeOverrides(f)
}
