// Package profile classifies consumption profiles before they are used for
// load estimates.
package profile

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultEpsilon         = 1e-9
	DefaultOutlierMultiple = 1000
	DefaultAbsoluteCeiling = 10000
	DefaultFlatCVThreshold = 0.05
	// MinimumLength is the number of hourly values a profile needs.
	MinimumLength = 24
)

// Warning messages. Outlier warnings carry the hour and value.
const (
	WarningNoUsage    = "no usage data"
	WarningFlatLine   = "flat line: profile may not reflect real variability"
	WarningIncomplete = "incomplete profile"
)

// Validator flags degenerate consumption profiles. Zero fields use the
// package defaults.
type Validator struct {
	Epsilon         float64
	OutlierMultiple float64
	AbsoluteCeiling float64
	FlatCVThreshold float64
}

// Result is the verdict for a single profile.
type Result struct {
	Invalid  bool     `json:"invalid"`
	Warnings []string `json:"warnings,omitempty"`

	AllZero    bool  `json:"allZero,omitempty"`
	Flat       bool  `json:"flat,omitempty"`
	Incomplete bool  `json:"incomplete,omitempty"`
	Outliers   []int `json:"outliers,omitempty"`
}

func (r *Result) warn(invalid bool, format string, args ...any) {
	if invalid {
		r.Invalid = true
	}
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (v Validator) withDefaults() Validator {
	if v.Epsilon <= 0 {
		v.Epsilon = DefaultEpsilon
	}
	if v.OutlierMultiple <= 0 {
		v.OutlierMultiple = DefaultOutlierMultiple
	}
	if v.AbsoluteCeiling <= 0 {
		v.AbsoluteCeiling = DefaultAbsoluteCeiling
	}
	if v.FlatCVThreshold <= 0 {
		v.FlatCVThreshold = DefaultFlatCVThreshold
	}
	return v
}

// Validate classifies values. referencePeak is optional (<= 0 to ignore) and
// bounds values to OutlierMultiple times a known peak.
func (v Validator) Validate(values []float64, referencePeak float64) Result {
	v = v.withDefaults()
	var res Result

	if len(values) < MinimumLength {
		res.Incomplete = true
		res.warn(true, "%s: %d of %d hours", WarningIncomplete, len(values), MinimumLength)
		if len(values) == 0 {
			return res
		}
	}

	for i, x := range values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			res.warn(true, "non-finite value at hour %d", i)
			return res
		}
	}

	for i, x := range values {
		if x < -v.Epsilon {
			res.warn(false, "negative value at hour %d: %g", i, x)
		}
	}

	nonZero := make([]float64, 0, len(values))
	for _, x := range values {
		if math.Abs(x) > v.Epsilon {
			nonZero = append(nonZero, x)
		}
	}
	if len(nonZero) == 0 {
		res.AllZero = true
		res.warn(true, WarningNoUsage)
		return res
	}

	med := median(nonZero)
	for i, x := range values {
		outlier := x > v.AbsoluteCeiling
		if med > 0 && x > v.OutlierMultiple*med {
			outlier = true
		}
		if referencePeak > 0 && x > v.OutlierMultiple*referencePeak {
			outlier = true
		}
		if outlier {
			res.Outliers = append(res.Outliers, i)
			res.warn(true, "outlier at hour %d: %g", i, x)
		}
	}

	mean, std := stat.MeanStdDev(values, nil)
	if mean > 0 && std/mean < v.FlatCVThreshold {
		res.Flat = true
		res.warn(false, WarningFlatLine)
	}

	return res
}

// Validate uses the default Validator.
func Validate(values []float64, referencePeak float64) Result {
	return Validator{}.Validate(values, referencePeak)
}

// Peak returns the maximum value of the profile, or 0 when empty.
func Peak(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Max(values)
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
