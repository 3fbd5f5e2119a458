package meter

// DefaultRolloverFraction is the share of the previous reading a cumulative
// counter has to drop by before the drop is treated as the meter wrapping.
const DefaultRolloverFraction = 0.9

// DeltaStatus describes how a delta between two cumulative readings was derived.
type DeltaStatus int

const (
	// DeltaNormal is a monotonic increase.
	DeltaNormal DeltaStatus = iota
	// DeltaRollover means the counter wrapped and the delta is the new reading.
	DeltaRollover
	// DeltaDecrease is a drop too small to be a wrap. The delta is zero.
	DeltaDecrease
)

func (s DeltaStatus) String() string {
	switch s {
	case DeltaRollover:
		return "rollover"
	case DeltaDecrease:
		return "decrease"
	}
	return "normal"
}

// DeltaCalculator converts consecutive cumulative readings into usage.
type DeltaCalculator struct {
	// RolloverFraction must be in (0, 1]. Other values use DefaultRolloverFraction.
	RolloverFraction float64
}

// Delta returns the usage between previous and current.
//
// A rollover is detected when current < previous and
// previous-current >= RolloverFraction*previous, i.e. the counter fell back
// close to zero. The usage since the wrap is then current itself.
func (c DeltaCalculator) Delta(previous, current float64) (float64, DeltaStatus) {
	if current >= previous {
		return current - previous, DeltaNormal
	}
	fraction := c.RolloverFraction
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultRolloverFraction
	}
	if previous > 0 && current >= 0 && previous-current >= fraction*previous {
		return current, DeltaRollover
	}
	return 0, DeltaDecrease
}

// CalculateDelta is Delta with DefaultRolloverFraction.
func CalculateDelta(previous, current float64) float64 {
	d, _ := DeltaCalculator{RolloverFraction: DefaultRolloverFraction}.Delta(previous, current)
	return d
}
