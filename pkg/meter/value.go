package meter

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DecimalSeparator decides how the separators in a value column are read.
type DecimalSeparator int

const (
	// DecimalAuto accepts either separator as the decimal point unless the
	// value could also be read with a thousands separator, e.g. "1,234".
	DecimalAuto DecimalSeparator = iota
	// DecimalPoint reads "1,234.5" as 1234.5.
	DecimalPoint
	// DecimalComma reads "1.234,5" as 1234.5.
	DecimalComma
)

func (d DecimalSeparator) String() string {
	switch d {
	case DecimalPoint:
		return "."
	case DecimalComma:
		return ","
	}
	return "auto"
}

// ParseDecimalSeparator parses "auto", "." or ",". An empty string is auto.
func ParseDecimalSeparator(s string) (DecimalSeparator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DecimalAuto, nil
	case ".", "point":
		return DecimalPoint, nil
	case ",", "comma":
		return DecimalComma, nil
	}
	return DecimalAuto, fmt.Errorf("unknown decimal separator: %q", s)
}

// errAmbiguousValue is returned for values like "1,234" that read as either
// 1.234 or 1234 when the separator is not known.
var errAmbiguousValue = errors.New("ambiguous decimal separator")

var (
	// a single separator followed by exactly three digits
	ambiguousGroup = regexp.MustCompile(`^[+-]?\d{1,3}[.,]\d{3}$`)
	pointGrouped   = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?$`)
	commaGrouped   = regexp.MustCompile(`^[+-]?\d{1,3}(\.\d{3})+(,\d*)?$`)
)

func (d DecimalSeparator) parse(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	hasComma := strings.Contains(s, ",")
	hasPoint := strings.Contains(s, ".")

	switch d {
	case DecimalPoint:
		if hasComma {
			if !pointGrouped.MatchString(s) {
				return 0, fmt.Errorf("invalid thousands grouping in %q", s)
			}
			s = strings.ReplaceAll(s, ",", "")
		}
	case DecimalComma:
		if hasPoint {
			if !commaGrouped.MatchString(s) {
				return 0, fmt.Errorf("invalid thousands grouping in %q", s)
			}
			s = strings.ReplaceAll(s, ".", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
	default:
		switch {
		case hasComma && hasPoint:
			// the last separator is the decimal one
			if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
				return DecimalComma.parse(s)
			}
			return DecimalPoint.parse(s)
		case hasComma && ambiguousGroup.MatchString(s):
			return 0, errAmbiguousValue
		case hasComma:
			if strings.Count(s, ",") > 1 {
				return DecimalPoint.parse(s)
			}
			s = strings.ReplaceAll(s, ",", ".")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}
