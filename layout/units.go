package layout

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Unit is the unit a length attribute was written with.
type Unit int

const (
	UnitNone    Unit = iota // unit-less numbers
	UnitMM                  // millimeters
	UnitCM                  // centimeters
	UnitIN                  // inches
	UnitPT                  // points
	UnitPercent             // relative, resolved by the consumer
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

var unitSuffixes = []struct {
	s string
	u Unit
}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"%", UnitPercent}}

func (u Unit) String() string {
	for _, suf := range unitSuffixes {
		if suf.u == u {
			return suf.s
		}
	}
	return ""
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + l.Unit.String()
}

// ToMM converts absolute lengths to millimeters. Unit-less and percent values are returned as-is.
func (l Length) ToMM() float64 {
	switch l.Unit {
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	default:
		return l.Value
	}
}

// ToPT converts absolute lengths to points. Unit-less and percent values are returned as-is.
func (l Length) ToPT() float64 {
	switch l.Unit {
	case UnitMM, UnitCM, UnitIN:
		return l.ToMM() * MmToPt
	default:
		return l.Value
	}
}

// ParseLength parses a number with an optional unit suffix, e.g. "12pt" or "4.5mm".
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, errors.New("长度为空")
	}
	unit := UnitNone
	num := v
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, errors.Wrapf(err, "无法解析长度 %q", value)
	}
	return Length{Value: f, Unit: unit}, nil
}

func hasUnitSuffix(value string) bool {
	v := strings.ToLower(value)
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(v, suf.s) {
			return true
		}
	}
	return false
}
