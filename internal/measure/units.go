// Package measure holds the unit and number helpers shared by the grader,
// the multimeter model and the report writer.
package measure

import (
	"math"
	"strconv"
	"strings"
)

// Resistance unit labels as they appear in the unit selectors.
const (
	Ohms     = "Ω"
	KiloOhms = "kΩ"
	MegaOhms = "MΩ"
)

// cleanDigits is the number of significant digits kept after scaling a value,
// enough to drop binary noise such as 1.1*1000 = 1100.0000000000002.
const cleanDigits = 15

// CanonicalUnit maps accepted spellings of a resistance unit to its label.
// Unknown units are returned trimmed and otherwise unchanged.
func CanonicalUnit(unit string) string {
	u := strings.TrimSpace(unit)
	switch u {
	case Ohms, "\u03a9", "ohm", "ohms", "Ohm", "Ohms":
		return Ohms
	case KiloOhms, "k\u03a9", "kohm", "kohms", "kOhm", "kOhms":
		return KiloOhms
	case MegaOhms, "M\u03a9", "Mohm", "Mohms", "MOhm", "MOhms":
		return MegaOhms
	}
	return u
}

// OhmCompatible reports whether unit is a resistance unit.
func OhmCompatible(unit string) bool {
	switch CanonicalUnit(unit) {
	case Ohms, KiloOhms, MegaOhms:
		return true
	}
	return false
}

// NormalizeToOhms converts value expressed in unit to ohms.
func NormalizeToOhms(value float64, unit string) (float64, bool) {
	var mult float64
	switch CanonicalUnit(unit) {
	case Ohms:
		mult = 1
	case KiloOhms:
		mult = 1e3
	case MegaOhms:
		mult = 1e6
	default:
		return 0, false
	}
	return Clean(value * mult), true
}

// Clean rounds x to 15 significant digits.
func Clean(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'g', cleanDigits, 64), 64)
	if err != nil {
		return x
	}
	return v
}

// ParseNumber parses a learner-entered number. Blank, malformed and
// non-finite input is rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ResString formats a resistance with the largest unit that keeps the value
// at or above one, e.g. "987 Ω", "4.7 kΩ", "1.5 MΩ".
func ResString(ohms float64) string {
	if math.IsNaN(ohms) || math.IsInf(ohms, 0) {
		return "Invalid Value " + FormatNumber(ohms)
	}
	val, unit := ohms, Ohms
	switch {
	case ohms < 1000:
	case ohms < 1e6:
		val, unit = ohms/1000, KiloOhms
	default:
		val, unit = ohms/1e6, MegaOhms
	}
	s := strconv.FormatFloat(val, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s + " " + unit
}

// ResUnitString formats ohms in the unit selected by mult ("k", "M" or
// anything else for plain ohms).
func ResUnitString(ohms float64, mult string) string {
	switch mult {
	case "k":
		return FormatNumber(Clean(ohms/1e3)) + " " + KiloOhms
	case "M":
		return FormatNumber(Clean(ohms/1e6)) + " " + MegaOhms
	}
	return FormatNumber(ohms) + " " + Ohms
}

// PctString formats a fraction as a percentage, e.g. 0.05 -> "5 %".
func PctString(frac float64) string {
	return FormatNumber(Clean(frac*100)) + " %"
}
