package measure

import (
	"math"
	"strconv"
	"strings"
)

// FormatNumber renders x as the shortest decimal that parses back to x,
// without an exponent.
func FormatNumber(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// stripZeros drops leading and trailing zeros. A string of zeros only is
// left alone.
func stripZeros(s string) string {
	if !strings.ContainsFunc(s, func(r rune) bool { return r != '0' }) {
		return s
	}
	s = strings.TrimLeft(s, "0")
	return strings.TrimRight(s, "0")
}

// stripZerosAndDots removes the first decimal point, then strips zeros.
func stripZerosAndDots(s string) string {
	return stripZeros(strings.Replace(s, ".", "", 1))
}

// EqualExceptPowerOfTen reports whether x and y carry the same significant
// digits, e.g. 1230 and 123, or 4.7 and 4700.
func EqualExceptPowerOfTen(x, y float64) bool {
	return stripZerosAndDots(FormatNumber(x)) == stripZerosAndDots(FormatNumber(y))
}

// OneDigitOff reports whether x and y, written out with the decimal point
// kept in place, have the same length and differ in at most one character.
func OneDigitOff(x, y float64) bool {
	sx := withDot(FormatNumber(x))
	sy := withDot(FormatNumber(y))
	sx, sy = stripZeros(sx), stripZeros(sy)
	if len(sx) != len(sy) {
		return false
	}
	diff := 0
	for i := 0; i < len(sx); i++ {
		if sx[i] != sy[i] {
			diff++
			if diff > 1 {
				return false
			}
		}
	}
	return true
}

func withDot(s string) string {
	if !strings.Contains(s, ".") {
		return s + "."
	}
	return s
}

// LeftMostPos returns the power of ten of the leftmost significant digit of
// x: 0 for 1..9, 2 for 100..999, -1 for 0.1..0.99. Zero, negative and NaN
// input yields 0.
func LeftMostPos(x float64) int {
	if math.IsNaN(x) || math.IsInf(x, 0) || x <= 0 {
		return 0
	}
	n := 0
	y := x
	if x < 1 {
		for y < 1 {
			y *= 10
			n--
		}
		return n
	}
	for y >= 10 {
		y /= 10
		n++
	}
	return n
}

// RoundToSigDigits rounds x to n significant digits.
func RoundToSigDigits(x float64, n int) float64 {
	p := n - LeftMostPos(x) - 1
	if p >= 0 {
		k := math.Pow10(p)
		return math.Round(x*k) / k
	}
	k := math.Pow10(-p)
	return math.Round(x/k) * k
}

// RoundedSigDigits returns the integer formed by the first n significant
// digits of x after rounding, e.g. RoundedSigDigits(12345, 3) == 123.
func RoundedSigDigits(x float64, n int) int64 {
	p := n - LeftMostPos(x) - 1
	if p >= 0 {
		return int64(math.Round(x * math.Pow10(p)))
	}
	return int64(math.Round(x / math.Pow10(-p)))
}
