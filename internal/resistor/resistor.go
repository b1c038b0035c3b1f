// Package resistor models the color-coded resistors a learner measures.
package resistor

import (
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/pavelanni/mrtutor/internal/measure"
)

// Component is a resistor that can be drawn at random and read by its
// color bands.
type Component interface {
	ID() string
	NumBands() int
	// Randomize draws a new nominal value, tolerance and real value.
	Randomize(r *rand.Rand)
	NominalValue() float64
	Tolerance() float64
	RealValue() float64
	// SetValues replaces the drawn values, e.g. for fixed scenarios.
	SetValues(nominal, real, tolerance float64)
	// Colors returns the band colors from left to right.
	Colors() []string
}

// Nominal values are kept within what the ohmmeter scales can show.
const (
	minValue = 10.0
	maxValue = 2e6
)

// outlierChance is the probability that a drawn resistor lies outside its
// rated tolerance.
const outlierChance = 0.2

var digitColors = map[int]string{
	-2: "silver", -1: "gold",
	0: "black", 1: "brown", 2: "red", 3: "orange", 4: "yellow",
	5: "green", 6: "blue", 7: "violet", 8: "grey", 9: "white",
}

var toleranceColors = map[float64]string{
	0.01:   "brown",
	0.02:   "red",
	0.005:  "green",
	0.0025: "blue",
	0.001:  "violet",
	0.0005: "gray",
	0.05:   "gold",
	0.1:    "silver",
	0.2:    "none",
}

// base is the shared state of both resistor kinds.
type base struct {
	id       string
	numBands int
	nominal  float64
	real     float64
	tol      float64

	tolerances []float64
	series     map[float64][]float64
}

func (b *base) ID() string            { return b.id }
func (b *base) NumBands() int         { return b.numBands }
func (b *base) NominalValue() float64 { return b.nominal }
func (b *base) Tolerance() float64    { return b.tol }
func (b *base) RealValue() float64    { return b.real }

func (b *base) SetValues(nominal, real, tolerance float64) {
	b.nominal, b.real, b.tol = nominal, real, tolerance
}

func (b *base) Randomize(r *rand.Rand) {
	b.tol = b.tolerances[r.IntN(len(b.tolerances))]
	values := b.series[b.tol]
	b.nominal = values[r.IntN(len(values))]
	b.real = RealValue(r, b.nominal, b.tol)
}

// Colors encodes the nominal value as numBands-2 digit bands, a multiplier
// band and a tolerance band.
func (b *base) Colors() []string {
	digits := b.numBands - 2
	if b.nominal <= 0 {
		return nil
	}
	sig := strconv.FormatInt(measure.RoundedSigDigits(b.nominal, digits), 10)
	for len(sig) < digits {
		sig += "0"
	}
	exp := measure.LeftMostPos(b.nominal) - (digits - 1)
	// Rounding can carry into a new digit, e.g. 999.6 -> "1000".
	if len(sig) > digits {
		sig = sig[:digits]
		exp++
	}

	colors := make([]string, 0, b.numBands)
	for _, c := range sig[:digits] {
		colors = append(colors, digitColors[int(c-'0')])
	}
	colors = append(colors, digitColors[exp], toleranceColors[b.tol])
	return colors
}

// FourBand is a two-digit resistor rated 5% or 10%.
type FourBand struct{ base }

// NewFourBand creates a four-band resistor with no values drawn yet.
func NewFourBand() *FourBand {
	return &FourBand{base{
		id:         "resistor_4band",
		numBands:   4,
		tolerances: []float64{0.05, 0.1},
		series: map[float64][]float64{
			0.05: expand(e24, 0, 5),
			0.1:  expand(e12, 0, 5),
		},
	}}
}

// FiveBand is a three-digit precision resistor rated 1% or 2%.
type FiveBand struct{ base }

// NewFiveBand creates a five-band resistor with no values drawn yet.
func NewFiveBand() *FiveBand {
	return &FiveBand{base{
		id:         "resistor_5band",
		numBands:   5,
		tolerances: []float64{0.01, 0.02},
		series: map[float64][]float64{
			0.01: expand(e96, -1, 4),
			0.02: expand(e48, -1, 4),
		},
	}}
}

// RealValue draws the actual resistance of a part rated nominal ± tolerance.
// Most parts fall well inside the band; some lie outside it by up to one
// more tolerance width.
func RealValue(r *rand.Rand, nominal, tolerance float64) float64 {
	if r.Float64() < outlierChance {
		off := nominal * (tolerance + r.Float64()*tolerance)
		if r.Float64() < 0.5 {
			return nominal + off
		}
		return nominal - off
	}
	spread := tolerance * 0.9
	lo, hi := 1-spread, 1+spread
	return nominal * (pseudoGaussian(r, 3)*(hi-lo) + lo)
}

// pseudoGaussian averages n uniform draws.
func pseudoGaussian(r *rand.Rand, n int) float64 {
	sum := 0.0
	for range n {
		sum += r.Float64()
	}
	return sum / float64(n)
}

// expand scales a series of preferred values by the decades 10^lo..10^hi
// and keeps the values in [minValue, maxValue).
func expand(series []float64, lo, hi int) []float64 {
	var out []float64
	for e := lo; e <= hi; e++ {
		for _, v := range series {
			x := measure.Clean(v * math.Pow10(e))
			if x >= minValue && x < maxValue {
				out = append(out, x)
			}
		}
	}
	return out
}
