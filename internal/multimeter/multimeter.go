// Package multimeter models the digital multimeter used to measure the
// resistor: its leads, knob, power switch and seven-character display.
package multimeter

import (
	"math"
	"strconv"
	"strings"

	"github.com/pavelanni/mrtutor/internal/model"
)

// Blank is the display of a meter that is switched off.
const Blank = "       "

// scale describes how an ohmmeter range shows a resistance.
type scale struct {
	limit    float64 // first value that overloads the range
	round    func(float64) float64
	decimals int
	overload string
}

var scales = map[model.DialSetting]scale{
	model.DialR200:   {199.95, func(v float64) float64 { return math.Round(v*10) * 0.1 }, 1, " 1   . "},
	model.DialR2000:  {1999.5, math.Round, 0, " 1     "},
	model.DialDiode:  {1999.5, math.Round, 0, " 1     "},
	model.DialR20k:   {19995, func(v float64) float64 { return math.Round(v*0.1) * 0.01 }, 2, " 1 .   "},
	model.DialR200k:  {199950, func(v float64) float64 { return math.Round(v*0.01) * 0.1 }, 1, " 1   . "},
	model.DialR2000k: {1999500, func(v float64) float64 { return math.Round(v * 0.001) }, 0, " 1     "},
}

// fixed is what the non-resistance positions show with a resistor attached.
var fixed = map[model.DialSetting]string{
	model.DialDCV200m: "  0 0.0",
	model.DialDCV200:  "  0 0.0",
	model.DialACV200:  "  0 0.0",
	model.DialP9V:     "  0 0.0",
	model.DialDCA200u: "  0 0.0",
	model.DialDCA200m: "  0 0.0",
	model.DialDCV2000: "  0 0 0",
	model.DialDCA2000: "  0 0 0",
	model.DialHFE:     "  0 0 0",
	model.DialDCV20:   "  0.0 0",
	model.DialDCA20m:  "  0.0 0",
	model.DialC10A:    "  0.0 0",
	model.DialDCV1000: "h 0 0 0",
	model.DialACV750:  "h 0 0 0",
}

// Multimeter is the state of the meter. Lead fields hold the node each
// lead end is attached to, empty when loose.
type Multimeter struct {
	RedProbe   string
	BlackProbe string
	RedPlug    string
	BlackPlug  string
	Dial       model.DialSetting
	PowerOn    bool
	// Value is the resistance across the probes in ohms.
	Value float64
}

// New returns a switched-off meter with nothing attached and the knob at
// its default position.
func New() *Multimeter {
	return &Multimeter{Dial: model.DefaultDial}
}

// Connect attaches a lead end to node.
func (m *Multimeter) Connect(ep model.Endpoint, node string) {
	switch ep {
	case model.RedProbe:
		m.RedProbe = node
	case model.BlackProbe:
		m.BlackProbe = node
	case model.RedPlug:
		m.RedPlug = node
	case model.BlackPlug:
		m.BlackPlug = node
	}
}

// Disconnect detaches a lead end.
func (m *Multimeter) Disconnect(ep model.Endpoint) {
	m.Connect(ep, "")
}

// Connection returns the node a lead end is attached to.
func (m *Multimeter) Connection(ep model.Endpoint) string {
	switch ep {
	case model.RedProbe:
		return m.RedProbe
	case model.BlackProbe:
		return m.BlackProbe
	case model.RedPlug:
		return m.RedPlug
	case model.BlackPlug:
		return m.BlackPlug
	}
	return ""
}

// AllConnected reports whether the meter is on and wired across the
// resistor, with the plugs in the two measuring jacks either way round.
func (m *Multimeter) AllConnected() bool {
	plugsIn := m.RedPlug == model.VOmAPort && m.BlackPlug == model.CommonPort ||
		m.RedPlug == model.CommonPort && m.BlackPlug == model.VOmAPort
	return m.RedProbe != "" && m.BlackProbe != "" && m.RedProbe != m.BlackProbe &&
		plugsIn && m.PowerOn
}

// DisplayText returns the seven characters on the display. Digit positions
// are separated by a space or a decimal point.
func (m *Multimeter) DisplayText() string {
	if !m.PowerOn {
		return Blank
	}
	if t, ok := fixed[m.Dial]; ok {
		return t
	}
	sc, ok := scales[m.Dial]
	if !ok {
		return Blank
	}
	if !m.AllConnected() || m.Value >= sc.limit {
		return sc.overload
	}
	return displayString(strconv.FormatFloat(sc.round(m.Value), 'f', -1, 64), sc.decimals)
}

// displayString lays out a number as sign, four digits and the decimal
// point for the given number of decimals.
func displayString(s string, decimals int) string {
	sign := " "
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > decimals {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))
	s = whole + frac
	if len(s) < 4 {
		s = " " + strings.Repeat("0", 3-len(s)) + s
	}

	dot1, dot2 := " ", " "
	switch decimals {
	case 1:
		dot2 = "."
	case 2:
		dot1 = "."
	}
	return sign + s[:2] + dot1 + s[2:3] + dot2 + s[3:4]
}

// DisplayValue returns the reading the meter shows for ohms on the best
// resistance scale. It reports false when no scale can show the value.
func DisplayValue(ohms float64) (float64, bool) {
	var v float64
	switch {
	case ohms < 199.95:
		v = math.Round(ohms*10) / 10
	case ohms < 1999.5:
		v = math.Round(ohms)
	case ohms < 19995:
		v = math.Round(ohms*0.1) * 10
	case ohms < 199950:
		v = math.Round(ohms*0.01) * 100
	case ohms < 1999500:
		v = math.Round(ohms*0.001) * 1000
	default:
		return 0, false
	}
	return v, true
}
