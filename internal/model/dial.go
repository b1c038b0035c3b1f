package model

import "strings"

// DialSetting is a position of the multimeter's function knob.
type DialSetting string

const (
	DialR200    DialSetting = "r_200"
	DialR2000   DialSetting = "r_2000"
	DialR20k    DialSetting = "r_20k"
	DialR200k   DialSetting = "r_200k"
	DialR2000k  DialSetting = "r_2000k"
	DialDCV1000 DialSetting = "dcv_1000"
	DialDCV200  DialSetting = "dcv_200"
	DialDCV20   DialSetting = "dcv_20"
	DialDCV2000 DialSetting = "dcv_2000m"
	DialDCV200m DialSetting = "dcv_200m"
	DialACV750  DialSetting = "acv_750"
	DialACV200  DialSetting = "acv_200"
	DialP9V     DialSetting = "p_9v"
	DialDCA200u DialSetting = "dca_200mc"
	DialDCA2000 DialSetting = "dca_2000mc"
	DialDCA20m  DialSetting = "dca_20m"
	DialDCA200m DialSetting = "dca_200m"
	DialC10A    DialSetting = "c_10a"
	DialHFE     DialSetting = "hfe"
	DialDiode   DialSetting = "diode"
)

// DefaultDial is the knob position of a fresh multimeter.
const DefaultDial = DialACV750

var dialLabels = map[DialSetting]string{
	DialR2000k:  "\u2126 - 2000k",
	DialR200k:   "\u2126 - 200k",
	DialR20k:    "\u2126 - 20k",
	DialR2000:   "\u2126 - 2000",
	DialR200:    "\u2126 - 200",
	DialDCV1000: "DCV - 1000",
	DialDCV200:  "DCV - 200",
	DialDCV20:   "DCV - 20",
	DialDCV2000: "DCV - 2000m",
	DialDCV200m: "DCV - 200m",
	DialACV750:  "ACV - 750",
	DialACV200:  "ACV - 200",
	DialP9V:     "1.5V 9V",
	DialDCA200u: "DCA - 200\u03bc",
	DialDCA2000: "DCA - 2000\u03bc",
	DialDCA20m:  "DCA - 20m",
	DialDCA200m: "DCA - 200m",
	DialC10A:    "10A",
	DialHFE:     "hFE",
	DialDiode:   "Diode",
}

// Valid reports whether d is a known knob position.
func (d DialSetting) Valid() bool {
	_, ok := dialLabels[d]
	return ok
}

// IsResistance reports whether d is one of the ohmmeter scales.
func (d DialSetting) IsResistance() bool {
	switch d {
	case DialR200, DialR2000, DialR20k, DialR200k, DialR2000k:
		return true
	}
	return false
}

// Label returns the text printed next to the knob position, e.g. "Ω - 20k".
// Unknown positions are returned as is.
func (d DialSetting) Label() string {
	if l, ok := dialLabels[d]; ok {
		return l
	}
	return string(d)
}

// OptimalDial returns the resistance scale giving the most precise reading
// for a resistance of ohms.
func OptimalDial(ohms float64) DialSetting {
	switch {
	case ohms < 200:
		return DialR200
	case ohms < 2000:
		return DialR2000
	case ohms < 20e3:
		return DialR20k
	case ohms < 200e3:
		return DialR200k
	}
	return DialR2000k
}

// Endpoint is one end of a multimeter lead.
type Endpoint string

const (
	RedProbe   Endpoint = "red_probe"
	BlackProbe Endpoint = "black_probe"
	RedPlug    Endpoint = "red_plug"
	BlackPlug  Endpoint = "black_plug"
)

// Valid reports whether e is a known endpoint.
func (e Endpoint) Valid() bool {
	switch e {
	case RedProbe, BlackProbe, RedPlug, BlackPlug:
		return true
	}
	return false
}

// Multimeter jacks and resistor nodes that endpoints attach to.
const (
	VOmAPort      = "voma_port"
	CommonPort    = "common_port"
	ResistorLead1 = "resistor_lead1"
	ResistorLead2 = "resistor_lead2"
)

// ConnectionValue encodes a connect/disconnect event value.
func ConnectionValue(e Endpoint, node string) string {
	return string(e) + "|" + node
}

// ParseConnection splits a connect/disconnect event value into endpoint and
// node. The node is empty when the value carries none.
func ParseConnection(v string) (Endpoint, string) {
	ep, node, _ := strings.Cut(v, "|")
	return Endpoint(ep), node
}
