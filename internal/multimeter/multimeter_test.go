package multimeter

import (
	"testing"

	"github.com/pavelanni/mrtutor/internal/model"
)

func wired(dial model.DialSetting, ohms float64) *Multimeter {
	m := New()
	m.Connect(model.RedPlug, model.VOmAPort)
	m.Connect(model.BlackPlug, model.CommonPort)
	m.Connect(model.RedProbe, model.ResistorLead1)
	m.Connect(model.BlackProbe, model.ResistorLead2)
	m.Dial = dial
	m.PowerOn = true
	m.Value = ohms
	return m
}

func TestDisplayText(t *testing.T) {
	tests := []struct {
		name string
		dial model.DialSetting
		ohms float64
		want string
	}{
		{"200 scale", model.DialR200, 98.74, "  9 8.7"},
		{"200 scale small", model.DialR200, 5, "  0 5.0"},
		{"200 overload", model.DialR200, 199.95, " 1   . "},
		{"2000 scale", model.DialR2000, 987.2, "  9 8 7"},
		{"2000 four digits", model.DialR2000, 1500, " 15 0 0"},
		{"2000 overload", model.DialR2000, 4700, " 1     "},
		{"20k scale", model.DialR20k, 4700, "  4.7 0"},
		{"20k overload", model.DialR20k, 47000, " 1 .   "},
		{"200k scale", model.DialR200k, 47000, "  4 7.0"},
		{"2000k scale", model.DialR2000k, 1.2e6, " 12 0 0"},
		{"2000k overload", model.DialR2000k, 2e6, " 1     "},
		{"diode", model.DialDiode, 220, "  2 2 0"},
		{"ac volts", model.DialACV750, 1000, "h 0 0 0"},
		{"dc volts 20", model.DialDCV20, 1000, "  0.0 0"},
		{"hfe", model.DialHFE, 1000, "  0 0 0"},
		{"current", model.DialDCA200m, 1000, "  0 0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wired(tt.dial, tt.ohms).DisplayText()
			if got != tt.want {
				t.Errorf("DisplayText() = %q, want %q", got, tt.want)
			}
			if len(got) != 7 {
				t.Errorf("display has %d characters, want 7", len(got))
			}
		})
	}
}

func TestDisplayTextNotConnected(t *testing.T) {
	m := wired(model.DialR2000, 987)
	m.Disconnect(model.BlackProbe)
	if got := m.DisplayText(); got != " 1     " {
		t.Errorf("loose probe shows %q, want overload", got)
	}

	m = wired(model.DialR2000, 987)
	m.Connect(model.BlackProbe, model.ResistorLead1)
	if m.AllConnected() {
		t.Error("both probes on one lead counted as connected")
	}

	m = wired(model.DialR2000, 987)
	m.Connect(model.RedPlug, model.CommonPort)
	m.Connect(model.BlackPlug, model.VOmAPort)
	if got := m.DisplayText(); got != "  9 8 7" {
		t.Errorf("reversed plugs show %q, want a reading", got)
	}

	m.PowerOn = false
	if got := m.DisplayText(); got != Blank {
		t.Errorf("switched off meter shows %q", got)
	}
}

func TestDisplayValue(t *testing.T) {
	tests := []struct {
		ohms   float64
		want   float64
		wantOK bool
	}{
		{98.74, 98.7, true},
		{199.94, 199.9, true},
		{199.95, 200, true},
		{987.4, 987, true},
		{4749, 4750, true},
		{47123, 47100, true},
		{1234567, 1235000, true},
		{1999500, 0, false},
	}
	for _, tt := range tests {
		got, ok := DisplayValue(tt.ohms)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("DisplayValue(%v) = %v, %v; want %v, %v", tt.ohms, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestConnection(t *testing.T) {
	m := New()
	if m.Dial != model.DefaultDial {
		t.Errorf("new meter dial = %s, want %s", m.Dial, model.DefaultDial)
	}
	m.Connect(model.RedProbe, model.ResistorLead2)
	if got := m.Connection(model.RedProbe); got != model.ResistorLead2 {
		t.Errorf("Connection(red_probe) = %q", got)
	}
	m.Disconnect(model.RedProbe)
	if got := m.Connection(model.RedProbe); got != "" {
		t.Errorf("after Disconnect, Connection(red_probe) = %q", got)
	}
}
