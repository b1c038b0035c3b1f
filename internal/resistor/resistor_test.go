package resistor

import (
	"math/rand/v2"
	"slices"
	"testing"
)

func TestColors(t *testing.T) {
	tests := []struct {
		name      string
		c         Component
		nominal   float64
		tolerance float64
		want      []string
	}{
		{"4.7k 5%", NewFourBand(), 4700, 0.05, []string{"yellow", "violet", "red", "gold"}},
		{"10 ohm 10%", NewFourBand(), 10, 0.1, []string{"brown", "black", "black", "silver"}},
		{"1.8M 5%", NewFourBand(), 1.8e6, 0.05, []string{"brown", "grey", "green", "gold"}},
		{"10.2 ohm 1%", NewFiveBand(), 10.2, 0.01, []string{"brown", "black", "red", "gold", "brown"}},
		{"1.96M 2%", NewFiveBand(), 1.96e6, 0.02, []string{"brown", "white", "blue", "yellow", "red"}},
		{"475 ohm 1%", NewFiveBand(), 475, 0.01, []string{"yellow", "violet", "green", "black", "brown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.c.SetValues(tt.nominal, tt.nominal, tt.tolerance)
			got := tt.c.Colors()
			if !slices.Equal(got, tt.want) {
				t.Errorf("Colors() = %v, want %v", got, tt.want)
			}
			if len(got) != tt.c.NumBands() {
				t.Errorf("got %d bands, want %d", len(got), tt.c.NumBands())
			}
		})
	}
}

func TestExpand(t *testing.T) {
	got := expand(e12, 0, 5)
	if len(got) != 64 {
		t.Fatalf("expand(e12) has %d values, want 64", len(got))
	}
	if got[0] != 10 || got[len(got)-1] != 1.8e6 {
		t.Errorf("expand(e12) spans %v..%v, want 10..1.8e6", got[0], got[len(got)-1])
	}
	five := expand(e96, -1, 4)
	if five[1] != 10.2 {
		t.Errorf("expand(e96)[1] = %v, want 10.2", five[1])
	}
	for _, v := range five {
		if v < minValue || v >= maxValue {
			t.Fatalf("value %v outside [%v, %v)", v, minValue, maxValue)
		}
	}
}

func TestRandomize(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	four, five := NewFourBand(), NewFiveBand()
	for _, tc := range []struct {
		c Component
		b *base
	}{{four, &four.base}, {five, &five.base}} {
		outliers := 0
		for range 500 {
			tc.c.Randomize(r)
			tol := tc.c.Tolerance()
			if !slices.Contains(tc.b.tolerances, tol) {
				t.Fatalf("%s: tolerance %v not offered", tc.c.ID(), tol)
			}
			nom := tc.c.NominalValue()
			if !slices.Contains(tc.b.series[tol], nom) {
				t.Fatalf("%s: nominal %v not in its series", tc.c.ID(), nom)
			}
			rv := tc.c.RealValue()
			if rv < nom*(1-2*tol) || rv > nom*(1+2*tol) {
				t.Fatalf("%s: real %v too far from %v at %v", tc.c.ID(), rv, nom, tol)
			}
			if rv < nom*(1-tol) || rv > nom*(1+tol) {
				outliers++
			}
		}
		if outliers == 0 || outliers > 250 {
			t.Errorf("%s: %d of 500 draws out of tolerance", tc.c.ID(), outliers)
		}
	}
}
