package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func validSession() *Session {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var qs []*Question
	for i, id := range QuestionIDs {
		qs = append(qs, &Question{
			ID:        id,
			StartTime: t0.Add(time.Duration(i*10) * time.Second),
			EndTime:   t0.Add(time.Duration(i*10+9) * time.Second),
		})
	}
	return &Session{
		ID: "s1",
		Sections: []*Section{{
			Questions:           qs,
			NumBands:            4,
			NominalResistance:   1000,
			Tolerance:           0.05,
			RealResistance:      987.2,
			DisplayedResistance: 987,
		}},
	}
}

// timedEvents returns power events at the given offsets in seconds from
// the start of the session.
func timedEvents(secs ...int) []Event {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var evs []Event
	for _, s := range secs {
		evs = append(evs, Event{
			Name:  EventMultimeterPower,
			Value: BoolValue(true),
			Time:  t0.Add(time.Duration(s) * time.Second),
		})
	}
	return evs
}

func TestValidateSession(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Session)
		ok     bool
	}{
		{"valid", func(s *Session) {}, true},
		{"no sections", func(s *Session) { s.Sections = nil }, false},
		{"two sections", func(s *Session) { s.Sections = append(s.Sections, s.Sections[0]) }, false},
		{"four questions", func(s *Session) { s.Section().Questions = s.Section().Questions[:4] }, false},
		{"nil question", func(s *Session) { s.Section().Questions[2] = nil }, false},
		{"swapped questions", func(s *Session) {
			q := s.Section().Questions
			q[0], q[1] = q[1], q[0]
		}, false},
		{"three bands", func(s *Session) { s.Section().NumBands = 3 }, false},
		{"zero tolerance", func(s *Session) { s.Section().Tolerance = 0 }, false},
		{"q1 never started", func(s *Session) { s.Section().Questions[0].StartTime = time.Time{} }, false},
		{"q3 never submitted", func(s *Session) { s.Section().Questions[2].EndTime = time.Time{} }, false},
		{"q5 unanswered is fine", func(s *Session) { s.Section().Questions[4].EndTime = time.Time{} }, true},
		{"events in order", func(s *Session) { s.Section().Events = timedEvents(0, 3, 3, 7) }, true},
		{"events out of order", func(s *Session) { s.Section().Events = timedEvents(7, 3, 0) }, false},
		{"event without time after a timed one", func(s *Session) {
			ev := timedEvents(2)
			s.Section().Events = append(ev, Event{Name: EventMakeCircuit})
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSession()
			tt.mutate(s)
			err := ValidateSession(s)
			if tt.ok && err != nil {
				t.Fatalf("ValidateSession: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrMalformedSession) {
				t.Fatalf("ValidateSession = %v, want ErrMalformedSession", err)
			}
		})
	}
}

func TestValidateNilSession(t *testing.T) {
	if err := ValidateSession(nil); !errors.Is(err, ErrMalformedSession) {
		t.Errorf("ValidateSession(nil) = %v", err)
	}
}

func TestEventValueJSON(t *testing.T) {
	in := []Event{
		{Name: EventMultimeterPower, Value: BoolValue(true)},
		{Name: EventMultimeterDial, Value: StringValue("r_2000")},
		{Name: EventResistorRealValue, Value: NumberValue(987.25)},
		{Name: EventMakeCircuit},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out []Event
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out[0].Value.Bool() {
		t.Error("power value lost")
	}
	if out[1].Value.String() != "r_2000" {
		t.Errorf("dial value = %q", out[1].Value.String())
	}
	if f, ok := out[2].Value.Float(); !ok || f != 987.25 {
		t.Errorf("real value = %v, %v", f, ok)
	}
	if !out[3].Value.IsZero() {
		t.Errorf("empty value = %v", out[3].Value)
	}

	var bad Event
	if err := json.Unmarshal([]byte(`{"name":"connect","value":[1,2]}`), &bad); err == nil {
		t.Error("array value accepted")
	}
}

func TestDialSettings(t *testing.T) {
	tests := []struct {
		ohms float64
		want DialSetting
	}{
		{150, DialR200},
		{199.9, DialR200},
		{200, DialR2000},
		{4700, DialR20k},
		{150000, DialR200k},
		{1.5e6, DialR2000k},
	}
	for _, tt := range tests {
		if got := OptimalDial(tt.ohms); got != tt.want {
			t.Errorf("OptimalDial(%v) = %s, want %s", tt.ohms, got, tt.want)
		}
	}
	if !DialR2000k.IsResistance() {
		t.Error("r_2000k is a resistance scale")
	}
	if DialACV750.IsResistance() || DialDiode.IsResistance() {
		t.Error("non-resistance scale reported as resistance")
	}
	if got := DialR20k.Label(); got != "Ω - 20k" {
		t.Errorf("Label = %q", got)
	}
	if DialSetting("bogus").Valid() {
		t.Error("bogus dial is valid")
	}
}

func TestParseConnection(t *testing.T) {
	ep, node := ParseConnection(ConnectionValue(RedProbe, ResistorLead1))
	if ep != RedProbe || node != ResistorLead1 {
		t.Errorf("ParseConnection = %s, %s", ep, node)
	}
	ep, node = ParseConnection("black_plug")
	if ep != BlackPlug || node != "" {
		t.Errorf("ParseConnection(no node) = %s, %q", ep, node)
	}
}
