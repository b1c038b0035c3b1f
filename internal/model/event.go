package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EventKind is the name of a logged event.
type EventKind string

const (
	EventStartSession         EventKind = "start_session"
	EventEndSession           EventKind = "end_session"
	EventStartSection         EventKind = "start_section"
	EventEndSection           EventKind = "end_section"
	EventStartQuestion        EventKind = "start_question"
	EventEndQuestion          EventKind = "end_question"
	EventConnect              EventKind = "connect"
	EventDisconnect           EventKind = "disconnect"
	EventMakeCircuit          EventKind = "make_circuit"
	EventBreakCircuit         EventKind = "break_circuit"
	EventMultimeterDial       EventKind = "multimeter_dial"
	EventMultimeterPower      EventKind = "multimeter_power"
	EventResistorNominalValue EventKind = "resistor_nominal_value"
	EventResistorRealValue    EventKind = "resistor_real_value"
	EventResistorDisplayValue EventKind = "resistor_display_value"

	// EventUnregistered tags an event whose name is not one of the above.
	// The offending name is kept as the event value.
	EventUnregistered EventKind = "UNREGISTERED_NAME"
)

var registeredEvents = map[EventKind]bool{
	EventStartSession:         true,
	EventEndSession:           true,
	EventStartSection:         true,
	EventEndSection:           true,
	EventStartQuestion:        true,
	EventEndQuestion:          true,
	EventConnect:              true,
	EventDisconnect:           true,
	EventMakeCircuit:          true,
	EventBreakCircuit:         true,
	EventMultimeterDial:       true,
	EventMultimeterPower:      true,
	EventResistorNominalValue: true,
	EventResistorRealValue:    true,
	EventResistorDisplayValue: true,
}

// Registered reports whether k is a recognized event name.
func (k EventKind) Registered() bool {
	return registeredEvents[k]
}

// EventValue is the payload of an event: a string, a number, a boolean or
// nothing. It marshals to the matching JSON type.
type EventValue struct {
	v any
}

// StringValue wraps s.
func StringValue(s string) EventValue { return EventValue{v: s} }

// NumberValue wraps f.
func NumberValue(f float64) EventValue { return EventValue{v: f} }

// BoolValue wraps b.
func BoolValue(b bool) EventValue { return EventValue{v: b} }

// IsZero reports whether the value is empty.
func (e EventValue) IsZero() bool { return e.v == nil }

// String renders the value as text. Numbers use the shortest decimal form.
func (e EventValue) String() string {
	switch v := e.v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// Bool reports whether the value is boolean true or the string "true".
func (e EventValue) Bool() bool {
	switch v := e.v.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// Float returns the value as a number when it is one or parses as one.
func (e EventValue) Float() (float64, bool) {
	switch v := e.v.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// MarshalJSON implements json.Marshaler.
func (e EventValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *EventValue) UnmarshalJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch v.(type) {
	case nil, string, float64, bool:
		e.v = v
		return nil
	}
	return fmt.Errorf("event value: unsupported JSON type %T", v)
}

// Event is one logged learner or device action.
type Event struct {
	Name  EventKind  `json:"name"`
	Value EventValue `json:"value"`
	Time  time.Time  `json:"time"`
}
