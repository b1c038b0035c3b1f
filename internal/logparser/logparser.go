// Package logparser replays a session's events to recover the multimeter's
// wiring, knob and power state at the moment the measured resistance was
// submitted.
package logparser

import (
	"log/slog"
	"time"

	"github.com/pavelanni/mrtutor/internal/model"
)

// meterState is the wiring, knob and power state of the multimeter.
type meterState struct {
	conns map[model.Endpoint]string
	dial  model.DialSetting
	power bool
}

func newMeterState() meterState {
	return meterState{conns: map[model.Endpoint]string{}, dial: model.DefaultDial}
}

// allConnectedWithNonResistanceDial reports the unsafe setup: every lead
// attached, power on and the knob on something other than a resistance scale.
func (m meterState) allConnectedWithNonResistanceDial() bool {
	for _, ep := range []model.Endpoint{model.RedProbe, model.BlackProbe, model.RedPlug, model.BlackPlug} {
		if m.conns[ep] == "" {
			return false
		}
	}
	return m.power && !m.dial.IsResistance()
}

// Result holds the facts derived from one session's events.
type Result struct {
	// CutTime is when question 3 was submitted. Only events strictly before
	// it count toward the fields below, except CorrectOrder.
	CutTime time.Time

	RedProbeConn   string
	BlackProbeConn string
	RedPlugConn    string
	BlackPlugConn  string

	// DialSetting is the knob position at CutTime.
	DialSetting model.DialSetting
	// InitialDialSetting is the knob position when power was first switched on.
	InitialDialSetting model.DialSetting
	PowerOn            bool

	// CorrectOrder is false once the meter was ever fully connected and
	// powered on a non-resistance scale, at any time in the session.
	CorrectOrder bool

	// LastCircuitMakeTime and LastCircuitBreakTime are the last
	// make_circuit and break_circuit events before CutTime, zero if none.
	LastCircuitMakeTime  time.Time
	LastCircuitBreakTime time.Time

	live           meterState
	lastConn       map[model.Endpoint]string
	initialDialSet bool
}

// LastConnection returns the node most recently connected to endpoint at
// any time in the session, or "" if it never was.
func (r *Result) LastConnection(ep model.Endpoint) string {
	return r.lastConn[ep]
}

// Parse replays the events of s in order. The session must have passed
// model.ValidateSession.
func Parse(s *model.Session) *Result {
	sec := s.Section()
	r := &Result{
		CutTime:            sec.Questions[2].EndTime,
		DialSetting:        model.DefaultDial,
		InitialDialSetting: model.DefaultDial,
		CorrectOrder:       true,
		live:               newMeterState(),
		lastConn:           map[model.Endpoint]string{},
	}
	for _, ev := range sec.Events {
		r.apply(ev)
	}
	return r
}

func (r *Result) apply(ev model.Event) {
	committed := ev.Time.Before(r.CutTime)

	switch ev.Name {
	case model.EventConnect:
		ep, node := model.ParseConnection(ev.Value.String())
		if ep.Valid() {
			r.live.conns[ep] = node
			r.lastConn[ep] = node
			if committed {
				r.commitConn(ep, node)
			}
		} else {
			slog.Debug("ignoring connect to unknown endpoint", "value", ev.Value.String())
		}
		r.checkOrder()

	case model.EventDisconnect:
		ep, _ := model.ParseConnection(ev.Value.String())
		if !ep.Valid() {
			return
		}
		delete(r.live.conns, ep)
		if committed {
			r.commitConn(ep, "")
		}

	case model.EventMultimeterPower:
		on := ev.Value.Bool()
		r.live.power = on
		if committed {
			r.PowerOn = on
			if on && !r.initialDialSet {
				r.InitialDialSetting = r.DialSetting
				r.initialDialSet = true
			}
		}
		r.checkOrder()

	case model.EventMultimeterDial:
		d := model.DialSetting(ev.Value.String())
		r.live.dial = d
		if committed {
			r.DialSetting = d
		}

	case model.EventMakeCircuit:
		if committed {
			r.LastCircuitMakeTime = ev.Time
		}

	case model.EventBreakCircuit:
		if committed {
			r.LastCircuitBreakTime = ev.Time
		}
	}
}

func (r *Result) commitConn(ep model.Endpoint, node string) {
	switch ep {
	case model.RedProbe:
		r.RedProbeConn = node
	case model.BlackProbe:
		r.BlackProbeConn = node
	case model.RedPlug:
		r.RedPlugConn = node
	case model.BlackPlug:
		r.BlackPlugConn = node
	}
}

func (r *Result) checkOrder() {
	if r.CorrectOrder && r.live.allConnectedWithNonResistanceDial() {
		r.CorrectOrder = false
	}
}
