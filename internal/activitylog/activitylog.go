// Package activitylog records what a learner does during a try: one session
// per try, each holding a single section with its questions and events.
package activitylog

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/mrtutor/internal/model"
)

var (
	// ErrNoSession is returned when an entry is logged before BeginNextSession.
	ErrNoSession = errors.New("no current session")
	// ErrUnknownQuestion is returned for a question number outside 1..5.
	ErrUnknownQuestion = errors.New("unknown question")
)

// Section facts accepted by SetValue.
const (
	ValueNumBands            = "resistor_num_bands"
	ValueNominalResistance   = "nominal_resistance"
	ValueTolerance           = "tolerance"
	ValueRealResistance      = "real_resistance"
	ValueDisplayedResistance = "displayed_resistance"
)

// Params carries the arguments of a logged entry. Conn1 and Conn2 are used
// by connect and disconnect, Question by the question markers and Value by
// every other event.
type Params struct {
	Conn1    model.Endpoint
	Conn2    string
	Question int
	Value    model.EventValue
}

// Option configures a Log.
type Option func(*Log)

// WithClock sets the time source used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// Log is the append-only record of all sessions. Only the most recent
// session is written to.
type Log struct {
	Sessions []*model.Session `json:"sessions"`

	now  func() time.Time
	last time.Time
}

// New creates an empty log.
func New(opts ...Option) *Log {
	l := &Log{now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// BeginNextSession appends a new session with one section and the five
// unanswered questions, and makes it current.
func (l *Log) BeginNextSession() *model.Session {
	sec := &model.Section{}
	for _, id := range model.QuestionIDs {
		sec.Questions = append(sec.Questions, &model.Question{ID: id})
	}
	s := &model.Session{
		ID:       uuid.NewString(),
		Sections: []*model.Section{sec},
	}
	l.Sessions = append(l.Sessions, s)
	slog.Debug("session begun", "session", s.ID, "count", len(l.Sessions))
	return s
}

// CurrentSession returns the most recent session, or nil if none was begun.
func (l *Log) CurrentSession() *model.Session {
	if len(l.Sessions) == 0 {
		return nil
	}
	return l.Sessions[len(l.Sessions)-1]
}

// SetValue records a fact about the resistor under test on the current
// section. Unknown names are remembered as the section's unregistered name.
func (l *Log) SetValue(name string, value float64) error {
	sec := l.CurrentSession().Section()
	if sec == nil {
		return ErrNoSession
	}
	switch name {
	case ValueNumBands:
		sec.NumBands = int(value)
	case ValueNominalResistance:
		sec.NominalResistance = value
	case ValueTolerance:
		sec.Tolerance = value
	case ValueRealResistance:
		sec.RealResistance = value
	case ValueDisplayedResistance:
		sec.DisplayedResistance = value
	default:
		slog.Warn("unknown section value", "name", name)
		sec.UnregisteredName = name
	}
	return nil
}

// Add logs an entry on the current session. Session, section and question
// markers set timestamps; everything else appends an event. An unknown kind
// is kept as an UNREGISTERED_NAME event and is not an error.
func (l *Log) Add(kind model.EventKind, p Params) error {
	sess := l.CurrentSession()
	sec := sess.Section()
	if sec == nil {
		return ErrNoSession
	}
	now := l.stamp()

	if !kind.Registered() {
		slog.Warn("unknown log event", "name", kind)
		sec.Events = append(sec.Events, model.Event{
			Name:  model.EventUnregistered,
			Value: model.StringValue(string(kind)),
			Time:  now,
		})
		return nil
	}

	switch kind {
	case model.EventConnect, model.EventDisconnect:
		sec.Events = append(sec.Events, model.Event{
			Name:  kind,
			Value: model.StringValue(model.ConnectionValue(p.Conn1, p.Conn2)),
			Time:  now,
		})
	case model.EventMakeCircuit, model.EventBreakCircuit:
		sec.Events = append(sec.Events, model.Event{Name: kind, Value: model.StringValue(""), Time: now})
	case model.EventStartSection:
		sec.StartTime = now
	case model.EventEndSection:
		sec.EndTime = now
	case model.EventStartQuestion, model.EventEndQuestion:
		if p.Question < 1 || p.Question > len(sec.Questions) {
			return fmt.Errorf("%s %d: %w", kind, p.Question, ErrUnknownQuestion)
		}
		q := sec.Questions[p.Question-1]
		if kind == model.EventStartQuestion {
			q.StartTime = now
		} else {
			q.EndTime = now
		}
	case model.EventStartSession:
		sess.StartTime = now
	case model.EventEndSession:
		sess.EndTime = now
	default:
		sec.Events = append(sec.Events, model.Event{Name: kind, Value: p.Value, Time: now})
	}
	return nil
}

// stamp reads the clock, never going back past the previous entry.
func (l *Log) stamp() time.Time {
	t := l.now()
	if t.Before(l.last) {
		t = l.last
	}
	l.last = t
	return t
}
