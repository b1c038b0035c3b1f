// Package activity runs tries of the measuring-resistance activity: it draws
// a resistor, routes the learner's device actions and answers into the
// activity log, and grades and saves each completed try.
package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/pavelanni/mrtutor/internal/activitylog"
	"github.com/pavelanni/mrtutor/internal/feedback"
	"github.com/pavelanni/mrtutor/internal/measure"
	"github.com/pavelanni/mrtutor/internal/model"
	"github.com/pavelanni/mrtutor/internal/multimeter"
	"github.com/pavelanni/mrtutor/internal/resistor"
)

// DefaultFiveBandRatio is the share of tries that use a five-band resistor.
const DefaultFiveBandRatio = 0.25

// maxDraws bounds how often a resistor is redrawn until the meter can
// display it.
const maxDraws = 100

var (
	// ErrNotStarted is returned for actions before the first StartTry.
	ErrNotStarted = errors.New("no try in progress")
	// ErrTryCompleted is returned when answering a try that was graded.
	ErrTryCompleted = errors.New("try already completed")
	// ErrCircuitDisabled is returned for device actions before the
	// measuring question is reached.
	ErrCircuitDisabled = errors.New("circuit is disabled")
	// ErrUnknownDial is returned for a knob position the meter lacks.
	ErrUnknownDial = errors.New("unknown dial setting")
	// ErrInvalidAnswer is wrapped by every *AnswerError.
	ErrInvalidAnswer = errors.New("invalid answer")
)

// Grader scores a completed session.
type Grader interface {
	Grade(ctx context.Context, s *model.Session) (*feedback.Feedback, error)
}

// Saver persists a graded try.
type Saver interface {
	Save(ctx context.Context, learnerID string, s *model.Session, fb *feedback.Feedback) error
}

// Config fixes parts of the drawn resistor. Zero values leave the choice to
// the random source.
type Config struct {
	LearnerID     string
	FiveBandRatio float64
	NumBands      int
	Nominal       float64
	Real          float64
	Tolerance     float64
}

// Option configures an Activity.
type Option func(*Activity)

// WithRand sets the random source used to draw resistors.
func WithRand(r *rand.Rand) Option {
	return func(a *Activity) { a.rng = r }
}

// Activity is one learner's run through consecutive tries. It is not safe
// for concurrent use.
type Activity struct {
	log    *activitylog.Log
	grader Grader
	saver  Saver
	cfg    Config
	rng    *rand.Rand

	meter    *multimeter.Multimeter
	fourBand *resistor.FourBand
	fiveBand *resistor.FiveBand
	current  resistor.Component

	try       int
	question  int
	circuitOn bool
	completed bool
	fb        *feedback.Feedback
}

// New creates an activity writing to log. saver may be nil.
func New(log *activitylog.Log, grader Grader, saver Saver, cfg Config, opts ...Option) *Activity {
	if cfg.FiveBandRatio == 0 {
		cfg.FiveBandRatio = DefaultFiveBandRatio
	}
	a := &Activity{
		log:      log,
		grader:   grader,
		saver:    saver,
		cfg:      cfg,
		meter:    multimeter.New(),
		fourBand: resistor.NewFourBand(),
		fiveBand: resistor.NewFiveBand(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return a
}

// StartTry begins a new session with a freshly drawn resistor and opens
// question 1. Plugs, knob and power switch keep their state from an earlier
// try and are logged as such.
func (a *Activity) StartTry(ctx context.Context) error {
	a.try++
	sess := a.log.BeginNextSession()
	sess.LearnerID = a.cfg.LearnerID
	a.question = 0
	a.completed = false
	a.fb = nil
	a.circuitOn = false

	if err := a.resetCircuit(); err != nil {
		return err
	}

	if err := a.log.Add(model.EventStartSession, activitylog.Params{}); err != nil {
		return fmt.Errorf("start try: %w", err)
	}
	for _, ep := range []model.Endpoint{model.RedPlug, model.BlackPlug} {
		node := a.meter.Connection(ep)
		if node == "" {
			continue
		}
		if err := a.log.Add(model.EventConnect, activitylog.Params{Conn1: ep, Conn2: node}); err != nil {
			return fmt.Errorf("start try: %w", err)
		}
	}
	if err := a.logMeterState(); err != nil {
		return fmt.Errorf("start try: %w", err)
	}
	if err := a.log.Add(model.EventStartSection, activitylog.Params{}); err != nil {
		return fmt.Errorf("start try: %w", err)
	}
	if err := a.startQuestion(1); err != nil {
		return err
	}
	slog.InfoContext(ctx, "try started", "try", a.try, "session", sess.ID,
		"resistor", a.current.ID(), "nominal", a.current.NominalValue())
	return nil
}

// resetCircuit picks and draws the resistor for a new try, records its
// facts and takes the probes off the old one.
func (a *Activity) resetCircuit() error {
	switch {
	case a.cfg.NumBands == 4:
		a.current = a.fourBand
	case a.cfg.NumBands == 5:
		a.current = a.fiveBand
	case a.rng.Float64() < a.cfg.FiveBandRatio:
		a.current = a.fiveBand
	default:
		a.current = a.fourBand
	}

	displayed, err := a.drawResistor()
	if err != nil {
		return err
	}
	r := a.current
	facts := []struct {
		name  string
		value float64
	}{
		{activitylog.ValueNumBands, float64(r.NumBands())},
		{activitylog.ValueNominalResistance, r.NominalValue()},
		{activitylog.ValueTolerance, r.Tolerance()},
		{activitylog.ValueRealResistance, r.RealValue()},
		{activitylog.ValueDisplayedResistance, displayed},
	}
	for _, f := range facts {
		if err := a.log.SetValue(f.name, f.value); err != nil {
			return fmt.Errorf("log resistor: %w", err)
		}
	}

	a.meter.Disconnect(model.RedProbe)
	a.meter.Disconnect(model.BlackProbe)
	a.meter.Value = r.RealValue()
	return nil
}

// logMeterState records a knob position or power state carried over from
// the previous try.
func (a *Activity) logMeterState() error {
	if a.meter.Dial != model.DefaultDial {
		v := model.StringValue(string(a.meter.Dial))
		if err := a.log.Add(model.EventMultimeterDial, activitylog.Params{Value: v}); err != nil {
			return err
		}
	}
	if a.meter.PowerOn {
		return a.log.Add(model.EventMultimeterPower, activitylog.Params{Value: model.BoolValue(true)})
	}
	return nil
}

// drawResistor randomizes the current resistor, applies the configured
// overrides and returns the value the meter displays for it.
func (a *Activity) drawResistor() (float64, error) {
	r := a.current
	fixed := a.cfg.Nominal != 0 || a.cfg.Real != 0 || a.cfg.Tolerance != 0
	for range maxDraws {
		r.Randomize(a.rng)
		if fixed {
			nominal, rv, tol := r.NominalValue(), r.RealValue(), r.Tolerance()
			if a.cfg.Nominal != 0 {
				nominal = a.cfg.Nominal
			}
			if a.cfg.Tolerance != 0 {
				tol = a.cfg.Tolerance
			}
			if a.cfg.Real != 0 {
				rv = a.cfg.Real
			} else {
				rv = resistor.RealValue(a.rng, nominal, tol)
			}
			r.SetValues(nominal, rv, tol)
		}
		if v, ok := multimeter.DisplayValue(r.RealValue()); ok {
			return v, nil
		}
		if fixed && a.cfg.Real != 0 {
			break
		}
		slog.Debug("redrawing resistor the meter cannot display", "real", r.RealValue())
	}
	return 0, fmt.Errorf("resistor of %v ohms is outside the meter's range", r.RealValue())
}

func (a *Activity) startQuestion(n int) error {
	a.question = n
	if n == 3 {
		a.circuitOn = true
	}
	if err := a.log.Add(model.EventStartQuestion, activitylog.Params{Question: n}); err != nil {
		return fmt.Errorf("start question %d: %w", n, err)
	}
	return nil
}

// Submission is the learner's answer to the current question. Question 4
// takes two values and two units; the others take one of each where they
// apply. The tolerance question's value may carry a trailing "%".
type Submission struct {
	Values []string
	Units  []string
}

// Submit records the answer to the current question and moves on. After the
// fifth question the try is graded and the feedback returned; before that
// the returned feedback is nil. An unusable answer yields an *AnswerError
// and leaves the question open.
func (a *Activity) Submit(ctx context.Context, sub Submission) (*feedback.Feedback, error) {
	if a.question == 0 {
		return nil, ErrNotStarted
	}
	if a.completed {
		return nil, ErrTryCompleted
	}
	q := a.log.CurrentSession().Section().Questions[a.question-1]
	if err := validateAnswer(ctx, a.question, sub); err != nil {
		return nil, err
	}
	recordAnswer(q, a.question, sub)

	if a.question == len(model.QuestionIDs) {
		return a.complete(ctx)
	}
	if err := a.log.Add(model.EventEndQuestion, activitylog.Params{Question: a.question}); err != nil {
		return nil, fmt.Errorf("end question %d: %w", a.question, err)
	}
	return nil, a.startQuestion(a.question + 1)
}

// complete grades the finished try, closes the last question and hands the
// try to the saver. The log is left untouched when grading fails, so the
// last answer can be submitted again. A failed save is logged and does not
// fail the try.
func (a *Activity) complete(ctx context.Context) (*feedback.Feedback, error) {
	sess := a.log.CurrentSession()
	fb, err := a.grader.Grade(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("grade try %d: %w", a.try, err)
	}
	a.completed = true
	a.fb = fb

	sec := sess.Section()
	sec.Questions[0].CorrectAnswer = measure.FormatNumber(sec.NominalResistance)
	sec.Questions[1].CorrectAnswer = measure.FormatNumber(sec.Tolerance)
	sec.Questions[2].CorrectAnswer = measure.FormatNumber(sec.DisplayedResistance)

	if err := a.log.Add(model.EventEndQuestion, activitylog.Params{Question: a.question}); err != nil {
		return nil, fmt.Errorf("end question %d: %w", a.question, err)
	}
	for _, kind := range []model.EventKind{model.EventEndSection, model.EventEndSession} {
		if err := a.log.Add(kind, activitylog.Params{}); err != nil {
			return nil, fmt.Errorf("complete try: %w", err)
		}
	}

	slog.InfoContext(ctx, "try graded", "try", a.try, "session", sess.ID,
		"points", fb.Points(), "max_points", fb.MaxPoints())
	if a.saver != nil {
		if err := a.saver.Save(ctx, a.cfg.LearnerID, sess, fb); err != nil {
			slog.ErrorContext(ctx, "failed to save try", "session", sess.ID, "error", err)
		}
	}
	return fb, nil
}

// Connect attaches a lead end to a node.
func (a *Activity) Connect(ep model.Endpoint, node string) error {
	if err := a.deviceReady(); err != nil {
		return err
	}
	if !ep.Valid() {
		return fmt.Errorf("connect %q: unknown endpoint", ep)
	}
	a.meter.Connect(ep, node)
	return a.log.Add(model.EventConnect, activitylog.Params{Conn1: ep, Conn2: node})
}

// Disconnect detaches a lead end.
func (a *Activity) Disconnect(ep model.Endpoint) error {
	if err := a.deviceReady(); err != nil {
		return err
	}
	if !ep.Valid() {
		return fmt.Errorf("disconnect %q: unknown endpoint", ep)
	}
	node := a.meter.Connection(ep)
	a.meter.Disconnect(ep)
	return a.log.Add(model.EventDisconnect, activitylog.Params{Conn1: ep, Conn2: node})
}

// SetDial turns the knob.
func (a *Activity) SetDial(d model.DialSetting) error {
	if err := a.deviceReady(); err != nil {
		return err
	}
	if !d.Valid() {
		return fmt.Errorf("dial %q: %w", d, ErrUnknownDial)
	}
	a.meter.Dial = d
	return a.log.Add(model.EventMultimeterDial, activitylog.Params{Value: model.StringValue(string(d))})
}

// SetPower flips the power switch.
func (a *Activity) SetPower(on bool) error {
	if err := a.deviceReady(); err != nil {
		return err
	}
	a.meter.PowerOn = on
	return a.log.Add(model.EventMultimeterPower, activitylog.Params{Value: model.BoolValue(on)})
}

// MakeCircuit closes the breadboard circuit.
func (a *Activity) MakeCircuit() error {
	if err := a.deviceReady(); err != nil {
		return err
	}
	return a.log.Add(model.EventMakeCircuit, activitylog.Params{})
}

// BreakCircuit opens the breadboard circuit.
func (a *Activity) BreakCircuit() error {
	if err := a.deviceReady(); err != nil {
		return err
	}
	return a.log.Add(model.EventBreakCircuit, activitylog.Params{})
}

func (a *Activity) deviceReady() error {
	if a.question == 0 {
		return ErrNotStarted
	}
	if !a.circuitOn {
		return ErrCircuitDisabled
	}
	return nil
}

// Display returns the meter's display text.
func (a *Activity) Display() string { return a.meter.DisplayText() }

// Resistor returns the resistor of the current try, nil before StartTry.
func (a *Activity) Resistor() resistor.Component { return a.current }

// Session returns the current session.
func (a *Activity) Session() *model.Session { return a.log.CurrentSession() }

// Feedback returns the grade of the current try once it is completed.
func (a *Activity) Feedback() *feedback.Feedback { return a.fb }

// Question returns the open question number, 1 to 5, or 0 before StartTry.
func (a *Activity) Question() int { return a.question }

// Try returns how many tries were started.
func (a *Activity) Try() int { return a.try }
