// Package simulate drives the activity with scripted learners, for demos
// and for checking the grader end to end.
package simulate

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/pavelanni/mrtutor/internal/activity"
	"github.com/pavelanni/mrtutor/internal/activitylog"
	"github.com/pavelanni/mrtutor/internal/feedback"
	"github.com/pavelanni/mrtutor/internal/grader"
	"github.com/pavelanni/mrtutor/internal/measure"
	"github.com/pavelanni/mrtutor/internal/model"
)

// Options controls a simulation run.
type Options struct {
	LearnerID string
	Seed      uint64
	// Start is the virtual time the first try begins at. Zero means now.
	Start time.Time
	// Tries is the number of consecutive tries, at least one.
	Tries int
	// FiveBandRatio is passed to the activity when the profile does not
	// fix the band count.
	FiveBandRatio float64
	Saver         activity.Saver
}

// Result is the outcome of a run.
type Result struct {
	Log       *activitylog.Log
	Feedbacks []*feedback.Feedback
}

// Last returns the session and feedback of the final try.
func (r *Result) Last() (*model.Session, *feedback.Feedback) {
	if len(r.Feedbacks) == 0 {
		return nil, nil
	}
	return r.Log.CurrentSession(), r.Feedbacks[len(r.Feedbacks)-1]
}

// clock is the virtual time source the activity log is stamped with.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) sleep(seconds float64) {
	c.t = c.t.Add(time.Duration(seconds * float64(time.Second)))
}

// Run plays p through opts.Tries tries and returns the log and grades.
func Run(ctx context.Context, p *Profile, opts Options) (*Result, error) {
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}
	if opts.Tries < 1 {
		opts.Tries = 1
	}
	clk := &clock{t: opts.Start}
	log := activitylog.New(activitylog.WithClock(clk.now))
	cfg := activity.Config{
		LearnerID:     opts.LearnerID,
		FiveBandRatio: opts.FiveBandRatio,
		NumBands:      p.Resistor.NumBands,
		Nominal:       p.Resistor.Nominal,
		Real:          p.Resistor.Real,
		Tolerance:     p.Resistor.Tolerance,
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	a := activity.New(log, grader.New(), opts.Saver, cfg, activity.WithRand(rng))

	res := &Result{Log: log}
	for i := range opts.Tries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		fb, err := playTry(ctx, a, clk, p)
		if err != nil {
			return res, fmt.Errorf("try %d: %w", i+1, err)
		}
		res.Feedbacks = append(res.Feedbacks, fb)
		slog.Debug("simulated try", "profile", p.Name, "try", i+1, "points", fb.Points())
	}
	return res, nil
}

func playTry(ctx context.Context, a *activity.Activity, clk *clock, p *Profile) (*feedback.Feedback, error) {
	if err := a.StartTry(ctx); err != nil {
		return nil, err
	}
	facts := factsOf(a.Session().Section())
	ans := p.Answers

	subs := []activity.Submission{
		{Values: []string{facts.resolve(ans.Rated.Value)}, Units: []string{ans.Rated.Unit}},
		{Values: []string{facts.resolve(ans.Tolerance)}},
		{Values: []string{facts.resolve(ans.Measured.Value)}, Units: []string{ans.Measured.Unit}},
		{
			Values: []string{facts.resolve(ans.RangeMin.Value), facts.resolve(ans.RangeMax.Value)},
			Units:  []string{ans.RangeMin.Unit, ans.RangeMax.Unit},
		},
		{Values: []string{facts.resolve(ans.Within)}},
	}

	var fb *feedback.Feedback
	for i, sub := range subs {
		if i == 2 {
			for _, act := range p.Actions {
				if err := perform(a, clk, p.ActionSeconds, act, facts); err != nil {
					return nil, err
				}
			}
		}
		clk.sleep(p.Timing[i])
		var err error
		fb, err = a.Submit(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return fb, nil
}

func perform(a *activity.Activity, clk *clock, actionSeconds float64, act Action, f facts) error {
	if act.Do == ActWait {
		clk.sleep(act.Seconds)
		return nil
	}
	clk.sleep(actionSeconds)

	var err error
	switch act.Do {
	case ActConnect:
		err = a.Connect(model.Endpoint(act.Endpoint), act.Node)
	case ActDisconnect:
		err = a.Disconnect(model.Endpoint(act.Endpoint))
	case ActDial:
		err = a.SetDial(model.DialSetting(f.resolve(act.Dial)))
	case ActPower:
		err = a.SetPower(act.On)
	case ActMakeCircuit:
		err = a.MakeCircuit()
	case ActBreakCircuit:
		err = a.BreakCircuit()
	default:
		err = fmt.Errorf("unknown action %q", act.Do)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", act.Do, err)
	}
	return nil
}

// facts are the true values of the resistor under test, rendered the way
// a learner would type them.
type facts map[string]string

func factsOf(sec *model.Section) facts {
	lo := measure.Clean(sec.NominalResistance * (1 - sec.Tolerance))
	hi := measure.Clean(sec.NominalResistance * (1 + sec.Tolerance))
	allowance := sec.NominalResistance * sec.Tolerance
	within := "yes"
	if d := sec.DisplayedResistance; d < sec.NominalResistance-allowance || d > sec.NominalResistance+allowance {
		within = "no"
	}
	return facts{
		"$nominal":   measure.FormatNumber(sec.NominalResistance),
		"$tolerance": measure.FormatNumber(measure.Clean(sec.Tolerance * 100)),
		"$displayed": measure.FormatNumber(sec.DisplayedResistance),
		"$min":       measure.FormatNumber(lo),
		"$max":       measure.FormatNumber(hi),
		"$within":    within,
		"$optimal":   string(model.OptimalDial(sec.DisplayedResistance)),
	}
}

// resolve replaces a "$name" placeholder with its fact. Other values and
// unknown placeholders are returned unchanged.
func (f facts) resolve(v string) string {
	if !strings.HasPrefix(v, "$") {
		return v
	}
	if r, ok := f[v]; ok {
		return r
	}
	return v
}
