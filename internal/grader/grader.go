// Package grader scores a completed try against the measuring-resistance
// rubric.
package grader

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/pavelanni/mrtutor/internal/feedback"
	"github.com/pavelanni/mrtutor/internal/i18n"
	"github.com/pavelanni/mrtutor/internal/logparser"
	"github.com/pavelanni/mrtutor/internal/measure"
	"github.com/pavelanni/mrtutor/internal/model"
)

// Timing thresholds in seconds.
const (
	efficientSeconds = 20
	semiSeconds      = 40
)

// rangeEpsilon is the absolute difference in ohms under which a tolerance
// range bound counts as exact.
const rangeEpsilon = 1e-5

// Plug connection descriptions.
const (
	DescCorrect   = "Correct"
	DescReversed  = "Reversed"
	DescIncorrect = "Incorrect"
)

// Grader applies the rubric. It holds no state between calls.
type Grader struct{}

// New creates a Grader.
func New() *Grader {
	return &Grader{}
}

// Grade scores s. The only error is model.ErrMalformedSession; every
// learner mistake is scored, not returned. s is not modified.
func (g *Grader) Grade(ctx context.Context, s *model.Session) (*feedback.Feedback, error) {
	if err := model.ValidateSession(s); err != nil {
		return nil, err
	}
	sec := s.Section()
	run := &grading{
		ctx:    ctx,
		sec:    sec,
		q:      sec.Questions,
		fb:     feedback.New(),
		parsed: logparser.Parse(s),
	}

	run.readingColorBands()
	run.ratedTolerance()
	run.measuredResistance()
	run.toleranceRange()
	run.withinTolerance()
	run.timing()
	run.settings()

	slog.Debug("graded session", "session", s.ID,
		"points", run.fb.Points(), "max_points", run.fb.MaxPoints())
	return run.fb, nil
}

// grading carries one Grade call. Answers recovered from earlier questions
// feed the expectations of later ones.
type grading struct {
	ctx    context.Context
	sec    *model.Section
	q      []*model.Question
	fb     *feedback.Feedback
	parsed *logparser.Result

	ratedAnswer    float64
	hasRated       bool
	toleranceAns   float64
	hasTolerance   bool
	measuredAnswer float64
	hasMeasured    bool
	rangeMin       float64
	rangeMax       float64
}

func (g *grading) item(category, name string) *feedback.Item {
	return g.fb.Item(category, name)
}

// sigDigits is how many significant digits the resistor's bands encode.
func (g *grading) sigDigits() int {
	return g.sec.NumBands - 2
}

// nominal is the learner's rated resistance when usable, else the true one.
func (g *grading) nominal() float64 {
	if g.hasRated && g.ratedAnswer != 0 {
		return g.ratedAnswer
	}
	return g.sec.NominalResistance
}

// tolerance is the learner's rated tolerance when usable, else the true one.
func (g *grading) tolerance() float64 {
	if g.hasTolerance {
		return g.toleranceAns
	}
	return g.sec.Tolerance
}

// measured is the learner's measured resistance when usable, else the
// displayed one.
func (g *grading) measured() float64 {
	if g.hasMeasured && g.measuredAnswer != 0 {
		return g.measuredAnswer
	}
	return g.sec.DisplayedResistance
}

func (g *grading) readingColorBands() {
	q := g.q[0]
	it := g.item(feedback.CategoryReading, feedback.ItemRatedRValue)
	it.Score(feedback.TierWrong, 0)

	unit := q.UnitAt(0)
	if !measure.OhmCompatible(unit) {
		it.AddFeedback(g.ctx, "unit", unit)
		return
	}
	v, ok := measure.ParseNumber(q.AnswerAt(0))
	if !ok {
		it.AddFeedback(g.ctx, "incorrect")
		return
	}
	ohms, _ := measure.NormalizeToOhms(v, unit)
	g.ratedAnswer, g.hasRated = ohms, true

	expected := g.sec.NominalResistance
	switch {
	case ohms == expected:
		it.Score(feedback.TierCorrect, 20)
		it.AddFeedback(g.ctx, "correct")
	case measure.EqualExceptPowerOfTen(expected, ohms):
		it.Score(feedback.TierPartial, 10)
		it.AddFeedback(g.ctx, "power_ten", g.sec.NumBands-1, g.sec.NumBands-2)
	case measure.OneDigitOff(expected, ohms):
		it.Score(feedback.TierMostlyWrong, 2)
		it.AddFeedback(g.ctx, "difficulty")
	default:
		it.AddFeedback(g.ctx, "incorrect")
	}
}

func (g *grading) ratedTolerance() {
	q := g.q[1]
	it := g.item(feedback.CategoryReading, feedback.ItemRatedTValue)
	it.Score(feedback.TierWrong, 0)

	correctStr := measure.FormatNumber(measure.Clean(g.sec.Tolerance*100)) + "%"
	answerStr := strings.TrimSpace(q.AnswerAt(0)) + "%"

	v, ok := measure.ParseNumber(q.AnswerAt(0))
	if !ok {
		it.AddFeedback(g.ctx, "incorrect", correctStr, answerStr)
		return
	}
	g.toleranceAns, g.hasTolerance = v/100, true
	if g.toleranceAns != g.sec.Tolerance {
		it.AddFeedback(g.ctx, "incorrect", correctStr, answerStr)
		return
	}
	it.Score(feedback.TierCorrect, 5)
	it.AddFeedback(g.ctx, "correct")
}

func (g *grading) measuredResistance() {
	q := g.q[2]
	it := g.item(feedback.CategoryMeasuring, feedback.ItemMeasuredRValue)
	it.Score(feedback.TierWrong, 0)

	unit := q.UnitAt(0)
	if !measure.OhmCompatible(unit) {
		it.AddFeedback(g.ctx, "unit", unit)
		return
	}
	v, ok := measure.ParseNumber(q.AnswerAt(0))
	if !ok {
		it.AddFeedback(g.ctx, "incorrect")
		return
	}
	ohms, _ := measure.NormalizeToOhms(v, unit)
	g.measuredAnswer, g.hasMeasured = ohms, true

	expected := g.sec.DisplayedResistance
	switch {
	case ohms == expected:
		it.Score(feedback.TierCorrect, 10)
		it.AddFeedback(g.ctx, "correct")
	case measure.RoundToSigDigits(expected, g.sigDigits()) == ohms:
		it.Score(feedback.TierNearCorrect, 5)
		it.AddFeedback(g.ctx, "incomplete", measure.ResString(expected), measure.ResString(ohms))
	case measure.EqualExceptPowerOfTen(expected, ohms):
		it.Score(feedback.TierPartial, 3)
		it.AddFeedback(g.ctx, "power_ten",
			strings.TrimSpace(q.AnswerAt(0)), measure.CanonicalUnit(unit),
			measure.ResUnitString(expected, ""),
			measure.ResUnitString(expected, "k"),
			measure.ResUnitString(expected, "M"))
	default:
		it.AddFeedback(g.ctx, "incorrect")
	}
}

func (g *grading) toleranceRange() {
	q := g.q[3]
	it := g.item(feedback.CategoryTRange, feedback.ItemTRangeValue)
	it.Score(feedback.TierWrong, 0)

	nominal := g.nominal()
	// An unreadable tolerance answer falls back to the true tolerance, not to
	// a zero-width range around the nominal value.
	tolerance := g.tolerance()
	correctMin := measure.Clean(nominal * (1 - tolerance))
	correctMax := measure.Clean(nominal * (1 + tolerance))
	g.fb.ExpectedRange = [2]float64{correctMin, correctMax}

	correctStr := "[" + measure.ResString(correctMin) + ", " + measure.ResString(correctMax) + "]"
	answerStr := "[" + strings.TrimSpace(q.AnswerAt(0)) + " " + q.UnitAt(0) + ", " +
		strings.TrimSpace(q.AnswerAt(1)) + " " + q.UnitAt(1) + "]"

	lo, okLo := measure.ParseNumber(q.AnswerAt(0))
	hi, okHi := measure.ParseNumber(q.AnswerAt(1))
	if !okLo || !okHi {
		it.AddFeedback(g.ctx, "wrong", correctStr, answerStr)
		return
	}
	if !measure.OhmCompatible(q.UnitAt(0)) || !measure.OhmCompatible(q.UnitAt(1)) {
		it.AddFeedback(g.ctx, "wrong", correctStr, answerStr)
		return
	}
	lo, _ = measure.NormalizeToOhms(lo, q.UnitAt(0))
	hi, _ = measure.NormalizeToOhms(hi, q.UnitAt(1))
	g.rangeMin, g.rangeMax = lo, hi
	if lo > hi {
		lo, hi = hi, lo
	}

	n := g.sigDigits()
	switch {
	case math.Abs(lo-correctMin) < rangeEpsilon && math.Abs(hi-correctMax) < rangeEpsilon:
		it.Score(feedback.TierCorrect, 15)
		it.AddFeedback(g.ctx, "correct", measure.ResString(nominal), measure.PctString(tolerance))
	case measure.RoundToSigDigits(correctMin, n) == measure.RoundToSigDigits(lo, n) &&
		measure.RoundToSigDigits(correctMax, n) == measure.RoundToSigDigits(hi, n):
		it.Score(feedback.TierNearCorrect, 10)
		it.AddFeedback(g.ctx, "rounded", measure.ResString(nominal), measure.PctString(tolerance))
	case absInt(measure.RoundedSigDigits(correctMin, n)-measure.RoundedSigDigits(lo, n)) <= 2 &&
		absInt(measure.RoundedSigDigits(correctMax, n)-measure.RoundedSigDigits(hi, n)) <= 2:
		it.Score(feedback.TierPartial, 3)
		it.AddFeedback(g.ctx, "inaccurate", correctStr, answerStr)
	default:
		it.AddFeedback(g.ctx, "wrong", correctStr, answerStr)
	}
}

// withinTolerance is only gradable when both the measured value and the
// tolerance range were exactly right.
func (g *grading) withinTolerance() {
	it := g.item(feedback.CategoryTRange, feedback.ItemWithinTolerance)
	it.Score(feedback.TierWrong, 0)

	measured := g.item(feedback.CategoryMeasuring, feedback.ItemMeasuredRValue)
	trange := g.item(feedback.CategoryTRange, feedback.ItemTRangeValue)
	if measured.Correct < feedback.TierCorrect || trange.Correct < feedback.TierCorrect {
		it.AddFeedback(g.ctx, "undef")
		return
	}

	nominal := g.nominal()
	allowance := nominal * g.tolerance()
	display := g.measured()

	expected := "yes"
	did, is := i18n.T(g.ctx, "within_did"), i18n.T(g.ctx, "within_is")
	if display < nominal-allowance || display > nominal+allowance {
		expected = "no"
		did, is = i18n.T(g.ctx, "within_did_not"), i18n.T(g.ctx, "within_is_not")
	}
	g.fb.ExpectedWithin = expected

	subs := []any{
		measure.ResString(g.measuredAnswer),
		measure.ResString(g.rangeMin),
		measure.ResString(g.rangeMax),
		did, is,
	}
	if strings.ToLower(strings.TrimSpace(g.q[4].AnswerAt(0))) != expected {
		it.AddFeedback(g.ctx, "incorrect", subs...)
		return
	}
	it.Score(feedback.TierCorrect, 5)
	it.AddFeedback(g.ctx, "correct", subs...)
}

func (g *grading) timing() {
	reading := g.q[1].EndTime.Sub(g.q[0].StartTime).Seconds()
	scoreTime(g.ctx, g.item(feedback.CategoryTime, feedback.ItemReadingTime), reading)

	measuring := g.q[2].EndTime.Sub(g.q[2].StartTime).Seconds()
	scoreTime(g.ctx, g.item(feedback.CategoryTime, feedback.ItemMeasuringTime), measuring)
}

func scoreTime(ctx context.Context, it *feedback.Item, seconds float64) {
	switch {
	case seconds <= efficientSeconds:
		it.Score(feedback.TierCorrect, 5)
		it.AddFeedback(ctx, "efficient")
	case seconds <= semiSeconds:
		it.Score(feedback.TierPartial, 2)
		it.AddFeedback(ctx, "semi")
	default:
		it.Score(feedback.TierWrong, 0)
		it.AddFeedback(ctx, "slow", int64(math.Round(seconds)))
	}
}

func (g *grading) settings() {
	p := g.parsed

	probe := g.item(feedback.CategoryMeasuring, feedback.ItemProbeConnection)
	if onResistor(p.RedProbeConn) && onResistor(p.BlackProbeConn) && p.RedProbeConn != p.BlackProbeConn {
		probe.Score(feedback.TierCorrect, 2)
		probe.Desc = DescCorrect
		probe.AddFeedback(g.ctx, "correct")
	} else {
		probe.Score(feedback.TierWrong, 0)
		probe.Desc = DescIncorrect
		probe.AddFeedback(g.ctx, "incorrect")
	}

	plug := g.item(feedback.CategoryMeasuring, feedback.ItemPlugConnection)
	switch {
	case p.RedPlugConn == model.VOmAPort && p.BlackPlugConn == model.CommonPort:
		plug.Score(feedback.TierCorrect, 5)
		plug.Desc = DescCorrect
		plug.AddFeedback(g.ctx, "correct")
	case p.RedPlugConn == model.CommonPort && p.BlackPlugConn == model.VOmAPort:
		plug.Score(feedback.TierNearCorrect, 3)
		plug.Desc = DescReversed
		plug.AddFeedback(g.ctx, "reverse")
	default:
		plug.Score(feedback.TierWrong, 0)
		plug.Desc = DescIncorrect
		plug.AddFeedback(g.ctx, "incorrect")
	}

	submitted := p.DialSetting
	optimal := model.OptimalDial(g.sec.DisplayedResistance)
	g.fb.InitialDialSetting = p.InitialDialSetting
	g.fb.SubmitDialSetting = submitted
	g.fb.OptimalDialSetting = optimal

	knob := g.item(feedback.CategoryMeasuring, feedback.ItemKnobSetting)
	switch {
	case submitted == optimal:
		knob.Score(feedback.TierCorrect, 20)
		knob.AddFeedback(g.ctx, "correct")
	case submitted.IsResistance():
		knob.Score(feedback.TierPartial, 10)
		knob.AddFeedback(g.ctx, "suboptimal", optimal.Label(), submitted.Label())
	default:
		knob.Score(feedback.TierWrong, 0)
		knob.AddFeedback(g.ctx, "incorrect")
	}

	power := g.item(feedback.CategoryMeasuring, feedback.ItemPowerSwitch)
	if p.PowerOn {
		power.Score(feedback.TierCorrect, 2)
		power.AddFeedback(g.ctx, "correct")
	} else {
		power.Score(feedback.TierWrong, 0)
		power.AddFeedback(g.ctx, "incorrect")
	}

	order := g.item(feedback.CategoryMeasuring, feedback.ItemTaskOrder)
	if p.CorrectOrder {
		order.Score(feedback.TierCorrect, 6)
		order.AddFeedback(g.ctx, "correct")
	} else {
		order.Score(feedback.TierWrong, 0)
		order.AddFeedback(g.ctx, "incorrect")
	}
}

func onResistor(node string) bool {
	return node == model.ResistorLead1 || node == model.ResistorLead2
}

func absInt(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
