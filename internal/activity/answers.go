package activity

import (
	"context"
	"fmt"
	"strings"

	"github.com/pavelanni/mrtutor/internal/i18n"
	"github.com/pavelanni/mrtutor/internal/measure"
	"github.com/pavelanni/mrtutor/internal/model"
)

// Placeholder entries of the answer selectors that mean "nothing chosen".
const (
	unitPrompt      = "Units..."
	tolerancePrompt = "Select one"
)

// AnswerError reports an answer that cannot be accepted. Message is
// localized for the learner.
type AnswerError struct {
	Question int
	Message  string
}

func (e *AnswerError) Error() string {
	return fmt.Sprintf("question %d: %s", e.Question, e.Message)
}

func (e *AnswerError) Unwrap() error { return ErrInvalidAnswer }

func at(xs []string, i int) string {
	if i < len(xs) {
		return strings.TrimSpace(xs[i])
	}
	return ""
}

func chosen(s string) bool {
	return s != "" && s != unitPrompt && s != tolerancePrompt
}

// validateAnswer checks that the answer to question n can be graded.
func validateAnswer(ctx context.Context, n int, sub Submission) error {
	fail := func(id string) error {
		return &AnswerError{Question: n, Message: i18n.T(ctx, id)}
	}
	switch n {
	case 1, 3:
		if _, ok := measure.ParseNumber(at(sub.Values, 0)); !ok {
			return fail("answer_not_number")
		}
		if !chosen(at(sub.Units, 0)) {
			return fail("answer_select_unit")
		}
	case 2:
		if !chosen(at(sub.Values, 0)) {
			return fail("answer_select_tolerance")
		}
	case 4:
		_, okMin := measure.ParseNumber(at(sub.Values, 0))
		_, okMax := measure.ParseNumber(at(sub.Values, 1))
		if !okMin || !okMax {
			return fail("answer_not_numbers")
		}
		if !chosen(at(sub.Units, 0)) || !chosen(at(sub.Units, 1)) {
			return fail("answer_select_units")
		}
	case 5:
		switch strings.ToLower(at(sub.Values, 0)) {
		case "yes", "no":
		default:
			return fail("answer_yes_no")
		}
	default:
		return fmt.Errorf("question %d: %w", n, ErrInvalidAnswer)
	}
	return nil
}

// recordAnswer stores a validated answer on q.
func recordAnswer(q *model.Question, n int, sub Submission) {
	switch n {
	case 2:
		v := strings.TrimSpace(strings.TrimSuffix(at(sub.Values, 0), "%"))
		q.Answer = []string{v}
		q.Unit = []string{"%"}
	case 4:
		q.Answer = []string{at(sub.Values, 0), at(sub.Values, 1)}
		q.Unit = []string{at(sub.Units, 0), at(sub.Units, 1)}
	case 5:
		q.Answer = []string{strings.ToLower(at(sub.Values, 0))}
		q.Unit = nil
	default:
		q.Answer = []string{at(sub.Values, 0)}
		q.Unit = []string{at(sub.Units, 0)}
	}
}
