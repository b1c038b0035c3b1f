package model

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedSession is returned when a session log lacks the structure
// grading depends on.
var ErrMalformedSession = errors.New("malformed session")

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateSession checks that s has exactly one section holding the five
// questions in order, sane resistor facts, and the question timestamps
// used for grading. Events must be in non-decreasing time order.
func ValidateSession(s *Session) error {
	if s == nil {
		return fmt.Errorf("%w: nil session", ErrMalformedSession)
	}
	if err := validate.Struct(s); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return fmt.Errorf("%w: %s failed on %q", ErrMalformedSession, ve[0].Namespace(), ve[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}

	sec := s.Section()
	for i, id := range QuestionIDs {
		if got := sec.Questions[i].ID; got != id {
			return fmt.Errorf("%w: question %d is %q, want %q", ErrMalformedSession, i+1, got, id)
		}
	}

	q := sec.Questions
	switch {
	case q[0].StartTime.IsZero():
		return fmt.Errorf("%w: question 1 was never started", ErrMalformedSession)
	case q[1].EndTime.IsZero():
		return fmt.Errorf("%w: question 2 was never submitted", ErrMalformedSession)
	case q[2].StartTime.IsZero():
		return fmt.Errorf("%w: question 3 was never started", ErrMalformedSession)
	case q[2].EndTime.IsZero():
		return fmt.Errorf("%w: question 3 was never submitted", ErrMalformedSession)
	}

	for i := 1; i < len(sec.Events); i++ {
		if sec.Events[i].Time.Before(sec.Events[i-1].Time) {
			return fmt.Errorf("%w: event %d (%s) is earlier than the event before it",
				ErrMalformedSession, i+1, sec.Events[i].Name)
		}
	}
	return nil
}
