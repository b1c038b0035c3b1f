package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// UserRole represents an admin account's access level.
type UserRole string

const (
	// UserRoleTeacher can read attempts and exports.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin can additionally import logs.
	UserRoleAdmin UserRole = "admin"
)

// User represents an account allowed to use the admin API.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionID names one of the five questions of a try.
type QuestionID string

const (
	QuestionRatedResistance    QuestionID = "rated_resistance"
	QuestionRatedTolerance     QuestionID = "rated_tolerance"
	QuestionMeasuredResistance QuestionID = "measured_resistance"
	QuestionMeasuredTolerance  QuestionID = "measured_tolerance"
	QuestionWithinTolerance    QuestionID = "within_tolerance"
)

// QuestionIDs lists the questions in the order they are asked.
var QuestionIDs = []QuestionID{
	QuestionRatedResistance,
	QuestionRatedTolerance,
	QuestionMeasuredResistance,
	QuestionMeasuredTolerance,
	QuestionWithinTolerance,
}

// Question holds one question of a section and the learner's answer to it.
// Scalar questions use index 0 of Answer and Unit; the tolerance range
// question uses 0 for the minimum and 1 for the maximum. An empty string
// means no answer.
type Question struct {
	ID            QuestionID `json:"id" validate:"required"`
	Prompt        string     `json:"prompt,omitempty"`
	CorrectAnswer string     `json:"correct_answer,omitempty"`
	Answer        []string   `json:"answer,omitempty"`
	Unit          []string   `json:"unit,omitempty"`
	StartTime     time.Time  `json:"start_time,omitzero"`
	EndTime       time.Time  `json:"end_time,omitzero"`
}

// UnmarshalJSON implements json.Unmarshaler. Answer and Unit may each be
// written as a single string, a number, null, or an array of those.
func (q *Question) UnmarshalJSON(data []byte) error {
	type plain Question
	aux := struct {
		*plain
		Answer json.RawMessage `json:"answer"`
		Unit   json.RawMessage `json:"unit"`
	}{plain: (*plain)(q)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var err error
	if q.Answer, err = decodeSlots(aux.Answer); err != nil {
		return fmt.Errorf("question %s answer: %w", q.ID, err)
	}
	if q.Unit, err = decodeSlots(aux.Unit); err != nil {
		return fmt.Errorf("question %s unit: %w", q.ID, err)
	}
	return nil
}

func decodeSlots(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	items, isList := v.([]any)
	if !isList {
		items = []any{v}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch x := it.(type) {
		case nil:
			out = append(out, "")
		case string:
			out = append(out, x)
		case float64:
			out = append(out, strconv.FormatFloat(x, 'f', -1, 64))
		default:
			return nil, fmt.Errorf("unsupported JSON type %T", it)
		}
	}
	if !isList && v == nil {
		return nil, nil
	}
	return out, nil
}

// AnswerAt returns the i-th answer slot, or "" when unset.
func (q *Question) AnswerAt(i int) string {
	if i < 0 || i >= len(q.Answer) {
		return ""
	}
	return q.Answer[i]
}

// UnitAt returns the i-th unit slot, or "" when unset.
func (q *Question) UnitAt(i int) string {
	if i < 0 || i >= len(q.Unit) {
		return ""
	}
	return q.Unit[i]
}

// Section groups the questions and device events of one try together with
// the facts of the resistor under test.
type Section struct {
	Questions []*Question `json:"questions" validate:"len=5,dive,required"`
	Events    []Event     `json:"events"`
	StartTime time.Time   `json:"start_time,omitzero"`
	EndTime   time.Time   `json:"end_time,omitzero"`

	NumBands            int     `json:"resistor_num_bands" validate:"oneof=4 5"`
	NominalResistance   float64 `json:"nominal_resistance" validate:"gt=0"`
	Tolerance           float64 `json:"tolerance" validate:"gt=0,lt=1"`
	RealResistance      float64 `json:"real_resistance" validate:"gte=0"`
	DisplayedResistance float64 `json:"displayed_resistance" validate:"gte=0"`
	UnregisteredName    string  `json:"UNREGISTERED_NAME,omitempty"`
}

// Question returns the question with the given id, or nil.
func (s *Section) Question(id QuestionID) *Question {
	for _, q := range s.Questions {
		if q != nil && q.ID == id {
			return q
		}
	}
	return nil
}

// Session is one try at the activity.
type Session struct {
	ID        string     `json:"id,omitempty"`
	LearnerID string     `json:"learner_id,omitempty"`
	Sections  []*Section `json:"sections" validate:"len=1,dive,required"`
	StartTime time.Time  `json:"start_time,omitzero"`
	EndTime   time.Time  `json:"end_time,omitzero"`
}

// Section returns the session's only section, or nil.
func (s *Session) Section() *Section {
	if s == nil || len(s.Sections) == 0 {
		return nil
	}
	return s.Sections[0]
}

// Config holds the server parameters set via CLI flags.
type Config struct {
	Addr        string
	DBPath      string
	Lang        string
	CORSOrigins []string
}
