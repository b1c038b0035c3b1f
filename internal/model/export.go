package model

import (
	"encoding/json"
	"time"
)

// Attempt is a graded try as stored for a learner.
type Attempt struct {
	ID        string          `json:"id"`
	LearnerID string          `json:"learner_id"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at,omitzero"`
	Points    int             `json:"points"`
	MaxPoints int             `json:"max_points"`
	Session   json.RawMessage `json:"session,omitempty"`
	Feedback  json.RawMessage `json:"feedback,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ItemScore is the score of one rubric item of an attempt.
type ItemScore struct {
	Category  string `json:"category"`
	Item      string `json:"item"`
	Tier      int    `json:"tier"`
	Points    int    `json:"points"`
	MaxPoints int    `json:"max_points"`
}

// AttemptExport is the top-level JSON structure for result export.
type AttemptExport struct {
	ExportedAt  time.Time       `json:"exported_at"`
	NumAttempts int             `json:"num_attempts"`
	Results     []AttemptResult `json:"results"`
}

// AttemptResult holds one attempt's scores for export.
type AttemptResult struct {
	AttemptID string      `json:"attempt_id"`
	LearnerID string      `json:"learner_id"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   time.Time   `json:"ended_at,omitzero"`
	Points    int         `json:"points"`
	MaxPoints int         `json:"max_points"`
	Items     []ItemScore `json:"items"`
}
