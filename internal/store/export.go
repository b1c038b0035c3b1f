package store

import (
	"context"
	"fmt"

	"github.com/pavelanni/mrtutor/internal/model"
)

// ExportAll builds export-ready results of every stored attempt, grouped
// by learner.
func (s *Store) ExportAll(ctx context.Context) (*model.AttemptExport, error) {
	attempts, err := s.listAllAttempts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	export := &model.AttemptExport{
		ExportedAt:  s.now(),
		NumAttempts: len(attempts),
		Results:     make([]model.AttemptResult, 0, len(attempts)),
	}
	for _, a := range attempts {
		items, err := s.ItemScores(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("item scores of %s: %w", a.ID, err)
		}
		export.Results = append(export.Results, model.AttemptResult{
			AttemptID: a.ID,
			LearnerID: a.LearnerID,
			StartedAt: a.StartedAt,
			EndedAt:   a.EndedAt,
			Points:    a.Points,
			MaxPoints: a.MaxPoints,
			Items:     items,
		})
	}
	return export, nil
}
