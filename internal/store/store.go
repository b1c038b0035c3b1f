package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/mrtutor/internal/feedback"
	"github.com/pavelanni/mrtutor/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested attempt does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would get its own empty in-memory database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		learner_id TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		points INTEGER NOT NULL,
		max_points INTEGER NOT NULL,
		session_json TEXT NOT NULL,
		feedback_json TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_learner ON attempts(learner_id, created_at);

	CREATE TABLE IF NOT EXISTS item_scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		attempt_id TEXT NOT NULL,
		category TEXT NOT NULL,
		item TEXT NOT NULL,
		tier INTEGER NOT NULL,
		points INTEGER NOT NULL,
		max_points INTEGER NOT NULL,
		FOREIGN KEY (attempt_id) REFERENCES attempts(id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'teacher',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save stores a graded try. It satisfies activity.Saver.
func (s *Store) Save(ctx context.Context, learnerID string, sess *model.Session, fb *feedback.Feedback) error {
	_, err := s.SaveAttempt(ctx, learnerID, sess, fb)
	return err
}

// SaveAttempt stores a graded try with one score row per rubric item and
// returns the stored attempt.
func (s *Store) SaveAttempt(ctx context.Context, learnerID string, sess *model.Session, fb *feedback.Feedback) (model.Attempt, error) {
	sessJSON, err := json.Marshal(sess)
	if err != nil {
		return model.Attempt{}, fmt.Errorf("encode session: %w", err)
	}
	fbJSON, err := json.Marshal(fb)
	if err != nil {
		return model.Attempt{}, fmt.Errorf("encode feedback: %w", err)
	}

	a := model.Attempt{
		ID:        uuid.NewString(),
		LearnerID: learnerID,
		StartedAt: sess.StartTime,
		EndedAt:   sess.EndTime,
		Points:    fb.Points(),
		MaxPoints: fb.MaxPoints(),
		Session:   sessJSON,
		Feedback:  fbJSON,
		CreatedAt: s.now(),
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = a.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Attempt{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO attempts (id, learner_id, started_at, ended_at, points, max_points, session_json, feedback_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.LearnerID, a.StartedAt, nullTime(a.EndedAt), a.Points, a.MaxPoints, string(sessJSON), string(fbJSON), a.CreatedAt,
	)
	if err != nil {
		return model.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	for _, sc := range itemScores(fb) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO item_scores (attempt_id, category, item, tier, points, max_points) VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, sc.Category, sc.Item, sc.Tier, sc.Points, sc.MaxPoints,
		)
		if err != nil {
			return model.Attempt{}, fmt.Errorf("insert item score %s: %w", sc.Item, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Attempt{}, err
	}
	return a, nil
}

func itemScores(fb *feedback.Feedback) []model.ItemScore {
	var scores []model.ItemScore
	for _, cat := range fb.Root.Children {
		for _, it := range cat.Leaves() {
			scores = append(scores, model.ItemScore{
				Category:  cat.Name,
				Item:      it.Name,
				Tier:      int(it.Correct),
				Points:    it.Points,
				MaxPoints: it.MaxPoints,
			})
		}
	}
	return scores
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// GetAttempt returns an attempt with its session log and feedback.
func (s *Store) GetAttempt(ctx context.Context, id string) (*model.Attempt, error) {
	var (
		a        model.Attempt
		ended    sql.NullTime
		sessJSON string
		fbJSON   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, learner_id, started_at, ended_at, points, max_points, session_json, feedback_json, created_at
		 FROM attempts WHERE id = ?`, id,
	).Scan(&a.ID, &a.LearnerID, &a.StartedAt, &ended, &a.Points, &a.MaxPoints, &sessJSON, &fbJSON, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attempt %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	a.EndedAt = ended.Time
	a.Session = json.RawMessage(sessJSON)
	a.Feedback = json.RawMessage(fbJSON)
	return &a, nil
}

// ListAttempts returns a learner's attempts, oldest first, without their
// session logs and feedback.
func (s *Store) ListAttempts(ctx context.Context, learnerID string) ([]model.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, learner_id, started_at, ended_at, points, max_points, created_at
		 FROM attempts WHERE learner_id = ? ORDER BY created_at, rowid`, learnerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func (s *Store) listAllAttempts(ctx context.Context) ([]model.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, learner_id, started_at, ended_at, points, max_points, created_at
		 FROM attempts ORDER BY learner_id, created_at, rowid`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func scanAttempts(rows *sql.Rows) ([]model.Attempt, error) {
	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		var ended sql.NullTime
		if err := rows.Scan(&a.ID, &a.LearnerID, &a.StartedAt, &ended, &a.Points, &a.MaxPoints, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.EndedAt = ended.Time
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ItemScores returns the per-item scores of an attempt in rubric order.
func (s *Store) ItemScores(ctx context.Context, attemptID string) ([]model.ItemScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, item, tier, points, max_points FROM item_scores WHERE attempt_id = ? ORDER BY id`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var scores []model.ItemScore
	for rows.Next() {
		var sc model.ItemScore
		if err := rows.Scan(&sc.Category, &sc.Item, &sc.Tier, &sc.Points, &sc.MaxPoints); err != nil {
			return nil, err
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

// AttemptCount returns the number of stored attempts.
func (s *Store) AttemptCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts`).Scan(&count)
	return count, err
}
