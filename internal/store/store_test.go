package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/mrtutor/internal/activity"
	"github.com/pavelanni/mrtutor/internal/feedback"
	"github.com/pavelanni/mrtutor/internal/model"
)

var _ activity.Saver = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// Each call advances the clock a second so creation order is stable.
	tick := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return s
}

func testTry(learnerID string, ratedPoints int) (*model.Session, *feedback.Feedback) {
	start := time.Date(2026, 3, 30, 10, 0, 0, 0, time.UTC)
	sess := &model.Session{
		ID:        "sess-" + learnerID,
		LearnerID: learnerID,
		StartTime: start,
		EndTime:   start.Add(2 * time.Minute),
		Sections: []*model.Section{{
			NumBands:            4,
			NominalResistance:   1000,
			Tolerance:           0.05,
			RealResistance:      987.4,
			DisplayedResistance: 987,
		}},
	}
	fb := feedback.New()
	fb.Item(feedback.CategoryReading, feedback.ItemRatedRValue).Score(feedback.TierPartial, ratedPoints)
	fb.Item(feedback.CategoryTime, feedback.ItemReadingTime).Score(feedback.TierCorrect, 5)
	return sess, fb
}

func TestSaveAndGetAttempt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess, fb := testTry("learner-1", 10)

	saved, err := s.SaveAttempt(ctx, "learner-1", sess, fb)
	if err != nil {
		t.Fatalf("SaveAttempt: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected an attempt id")
	}

	got, err := s.GetAttempt(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetAttempt: %v", err)
	}
	if got.LearnerID != "learner-1" {
		t.Errorf("expected learner 'learner-1', got %q", got.LearnerID)
	}
	if got.Points != 15 || got.MaxPoints != 100 {
		t.Errorf("expected 15/100, got %d/%d", got.Points, got.MaxPoints)
	}
	if !got.StartedAt.Equal(sess.StartTime) {
		t.Errorf("expected started_at %v, got %v", sess.StartTime, got.StartedAt)
	}
	if !got.EndedAt.Equal(sess.EndTime) {
		t.Errorf("expected ended_at %v, got %v", sess.EndTime, got.EndedAt)
	}

	var back model.Session
	if err := json.Unmarshal(got.Session, &back); err != nil {
		t.Fatalf("decode stored session: %v", err)
	}
	if back.ID != sess.ID || back.Section().DisplayedResistance != 987 {
		t.Errorf("stored session does not round trip: %+v", back)
	}
	var backFb feedback.Feedback
	if err := json.Unmarshal(got.Feedback, &backFb); err != nil {
		t.Fatalf("decode stored feedback: %v", err)
	}
	if backFb.Points() != 15 {
		t.Errorf("expected stored feedback worth 15, got %d", backFb.Points())
	}

	_, err = s.GetAttempt(ctx, "no-such-attempt")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveWithoutEndTime(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess, fb := testTry("learner-1", 20)
	sess.EndTime = time.Time{}

	if err := s.Save(ctx, "learner-1", sess, fb); err != nil {
		t.Fatalf("Save: %v", err)
	}
	list, err := s.ListAttempts(ctx, "learner-1")
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(list))
	}
	if !list[0].EndedAt.IsZero() {
		t.Errorf("expected zero ended_at, got %v", list[0].EndedAt)
	}
}

func TestListAttempts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, p := range []int{2, 10, 20} {
		sess, fb := testTry("alice", p)
		if err := s.Save(ctx, "alice", sess, fb); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	sess, fb := testTry("bob", 0)
	if err := s.Save(ctx, "bob", sess, fb); err != nil {
		t.Fatalf("Save: %v", err)
	}

	list, err := s.ListAttempts(ctx, "alice")
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(list))
	}
	for i, want := range []int{7, 15, 25} {
		if list[i].Points != want {
			t.Errorf("attempt %d: expected %d points, got %d", i, want, list[i].Points)
		}
		if list[i].Session != nil || list[i].Feedback != nil {
			t.Errorf("attempt %d: listing should not carry the logs", i)
		}
	}

	none, err := s.ListAttempts(ctx, "carol")
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no attempts for carol, got %d", len(none))
	}

	count, err := s.AttemptCount(ctx)
	if err != nil {
		t.Fatalf("AttemptCount: %v", err)
	}
	if count != 4 {
		t.Errorf("expected 4 attempts, got %d", count)
	}
}

func TestItemScores(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess, fb := testTry("learner-1", 10)
	a, err := s.SaveAttempt(ctx, "learner-1", sess, fb)
	if err != nil {
		t.Fatalf("SaveAttempt: %v", err)
	}

	scores, err := s.ItemScores(ctx, a.ID)
	if err != nil {
		t.Fatalf("ItemScores: %v", err)
	}
	if len(scores) != 12 {
		t.Fatalf("expected 12 item scores, got %d", len(scores))
	}
	first := scores[0]
	if first.Category != feedback.CategoryReading || first.Item != feedback.ItemRatedRValue {
		t.Errorf("expected reading/rated_r_value first, got %s/%s", first.Category, first.Item)
	}
	if first.Tier != int(feedback.TierPartial) || first.Points != 10 || first.MaxPoints != 20 {
		t.Errorf("unexpected rated_r_value score %+v", first)
	}
	last := scores[11]
	if last.Item != feedback.ItemMeasuringTime {
		t.Errorf("expected measuring_time last, got %s", last.Item)
	}
	total := 0
	for _, sc := range scores {
		total += sc.MaxPoints
	}
	if total != 100 {
		t.Errorf("expected max points to sum to 100, got %d", total)
	}
}

func TestExportAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.ExportAll(ctx)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if empty.NumAttempts != 0 || len(empty.Results) != 0 {
		t.Errorf("expected empty export, got %+v", empty)
	}

	for _, id := range []string{"zed", "amy"} {
		sess, fb := testTry(id, 20)
		if err := s.Save(ctx, id, sess, fb); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	exp, err := s.ExportAll(ctx)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if exp.NumAttempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", exp.NumAttempts)
	}
	if exp.Results[0].LearnerID != "amy" || exp.Results[1].LearnerID != "zed" {
		t.Errorf("expected results ordered by learner, got %s, %s", exp.Results[0].LearnerID, exp.Results[1].LearnerID)
	}
	for _, r := range exp.Results {
		if len(r.Items) != 12 {
			t.Errorf("%s: expected 12 items, got %d", r.LearnerID, len(r.Items))
		}
		if r.Points != 25 {
			t.Errorf("%s: expected 25 points, got %d", r.LearnerID, r.Points)
		}
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)

	// Missing file returns empty string.
	hash, err := s.GetImportedFileHash("/logs/try1.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash, got %q", hash)
	}

	if err := s.SetImportedFileHash("/logs/try1.json", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	hash, err = s.GetImportedFileHash("/logs/try1.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "abc123" {
		t.Errorf("expected 'abc123', got %q", hash)
	}

	// Update existing.
	if err := s.SetImportedFileHash("/logs/try1.json", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	hash, _ = s.GetImportedFileHash("/logs/try1.json")
	if hash != "def456" {
		t.Errorf("expected 'def456', got %q", hash)
	}
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	count, err := s.UserCount(ctx)
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	id, err := s.CreateUser(ctx, model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: "hash",
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := s.GetUserByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.ID != id || u.Role != model.UserRoleAdmin || !u.Active {
		t.Errorf("unexpected user %+v", u)
	}

	missing, err := s.GetUserByUsername(ctx, "nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown user, got %+v", missing)
	}

	if _, err := s.CreateUser(ctx, model.User{Username: "admin", PasswordHash: "x", Role: model.UserRoleTeacher}); err == nil {
		t.Error("expected duplicate username to fail")
	}
	count, _ = s.UserCount(ctx)
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}
}
