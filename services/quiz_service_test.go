package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cavision/internal/cache"
	"cavision/internal/quiz"
	"cavision/models"
)

func generated(n int) *Generated {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{
			ID:            i + 1,
			Question:      "Q?",
			Options:       models.Options{A: "a", B: "b", C: "c", D: "d"},
			CorrectAnswer: "C",
			Explanation:   "c it is",
		}
	}
	return &Generated{Meta: quiz.Meta{Source: quiz.SourceSyllabus, Difficulty: "Easy"}, Questions: qs}
}

func newQuizService(t *testing.T) (*QuizService, *memoryProfiles) {
	t.Helper()
	stats := newMemoryProfiles()
	return NewQuizService(cache.NewMemorySessionStore(), stats, nil), stats
}

func startQuiz(t *testing.T, svc *QuizService, userID string, n int) *quiz.Session {
	t.Helper()
	res, err := svc.Start(context.Background(), userID, generated(n))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return res.Session
}

type failingSessionStore struct {
	cache.SessionStore
}

func (failingSessionStore) Start(ctx context.Context, s *quiz.Session) error {
	return errors.New("redis down")
}

func TestQuizServiceStartRecordsGeneratedOnlyWhenStored(t *testing.T) {
	stats := newMemoryProfiles()
	svc := NewQuizService(failingSessionStore{cache.NewMemorySessionStore()}, stats, nil)
	if _, err := svc.Start(context.Background(), "u1", generated(2)); err == nil {
		t.Fatal("expected Start to fail")
	}
	if len(stats.deltas) != 0 {
		t.Fatalf("generated counter moved for a quiz that was never stored: %+v", stats.deltas)
	}
}

func TestQuizServiceStartStatsFailureIsAWarning(t *testing.T) {
	svc, stats := newQuizService(t)
	stats.incErr = errors.New("mongo down")
	res, err := svc.Start(context.Background(), "u1", generated(2))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.StatsWarning == "" || res.Session == nil {
		t.Fatalf("result = %+v, want session and warning", res)
	}
}

func TestQuizServiceFullRun(t *testing.T) {
	ctx := context.Background()
	svc, stats := newQuizService(t)

	started, err := svc.Start(ctx, "u1", generated(3))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.StatsWarning != "" {
		t.Fatalf("unexpected start warning %q", started.StatsWarning)
	}
	id := started.Session.ID

	if _, err := svc.Select(ctx, "u1", id, "c"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := svc.Next(ctx, "u1", id); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, err := svc.Select(ctx, "u1", id, "A"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := svc.ToggleFlag(ctx, "u1", id); err != nil {
		t.Fatalf("ToggleFlag: %v", err)
	}
	if _, err := svc.Submit(ctx, "u1", id); !errors.Is(err, quiz.ErrNotAtLastQuestion) {
		t.Fatalf("early submit err = %v", err)
	}
	if _, err := svc.GoTo(ctx, "u1", id, 2); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	if _, err := svc.Select(ctx, "u1", id, "C"); err != nil {
		t.Fatalf("Select: %v", err)
	}

	res, err := svc.Submit(ctx, "u1", id)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Score != 2 || res.StatsWarning != "" {
		t.Fatalf("result = %+v, want score 2 and no warning", res)
	}
	want := []models.StatsDelta{{Generated: 1}, {Attempted: 3, Correct: 2}}
	if len(stats.deltas) != 2 || stats.deltas[0] != want[0] || stats.deltas[1] != want[1] {
		t.Fatalf("deltas = %+v, want %+v", stats.deltas, want)
	}

	if _, err := svc.Submit(ctx, "u1", id); !errors.Is(err, quiz.ErrCompleted) {
		t.Fatalf("second submit err = %v, want ErrCompleted", err)
	}
	if len(stats.deltas) != 2 {
		t.Fatal("stats recorded twice")
	}

	review, err := svc.Review(ctx, "u1", id)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if review.Score != 2 || review.Total != 3 || review.Flagged != 1 {
		t.Fatalf("review = %+v", review)
	}
	if review.Items[1].IsCorrect || !review.Items[2].IsCorrect {
		t.Fatalf("review items = %+v", review.Items)
	}
}

func TestQuizServiceOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _ := newQuizService(t)
	s := startQuiz(t, svc, "owner", 2)

	if _, err := svc.Get(ctx, "intruder", s.ID); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("Get by other user err = %v", err)
	}
	if _, err := svc.Select(ctx, "intruder", s.ID, "A"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("Select by other user err = %v", err)
	}
}

func TestQuizServiceReviewBeforeSubmit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newQuizService(t)
	s := startQuiz(t, svc, "u1", 2)
	if _, err := svc.Review(ctx, "u1", s.ID); !errors.Is(err, quiz.ErrNotCompleted) {
		t.Fatalf("err = %v, want ErrNotCompleted", err)
	}
}

func TestQuizServiceStartReplacesCurrent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newQuizService(t)
	first := startQuiz(t, svc, "u1", 2)
	second := startQuiz(t, svc, "u1", 5)

	cur, err := svc.Current(ctx, "u1")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.ID != second.ID {
		t.Fatalf("current = %s, want %s", cur.ID, second.ID)
	}
	if _, err := svc.Get(ctx, "u1", first.ID); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("old session still present: %v", err)
	}
}

func TestQuizServiceSubmitStatsFailure(t *testing.T) {
	ctx := context.Background()
	svc, stats := newQuizService(t)
	stats.incErr = errors.New("write failed")
	s := startQuiz(t, svc, "u1", 1)

	res, err := svc.Submit(ctx, "u1", s.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.StatsWarning == "" || !res.Session.Completed() {
		t.Fatalf("result = %+v", res)
	}
}

func TestQuizServiceConcurrentSubmitScoresOnce(t *testing.T) {
	ctx := context.Background()
	svc, stats := newQuizService(t)
	s := startQuiz(t, svc, "u1", 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Submit(ctx, "u1", s.ID)
		}()
	}
	wg.Wait()
	// One delta for the generated quiz, one for the submission.
	if len(stats.deltas) != 2 {
		t.Fatalf("stats recorded %d times, want 2", len(stats.deltas))
	}
}
