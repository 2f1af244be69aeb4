package services

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"cavision/internal/cache"
	"cavision/internal/logger"
	"cavision/internal/quiz"
	"cavision/models"
)

const sessionLockStripes = 64

// StatsRecorder applies counter increments to a user's profile.
type StatsRecorder interface {
	IncrementCounters(ctx context.Context, userID string, d models.StatsDelta) error
}

// QuizService runs quiz sessions on behalf of their owners. Every mutation is
// load, apply, save under a per-session lock.
type QuizService struct {
	store cache.SessionStore
	stats StatsRecorder
	log   *logger.Logger
	now   func() time.Time
	locks [sessionLockStripes]sync.Mutex
}

func NewQuizService(store cache.SessionStore, stats StatsRecorder, log *logger.Logger) *QuizService {
	if log == nil {
		log = logger.Nop()
	}
	return &QuizService{
		store: store,
		stats: stats,
		log:   log.With("service", "QuizService"),
		now:   time.Now,
	}
}

type StartResult struct {
	Session      *quiz.Session
	StatsWarning string
}

// Start creates a session from a generated batch and makes it the user's
// current quiz. The generated counter only moves once the session is stored.
func (s *QuizService) Start(ctx context.Context, userID string, gen *Generated) (*StartResult, error) {
	session, err := quiz.NewSession(userID, gen.Meta, gen.Questions)
	if err != nil {
		return nil, err
	}
	if err := s.store.Start(ctx, session); err != nil {
		return nil, err
	}

	res := &StartResult{Session: session}
	if err := s.stats.IncrementCounters(ctx, userID, models.StatsDelta{Generated: 1}); err != nil {
		s.log.Error("failed to record generated quiz", "user_id", userID, "session_id", session.ID, "error", err)
		res.StatsWarning = "Your quiz is ready, but we couldn't update your stats."
	}
	return res, nil
}

// Get loads a session the user owns. Someone else's session looks missing.
func (s *QuizService) Get(ctx context.Context, userID, id string) (*quiz.Session, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, cache.ErrNotFound
	}
	return session, nil
}

func (s *QuizService) Current(ctx context.Context, userID string) (*quiz.Session, error) {
	return s.store.Current(ctx, userID)
}

func (s *QuizService) lock(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.locks[h.Sum32()%sessionLockStripes]
}

func (s *QuizService) mutate(ctx context.Context, userID, id string, apply func(*quiz.Session) error) (*quiz.Session, error) {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(session); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *QuizService) Select(ctx context.Context, userID, id, label string) (*quiz.Session, error) {
	return s.mutate(ctx, userID, id, func(q *quiz.Session) error { return q.SelectOption(label) })
}

func (s *QuizService) Next(ctx context.Context, userID, id string) (*quiz.Session, error) {
	return s.mutate(ctx, userID, id, (*quiz.Session).Next)
}

func (s *QuizService) Previous(ctx context.Context, userID, id string) (*quiz.Session, error) {
	return s.mutate(ctx, userID, id, (*quiz.Session).Previous)
}

func (s *QuizService) GoTo(ctx context.Context, userID, id string, index int) (*quiz.Session, error) {
	return s.mutate(ctx, userID, id, func(q *quiz.Session) error { return q.GoTo(index) })
}

func (s *QuizService) ToggleFlag(ctx context.Context, userID, id string) (*quiz.Session, error) {
	return s.mutate(ctx, userID, id, (*quiz.Session).ToggleFlag)
}

type SubmitResult struct {
	Session      *quiz.Session
	Score        int
	StatsWarning string
}

// Submit scores the quiz from the stored copy and records the result on the
// profile. A failed stats write does not undo the submission.
func (s *QuizService) Submit(ctx context.Context, userID, id string) (*SubmitResult, error) {
	var score int
	session, err := s.mutate(ctx, userID, id, func(q *quiz.Session) error {
		var err error
		score, err = q.Submit(s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &SubmitResult{Session: session, Score: score}
	delta := models.StatsDelta{Attempted: int64(len(session.Items)), Correct: int64(score)}
	if err := s.stats.IncrementCounters(ctx, userID, delta); err != nil {
		s.log.Error("failed to record quiz result", "user_id", userID, "session_id", id, "error", err)
		res.StatsWarning = "Your quiz was submitted, but we couldn't update your stats."
	}
	return res, nil
}

func (s *QuizService) Review(ctx context.Context, userID, id string) (*quiz.Review, error) {
	session, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return session.Review()
}
