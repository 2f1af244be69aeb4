// Package quiz holds the quiz-taking state machine: a session moves through
// its questions while in progress and becomes read-only once submitted.
package quiz

import (
	"encoding/json"
	"errors"
	"time"

	"cavision/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

var (
	ErrEmptyQuiz         = errors.New("quiz has no questions")
	ErrCompleted         = errors.New("quiz already submitted")
	ErrNotCompleted      = errors.New("quiz not submitted yet")
	ErrInvalidOption     = errors.New("option must be one of A, B, C or D")
	ErrNotAtLastQuestion = errors.New("quiz can only be submitted from the last question")
	ErrIndexOutOfRange   = errors.New("question index out of range")
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Source string

const (
	SourceSyllabus Source = "syllabus"
	SourceUpload   Source = "upload"
)

// Item is a question plus the user's progress on it.
type Item struct {
	models.Question
	UserAnswer *string `json:"userAnswer"`
	Flagged    bool    `json:"flagged"`
}

func (it Item) IsCorrect() bool {
	return it.UserAnswer != nil && *it.UserAnswer == it.CorrectAnswer
}

// Meta describes where a quiz came from.
type Meta struct {
	Source     Source `json:"source"`
	Level      string `json:"level,omitempty"`
	Group      string `json:"group,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Difficulty string `json:"difficulty"`
	FileName   string `json:"fileName,omitempty"`
}

type Session struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Meta
	Items        []Item     `json:"questions"`
	CurrentIndex int        `json:"currentIndex"`
	Status       Status     `json:"status"`
	Score        *int       `json:"score,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

func NewSession(userID string, meta Meta, questions []models.Question) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyQuiz
	}
	return &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		Meta:   meta,
		Items: lo.Map(questions, func(q models.Question, _ int) Item {
			return Item{Question: q}
		}),
		Status:    StatusInProgress,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *Session) Completed() bool { return s.Status == StatusCompleted }

func (s *Session) Current() Item { return s.Items[s.CurrentIndex] }

func (s *Session) IsLast() bool { return s.CurrentIndex == len(s.Items)-1 }

// SelectOption records label as the answer to the current question.
// Selecting the same label again leaves the session unchanged.
func (s *Session) SelectOption(label string) error {
	if s.Completed() {
		return ErrCompleted
	}
	l := NormalizeLabel(label)
	if l == "" {
		return ErrInvalidOption
	}
	s.Items[s.CurrentIndex].UserAnswer = &l
	return nil
}

// Next advances one question; at the last question it is a no-op.
func (s *Session) Next() error {
	if s.Completed() {
		return ErrCompleted
	}
	if s.CurrentIndex < len(s.Items)-1 {
		s.CurrentIndex++
	}
	return nil
}

// Previous goes back one question; at the first question it is a no-op.
func (s *Session) Previous() error {
	if s.Completed() {
		return ErrCompleted
	}
	if s.CurrentIndex > 0 {
		s.CurrentIndex--
	}
	return nil
}

func (s *Session) GoTo(index int) error {
	if s.Completed() {
		return ErrCompleted
	}
	if index < 0 || index >= len(s.Items) {
		return ErrIndexOutOfRange
	}
	s.CurrentIndex = index
	return nil
}

func (s *Session) ToggleFlag() error {
	if s.Completed() {
		return ErrCompleted
	}
	s.Items[s.CurrentIndex].Flagged = !s.Items[s.CurrentIndex].Flagged
	return nil
}

// Submit completes the quiz and returns the score.
func (s *Session) Submit(now time.Time) (int, error) {
	if s.Completed() {
		return 0, ErrCompleted
	}
	if !s.IsLast() {
		return 0, ErrNotAtLastQuestion
	}
	score := s.computeScore()
	completed := now.UTC()
	s.Score = &score
	s.Status = StatusCompleted
	s.CompletedAt = &completed
	return score, nil
}

func (s *Session) computeScore() int {
	return lo.CountBy(s.Items, func(it Item) bool { return it.IsCorrect() })
}

func (s *Session) Answered() int {
	return lo.CountBy(s.Items, func(it Item) bool { return it.UserAnswer != nil })
}

func (s *Session) MarshalBinary() ([]byte, error) {
	return json.Marshal(s)
}

func (s *Session) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, s)
}
