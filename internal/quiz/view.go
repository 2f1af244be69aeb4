package quiz

import (
	"time"

	"cavision/models"

	"github.com/samber/lo"
)

type ViewQuestion struct {
	ID            int            `json:"id"`
	Question      string         `json:"question"`
	Options       models.Options `json:"options"`
	UserAnswer    *string        `json:"userAnswer"`
	Flagged       bool           `json:"flagged"`
	CorrectAnswer string         `json:"correctAnswer,omitempty"`
	Explanation   string         `json:"explanation,omitempty"`
}

// View is what the client sees of a session. Answers and explanations stay
// hidden until the quiz is submitted.
type View struct {
	ID string `json:"id"`
	Meta
	Status       Status         `json:"status"`
	CurrentIndex int            `json:"currentIndex"`
	Total        int            `json:"total"`
	Answered     int            `json:"answered"`
	Score        *int           `json:"score,omitempty"`
	Questions    []ViewQuestion `json:"questions"`
	CreatedAt    time.Time      `json:"createdAt"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
}

func (s *Session) PublicView() View {
	reveal := s.Completed()
	return View{
		ID:           s.ID,
		Meta:         s.Meta,
		Status:       s.Status,
		CurrentIndex: s.CurrentIndex,
		Total:        len(s.Items),
		Answered:     s.Answered(),
		Score:        s.Score,
		Questions: lo.Map(s.Items, func(it Item, _ int) ViewQuestion {
			v := ViewQuestion{
				ID:         it.ID,
				Question:   it.Question.Question,
				Options:    it.Options,
				UserAnswer: it.UserAnswer,
				Flagged:    it.Flagged,
			}
			if reveal {
				v.CorrectAnswer = it.CorrectAnswer
				v.Explanation = it.Explanation
			}
			return v
		}),
		CreatedAt:   s.CreatedAt,
		CompletedAt: s.CompletedAt,
	}
}

type ReviewItem struct {
	ID            int            `json:"id"`
	Question      string         `json:"question"`
	Options       models.Options `json:"options"`
	CorrectAnswer string         `json:"correctAnswer"`
	UserAnswer    *string        `json:"userAnswer"`
	IsCorrect     bool           `json:"isCorrect"`
	Flagged       bool           `json:"flagged"`
	Explanation   string         `json:"explanation"`
}

type Review struct {
	ID string `json:"id"`
	Meta
	Score   int          `json:"score"`
	Total   int          `json:"total"`
	Flagged int          `json:"flagged"`
	Items   []ReviewItem `json:"questions"`
}

// Review renders a submitted session question by question.
func (s *Session) Review() (*Review, error) {
	if !s.Completed() {
		return nil, ErrNotCompleted
	}
	items := lo.Map(s.Items, func(it Item, _ int) ReviewItem {
		return ReviewItem{
			ID:            it.ID,
			Question:      it.Question.Question,
			Options:       it.Options,
			CorrectAnswer: it.CorrectAnswer,
			UserAnswer:    it.UserAnswer,
			IsCorrect:     it.IsCorrect(),
			Flagged:       it.Flagged,
			Explanation:   it.Explanation,
		}
	})
	return &Review{
		ID:      s.ID,
		Meta:    s.Meta,
		Score:   lo.FromPtr(s.Score),
		Total:   len(items),
		Flagged: lo.CountBy(items, func(it ReviewItem) bool { return it.Flagged }),
		Items:   items,
	}, nil
}
