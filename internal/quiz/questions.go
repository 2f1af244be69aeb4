package quiz

import (
	"errors"
	"strings"

	"cavision/internal/llm"
	"cavision/models"

	"github.com/tidwall/gjson"
)

var ErrNoQuestions = errors.New("no questions generated")

// NormalizeLabel upper-cases and trims an option label, returning "" when it is not A-D.
func NormalizeLabel(label string) string {
	l := strings.ToUpper(strings.TrimSpace(label))
	l = strings.TrimSuffix(strings.TrimPrefix(l, "("), ")")
	l = strings.TrimSuffix(l, ".")
	switch l {
	case "A", "B", "C", "D":
		return l
	}
	return ""
}

// ValidateQuestion normalises q in place and reports whether it is a complete MCQ.
func ValidateQuestion(q *models.Question) bool {
	q.Question = strings.TrimSpace(q.Question)
	q.Explanation = strings.TrimSpace(q.Explanation)
	q.CorrectAnswer = NormalizeLabel(q.CorrectAnswer)
	if q.Question == "" || q.Explanation == "" || q.CorrectAnswer == "" {
		return false
	}
	for _, label := range models.OptionLabels {
		text, _ := q.Options.Get(label)
		if strings.TrimSpace(text) == "" {
			return false
		}
	}
	return true
}

// ParseQuestions turns raw model output into exactly count validated
// questions with ids 1..count. Output wrapped as {"questions": [...]} is
// accepted too. Invalid elements are dropped; if fewer than count remain the
// whole batch is rejected.
func ParseQuestions(raw string, count int) ([]models.Question, error) {
	cleaned := llm.CleanModelOutput(raw)
	if count <= 0 || cleaned == "" || !gjson.Valid(cleaned) {
		return nil, ErrNoQuestions
	}

	list := gjson.Parse(cleaned)
	if list.IsObject() {
		list = list.Get("questions")
	}
	if !list.IsArray() {
		return nil, ErrNoQuestions
	}

	questions := make([]models.Question, 0, count)
	for _, elem := range list.Array() {
		if !elem.IsObject() {
			continue
		}
		q := questionFrom(elem)
		if !ValidateQuestion(&q) {
			continue
		}
		questions = append(questions, q)
		if len(questions) == count {
			break
		}
	}
	if len(questions) < count {
		return nil, ErrNoQuestions
	}
	for i := range questions {
		questions[i].ID = i + 1
	}
	return questions, nil
}

// questionFrom reads fields leniently; ids are reassigned by the caller.
func questionFrom(elem gjson.Result) models.Question {
	opts := elem.Get("options")
	return models.Question{
		Question: elem.Get("question").String(),
		Options: models.Options{
			A: opts.Get("A").String(),
			B: opts.Get("B").String(),
			C: opts.Get("C").String(),
			D: opts.Get("D").String(),
		},
		CorrectAnswer: elem.Get("correctAnswer").String(),
		Explanation:   elem.Get("explanation").String(),
	}
}
