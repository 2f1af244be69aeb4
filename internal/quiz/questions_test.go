package quiz

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cavision/models"
)

func rawQuestions(n int) string {
	data, _ := json.Marshal(sampleQuestions(n))
	return string(data)
}

func TestParseQuestionsTenEasyAccounting(t *testing.T) {
	raw := "```json\n" + rawQuestions(10) + "\n```"
	qs, err := ParseQuestions(raw, 10)
	if err != nil {
		t.Fatalf("ParseQuestions failed: %v", err)
	}
	if len(qs) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(qs))
	}
	for i, q := range qs {
		if q.ID != i+1 {
			t.Errorf("question %d has id %d", i, q.ID)
		}
		if _, ok := q.Options.Get(q.CorrectAnswer); !ok {
			t.Errorf("question %d answer %q is not an option key", i, q.CorrectAnswer)
		}
	}
}

func TestParseQuestionsTruncatesAndRenumbers(t *testing.T) {
	qs := sampleQuestions(7)
	for i := range qs {
		qs[i].ID = 100 + i
	}
	data, _ := json.Marshal(map[string]any{"questions": qs})
	got, err := ParseQuestions(string(data), 5)
	if err != nil {
		t.Fatalf("ParseQuestions failed: %v", err)
	}
	if len(got) != 5 || got[0].ID != 1 || got[4].ID != 5 {
		t.Errorf("expected 5 renumbered questions, got %d (first id %d)", len(got), got[0].ID)
	}
}

func TestParseQuestionsNormalisesLabels(t *testing.T) {
	raw := `[{"id":"x","question":"Q?","options":{"A":"1","B":"2","C":"3","D":"4"},"correctAnswer":" c ","explanation":"e"}]`
	qs, err := ParseQuestions(raw, 1)
	if err != nil {
		t.Fatalf("ParseQuestions failed: %v", err)
	}
	if qs[0].CorrectAnswer != "C" {
		t.Errorf("expected normalised label C, got %q", qs[0].CorrectAnswer)
	}
}

func TestParseQuestionsFailures(t *testing.T) {
	missingOption := strings.Replace(rawQuestions(5), `"D":"d"`, `"D":""`, 1)
	badAnswer := strings.Replace(rawQuestions(5), `"correctAnswer":"A"`, `"correctAnswer":"E"`, 1)
	cases := map[string]struct {
		raw   string
		count int
	}{
		"empty":          {"", 5},
		"empty array":    {"[]", 5},
		"malformed":      {`[{"question":`, 5},
		"not array":      {`"hello"`, 5},
		"too few":        {rawQuestions(3), 5},
		"missing option": {missingOption, 5},
		"bad answer":     {badAnswer, 5},
		"zero count":     {rawQuestions(5), 0},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseQuestions(c.raw, c.count); !errors.Is(err, ErrNoQuestions) {
				t.Errorf("expected ErrNoQuestions, got %v", err)
			}
		})
	}
}

func TestNormalizeLabel(t *testing.T) {
	for in, want := range map[string]string{"a": "A", " (B) ": "B", "c.": "C", "D": "D", "E": "", "": "", "AB": ""} {
		if got := NormalizeLabel(in); got != want {
			t.Errorf("NormalizeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateQuestionRequiresExplanation(t *testing.T) {
	q := models.Question{Question: "Q", Options: models.Options{A: "1", B: "2", C: "3", D: "4"}, CorrectAnswer: "A"}
	if ValidateQuestion(&q) {
		t.Errorf("question without explanation should be invalid")
	}
	q.Explanation = "ok"
	if !ValidateQuestion(&q) {
		t.Errorf("complete question should be valid")
	}
}
