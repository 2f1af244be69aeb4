package models

import "strings"

// OptionLabels are the four answer labels every MCQ carries, in display order.
var OptionLabels = []string{"A", "B", "C", "D"}

type Options struct {
	A string `json:"A" bson:"A" jsonschema_description:"Option A."`
	B string `json:"B" bson:"B" jsonschema_description:"Option B."`
	C string `json:"C" bson:"C" jsonschema_description:"Option C."`
	D string `json:"D" bson:"D" jsonschema_description:"Option D."`
}

// Get returns the option text for a label and whether the label is one of A-D.
func (o Options) Get(label string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "A":
		return o.A, true
	case "B":
		return o.B, true
	case "C":
		return o.C, true
	case "D":
		return o.D, true
	}
	return "", false
}

// Question is a single multiple-choice question with exactly four options.
type Question struct {
	ID            int     `json:"id" bson:"id" jsonschema_description:"The unique identifier for the MCQ."`
	Question      string  `json:"question" bson:"question" jsonschema_description:"The text of the multiple-choice question."`
	Options       Options `json:"options" bson:"options" jsonschema_description:"The multiple choice options for the question."`
	CorrectAnswer string  `json:"correctAnswer" bson:"correctAnswer" jsonschema:"enum=A,enum=B,enum=C,enum=D" jsonschema_description:"The correct answer option (A, B, C, or D)."`
	Explanation   string  `json:"explanation" bson:"explanation" jsonschema_description:"An explanation of the correct answer."`
}
