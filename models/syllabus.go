package models

const (
	LevelFoundation   = "Foundation"
	LevelIntermediate = "Intermediate"
	LevelFinal        = "Final"

	GroupI  = "Group I"
	GroupII = "Group II"

	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

var Difficulties = []string{DifficultyEasy, DifficultyMedium, DifficultyHard}

type Paper struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Group struct {
	Name   string  `json:"name"`
	Papers []Paper `json:"papers"`
}

// Level is one stage of the exam. Foundation lists its papers directly; the
// other levels split them into groups.
type Level struct {
	Name   string  `json:"name"`
	Papers []Paper `json:"papers,omitempty"`
	Groups []Group `json:"groups,omitempty"`
}

// SubjectMatch is a search hit against the catalogue.
type SubjectMatch struct {
	Level string `json:"level"`
	Group string `json:"group,omitempty"`
	Paper Paper  `json:"paper"`
	Rank  int    `json:"rank"`
}
