package services

import (
	"errors"
	"testing"
)

func TestValidateSubject(t *testing.T) {
	valid := [][3]string{
		{"Foundation", "", "Accounting"},
		{"Intermediate", "Group I", "Taxation"},
		{"Intermediate", "", "Auditing & Ethics"},
		{"Final", "Group II", "Integrated Business Solutions"},
	}
	for _, c := range valid {
		if err := ValidateSubject(c[0], c[1], c[2]); err != nil {
			t.Errorf("ValidateSubject%v: %v", c, err)
		}
	}

	invalid := [][3]string{
		{"Foundation", "Group I", "Accounting"},
		{"Foundation", "", "Taxation"},
		{"Intermediate", "Group II", "Taxation"},
		{"Final", "Group III", "Financial Reporting"},
		{"Masters", "", "Accounting"},
	}
	for _, c := range invalid {
		if err := ValidateSubject(c[0], c[1], c[2]); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("ValidateSubject%v = %v, want ErrInvalidRequest", c, err)
		}
	}
}

func TestSearchSubjects(t *testing.T) {
	got := SearchSubjects("audit", 10)
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(got), got)
	}
	for _, m := range got {
		if m.Group == "" {
			t.Errorf("%s should belong to a group", m.Paper.Value)
		}
	}
	if got[0].Rank > got[1].Rank {
		t.Fatalf("matches not ordered by rank: %+v", got)
	}

	if got := SearchSubjects("accounting", 1); len(got) != 1 {
		t.Fatalf("limit ignored: %+v", got)
	}
	if got := SearchSubjects("  ", 5); len(got) != 0 {
		t.Fatalf("blank query matched %+v", got)
	}
}
