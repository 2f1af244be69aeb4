package services

import (
	"sort"
	"strings"

	"cavision/models"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

var catalogue = []models.Level{
	{
		Name: models.LevelFoundation,
		Papers: []models.Paper{
			{Value: "Accounting", Label: "Paper 1: Accounting"},
			{Value: "Business Laws", Label: "Paper 2: Business Laws"},
			{Value: "Quantitative Aptitude", Label: "Paper 3: Quantitative Aptitude"},
			{Value: "Business Economics", Label: "Paper 4: Business Economics"},
		},
	},
	{
		Name: models.LevelIntermediate,
		Groups: []models.Group{
			{Name: models.GroupI, Papers: []models.Paper{
				{Value: "Advanced Accounting", Label: "Paper 1: Advanced Accounting"},
				{Value: "Corporate & Other Laws", Label: "Paper 2: Corporate & Other Laws"},
				{Value: "Taxation", Label: "Paper 3: Taxation"},
			}},
			{Name: models.GroupII, Papers: []models.Paper{
				{Value: "Cost & Management Accounting", Label: "Paper 4: Cost & Management Accounting"},
				{Value: "Auditing & Ethics", Label: "Paper 5: Auditing & Ethics"},
				{Value: "Financial Management & Strategic Management", Label: "Paper 6: Financial Management & Strategic Management"},
			}},
		},
	},
	{
		Name: models.LevelFinal,
		Groups: []models.Group{
			{Name: models.GroupI, Papers: []models.Paper{
				{Value: "Financial Reporting", Label: "Paper 1: Financial Reporting"},
				{Value: "Strategic Financial Management", Label: "Paper 2: Strategic Financial Management (SFM)"},
				{Value: "Advanced Auditing & Professional Ethics", Label: "Paper 3: Advanced Auditing & Professional Ethics"},
			}},
			{Name: models.GroupII, Papers: []models.Paper{
				{Value: "Corporate & Economic Laws", Label: "Paper 4: Corporate & Economic Laws"},
				{Value: "Strategic Cost Management & Performance Evaluation", Label: "Paper 5: Strategic Cost Management & Performance Evaluation (SCMP)"},
				{Value: "Integrated Business Solutions", Label: "Paper 6: Integrated Business Solutions"},
			}},
		},
	},
}

// Syllabus returns the exam taxonomy.
func Syllabus() []models.Level {
	return catalogue
}

func findLevel(name string) (models.Level, bool) {
	for _, l := range catalogue {
		if l.Name == name {
			return l, true
		}
	}
	return models.Level{}, false
}

// ValidateSubject checks that subject is a paper of level, and of group when one is given.
// Foundation has no groups.
func ValidateSubject(level, group, subject string) error {
	l, ok := findLevel(level)
	if !ok {
		return invalid("unknown level %q", level)
	}
	if level == models.LevelFoundation {
		if group != "" {
			return invalid("the Foundation level has no groups")
		}
		if hasPaper(l.Papers, subject) {
			return nil
		}
		return invalid("%q is not a Foundation paper", subject)
	}

	for _, g := range l.Groups {
		if group != "" && g.Name != group {
			continue
		}
		if hasPaper(g.Papers, subject) {
			return nil
		}
	}
	if group != "" {
		return invalid("%q is not a paper of %s %s", subject, level, group)
	}
	return invalid("%q is not a %s paper", subject, level)
}

func hasPaper(papers []models.Paper, value string) bool {
	for _, p := range papers {
		if p.Value == value {
			return true
		}
	}
	return false
}

// SearchSubjects ranks catalogue papers against a free-text query, closest first.
func SearchSubjects(query string, limit int) []models.SubjectMatch {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.SubjectMatch{}
	}

	var entries []models.SubjectMatch
	var targets []string
	for _, l := range catalogue {
		for _, p := range l.Papers {
			entries = append(entries, models.SubjectMatch{Level: l.Name, Paper: p})
			targets = append(targets, p.Label)
		}
		for _, g := range l.Groups {
			for _, p := range g.Papers {
				entries = append(entries, models.SubjectMatch{Level: l.Name, Group: g.Name, Paper: p})
				targets = append(targets, p.Label)
			}
		}
	}

	ranks := fuzzy.RankFindFold(query, targets)
	sort.Stable(ranks)

	out := make([]models.SubjectMatch, 0, len(ranks))
	for _, r := range ranks {
		m := entries[r.OriginalIndex]
		m.Rank = r.Distance
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
