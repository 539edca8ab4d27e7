package compliance

import "sort"

// Priority ranks a recommendation
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Framework identifies a regulatory framework scored by this engine
type Framework string

const (
	FrameworkCSRD     Framework = "csrd"
	FrameworkESRS     Framework = "esrs"
	FrameworkISO14064 Framework = "iso14064"
	FrameworkISO50001 Framework = "iso50001"
	FrameworkGerman   Framework = "german"
)

// Level is a qualitative compliance band derived from a score
type Level string

const (
	LevelCompliant              Level = "compliant"
	LevelSubstantiallyCompliant Level = "substantially_compliant"
	LevelPartiallyCompliant     Level = "partially_compliant"
	LevelNonCompliant           Level = "non_compliant"
)

// LevelFor maps a 0-100 score onto a compliance level
func LevelFor(score float64) Level {
	switch {
	case score >= 90:
		return LevelCompliant
	case score >= 70:
		return LevelSubstantiallyCompliant
	case score >= 40:
		return LevelPartiallyCompliant
	default:
		return LevelNonCompliant
	}
}

// Criterion is one presence/existence check inside a section checklist
type Criterion struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Clause      string   `json:"clause"`
	Met         bool     `json:"met"`
	Priority    Priority `json:"priority"`
	Action      string   `json:"action,omitempty"`
}

// Section is a scored group of criteria
type Section struct {
	Key         string      `json:"key"`
	Name        string      `json:"name"`
	Clause      string      `json:"clause,omitempty"`
	Score       float64     `json:"score"`
	Criteria    []Criterion `json:"criteria,omitempty"`
	Placeholder bool        `json:"placeholder,omitempty"`
}

// Recommendation is the user-facing channel for every failed check
type Recommendation struct {
	Framework Framework `json:"framework"`
	Reference string    `json:"reference"`
	Title     string    `json:"title"`
	Action    string    `json:"action"`
	Priority  Priority  `json:"priority"`
}

// NewSection scores a checklist section
func NewSection(key, name, clause string, criteria []Criterion) Section {
	return Section{
		Key:      key,
		Name:     name,
		Clause:   clause,
		Score:    ChecklistScore(criteria),
		Criteria: criteria,
	}
}

// Recommendations emits one recommendation per unmet criterion
func (s Section) Recommendations(framework Framework) []Recommendation {
	var recs []Recommendation
	for _, c := range s.Criteria {
		if c.Met {
			continue
		}
		action := c.Action
		if action == "" {
			action = c.Description
		}
		recs = append(recs, Recommendation{
			Framework: framework,
			Reference: c.Clause,
			Title:     c.Description,
			Action:    action,
			Priority:  c.Priority,
		})
	}
	return recs
}

// SectionScores extracts the scores of a list of sections in order
func SectionScores(sections []Section) []float64 {
	scores := make([]float64, len(sections))
	for i, s := range sections {
		scores[i] = s.Score
	}
	return scores
}

var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// SortRecommendations orders recommendations from critical to low, keeping the input order within a priority
func SortRecommendations(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
	})
}
