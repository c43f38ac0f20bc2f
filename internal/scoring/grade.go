package scoring

import (
	"sort"

	"github.com/fadilmartias/project-evaluator/internal/rubric"
)

type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Grades lists every grade from best to worst.
var Grades = []Grade{GradeA, GradeB, GradeC, GradeD, GradeF}

// StrengthThreshold splits strengths (>=) from areas for improvement (<).
const StrengthThreshold = 50.0

var gradeThresholds = []struct {
	min   float64
	grade Grade
}{
	{90, GradeA},
	{80, GradeB},
	{70, GradeC},
	{60, GradeD},
}

// GradeFor maps a score to a letter; boundary values take the higher grade.
func GradeFor(score float64) Grade {
	for _, t := range gradeThresholds {
		if score >= t.min {
			return t.grade
		}
	}
	return GradeF
}

type CategoryResult struct {
	Category rubric.Category `json:"category"`
	Score    float64         `json:"score"`
	Grade    Grade           `json:"grade"`
}

// Breakdown lists every category in canonical order, then splits them into
// strengths (descending) and areas for improvement (ascending). Equal scores
// keep canonical order.
func Breakdown(scores CategoryScores) (all, strengths, improvements []CategoryResult) {
	all = make([]CategoryResult, 0, len(rubric.Categories))
	for _, c := range rubric.Categories {
		s := scores[c]
		r := CategoryResult{Category: c, Score: s, Grade: GradeFor(s)}
		all = append(all, r)
		if s >= StrengthThreshold {
			strengths = append(strengths, r)
		} else {
			improvements = append(improvements, r)
		}
	}
	sort.SliceStable(strengths, func(i, j int) bool { return strengths[i].Score > strengths[j].Score })
	sort.SliceStable(improvements, func(i, j int) bool { return improvements[i].Score < improvements[j].Score })
	if strengths == nil {
		strengths = []CategoryResult{}
	}
	if improvements == nil {
		improvements = []CategoryResult{}
	}
	return all, strengths, improvements
}
