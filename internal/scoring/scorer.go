// Package scoring converts evidence into category scores, an overall score
// and a letter grade. Everything here is pure and deterministic.
package scoring

import (
	"errors"
	"math"
	"strings"

	"github.com/fadilmartias/project-evaluator/internal/evidence"
	"github.com/fadilmartias/project-evaluator/internal/rubric"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

var ErrNoRubric = errors.New("scoring: nil rubric")

// CategoryScores holds one [0,100] score per category.
type CategoryScores map[rubric.Category]float64

// Map converts the scores to string keys for serialisation.
func (s CategoryScores) Map() map[string]any {
	out := make(map[string]any, len(rubric.Categories))
	for _, c := range rubric.Categories {
		out[string(c)] = s[c]
	}
	return out
}

type Result struct {
	Categories CategoryScores
	Overall    float64
	Grade      Grade
}

// Evaluate scores evidence against a rubric.
func Evaluate(ev evidence.Evidence, def *rubric.Definition) (Result, error) {
	if def == nil {
		return Result{}, ErrNoRubric
	}
	scores := ScoreCategories(ev, def)
	overall := Overall(scores, def.EffectiveWeights())
	return Result{
		Categories: scores,
		Overall:    overall,
		Grade:      GradeFor(overall),
	}, nil
}

// ScoreCategories applies each category's indicator rules. A category score
// is the share of attainable points that the evidence earns, so adding
// evidence can only keep or raise it.
func ScoreCategories(ev evidence.Evidence, def *rubric.Definition) CategoryScores {
	scores := make(CategoryScores, len(rubric.Categories))
	for _, c := range rubric.Categories {
		maxPoints := def.MaxPoints(c)
		if maxPoints <= 0 {
			scores[c] = MinScore
			continue
		}
		earned := 0.0
		for _, rule := range def.Categories[c] {
			earned += RulePoints(ev, rule)
		}
		scores[c] = round2(clamp(earned * MaxScore / maxPoints))
	}
	return scores
}

// RulePoints returns the points a single rule contributes for the evidence.
func RulePoints(ev evidence.Evidence, rule rubric.Rule) float64 {
	keys := rule.EvidenceKeys()
	switch rule.EffectiveKind() {
	case rubric.KindCount:
		best := 0.0
		for _, k := range keys {
			if n := ev.Number(k); n > best {
				best = n
			}
		}
		if rule.Cap <= 0 {
			return 0
		}
		return rule.Points * math.Min(best, rule.Cap) / rule.Cap
	case rubric.KindMatch:
		for _, k := range keys {
			v := strings.ToLower(strings.TrimSpace(ev.String(k)))
			if v == "" {
				continue
			}
			for _, want := range rule.Values {
				if v == strings.ToLower(want) {
					return rule.Points
				}
			}
		}
		return 0
	default:
		for _, k := range keys {
			if ev.Truthy(k) {
				return rule.Points
			}
		}
		return 0
	}
}

// Overall combines category scores with the given weights. Missing weights
// count as zero.
func Overall(scores CategoryScores, weights rubric.Weights) float64 {
	total := 0.0
	for _, c := range rubric.Categories {
		total += scores[c] * weights[c]
	}
	return round2(clamp(total))
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
