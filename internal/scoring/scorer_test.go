package scoring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fadilmartias/project-evaluator/internal/evidence"
	"github.com/fadilmartias/project-evaluator/internal/rubric"
)

func loadRubric(t *testing.T, language string) *rubric.Definition {
	t.Helper()
	reg, err := rubric.LoadDefault()
	require.NoError(t, err)
	def, ok := reg.Lookup(language)
	require.True(t, ok, "rubric %s", language)
	return def
}

func wellKeptPythonEvidence() evidence.Evidence {
	return evidence.FromMap(map[string]any{
		"py_files":            15,
		"has_main":            true,
		"uses_oop":            true,
		"has_tests":           true,
		"test_framework":      "pytest",
		"has_readme":          true,
		"has_docstrings":      true,
		"requirements_pinned": true,
		"src_layout":          true,
		"tests_layout":        true,
		"has_gitignore":       true,
		"has_ci_config":       true,
	})
}

func TestEvaluate_WellKeptPythonProject(t *testing.T) {
	def := loadRubric(t, "python")

	res, err := Evaluate(wellKeptPythonEvidence(), def)
	require.NoError(t, err)

	want := map[rubric.Category]float64{
		rubric.CodeStructure:        95,
		rubric.Testing:              85,
		rubric.Documentation:        90,
		rubric.DependencyManagement: 85,
		rubric.ProjectOrganization:  90,
		rubric.BestPractices:        80,
	}
	for c, score := range want {
		assert.InDelta(t, score, res.Categories[c], 0.001, "category %s", c)
	}
	assert.InDelta(t, 88.5, res.Overall, 0.001)
	assert.Equal(t, GradeB, res.Grade)
}

func TestEvaluate_NilRubric(t *testing.T) {
	_, err := Evaluate(evidence.Evidence{}, nil)
	assert.ErrorIs(t, err, ErrNoRubric)
}

func TestEvaluate_EmptyEvidenceScoresZero(t *testing.T) {
	res, err := Evaluate(evidence.Evidence{}, loadRubric(t, "go"))
	require.NoError(t, err)
	for _, c := range rubric.Categories {
		assert.Equal(t, 0.0, res.Categories[c])
	}
	assert.Equal(t, 0.0, res.Overall)
	assert.Equal(t, GradeF, res.Grade)
}

func TestEvaluate_Idempotent(t *testing.T) {
	def := loadRubric(t, "python")
	ev := wellKeptPythonEvidence()

	first, err := Evaluate(ev, def)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Evaluate(ev, def)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRulePoints(t *testing.T) {
	ev := evidence.FromMap(map[string]any{
		"files":     5,
		"many":      50,
		"negative":  -3,
		"framework": "PyTest",
		"flag":      true,
	})

	tests := []struct {
		name string
		rule rubric.Rule
		want float64
	}{
		{"count scales", rubric.Rule{Key: "files", Kind: rubric.KindCount, Cap: 10, Points: 20}, 10},
		{"count caps", rubric.Rule{Key: "many", Kind: rubric.KindCount, Cap: 10, Points: 20}, 20},
		{"count ignores negatives", rubric.Rule{Key: "negative", Kind: rubric.KindCount, Cap: 10, Points: 20}, 0},
		{"count takes best key", rubric.Rule{Keys: []string{"files", "many"}, Kind: rubric.KindCount, Cap: 100, Points: 10}, 5},
		{"match is case-insensitive", rubric.Rule{Key: "framework", Kind: rubric.KindMatch, Values: []string{"pytest"}, Points: 7}, 7},
		{"match misses", rubric.Rule{Key: "framework", Kind: rubric.KindMatch, Values: []string{"unittest"}, Points: 7}, 0},
		{"flag", rubric.Rule{Key: "flag", Points: 3}, 3},
		{"flag any of", rubric.Rule{Keys: []string{"missing", "flag"}, Points: 3}, 3},
		{"flag missing", rubric.Rule{Key: "missing", Points: 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RulePoints(ev, tt.rule), 1e-9)
		})
	}
}

func TestScoreCategories_Bounded(t *testing.T) {
	reg, err := rubric.LoadDefault()
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(42))

	for _, def := range reg.Definitions() {
		for i := 0; i < 200; i++ {
			ev := randomEvidence(rng, def)
			res, err := Evaluate(ev, def)
			require.NoError(t, err)
			for _, c := range rubric.Categories {
				s := res.Categories[c]
				require.True(t, s >= 0 && s <= 100, "%s %s = %v", def.Language, c, s)
			}
			require.True(t, res.Overall >= 0 && res.Overall <= 100)
		}
	}
}

func TestScoreCategories_MonotonicInEvidence(t *testing.T) {
	reg, err := rubric.LoadDefault()
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(7))

	for _, def := range reg.Definitions() {
		for i := 0; i < 100; i++ {
			base := randomEvidence(rng, def)
			before := ScoreCategories(base, def)

			for _, key := range def.EvidenceKeys() {
				for _, boosted := range boost(base, key, def) {
					after := ScoreCategories(boosted, def)
					for _, c := range rubric.Categories {
						require.GreaterOrEqual(t, after[c], before[c],
							"%s: raising %s lowered %s", def.Language, key, c)
					}
				}
			}
		}
	}
}

func TestOverall_CanonicalWeights(t *testing.T) {
	w := rubric.CanonicalWeights()
	all := CategoryScores{}
	for _, c := range rubric.Categories {
		all[c] = 100
	}
	assert.InDelta(t, 100.0, Overall(all, w), 1e-9)
	assert.Equal(t, 0.0, Overall(CategoryScores{}, w))
	assert.InDelta(t, 25.0, Overall(CategoryScores{rubric.CodeStructure: 100}, w), 1e-9)
	assert.InDelta(t, 10.0, Overall(CategoryScores{rubric.BestPractices: 100}, w), 1e-9)
}

// randomEvidence fills a random subset of the rubric's keys.
func randomEvidence(rng *rand.Rand, def *rubric.Definition) evidence.Evidence {
	ev := evidence.Evidence{}
	for _, rules := range orderedRules(def) {
		for _, r := range rules {
			for _, k := range r.EvidenceKeys() {
				if rng.Intn(2) == 0 {
					continue
				}
				switch r.EffectiveKind() {
				case rubric.KindCount:
					ev[k] = float64(rng.Intn(30))
				case rubric.KindMatch:
					ev[k] = r.Values[rng.Intn(len(r.Values))]
				default:
					ev[k] = rng.Intn(3) > 0
				}
			}
		}
	}
	return ev
}

// boost returns variants of ev with key made "more positive".
func boost(ev evidence.Evidence, key string, def *rubric.Definition) []evidence.Evidence {
	var out []evidence.Evidence
	for _, rules := range orderedRules(def) {
		for _, r := range rules {
			for _, k := range r.EvidenceKeys() {
				if k != key {
					continue
				}
				next := ev.Clone()
				switch r.EffectiveKind() {
				case rubric.KindCount:
					next[k] = ev.Number(k) + 1
				case rubric.KindMatch:
					if ev.String(k) != "" {
						continue
					}
					next[k] = r.Values[0]
				default:
					if _, isNum := ev[k].(float64); isNum {
						next[k] = ev.Number(k) + 1
					} else {
						next[k] = true
					}
				}
				out = append(out, next)
			}
		}
	}
	return out
}

func orderedRules(def *rubric.Definition) [][]rubric.Rule {
	out := make([][]rubric.Rule, 0, len(rubric.Categories))
	for _, c := range rubric.Categories {
		out = append(out, def.Categories[c])
	}
	return out
}
