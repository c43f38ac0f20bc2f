// Package rubric holds the language rubrics used to score projects.
//
// A rubric is plain data: the six category weights plus, per category, a list of
// indicator rules reading evidence keys. Adding a language means adding a
// definition (see definitions/*.yaml), never a new code path.
package rubric

import (
	"math"
	"sort"
	"strings"
)

type Category string

const (
	CodeStructure        Category = "code_structure"
	Testing              Category = "testing"
	Documentation        Category = "documentation"
	DependencyManagement Category = "dependency_management"
	ProjectOrganization  Category = "project_organization"
	BestPractices        Category = "best_practices"
)

// Categories lists every category in canonical order. Anything that iterates
// categories for output uses this order so results stay deterministic.
var Categories = []Category{
	CodeStructure,
	Testing,
	Documentation,
	DependencyManagement,
	ProjectOrganization,
	BestPractices,
}

// Valid reports whether c is one of the six known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Weights map[Category]float64

// CanonicalWeights is the global weighting scheme shared by all rubrics.
func CanonicalWeights() Weights {
	return Weights{
		CodeStructure:        0.25,
		Testing:              0.20,
		Documentation:        0.15,
		DependencyManagement: 0.15,
		ProjectOrganization:  0.15,
		BestPractices:        0.10,
	}
}

// WeightTolerance is the allowed drift when comparing weights or their sum.
const WeightTolerance = 1e-6

func (w Weights) Sum() float64 {
	total := 0.0
	for _, c := range Categories {
		total += w[c]
	}
	return total
}

func (w Weights) equal(other Weights) bool {
	for _, c := range Categories {
		if math.Abs(w[c]-other[c]) > WeightTolerance {
			return false
		}
	}
	return true
}

type RuleKind string

const (
	// KindFlag awards full points when any key is truthy.
	KindFlag RuleKind = "flag"
	// KindCount scales points by min(value, cap)/cap.
	KindCount RuleKind = "count"
	// KindMatch awards full points when any key's value is one of Values.
	KindMatch RuleKind = "match"
)

type Rule struct {
	Key         string   `yaml:"key,omitempty" json:"key,omitempty"`
	Keys        []string `yaml:"keys,omitempty" json:"keys,omitempty"`
	Kind        RuleKind `yaml:"kind,omitempty" json:"kind"`
	Points      float64  `yaml:"points" json:"points"`
	Cap         float64  `yaml:"cap,omitempty" json:"cap,omitempty"`
	Values      []string `yaml:"values,omitempty" json:"values,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

// EvidenceKeys returns every evidence key the rule reads, Key first.
func (r Rule) EvidenceKeys() []string {
	keys := make([]string, 0, len(r.Keys)+1)
	if r.Key != "" {
		keys = append(keys, r.Key)
	}
	for _, k := range r.Keys {
		if k != "" && k != r.Key {
			keys = append(keys, k)
		}
	}
	return keys
}

// EffectiveKind defaults an empty kind to KindFlag.
func (r Rule) EffectiveKind() RuleKind {
	if r.Kind == "" {
		return KindFlag
	}
	return r.Kind
}

type Definition struct {
	Language        string              `yaml:"language" json:"language"`
	Aliases         []string            `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Version         string              `yaml:"version" json:"version"`
	Description     string              `yaml:"description,omitempty" json:"description,omitempty"`
	Weights         Weights             `yaml:"weights,omitempty" json:"weights"`
	OverrideWeights bool                `yaml:"override_weights,omitempty" json:"override_weights"`
	Categories      map[Category][]Rule `yaml:"categories" json:"categories"`
}

// EffectiveWeights returns the weights used for aggregation: the rubric's own
// when it overrides them, the canonical ones otherwise.
func (d *Definition) EffectiveWeights() Weights {
	if d.OverrideWeights && len(d.Weights) > 0 {
		out := make(Weights, len(d.Weights))
		for c, w := range d.Weights {
			out[c] = w
		}
		return out
	}
	return CanonicalWeights()
}

// MaxPoints is the sum of all rule points for a category.
func (d *Definition) MaxPoints(c Category) float64 {
	total := 0.0
	for _, r := range d.Categories[c] {
		total += r.Points
	}
	return total
}

// EvidenceKeys lists every evidence key referenced by the rubric, sorted.
func (d *Definition) EvidenceKeys() []string {
	seen := map[string]struct{}{}
	for _, rules := range d.Categories {
		for _, r := range rules {
			for _, k := range r.EvidenceKeys() {
				seen[k] = struct{}{}
			}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot is the serialisable record of the rubric stored alongside each
// evaluation so old scores stay explainable after the rubric changes.
func (d *Definition) Snapshot() map[string]any {
	weights := d.EffectiveWeights()
	w := make(map[string]any, len(Categories))
	maxPoints := make(map[string]any, len(Categories))
	rules := make(map[string]any, len(Categories))
	for _, c := range Categories {
		w[string(c)] = weights[c]
		maxPoints[string(c)] = d.MaxPoints(c)
		list := make([]any, 0, len(d.Categories[c]))
		for _, r := range d.Categories[c] {
			entry := map[string]any{
				"keys":   toAnySlice(r.EvidenceKeys()),
				"kind":   string(r.EffectiveKind()),
				"points": r.Points,
			}
			if r.Cap > 0 {
				entry["cap"] = r.Cap
			}
			if len(r.Values) > 0 {
				entry["values"] = toAnySlice(r.Values)
			}
			list = append(list, entry)
		}
		rules[string(c)] = list
	}
	return map[string]any{
		"language":         d.Language,
		"version":          d.Version,
		"override_weights": d.OverrideWeights,
		"weights":          w,
		"max_points":       maxPoints,
		"rules":            rules,
	}
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// NormalizeLanguage lowercases and trims a language tag.
func NormalizeLanguage(language string) string {
	return strings.ToLower(strings.TrimSpace(language))
}
