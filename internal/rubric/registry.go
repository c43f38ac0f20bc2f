package rubric

import (
	"maps"
	"math"
	"slices"
	"sort"
	"sync"
)

// Registry maps language tags (and their aliases) to rubric definitions.
// Build it once at startup and pass it to whoever needs it.
type Registry struct {
	mu      sync.RWMutex
	defs    map[string]*Definition
	aliases map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		defs:    map[string]*Definition{},
		aliases: map[string]string{},
	}
}

// Register validates def and adds it, replacing any definition for the same
// language. An invalid definition leaves the registry untouched.
func (r *Registry) Register(def Definition) error {
	def = def.clone()
	def.Language = NormalizeLanguage(def.Language)
	if err := Validate(&def); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.aliases[def.Language]; ok && owner != def.Language {
		return configErrorf(def.Language, "language is already an alias of %q", owner)
	}
	for i, alias := range def.Aliases {
		alias = NormalizeLanguage(alias)
		def.Aliases[i] = alias
		if owner, ok := r.aliases[alias]; ok && owner != def.Language {
			return configErrorf(def.Language, "alias %q already used by %q", alias, owner)
		}
		if _, ok := r.defs[alias]; ok && alias != def.Language {
			return configErrorf(def.Language, "alias %q collides with a registered language", alias)
		}
	}

	if old, ok := r.defs[def.Language]; ok {
		for _, alias := range old.Aliases {
			delete(r.aliases, alias)
		}
	}
	stored := def
	r.defs[def.Language] = &stored
	for _, alias := range def.Aliases {
		r.aliases[alias] = def.Language
	}
	return nil
}

// clone detaches def from the caller's slices and maps.
func (d Definition) clone() Definition {
	d.Aliases = slices.Clone(d.Aliases)
	d.Weights = maps.Clone(d.Weights)
	if d.Categories != nil {
		cats := make(map[Category][]Rule, len(d.Categories))
		for c, rules := range d.Categories {
			cats[c] = slices.Clone(rules)
		}
		d.Categories = cats
	}
	return d
}

// Lookup returns the rubric for language. A miss is not an error: callers
// treat it as "skip".
func (r *Registry) Lookup(language string) (*Definition, bool) {
	key := NormalizeLanguage(language)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if def, ok := r.defs[key]; ok {
		return def, true
	}
	if canonical, ok := r.aliases[key]; ok {
		def, ok := r.defs[canonical]
		return def, ok
	}
	return nil, false
}

// Canonical resolves an alias to its language tag, or returns the normalized
// input when nothing is registered for it.
func (r *Registry) Canonical(language string) string {
	if def, ok := r.Lookup(language); ok {
		return def.Language
	}
	return NormalizeLanguage(language)
}

// Languages returns the registered language tags, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.defs))
	for lang := range r.defs {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Definitions returns every registered definition ordered by language.
func (r *Registry) Definitions() []*Definition {
	langs := r.Languages()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Definition, 0, len(langs))
	for _, lang := range langs {
		out = append(out, r.defs[lang])
	}
	return out
}

// Validate checks the structural and weighting invariants of a definition.
func Validate(def *Definition) error {
	lang := def.Language
	if lang == "" {
		return configErrorf(lang, "language is required")
	}

	for c := range def.Categories {
		if !c.Valid() {
			return configErrorf(lang, "unknown category %q", c)
		}
	}
	for _, c := range Categories {
		rules := def.Categories[c]
		if len(rules) == 0 {
			return configErrorf(lang, "category %s has no rules", c)
		}
		for i, rule := range rules {
			if err := validateRule(lang, c, i, rule); err != nil {
				return err
			}
		}
	}

	return validateWeights(def)
}

func validateRule(lang string, c Category, i int, rule Rule) error {
	if len(rule.EvidenceKeys()) == 0 {
		return configErrorf(lang, "%s rule %d reads no evidence key", c, i)
	}
	if rule.Points <= 0 || math.IsNaN(rule.Points) || math.IsInf(rule.Points, 0) {
		return configErrorf(lang, "%s rule %d must award positive points", c, i)
	}
	switch rule.EffectiveKind() {
	case KindFlag:
	case KindCount:
		if rule.Cap <= 0 || math.IsInf(rule.Cap, 0) || math.IsNaN(rule.Cap) {
			return configErrorf(lang, "%s count rule %d needs a positive cap", c, i)
		}
	case KindMatch:
		if len(rule.Values) == 0 {
			return configErrorf(lang, "%s match rule %d needs values", c, i)
		}
	default:
		return configErrorf(lang, "%s rule %d has unknown kind %q", c, i, rule.Kind)
	}
	return nil
}

func validateWeights(def *Definition) error {
	lang := def.Language
	if len(def.Weights) == 0 {
		if def.OverrideWeights {
			return configErrorf(lang, "override_weights set without weights")
		}
		return nil
	}

	for c, w := range def.Weights {
		if !c.Valid() {
			return configErrorf(lang, "weight for unknown category %q", c)
		}
		if w < 0 || w > 1 || math.IsNaN(w) {
			return configErrorf(lang, "weight for %s out of range: %v", c, w)
		}
	}
	if sum := def.Weights.Sum(); math.Abs(sum-1.0) > WeightTolerance {
		return configErrorf(lang, "category weights sum to %.6f, want 1.0", sum)
	}
	if !def.OverrideWeights && !def.Weights.equal(CanonicalWeights()) {
		return configErrorf(lang, "category weights differ from the canonical weights; set override_weights to use them")
	}
	return nil
}
