package evidence

import (
	"sort"
	"strings"

	"github.com/fadilmartias/project-evaluator/internal/model"
)

// Collector derives evidence from a manifest. It never touches the
// filesystem: everything it knows comes from the manifest entries and the
// flags the upload pipeline already extracted.
type Collector struct {
	canonical func(string) string
}

type CollectorOption func(*Collector)

// WithCanonicalizer resolves language aliases (for example "py") when
// matching per-language flags in the manifest.
func WithCanonicalizer(fn func(string) string) CollectorOption {
	return func(c *Collector) {
		if fn != nil {
			c.canonical = fn
		}
	}
}

func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{canonical: normalize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SupportsLanguage reports whether the collector has a file profile for the
// language. Languages without one still get the generic keys.
func (c *Collector) SupportsLanguage(language string) bool {
	_, ok := profiles[c.canonical(language)]
	return ok
}

// Collect builds the evidence map for one (manifest, language) pair.
func (c *Collector) Collect(m *model.Manifest, language string) Evidence {
	lang := c.canonical(language)
	ev := Evidence{"language": lang}
	if m == nil {
		return ev
	}

	p, known := profiles[lang]
	files := stripCommonRoot(m.Files)

	var (
		roleCounts  = map[string]float64{}
		sourceFiles float64
		sourceLines float64
		testFiles   float64
		testsInDir  bool
		srcLayout   bool
		hasMain     bool
	)

	for _, f := range files {
		role := f.file.Role
		if role == "" {
			role = model.FileRoleOther
			if known && hasAny(f.file.Ext(), p.extensions) {
				role = model.FileRoleCode
			}
		}
		roleCounts[role]++

		c.collectHygiene(ev, f.path, f.base)

		if !known {
			continue
		}
		if hasAny(f.base, p.manifests) {
			ev["has_dependency_manifest"] = true
		}
		if hasAny(f.base, p.lockFiles) {
			ev["has_lock_file"] = true
		}
		if hasAny(f.base, p.linterConfigs) {
			ev["has_linter_config"] = true
		}
		for key, names := range p.markers {
			if hasAny(f.base, names) {
				ev[key] = true
			}
		}

		if role != model.FileRoleCode || !hasAny(f.file.Ext(), p.extensions) {
			continue
		}
		sourceFiles++

		if isTest, inDir := p.classifyTest(f.path, f.base); isTest {
			testFiles++
			testsInDir = testsInDir || inDir
			continue
		}
		sourceLines += float64(max(f.file.LineCount, 0))
		if hasAny(f.base, p.entrypoints) || hasSuffix(f.base, p.entrypointSuffixes) {
			hasMain = true
		}
		if hasPrefix(f.path, p.sourceDirs) || (hasAny(f.base, p.packageMarkers) && strings.Contains(f.path, "/")) {
			srcLayout = true
		}
	}

	ev["total_files"] = float64(len(files))
	ev["code_files"] = roleCounts[model.FileRoleCode]
	ev["content_files"] = roleCounts[model.FileRoleContent]
	ev["image_files"] = roleCounts[model.FileRoleImage]
	ev["other_files"] = roleCounts[model.FileRoleOther]

	if known {
		ev[p.sourceKey] = sourceFiles
		ev["source_files"] = sourceFiles
		ev["source_lines"] = sourceLines
		ev["test_files"] = testFiles
		ev["has_tests"] = testFiles > 0
		ev["tests_layout"] = testsInDir || (p.testsBesideSource && testFiles > 0)
		ev["src_layout"] = srcLayout
		ev["has_main"] = hasMain
		for _, key := range []string{"has_dependency_manifest", "has_lock_file", "has_linter_config"} {
			if _, ok := ev[key]; !ok {
				ev[key] = false
			}
		}
		for key := range p.markers {
			if _, ok := ev[key]; !ok {
				ev[key] = false
			}
		}
	}
	for _, key := range hygieneKeys {
		if _, ok := ev[key]; !ok {
			ev[key] = false
		}
	}

	c.mergeFlags(ev, m.Flags)
	for _, tag := range c.flagTags(m.LanguageFlags, lang) {
		c.mergeFlags(ev, m.LanguageFlags[tag])
	}
	return ev
}

// flagTags lists the language_flags entries that resolve to lang. The entry
// spelled exactly as the canonical tag comes first, aliases follow in sorted
// order, so the first non-empty string always comes from the same entry.
func (c *Collector) flagTags(all map[string]map[string]any, lang string) []string {
	var tags []string
	for tag := range all {
		if c.canonical(tag) == lang {
			tags = append(tags, tag)
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		if ci, cj := tags[i] == lang, tags[j] == lang; ci != cj {
			return ci
		}
		return tags[i] < tags[j]
	})
	return tags
}

var hygieneKeys = []string{
	"has_readme", "has_docs_dir", "has_license", "has_changelog",
	"has_gitignore", "has_ci_config", "has_dockerfile", "has_makefile", "has_editorconfig",
}

func (c *Collector) collectHygiene(ev Evidence, p, base string) {
	topLevel := !strings.Contains(p, "/")
	switch {
	case topLevel && hasPrefix(base, readmePrefixes):
		ev["has_readme"] = true
	case topLevel && hasPrefix(base, licensePrefixes):
		ev["has_license"] = true
	case topLevel && hasPrefix(base, changelogPrefixes):
		ev["has_changelog"] = true
	case base == ".gitignore":
		ev["has_gitignore"] = true
	case base == ".editorconfig":
		ev["has_editorconfig"] = true
	case hasPrefix(base, dockerPrefixes):
		ev["has_dockerfile"] = true
	case hasAny(base, buildFiles):
		ev["has_makefile"] = true
	}
	if strings.HasPrefix(p, "docs/") || strings.HasPrefix(p, "doc/") {
		ev["has_docs_dir"] = true
	}
	if hasPrefix(p, ciPaths) {
		ev["has_ci_config"] = true
	}
}

func (c *Collector) mergeFlags(ev Evidence, flags map[string]any) {
	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, raw := range keys {
		k := strings.TrimSpace(raw)
		if k == "" || k == "language" {
			continue
		}
		if nv, ok := Normalize(flags[raw]); ok {
			ev.raise(k, nv)
		}
	}
}

// classifyTest reports whether the file is a test and whether it sits in a
// dedicated test directory.
func (p profile) classifyTest(filePath, base string) (isTest, inDir bool) {
	dirs := strings.Split(filePath, "/")
	dirs = dirs[:len(dirs)-1]
	for _, d := range dirs {
		if hasAny(d, p.testDirs) {
			inDir = true
			break
		}
	}
	if inDir {
		return true, true
	}
	return hasPrefix(base, p.testPrefixes) || hasSuffix(base, p.testSuffixes), false
}

// layoutRoots are never stripped: a project made only of src/ files is still
// a src/ layout.
var layoutRoots = map[string]struct{}{
	"src/": {}, "lib/": {}, "cmd/": {}, "internal/": {}, "pkg/": {},
	"test/": {}, "tests/": {}, "docs/": {}, "doc/": {}, ".github/": {},
}

type manifestEntry struct {
	file model.ManifestFile
	path string
	base string
}

// stripCommonRoot drops a single top-level directory shared by every file,
// which is what most ZIP uploads wrap the project in.
func stripCommonRoot(files []model.ManifestFile) []manifestEntry {
	entries := make([]manifestEntry, 0, len(files))
	root := ""
	shared := len(files) > 0
	for i, f := range files {
		p := f.Path()
		entries = append(entries, manifestEntry{file: f, path: p})
		idx := strings.Index(p, "/")
		if idx <= 0 {
			shared = false
			continue
		}
		if i == 0 {
			root = p[:idx+1]
		} else if !strings.HasPrefix(p, root) {
			shared = false
		}
	}
	if _, layout := layoutRoots[root]; layout {
		shared = false
	}
	for i := range entries {
		if shared {
			entries[i].path = strings.TrimPrefix(entries[i].path, root)
		}
		entries[i].base = entries[i].file.Base()
	}
	return entries
}

func normalize(language string) string {
	return strings.ToLower(strings.TrimSpace(language))
}

func hasAny(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func hasPrefix(s string, prefixes []string) bool {
	for _, v := range prefixes {
		if strings.HasPrefix(s, v) {
			return true
		}
	}
	return false
}

func hasSuffix(s string, suffixes []string) bool {
	for _, v := range suffixes {
		if strings.HasSuffix(s, v) {
			return true
		}
	}
	return false
}
