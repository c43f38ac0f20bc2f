package evidence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fadilmartias/project-evaluator/internal/model"
)

func code(name string, lines int64) model.ManifestFile {
	return model.ManifestFile{Filename: name, LineCount: lines, SizeBytes: lines * 40, Role: model.FileRoleCode}
}

func other(name string) model.ManifestFile {
	return model.ManifestFile{Filename: name, Role: model.FileRoleOther}
}

func pythonManifest() *model.Manifest {
	return &model.Manifest{
		ProjectID: uuid.New(),
		Languages: []string{"python"},
		Files: []model.ManifestFile{
			code("myproj/src/app/__init__.py", 1),
			code("myproj/src/app/main.py", 120),
			code("myproj/src/app/models.py", 80),
			code("myproj/tests/test_models.py", 40),
			code("myproj/tests/test_main.py", 30),
			{Filename: "myproj/README.md", Role: model.FileRoleContent},
			{Filename: "myproj/docs/index.md", Role: model.FileRoleContent},
			{Filename: "myproj/logo.png", Role: model.FileRoleImage},
			other("myproj/requirements.txt"),
			other("myproj/poetry.lock"),
			other("myproj/.gitignore"),
			other("myproj/.github/workflows/ci.yml"),
			other("myproj/ruff.toml"),
			other("myproj/Dockerfile"),
		},
	}
}

func TestCollect_PythonProject(t *testing.T) {
	ev := NewCollector().Collect(pythonManifest(), "python")

	assert.Equal(t, "python", ev["language"])
	assert.Equal(t, 5.0, ev["py_files"])
	assert.Equal(t, 5.0, ev["source_files"])
	assert.Equal(t, 2.0, ev["test_files"])
	assert.Equal(t, 201.0, ev["source_lines"])
	assert.Equal(t, 14.0, ev["total_files"])
	assert.Equal(t, 5.0, ev["code_files"])
	assert.Equal(t, 2.0, ev["content_files"])
	assert.Equal(t, 1.0, ev["image_files"])

	for _, key := range []string{
		"has_main", "has_tests", "tests_layout", "src_layout", "has_readme", "has_docs_dir",
		"has_dependency_manifest", "has_lock_file", "has_gitignore", "has_ci_config",
		"has_linter_config", "has_dockerfile",
	} {
		assert.True(t, ev.Truthy(key), key)
	}
	for _, key := range []string{"has_license", "has_changelog", "has_makefile", "has_editorconfig"} {
		assert.Equal(t, false, ev[key], key)
	}
}

func TestCollect_GoConventions(t *testing.T) {
	m := &model.Manifest{
		Languages: []string{"go"},
		Files: []model.ManifestFile{
			code("cmd/server/main.go", 50),
			code("internal/store/store.go", 200),
			code("internal/store/store_test.go", 90),
			other("go.mod"),
			other("go.sum"),
			other(".golangci.yml"),
			other("Makefile"),
			{Filename: "LICENSE", Role: model.FileRoleContent},
		},
	}

	ev := NewCollector().Collect(m, "go")
	assert.Equal(t, 3.0, ev["go_files"])
	assert.Equal(t, 1.0, ev["test_files"])
	assert.Equal(t, true, ev["tests_layout"], "go tests live beside the code")
	assert.Equal(t, true, ev["src_layout"])
	assert.Equal(t, true, ev["has_main"])
	assert.Equal(t, true, ev["has_dependency_manifest"])
	assert.Equal(t, true, ev["has_lock_file"])
	assert.Equal(t, true, ev["has_linter_config"])
	assert.Equal(t, true, ev["has_makefile"])
	assert.Equal(t, true, ev["has_license"])
}

func TestCollect_LanguageMarkers(t *testing.T) {
	m := &model.Manifest{Files: []model.ManifestFile{
		code("src/index.ts", 10),
		code("src/__tests__/index.test.ts", 10),
		other("tsconfig.json"),
		other("package.json"),
	}}

	ev := NewCollector().Collect(m, "typescript")
	assert.Equal(t, true, ev["has_tsconfig"])
	assert.Equal(t, true, ev["tests_layout"])
	assert.Equal(t, 2.0, ev["ts_files"])
	assert.Equal(t, false, ev["has_lock_file"])

	java := NewCollector().Collect(&model.Manifest{Files: []model.ManifestFile{
		code("src/main/java/com/acme/DemoApplication.java", 30),
		code("src/test/java/com/acme/DemoApplicationTests.java", 30),
		other("mvnw"),
		other("pom.xml"),
	}}, "java")
	assert.Equal(t, true, java["has_build_wrapper"])
	assert.Equal(t, true, java["has_main"])
	assert.Equal(t, true, java["src_layout"])
	assert.Equal(t, true, java["tests_layout"])
}

func TestCollect_MissingFieldsDoNotPanic(t *testing.T) {
	c := NewCollector()

	assert.NotPanics(t, func() {
		ev := c.Collect(nil, "python")
		assert.Equal(t, "python", ev["language"])
	})

	assert.NotPanics(t, func() {
		ev := c.Collect(&model.Manifest{Files: []model.ManifestFile{{}, {Filename: "/"}}}, "rust")
		assert.Equal(t, 0.0, ev["rs_files"])
		assert.Equal(t, false, ev["has_tests"])
	})
}

func TestCollect_UnknownLanguageGetsGenericKeys(t *testing.T) {
	ev := NewCollector().Collect(pythonManifest(), "cobol")
	assert.Equal(t, true, ev["has_readme"])
	_, hasSource := ev["source_files"]
	assert.False(t, hasSource)
	assert.False(t, NewCollector().SupportsLanguage("cobol"))
}

func TestCollect_FlagsRaiseButNeverLower(t *testing.T) {
	m := pythonManifest()
	m.Flags = map[string]any{
		"has_readme":     false,
		"uses_oop":       true,
		"test_files":     1,
		"has_docstrings": "yes",
		"ignored":        []string{"not", "scalar"},
	}
	m.LanguageFlags = map[string]map[string]any{
		"py":         {"test_framework": "pytest", "requirements_pinned": true},
		"javascript": {"test_framework": "jest"},
	}

	c := NewCollector(WithCanonicalizer(func(s string) string {
		if normalize(s) == "py" {
			return "python"
		}
		return normalize(s)
	}))
	ev := c.Collect(m, "python")

	assert.Equal(t, true, ev["has_readme"], "a false flag cannot hide a README that exists")
	assert.Equal(t, 2.0, ev["test_files"], "a smaller count cannot lower the derived one")
	assert.Equal(t, true, ev["uses_oop"])
	assert.Equal(t, "yes", ev["has_docstrings"])
	assert.Equal(t, "pytest", ev["test_framework"])
	assert.Equal(t, true, ev["requirements_pinned"])
	_, ok := ev["ignored"]
	assert.False(t, ok)
}

func TestCollect_IsDeterministic(t *testing.T) {
	c := NewCollector()
	m := pythonManifest()
	first := c.Collect(m, "python")
	for i := 0; i < 5; i++ {
		require.Equal(t, first, c.Collect(m, "python"))
	}
}

func TestCollect_AliasAndCanonicalFlagsMergeInFixedOrder(t *testing.T) {
	c := NewCollector(WithCanonicalizer(func(s string) string {
		switch normalize(s) {
		case "py", "python3":
			return "python"
		}
		return normalize(s)
	}))
	m := &model.Manifest{LanguageFlags: map[string]map[string]any{
		"py":      {"test_framework": "behave", "linter": "flake8"},
		"python":  {"test_framework": "pytest"},
		"python3": {"test_framework": "nose", "linter": "ruff", "formatter": "black"},
	}}

	for i := 0; i < 200; i++ {
		ev := c.Collect(m, "python")
		require.Equal(t, "pytest", ev["test_framework"], "the canonical entry wins")
		require.Equal(t, "flake8", ev["linter"], "aliases follow in sorted order")
		require.Equal(t, "black", ev["formatter"])
	}
}

func TestStripCommonRoot_KeepsLayoutDirectories(t *testing.T) {
	entries := stripCommonRoot([]model.ManifestFile{{Filename: "src/a.py"}, {Filename: "src/b.py"}})
	assert.Equal(t, "src/a.py", entries[0].path)

	entries = stripCommonRoot([]model.ManifestFile{{Filename: "Proj/README.md"}, {Filename: "proj/src/a.py"}})
	assert.Equal(t, "readme.md", entries[0].path)
	assert.Equal(t, "src/a.py", entries[1].path)
}

func TestEvidenceAccessors(t *testing.T) {
	ev := FromMap(map[string]any{
		"b":      true,
		"n":      3,
		"s":      "pytest",
		"no":     "false",
		"numstr": "4.5",
		"slice":  []int{1},
	})

	assert.True(t, ev.Truthy("b"))
	assert.True(t, ev.Truthy("n"))
	assert.True(t, ev.Truthy("s"))
	assert.False(t, ev.Truthy("no"))
	assert.False(t, ev.Truthy("missing"))
	assert.Equal(t, 3.0, ev.Number("n"))
	assert.Equal(t, 1.0, ev.Number("b"))
	assert.Equal(t, 4.5, ev.Number("numstr"))
	assert.Equal(t, 0.0, ev.Number("s"))
	assert.Equal(t, "pytest", ev.String("s"))
	assert.Equal(t, "3", ev.String("n"))
	assert.Equal(t, []string{"b", "n", "no", "numstr", "s"}, ev.Keys())
}

func TestEvidenceBool(t *testing.T) {
	ev := Evidence{"b": true, "n": 1.0}
	v, ok := ev.Bool("b")
	assert.True(t, ok)
	assert.True(t, v)
	_, ok = ev.Bool("n")
	assert.False(t, ok)
}
