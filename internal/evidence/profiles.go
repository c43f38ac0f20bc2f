package evidence

// profile describes how a language shows up in a file listing.
type profile struct {
	sourceKey          string
	extensions         []string
	entrypoints        []string
	entrypointSuffixes []string
	testPrefixes       []string
	testSuffixes       []string
	testDirs           []string
	testsBesideSource  bool
	sourceDirs         []string
	packageMarkers     []string
	manifests          []string
	lockFiles          []string
	linterConfigs      []string
	markers            map[string][]string
}

var profiles = map[string]profile{
	"python": {
		sourceKey:      "py_files",
		extensions:     []string{".py", ".pyw"},
		entrypoints:    []string{"main.py", "__main__.py", "app.py", "manage.py", "cli.py", "run.py", "wsgi.py"},
		testPrefixes:   []string{"test_"},
		testSuffixes:   []string{"_test.py"},
		testDirs:       []string{"tests", "test"},
		sourceDirs:     []string{"src/"},
		packageMarkers: []string{"__init__.py"},
		manifests:      []string{"requirements.txt", "pyproject.toml", "setup.py", "pipfile", "setup.cfg", "environment.yml"},
		lockFiles:      []string{"poetry.lock", "pipfile.lock", "uv.lock", "pdm.lock"},
		linterConfigs:  []string{".flake8", ".pylintrc", "pylintrc", "ruff.toml", ".ruff.toml", "mypy.ini", ".mypy.ini", "tox.ini", ".pre-commit-config.yaml"},
	},
	"go": {
		sourceKey:         "go_files",
		extensions:        []string{".go"},
		entrypoints:       []string{"main.go"},
		testSuffixes:      []string{"_test.go"},
		testsBesideSource: true,
		sourceDirs:        []string{"cmd/", "internal/", "pkg/"},
		manifests:         []string{"go.mod"},
		lockFiles:         []string{"go.sum"},
		linterConfigs:     []string{".golangci.yml", ".golangci.yaml", ".golangci.toml", "staticcheck.conf"},
	},
	"javascript": {
		sourceKey:     "js_files",
		extensions:    []string{".js", ".jsx", ".mjs", ".cjs"},
		entrypoints:   []string{"index.js", "main.js", "server.js", "app.js", "index.mjs", "index.jsx"},
		testSuffixes:  []string{".test.js", ".spec.js", ".test.jsx", ".spec.jsx", ".test.mjs", ".test.cjs"},
		testDirs:      []string{"__tests__", "test", "tests"},
		sourceDirs:    []string{"src/", "lib/"},
		manifests:     []string{"package.json"},
		lockFiles:     []string{"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "npm-shrinkwrap.json", "bun.lockb"},
		linterConfigs: []string{".eslintrc", ".eslintrc.js", ".eslintrc.cjs", ".eslintrc.json", ".eslintrc.yml", "eslint.config.js", "eslint.config.mjs", ".prettierrc", ".prettierrc.json", "prettier.config.js"},
	},
	"typescript": {
		sourceKey:     "ts_files",
		extensions:    []string{".ts", ".tsx", ".mts", ".cts"},
		entrypoints:   []string{"index.ts", "main.ts", "server.ts", "app.ts", "index.tsx"},
		testSuffixes:  []string{".test.ts", ".spec.ts", ".test.tsx", ".spec.tsx"},
		testDirs:      []string{"__tests__", "test", "tests"},
		sourceDirs:    []string{"src/", "lib/"},
		manifests:     []string{"package.json"},
		lockFiles:     []string{"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "npm-shrinkwrap.json", "bun.lockb"},
		linterConfigs: []string{".eslintrc", ".eslintrc.js", ".eslintrc.cjs", ".eslintrc.json", "eslint.config.js", "eslint.config.mjs", ".prettierrc", "biome.json"},
		markers: map[string][]string{
			"has_tsconfig": {"tsconfig.json"},
		},
	},
	"java": {
		sourceKey:          "java_files",
		extensions:         []string{".java"},
		entrypoints:        []string{"main.java", "app.java"},
		entrypointSuffixes: []string{"application.java"},
		testSuffixes:       []string{"test.java", "tests.java"},
		testDirs:           []string{"test"},
		sourceDirs:         []string{"src/main/java/"},
		manifests:          []string{"pom.xml", "build.gradle", "build.gradle.kts"},
		lockFiles:          []string{"gradle.lockfile"},
		linterConfigs:      []string{"checkstyle.xml", "pmd.xml", "spotbugs-exclude.xml", "ruleset.xml"},
		markers: map[string][]string{
			"has_build_wrapper": {"mvnw", "gradlew", "mvnw.cmd", "gradlew.bat"},
		},
	},
	"rust": {
		sourceKey:     "rs_files",
		extensions:    []string{".rs"},
		entrypoints:   []string{"main.rs", "lib.rs"},
		testDirs:      []string{"tests"},
		sourceDirs:    []string{"src/"},
		manifests:     []string{"cargo.toml"},
		lockFiles:     []string{"cargo.lock"},
		linterConfigs: []string{"rustfmt.toml", ".rustfmt.toml", "clippy.toml", ".clippy.toml"},
	},
}

var (
	readmePrefixes    = []string{"readme"}
	licensePrefixes   = []string{"license", "licence", "copying"}
	changelogPrefixes = []string{"changelog", "changes", "history.md", "release_notes", "releases.md"}
	ciPaths           = []string{".github/workflows/", ".circleci/", ".gitlab-ci.yml", ".travis.yml", "jenkinsfile", "azure-pipelines.yml", "bitbucket-pipelines.yml", ".drone.yml", "appveyor.yml"}
	dockerPrefixes    = []string{"dockerfile", "docker-compose", "compose.yaml", "compose.yml", "containerfile"}
	buildFiles        = []string{"makefile", "justfile", "taskfile.yml", "taskfile.yaml", "gnumakefile"}
)
