package deps

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeqa/internal/project"
	"codeqa/internal/testutil"
)

func setup(t *testing.T, files map[string]string) *project.Context {
	t.Helper()
	return setupWith(t, files, project.Options{IgnoreDirs: []string{"node_modules"}})
}

func setupWith(t *testing.T, files map[string]string, opts project.Options) *project.Context {
	t.Helper()
	pc, err := project.Resolve(testutil.WriteTree(t, files), opts)
	require.NoError(t, err)
	return pc
}

func depNames(m Manifest) []string {
	names := make([]string, len(m.Dependencies))
	for i, d := range m.Dependencies {
		names[i] = d.Name
	}
	return names
}

func TestAnalyze_Ecosystems(t *testing.T) {
	pc := setup(t, map[string]string{
		"requirements.txt": "# web\nflask==2.0.1\nrequests>=2.0,<3  # http\n-r other.txt\n\nuvicorn[standard]; python_version>'3.8'\n",
		"package.json":     `{"dependencies":{"react":"^18.0.0","axios":"1.2.0"},"devDependencies":{"jest":"29"}}`,
		"go.mod":           "module example.com/x\n\ngo 1.22\n\nrequire (\n\tgithub.com/spf13/cobra v1.8.0\n\tgolang.org/x/mod v0.20.0 // indirect\n)\n",
		"Cargo.toml":       "[package]\nname = \"x\"\n\n[dependencies]\nserde = { version = \"1.0\", features = [\"derive\"] }\ntokio = \"1\"\n\n[dev-dependencies]\ncriterion = \"0.5\"\n",
		"pubspec.yaml":     "name: app\ndependencies:\n  flutter:\n    sdk: flutter\n  http: ^1.1.0\ndev_dependencies:\n  mockito: ^5.0.0\n",
		"composer.json":    `{"require":{"php":">=8.1","ext-json":"*","laravel/framework":"^10.0"},"require-dev":{"phpunit/phpunit":"^10"}}`,
		"Pipfile":          "[packages]\ndjango = \"*\"\ncelery = {version = \">=5\"}\n\n[dev-packages]\npytest = \"*\"\n",
		"pyproject.toml":   "[project]\nname = \"x\"\ndependencies = [\"httpx>=0.27\", \"pydantic\"]\n\n[project.optional-dependencies]\ntest = [\"pytest\"]\n\n[tool.poetry.dependencies]\npython = \"^3.11\"\n",
		"Gemfile":          "source 'https://rubygems.org'\ngem 'rails', '~> 7.0'\ngroup :development, :test do\n  gem 'rspec-rails'\nend\ngem 'puma'\n",
		"node_modules/left-pad/package.json": `{"dependencies":{"ignored":"1"}}`,
	})

	report, err := Analyze(context.Background(), pc, Options{IncludeDev: true})
	require.NoError(t, err)
	assert.Empty(t, report.Errors)

	byPath := map[string]Manifest{}
	for _, m := range report.Manifests {
		byPath[m.Path] = m
	}
	require.Len(t, byPath, 9, "node_modules manifests must be ignored")

	assert.Equal(t, []string{"flask", "requests", "uvicorn"}, depNames(byPath["requirements.txt"]))
	assert.Equal(t, "==2.0.1", byPath["requirements.txt"].Dependencies[0].Version)
	assert.Equal(t, []string{"axios", "react", "jest"}, depNames(byPath["package.json"]))
	assert.Equal(t, []string{"github.com/spf13/cobra", "golang.org/x/mod"}, depNames(byPath["go.mod"]))
	assert.True(t, byPath["go.mod"].Dependencies[1].Indirect)
	assert.Equal(t, []string{"serde", "tokio", "criterion"}, depNames(byPath["Cargo.toml"]))
	assert.Equal(t, "1.0", byPath["Cargo.toml"].Dependencies[0].Version)
	assert.Equal(t, []string{"http", "mockito"}, depNames(byPath["pubspec.yaml"]))
	assert.Equal(t, []string{"laravel/framework", "phpunit/phpunit"}, depNames(byPath["composer.json"]))
	assert.Equal(t, []string{"celery", "django", "pytest"}, depNames(byPath["Pipfile"]))
	assert.Equal(t, ">=5", byPath["Pipfile"].Dependencies[0].Version)
	assert.Equal(t, []string{"httpx", "pydantic", "pytest"}, depNames(byPath["pyproject.toml"]))
	assert.Equal(t, []string{"puma", "rails", "rspec-rails"}, depNames(byPath["Gemfile"]))
	assert.True(t, byPath["Gemfile"].Dependencies[2].Dev)

	sum := 0
	for _, n := range report.ByEcosystem {
		sum += n
	}
	assert.Equal(t, report.Total, sum)
	// requirements.txt + Pipfile + pyproject.toml
	assert.Equal(t, 9, report.ByEcosystem[Pip])
}

func TestAnalyze_ExcludeDev(t *testing.T) {
	pc := setup(t, map[string]string{
		"package.json": `{"dependencies":{"react":"18"},"devDependencies":{"jest":"29"}}`,
	})
	report, err := Analyze(context.Background(), pc, Options{IncludeDev: false})
	require.NoError(t, err)
	require.Len(t, report.Manifests, 1)
	assert.Equal(t, []string{"react"}, depNames(report.Manifests[0]))
	assert.Equal(t, 1, report.Total)
}

func TestAnalyze_PartialFailure(t *testing.T) {
	pc := setup(t, map[string]string{
		"requirements.txt": "flask\n",
		"web/package.json": `{"dependencies": {`,
		"svc/Cargo.toml":   "[dependencies\nserde = 1",
		"app/pubspec.yaml": "dependencies: [unclosed",
	})

	report, err := Analyze(context.Background(), pc, Options{IncludeDev: true})
	require.NoError(t, err)

	require.Len(t, report.Manifests, 1)
	assert.Equal(t, "requirements.txt", report.Manifests[0].Path)
	assert.Equal(t, 1, report.Total)

	var failed []string
	for _, e := range report.Errors {
		failed = append(failed, e.Path)
		assert.NotEmpty(t, e.Error)
	}
	assert.ElementsMatch(t, []string{"web/package.json", "svc/Cargo.toml", "app/pubspec.yaml"}, failed)
}

func TestAnalyze_Empty(t *testing.T) {
	report, err := Analyze(context.Background(), setup(t, map[string]string{"main.py": "print(1)\n"}), Options{})
	require.NoError(t, err)
	assert.Zero(t, report.Total)
	assert.Empty(t, report.Manifests)
	assert.NotNil(t, report.ByEcosystem)
}

func TestAnalyze_Idempotent(t *testing.T) {
	pc := setup(t, map[string]string{
		"package.json": `{"dependencies":{"b":"1","a":"2","c":"3"}}`,
	})
	first, err := Analyze(context.Background(), pc, Options{IncludeDev: true})
	require.NoError(t, err)
	second, err := Analyze(context.Background(), pc, Options{IncludeDev: true})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRequirementsDevFile(t *testing.T) {
	deps, err := parseRequirements([]byte("pytest\n"), "requirements-dev.txt")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.True(t, deps[0].Dev)
}

func TestAnalyze_ManifestWithoutEntries(t *testing.T) {
	pc := setup(t, map[string]string{
		"package.json":     `{"name":"x"}`,
		"requirements.txt": "# nothing yet\n",
	})
	report, err := Analyze(context.Background(), pc, Options{})
	require.NoError(t, err)
	require.Len(t, report.Manifests, 2)
	for _, m := range report.Manifests {
		assert.NotNil(t, m.Dependencies, m.Path)
		assert.Zero(t, m.Count)
	}

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"dependencies":null`)
}

func TestAnalyze_OversizedManifest(t *testing.T) {
	pc := setupWith(t, map[string]string{
		"requirements.txt":     "flask\n",
		"big/requirements.txt": strings.Repeat("flask\n", 100),
	}, project.Options{MaxFileSizeBytes: 64})

	report, err := Analyze(context.Background(), pc, Options{})
	require.NoError(t, err)
	require.Len(t, report.Manifests, 1)
	assert.Equal(t, "requirements.txt", report.Manifests[0].Path)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "big/requirements.txt", report.Errors[0].Path)
	assert.Contains(t, report.Errors[0].Error, "size limit")
}
