package tasks

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeqa/internal/project"
	"codeqa/internal/testutil"
)

var defaultMarkers = []string{"TODO", "FIXME", "HACK", "NOTE"}

func analyze(t *testing.T, files map[string]string, opts Options) *Report {
	t.Helper()
	pc, err := project.Resolve(testutil.WriteTree(t, files), project.Options{IgnoreDirs: []string{"node_modules"}})
	require.NoError(t, err)
	report, err := Analyze(context.Background(), pc, opts)
	require.NoError(t, err)
	return report
}

func TestAnalyze_CountsAndGroups(t *testing.T) {
	report := analyze(t, map[string]string{
		"a.py": "# TODO: fix this\nx = 1\n# FIXME later\n",
	}, Options{Markers: defaultMarkers, Extensions: []string{".py"}})

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, map[string]int{"TODO": 1, "FIXME": 1, "HACK": 0, "NOTE": 0}, report.Counts)
	require.Len(t, report.ByMarker["TODO"], 1)
	assert.Equal(t, 1, report.ByMarker["TODO"][0].Line)
	assert.Equal(t, "# TODO: fix this", report.ByMarker["TODO"][0].Text)
	require.Len(t, report.ByMarker["FIXME"], 1)
	assert.Equal(t, 3, report.ByMarker["FIXME"][0].Line)
	assert.Empty(t, report.ByMarker["HACK"])
	require.Len(t, report.ByFile, 1)
	assert.Equal(t, []Hit{
		{File: "a.py", Line: 1, Marker: "TODO", Text: "# TODO: fix this"},
		{File: "a.py", Line: 3, Marker: "FIXME", Text: "# FIXME later"},
	}, report.ByFile["a.py"])
}

func TestAnalyze_TokenBoundary(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"// todo lowercase", 1},
		{"//TODO(alice): tagged", 1},
		{"TODO", 1},
		{"var todoList = []", 0},
		{"MY_TODO = 1", 0},
		{"notes about things", 0},
		{"// note: see above", 1},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			report := analyze(t, map[string]string{"x.go": tt.line + "\n"},
				Options{Markers: defaultMarkers, Extensions: []string{".go"}})
			assert.Equal(t, tt.want, report.Total)
		})
	}
}

func TestAnalyze_FiltersAndIgnores(t *testing.T) {
	report := analyze(t, map[string]string{
		"src/main.go":       "// TODO one\n// HACK two\n",
		"README.md":         "TODO not scanned\n",
		"node_modules/a.js": "// TODO ignored\n",
		"img.png":           "TODO\x00",
	}, Options{Markers: defaultMarkers, Extensions: []string{".go", ".js", ".png"}})

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, "src/main.go", report.Hits[0].File)
}

func TestAnalyze_CustomMarkers(t *testing.T) {
	report := analyze(t, map[string]string{
		"a.ts": "// XXX: dangerous\n// TODO ignored\n// xxx again\n",
	}, Options{Markers: []string{"XXX"}, Extensions: []string{".ts"}})

	assert.Equal(t, map[string]int{"XXX": 2}, report.Counts)
}

func TestCompile_EmptyMarker(t *testing.T) {
	_, err := Compile([]string{"TODO", " "})
	assert.Error(t, err)
}

func TestAnalyze_ClipsOnRuneBoundary(t *testing.T) {
	report := analyze(t, map[string]string{
		"a.py": "# TODO " + strings.Repeat("é", 150) + "\n",
	}, Options{Markers: defaultMarkers, Extensions: []string{".py"}})

	require.Len(t, report.Hits, 1)
	text := report.Hits[0].Text
	assert.True(t, utf8.ValidString(text))
	assert.True(t, strings.HasSuffix(text, "..."))
	assert.LessOrEqual(t, len(text), maxTextLen+len("..."))
}
