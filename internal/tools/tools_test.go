package tools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeqa/internal/config"
	"codeqa/internal/envelope"
	"codeqa/internal/errors"
	"codeqa/internal/executor"
	"codeqa/internal/project"
	"codeqa/internal/registry"
	"codeqa/internal/slogutil"
	"codeqa/internal/testutil"
)

func newExecutor(t *testing.T) *executor.Executor {
	t.Helper()
	cfg := config.DefaultConfig()
	reg := registry.New()
	require.NoError(t, Register(reg, cfg, nil))
	walk := project.Options{IgnoreDirs: cfg.Walk.IgnoreDirs, SkipHidden: cfg.Walk.SkipHidden, MaxFileSizeBytes: cfg.Walk.MaxFileSizeBytes}
	return executor.New(reg, walk, slogutil.NewDiscardLogger())
}

func TestRegister_Order(t *testing.T) {
	reg := newExecutor(t).Registry()
	assert.Equal(t, []string{Dependencies, Metrics, Security, GitHistory, TaskComments, Architecture}, reg.IDs())
	for _, d := range reg.List() {
		assert.Contains(t, DefaultKeywords, d.ID)
		assert.Contains(t, Templates, d.ID)
	}
	arch, err := reg.Get(Architecture)
	require.NoError(t, err)
	assert.True(t, arch.Descriptor.Advisory)
}

func TestRegister_Twice(t *testing.T) {
	cfg := config.DefaultConfig()
	reg := registry.New()
	require.NoError(t, Register(reg, cfg, nil))
	err := Register(reg, cfg, nil)
	assert.Equal(t, errors.DuplicateTool, errors.CodeOf(err))
}

func TestRegister_BadRule(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Security.Rules = append(cfg.Security.Rules, config.SecurityRule{ID: "x", Pattern: "(", Severity: "low"})
	err := Register(registry.New(), cfg, nil)
	assert.Equal(t, errors.ParameterError, errors.CodeOf(err))
}

func TestExecute_SampleProject(t *testing.T) {
	ex := newExecutor(t)
	root := testutil.SampleProject(t)

	tests := []struct {
		id     string
		params map[string]any
		check  func(t *testing.T, payload map[string]any)
	}{
		{Dependencies, nil, func(t *testing.T, p map[string]any) {
			assert.EqualValues(t, 4, p["total"])
		}},
		{Dependencies, map[string]any{"include_dev": false}, func(t *testing.T, p map[string]any) {
			assert.EqualValues(t, 3, p["total"])
		}},
		{Metrics, map[string]any{"top_n": 2}, func(t *testing.T, p map[string]any) {
			assert.Len(t, p["largest_files"], 2)
		}},
		{Security, map[string]any{"min_severity": "high"}, func(t *testing.T, p map[string]any) {
			assert.EqualValues(t, 1, p["total"])
		}},
		{TaskComments, nil, func(t *testing.T, p map[string]any) {
			assert.Equal(t, map[string]any{"TODO": 1.0, "FIXME": 1.0, "HACK": 0.0, "NOTE": 0.0}, p["counts"])
		}},
		{Architecture, nil, func(t *testing.T, p map[string]any) {
			assert.Equal(t, true, p["advisory"])
		}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			res, err := ex.Execute(context.Background(), tt.id, tt.params, root)
			require.NoError(t, err)
			require.True(t, res.OK(), "%+v", res.Error)
			payload, ok := res.Payload.(map[string]any)
			require.True(t, ok)
			tt.check(t, payload)
			assert.NotEmpty(t, Answer(tt.id, res.Payload))
		})
	}
}

func TestExecute_ParameterErrors(t *testing.T) {
	ex := newExecutor(t)
	root := t.TempDir()

	for name, tc := range map[string]struct {
		id     string
		params map[string]any
	}{
		"unknown key":    {Metrics, map[string]any{"nope": 1}},
		"wrong type":     {Metrics, map[string]any{"top_n": "ten"}},
		"below minimum":  {Metrics, map[string]any{"top_n": 0}},
		"bad severity":   {Security, map[string]any{"min_severity": "urgent"}},
		"empty marker":   {TaskComments, map[string]any{"markers": []any{"TODO", ""}}},
		"non-string arr": {TaskComments, map[string]any{"markers": []any{1}}},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := ex.Execute(context.Background(), tc.id, tc.params, root)
			require.NoError(t, err)
			require.Equal(t, envelope.StatusError, res.Status)
			assert.Equal(t, errors.ParameterError, res.Error.Kind)
		})
	}
}

func TestExecute_GitOnPlainDirectory(t *testing.T) {
	testutil.RequireGit(t)
	root := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(root))
	res, err := newExecutor(t).Execute(context.Background(), GitHistory, nil, root)
	require.NoError(t, err)
	require.Equal(t, envelope.StatusError, res.Status)
	assert.Equal(t, errors.NotAGitRepo, res.Error.Kind)
}

func TestExecute_Idempotent(t *testing.T) {
	ex := newExecutor(t)
	root := testutil.SampleProject(t)
	for _, id := range []string{Dependencies, Metrics, Security, TaskComments, Architecture} {
		a, err := ex.Execute(context.Background(), id, nil, root)
		require.NoError(t, err)
		b, err := ex.Execute(context.Background(), id, nil, root)
		require.NoError(t, err)
		assert.Equal(t, testutil.StripVolatile(t, a), testutil.StripVolatile(t, b), id)
	}
}

func TestAnswer_Templates(t *testing.T) {
	tests := []struct {
		id      string
		payload map[string]any
		want    string
	}{
		{TaskComments, map[string]any{"total": 2.0, "counts": map[string]any{"TODO": 1.0, "FIXME": 1.0, "NOTE": 0.0}, "by_file": map[string]any{"a.py": []any{map[string]any{}, map[string]any{}}}},
			"Found 2 task comments (FIXME: 1, TODO: 1) in 1 file."},
		{TaskComments, map[string]any{"total": 3.0, "counts": map[string]any{"TODO": 3.0}, "by_file": map[string]any{
			"b.go": []any{map[string]any{}, map[string]any{}},
			"a.go": []any{map[string]any{}},
		}}, "Found 3 task comments (TODO: 3) in 2 files. Most are in b.go (2)."},
		{TaskComments, map[string]any{"total": 0.0}, "No task comments were found."},
		{Security, map[string]any{"total": 0.0}, "No potential security issues matched the configured rules."},
		{GitHistory, map[string]any{"total_commits": 0.0}, "The git repository has no commits yet."},
		{Dependencies, map[string]any{"manifests": []any{}}, "No dependency manifests were found."},
		{Metrics, map[string]any{"total_files": 3.0, "total_lines": 10.0}, "The project has 3 files with 10 lines in total."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Answer(tt.id, tt.payload))
	}
	assert.Empty(t, Answer("nope", map[string]any{}))
	assert.Empty(t, Answer(Metrics, "not an object"))
}

func TestKeywords_Override(t *testing.T) {
	kw := Keywords(config.DispatchConfig{Keywords: map[string][]string{Security: {"cve"}}})
	assert.Equal(t, []string{"cve"}, kw[Security])
	assert.Equal(t, DefaultKeywords[Metrics], kw[Metrics])
	kw[Metrics][0] = "mutated"
	assert.NotEqual(t, "mutated", DefaultKeywords[Metrics][0])
}
