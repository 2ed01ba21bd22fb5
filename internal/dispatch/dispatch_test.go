package dispatch

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeqa/internal/config"
	"codeqa/internal/envelope"
	"codeqa/internal/executor"
	"codeqa/internal/project"
	"codeqa/internal/registry"
	"codeqa/internal/slogutil"
	"codeqa/internal/testutil"
	"codeqa/internal/tools"
)

func newDispatcher(t *testing.T, mutate func(*Options)) *Dispatcher {
	t.Helper()
	cfg := config.DefaultConfig()
	reg := registry.New()
	require.NoError(t, tools.Register(reg, cfg, nil))
	ex := executor.New(reg, project.Options{IgnoreDirs: cfg.Walk.IgnoreDirs, SkipHidden: true}, slogutil.NewDiscardLogger())
	opts := Options{
		Keywords: tools.Keywords(cfg.Dispatch),
		Fallback: cfg.Dispatch.Fallback,
		Answer:   tools.Answer,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return New(ex, opts, slogutil.NewDiscardLogger())
}

func TestTokenize(t *testing.T) {
	got := Tokenize("What DEPENDENCIES does this use? (npm/pip) x2")
	for _, tok := range []string{"what", "dependencies", "does", "this", "use", "npm", "pip", "x2"} {
		assert.True(t, got[tok], tok)
	}
	assert.Len(t, got, 8)
	assert.Empty(t, Tokenize("  ?!  "))
}

func TestScore(t *testing.T) {
	d := newDispatcher(t, nil)

	tests := []struct {
		question string
		first    string
	}{
		{"what dependencies does this use?", tools.Dependencies},
		{"Are there any security vulnerabilities?", tools.Security},
		{"who is the most active author in the git history", tools.GitHistory},
		{"list the TODO and FIXME comments", tools.TaskComments},
		{"what is the API structure and where are the endpoints", tools.Architecture},
		{"how many lines of code, and what's the complexity?", tools.Metrics},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			matches := d.Score(tt.question)
			require.NotEmpty(t, matches)
			assert.Equal(t, tt.first, matches[0].ID)
			assert.GreaterOrEqual(t, matches[0].Score, 1)
		})
	}
}

func TestScore_TiesKeepRegistrationOrder(t *testing.T) {
	d := newDispatcher(t, nil)
	// one keyword each for security, tasks and deps
	matches := d.Score("todo security packages")
	require.Len(t, matches, 3)
	assert.Equal(t, []string{tools.Dependencies, tools.Security, tools.TaskComments},
		(&envelope.DispatchResult{MatchedTools: matches}).MatchedIDs())
}

func TestScore_HigherScoreFirst(t *testing.T) {
	d := newDispatcher(t, nil)
	matches := d.Score("packages and git commit history authors")
	require.Len(t, matches, 2)
	assert.Equal(t, tools.GitHistory, matches[0].ID)
	assert.Equal(t, 4, matches[0].Score)
	assert.Equal(t, tools.Dependencies, matches[1].ID)
}

func TestSelect_Fallback(t *testing.T) {
	d := newDispatcher(t, nil)
	for _, q := range []string{"", "purple elephants dancing", "???"} {
		matches, fallback := d.Select(q)
		assert.True(t, fallback, q)
		assert.Equal(t, []envelope.ToolMatch{{ID: tools.Metrics}, {ID: tools.Architecture}}, matches, q)
	}
}

func TestSelect_FallbackIgnoresUnknownAndOrders(t *testing.T) {
	d := newDispatcher(t, func(o *Options) {
		o.Fallback = []string{tools.Architecture, "nope", tools.Dependencies, tools.Architecture}
	})
	matches, fallback := d.Select("zzz")
	assert.True(t, fallback)
	assert.Equal(t, []envelope.ToolMatch{{ID: tools.Dependencies}, {ID: tools.Architecture}}, matches)
}

func TestSelect_MaxTools(t *testing.T) {
	d := newDispatcher(t, func(o *Options) { o.MaxTools = 1 })
	matches, _ := d.Select("todo security packages")
	assert.Equal(t, []envelope.ToolMatch{{ID: tools.Dependencies, Score: 1}}, matches)
}

func TestSelect_KeywordOverride(t *testing.T) {
	d := newDispatcher(t, func(o *Options) {
		o.Keywords[tools.Security] = []string{"CVE"}
	})
	matches, fallback := d.Select("any cve here?")
	assert.False(t, fallback)
	assert.Equal(t, tools.Security, matches[0].ID)
	_, fallback = d.Select("security")
	assert.True(t, fallback)
}

func TestAnalyze_Dependencies(t *testing.T) {
	d := newDispatcher(t, nil)
	root := testutil.SampleProject(t)

	res, err := d.Analyze(context.Background(), "what dependencies does this use?", root)
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, []string{tools.Dependencies}, res.MatchedIDs())
	require.Contains(t, res.Results, tools.Dependencies)
	assert.True(t, res.Results[tools.Dependencies].OK())
	assert.Equal(t, envelope.AnswerTemplate, res.AnswerSource)
	assert.Contains(t, res.Answer, "Found 4 dependencies")
	assert.Contains(t, res.Answer, "flask")
}

func TestAnalyze_FallbackAnswer(t *testing.T) {
	d := newDispatcher(t, nil)
	res, err := d.Analyze(context.Background(), "tell me something", testutil.SampleProject(t))
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Len(t, res.Results, 2)
	assert.Contains(t, res.Answer, "general overview")
	assert.Contains(t, res.Answer, "lines in total")
}

func TestAnalyze_FailedToolsAreNamed(t *testing.T) {
	testutil.RequireGit(t)
	d := newDispatcher(t, nil)
	root := testutil.SampleProject(t)
	t.Setenv("GIT_CEILING_DIRECTORIES", parentOf(root))

	res, err := d.Analyze(context.Background(), "show git commit history and todo notes", root)
	require.NoError(t, err)
	require.Contains(t, res.Results, tools.GitHistory)
	assert.False(t, res.Results[tools.GitHistory].OK())
	assert.Contains(t, res.Answer, "Could not complete: "+tools.GitHistory+".")
	assert.Contains(t, res.Answer, "task comment")
}

func TestAnalyze_InvalidPath(t *testing.T) {
	d := newDispatcher(t, nil)
	res, err := d.Analyze(context.Background(), "dependencies", "/definitely/not/here")
	require.NoError(t, err)
	assert.Equal(t, envelope.StatusError, res.Results[tools.Dependencies].Status)
	assert.Equal(t, "Could not complete: "+tools.Dependencies+".", res.Answer)
}

func TestAnalyze_CanceledContext(t *testing.T) {
	d := newDispatcher(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Analyze(ctx, "dependencies", t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

type stubEnhancer struct {
	answer string
	err    error
	draft  string
}

func (s *stubEnhancer) Enhance(_ context.Context, _ string, draft string, _ map[string]*envelope.AnalysisResult) (string, error) {
	s.draft = draft
	return s.answer, s.err
}

func TestAnalyze_Enhancer(t *testing.T) {
	root := testutil.SampleProject(t)

	ok := &stubEnhancer{answer: "  Rewritten.  "}
	d := newDispatcher(t, func(o *Options) { o.Enhancer = ok })
	res, err := d.Analyze(context.Background(), "todo", root)
	require.NoError(t, err)
	assert.Equal(t, "Rewritten.", res.Answer)
	assert.Equal(t, envelope.AnswerLLM, res.AnswerSource)
	assert.Contains(t, ok.draft, "task comment")

	failing := &stubEnhancer{err: stderrors.New("rate limited")}
	d = newDispatcher(t, func(o *Options) { o.Enhancer = failing })
	res, err = d.Analyze(context.Background(), "todo", root)
	require.NoError(t, err)
	assert.Equal(t, envelope.AnswerTemplate, res.AnswerSource)
	assert.Equal(t, failing.draft, res.Answer)
}

func parentOf(p string) string {
	return filepath.Dir(p)
}
