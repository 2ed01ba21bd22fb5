// Package dispatch answers free-text questions about a project by picking
// tools through keyword scoring, running them and composing a short answer.
package dispatch

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"codeqa/internal/envelope"
	"codeqa/internal/executor"
)

// Enhancer rewrites a template answer using the tool payloads.
type Enhancer interface {
	Enhance(ctx context.Context, question, draft string, results map[string]*envelope.AnalysisResult) (string, error)
}

// AnswerFunc renders one tool's sentence from its normalized payload.
type AnswerFunc func(toolID string, payload any) string

// Options configures a Dispatcher.
type Options struct {
	Keywords map[string][]string
	// Fallback tools run when no keyword matches. Ids that are not
	// registered are ignored.
	Fallback []string
	// MaxTools caps the number of tools run per question; 0 means no cap.
	MaxTools int
	Answer   AnswerFunc
	Enhancer Enhancer
}

// Dispatcher routes questions to tools.
type Dispatcher struct {
	exec     *executor.Executor
	table    Table
	fallback []string
	maxTools int
	answer   AnswerFunc
	enhancer Enhancer
	logger   *slog.Logger
	clock    func() time.Time
}

// New creates a Dispatcher over exec's registry.
func New(exec *executor.Executor, opts Options, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	answer := opts.Answer
	if answer == nil {
		answer = func(string, any) string { return "" }
	}
	return &Dispatcher{
		exec:     exec,
		table:    NewTable(opts.Keywords),
		fallback: opts.Fallback,
		maxTools: opts.MaxTools,
		answer:   answer,
		enhancer: opts.Enhancer,
		logger:   logger,
		clock:    time.Now,
	}
}

// Score returns the tools matching question, highest score first, ties in
// registration order. It does not apply the fallback or the cap.
func (d *Dispatcher) Score(question string) []envelope.ToolMatch {
	return d.table.rank(d.exec.Registry().IDs(), Tokenize(question))
}

// Select picks the tools to run and reports whether the fallback subset
// was used.
func (d *Dispatcher) Select(question string) ([]envelope.ToolMatch, bool) {
	matches := d.Score(question)
	fallback := false
	if len(matches) == 0 {
		fallback = true
		matches = d.fallbackMatches()
	}
	if d.maxTools > 0 && len(matches) > d.maxTools {
		matches = matches[:d.maxTools]
	}
	return matches, fallback
}

// fallbackMatches lists the registered fallback ids in registration order.
func (d *Dispatcher) fallbackMatches() []envelope.ToolMatch {
	reg := d.exec.Registry()
	ids := make([]string, 0, len(d.fallback))
	seen := map[string]bool{}
	for _, id := range d.fallback {
		if reg.Has(id) && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.SliceStable(ids, func(i, j int) bool { return reg.Order(ids[i]) < reg.Order(ids[j]) })
	out := make([]envelope.ToolMatch, len(ids))
	for i, id := range ids {
		out[i] = envelope.ToolMatch{ID: id}
	}
	return out
}

// Analyze answers question for the project at projectPath. Tool failures
// are reported inside the result; the returned error is non-nil only when
// ctx is done before any tool ran.
func (d *Dispatcher) Analyze(ctx context.Context, question, projectPath string) (*envelope.DispatchResult, error) {
	start := d.clock()
	matches, fallback := d.Select(question)

	res := &envelope.DispatchResult{
		Question:     question,
		ProjectPath:  projectPath,
		MatchedTools: matches,
		Fallback:     fallback,
		Results:      make(map[string]*envelope.AnalysisResult, len(matches)),
		AnswerSource: envelope.AnswerTemplate,
	}

	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			if len(res.Results) == 0 {
				return nil, err
			}
			break
		}
		r, err := d.exec.Execute(ctx, m.ID, nil, projectPath)
		if err != nil {
			// only UNKNOWN_TOOL is returned here
			d.logger.Error("dispatch execution failed", "tool", m.ID, "error", err)
			continue
		}
		res.Results[m.ID] = r
	}

	res.Answer = d.synthesize(res)
	if d.enhancer != nil && len(res.Results) > 0 {
		enhanced, err := d.enhancer.Enhance(ctx, question, res.Answer, res.Results)
		switch {
		case err != nil:
			d.logger.Warn("answer enhancement failed, keeping template answer", "error", err)
		case strings.TrimSpace(enhanced) != "":
			res.Answer = strings.TrimSpace(enhanced)
			res.AnswerSource = envelope.AnswerLLM
		}
	}

	res.ElapsedMs = d.clock().Sub(start).Milliseconds()
	d.logger.Info("question dispatched",
		"tools", strings.Join(res.MatchedIDs(), ","),
		"fallback", fallback,
		"answerSource", res.AnswerSource,
		"elapsedMs", res.ElapsedMs,
	)
	return res, nil
}

// synthesize joins the template sentence of every successful tool in match
// order and closes with a note naming the tools that failed.
func (d *Dispatcher) synthesize(res *envelope.DispatchResult) string {
	var sentences, failed []string
	for _, m := range res.MatchedTools {
		r, ok := res.Results[m.ID]
		if !ok {
			continue
		}
		if !r.OK() {
			failed = append(failed, m.ID)
			continue
		}
		if s := d.answer(m.ID, r.Payload); s != "" {
			sentences = append(sentences, s)
		}
	}

	var b strings.Builder
	if res.Fallback {
		b.WriteString("No specific analysis matched the question, so here is a general overview. ")
	}
	if len(sentences) == 0 && len(failed) == 0 {
		b.WriteString("No analysis produced a result.")
	}
	b.WriteString(strings.Join(sentences, " "))
	if len(failed) > 0 {
		if len(sentences) > 0 {
			b.WriteString(" ")
		}
		b.WriteString("Could not complete: " + strings.Join(failed, ", ") + ".")
	}
	return strings.TrimSpace(b.String())
}
