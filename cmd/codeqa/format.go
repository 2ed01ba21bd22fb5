package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"codeqa/internal/envelope"
	"codeqa/internal/registry"
	"codeqa/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatHuman, "":
		return FormatHuman, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// writeOutput renders v as a schema-versioned JSON envelope or as text.
func writeOutput(w io.Writer, format OutputFormat, v interface{}) error {
	if format == FormatJSON {
		data, err := json.MarshalIndent(envelope.Wrap(v), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	text, err := formatHuman(v)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

// formatHuman formats the response in human-readable format
func formatHuman(v interface{}) (string, error) {
	switch r := v.(type) {
	case []registry.ToolDescriptor:
		return formatToolsHuman(r), nil
	case *envelope.AnalysisResult:
		return formatResultHuman(r)
	case *envelope.DispatchResult:
		return formatDispatchHuman(r), nil
	case []storage.Run:
		return formatRunsHuman(r), nil
	case []storage.Question:
		return formatQuestionsHuman(r), nil
	default:
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to render output: %w", err)
		}
		return string(data), nil
	}
}

func formatToolsHuman(descs []registry.ToolDescriptor) string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tPARAMETERS\tDESCRIPTION")
	for _, d := range descs {
		params := make([]string, 0, len(d.Parameters))
		for _, p := range d.Parameters {
			params = append(params, fmt.Sprintf("%s:%s", p.Name, p.Type))
		}
		desc := d.Description
		if d.Advisory {
			desc += " (advisory)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Kind, strings.Join(params, ","), desc)
	}
	_ = tw.Flush()
	return b.String()
}

func formatResultHuman(r *envelope.AnalysisResult) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s (%dms)\n", r.ToolID, r.Status, r.ElapsedMs)
	if r.Meta != nil && r.Meta.Advisory {
		b.WriteString("Advisory: results are heuristic.\n")
	}
	if r.Error != nil {
		writeErrorDetail(&b, r.Error)
		return b.String(), nil
	}
	b.WriteString(strings.Repeat("-", 60) + "\n")
	data, err := yaml.Marshal(r.Payload)
	if err != nil {
		return "", fmt.Errorf("failed to render payload: %w", err)
	}
	b.Write(data)
	return b.String(), nil
}

func formatDispatchHuman(r *envelope.DispatchResult) string {
	var b strings.Builder
	b.WriteString(r.Answer + "\n\n")

	names := make([]string, len(r.MatchedTools))
	for i, m := range r.MatchedTools {
		names[i] = fmt.Sprintf("%s (score %d)", m.ID, m.Score)
	}
	label := "Tools"
	if r.Fallback {
		label = "Tools (fallback)"
	}
	fmt.Fprintf(&b, "%s: %s\n", label, strings.Join(names, ", "))

	failed := make([]string, 0)
	for id, res := range r.Results {
		if !res.OK() {
			failed = append(failed, id)
		}
	}
	sort.Strings(failed)
	for _, id := range failed {
		fmt.Fprintf(&b, "  %s: [%s] %s\n", id, r.Results[id].Error.Kind, r.Results[id].Error.Message)
	}
	fmt.Fprintf(&b, "Answer source: %s, %dms\n", r.AnswerSource, r.ElapsedMs)
	return b.String()
}

func formatRunsHuman(runs []storage.Run) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tTOOL\tSTATUS\tMS\tPROJECT\tID")
	for _, r := range runs {
		status := string(r.Status)
		if r.ErrorKind != "" {
			status += " " + r.ErrorKind
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.ToolID, status, r.ElapsedMs, r.ProjectPath, r.ID)
	}
	_ = tw.Flush()
	return b.String()
}

func formatQuestionsHuman(qs []storage.Question) string {
	if len(qs) == 0 {
		return "No questions recorded.\n"
	}
	var b strings.Builder
	for _, q := range qs {
		fmt.Fprintf(&b, "%s  %q\n", q.AskedAt.Local().Format("2006-01-02 15:04:05"), q.Question)
		fmt.Fprintf(&b, "  tools: %s\n", strings.Join(q.MatchedTools, ", "))
		fmt.Fprintf(&b, "  answer: %s\n", q.Answer)
	}
	return b.String()
}

func writeErrorDetail(b *strings.Builder, d *envelope.ErrorDetail) {
	fmt.Fprintf(b, "Error [%s]: %s\n", d.Kind, d.Message)
	for _, fix := range d.SuggestedFixes {
		if fix.Command != "" {
			fmt.Fprintf(b, "  fix: %s (%s)\n", fix.Description, fix.Command)
		} else {
			fmt.Fprintf(b, "  fix: %s\n", fix.Description)
		}
	}
}
