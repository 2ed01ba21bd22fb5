package tools

import (
	"fmt"
	"sort"
	"strings"
)

// Template renders one sentence group from a normalized payload.
type Template func(payload map[string]any) string

// Templates maps tool ids to their answer templates.
var Templates = map[string]Template{
	Dependencies: dependenciesAnswer,
	Metrics:      metricsAnswer,
	Security:     securityAnswer,
	GitHistory:   gitAnswer,
	TaskComments: tasksAnswer,
	Architecture: architectureAnswer,
}

// Answer renders the sentence for toolID. Unknown tools and payloads that
// are not objects produce "".
func Answer(toolID string, payload any) string {
	tmpl, ok := Templates[toolID]
	if !ok {
		return ""
	}
	m, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	return tmpl(m)
}

func dependenciesAnswer(p map[string]any) string {
	manifests := list(p, "manifests")
	if len(manifests) == 0 {
		return "No dependency manifests were found."
	}
	s := fmt.Sprintf("Found %d dependencies across %d manifest%s (%s).",
		num(p, "total"), len(manifests), plural(len(manifests)), breakdown(obj(p, "by_ecosystem")))
	var names []string
	for _, m := range manifests {
		for _, d := range list(asObj(m), "dependencies") {
			if n := str(asObj(d), "name"); n != "" {
				names = append(names, n)
			}
		}
	}
	if len(names) > 0 {
		s += " Including: " + joinLimited(names, 8) + "."
	}
	if errs := list(p, "errors"); len(errs) > 0 {
		s += fmt.Sprintf(" %d manifest%s could not be parsed.", len(errs), plural(len(errs)))
	}
	return s
}

func metricsAnswer(p map[string]any) string {
	files := num(p, "total_files")
	if files == 0 {
		return "No source files were found."
	}
	s := fmt.Sprintf("The project has %d files with %d lines in total.", files, num(p, "total_lines"))
	exts := obj(p, "by_extension")
	if len(exts) > 0 {
		counts := make(map[string]any, len(exts))
		for ext, v := range exts {
			counts[ext] = num(asObj(v), "lines")
		}
		s += " Lines by extension: " + breakdownLimited(counts, 5) + "."
	}
	if largest := list(p, "largest_files"); len(largest) > 0 {
		top := asObj(largest[0])
		s += fmt.Sprintf(" The largest file is %s (%d lines).", str(top, "path"), num(top, "lines"))
	}
	if c := obj(p, "complexity"); c != nil {
		s += fmt.Sprintf(" %d functions with a total cyclomatic complexity of %d.", num(c, "functions"), num(c, "cyclomatic"))
	}
	return s
}

func securityAnswer(p map[string]any) string {
	total := num(p, "total")
	if total == 0 {
		return "No potential security issues matched the configured rules."
	}
	s := fmt.Sprintf("Found %d potential security issue%s (%s).", total, plural(total), breakdown(obj(p, "severity_breakdown")))
	if findings := list(p, "findings"); len(findings) > 0 {
		f := asObj(findings[0])
		s += fmt.Sprintf(" Most severe: %s at %s:%d.", str(f, "message"), str(f, "file"), num(f, "line"))
	}
	return s
}

func gitAnswer(p map[string]any) string {
	total := num(p, "total_commits")
	if total == 0 {
		return "The git repository has no commits yet."
	}
	authors := obj(p, "authors")
	s := fmt.Sprintf("The repository has %d commit%s by %d author%s.", total, plural(total), len(authors), plural(len(authors)))
	if top := list(p, "top_authors"); len(top) > 0 {
		a := asObj(top[0])
		s += fmt.Sprintf(" Most active: %s (%d commits).", str(a, "name"), num(a, "commits"))
	}
	if recent := list(p, "recent_commits"); len(recent) > 0 {
		c := asObj(recent[0])
		s += fmt.Sprintf(" Latest commit: %q by %s.", str(c, "message"), str(c, "author"))
	}
	return s
}

func tasksAnswer(p map[string]any) string {
	total := num(p, "total")
	if total == 0 {
		return "No task comments were found."
	}
	byFile := obj(p, "by_file")
	s := fmt.Sprintf("Found %d task comment%s (%s) in %d file%s.",
		total, plural(total), breakdown(obj(p, "counts")), len(byFile), plural(len(byFile)))
	if len(byFile) > 1 {
		busiest, most := "", 0
		for file, hits := range byFile {
			n := len(asList(hits))
			if n > most || n == most && file < busiest {
				busiest, most = file, n
			}
		}
		s += fmt.Sprintf(" Most are in %s (%d).", busiest, most)
	}
	return s
}

func architectureAnswer(p map[string]any) string {
	var parts []string
	if lang := str(p, "primary_language"); lang != "" && lang != "unknown" {
		parts = append(parts, fmt.Sprintf("The primary language appears to be %s.", lang))
	}
	if eps := list(p, "entry_points"); len(eps) > 0 {
		var names []string
		for _, e := range eps {
			names = append(names, str(asObj(e), "path"))
		}
		parts = append(parts, "Entry points: "+joinLimited(names, 5)+".")
	}
	routes, tests := len(list(p, "routes")), len(list(p, "test_files"))
	parts = append(parts, fmt.Sprintf("Found %d route declaration%s and %d test file%s.", routes, plural(routes), tests, plural(tests)))
	if cfgs := list(p, "config_files"); len(cfgs) > 0 {
		parts = append(parts, fmt.Sprintf("%d config file%s.", len(cfgs), plural(len(cfgs))))
	}
	return strings.Join(parts, " ")
}

func num(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func list(m map[string]any, key string) []any {
	l, _ := m[key].([]any)
	return l
}

func obj(m map[string]any, key string) map[string]any {
	o, _ := m[key].(map[string]any)
	return o
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func asObj(v any) map[string]any {
	o, _ := v.(map[string]any)
	return o
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// breakdown renders "k: n" pairs, largest first, ties by key. Zero entries
// are dropped.
func breakdown(m map[string]any) string {
	return breakdownLimited(m, 0)
}

func breakdownLimited(m map[string]any, limit int) string {
	type kv struct {
		k string
		n int
	}
	var pairs []kv
	for k := range m {
		if n := num(m, k); n > 0 {
			pairs = append(pairs, kv{k, n})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].n != pairs[j].n {
			return pairs[i].n > pairs[j].n
		}
		return pairs[i].k < pairs[j].k
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = fmt.Sprintf("%s: %d", p.k, p.n)
	}
	return strings.Join(out, ", ")
}

func joinLimited(items []string, limit int) string {
	if len(items) <= limit {
		return strings.Join(items, ", ")
	}
	return strings.Join(items[:limit], ", ") + fmt.Sprintf(" and %d more", len(items)-limit)
}
