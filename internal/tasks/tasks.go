// Package tasks finds task comments (TODO, FIXME and similar markers) in
// source files.
package tasks

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"codeqa/internal/project"
)

// maxTextLen caps the stored line text.
const maxTextLen = 200

// Hit is one marker occurrence.
type Hit struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Marker string `json:"marker"`
	Text   string `json:"text"`
}

// Report is the task-comments payload.
type Report struct {
	Total    int                 `json:"total"`
	Counts   map[string]int      `json:"counts"`
	ByMarker map[string][]Hit    `json:"by_marker"`
	ByFile   map[string][]Hit    `json:"by_file"`
	Hits     []Hit               `json:"hits"`
	Skipped  int                 `json:"skipped"`
	Errors   []project.ItemError `json:"errors"`
}

// Options controls a scan.
type Options struct {
	Markers    []string
	Extensions []string
}

type matcher struct {
	marker string
	re     *regexp.Regexp
}

// Compile builds the token-boundary matcher for each marker. Markers are
// matched case-insensitively and reported in the case given here.
func Compile(markers []string) ([]matcher, error) {
	seen := map[string]bool{}
	out := make([]matcher, 0, len(markers))
	for _, m := range markers {
		m = strings.TrimSpace(m)
		if m == "" {
			return nil, fmt.Errorf("empty marker")
		}
		key := strings.ToUpper(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		re, err := regexp.Compile(`(?i)(^|[^A-Za-z0-9_])(` + regexp.QuoteMeta(m) + `)([^A-Za-z0-9_]|$)`)
		if err != nil {
			return nil, err
		}
		out = append(out, matcher{marker: m, re: re})
	}
	return out, nil
}

// Analyze scans every file with a configured extension.
func Analyze(ctx context.Context, proj *project.Context, opts Options) (*Report, error) {
	matchers, err := Compile(opts.Markers)
	if err != nil {
		return nil, err
	}
	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}

	report := &Report{
		Counts:   make(map[string]int, len(matchers)),
		ByMarker: make(map[string][]Hit, len(matchers)),
		ByFile:   map[string][]Hit{},
		Hits:     []Hit{},
		Errors:   []project.ItemError{},
	}
	for _, m := range matchers {
		report.Counts[m.marker] = 0
		report.ByMarker[m.marker] = []Hit{}
	}

	walkErrs, err := proj.Walk(ctx, func(f project.File) error {
		if len(exts) > 0 && !exts[strings.ToLower(f.Ext)] {
			return nil
		}
		data, err := proj.ReadText(f)
		if err != nil {
			if project.IsSkip(err) {
				report.Skipped++
			} else {
				report.Errors = append(report.Errors, project.ItemError{Path: f.Rel, Error: err.Error()})
			}
			return nil
		}
		for i, raw := range bytes.Split(data, []byte("\n")) {
			line := string(raw)
			for _, m := range matchers {
				if !m.re.MatchString(line) {
					continue
				}
				report.Hits = append(report.Hits, Hit{
					File:   f.Rel,
					Line:   i + 1,
					Marker: m.marker,
					Text:   clip(strings.TrimSpace(line)),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.Errors = append(report.Errors, walkErrs...)

	sort.SliceStable(report.Hits, func(i, j int) bool {
		a, b := report.Hits[i], report.Hits[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
	for _, h := range report.Hits {
		report.Counts[h.Marker]++
		report.ByMarker[h.Marker] = append(report.ByMarker[h.Marker], h)
		report.ByFile[h.File] = append(report.ByFile[h.File], h)
	}
	report.Total = len(report.Hits)
	return report, nil
}

func clip(s string) string {
	s = strings.TrimRight(s, "\r")
	if len(s) > maxTextLen {
		return project.TruncateText(s, maxTextLen) + "..."
	}
	return s
}
