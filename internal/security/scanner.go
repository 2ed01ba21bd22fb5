package security

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"codeqa/internal/project"
)

// suppressMarker on a line silences every rule for that line.
const suppressMarker = "codeqa:ignore"

// Scan runs every rule over every text file whose extension is listed in
// opts.Extensions (plus .env files). Binary and oversized files are skipped.
func Scan(ctx context.Context, proj *project.Context, opts Options) (*Report, error) {
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = 4096
	}
	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[e] = true
	}
	minWeight := opts.MinSeverity.Weight()

	report := &Report{
		SeverityBreakdown: map[Severity]int{},
		ByRule:            map[string]int{},
		Errors:            []project.ItemError{},
	}
	var findings []Finding
	files := map[string]bool{}

	walkErrs, err := proj.Walk(ctx, func(f project.File) error {
		if !exts[f.Ext] && !strings.HasPrefix(f.Name, ".env") {
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
		report.FilesScanned++

		fileFindings, suppressed := scanContent(f.Rel, data, opts)
		report.Suppressed += suppressed
		for _, fd := range fileFindings {
			if fd.Severity.Weight() < minWeight {
				continue
			}
			findings = append(findings, fd)
			files[fd.File] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.Errors = append(report.Errors, walkErrs...)

	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity.Weight() != b.Severity.Weight() {
			return a.Severity.Weight() > b.Severity.Weight()
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})

	for _, fd := range findings {
		report.SeverityBreakdown[fd.Severity]++
		report.ByRule[fd.Rule]++
	}
	report.Total = len(findings)
	report.FilesWithFindings = len(files)

	if opts.MaxFindings > 0 && len(findings) > opts.MaxFindings {
		findings = findings[:opts.MaxFindings]
		report.Truncated = true
	}
	report.Findings = findings
	if report.Findings == nil {
		report.Findings = []Finding{}
	}
	return report, nil
}

// scanContent matches every rule against every line of data. Lines are
// numbered from 1; a rule reports each match position separately. When a
// redacting rule matches, every finding on that line carries the line with
// all redacted spans masked.
func scanContent(rel string, data []byte, opts Options) ([]Finding, int) {
	var findings []Finding
	suppressed := 0

	lines := bytes.Split(data, []byte("\n"))
	for i, raw := range lines {
		if len(raw) > opts.MaxLineBytes {
			continue
		}
		line := strings.TrimSuffix(string(raw), "\r")

		var lineFindings []Finding
		var secrets [][2]int
		for _, rule := range opts.Rules {
			for _, m := range rule.Regex.FindAllStringIndex(line, -1) {
				if rule.Redact {
					secrets = append(secrets, [2]int{m[0], m[1]})
				}
				lineFindings = append(lineFindings, Finding{
					File:     rel,
					Line:     i + 1,
					Column:   m[0] + 1,
					Rule:     rule.ID,
					Severity: rule.Severity,
					Message:  rule.Message,
				})
			}
		}
		if len(lineFindings) == 0 {
			continue
		}
		if strings.Contains(line, suppressMarker) {
			suppressed += len(lineFindings)
			continue
		}
		snippet := truncate(strings.TrimSpace(redactSpans(line, secrets)), 160)
		for j := range lineFindings {
			lineFindings[j].Snippet = snippet
		}
		findings = append(findings, lineFindings...)
	}
	return findings, suppressed
}

// redactSpans masks every span of line. Overlapping spans are merged first.
func redactSpans(line string, spans [][2]int) string {
	if len(spans) == 0 {
		return line
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
	merged := [][2]int{spans[0]}
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp[0] <= last[1] {
			last[1] = max(last[1], sp[1])
			continue
		}
		merged = append(merged, sp)
	}

	var b strings.Builder
	prev := 0
	for _, sp := range merged {
		b.WriteString(line[prev:sp[0]])
		b.WriteString(mask(line[sp[0]:sp[1]]))
		prev = sp[1]
	}
	b.WriteString(line[prev:])
	return b.String()
}

// mask hides a matched secret, keeping the text up to the first quote or
// assignment so the reader can still recognize it.
func mask(match string) string {
	keep := 0
	if i := strings.IndexAny(match, `"'=:`); i >= 0 {
		keep = i + 1
	}
	return match[:keep] + strings.Repeat("*", min(len(match)-keep, 12))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return project.TruncateText(s, n) + "..."
}
