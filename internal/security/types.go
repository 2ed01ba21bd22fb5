// Package security scans project files line by line against a configurable
// table of risky-code and hardcoded-credential rules.
package security

import (
	"fmt"
	"regexp"
	"strings"

	"codeqa/internal/config"
	"codeqa/internal/project"
)

// Severity indicates the risk level of a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Weight returns a numeric weight for sorting and filtering.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ParseSeverity accepts any case; unknown values map to low.
func ParseSeverity(s string) Severity {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.Weight() == 0 {
		return SeverityLow
	}
	return sev
}

// Rule is a compiled security rule.
type Rule struct {
	ID       string
	Severity Severity
	Message  string
	Redact   bool
	Regex    *regexp.Regexp
}

// CompileRules compiles a configured rule table.
func CompileRules(rules []config.SecurityRule) ([]Rule, error) {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, err)
		}
		out = append(out, Rule{
			ID:       r.ID,
			Severity: ParseSeverity(r.Severity),
			Message:  r.Message,
			Redact:   r.Redact,
			Regex:    re,
		})
	}
	return out, nil
}

// Finding is one rule match.
type Finding struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Snippet  string   `json:"snippet"`
}

// Report is the security analyzer payload.
type Report struct {
	Total             int                 `json:"total"`
	SeverityBreakdown map[Severity]int    `json:"severity_breakdown"`
	ByRule            map[string]int      `json:"by_rule"`
	Findings          []Finding           `json:"findings"`
	Truncated         bool                `json:"truncated"`
	FilesScanned      int                 `json:"files_scanned"`
	FilesWithFindings int                 `json:"files_with_findings"`
	Suppressed        int                 `json:"suppressed"`
	Skipped           int                 `json:"skipped"`
	Errors            []project.ItemError `json:"errors"`
}

// Options controls a scan.
type Options struct {
	Rules        []Rule
	Extensions   []string
	MaxLineBytes int
	MaxFindings  int
	MinSeverity  Severity
}
