// Package metrics counts files and lines per extension and reports the
// largest files of a project.
package metrics

import (
	"context"
	"sort"
	"unicode/utf8"

	"codeqa/internal/complexity"
	"codeqa/internal/project"
)

// Options controls the analysis.
type Options struct {
	// Extensions are the lowercase extensions counted as text.
	Extensions []string
	TopN       int
	Complexity bool
}

// FileStat is the line count of one file.
type FileStat struct {
	Path  string `json:"path"`
	Lines int    `json:"lines"`
	Bytes int64  `json:"bytes"`
}

// ExtensionStat aggregates files sharing an extension.
type ExtensionStat struct {
	Files int `json:"files"`
	Lines int `json:"lines"`
}

// ComplexityStat is the complexity estimate of one file.
type ComplexityStat struct {
	Path string `json:"path"`
	complexity.Estimate
}

// ComplexitySummary aggregates per-file estimates.
type ComplexitySummary struct {
	Method        complexity.Method `json:"method"`
	Functions     int               `json:"functions"`
	Cyclomatic    int               `json:"cyclomatic"`
	MostComplex   []ComplexityStat  `json:"most_complex"`
	FilesAnalyzed int               `json:"files_analyzed"`
}

// Report is the metrics analyzer payload.
type Report struct {
	TotalFiles   int                      `json:"total_files"`
	TotalLines   int                      `json:"total_lines"`
	ByExtension  map[string]ExtensionStat `json:"by_extension"`
	LargestFiles []FileStat               `json:"largest_files"`
	Skipped      int                      `json:"skipped"`
	Errors       []project.ItemError      `json:"errors"`
	Complexity   *ComplexitySummary       `json:"complexity,omitempty"`
}

// Analyze walks the project. Files whose extension is not in
// opts.Extensions are ignored; binary, oversized and non-UTF-8 files count
// as skipped; unreadable files are recorded in Errors.
func Analyze(ctx context.Context, proj *project.Context, opts Options) (*Report, error) {
	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[e] = true
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}

	report := &Report{
		ByExtension: map[string]ExtensionStat{},
		Errors:      []project.ItemError{},
	}
	var files []FileStat

	var estimator *complexity.Estimator
	var cplx []ComplexityStat
	if opts.Complexity {
		estimator = complexity.NewEstimator()
	}

	walkErrs, err := proj.Walk(ctx, func(f project.File) error {
		if !exts[f.Ext] {
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
		if !utf8.Valid(data) {
			report.Skipped++
			return nil
		}

		lines := CountLines(data)
		files = append(files, FileStat{Path: f.Rel, Lines: lines, Bytes: f.Size})

		stat := report.ByExtension[f.Ext]
		stat.Files++
		stat.Lines += lines
		report.ByExtension[f.Ext] = stat

		report.TotalFiles++
		report.TotalLines += lines

		if estimator != nil {
			if est, ok := estimator.Estimate(ctx, f.Ext, data); ok {
				cplx = append(cplx, ComplexityStat{Path: f.Rel, Estimate: est})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.Errors = append(report.Errors, walkErrs...)

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Lines != files[j].Lines {
			return files[i].Lines > files[j].Lines
		}
		return files[i].Path < files[j].Path
	})
	if len(files) > opts.TopN {
		files = files[:opts.TopN]
	}
	report.LargestFiles = files
	if report.LargestFiles == nil {
		report.LargestFiles = []FileStat{}
	}

	if opts.Complexity {
		report.Complexity = summarize(cplx, opts.TopN)
	}
	return report, nil
}

func summarize(stats []ComplexityStat, topN int) *ComplexitySummary {
	sum := &ComplexitySummary{Method: complexity.MethodPattern, MostComplex: []ComplexityStat{}}
	if complexity.TreeSitterAvailable() {
		sum.Method = complexity.MethodTreeSitter
	}
	for _, s := range stats {
		sum.Functions += s.Functions
		sum.Cyclomatic += s.Cyclomatic
		sum.FilesAnalyzed++
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Cyclomatic != stats[j].Cyclomatic {
			return stats[i].Cyclomatic > stats[j].Cyclomatic
		}
		return stats[i].Path < stats[j].Path
	})
	for _, s := range stats {
		if len(sum.MostComplex) == topN || s.Functions == 0 {
			break
		}
		sum.MostComplex = append(sum.MostComplex, s)
	}
	return sum
}

// CountLines counts newline-terminated lines; a non-empty trailing
// fragment without a newline counts as one more line.
func CountLines(data []byte) int {
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		n++
	}
	return n
}
