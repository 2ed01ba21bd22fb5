// Package tools binds the analyzer packages to the registry: the six tool
// descriptors, their parameter schemas, trigger keywords and answer
// templates.
package tools

import (
	"context"
	"log/slog"
	"time"

	"codeqa/internal/architecture"
	"codeqa/internal/config"
	"codeqa/internal/deps"
	"codeqa/internal/errors"
	"codeqa/internal/gitlog"
	"codeqa/internal/metrics"
	"codeqa/internal/project"
	"codeqa/internal/registry"
	"codeqa/internal/security"
	"codeqa/internal/tasks"
)

// Tool ids.
const (
	Dependencies = "analyze_dependencies"
	Metrics      = "analyze_code_metrics"
	Security     = "find_security_issues"
	GitHistory   = "analyze_git_history"
	TaskComments = "find_todos_and_fixmes"
	Architecture = "generate_architecture_summary"
)

// Register adds the built-in tools to reg in their canonical order. Pattern
// tables are compiled once here, so a bad config fails at startup.
func Register(reg *registry.Registry, cfg *config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rules, err := security.CompileRules(cfg.Security.Rules)
	if err != nil {
		return errors.New(errors.ParameterError, "invalid security rule", err)
	}
	arch, err := architecture.Compile(cfg.Architecture)
	if err != nil {
		return errors.New(errors.ParameterError, "invalid architecture pattern", err)
	}

	bindings := []struct {
		desc     registry.ToolDescriptor
		analyzer registry.Analyzer
	}{
		{dependenciesDescriptor(), analyzeDependencies},
		{metricsDescriptor(cfg), analyzeMetrics(cfg)},
		{securityDescriptor(cfg), analyzeSecurity(cfg, rules)},
		{gitDescriptor(cfg), analyzeGit(cfg, logger)},
		{tasksDescriptor(cfg), analyzeTasks(cfg)},
		{architectureDescriptor(), analyzeArchitecture(arch)},
	}
	for _, b := range bindings {
		if err := reg.Register(b.desc, b.analyzer); err != nil {
			return err
		}
	}
	return nil
}

func dependenciesDescriptor() registry.ToolDescriptor {
	return registry.ToolDescriptor{
		ID:          Dependencies,
		DisplayName: "Dependency Analysis",
		Description: "Find package manifests (pip, npm, Go, Cargo, pub, Composer, Bundler) and list declared dependencies.",
		Kind:        registry.KindDependency,
		Parameters: []registry.ParamSpec{
			{Name: "include_dev", Type: registry.TypeBoolean, Default: true, Description: "Include development-only dependencies"},
		},
	}
}

func analyzeDependencies(ctx context.Context, proj *project.Context, p registry.Params) (any, error) {
	return deps.Analyze(ctx, proj, deps.Options{IncludeDev: p.Bool("include_dev")})
}

func metricsDescriptor(cfg *config.Config) registry.ToolDescriptor {
	return registry.ToolDescriptor{
		ID:          Metrics,
		DisplayName: "Code Metrics",
		Description: "Count files and lines per extension and list the largest files.",
		Kind:        registry.KindMetrics,
		Parameters: []registry.ParamSpec{
			{Name: "top_n", Type: registry.TypeInteger, Default: cfg.Metrics.TopN, Minimum: registry.Min(1), Description: "Number of largest files to list"},
			{Name: "complexity", Type: registry.TypeBoolean, Default: false, Description: "Estimate function count and cyclomatic complexity"},
		},
	}
}

func analyzeMetrics(cfg *config.Config) registry.Analyzer {
	return func(ctx context.Context, proj *project.Context, p registry.Params) (any, error) {
		return metrics.Analyze(ctx, proj, metrics.Options{
			Extensions: cfg.Metrics.TextExtensions,
			TopN:       p.Int("top_n"),
			Complexity: p.Bool("complexity"),
		})
	}
}

var severities = []string{
	string(security.SeverityLow),
	string(security.SeverityMedium),
	string(security.SeverityHigh),
	string(security.SeverityCritical),
}

func securityDescriptor(cfg *config.Config) registry.ToolDescriptor {
	return registry.ToolDescriptor{
		ID:          Security,
		DisplayName: "Security Scan",
		Description: "Match source lines against rules for hardcoded secrets and risky calls such as eval, exec and shell execution.",
		Kind:        registry.KindSecurity,
		Parameters: []registry.ParamSpec{
			{Name: "max_findings", Type: registry.TypeInteger, Default: cfg.Security.MaxFindings, Minimum: registry.Min(0), Description: "Maximum findings listed; 0 lists all"},
			{Name: "min_severity", Type: registry.TypeString, Default: "low", Enum: severities, Description: "Drop findings below this severity"},
		},
	}
}

func analyzeSecurity(cfg *config.Config, rules []security.Rule) registry.Analyzer {
	return func(ctx context.Context, proj *project.Context, p registry.Params) (any, error) {
		return security.Scan(ctx, proj, security.Options{
			Rules:        rules,
			Extensions:   cfg.Security.Extensions,
			MaxLineBytes: cfg.Security.MaxLineBytes,
			MaxFindings:  p.Int("max_findings"),
			MinSeverity:  security.ParseSeverity(p.String("min_severity")),
		})
	}
}

func gitDescriptor(cfg *config.Config) registry.ToolDescriptor {
	return registry.ToolDescriptor{
		ID:          GitHistory,
		DisplayName: "Git History",
		Description: "Summarize commits, authors, recent activity and monthly commit frequency.",
		Kind:        registry.KindGitHistory,
		Parameters: []registry.ParamSpec{
			{Name: "recent", Type: registry.TypeInteger, Default: cfg.Git.Recent, Minimum: registry.Min(0), Description: "Number of recent commits to list"},
			{Name: "max_commits", Type: registry.TypeInteger, Default: 0, Minimum: registry.Min(0), Description: "Commits read for author and frequency stats; 0 reads all"},
		},
	}
}

func analyzeGit(cfg *config.Config, logger *slog.Logger) registry.Analyzer {
	timeout := time.Duration(cfg.Git.TimeoutMs) * time.Millisecond
	return func(ctx context.Context, proj *project.Context, p registry.Params) (any, error) {
		a := gitlog.NewAdapter(proj.Root, cfg.Git.Binary, timeout, logger)
		return gitlog.Analyze(ctx, proj, a, gitlog.Options{
			Recent:     p.Int("recent"),
			MaxCommits: p.Int("max_commits"),
		})
	}
}

func tasksDescriptor(cfg *config.Config) registry.ToolDescriptor {
	return registry.ToolDescriptor{
		ID:          TaskComments,
		DisplayName: "Task Comments",
		Description: "Find TODO, FIXME, HACK and NOTE comments.",
		Kind:        registry.KindTaskComments,
		Parameters: []registry.ParamSpec{
			{Name: "markers", Type: registry.TypeArray, Default: append([]string(nil), cfg.Tasks.Markers...), Description: "Marker keywords, matched case-insensitively"},
		},
	}
}

func analyzeTasks(cfg *config.Config) registry.Analyzer {
	return func(ctx context.Context, proj *project.Context, p registry.Params) (any, error) {
		markers := p.Strings("markers")
		if _, err := tasks.Compile(markers); err != nil {
			return nil, errors.New(errors.ParameterError, "invalid markers", err)
		}
		return tasks.Analyze(ctx, proj, tasks.Options{Markers: markers, Extensions: cfg.Tasks.Extensions})
	}
}

func architectureDescriptor() registry.ToolDescriptor {
	return registry.ToolDescriptor{
		ID:          Architecture,
		DisplayName: "Architecture Summary",
		Description: "Outline entry points, HTTP routes, tests, static assets, config and database files. Heuristic.",
		Kind:        registry.KindArchitecture,
		Advisory:    true,
	}
}

func analyzeArchitecture(p *architecture.Patterns) registry.Analyzer {
	return func(ctx context.Context, proj *project.Context, _ registry.Params) (any, error) {
		return architecture.Generate(ctx, proj, p)
	}
}
