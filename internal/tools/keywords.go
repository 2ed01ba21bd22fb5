package tools

import "codeqa/internal/config"

// DefaultKeywords are the trigger keywords of each built-in tool. Questions
// are lowercased and tokenized before matching, so entries are lowercase
// single words.
var DefaultKeywords = map[string][]string{
	Dependencies: {
		"dependency", "dependencies", "package", "packages", "requirement", "requirements",
		"library", "libraries", "npm", "pip", "module", "modules", "import", "imports",
	},
	Metrics: {
		"metric", "metrics", "line", "lines", "complexity", "complex", "size", "large",
		"largest", "statistic", "statistics", "stats", "count", "loc",
	},
	Security: {
		"security", "secure", "vulnerability", "vulnerabilities", "safe", "unsafe",
		"secret", "secrets", "password", "passwords", "injection", "risk", "risky",
	},
	GitHistory: {
		"git", "commit", "commits", "history", "change", "changes", "author", "authors",
		"contributor", "contributors", "recent",
	},
	TaskComments: {
		"todo", "todos", "fixme", "fixmes", "task", "tasks", "hack", "hacks", "note", "notes",
	},
	Architecture: {
		"architecture", "structure", "entry", "entrypoint", "api", "apis", "endpoint",
		"endpoints", "route", "routes", "layout", "organized", "overview",
	},
}

// Keywords returns the effective keyword table: defaults with per-tool
// overrides from cfg applied.
func Keywords(cfg config.DispatchConfig) map[string][]string {
	out := make(map[string][]string, len(DefaultKeywords))
	for id, kws := range DefaultKeywords {
		out[id] = append([]string(nil), kws...)
	}
	for id, kws := range cfg.Keywords {
		out[id] = append([]string(nil), kws...)
	}
	return out
}
