// Package architecture produces an advisory outline of a project: entry
// points, HTTP routes, tests, static assets, config and database files.
// Every category comes from filename and regex heuristics.
package architecture

import "codeqa/internal/project"

// Entry point kinds.
const (
	EntrypointMain   = "main"
	EntrypointCLI    = "cli"
	EntrypointServer = "server"
)

// EntryPoint is a file that likely starts the program.
type EntryPoint struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Route is one HTTP route declaration.
type Route struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	Framework   string `json:"framework"`
	Method      string `json:"method,omitempty"`
	Path        string `json:"path,omitempty"`
	Declaration string `json:"declaration"`
}

// Directory summarizes one top-level directory.
type Directory struct {
	Path  string `json:"path"`
	Files int    `json:"files"`
}

// Summary is the architecture payload.
type Summary struct {
	PrimaryLanguage string              `json:"primary_language"`
	LanguageSource  string              `json:"language_source,omitempty"`
	EntryPoints     []EntryPoint        `json:"entry_points"`
	Routes          []Route             `json:"routes"`
	TestFiles       []string            `json:"test_files"`
	StaticDirs      []string            `json:"static_dirs"`
	ConfigFiles     []string            `json:"config_files"`
	DatabaseFiles   []string            `json:"database_files"`
	Directories     []Directory         `json:"directories"`
	TotalFiles      int                 `json:"total_files"`
	Advisory        bool                `json:"advisory"`
	Errors          []project.ItemError `json:"errors"`
}
