// Package deps finds package manifests in a project and lists the
// dependencies each one declares.
package deps

import (
	"context"
	"path"
	"sort"
	"strings"

	"codeqa/internal/project"
)

// Ecosystem names a package manager.
type Ecosystem string

const (
	Pip      Ecosystem = "pip"
	NPM      Ecosystem = "npm"
	GoMod    Ecosystem = "go"
	Cargo    Ecosystem = "cargo"
	Pub      Ecosystem = "pub"
	Composer Ecosystem = "composer"
	Bundler  Ecosystem = "bundler"
)

// Dependency is one declared package.
type Dependency struct {
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
	Dev      bool   `json:"dev,omitempty"`
	Indirect bool   `json:"indirect,omitempty"`
}

// Manifest is one parsed manifest file.
type Manifest struct {
	Path         string       `json:"path"`
	Ecosystem    Ecosystem    `json:"ecosystem"`
	Count        int          `json:"count"`
	Dependencies []Dependency `json:"dependencies"`
}

// Report is the dependency analyzer payload.
type Report struct {
	Total       int                 `json:"total"`
	ByEcosystem map[Ecosystem]int   `json:"by_ecosystem"`
	Manifests   []Manifest          `json:"manifests"`
	Errors      []project.ItemError `json:"errors"`
}

// Options controls the analysis.
type Options struct {
	IncludeDev bool
}

type parser func(data []byte, name string) ([]Dependency, error)

type manifestKind struct {
	ecosystem Ecosystem
	parse     parser
}

// manifestFor maps a file name to its parser.
func manifestFor(name string) (manifestKind, bool) {
	switch name {
	case "Pipfile":
		return manifestKind{Pip, parsePipfile}, true
	case "pyproject.toml":
		return manifestKind{Pip, parsePyproject}, true
	case "package.json":
		return manifestKind{NPM, parsePackageJSON}, true
	case "go.mod":
		return manifestKind{GoMod, parseGoMod}, true
	case "Cargo.toml":
		return manifestKind{Cargo, parseCargo}, true
	case "pubspec.yaml":
		return manifestKind{Pub, parsePubspec}, true
	case "composer.json":
		return manifestKind{Composer, parseComposer}, true
	case "Gemfile":
		return manifestKind{Bundler, parseGemfile}, true
	}
	if ok, _ := path.Match("requirements*.txt", name); ok {
		return manifestKind{Pip, parseRequirements}, true
	}
	return manifestKind{}, false
}

// Analyze walks the project and parses every recognized manifest. A
// manifest that fails to parse is recorded in Errors and the rest still
// contribute.
func Analyze(ctx context.Context, proj *project.Context, opts Options) (*Report, error) {
	report := &Report{
		ByEcosystem: map[Ecosystem]int{},
		Manifests:   []Manifest{},
		Errors:      []project.ItemError{},
	}

	walkErrs, err := proj.Walk(ctx, func(f project.File) error {
		kind, ok := manifestFor(f.Name)
		if !ok {
			return nil
		}

		data, err := proj.ReadText(f)
		if err != nil {
			report.Errors = append(report.Errors, project.ItemError{Path: f.Rel, Error: err.Error()})
			return nil
		}
		deps, err := kind.parse(data, f.Name)
		if err != nil {
			report.Errors = append(report.Errors, project.ItemError{Path: f.Rel, Error: err.Error()})
			return nil
		}

		if !opts.IncludeDev {
			deps = withoutDev(deps)
		}
		if deps == nil {
			deps = []Dependency{}
		}
		sortDeps(deps)

		report.Manifests = append(report.Manifests, Manifest{
			Path:         f.Rel,
			Ecosystem:    kind.ecosystem,
			Count:        len(deps),
			Dependencies: deps,
		})
		report.ByEcosystem[kind.ecosystem] += len(deps)
		report.Total += len(deps)
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.Errors = append(report.Errors, walkErrs...)
	return report, nil
}

func withoutDev(deps []Dependency) []Dependency {
	out := deps[:0]
	for _, d := range deps {
		if !d.Dev {
			out = append(out, d)
		}
	}
	return out
}

func sortDeps(deps []Dependency) {
	sort.SliceStable(deps, func(i, j int) bool {
		if deps[i].Dev != deps[j].Dev {
			return !deps[i].Dev
		}
		return strings.ToLower(deps[i].Name) < strings.ToLower(deps[j].Name)
	})
}
