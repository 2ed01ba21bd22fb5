package deps

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	burnt "github.com/BurntSushi/toml"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

// requirementName splits a PEP 508 requirement into name and version spec.
var requirementName = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)(\[[^\]]*\])?\s*(.*)$`)

func parseRequirementSpec(spec string) (Dependency, bool) {
	spec = strings.TrimSpace(spec)
	if i := strings.Index(spec, ";"); i >= 0 {
		spec = strings.TrimSpace(spec[:i])
	}
	m := requirementName.FindStringSubmatch(spec)
	if m == nil {
		return Dependency{}, false
	}
	return Dependency{Name: m[1], Version: strings.TrimSpace(m[3])}, true
}

func parseRequirements(data []byte, name string) ([]Dependency, error) {
	dev := strings.Contains(name, "dev") || strings.Contains(name, "test")
	var deps []Dependency

	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.Index(line, " #"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if strings.Contains(line, "://") {
			continue
		}
		d, ok := parseRequirementSpec(line)
		if !ok {
			return nil, fmt.Errorf("line %d: cannot parse requirement %q", lineNo, line)
		}
		d.Dev = dev
		deps = append(deps, d)
	}
	return deps, sc.Err()
}

// versionOf extracts a version from the string-or-table forms TOML and YAML
// manifests use.
func versionOf(v any) string {
	switch t := v.(type) {
	case string:
		if t == "*" {
			return ""
		}
		return t
	case map[string]any:
		if s, ok := t["version"].(string); ok {
			return versionOf(s)
		}
	}
	return ""
}

func fromTable(table map[string]any, dev bool, skip func(string) bool) []Dependency {
	deps := make([]Dependency, 0, len(table))
	for name, v := range table {
		if skip != nil && skip(name) {
			continue
		}
		deps = append(deps, Dependency{Name: name, Version: versionOf(v), Dev: dev})
	}
	return deps
}

func parsePipfile(data []byte, _ string) ([]Dependency, error) {
	var doc struct {
		Packages    map[string]any `toml:"packages"`
		DevPackages map[string]any `toml:"dev-packages"`
	}
	if _, err := burnt.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("parsing Pipfile: %w", err)
	}
	deps := fromTable(doc.Packages, false, nil)
	return append(deps, fromTable(doc.DevPackages, true, nil)...), nil
}

func parsePyproject(data []byte, _ string) ([]Dependency, error) {
	var doc struct {
		Project struct {
			Dependencies         []string            `toml:"dependencies"`
			OptionalDependencies map[string][]string `toml:"optional-dependencies"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Dependencies    map[string]any `toml:"dependencies"`
				DevDependencies map[string]any `toml:"dev-dependencies"`
				Group           map[string]struct {
					Dependencies map[string]any `toml:"dependencies"`
				} `toml:"group"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing pyproject.toml: %w", err)
	}

	var deps []Dependency
	for _, spec := range doc.Project.Dependencies {
		if d, ok := parseRequirementSpec(spec); ok {
			deps = append(deps, d)
		}
	}
	for _, specs := range doc.Project.OptionalDependencies {
		for _, spec := range specs {
			if d, ok := parseRequirementSpec(spec); ok {
				d.Dev = true
				deps = append(deps, d)
			}
		}
	}

	isPython := func(name string) bool { return strings.EqualFold(name, "python") }
	poetry := doc.Tool.Poetry
	deps = append(deps, fromTable(poetry.Dependencies, false, isPython)...)
	deps = append(deps, fromTable(poetry.DevDependencies, true, isPython)...)
	for _, g := range poetry.Group {
		deps = append(deps, fromTable(g.Dependencies, true, isPython)...)
	}
	return dedupe(deps), nil
}

func parsePackageJSON(data []byte, _ string) ([]Dependency, error) {
	var doc struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing package.json: %w", err)
	}
	var deps []Dependency
	for name, v := range doc.Dependencies {
		deps = append(deps, Dependency{Name: name, Version: v})
	}
	for name, v := range doc.DevDependencies {
		deps = append(deps, Dependency{Name: name, Version: v, Dev: true})
	}
	return deps, nil
}

func parseGoMod(data []byte, name string) ([]Dependency, error) {
	f, err := modfile.ParseLax(name, data, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing go.mod: %w", err)
	}
	deps := make([]Dependency, 0, len(f.Require))
	for _, r := range f.Require {
		deps = append(deps, Dependency{Name: r.Mod.Path, Version: r.Mod.Version, Indirect: r.Indirect})
	}
	return deps, nil
}

func parseCargo(data []byte, _ string) ([]Dependency, error) {
	var doc struct {
		Dependencies      map[string]any `toml:"dependencies"`
		DevDependencies   map[string]any `toml:"dev-dependencies"`
		BuildDependencies map[string]any `toml:"build-dependencies"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing Cargo.toml: %w", err)
	}
	deps := fromTable(doc.Dependencies, false, nil)
	deps = append(deps, fromTable(doc.BuildDependencies, false, nil)...)
	return append(deps, fromTable(doc.DevDependencies, true, nil)...), nil
}

func parsePubspec(data []byte, _ string) ([]Dependency, error) {
	var doc struct {
		Dependencies    map[string]any `yaml:"dependencies"`
		DevDependencies map[string]any `yaml:"dev_dependencies"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing pubspec.yaml: %w", err)
	}
	isSDK := func(name string) bool { return name == "flutter" || name == "flutter_test" }
	deps := fromTable(doc.Dependencies, false, isSDK)
	return append(deps, fromTable(doc.DevDependencies, true, isSDK)...), nil
}

func parseComposer(data []byte, _ string) ([]Dependency, error) {
	var doc struct {
		Require    map[string]string `json:"require"`
		RequireDev map[string]string `json:"require-dev"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing composer.json: %w", err)
	}
	platform := func(name string) bool { return name == "php" || strings.HasPrefix(name, "ext-") }
	var deps []Dependency
	for name, v := range doc.Require {
		if !platform(name) {
			deps = append(deps, Dependency{Name: name, Version: v})
		}
	}
	for name, v := range doc.RequireDev {
		if !platform(name) {
			deps = append(deps, Dependency{Name: name, Version: v, Dev: true})
		}
	}
	return deps, nil
}

var (
	gemLine   = regexp.MustCompile(`^\s*gem\s+["']([^"']+)["'](?:\s*,\s*["']([^"']+)["'])?`)
	groupLine = regexp.MustCompile(`^\s*group\s+(.+?)\s+do\s*$`)
	blockOpen = regexp.MustCompile(`\bdo\s*(\|[^|]*\|)?\s*$`)
	endLine   = regexp.MustCompile(`^\s*end\s*$`)
)

func parseGemfile(data []byte, _ string) ([]Dependency, error) {
	var deps []Dependency
	// stack of "is this block a dev group"
	var blocks []bool

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		inDev := false
		for _, b := range blocks {
			inDev = inDev || b
		}

		switch {
		case groupLine.MatchString(line):
			groups := groupLine.FindStringSubmatch(line)[1]
			blocks = append(blocks, strings.Contains(groups, "development") || strings.Contains(groups, "test"))
		case gemLine.MatchString(line):
			m := gemLine.FindStringSubmatch(line)
			deps = append(deps, Dependency{Name: m[1], Version: m[2], Dev: inDev})
		case endLine.MatchString(line):
			if len(blocks) > 0 {
				blocks = blocks[:len(blocks)-1]
			}
		case blockOpen.MatchString(line):
			blocks = append(blocks, false)
		}
	}
	return deps, sc.Err()
}

func dedupe(deps []Dependency) []Dependency {
	seen := map[string]int{}
	out := deps[:0]
	for _, d := range deps {
		key := strings.ToLower(d.Name)
		if i, ok := seen[key]; ok {
			if out[i].Dev && !d.Dev {
				out[i] = d
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, d)
	}
	return out
}
