package architecture

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"codeqa/internal/config"
)

type routePattern struct {
	framework string
	re        *regexp.Regexp
}

// Patterns is the compiled form of the architecture pattern tables.
type Patterns struct {
	entryPoints     []string
	routes          []routePattern
	tests           []string
	staticDirs      map[string]bool
	configFiles     []string
	databaseFiles   []string
	routeExtensions map[string]bool
}

// Compile validates and compiles the configured tables.
func Compile(cfg config.ArchitectureConfig) (*Patterns, error) {
	p := &Patterns{
		entryPoints:     cfg.EntryPoints,
		tests:           cfg.TestPatterns,
		staticDirs:      make(map[string]bool, len(cfg.StaticDirs)),
		configFiles:     cfg.ConfigFiles,
		databaseFiles:   cfg.DatabaseFiles,
		routeExtensions: make(map[string]bool, len(cfg.RouteExtensions)),
	}
	for _, globs := range [][]string{cfg.EntryPoints, cfg.TestPatterns, cfg.ConfigFiles, cfg.DatabaseFiles} {
		for _, g := range globs {
			if _, err := path.Match(g, ""); err != nil {
				return nil, fmt.Errorf("invalid glob %q: %w", g, err)
			}
		}
	}
	for _, rp := range cfg.Routes {
		re, err := regexp.Compile(rp.Pattern)
		if err != nil {
			return nil, fmt.Errorf("route pattern for %s: %w", rp.Framework, err)
		}
		p.routes = append(p.routes, routePattern{framework: rp.Framework, re: re})
	}
	for _, d := range cfg.StaticDirs {
		p.staticDirs[strings.ToLower(d)] = true
	}
	for _, e := range cfg.RouteExtensions {
		p.routeExtensions[strings.ToLower(e)] = true
	}
	return p, nil
}

// matchAny matches rel against globs. Globs containing a slash match the
// whole relative path; the rest match the file name only.
func matchAny(globs []string, rel, name string) bool {
	for _, g := range globs {
		target := name
		if strings.Contains(g, "/") {
			target = rel
		}
		if ok, _ := path.Match(g, target); ok {
			return true
		}
	}
	return false
}

var httpMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
	"HEAD": true, "OPTIONS": true,
}

// matchRoute returns the first route pattern matching line.
func (p *Patterns) matchRoute(line string) (Route, bool) {
	for _, rp := range p.routes {
		m := rp.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		r := Route{Framework: rp.framework, Declaration: strings.TrimSpace(line)}
		for _, g := range m[1:] {
			switch {
			case r.Method == "" && httpMethods[strings.ToUpper(g)]:
				r.Method = strings.ToUpper(g)
			case strings.HasPrefix(g, "/"):
				r.Path = g
			}
		}
		return r, true
	}
	return Route{}, false
}

func entrypointKind(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "cli"):
		return EntrypointCLI
	case strings.Contains(lower, "server"), strings.Contains(lower, "app"), strings.Contains(lower, "wsgi"), strings.Contains(lower, "asgi"):
		return EntrypointServer
	default:
		return EntrypointMain
	}
}
