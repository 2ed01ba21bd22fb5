package architecture

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"codeqa/internal/project"
)

// maxDeclarationLen caps a stored route declaration.
const maxDeclarationLen = 200

// Generate walks the project once and classifies every file.
func Generate(ctx context.Context, proj *project.Context, p *Patterns) (*Summary, error) {
	lang, source, _ := proj.DetectLanguage()
	s := &Summary{
		PrimaryLanguage: string(lang),
		LanguageSource:  source,
		EntryPoints:     []EntryPoint{},
		Routes:          []Route{},
		TestFiles:       []string{},
		StaticDirs:      []string{},
		ConfigFiles:     []string{},
		DatabaseFiles:   []string{},
		Directories:     []Directory{},
		Advisory:        true,
		Errors:          []project.ItemError{},
	}
	staticDirs := map[string]bool{}
	topLevel := map[string]int{}

	walkErrs, err := proj.Walk(ctx, func(f project.File) error {
		s.TotalFiles++
		dirs := strings.Split(f.Rel, "/")
		dirs = dirs[:len(dirs)-1]
		if len(dirs) > 0 {
			topLevel[dirs[0]]++
		}
		for i, d := range dirs {
			if p.staticDirs[strings.ToLower(d)] {
				staticDirs[strings.Join(dirs[:i+1], "/")] = true
				break
			}
		}

		isTest := matchAny(p.tests, f.Rel, f.Name)
		switch {
		case isTest:
			s.TestFiles = append(s.TestFiles, f.Rel)
		case matchAny(p.entryPoints, f.Rel, f.Name):
			s.EntryPoints = append(s.EntryPoints, EntryPoint{Path: f.Rel, Name: f.Name, Kind: entrypointKind(f.Name)})
		}
		if matchAny(p.configFiles, f.Rel, f.Name) {
			s.ConfigFiles = append(s.ConfigFiles, f.Rel)
		}
		if matchAny(p.databaseFiles, f.Rel, f.Name) {
			s.DatabaseFiles = append(s.DatabaseFiles, f.Rel)
		}

		if isTest || !p.routeExtensions[f.Ext] {
			return nil
		}
		data, err := proj.ReadText(f)
		if err != nil {
			if !project.IsSkip(err) {
				s.Errors = append(s.Errors, project.ItemError{Path: f.Rel, Error: err.Error()})
			}
			return nil
		}
		for i, line := range bytes.Split(data, []byte("\n")) {
			r, ok := p.matchRoute(string(line))
			if !ok {
				continue
			}
			r.File = f.Rel
			r.Line = i + 1
			r.Declaration = project.TruncateText(r.Declaration, maxDeclarationLen)
			s.Routes = append(s.Routes, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Errors = append(s.Errors, walkErrs...)

	for d := range staticDirs {
		s.StaticDirs = append(s.StaticDirs, d)
	}
	sort.Strings(s.StaticDirs)
	for d, n := range topLevel {
		s.Directories = append(s.Directories, Directory{Path: d, Files: n})
	}
	sort.Slice(s.Directories, func(i, j int) bool {
		if s.Directories[i].Files != s.Directories[j].Files {
			return s.Directories[i].Files > s.Directories[j].Files
		}
		return s.Directories[i].Path < s.Directories[j].Path
	})
	return s, nil
}
