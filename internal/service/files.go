package service

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"codeqa/internal/errors"
	"codeqa/internal/paths"
	"codeqa/internal/project"
)

// DefaultTreeDepth bounds Tree when the caller passes 0.
const DefaultTreeDepth = 3

// TreeEntry is one node of a project listing.
type TreeEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"` // slash-separated, relative to the root
	Type  string `json:"type"` // "file" or "directory"
	Depth int    `json:"depth"`
	Size  int64  `json:"size,omitempty"`
}

// FileContent is a text file read from a project.
type FileContent struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Content string `json:"content"`
}

// Tree lists projectPath depth-first, directories before files, skipping
// hidden entries and ignored directories.
func (s *Service) Tree(ctx context.Context, projectPath string, maxDepth int) ([]TreeEntry, error) {
	proj, err := project.Resolve(projectPath, WalkOptions(s.cfg))
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = DefaultTreeDepth
	}
	var out []TreeEntry
	err = s.listDir(ctx, proj, proj.Root, 0, maxDepth, &out)
	return out, err
}

func (s *Service) listDir(ctx context.Context, proj *project.Context, dir string, depth, maxDepth int, out *[]TreeEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Debug("skipping unreadable directory", "dir", dir, "error", err.Error())
		return nil
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		full := filepath.Join(dir, e.Name())
		entry := TreeEntry{Name: e.Name(), Path: proj.RelPath(full), Depth: depth, Type: "file"}
		if e.IsDir() {
			if proj.IsIgnoredDir(e.Name()) {
				continue
			}
			entry.Type = "directory"
			*out = append(*out, entry)
			if depth+1 < maxDepth {
				if err := s.listDir(ctx, proj, full, depth+1, maxDepth, out); err != nil {
					return err
				}
			}
			continue
		}
		if info, err := e.Info(); err == nil {
			entry.Size = info.Size()
		}
		*out = append(*out, entry)
	}
	return nil
}

// ReadFile returns the text of rel inside projectPath. Paths escaping the
// root and non-text files are INVALID_PATH.
func (s *Service) ReadFile(projectPath, rel string) (*FileContent, error) {
	proj, err := project.Resolve(projectPath, WalkOptions(s.cfg))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rel) == "" || filepath.IsAbs(rel) {
		return nil, errors.Newf(errors.InvalidPath, "file path %q must be relative to the project", rel)
	}
	full := paths.JoinRoot(proj.Root, rel)
	if !paths.IsWithinRoot(full, proj.Root) {
		return nil, errors.Newf(errors.InvalidPath, "file path %q is outside the project", rel)
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return nil, errors.Newf(errors.InvalidPath, "file %q does not exist", rel)
	}

	f := project.File{
		Path: full,
		Rel:  proj.RelPath(full),
		Name: info.Name(),
		Ext:  strings.ToLower(filepath.Ext(info.Name())),
		Size: info.Size(),
	}
	data, err := proj.ReadText(f)
	if err != nil {
		if project.IsSkip(err) {
			return nil, errors.New(errors.InvalidPath, "file is not readable as text", err)
		}
		return nil, errors.New(errors.ScanItemFailed, "reading file", err)
	}
	if !utf8.Valid(data) {
		return nil, errors.Newf(errors.InvalidPath, "file %q is not valid UTF-8", rel)
	}
	return &FileContent{Path: f.Rel, Name: f.Name, Size: f.Size, Content: string(data)}, nil
}
