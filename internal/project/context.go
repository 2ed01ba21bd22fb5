// Package project resolves a project root and enumerates its files in a
// deterministic order for the analyzers.
package project

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"codeqa/internal/errors"
)

// Options controls tree enumeration.
type Options struct {
	IgnoreDirs       []string
	SkipHidden       bool
	MaxFileSizeBytes int64
}

// Context is a validated, absolute project root plus its walk options.
// It holds no cache; every Walk reads the tree again.
type Context struct {
	Root   string
	ignore map[string]bool
	opts   Options
}

// File is a regular file found under the root.
type File struct {
	Path string // absolute
	Rel  string // slash-separated, relative to the root
	Name string
	Ext  string // lowercased, with leading dot
	Size int64
}

// ItemError records a file or directory that could not be processed.
type ItemError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

var (
	// ErrBinary is returned by ReadText for files that look binary.
	ErrBinary = stderrors.New("binary file")
	// ErrTooLarge is returned by ReadText for files above the size limit.
	ErrTooLarge = stderrors.New("file exceeds size limit")
)

// Resolve validates path and returns a Context rooted at its absolute form.
// A missing, non-directory or unreadable path yields INVALID_PATH.
func Resolve(path string, opts Options) (*Context, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.Newf(errors.InvalidPath, "project path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.New(errors.InvalidPath, "cannot make project path absolute", err)
	}
	abs = filepath.Clean(abs)

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.InvalidPath, fmt.Sprintf("project path %s does not exist", abs), err)
		}
		return nil, errors.New(errors.InvalidPath, fmt.Sprintf("project path %s is not accessible", abs), err)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.InvalidPath, "project path %s is not a directory", abs)
	}
	if _, err := os.ReadDir(abs); err != nil {
		return nil, errors.New(errors.InvalidPath, fmt.Sprintf("project path %s is not readable", abs), err)
	}

	if opts.MaxFileSizeBytes <= 0 {
		opts.MaxFileSizeBytes = 2 << 20
	}
	ignore := make(map[string]bool, len(opts.IgnoreDirs))
	for _, d := range opts.IgnoreDirs {
		ignore[d] = true
	}
	return &Context{Root: abs, ignore: ignore, opts: opts}, nil
}

// RelPath returns p relative to the root with forward slashes.
func (c *Context) RelPath(p string) string {
	rel, err := filepath.Rel(c.Root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// IsIgnoredDir reports whether a directory with this name is skipped.
func (c *Context) IsIgnoredDir(name string) bool {
	if c.ignore[name] {
		return true
	}
	return c.opts.SkipHidden && len(name) > 1 && strings.HasPrefix(name, ".")
}

// Walk calls fn for every regular file under the root in lexical order.
// Directories in the ignore list are pruned and symlinks are not followed.
// Entries that cannot be read are collected and returned rather than
// aborting the walk. A non-nil error from fn or a cancelled ctx stops it.
func (c *Context) Walk(ctx context.Context, fn func(File) error) ([]ItemError, error) {
	var itemErrs []ItemError

	err := filepath.WalkDir(c.Root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == c.Root {
				return err
			}
			itemErrs = append(itemErrs, ItemError{Path: c.RelPath(path), Error: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != c.Root && c.IsIgnoredDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			itemErrs = append(itemErrs, ItemError{Path: c.RelPath(path), Error: err.Error()})
			return nil
		}

		return fn(File{
			Path: path,
			Rel:  c.RelPath(path),
			Name: d.Name(),
			Ext:  strings.ToLower(filepath.Ext(d.Name())),
			Size: info.Size(),
		})
	})
	if err != nil {
		return itemErrs, err
	}
	return itemErrs, nil
}

// ReadText reads f, refusing files over the size limit and files that look
// binary.
func (c *Context) ReadText(f File) ([]byte, error) {
	if f.Size > c.opts.MaxFileSizeBytes {
		return nil, ErrTooLarge
	}
	if HasBinaryExtension(f.Ext) {
		return nil, ErrBinary
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	if LooksBinary(data) {
		return nil, ErrBinary
	}
	return data, nil
}

// IsSkip reports whether err from ReadText means the file was skipped on
// purpose rather than failing.
func IsSkip(err error) bool {
	return stderrors.Is(err, ErrBinary) || stderrors.Is(err, ErrTooLarge)
}
