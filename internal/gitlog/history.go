package gitlog

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"codeqa/internal/errors"
	"codeqa/internal/project"
)

// logFormat is hash, short hash, author, ISO date and subject separated by
// the ASCII unit separator.
const (
	logFormat = "--format=%H%x1f%h%x1f%an%x1f%aI%x1f%s"
	fieldSep  = "\x1f"
)

// CommitInfo is one commit.
type CommitInfo struct {
	Hash    string `json:"hash"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

// AuthorCount is one entry of the author ranking.
type AuthorCount struct {
	Name    string `json:"name"`
	Commits int    `json:"commits"`
}

// Report is the git history payload.
type Report struct {
	TotalCommits    int            `json:"total_commits"`
	Authors         map[string]int `json:"authors"`
	TopAuthors      []AuthorCount  `json:"top_authors"`
	RecentCommits   []CommitInfo   `json:"recent_commits"`
	CommitFrequency map[string]int `json:"commit_frequency"`
	AnalyzedCommits int            `json:"analyzed_commits"`
	FirstCommit     string         `json:"first_commit,omitempty"`
	LastCommit      string         `json:"last_commit,omitempty"`
}

// Options controls a history run.
type Options struct {
	// Recent is how many commits to list, newest first.
	Recent int
	// MaxCommits bounds the author and frequency pass; 0 reads everything.
	MaxCommits int
}

// Analyze summarizes the history of the repository rooted at proj.Root.
func Analyze(ctx context.Context, proj *project.Context, a *Adapter, opts Options) (*Report, error) {
	if opts.Recent < 0 {
		opts.Recent = 0
	}
	top, err := a.TopLevel(ctx)
	if err != nil {
		return nil, err
	}
	if top == "" {
		return nil, errors.Newf(errors.NotAGitRepo, "%s is not inside a git repository", proj.Root).
			WithDetails(map[string]string{"path": proj.Root})
	}
	if !sameDir(top, proj.Root) {
		return nil, errors.Newf(errors.NotAGitRepo, "%s is not the root of a git repository", proj.Root).
			WithDetails(map[string]string{"path": proj.Root, "repositoryRoot": top})
	}

	report := &Report{
		Authors:         map[string]int{},
		TopAuthors:      []AuthorCount{},
		RecentCommits:   []CommitInfo{},
		CommitFrequency: map[string]int{},
	}

	hasHead, err := a.HasHead(ctx)
	if err != nil {
		return nil, err
	}
	if !hasHead {
		return report, nil
	}

	count, err := a.run(ctx, "rev-list", "--count", "HEAD")
	if err != nil {
		return nil, err
	}
	report.TotalCommits, err = strconv.Atoi(count)
	if err != nil {
		return nil, fmt.Errorf("parsing commit count %q: %w", count, err)
	}

	args := []string{"log", logFormat}
	if opts.MaxCommits > 0 {
		args = append(args, fmt.Sprintf("-n%d", opts.MaxCommits))
	}
	lines, err := a.runLines(ctx, args...)
	if err != nil {
		return nil, err
	}

	for _, line := range lines {
		parts := strings.SplitN(line, fieldSep, 5)
		if len(parts) != 5 {
			a.logger.Warn("skipping malformed git log line", "line", line)
			continue
		}
		c := CommitInfo{Hash: parts[1], Author: parts[2], Date: parts[3], Message: parts[4]}
		report.AnalyzedCommits++
		report.Authors[c.Author]++
		if len(c.Date) >= 7 {
			report.CommitFrequency[c.Date[:7]]++
		}
		if len(report.RecentCommits) < opts.Recent {
			report.RecentCommits = append(report.RecentCommits, c)
		}
		if report.LastCommit == "" {
			report.LastCommit = c.Date
		}
		report.FirstCommit = c.Date
	}

	for name, n := range report.Authors {
		report.TopAuthors = append(report.TopAuthors, AuthorCount{Name: name, Commits: n})
	}
	sort.Slice(report.TopAuthors, func(i, j int) bool {
		if report.TopAuthors[i].Commits != report.TopAuthors[j].Commits {
			return report.TopAuthors[i].Commits > report.TopAuthors[j].Commits
		}
		return report.TopAuthors[i].Name < report.TopAuthors[j].Name
	})

	return report, nil
}
