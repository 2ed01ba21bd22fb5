package dispatch

import (
	"sort"
	"strings"
	"unicode"

	"codeqa/internal/envelope"
)

// Tokenize lowercases text and splits it on runs of characters that are
// neither letters nor digits. The result is a set.
func Tokenize(text string) map[string]bool {
	tokens := map[string]bool{}
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tokens[f] = true
	}
	return tokens
}

// Table is a compiled keyword table: tool id → keyword set.
type Table map[string]map[string]bool

// NewTable lowercases and deduplicates keywords.
func NewTable(keywords map[string][]string) Table {
	t := make(Table, len(keywords))
	for id, kws := range keywords {
		set := make(map[string]bool, len(kws))
		for _, k := range kws {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				set[k] = true
			}
		}
		t[id] = set
	}
	return t
}

// Score counts how many of the tool's keywords appear in tokens.
func (t Table) Score(id string, tokens map[string]bool) int {
	n := 0
	for k := range t[id] {
		if tokens[k] {
			n++
		}
	}
	return n
}

// rank scores every id in order (registration order), keeps positive
// scores and sorts by descending score. The sort is stable, so ties keep
// registration order.
func (t Table) rank(ids []string, tokens map[string]bool) []envelope.ToolMatch {
	matches := []envelope.ToolMatch{}
	for _, id := range ids {
		if s := t.Score(id, tokens); s > 0 {
			matches = append(matches, envelope.ToolMatch{ID: id, Score: s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
