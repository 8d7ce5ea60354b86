// Package history records finished jobs and answers similarity lookups
// over past prompts.
package history

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jonathan/ui-builder/internal/types"
)

// minTagLength excludes short tokens; only longer words are meaningful.
const minTagLength = 4

var stopwords = map[string]bool{
	"about": true, "after": true, "also": true, "with": true, "without": true, "that": true,
	"this": true, "these": true, "those": true, "from": true, "into": true, "have": true,
	"make": true, "create": true, "build": true, "design": true, "please": true, "some": true,
	"should": true, "would": true, "could": true, "want": true, "need": true, "like": true,
	"them": true, "they": true, "their": true, "there": true, "where": true, "when": true,
	"which": true, "while": true, "what": true, "will": true, "your": true, "using": true,
}

// Tags normalizes a prompt into its keyword set: lowercased, punctuation
// stripped, stopwords and tokens of three characters or fewer dropped,
// deduplicated and sorted.
func Tags(prompt string) []string {
	fields := strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := map[string]bool{}
	tags := []string{}
	for _, f := range fields {
		if len([]rune(f)) < minTagLength || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		tags = append(tags, f)
	}
	sort.Strings(tags)
	return tags
}

// Similarity is the Jaccard overlap of two sorted tag sets.
func Similarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	inter := 0
	union := len(set)
	seen := map[string]bool{}
	for _, t := range b {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

// rank scores candidates against the query tags and returns the best
// limit of them: most similar first, newer first on ties. Soft-deleted and
// non-overlapping candidates are dropped.
func rank(candidates []types.HistoryEntry, query []string, limit int) []types.HistoryEntry {
	out := make([]types.HistoryEntry, 0, len(candidates))
	for _, c := range candidates {
		if c.SoftDeleted {
			continue
		}
		score := Similarity(query, c.Tags)
		if score == 0 {
			continue
		}
		c.Similarity = types.Round2(score)
		c.Tags = append([]string(nil), c.Tags...)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := Similarity(query, out[i].Tags), Similarity(query, out[j].Tags)
		if si != sj {
			return si > sj
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
