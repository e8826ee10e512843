// Package hashtag extracts, normalizes and merges #tags found in free text.
// Everything here is pure: no storage, no clock.
package hashtag

import (
	"iter"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// MaxTags caps the tags stored on one feedback record.
	MaxTags = 10
	// MaxTagLength is the longest tag accepted by the statistics store.
	MaxTagLength = 50
	// MinSuggestionToken is the shortest word used for suggestions.
	MinSuggestionToken = 3
)

var (
	tagPattern  = regexp.MustCompile(`#([A-Za-z0-9_]+)`)
	invalidTag  = regexp.MustCompile(`[^a-z0-9_]+`)
	nonAlnumRun = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// Fold lower-cases s with Unicode-aware case folding.
func Fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Normalize turns a user-supplied tag into its stored form: a leading '#' is
// dropped, the text is lower-cased and characters outside [a-z0-9_] are
// removed. It returns "" when nothing usable is left or the tag is too long.
func Normalize(tag string) string {
	t := strings.TrimPrefix(strings.TrimSpace(tag), "#")
	t = invalidTag.ReplaceAllString(Fold(t), "")
	if len(t) > MaxTagLength {
		return ""
	}
	return t
}

// All yields the distinct tags written as #tag in content, lower-cased, in
// first-seen order.
func All(content string) iter.Seq[string] {
	return func(yield func(string) bool) {
		seen := make(map[string]struct{})
		for _, m := range tagPattern.FindAllStringSubmatch(content, -1) {
			t := Fold(m[1])
			if len(t) > MaxTagLength {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			if !yield(t) {
				return
			}
		}
	}
}

// Extract collects All(content).
func Extract(content string) []string {
	return slices.Collect(All(content))
}

// Merge combines explicit tags with the ones found in content. Explicit tags
// come first, duplicates collapse to their first occurrence, and the result
// is truncated to MaxTags.
func Merge(explicit []string, content string) []string {
	out := make([]string, 0, MaxTags)
	seen := make(map[string]struct{}, MaxTags)
	add := func(t string) bool {
		if t == "" {
			return true
		}
		if _, dup := seen[t]; dup {
			return true
		}
		seen[t] = struct{}{}
		out = append(out, t)
		return len(out) < MaxTags
	}
	for _, t := range explicit {
		if !add(Normalize(t)) {
			return out
		}
	}
	for t := range All(content) {
		if !add(t) {
			break
		}
	}
	return out
}

// Added returns the tags of next that are not in prev.
func Added(prev, next []string) []string {
	var out []string
	for _, t := range next {
		if !slices.Contains(prev, t) {
			out = append(out, t)
		}
	}
	return out
}

// SuggestionTokens splits text on whitespace, keeps words of at least
// MinSuggestionToken characters and strips everything that is not a letter
// or digit. Words left empty by stripping are skipped.
func SuggestionTokens(text string) []string {
	var out []string
	for _, w := range strings.Fields(text) {
		if utf8.RuneCountInString(w) < MinSuggestionToken {
			continue
		}
		if w = nonAlnumRun.ReplaceAllString(w, ""); w != "" {
			out = append(out, Fold(w))
		}
	}
	return out
}
