package filter

import (
	"regexp"
	"strings"
)

// tokenPattern matches a double-quoted phrase or a run of non-space characters
var tokenPattern = regexp.MustCompile(`"([^"]*)"|(\S+)`)

// Query is a parsed free-text criteria: OR-groups of AND-tokens, lowercased
type Query struct {
	groups [][]string
}

// ParseQuery splits text on '|' into OR-groups and each group into tokens.
// Blank groups are dropped. An empty quoted token ("") is kept and is
// contained in every message.
func ParseQuery(text string) Query {
	var q Query
	for _, group := range strings.Split(text, "|") {
		if strings.TrimSpace(group) == "" {
			continue
		}
		q.groups = append(q.groups, SplitQuotedText(strings.ToLower(group)))
	}
	return q
}

// SplitQuotedText tokenizes text into words, keeping "quoted phrases" as a
// single token without the quotes
func SplitQuotedText(text string) []string {
	matches := tokenPattern.FindAllStringSubmatch(text, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		if m[2] != "" {
			tokens = append(tokens, m[2])
		} else {
			tokens = append(tokens, m[1])
		}
	}
	return tokens
}

// Empty returns true if the query has no groups and so matches everything
func (q Query) Empty() bool {
	return len(q.groups) == 0
}

// Groups returns the parsed OR-groups
func (q Query) Groups() [][]string {
	return q.groups
}

// Match reports whether at least one group has all of its tokens contained
// in s, ignoring case
func (q Query) Match(s string) bool {
	if q.Empty() {
		return true
	}
	lower := strings.ToLower(s)
	for _, group := range q.groups {
		if containsAll(lower, group) {
			return true
		}
	}
	return false
}

func containsAll(s string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(s, tok) {
			return false
		}
	}
	return true
}
