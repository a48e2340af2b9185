package feeds

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minWordLength is the shortest topic word considered significant; shorter
// words ("the", "of", "AI") match too much syndicated text.
const minWordLength = 4

// Matcher decides whether text is about a topic. Any significant topic word
// appearing anywhere is a match; feed copy rarely repeats a topic phrase verbatim.
type Matcher struct {
	patterns []*regexp.Regexp
}

// NewMatcher builds one case-insensitive pattern per significant word.
func NewMatcher(topic string) *Matcher {
	words := strings.FieldsFunc(topic, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	m := &Matcher{}
	seen := make(map[string]bool)
	for _, w := range words {
		w = strings.ToLower(w)
		if utf8.RuneCountInString(w) < minWordLength || seen[w] {
			continue
		}
		seen[w] = true
		m.patterns = append(m.patterns, regexp.MustCompile("(?i)"+regexp.QuoteMeta(w)))
	}
	return m
}

// Words returns the number of significant words in the topic.
func (m *Matcher) Words() int {
	return len(m.patterns)
}

// Match reports whether any topic word occurs in text. A topic with no
// significant words matches nothing.
func (m *Matcher) Match(text string) bool {
	for _, p := range m.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
