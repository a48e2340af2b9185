package rewriting

import (
	"regexp"
	"sort"
	"strings"
)

var (
	tagPattern    = regexp.MustCompile(`<\s*/?\s*([a-zA-Z][a-zA-Z0-9]*)[^>]*>`)
	allowedTags   = map[string]bool{"p": true, "strong": true, "em": true}
	stripTagsExpr = regexp.MustCompile(`<[^>]*>`)
)

// StyleReport describes how closely a rewritten body follows the format
// requested in the prompt. It is advisory; nothing is rejected on it.
type StyleReport struct {
	Words          int
	Paragraphs     int
	DisallowedTags []string
	WithinLength   bool
	EnoughParas    bool
}

// CheckStyle inspects the HTML body of a rewrite.
func CheckStyle(body string) StyleReport {
	report := StyleReport{
		Words: len(strings.Fields(stripTagsExpr.ReplaceAllString(body, " "))),
	}

	seen := make(map[string]bool)
	for _, m := range tagPattern.FindAllStringSubmatch(body, -1) {
		tag := strings.ToLower(m[1])
		if tag == "p" && !strings.HasPrefix(strings.TrimSpace(m[0][1:]), "/") {
			report.Paragraphs++
		}
		if !allowedTags[tag] && !seen[tag] {
			seen[tag] = true
			report.DisallowedTags = append(report.DisallowedTags, tag)
		}
	}
	sort.Strings(report.DisallowedTags)

	report.WithinLength = report.Words >= MinWords && report.Words <= MaxWords
	report.EnoughParas = report.Paragraphs >= MinParagraphs
	return report
}

// Clean reports whether the body met every requested format rule.
func (r StyleReport) Clean() bool {
	return r.WithinLength && r.EnoughParas && len(r.DisallowedTags) == 0
}
