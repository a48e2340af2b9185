package parsing

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/newsdesk/internal/llm"
)

var brPattern = regexp.MustCompile(`(?i)^<\s*br\s*/?\s*>`)

// extractFenced returns the interior of the first code fence, or the whole
// text when there is none.
func extractFenced(text string) string {
	inner, _ := llm.FencedBlock(text)
	return strings.TrimSpace(inner)
}

func isCurlyDouble(r rune) bool {
	return r == '“' || r == '”' || r == '„' || r == '‟' || r == '″'
}

func isCurlySingle(r rune) bool {
	return r == '‘' || r == '’' || r == '‚' || r == '‛' || r == '′'
}

// normalizeJSON fixes lexical damage that strict JSON decoders reject. It
// tracks whether the scan is inside a string value so the same character can
// be repaired differently in each context:
//   - backslashes that do not start a valid escape are escaped
//   - curly double quotes become delimiters outside strings; inside a string
//     opened by a curly quote they may close it, inside one opened by a
//     straight quote they always become \"
//   - unescaped straight quotes inside a string that are not followed by a
//     structural character become \"
//   - curly single quotes become '
//   - <br> variants become a newline, or a \n escape inside strings
//   - raw control characters inside strings are escaped
func normalizeJSON(text string) string {
	var sb strings.Builder
	sb.Grow(len(text) + 16)

	inString := false
	curlyOpened := false
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])

		if r == '<' {
			if m := brPattern.FindString(text[i:]); m != "" {
				if inString {
					sb.WriteString(`\n`)
				} else {
					sb.WriteByte('\n')
				}
				i += len(m)
				continue
			}
		}

		if isCurlySingle(r) {
			sb.WriteByte('\'')
			i += size
			continue
		}

		if !inString {
			if r == '"' || isCurlyDouble(r) {
				sb.WriteByte('"')
				inString = true
				curlyOpened = r != '"'
			} else {
				sb.WriteRune(r)
			}
			i += size
			continue
		}

		switch {
		case r == '\\':
			if n := validEscapeLen(text[i:]); n > 0 {
				sb.WriteString(text[i : i+n])
				i += n
				continue
			}
			sb.WriteString(`\\`)
		case isCurlyDouble(r) && !curlyOpened:
			sb.WriteString(`\"`)
		case r == '"' || isCurlyDouble(r):
			if closesString(text[i+size:]) {
				sb.WriteByte('"')
				inString = false
			} else {
				sb.WriteString(`\"`)
			}
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r < 0x20:
			// other control characters carry no meaning in prose
		default:
			sb.WriteRune(r)
		}
		i += size
	}
	return sb.String()
}

// validEscapeLen returns the byte length of the JSON escape at the start of
// s (which begins with a backslash), or 0 if it is not a valid escape.
func validEscapeLen(s string) int {
	if len(s) < 2 {
		return 0
	}
	switch s[1] {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return 2
	case 'u':
		if len(s) < 6 {
			return 0
		}
		for _, c := range s[2:6] {
			if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
				return 0
			}
		}
		return 6
	}
	return 0
}

// closesString reports whether a quote followed by rest ends a string value:
// the next significant character is structural, the text ends, or the value
// is followed by a line break.
func closesString(rest string) bool {
	sawNewline := false
	for _, r := range rest {
		if r == '\n' || r == '\r' {
			sawNewline = true
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}
		switch r {
		case ':', ',', '}', ']':
			return true
		}
		return sawNewline
	}
	return true
}
