// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import "strings"

const fence = "```"

// FencedBlock returns the interior of the first markdown code fence in text.
// Models often wrap JSON in ```json ... ``` even when told not to. An
// unterminated fence yields everything after the opening line.
func FencedBlock(text string) (string, bool) {
	start := strings.Index(text, fence)
	if start < 0 {
		return text, false
	}
	rest := text[start+len(fence):]

	// Skip a language identifier on the opening line
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(rest[:idx])
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {[") {
			rest = rest[idx+1:]
		}
	}

	if end := strings.Index(rest, fence); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}
