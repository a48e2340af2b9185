package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	prompt, err := Get("rewriting.json", "rewrite-article")
	require.NoError(t, err)
	assert.Contains(t, prompt, "Rewrite the source item")
	assert.Contains(t, prompt, `"photoCredit"`)
}

func TestGet_InvalidFile(t *testing.T) {
	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	_, err := Get("rewriting.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestMustGet_ValidPrompt(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.NotEmpty(t, MustGet("rewriting.json", "rewrite-system"))
	})
}

func TestFormat(t *testing.T) {
	template := "Hello {{.Name}}, welcome to {{.Desk}}!"
	data := map[string]string{
		"Name": "Alice",
		"Desk": "the science desk",
	}

	assert.Equal(t, "Hello Alice, welcome to the science desk!", Format(template, data))
}

func TestFormat_NoPlaceholders(t *testing.T) {
	template := "No placeholders here"
	assert.Equal(t, template, Format(template, map[string]string{"Key": "Value"}))
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Hello {{.Name}}"
	assert.Equal(t, template, Format(template, map[string]string{}))
}

func TestFormat_SubstitutedTextIsNotExpanded(t *testing.T) {
	template := "{{.Body}} by {{.Author}}"
	data := map[string]string{
		"Body":   "literal {{.Author}}",
		"Author": "Sam",
	}
	assert.Equal(t, "literal {{.Author}} by Sam", Format(template, data))
}

func TestFill_MissingValues(t *testing.T) {
	template := MustGet("rewriting.json", "rewrite-system")

	_, err := Fill(template, map[string]string{"VoiceName": "Analyst"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VoiceDescription")
	assert.Contains(t, err.Error(), "StyleDirective")
}

func TestFill_AllValues(t *testing.T) {
	out, err := Fill(MustGet("rewriting.json", "rewrite-system"), map[string]string{
		"VoiceName":        "The Analyst",
		"VoiceDescription": "Measured and data-driven.",
		"StyleDirective":   "Lead with numbers.",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "The Analyst")
	assert.Contains(t, out, "Lead with numbers.")
	assert.NotContains(t, out, "{{.")
}

func TestFill_RepeatedPlaceholderReportedOnce(t *testing.T) {
	_, err := Fill("{{.A}} and {{.A}} and {{.B}}", map[string]string{})
	require.Error(t, err)
	assert.Equal(t, "prompt missing values for: A, B", err.Error())
}
