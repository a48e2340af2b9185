package observability

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/newsdesk/internal/pipeline"
	"github.com/jonathan/newsdesk/internal/types"
)

func TestPrintRunReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &pipeline.RunReport{
		RunID:       uuid.New(),
		Topics:      []string{"technology", "science"},
		Duration:    1500 * time.Millisecond,
		Candidates:  12,
		Duplicates:  2,
		Jobs:        10,
		Rejected:    3,
		Unparseable: 1,
		Degraded:    1,
		Persisted:   6,

		RecentVoices: []string{"analyst", "storyteller"},
	}

	p.PrintRunReport(report, nil)
	output := buf.String()

	assert.Contains(t, output, "RUN REPORT")
	assert.Contains(t, output, "technology, science")
	assert.Contains(t, output, "12 (2 duplicates)")
	assert.Contains(t, output, "3 below quality threshold")
	assert.Contains(t, output, "1 unusable responses")
	assert.Contains(t, output, "6 drafts (1 degraded recoveries)")
	assert.Contains(t, output, "Recent voices: analyst, storyteller")
	assert.NotContains(t, output, "rewrite failures")
	assert.NotContains(t, output, "⚠")
}

func TestPrintRunReport_WithError(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRunReport(&pipeline.RunReport{}, errors.New("run interrupted: context canceled"))

	assert.Contains(t, buf.String(), "⚠ run interrupted: context canceled")
}

func TestPrintRunReport_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRunReport(nil, nil)

	assert.Empty(t, buf.String())
}

func TestPrintCandidates(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	var candidates []types.RawCandidate
	for i := 0; i < 7; i++ {
		candidates = append(candidates, types.RawCandidate{
			Title:       fmt.Sprintf("Story %d", i+1),
			URL:         fmt.Sprintf("https://example.com/%d", i+1),
			SourceName:  "Example Wire",
			PublishedAt: time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
		})
	}

	p.PrintCandidates("technology", candidates)
	output := buf.String()

	assert.Contains(t, output, "CANDIDATES: technology")
	assert.Contains(t, output, "Fetched 7 candidates")
	assert.Contains(t, output, "Story 5")
	assert.NotContains(t, output, "Story 6")
	assert.Contains(t, output, "... and 2 more candidates")
	assert.Contains(t, output, "Example Wire · 2026-03-01 08:30")
}

func TestPrintCandidates_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintCandidates("science", nil)

	assert.Contains(t, buf.String(), "No candidates found")
}

func TestPrintDrafts(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	drafts := []types.Article{
		{ID: uuid.New(), Title: "Grid storage doubles", QualityScore: 82, Category: "science", VoiceName: "The Analyst", RecoveryLayer: types.LayerStructural},
		{ID: uuid.New(), Title: "Chip exports slow", QualityScore: 64, Category: "business", VoiceName: "The Skeptic", RecoveryLayer: types.LayerDegraded},
	}

	p.PrintDrafts(drafts)
	output := buf.String()

	assert.Contains(t, output, "DRAFTS (2)")
	assert.Contains(t, output, "score 82 · science · The Analyst")
	assert.Contains(t, output, "score 64 · business · The Skeptic · degraded")
	assert.Equal(t, 1, strings.Count(output, "degraded"))
}

func TestPrintDrafts_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintDrafts(nil)

	assert.Contains(t, buf.String(), "NO DRAFTS AWAITING REVIEW")
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintProgress(pipeline.ProgressEvent{Stage: pipeline.StageScore, Topic: "technology", Title: "Grid storage doubles", Message: "scored 75"})

	assert.Equal(t, "[score        ] technology │ Grid storage doubles │ scored 75\n", buf.String())
}

func TestPrintBox_LinesAreAligned(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", "short\n"+strings.Repeat("é", 100)+"\n• bullet")

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, utf8.RuneCountInString(line), line)
	}
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "abcdefg...", clip("abcdefghijklmnop", 10))
	assert.Equal(t, "ééééééé...", clip(strings.Repeat("é", 20), 10))
}
