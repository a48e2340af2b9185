// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/newsdesk/internal/pipeline"
	"github.com/jonathan/newsdesk/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// clip shortens s to at most n runes, marking the cut with "...".
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(clip(line, inner), inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad right-pads s with spaces to n runes; %-*s counts bytes.
func pad(s string, n int) string {
	if c := utf8.RuneCountInString(s); c < n {
		return s + strings.Repeat(" ", n-c)
	}
	return s
}

// PrintRunReport outputs the outcome counters of a pipeline run.
func (p *Printer) PrintRunReport(report *pipeline.RunReport, runErr error) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", report.RunID))
	sb.WriteString(fmt.Sprintf("Topics:     %s\n", strings.Join(report.Topics, ", ")))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", report.Duration.Round(time.Millisecond)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Candidates: %d (%d duplicates)\n", report.Candidates, report.Duplicates))
	sb.WriteString(fmt.Sprintf("Rewritten:  %d attempted\n", report.Jobs))
	if report.RewriteFailures > 0 {
		sb.WriteString(fmt.Sprintf("  ✗ %d rewrite failures\n", report.RewriteFailures))
	}
	if report.Unparseable > 0 {
		sb.WriteString(fmt.Sprintf("  ✗ %d unusable responses\n", report.Unparseable))
	}
	if report.Rejected > 0 {
		sb.WriteString(fmt.Sprintf("  ✗ %d below quality threshold\n", report.Rejected))
	}
	if report.PersistFailures > 0 {
		sb.WriteString(fmt.Sprintf("  ✗ %d failed to persist\n", report.PersistFailures))
	}
	sb.WriteString(fmt.Sprintf("Persisted:  %d drafts", report.Persisted))
	if report.Degraded > 0 {
		sb.WriteString(fmt.Sprintf(" (%d degraded recoveries)", report.Degraded))
	}
	if len(report.RecentVoices) > 0 {
		sb.WriteString(fmt.Sprintf("\nRecent voices: %s", strings.Join(report.RecentVoices, ", ")))
	}
	if runErr != nil {
		sb.WriteString(fmt.Sprintf("\n\n⚠ %s", runErr))
	}

	p.printBox("RUN REPORT", sb.String())
}

// PrintCandidates outputs the candidates fetched for a topic.
func (p *Printer) PrintCandidates(topic string, candidates []types.RawCandidate) {
	if len(candidates) == 0 {
		p.printBox("CANDIDATES: "+topic, "No candidates found")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Fetched %d candidates:\n\n", len(candidates)))

	count := min(len(candidates), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := candidates[i]
		sb.WriteString(fmt.Sprintf("• %s\n", c.Title))
		meta := c.SourceName
		if !c.PublishedAt.IsZero() {
			meta += " · " + c.PublishedAt.Format("2006-01-02 15:04")
		}
		sb.WriteString(fmt.Sprintf("  %s\n", meta))
		if c.URL != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", c.URL))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(candidates) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more candidates", len(candidates)-maxItemsToShow))
	}

	p.printBox("CANDIDATES: "+topic, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDrafts outputs stored drafts awaiting review.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintDrafts(drafts []types.Article) {
	if len(drafts) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %s │\n", pad("NO DRAFTS AWAITING REVIEW", boxWidth-4))
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	for i, d := range drafts {
		sb.WriteString(fmt.Sprintf("%s\n", d.Title))
		sb.WriteString(fmt.Sprintf("  score %d · %s · %s", d.QualityScore, d.Category, d.VoiceName))
		if d.RecoveryLayer == types.LayerDegraded {
			sb.WriteString(" · degraded")
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("  %s · %s\n", d.ID, d.CreatedAt.Format("2006-01-02 15:04")))
		if i < len(drafts)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox(fmt.Sprintf("DRAFTS (%d)", len(drafts)), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProgress outputs one line per pipeline progress event.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(event pipeline.ProgressEvent) {
	var parts []string
	if event.Topic != "" {
		parts = append(parts, event.Topic)
	}
	if event.Title != "" {
		parts = append(parts, clip(event.Title, 40))
	}
	parts = append(parts, event.Message)
	fmt.Fprintf(p.out, "[%-13s] %s\n", event.Stage, strings.Join(parts, " │ "))
}
