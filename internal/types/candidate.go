// Package types provides type definitions for structured data used throughout the newsdesk pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"time"
)

// RawCandidate is one syndicated item considered for rewriting in a run.
// Candidates live only for the duration of a run and are never stored as-is.
type RawCandidate struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Body        string    `json:"body"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Author      string    `json:"author,omitempty"`
	SourceName  string    `json:"source_name"`
}

// Text returns the concatenated searchable text of the candidate.
func (c RawCandidate) Text() string {
	return strings.Join([]string{c.Title, c.Description, c.Body}, "\n")
}

// Content returns the richest text the feed provided: the body when present,
// otherwise the description.
func (c RawCandidate) Content() string {
	if strings.TrimSpace(c.Body) != "" {
		return c.Body
	}
	return c.Description
}

// DedupKey identifies a candidate across sources
func (c RawCandidate) DedupKey() string {
	if c.URL != "" {
		return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(c.URL)), "/")
	}
	return strings.ToLower(strings.TrimSpace(c.Title))
}
