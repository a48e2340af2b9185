package types

import (
	"time"

	"github.com/google/uuid"
)

// ArticleStatus is the lifecycle state of a stored article
type ArticleStatus string

// Article lifecycle states. The pipeline only ever creates StatusDraft; the
// other transitions belong to the editorial review tooling.
const (
	StatusDraft        ArticleStatus = "draft"
	StatusPublished    ArticleStatus = "published"
	StatusNeedsRewrite ArticleStatus = "needs-rewrite"
)

// Article is the persisted unit produced by the pipeline.
type Article struct {
	ID            uuid.UUID     `json:"id" validate:"required"`
	Title         string        `json:"title" validate:"required,max=300"`
	Rewritten     string        `json:"rewritten" validate:"required"`
	Summary       string        `json:"summary" validate:"required"`
	OriginalBody  string        `json:"original_body"`
	Tags          []string      `json:"tags" validate:"min=1,max=5,dive,required"`
	Citations     []Citation    `json:"citations" validate:"dive"`
	Topic         string        `json:"topic" validate:"required"`
	Category      Category      `json:"category" validate:"required,oneof=news technology business science culture opinion"`
	PhotoCredit   string        `json:"photo_credit,omitempty"`
	Quotes        []Quote       `json:"quotes" validate:"dive"`
	VoiceID       string        `json:"voice_id" validate:"required"`
	VoiceName     string        `json:"voice_name" validate:"required"`
	SourceURL     string        `json:"source_url" validate:"omitempty,url"`
	SourceName    string        `json:"source_name"`
	Status        ArticleStatus `json:"status" validate:"required,oneof=draft published needs-rewrite"`
	Published     bool          `json:"published"`
	QualityScore  int           `json:"quality_score" validate:"min=0,max=100"`
	RecoveryLayer RecoveryLayer `json:"recovery_layer"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NewDraft assembles a draft article from a rewrite of candidate in voice.
func NewDraft(candidate RawCandidate, voice Voice, result *RewriteResult, score int) *Article {
	now := time.Now().UTC()
	title := result.Title
	if title == "" {
		title = candidate.Title
	}
	return &Article{
		ID:            uuid.New(),
		Title:         title,
		Rewritten:     result.Rewritten,
		Summary:       result.Summary,
		OriginalBody:  candidate.Content(),
		Tags:          result.Tags,
		Citations:     result.Citations,
		Topic:         result.Topic,
		Category:      result.Category,
		PhotoCredit:   result.PhotoCredit,
		Quotes:        result.Quotes,
		VoiceID:       voice.ID,
		VoiceName:     voice.Name,
		SourceURL:     candidate.URL,
		SourceName:    candidate.SourceName,
		Status:        StatusDraft,
		Published:     false,
		QualityScore:  score,
		RecoveryLayer: result.Layer,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
