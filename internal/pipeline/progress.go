package pipeline

// Stage names reported through ProgressEvent
const (
	StageSelectTopics = "select_topics"
	StageFetch        = "fetch"
	StageSelectVoice  = "select_voice"
	StageRewrite      = "rewrite"
	StageParse        = "parse"
	StageScore        = "score"
	StagePersist      = "persist"
	StageDiscard      = "discard"
	StageDone         = "done"
)

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Stage   string `json:"stage"`
	RunID   string `json:"run_id"`
	Topic   string `json:"topic,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs. Rewrite jobs run
// concurrently, so the callback must be safe for concurrent use.
type ProgressCallback func(event ProgressEvent)

// emit calls the progress callback if configured
func (o *Orchestrator) emit(event ProgressEvent) {
	if o.opts.OnProgress != nil {
		o.opts.OnProgress(event)
	}
}
