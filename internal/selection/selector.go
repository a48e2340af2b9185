// Package selection picks topics and voices for a pipeline run, steering away
// from recent picks so consecutive runs do not repeat themselves.
package selection

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonathan/newsdesk/internal/types"
)

// History bounds
const (
	DefaultVoiceHistory = 3
	DefaultTopicHistory = 5
)

// Selector owns the rolling selection history. The zero value is not usable;
// construct with NewSelector. Safe for concurrent use.
type Selector struct {
	topics []string
	voices []types.Voice

	voiceBound int
	topicBound int

	mu           sync.Mutex
	rng          *rand.Rand
	recentVoices []string
	recentTopics []string
}

// Option customizes a Selector.
type Option func(*Selector)

// WithRand makes selection deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(s *Selector) { s.rng = rng }
}

// NewSelector creates a selector over the topic list and voice catalog.
func NewSelector(topics []string, voices []types.Voice, opts ...Option) *Selector {
	s := &Selector{
		topics:     append([]string(nil), topics...),
		voices:     append([]types.Voice(nil), voices...),
		voiceBound: DefaultVoiceHistory,
		topicBound: DefaultTopicHistory,
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x766f696365)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SelectTopics returns up to n distinct topics, preferring ones outside the
// recent window. When too few fresh topics remain the whole list is used.
func (s *Selector) SelectTopics(n int) []string {
	if n <= 0 || len(s.topics) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pool := exclude(s.topics, s.recentTopics)
	if len(pool) < n {
		pool = append([]string(nil), s.topics...)
	}
	if n > len(pool) {
		n = len(pool)
	}

	picked := make([]string, 0, n)
	for _, idx := range s.rng.Perm(len(pool))[:n] {
		picked = append(picked, pool[idx])
	}

	s.recentTopics = remember(s.recentTopics, picked, s.topicBound)
	return picked
}

// SelectVoice returns a voice not used in the recent window when possible.
// ok is false only when the catalog is empty.
func (s *Selector) SelectVoice() (types.Voice, bool) {
	if len(s.voices) == 0 {
		return types.Voice{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recent := make(map[string]bool, len(s.recentVoices))
	for _, id := range s.recentVoices {
		recent[id] = true
	}
	pool := make([]types.Voice, 0, len(s.voices))
	for _, v := range s.voices {
		if !recent[v.ID] {
			pool = append(pool, v)
		}
	}
	if len(pool) == 0 {
		pool = s.voices
	}

	voice := pool[s.rng.IntN(len(pool))]
	s.recentVoices = remember(s.recentVoices, []string{voice.ID}, s.voiceBound)
	return voice, true
}

// RecentVoices returns the voice IDs in the window, oldest first.
func (s *Selector) RecentVoices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recentVoices...)
}

// RecentTopics returns the topics in the window, oldest first.
func (s *Selector) RecentTopics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recentTopics...)
}

func exclude(all, recent []string) []string {
	skip := make(map[string]bool, len(recent))
	for _, r := range recent {
		skip[r] = true
	}
	out := make([]string, 0, len(all))
	for _, a := range all {
		if !skip[a] {
			out = append(out, a)
		}
	}
	return out
}

// remember appends picks and drops the oldest entries beyond bound.
func remember(history, picks []string, bound int) []string {
	history = append(history, picks...)
	if over := len(history) - bound; over > 0 {
		history = append([]string(nil), history[over:]...)
	}
	return history
}
