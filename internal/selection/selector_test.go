package selection

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/newsdesk/internal/types"
)

func testVoices(n int) []types.Voice {
	voices := make([]types.Voice, n)
	for i := range voices {
		voices[i] = types.Voice{
			ID:             fmt.Sprintf("voice-%d", i),
			Name:           fmt.Sprintf("Voice %d", i),
			StyleDirective: "Write plainly.",
		}
	}
	return voices
}

func seeded(a, b uint64) Option {
	return WithRand(rand.New(rand.NewPCG(a, b)))
}

func TestSelectVoice_NoRepeatWithinWindow(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		s := NewSelector(nil, testVoices(5), seeded(seed, 7))

		var picks []string
		for i := 0; i < 30; i++ {
			v, ok := s.SelectVoice()
			require.True(t, ok)
			picks = append(picks, v.ID)
		}

		for i := range picks {
			for j := i + 1; j < len(picks) && j <= i+DefaultVoiceHistory; j++ {
				assert.NotEqual(t, picks[i], picks[j], "seed %d: %s repeated within %d picks", seed, picks[i], DefaultVoiceHistory)
			}
		}
	}
}

func TestSelectVoice_SmallCatalogFallsBackToFullSet(t *testing.T) {
	s := NewSelector(nil, testVoices(2), seeded(1, 2))

	for i := 0; i < 10; i++ {
		_, ok := s.SelectVoice()
		assert.True(t, ok)
	}
	assert.LessOrEqual(t, len(s.RecentVoices()), DefaultVoiceHistory)
}

func TestSelectVoice_SingleVoice(t *testing.T) {
	voices := testVoices(1)
	s := NewSelector(nil, voices)

	for i := 0; i < 4; i++ {
		v, ok := s.SelectVoice()
		require.True(t, ok)
		assert.Equal(t, voices[0], v)
	}
}

func TestSelectVoice_EmptyCatalog(t *testing.T) {
	s := NewSelector(nil, nil)
	v, ok := s.SelectVoice()
	assert.False(t, ok)
	assert.Equal(t, types.Voice{}, v)
}

func TestSelectVoice_HistoryIsFIFO(t *testing.T) {
	s := NewSelector(nil, testVoices(6), seeded(3, 4))

	var picks []string
	for i := 0; i < 5; i++ {
		v, _ := s.SelectVoice()
		picks = append(picks, v.ID)
	}
	assert.Equal(t, picks[2:], s.RecentVoices())
}

func TestSelectTopics_Distinct(t *testing.T) {
	topics := []string{"economy", "climate", "space", "health", "elections", "sports", "film", "energy"}
	s := NewSelector(topics, nil, seeded(5, 6))

	picked := s.SelectTopics(3)
	require.Len(t, picked, 3)

	seen := map[string]bool{}
	for _, p := range picked {
		assert.False(t, seen[p])
		assert.Contains(t, topics, p)
		seen[p] = true
	}
}

func TestSelectTopics_AvoidsRecentWindow(t *testing.T) {
	topics := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	s := NewSelector(topics, nil, seeded(9, 9))

	first := s.SelectTopics(3)
	second := s.SelectTopics(3)
	for _, p := range second {
		assert.NotContains(t, first, p)
	}
	assert.Len(t, s.RecentTopics(), DefaultTopicHistory)
}

func TestSelectTopics_FallsBackWhenPoolTooSmall(t *testing.T) {
	topics := []string{"a", "b", "c", "d"}
	s := NewSelector(topics, nil, seeded(1, 1))

	s.SelectTopics(3)
	// one fresh topic left, three needed
	picked := s.SelectTopics(3)
	assert.Len(t, picked, 3)
}

func TestSelectTopics_MoreThanAvailable(t *testing.T) {
	s := NewSelector([]string{"a", "b"}, nil)
	assert.ElementsMatch(t, []string{"a", "b"}, s.SelectTopics(5))
}

func TestSelectTopics_Empty(t *testing.T) {
	assert.Nil(t, NewSelector(nil, nil).SelectTopics(3))
	assert.Nil(t, NewSelector([]string{"a"}, nil).SelectTopics(0))
}

func TestSelector_ConcurrentUse(t *testing.T) {
	s := NewSelector([]string{"a", "b", "c", "d", "e", "f"}, testVoices(4))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.SelectTopics(2)
			s.SelectVoice()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, len(s.RecentVoices()), DefaultVoiceHistory)
	assert.LessOrEqual(t, len(s.RecentTopics()), DefaultTopicHistory)
}
