package wscompile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildReasons_TagsChannelMatches(t *testing.T) {
	c := makeCandidate("d1", "s1", 10, ScoreChannels{Semantic: 0.8, Lexical: 0.5})

	reasons := buildReasons(c, nil, nil)

	assert.Contains(t, reasons, ReasonSemanticMatch)
	assert.Contains(t, reasons, ReasonLexicalMatch)
	assert.NotContains(t, reasons, ReasonStructuralMatch)
	assert.NotContains(t, reasons, ReasonGraphHop)
}

func TestBuildReasons_TagsSessionAndMemorySources(t *testing.T) {
	session := makeCandidate("d1", "s1", 10, ScoreChannels{})
	session.Metadata.SourceType = SourceSession
	assert.Contains(t, buildReasons(session, nil, nil), ReasonSessionPrelude)

	memory := makeCandidate("d2", "s2", 10, ScoreChannels{})
	memory.Metadata.SourceType = SourceMemory
	assert.Contains(t, buildReasons(memory, nil, nil), ReasonMemoryHit)
}

func TestBuildReasons_TagsRecentAtOrAboveHalf(t *testing.T) {
	c := makeCandidate("d1", "s1", 10, ScoreChannels{})
	c.Metadata.RecencyScore = 0.5
	assert.Contains(t, buildReasons(c, nil, nil), ReasonRecent)

	stale := makeCandidate("d2", "s2", 10, ScoreChannels{})
	stale.Metadata.RecencyScore = 0.1
	assert.NotContains(t, buildReasons(stale, nil, nil), ReasonRecent)
}

func TestBuildReasons_TagsStagePreferred(t *testing.T) {
	c := makeCandidate("d1", "s1", 10, ScoreChannels{})
	c.Metadata.Stage = StageImpl

	assert.Contains(t, buildReasons(c, map[Stage]float64{StageImpl: 0.5}, nil), ReasonStagePreferred)
	assert.NotContains(t, buildReasons(c, nil, nil), ReasonStagePreferred)
}

func TestBuildReasons_AppendsHydrationReasons(t *testing.T) {
	c := makeCandidate("d1", "s1", 10, ScoreChannels{})

	reasons := buildReasons(c, nil, []ReasonTag{ReasonHydrationClamped})

	assert.Contains(t, reasons, ReasonHydrationClamped)
}

func TestBuildSourceDistribution_ComputesShareOfTotalTokens(t *testing.T) {
	dist := buildSourceDistribution([]string{"/a.md", "/a.md", "/b.md"}, []int{30, 30, 40}, 100)

	assert.InDelta(t, 0.6, dist["/a.md"], 1e-9)
	assert.InDelta(t, 0.4, dist["/b.md"], 1e-9)
}

func TestBuildSourceDistribution_EmptyWhenZeroTotalTokens(t *testing.T) {
	dist := buildSourceDistribution(nil, nil, 0)
	assert.Empty(t, dist)
}
