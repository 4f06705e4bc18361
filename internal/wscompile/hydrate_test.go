package wscompile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "span.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHydrate_SlicesByCharacterOffset(t *testing.T) {
	path := writeTempFile(t, "0123456789")
	h := newHydrator()

	text := h.hydrate(context.Background(), SpanRef{CharStart: 2, CharEnd: 5}, SpanMetadata{Filepath: path})

	assert.Equal(t, "234", text)
	assert.Empty(t, h.reasonsFor("missing"))
}

func TestHydrate_MultiByteRunesUseCharacterNotByteOffsets(t *testing.T) {
	// "héllo" has 5 runes but 6 bytes (é is 2 bytes in UTF-8); offsets must
	// be counted in runes.
	path := writeTempFile(t, "héllo")
	h := newHydrator()

	text := h.hydrate(context.Background(), SpanRef{SpanID: "s1", CharStart: 0, CharEnd: 2}, SpanMetadata{Filepath: path})

	assert.Equal(t, "hé", text)
}

func TestHydrate_ClampsOutOfRangeOffsets(t *testing.T) {
	path := writeTempFile(t, "short")
	h := newHydrator()

	text := h.hydrate(context.Background(), SpanRef{SpanID: "s1", CharStart: 0, CharEnd: 9999}, SpanMetadata{Filepath: path})

	assert.Equal(t, "short", text)
	assert.Contains(t, h.reasonsFor("s1"), ReasonHydrationClamped)
}

func TestHydrate_MissingFileReturnsEmptyWithReason(t *testing.T) {
	h := newHydrator()

	text := h.hydrate(context.Background(), SpanRef{SpanID: "s1", CharStart: 0, CharEnd: 10}, SpanMetadata{Filepath: "/does/not/exist.md"})

	assert.Equal(t, "", text)
	assert.Contains(t, h.reasonsFor("s1"), ReasonHydrationMissing)
}

func TestHydrate_CachesFileContentsAcrossSpans(t *testing.T) {
	path := writeTempFile(t, "abcdefghij")
	h := newHydrator()

	first := h.hydrate(context.Background(), SpanRef{SpanID: "s1", CharStart: 0, CharEnd: 3}, SpanMetadata{Filepath: path})
	require.NoError(t, os.Remove(path)) // prove the second read doesn't touch disk again
	second := h.hydrate(context.Background(), SpanRef{SpanID: "s2", CharStart: 3, CharEnd: 6}, SpanMetadata{Filepath: path})

	assert.Equal(t, "abc", first)
	assert.Equal(t, "def", second)
}

func TestHydrate_CancelledContextReturnsEmpty(t *testing.T) {
	path := writeTempFile(t, "content")
	h := newHydrator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	text := h.hydrate(ctx, SpanRef{CharStart: 0, CharEnd: 3}, SpanMetadata{Filepath: path})

	assert.Equal(t, "", text)
}
