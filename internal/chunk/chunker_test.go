package chunk

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docqa/docqa/internal/pkg/errs"
)

func TestChunkSplitsOnWordCount(t *testing.T) {
	words := make([]string, 650)
	for i := range words {
		words[i] = "word"
	}
	passages, err := Chunk(strings.Join(words, " "), "doc.pdf", 300)
	require.NoError(t, err)
	require.Len(t, passages, 3)
	require.Len(t, strings.Fields(passages[0].Text), 300)
	require.Len(t, strings.Fields(passages[1].Text), 300)
	require.Len(t, strings.Fields(passages[2].Text), 50)
	for i, p := range passages {
		require.Equal(t, "doc.pdf", p.SourceDocument)
		require.Equal(t, i, p.SequenceIndex)
	}
}

func TestChunkIDsAreDeterministic(t *testing.T) {
	first, err := Chunk("alpha beta gamma", "doc.pdf", 2)
	require.NoError(t, err)
	second, err := Chunk("alpha beta gamma", "doc.pdf", 2)
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i].ID, second[i].ID)
	}
	// Same text under another source id must not collide.
	other, err := Chunk("alpha beta gamma", "other.pdf", 2)
	require.NoError(t, err)
	require.NotEqual(t, first[0].ID, other[0].ID)
}

func TestChunkEmptyDocument(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t \n"} {
		_, err := Chunk(text, "doc.pdf", 300)
		require.True(t, errors.Is(err, errs.ErrEmptyDocument))
	}
}

func TestChunkWhitespaceNormalization(t *testing.T) {
	passages, err := Chunk("one\n\ntwo\t three   four", "doc.txt", 300)
	require.NoError(t, err)
	require.Len(t, passages, 1)
	require.Equal(t, "one two three four", passages[0].Text)
}
