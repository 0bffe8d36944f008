package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docqa/docqa/internal/index"
	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/pkg/errs"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	model   string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := f.vectors[text]; ok {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) ModelName() string {
	if f.model == "" {
		return "fake-model"
	}
	return f.model
}

func buildTestIndex(t *testing.T, embedder *fakeEmbedder, passages []model.Passage) *index.VectorIndex {
	t.Helper()
	idx := index.NewVectorIndex(index.NewStore(t.TempDir()))
	require.NoError(t, idx.Build(context.Background(), passages, embedder.Embed, embedder.ModelName(), model.IndexCreate))
	return idx
}

func TestRetrieveFiltersByMinScore(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"skin":     {1, 0, 0},
		"heart":    {0, 1, 0},
		"question": {1, 0, 0},
	}}
	idx := buildTestIndex(t, embedder, []model.Passage{
		{ID: "p1", Text: "skin", SourceDocument: "a.pdf"},
		{ID: "p2", Text: "heart", SourceDocument: "b.pdf"},
	})
	r := NewRetriever(idx, embedder, 3, 10, 0.5)

	hits, err := r.Retrieve(context.Background(), "question", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "p1", hits[0].ID)
}

func TestRetrieveEmptyResultIsNotAnError(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"skin":     {1, 0, 0},
		"question": {0, 1, 0},
	}}
	idx := buildTestIndex(t, embedder, []model.Passage{
		{ID: "p1", Text: "skin", SourceDocument: "a.pdf"},
	})
	r := NewRetriever(idx, embedder, 3, 10, 0.9)

	hits, err := r.Retrieve(context.Background(), "question", 0)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestRetrieveUnloadedIndex(t *testing.T) {
	idx := index.NewVectorIndex(index.NewStore(t.TempDir()))
	r := NewRetriever(idx, &fakeEmbedder{}, 3, 10, 0.3)
	_, err := r.Retrieve(context.Background(), "question", 0)
	require.True(t, errors.Is(err, errs.ErrIndexUnavailable))
}

func TestRetrieveClampsTopK(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{"question": {1, 0, 0}}}
	var passages []model.Passage
	for i := 0; i < 15; i++ {
		passages = append(passages, model.Passage{
			ID:             string(rune('a' + i)),
			Text:           "question",
			SourceDocument: "doc.pdf",
			SequenceIndex:  i,
		})
	}
	idx := buildTestIndex(t, embedder, passages)
	r := NewRetriever(idx, embedder, 3, 10, 0)

	hits, err := r.Retrieve(context.Background(), "question", 100)
	require.NoError(t, err)
	require.Len(t, hits, 10)
}
