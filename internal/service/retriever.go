package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/ai"
	"github.com/docqa/docqa/internal/index"
	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/pkg/errs"
)

// Retriever embeds a question and pulls the most relevant passages from the
// index, dropping anything below the score floor.
type Retriever struct {
	idx      *index.VectorIndex
	embedder ai.IEmbedder
	topK     int
	maxTopK  int
	minScore float32
}

func NewRetriever(idx *index.VectorIndex, embedder ai.IEmbedder, topK, maxTopK int, minScore float32) *Retriever {
	return &Retriever{
		idx:      idx,
		embedder: embedder,
		topK:     topK,
		maxTopK:  maxTopK,
		minScore: minScore,
	}
}

// Retrieve returns up to topK passages scoring at or above the floor. A topK
// of zero or less falls back to the configured default; values above the cap
// are clamped. An empty result is not an error, only an index that never
// finished loading is.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]model.ScoredPassage, error) {
	if !r.idx.IsLoaded() {
		return nil, errs.ErrIndexUnavailable
	}
	if topK <= 0 {
		topK = r.topK
	}
	if topK > r.maxTopK {
		topK = r.maxTopK
	}

	queryVec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits := r.idx.Search(queryVec, topK)
	filtered := hits[:0]
	for _, h := range hits {
		if h.Score >= r.minScore {
			filtered = append(filtered, h)
		}
	}
	logutil.GetLogger(ctx).Debug("retrieval finished",
		zap.Int("top_k", topK),
		zap.Int("hits", len(hits)),
		zap.Int("kept", len(filtered)))
	return filtered, nil
}
