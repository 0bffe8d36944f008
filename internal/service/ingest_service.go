package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/ai"
	"github.com/docqa/docqa/internal/chunk"
	"github.com/docqa/docqa/internal/extract"
	"github.com/docqa/docqa/internal/index"
	"github.com/docqa/docqa/internal/model"
)

// IngestService runs the extract, chunk, embed, index pipeline for documents.
type IngestService struct {
	idx         *index.VectorIndex
	embedder    ai.IEmbedder
	targetWords int
}

func NewIngestService(idx *index.VectorIndex, embedder ai.IEmbedder, targetWords int) *IngestService {
	if targetWords <= 0 {
		targetWords = chunk.DefaultTargetWords
	}
	return &IngestService{idx: idx, embedder: embedder, targetWords: targetWords}
}

// IngestReader extracts text from one document stream and indexes its
// passages. The base name of the document is used as its source id.
func (s *IngestService) IngestReader(ctx context.Context, name string, r io.Reader, mode model.IndexMode) (int, error) {
	sourceID := filepath.Base(name)
	logger := logutil.GetLogger(ctx).With(zap.String("source", sourceID))

	text, err := extract.Text(name, r)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", sourceID, err)
	}
	passages, err := chunk.Chunk(text, sourceID, s.targetWords)
	if err != nil {
		return 0, fmt.Errorf("chunk %s: %w", sourceID, err)
	}
	if err := s.idx.Build(ctx, passages, s.embedder.Embed, s.embedder.ModelName(), mode); err != nil {
		return 0, err
	}
	logger.Info("document ingested", zap.Int("passages", len(passages)))
	return len(passages), nil
}

// IngestFiles ingests a list of local files. The first file honors the given
// mode, the rest always append so a create run replaces the index exactly
// once.
func (s *IngestService) IngestFiles(ctx context.Context, paths []string, mode model.IndexMode) (int, error) {
	total := 0
	for i, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return total, fmt.Errorf("open %s: %w", path, err)
		}
		fileMode := mode
		if i > 0 {
			fileMode = model.IndexAppend
		}
		n, err := s.IngestReader(ctx, path, f, fileMode)
		f.Close()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
