package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/docsource"
	"github.com/docqa/docqa/internal/index"
	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/service"
)

// CorpusScanJob watches a document source and appends anything the index has
// not seen yet. Indexed passages of a document never change, so a document
// already present is skipped by name.
type CorpusScanJob struct {
	source docsource.Source
	idx    *index.VectorIndex
	ingest *service.IngestService
}

func NewCorpusScanJob(source docsource.Source, idx *index.VectorIndex, ingest *service.IngestService) *CorpusScanJob {
	return &CorpusScanJob{source: source, idx: idx, ingest: ingest}
}

func (j *CorpusScanJob) Name() string {
	return "corpus_scan"
}

func (j *CorpusScanJob) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)

	names, err := j.source.List(ctx)
	if err != nil {
		return err
	}
	indexed := make(map[string]struct{})
	for _, src := range j.idx.Sources() {
		indexed[src] = struct{}{}
	}

	added := 0
	for _, name := range names {
		if _, ok := indexed[name]; ok {
			continue
		}
		r, err := j.source.Open(ctx, name)
		if err != nil {
			logger.Error("failed to open document", zap.String("name", name), zap.Error(err))
			continue
		}
		n, err := j.ingest.IngestReader(ctx, name, r, model.IndexAppend)
		r.Close()
		if err != nil {
			logger.Error("failed to ingest document", zap.String("name", name), zap.Error(err))
			continue
		}
		added += n
	}
	if added > 0 {
		logger.Info("corpus scan added passages", zap.Int("passages", added))
	}
	return nil
}
