package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/model"
)

// QueryResult is one answered question with the passages that grounded it.
type QueryResult struct {
	Answer  string                `json:"answer"`
	Sources []model.ScoredPassage `json:"sources"`
	Intent  string                `json:"intent"`
	CostMS  int64                 `json:"cost_ms"`
	FromRAG bool                  `json:"from_rag"`
}

// QueryService ties intent classification, retrieval and generation into the
// single entry point both the HTTP API and the webhook use.
type QueryService struct {
	classifier *Classifier
	retriever  *Retriever
	generator  *Generator
}

func NewQueryService(classifier *Classifier, retriever *Retriever, generator *Generator) *QueryService {
	return &QueryService{classifier: classifier, retriever: retriever, generator: generator}
}

// Ask answers one question. Small talk short-circuits to a canned reply;
// everything else goes through retrieval and grounded generation.
func (s *QueryService) Ask(ctx context.Context, question string, topK int) (*QueryResult, error) {
	start := time.Now()
	logger := logutil.GetLogger(ctx).With(zap.String("question", question))

	decision := s.classifier.Classify(question)
	if !decision.UseRAG {
		logger.Debug("answered without retrieval", zap.String("intent", decision.Intent))
		return &QueryResult{
			Answer: decision.QuickReply,
			Intent: decision.Intent,
			CostMS: time.Since(start).Milliseconds(),
		}, nil
	}

	passages, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	answer, err := s.generator.Answer(ctx, question, passages, decision.Style)
	if err != nil {
		return nil, err
	}

	logger.Info("question answered",
		zap.Int("sources", len(passages)),
		zap.Duration("cost", time.Since(start)))
	return &QueryResult{
		Answer:  answer,
		Sources: passages,
		Intent:  decision.Intent,
		CostMS:  time.Since(start).Milliseconds(),
		FromRAG: true,
	}, nil
}
