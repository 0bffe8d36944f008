package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/repo"
)

// MessageLogService records answered webhook messages. It is optional: with
// no repo configured every call is a no-op, and a failed write never fails
// the message flow.
type MessageLogService struct {
	repo *repo.MessageLogRepo
}

func NewMessageLogService(r *repo.MessageLogRepo) *MessageLogService {
	return &MessageLogService{repo: r}
}

func (s *MessageLogService) Enabled() bool {
	return s != nil && s.repo != nil
}

func (s *MessageLogService) Record(ctx context.Context, messageID, sender, question, reply string, delivered bool, cost time.Duration) {
	if !s.Enabled() {
		return
	}
	entry := &model.MessageLog{
		MessageID:  messageID,
		Sender:     sender,
		Question:   question,
		Reply:      reply,
		Delivered:  delivered,
		DurationMS: cost.Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if err := s.repo.Save(ctx, entry); err != nil {
		logutil.GetLogger(ctx).Error("failed to record message log", zap.Error(err))
	}
}

func (s *MessageLogService) Recent(ctx context.Context, limit int) ([]model.MessageLog, error) {
	return s.repo.ListRecent(ctx, limit)
}

func (s *MessageLogService) Stats(ctx context.Context, days int) ([]model.DailyStats, error) {
	return s.repo.DailyStats(ctx, days)
}
