package gateway

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/service"
	"github.com/docqa/docqa/internal/whatsapp"
)

const apologyReply = "I apologize, but I'm having trouble processing your request right now. Please try again later."

// Gateway turns verified inbound messages into answered replies. Processing
// happens after the webhook was acked, so every failure path ends in either a
// delivered reply or a delivered apology, never a webhook error.
type Gateway struct {
	queries *service.QueryService
	sender  *whatsapp.Client
	deduper *Deduper
	msglog  *service.MessageLogService
}

func New(queries *service.QueryService, sender *whatsapp.Client, deduper *Deduper, msglog *service.MessageLogService) *Gateway {
	return &Gateway{
		queries: queries,
		sender:  sender,
		deduper: deduper,
		msglog:  msglog,
	}
}

func (g *Gateway) Deduper() *Deduper {
	return g.deduper
}

// Process answers one inbound message end to end. The caller runs it in its
// own goroutine with a fresh context; the webhook response has already gone
// out.
func (g *Gateway) Process(ctx context.Context, msg model.IncomingMessage) {
	logger := logutil.GetLogger(ctx).With(
		zap.String("message_id", msg.MessageID),
		zap.String("from", msg.From))

	start := time.Now()
	if err := g.sender.MarkAsRead(ctx, msg.MessageID); err != nil {
		logger.Warn("failed to mark message as read", zap.Error(err))
	}

	reply := apologyReply
	result, err := g.queries.Ask(ctx, msg.Text, 0)
	if err != nil {
		logger.Error("failed to answer message", zap.Error(err))
	} else {
		reply = result.Answer
	}

	delivered := true
	if err := g.sender.SendText(ctx, msg.From, reply, msg.MessageID); err != nil {
		delivered = false
		logger.Error("failed to deliver reply", zap.Error(err))
	}
	g.msglog.Record(ctx, msg.MessageID, msg.From, msg.Text, reply, delivered, time.Since(start))
}
