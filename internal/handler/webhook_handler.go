package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/gateway"
	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/pkg/errs"
	"github.com/docqa/docqa/internal/whatsapp"
)

const maxWebhookBody = 1 << 20

// WebhookHandler terminates the WhatsApp webhook: challenge echo on GET,
// signature check plus fast ack on POST. Message processing continues in the
// background after the ack.
type WebhookHandler struct {
	gw             *gateway.Gateway
	verifyToken    string
	appSecret      string
	processTimeout time.Duration
}

func NewWebhookHandler(gw *gateway.Gateway, verifyToken, appSecret string, processTimeout time.Duration) *WebhookHandler {
	if processTimeout <= 0 {
		processTimeout = 5 * time.Minute
	}
	return &WebhookHandler{
		gw:             gw,
		verifyToken:    verifyToken,
		appSecret:      appSecret,
		processTimeout: processTimeout,
	}
}

// Verify answers Meta's subscription handshake.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")
	if mode == "subscribe" && token == h.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	logutil.GetLogger(c.Request.Context()).Warn("webhook verification rejected", zap.String("mode", mode))
	c.String(http.StatusForbidden, "verification failed")
}

// Receive acks the delivery as soon as the signature and payload check out.
// Everything past parsing, including events the bot cannot answer, still acks
// with 200 so WhatsApp does not redeliver.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.String(http.StatusBadRequest, "read failed")
		return
	}
	logger := logutil.GetLogger(c.Request.Context())

	if err := gateway.VerifySignature(h.appSecret, body, c.GetHeader("X-Hub-Signature-256")); err != nil {
		logger.Warn("webhook signature rejected", zap.Error(err))
		c.String(http.StatusUnauthorized, "invalid signature")
		return
	}

	var payload model.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Warn("webhook payload rejected", zap.Error(fmt.Errorf("%w: %v", errs.ErrMalformedPayload, err)))
		c.String(http.StatusBadRequest, "malformed payload")
		return
	}

	for _, msg := range whatsapp.ParseIncoming(&payload) {
		if h.gw.Deduper().Seen(msg.MessageID) {
			logger.Info("duplicate delivery skipped", zap.String("message_id", msg.MessageID))
			continue
		}
		go func(m model.IncomingMessage) {
			ctx, cancel := context.WithTimeout(context.Background(), h.processTimeout)
			defer cancel()
			h.gw.Process(ctx, m)
		}(msg)
	}
	c.String(http.StatusOK, "ok")
}
