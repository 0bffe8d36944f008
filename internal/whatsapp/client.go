package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/pkg/errs"
)

// Client talks to the WhatsApp Cloud API (Graph API) for one phone number.
type Client struct {
	apiBase       string
	accessToken   string
	phoneNumberID string
	maxAttempts   int
	backoffBase   time.Duration
	http          *http.Client
}

func NewClient(apiBase, accessToken, phoneNumberID string, sendTimeout time.Duration, maxAttempts int) *Client {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Client{
		apiBase:       strings.TrimRight(apiBase, "/"),
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		maxAttempts:   maxAttempts,
		backoffBase:   time.Second,
		http:          &http.Client{Timeout: sendTimeout},
	}
}

type textMessage struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type sendRequest struct {
	MessagingProduct string          `json:"messaging_product"`
	RecipientType    string          `json:"recipient_type,omitempty"`
	To               string          `json:"to,omitempty"`
	Type             string          `json:"type,omitempty"`
	Text             *textMessage    `json:"text,omitempty"`
	Context          *messageContext `json:"context,omitempty"`
	Status           string          `json:"status,omitempty"`
	MessageID        string          `json:"message_id,omitempty"`
}

type messageContext struct {
	MessageID string `json:"message_id"`
}

// SendText delivers a text reply, optionally threaded onto the message being
// answered. Transient failures are retried with exponential backoff up to the
// configured attempt limit; exhausting it maps to ErrDispatchFailed.
func (c *Client) SendText(ctx context.Context, to, text, replyToMessageID string) error {
	req := &sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &textMessage{Body: text},
	}
	if replyToMessageID != "" {
		req.Context = &messageContext{MessageID: replyToMessageID}
	}

	logger := logutil.GetLogger(ctx).With(zap.String("to", to))
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.post(ctx, req); err != nil {
			lastErr = err
			logger.Warn("send attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.maxAttempts),
				zap.Error(err))
			if attempt < c.maxAttempts {
				select {
				case <-time.After(c.backoff(attempt)):
				case <-ctx.Done():
					return fmt.Errorf("%w: %v", errs.ErrDispatchFailed, ctx.Err())
				}
			}
			continue
		}
		logger.Info("message sent", zap.Int("attempt", attempt))
		return nil
	}
	return fmt.Errorf("%w: %v", errs.ErrDispatchFailed, lastErr)
}

// MarkAsRead flips the sender's message to read. Failures are logged by the
// caller and never block the reply.
func (c *Client) MarkAsRead(ctx context.Context, messageID string) error {
	return c.post(ctx, &sendRequest{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	})
}

func (c *Client) post(ctx context.Context, payload *sendRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s/messages", c.apiBase, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph api status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}

func (c *Client) backoff(attempt int) time.Duration {
	return time.Duration(1<<(attempt-1)) * c.backoffBase
}

// ParseIncoming flattens a webhook payload into the text messages it carries.
// Status updates and non-text messages are skipped.
func ParseIncoming(payload *model.WebhookPayload) []model.IncomingMessage {
	var out []model.IncomingMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string)
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}
			for _, msg := range change.Value.Messages {
				if msg.Type != "text" || msg.Text.Body == "" {
					continue
				}
				out = append(out, model.IncomingMessage{
					MessageID:   msg.ID,
					From:        msg.From,
					Text:        msg.Text.Body,
					Timestamp:   msg.Timestamp,
					ContactName: names[msg.From],
				})
			}
		}
	}
	return out
}
