package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/docqa/docqa/internal/gateway"
	"github.com/docqa/docqa/internal/index"
	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/service"
	"github.com/docqa/docqa/internal/whatsapp"
)

const (
	testVerifyToken = "verify-me"
	testAppSecret   = "app-secret"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	// Crude keyword embedding: enough for ranking to be deterministic.
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "vitiligo"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(lower, "influenza"):
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

func (stubEmbedder) ModelName() string { return "stub-model" }

type stubLLM struct {
	mu         sync.Mutex
	lastPrompt string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	s.mu.Lock()
	s.lastPrompt = prompt
	s.mu.Unlock()
	return "Vitiligo causes patches of skin to lose their pigment.", nil
}

func (s *stubLLM) prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPrompt
}

type graphRecorder struct {
	mu    sync.Mutex
	sends []sentText
	reads []string
	ch    chan sentText
}

type sentText struct {
	To   string
	Body string
}

func newGraphRecorder() *graphRecorder {
	return &graphRecorder{ch: make(chan sentText, 16)}
}

func (g *graphRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			To     string `json:"to"`
			Status string `json:"status"`
			Text   struct {
				Body string `json:"body"`
			} `json:"text"`
			MessageID string `json:"message_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		g.mu.Lock()
		if req.Status == "read" {
			g.reads = append(g.reads, req.MessageID)
		} else {
			msg := sentText{To: req.To, Body: req.Text.Body}
			g.sends = append(g.sends, msg)
			g.ch <- msg
		}
		g.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (g *graphRecorder) sendCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sends)
}

func (g *graphRecorder) waitForSend(t *testing.T) sentText {
	t.Helper()
	select {
	case msg := <-g.ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("no reply dispatched within deadline")
		return sentText{}
	}
}

func newTestIndex(t *testing.T) *index.VectorIndex {
	t.Helper()
	embedder := stubEmbedder{}
	idx := index.NewVectorIndex(index.NewStore(t.TempDir()))
	passages := []model.Passage{
		{ID: "p1", Text: "Vitiligo is a condition in which skin loses its pigment cells.", SourceDocument: "vitiligo.pdf", SequenceIndex: 0},
		{ID: "p2", Text: "Influenza spreads through respiratory droplets.", SourceDocument: "flu.pdf", SequenceIndex: 0},
	}
	require.NoError(t, idx.Build(context.Background(), passages, embedder.Embed, embedder.ModelName(), model.IndexCreate))
	return idx
}

func newTestRouter(t *testing.T, graph *graphRecorder, llm *stubLLM) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	idx := newTestIndex(t)
	retriever := service.NewRetriever(idx, stubEmbedder{}, 3, 10, 0.3)
	generator := service.NewGenerator(llm, 0.7, time.Minute, 4096)
	queries := service.NewQueryService(service.NewClassifier(), retriever, generator)

	server := httptest.NewServer(graph.handler())
	t.Cleanup(server.Close)
	sender := whatsapp.NewClient(server.URL, "token", "12345", 5*time.Second, 1)

	deduper := gateway.NewDeduper(100, time.Minute)
	msglog := service.NewMessageLogService(nil)
	gw := gateway.New(queries, sender, deduper, msglog)

	engine := gin.New()
	engine.GET("/webhook", NewWebhookHandler(gw, testVerifyToken, testAppSecret, time.Minute).Verify)
	engine.POST("/webhook", NewWebhookHandler(gw, testVerifyToken, testAppSecret, time.Minute).Receive)
	return engine
}

func webhookBody(t *testing.T, messageID, from, text string) []byte {
	t.Helper()
	payload := fmt.Sprintf(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "entry-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"contacts": [{"wa_id": %q, "profile": {"name": "Tester"}}],
					"messages": [{"id": %q, "from": %q, "timestamp": "1700000000", "type": "text", "text": {"body": %q}}]
				}
			}]
		}]
	}`, from, messageID, from, text)
	return []byte(payload)
}

func postWebhook(engine *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestWebhookVerifyChallenge(t *testing.T) {
	engine := newTestRouter(t, newGraphRecorder(), &stubLLM{})

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token="+testVerifyToken+"&hub.challenge=12345abc", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "12345abc", w.Body.String())
}

func TestWebhookVerifyWrongToken(t *testing.T) {
	engine := newTestRouter(t, newGraphRecorder(), &stubLLM{})

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345abc", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	graph := newGraphRecorder()
	engine := newTestRouter(t, graph, &stubLLM{})
	body := webhookBody(t, "wamid.sig", "15551234567", "what is vitiligo")

	// Valid signature over a different body.
	sig := gateway.Sign(testAppSecret, []byte("other body"))
	w := postWebhook(engine, body, sig)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = postWebhook(engine, body, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, graph.sendCount())
}

func TestWebhookMalformedPayloadRejected(t *testing.T) {
	graph := newGraphRecorder()
	engine := newTestRouter(t, graph, &stubLLM{})
	body := []byte("{not json")
	w := postWebhook(engine, body, gateway.Sign(testAppSecret, body))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, graph.sendCount())
}

func TestWebhookEndToEndAnswer(t *testing.T) {
	graph := newGraphRecorder()
	llm := &stubLLM{}
	engine := newTestRouter(t, graph, llm)

	body := webhookBody(t, "wamid.e2e", "15551234567", "what is vitiligo?")
	w := postWebhook(engine, body, gateway.Sign(testAppSecret, body))
	require.Equal(t, http.StatusOK, w.Code)

	sent := graph.waitForSend(t)
	require.Equal(t, "15551234567", sent.To)
	require.Contains(t, sent.Body, "Vitiligo")

	// The grounded prompt carried the indexed passage, not the flu one.
	require.Contains(t, llm.prompt(), "skin loses its pigment cells")
	require.Contains(t, llm.prompt(), "vitiligo.pdf")
	require.NotContains(t, llm.prompt(), "flu.pdf")
}

func TestWebhookDuplicateDeliveryDispatchedOnce(t *testing.T) {
	graph := newGraphRecorder()
	engine := newTestRouter(t, graph, &stubLLM{})

	body := webhookBody(t, "wamid.dup", "15551234567", "what is vitiligo?")
	sig := gateway.Sign(testAppSecret, body)
	require.Equal(t, http.StatusOK, postWebhook(engine, body, sig).Code)
	require.Equal(t, http.StatusOK, postWebhook(engine, body, sig).Code)

	graph.waitForSend(t)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, graph.sendCount())
}

func TestWebhookGreetingSkipsRetrieval(t *testing.T) {
	graph := newGraphRecorder()
	llm := &stubLLM{}
	engine := newTestRouter(t, graph, llm)

	body := webhookBody(t, "wamid.greet", "15551234567", "hi")
	w := postWebhook(engine, body, gateway.Sign(testAppSecret, body))
	require.Equal(t, http.StatusOK, w.Code)

	sent := graph.waitForSend(t)
	require.NotEmpty(t, sent.Body)
	require.Empty(t, llm.prompt())
}
