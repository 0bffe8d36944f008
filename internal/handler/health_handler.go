package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docqa/docqa/internal/index"
	"github.com/docqa/docqa/internal/pkg/response"
)

// Pinger reports whether a backing provider is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	idx     *index.VectorIndex
	pingers map[string]Pinger
}

func NewHealthHandler(idx *index.VectorIndex, pingers map[string]Pinger) *HealthHandler {
	return &HealthHandler{idx: idx, pingers: pingers}
}

func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	if !h.idx.IsLoaded() {
		status = "degraded"
	}

	providers := make(map[string]string, len(h.pingers))
	for name, p := range h.pingers {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		if err := p.Ping(ctx); err != nil {
			providers[name] = "unreachable"
			status = "degraded"
		} else {
			providers[name] = "ok"
		}
		cancel()
	}

	response.Success(c, gin.H{
		"status":          status,
		"index_loaded":    h.idx.IsLoaded(),
		"passages":        h.idx.Len(),
		"dimension":       h.idx.Dimension(),
		"embedding_model": h.idx.EmbeddingModel(),
		"providers":       providers,
	})
}
