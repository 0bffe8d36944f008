package gateway

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Deduper remembers message ids for a sliding window so webhook redeliveries
// are processed at most once. The LRU cap bounds memory if WhatsApp floods
// retries.
type Deduper struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, struct{}]
}

func NewDeduper(maxEntries int, window time.Duration) *Deduper {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &Deduper{
		cache: expirable.NewLRU[string, struct{}](maxEntries, nil, window),
	}
}

// Seen marks the id and reports whether it was already present. The check and
// insert happen under one lock so concurrent deliveries of the same id get
// exactly one false.
func (d *Deduper) Seen(messageID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.cache.Get(messageID); ok {
		return true
	}
	d.cache.Add(messageID, struct{}{})
	return false
}

func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cache.Len()
}
