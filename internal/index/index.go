package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/pkg/errs"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// EmbedFunc turns a passage text into an embedding vector.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// VectorIndex is an in-memory flat inner-product index with file-backed
// persistence. Searches run concurrently against an immutable in-memory
// snapshot; builds are serialized and swap the whole snapshot at once.
type VectorIndex struct {
	store *Store

	ingestMu sync.Mutex

	mu             sync.RWMutex
	dim            int
	vectors        [][]float32
	passages       []model.Passage
	embeddingModel string
	loaded         bool
}

func NewVectorIndex(store *Store) *VectorIndex {
	return &VectorIndex{store: store}
}

// Load reads the persisted pair into memory. Missing files mean an empty
// corpus and still count as loaded; a corrupt pair leaves the index unloaded.
func (idx *VectorIndex) Load(ctx context.Context) error {
	snap, err := idx.store.Load()
	if err != nil {
		return err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if snap == nil {
		idx.dim = 0
		idx.vectors = nil
		idx.passages = nil
		idx.embeddingModel = ""
		idx.loaded = true
		logutil.GetLogger(ctx).Info("no persisted index found, starting with empty corpus", zap.String("dir", idx.store.Dir()))
		return nil
	}
	idx.dim = snap.Dim
	idx.vectors = snap.Vectors
	idx.passages = snap.Passages
	idx.embeddingModel = snap.EmbeddingModel
	idx.loaded = true
	logutil.GetLogger(ctx).Info("index loaded",
		zap.Int("passages", len(snap.Passages)),
		zap.Int("dimension", snap.Dim),
		zap.String("embedding_model", snap.EmbeddingModel))
	return nil
}

func (idx *VectorIndex) IsLoaded() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.loaded
}

func (idx *VectorIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.passages)
}

func (idx *VectorIndex) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dim
}

func (idx *VectorIndex) EmbeddingModel() string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.embeddingModel
}

// Sources returns the distinct source documents currently indexed.
func (idx *VectorIndex) Sources() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, p := range idx.passages {
		if _, ok := seen[p.SourceDocument]; ok {
			continue
		}
		seen[p.SourceDocument] = struct{}{}
		out = append(out, p.SourceDocument)
	}
	return out
}

// Build embeds the given passages and installs a new snapshot, either from
// scratch or appended to the current contents. Only one build runs at a time;
// searches keep serving the previous snapshot until the swap. The persisted
// pair is written before the in-memory state changes, so a failed build
// leaves both untouched.
func (idx *VectorIndex) Build(ctx context.Context, passages []model.Passage, embed EmbedFunc, embeddingModel string, mode model.IndexMode) error {
	idx.ingestMu.Lock()
	defer idx.ingestMu.Unlock()

	logger := logutil.GetLogger(ctx)

	base := &Snapshot{EmbeddingModel: embeddingModel}
	if mode == model.IndexAppend {
		idx.mu.RLock()
		base.Dim = idx.dim
		base.Vectors = append([][]float32(nil), idx.vectors...)
		base.Passages = append([]model.Passage(nil), idx.passages...)
		if idx.embeddingModel != "" {
			base.EmbeddingModel = idx.embeddingModel
		}
		idx.mu.RUnlock()
		if base.EmbeddingModel != embeddingModel {
			logger.Warn("appending with a different embedding model than the persisted index",
				zap.String("index_model", base.EmbeddingModel),
				zap.String("current_model", embeddingModel))
		}
	}

	existing := make(map[string]struct{}, len(base.Passages))
	for _, p := range base.Passages {
		existing[p.ID] = struct{}{}
	}

	added := 0
	for _, p := range passages {
		if _, ok := existing[p.ID]; ok {
			logger.Debug("passage already indexed, skipping", zap.String("passage_id", p.ID))
			continue
		}
		vec, err := embed(ctx, p.Text)
		if err != nil {
			return fmt.Errorf("embed passage %s: %w", p.ID, err)
		}
		if base.Dim == 0 {
			base.Dim = len(vec)
		} else if len(vec) != base.Dim {
			return fmt.Errorf("%w: got %d, index dimension is %d", errs.ErrDimensionMismatch, len(vec), base.Dim)
		}
		base.Vectors = append(base.Vectors, Normalize(vec))
		base.Passages = append(base.Passages, p)
		existing[p.ID] = struct{}{}
		added++
	}

	if err := idx.store.Swap(base); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}

	idx.mu.Lock()
	idx.dim = base.Dim
	idx.vectors = base.Vectors
	idx.passages = base.Passages
	idx.embeddingModel = base.EmbeddingModel
	idx.loaded = true
	idx.mu.Unlock()

	logger.Info("index build finished",
		zap.Int("added", added),
		zap.Int("total", len(base.Passages)),
		zap.Int("dimension", base.Dim))
	return nil
}

// Search returns up to k passages ranked by inner product against the query
// vector, highest first. The query is normalized before scoring. An empty or
// smaller-than-k index returns however many entries exist.
func (idx *VectorIndex) Search(query []float32, k int) []model.ScoredPassage {
	if k <= 0 {
		return nil
	}
	q := Normalize(append([]float32(nil), query...))

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if len(idx.passages) == 0 {
		return nil
	}

	scored := make([]model.ScoredPassage, 0, len(idx.passages))
	for i, vec := range idx.vectors {
		scored = append(scored, model.ScoredPassage{
			Passage: idx.passages[i],
			Score:   dot(q, vec),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}
