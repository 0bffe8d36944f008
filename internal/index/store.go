package index

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/pkg/errs"
)

const (
	vectorsFile  = "vectors.gob"
	passagesFile = "passages.json"
)

// Snapshot is the full persisted state of an index: embedding vectors in
// insertion order plus the parallel passage metadata.
type Snapshot struct {
	Dim            int
	Vectors        [][]float32
	Passages       []model.Passage
	EmbeddingModel string
}

type vectorsRecord struct {
	Dim     int
	Vectors [][]float32
}

type metaRecord struct {
	EmbeddingModel string          `json:"embedding_model"`
	Count          int             `json:"count"`
	Passages       []model.Passage `json:"passages"`
}

// Store persists a Snapshot as a two-file pair under a single directory.
// Writes go to temp files first and are swapped in with rename so a crash
// never leaves a half-written index visible.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

// Load reads the persisted pair. A directory with neither file present is an
// empty corpus and returns (nil, nil). A pair that is missing one half,
// undecodable, or internally inconsistent returns ErrIndexCorrupt.
func (s *Store) Load() (*Snapshot, error) {
	vecPath := filepath.Join(s.dir, vectorsFile)
	metaPath := filepath.Join(s.dir, passagesFile)

	vecExists := fileExists(vecPath)
	metaExists := fileExists(metaPath)
	if !vecExists && !metaExists {
		return nil, nil
	}
	if vecExists != metaExists {
		return nil, fmt.Errorf("%w: index pair incomplete in %s", errs.ErrIndexCorrupt, s.dir)
	}

	vf, err := os.Open(vecPath)
	if err != nil {
		return nil, fmt.Errorf("open vectors: %w", err)
	}
	defer vf.Close()
	var vrec vectorsRecord
	if err := gob.NewDecoder(vf).Decode(&vrec); err != nil {
		return nil, fmt.Errorf("%w: decode vectors: %v", errs.ErrIndexCorrupt, err)
	}

	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("read passages: %w", err)
	}
	var mrec metaRecord
	if err := json.Unmarshal(raw, &mrec); err != nil {
		return nil, fmt.Errorf("%w: decode passages: %v", errs.ErrIndexCorrupt, err)
	}

	if len(vrec.Vectors) != len(mrec.Passages) {
		return nil, fmt.Errorf("%w: %d vectors but %d passages", errs.ErrIndexCorrupt, len(vrec.Vectors), len(mrec.Passages))
	}
	for _, vec := range vrec.Vectors {
		if len(vec) != vrec.Dim {
			return nil, fmt.Errorf("%w: vector length %d, index dimension %d", errs.ErrIndexCorrupt, len(vec), vrec.Dim)
		}
	}

	return &Snapshot{
		Dim:            vrec.Dim,
		Vectors:        vrec.Vectors,
		Passages:       mrec.Passages,
		EmbeddingModel: mrec.EmbeddingModel,
	}, nil
}

// Swap writes both halves of the pair to temp files, then renames them over
// the live files. Readers holding the previous in-memory snapshot are never
// affected.
func (s *Store) Swap(snap *Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	vecTmp := filepath.Join(s.dir, vectorsFile+".tmp")
	metaTmp := filepath.Join(s.dir, passagesFile+".tmp")

	if err := writeGob(vecTmp, &vectorsRecord{Dim: snap.Dim, Vectors: snap.Vectors}); err != nil {
		return err
	}
	if err := writeJSON(metaTmp, &metaRecord{
		EmbeddingModel: snap.EmbeddingModel,
		Count:          len(snap.Passages),
		Passages:       snap.Passages,
	}); err != nil {
		os.Remove(vecTmp)
		return err
	}

	if err := os.Rename(vecTmp, filepath.Join(s.dir, vectorsFile)); err != nil {
		os.Remove(vecTmp)
		os.Remove(metaTmp)
		return fmt.Errorf("swap vectors: %w", err)
	}
	if err := os.Rename(metaTmp, filepath.Join(s.dir, passagesFile)); err != nil {
		os.Remove(metaTmp)
		return fmt.Errorf("swap passages: %w", err)
	}
	return nil
}

func writeGob(path string, rec *vectorsRecord) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp vectors: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(rec); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode vectors: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("sync vectors: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close vectors: %w", err)
	}
	return nil
}

func writeJSON(path string, rec *metaRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode passages: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp passages: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write passages: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("sync passages: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close passages: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
