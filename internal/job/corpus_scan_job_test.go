package job

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docqa/docqa/internal/docsource"
	"github.com/docqa/docqa/internal/index"
	"github.com/docqa/docqa/internal/service"
)

type staticEmbedder struct{}

func (staticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (staticEmbedder) ModelName() string { return "static" }

func TestCorpusScanIngestsNewDocuments(t *testing.T) {
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.txt"), []byte("alpha beta"), 0o644))

	source, err := docsource.New("local", map[string]interface{}{"dir": docs})
	require.NoError(t, err)

	idx := index.NewVectorIndex(index.NewStore(t.TempDir()))
	require.NoError(t, idx.Load(context.Background()))
	ingest := service.NewIngestService(idx, staticEmbedder{}, 300)
	j := NewCorpusScanJob(source, idx, ingest)

	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, []string{"a.txt"}, idx.Sources())

	// Second run sees nothing new.
	before := idx.Len()
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, before, idx.Len())

	// A new document gets picked up on the next pass.
	require.NoError(t, os.WriteFile(filepath.Join(docs, "b.txt"), []byte("gamma delta"), 0o644))
	require.NoError(t, j.Run(context.Background()))
	require.ElementsMatch(t, []string{"a.txt", "b.txt"}, idx.Sources())
}

func TestCorpusScanSkipsUnsupportedFiles(t *testing.T) {
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "junk.bin"), []byte{0x00, 0x01}, 0o644))

	source, err := docsource.New("local", map[string]interface{}{"dir": docs})
	require.NoError(t, err)

	idx := index.NewVectorIndex(index.NewStore(t.TempDir()))
	require.NoError(t, idx.Load(context.Background()))
	ingest := service.NewIngestService(idx, staticEmbedder{}, 300)
	j := NewCorpusScanJob(source, idx, ingest)

	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, []string{"a.txt"}, idx.Sources())
}
