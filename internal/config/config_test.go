package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"embedding": {"provider": "ollama", "model": "nomic-embed-text"},
		"llm": {"provider": "ollama", "model": "mistral"}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 300, cfg.Chunking.TargetWords)
	require.Equal(t, 120, cfg.LLM.TimeoutSeconds)
	require.Equal(t, 0.7, cfg.LLM.Temperature)
	require.Equal(t, 4096, cfg.LLM.MaxReplyChars)
	require.Equal(t, 3, cfg.Retrieval.TopK)
	require.Equal(t, 10, cfg.Retrieval.MaxTopK)
	require.Equal(t, 0.3, cfg.Retrieval.MinScore)
	require.Equal(t, "https://graph.facebook.com/v18.0", cfg.WhatsApp.APIBase)
	require.Equal(t, 3, cfg.WhatsApp.MaxAttempts)
	require.Equal(t, 60, cfg.Dedup.WindowMinutes)
	require.Equal(t, 10000, cfg.Dedup.MaxEntries)
}

func TestLoadRequiresProviders(t *testing.T) {
	path := writeConfig(t, `{"llm": {"provider": "ollama"}}`)
	_, err := Load(path)
	require.Error(t, err)

	path = writeConfig(t, `{"embedding": {"provider": "ollama"}}`)
	_, err = Load(path)
	require.Error(t, err)
}

func TestLoadCorpusScanDefault(t *testing.T) {
	path := writeConfig(t, `{
		"embedding": {"provider": "ollama"},
		"llm": {"provider": "ollama"},
		"corpus": {"source": "local", "data": {"dir": "/docs"}}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "*/10 * * * *", cfg.Corpus.ScanSpec)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
