package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	RateLimitMS int              `json:"rate_limit_ms"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Store       StoreConfig      `json:"vector_store"`
	Chunking    ChunkingConfig   `json:"chunking"`
	Embedding   ProviderConfig   `json:"embedding"`
	LLM         LLMConfig        `json:"llm"`
	Retrieval   RetrievalConfig  `json:"retrieval"`
	WhatsApp    WhatsAppConfig   `json:"whatsapp"`
	Dedup       DedupConfig      `json:"dedup"`
	Corpus      CorpusConfig     `json:"corpus"`
	Database    DatabaseConfig   `json:"database"`
}

type StoreConfig struct {
	Dir string `json:"dir"`
}

type ChunkingConfig struct {
	TargetWords int `json:"target_words"`
}

type ProviderConfig struct {
	Provider  string      `json:"provider"`
	Model     string      `json:"model"`
	Data      interface{} `json:"data"`
	CacheSize int         `json:"cache_size"`
	CacheTTL  int         `json:"cache_ttl_minutes"`
}

type LLMConfig struct {
	Provider       string      `json:"provider"`
	Model          string      `json:"model"`
	Data           interface{} `json:"data"`
	TimeoutSeconds int         `json:"timeout_seconds"`
	Temperature    float64     `json:"temperature"`
	MaxReplyChars  int         `json:"max_reply_chars"`
}

type RetrievalConfig struct {
	TopK     int     `json:"top_k"`
	MaxTopK  int     `json:"max_top_k"`
	MinScore float64 `json:"min_score"`
}

type WhatsAppConfig struct {
	AccessToken    string `json:"access_token"`
	PhoneNumberID  string `json:"phone_number_id"`
	VerifyToken    string `json:"verify_token"`
	AppSecret      string `json:"app_secret"`
	APIBase        string `json:"api_base"`
	SendTimeoutSec int    `json:"send_timeout_seconds"`
	MaxAttempts    int    `json:"max_attempts"`
}

type DedupConfig struct {
	WindowMinutes int `json:"window_minutes"`
	MaxEntries    int `json:"max_entries"`
}

// CorpusConfig drives the scheduled scan of a document source; empty type
// disables the job.
type CorpusConfig struct {
	Source   string      `json:"source"`
	Data     interface{} `json:"data"`
	ScanSpec string      `json:"scan_spec"`
}

// DatabaseConfig enables the optional message log; empty DSN disables it.
type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = "./vector_store"
	}
	if cfg.Chunking.TargetWords <= 0 {
		cfg.Chunking.TargetWords = 300
	}
	if cfg.Embedding.Provider == "" {
		return nil, fmt.Errorf("embedding.provider is required")
	}
	if cfg.Embedding.CacheSize > 0 && cfg.Embedding.CacheTTL <= 0 {
		cfg.Embedding.CacheTTL = 60
	}
	if cfg.LLM.Provider == "" {
		return nil, fmt.Errorf("llm.provider is required")
	}
	if cfg.LLM.TimeoutSeconds <= 0 {
		cfg.LLM.TimeoutSeconds = 120
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.MaxReplyChars <= 0 {
		cfg.LLM.MaxReplyChars = 4096
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.MaxTopK <= 0 {
		cfg.Retrieval.MaxTopK = 10
	}
	if cfg.Retrieval.MinScore == 0 {
		cfg.Retrieval.MinScore = 0.3
	}
	if cfg.WhatsApp.APIBase == "" {
		cfg.WhatsApp.APIBase = "https://graph.facebook.com/v18.0"
	}
	if cfg.WhatsApp.SendTimeoutSec <= 0 {
		cfg.WhatsApp.SendTimeoutSec = 30
	}
	if cfg.WhatsApp.MaxAttempts <= 0 {
		cfg.WhatsApp.MaxAttempts = 3
	}
	if cfg.Dedup.WindowMinutes <= 0 {
		cfg.Dedup.WindowMinutes = 60
	}
	if cfg.Dedup.MaxEntries <= 0 {
		cfg.Dedup.MaxEntries = 10000
	}
	if cfg.Corpus.Source != "" && cfg.Corpus.ScanSpec == "" {
		cfg.Corpus.ScanSpec = "*/10 * * * *"
	}
	return &cfg, nil
}
