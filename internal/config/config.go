package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ChunkingConfig configures how documents are split into fragments.
// ChunkSize and ChunkOverlap apply only when UseDynamic is false; with
// dynamic chunking each content type carries its own tuned strategy.
type ChunkingConfig struct {
	UseDynamic   bool `yaml:"use_dynamic"`
	ChunkSize    int  `yaml:"chunk_size"`
	ChunkOverlap int  `yaml:"chunk_overlap"`
}

// ClassifierConfig holds the tuned classifier thresholds.
type ClassifierConfig struct {
	MinTableCodes     int `yaml:"min_table_codes"`
	LatePageThreshold int `yaml:"late_page_threshold"`
}

// RetrievalConfig configures query-time fragment selection.
type RetrievalConfig struct {
	SearchK            int `yaml:"search_k"`
	MaxFragments       int `yaml:"max_fragments"`
	ContextBudget      int `yaml:"context_budget"`
	DedupeSignatureLen int `yaml:"dedupe_signature_len"`
	MaxHistoryTurns    int `yaml:"max_history_turns"`
	OverviewMaxLines   int `yaml:"overview_max_lines"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible
// embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// LLMConfig configures the answer generator.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Classifier  ClassifierConfig  `yaml:"classifier"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	LLM         LLMConfig         `yaml:"llm"`
}

// Load reads a config from path. A missing file returns the defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the full default configuration: dynamic chunking on,
// local TF-IDF embedder, in-memory store, local Ollama generation.
func Default() *AppConfig {
	cfg := &AppConfig{
		Chunking:    ChunkingConfig{UseDynamic: true, ChunkSize: 1000, ChunkOverlap: 200},
		Embedder:    EmbedderConfig{Type: "tfidf"},
		VectorStore: VectorStoreConfig{Type: "memory"},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 200
	}
	if cfg.Classifier.MinTableCodes == 0 {
		cfg.Classifier.MinTableCodes = 3
	}
	if cfg.Classifier.LatePageThreshold == 0 {
		cfg.Classifier.LatePageThreshold = 45
	}
	if cfg.Retrieval.SearchK == 0 {
		cfg.Retrieval.SearchK = 5
	}
	if cfg.Retrieval.MaxFragments == 0 {
		cfg.Retrieval.MaxFragments = 2
	}
	if cfg.Retrieval.ContextBudget == 0 {
		cfg.Retrieval.ContextBudget = 1500
	}
	if cfg.Retrieval.DedupeSignatureLen == 0 {
		cfg.Retrieval.DedupeSignatureLen = 100
	}
	if cfg.Retrieval.MaxHistoryTurns == 0 {
		cfg.Retrieval.MaxHistoryTurns = 25
	}
	if cfg.Retrieval.OverviewMaxLines == 0 {
		cfg.Retrieval.OverviewMaxLines = 3
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "http://localhost:11434"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemma2:2b"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 512
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}
}
