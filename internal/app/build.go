// Package app assembles the service graph from configuration. It is
// shared by the chat and indexer entrypoints.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"curriculum-rag/internal/classifier"
	"curriculum-rag/internal/config"
	"curriculum-rag/internal/document"
	"curriculum-rag/internal/domain"
	"curriculum-rag/internal/embedding"
	"curriculum-rag/internal/llm"
	"curriculum-rag/internal/retrieval"
	"curriculum-rag/internal/service"
	"curriculum-rag/internal/splitter"
	"curriculum-rag/internal/vectorstore"
	"curriculum-rag/internal/vectorstore/memory"
	"curriculum-rag/internal/vectorstore/qdrant"
)

// BuildService wires the configured embedder, vector store, splitter,
// filter and generator into a ready RAG service.
func BuildService(cfg *config.AppConfig, logger *zap.Logger) (*service.RAGServiceImpl, error) {
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "tfidf", "":
		emb = embedding.NewTFIDFEmbedder()
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init: %w", err)
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var st vectorstore.Storage
	switch cfg.VectorStore.Type {
	case "memory", "":
		st = memory.NewStorage()
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		st = qdrant.NewStorage(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	cls := classifier.New(classifier.Thresholds{
		MinTableCodes: cfg.Classifier.MinTableCodes,
		LatePage:      cfg.Classifier.LatePageThreshold,
	})
	table := splitter.DefaultTable()
	if !cfg.Chunking.UseDynamic {
		table = splitter.FixedTable(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	}
	split := splitter.New(cls, table)

	gen := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	}, logger)

	return service.NewRAGService(
		document.NewReader(),
		split,
		emb,
		st,
		retrieval.NewFilter(cfg.Retrieval.DedupeSignatureLen),
		gen,
		logger,
		service.Options{
			SearchK:          cfg.Retrieval.SearchK,
			MaxFragments:     cfg.Retrieval.MaxFragments,
			ContextBudget:    cfg.Retrieval.ContextBudget,
			MaxHistoryTurns:  cfg.Retrieval.MaxHistoryTurns,
			OverviewMaxLines: cfg.Retrieval.OverviewMaxLines,
		},
	), nil
}

// NewLogger builds the process logger. Debug mode uses the development
// config with console output.
func NewLogger(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
