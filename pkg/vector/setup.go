package vector

import (
	"log/slog"

	"github.com/andrew/vecdash/pkg/config"
	"github.com/andrew/vecdash/pkg/embedding"
	"github.com/andrew/vecdash/pkg/session"
)

// NewFromConfig wires a Store to the Qdrant and Ollama endpoints named in cfg
func NewFromConfig(cfg config.Config, logger *slog.Logger) (*Store, error) {
	embedder, err := embedding.NewOllamaEmbedder(embedding.OllamaConfig{
		BaseURL: cfg.Ollama.URL,
		Model:   cfg.Ollama.Model,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(cfg.QdrantAddr(), session.WithLogger(logger))
	logger.Info("vector store configured",
		"qdrant", sessions.Addr(), "ollama", embedder.Endpoint(), "model", embedder.Model())

	return NewStore(sessions, embedder, Config{
		Dimensions: uint64(cfg.Ollama.Dimensions),
	}, logger), nil
}
