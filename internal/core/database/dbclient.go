package db

import (
	"context"
	"fmt"

	"github.com/markdave123-py/knowledge-assistant/internal/config"
	"github.com/markdave123-py/knowledge-assistant/internal/core"
)

// NewChunkStore opens the backend selected by STORE_BACKEND.
func NewChunkStore(ctx context.Context, cfg *config.Config) (core.ChunkStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: database client configuration is nil", core.ErrConfiguration)
	}
	switch cfg.StoreBackend {
	case "postgres":
		return NewDatabaseClient(ctx, cfg.DatabaseURL, cfg.SslCertPath)
	case "badger":
		return OpenBadgerStore(cfg.BadgerPath, false)
	default:
		return nil, fmt.Errorf("%w: unknown STORE_BACKEND %q", core.ErrConfiguration, cfg.StoreBackend)
	}
}
