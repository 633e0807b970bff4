package storage

import (
	"context"
	"fmt"

	"github.com/vedran77/careteam/internal/config"
)

// NewFromConfig builds the Store selected by cfg.Storage.Type. Backends that
// hold connections also implement Close(context.Context) error.
func NewFromConfig(ctx context.Context, cfg *config.Config, signer *URLSigner) (Store, error) {
	switch cfg.Storage.Type {
	case "memory":
		return NewMemoryStore(signer), nil
	case "s3":
		if cfg.Storage.Bucket == "" {
			return nil, fmt.Errorf("s3 storage requires bucket to be set")
		}
		return NewS3Store(ctx, cfg.Storage)
	case "gridfs":
		if cfg.Storage.MongoURI == "" {
			return nil, fmt.Errorf("gridfs storage requires mongo_uri to be set")
		}
		return NewGridFSStore(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, signer)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}
