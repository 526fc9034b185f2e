package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/memohai/roastery/internal/config"
	"github.com/memohai/roastery/internal/storage"
	"github.com/memohai/roastery/internal/storage/fsstore"
	"github.com/memohai/roastery/internal/storage/memstore"
	"github.com/memohai/roastery/internal/storage/s3store"
)

// localImageRoute is where the images handler serves blobs for backends
// without a public endpoint.
const localImageRoute = "/images"

func newBlobStore(ctx context.Context, log *slog.Logger, cfg config.Config) (storage.Provider, error) {
	sc := cfg.Storage
	publicURL := sc.PublicBaseURL
	switch sc.Backend {
	case config.StorageFilesystem:
		if publicURL == "" {
			publicURL = localImageRoute
		}
		store, err := fsstore.New(sc.Filesystem.Root, publicURL)
		if err != nil {
			return nil, fmt.Errorf("filesystem storage: %w", err)
		}
		return store, nil
	case config.StorageMemory:
		if publicURL == "" {
			publicURL = localImageRoute
		}
		log.Warn("using in-memory blob storage, images are lost on restart")
		return memstore.New(publicURL), nil
	case config.StorageS3:
		store, err := s3store.New(log, s3store.Options{
			Endpoint:      sc.S3.Endpoint,
			AccessKey:     sc.S3.AccessKey,
			SecretKey:     sc.S3.SecretKey,
			Region:        sc.S3.Region,
			UseSSL:        sc.S3.UseSSL,
			Bucket:        sc.Bucket,
			PublicBaseURL: publicURL,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", sc.Backend)
	}
}
