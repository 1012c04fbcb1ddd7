package main

import (
	"context"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flarexio/chattube"
	"github.com/flarexio/chattube/ai"
	"github.com/flarexio/chattube/index"
	"github.com/flarexio/chattube/persistence/chromem"
	"github.com/flarexio/chattube/session"
	"github.com/flarexio/chattube/vector"
	"github.com/flarexio/chattube/youtube"
)

// newService wires the service from <path>/config.yaml and the environment.
func newService(ctx context.Context, path string, log *zap.Logger) (chattube.Service, func(), error) {
	cfg, err := chattube.LoadConfig(filepath.Join(path, "config.yaml"))
	if err != nil {
		return nil, nil, err
	}

	secrets, err := ai.LoadSecrets()
	if err != nil {
		return nil, nil, err
	}

	secrets.Apply(&cfg.AI)

	if err := cfg.AI.Validate(); err != nil {
		return nil, nil, err
	}

	provider, err := ai.NewProvider(ctx, cfg.AI)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Index.Path == "" {
		cfg.Index.Path = filepath.Join(path, "indexes")
	}

	open := func(dir string) (vector.VectorDB, error) {
		return chromem.NewChromemVectorDB(dir, cfg.Index.Compress, provider.Embedder.EmbedText)
	}

	indexes, err := index.NewCache(cfg.Index, open)
	if err != nil {
		provider.Close()
		return nil, nil, err
	}

	var sessions session.Store
	switch cfg.Session.Store {
	case session.StoreTypeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			provider.Close()
			return nil, nil, err
		}

		sessions = session.NewRedisStore(client, cfg.Session.TTL)

	default:
		sessions = session.NewMemoryStore()
	}

	fetcher := youtube.NewFetcher(nil, cfg.YouTube.Languages...)

	svc, err := chattube.NewService(cfg, fetcher, indexes, sessions, provider.Model, provider.Embedder)
	if err != nil {
		sessions.Close()
		provider.Close()
		return nil, nil, err
	}

	svc = chattube.LoggingMiddleware(log)(svc)
	svc = chattube.InstrumentingMiddleware()(svc)

	closeFn := func() {
		svc.Close()

		if err := provider.Close(); err != nil {
			log.Error(err.Error())
		}
	}

	log.Info("chattube ready",
		zap.String("path", path),
		zap.String("provider", string(cfg.AI.Provider)),
		zap.String("session_store", string(cfg.Session.Store)),
	)

	return svc, closeFn, nil
}
