package main

import (
	"context"
	"time"

	"participant-import-backend/internal/broker"
	"participant-import-backend/internal/cache"
	"participant-import-backend/internal/config"
	"participant-import-backend/internal/repository"
	"participant-import-backend/internal/services/importrequest"
	"participant-import-backend/internal/services/reconciler"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// openStorage returns the import request store selected by storage.driver and
// a function releasing whatever it opened.
func openStorage(ctx context.Context, db *gorm.DB) (importrequest.Storage, func(), error) {
	if cfg.Storage.Driver != "mongo" {
		return repository.NewImportRequestRepository(db), func() {}, nil
	}

	client, err := config.NewMongoClient(ctx, cfg.Mongo.URI)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("disconnect mongo")
		}
	}

	repo := repository.NewMongoImportRequestRepository(client.Database(cfg.Mongo.Database))
	if err := repo.EnsureIndexes(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return repo, closeFn, nil
}

// openDirectory reads reference data from Postgres, fronted by the Redis name
// cache when it is enabled.
func openDirectory(db *gorm.DB) (importrequest.Directory, func(), error) {
	dir := repository.NewDirectoryRepository(db)
	if !cfg.Redis.Enabled {
		return dir, func() {}, nil
	}

	rc, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect redis")
	}
	closeFn := func() {
		if err := rc.Close(); err != nil {
			log.Error().Err(err).Msg("close redis")
		}
	}
	return repository.NewCachedDirectory(dir, rc, cfg.Redis.TTL), closeFn, nil
}

// openPublisher returns nil when RabbitMQ is disabled, which turns lifecycle
// events off.
func openPublisher() (importrequest.Publisher, func(), error) {
	if !cfg.RabbitMQ.Enabled {
		return nil, func() {}, nil
	}

	p, err := broker.NewPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Queue)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := p.Close(); err != nil {
			log.Error().Err(err).Msg("close rabbitmq publisher")
		}
	}
	return p, closeFn, nil
}

func newReconciler() *reconciler.Reconciler {
	return reconciler.New(reconciler.Config{
		Workers:           cfg.Reconciler.Workers,
		StrictCPFChecksum: cfg.Reconciler.StrictCPFChecksum,
	})
}
