package repository

import (
	"context"
	"fmt"

	"github.com/rongwang/billing-server/internal/config"
)

// Open connects the store selected by cfg.Storage.Driver and brings its
// schema up to date: goose migrations for postgres, indexes for mongo.
func Open(ctx context.Context, cfg *config.Config) (Repository, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := config.SetupDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewPostgresRepository(db), nil

	case config.DriverMongo:
		client, db, err := config.SetupMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		repo := NewMongoRepository(client, db)
		if err := repo.Migrate(ctx); err != nil {
			_ = repo.Close()
			return nil, err
		}
		return repo, nil

	case config.DriverMemory:
		return NewMemoryRepository(), nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
