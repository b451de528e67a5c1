package storage

import (
	"context"
	"fmt"

	"bantrap/internal/config"
	"bantrap/internal/models"
)

// Backend persists the community config mapping.
//
// Load returns the full mapping. Persist is called after every mutation with a
// snapshot of the full mapping and the community that changed; whole-file
// backends write the snapshot, row-based backends upsert the changed row.
type Backend interface {
	Load(ctx context.Context) (map[string]models.CommunityConfig, error)
	Persist(ctx context.Context, snapshot map[string]models.CommunityConfig, changed string) error
	Close() error
}

// Open builds the backend selected by cfg.Storage.Driver.
func Open(cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Driver {
	case config.StorageFile:
		return NewFileBackend(cfg.Storage.Path), nil
	case config.StorageSQLite:
		return OpenSQLite(cfg.Storage.SQLitePath)
	case config.StorageMySQL:
		db, err := Initialize(cfg)
		if err != nil {
			return nil, err
		}
		repo := NewCommunityRepository(db)
		if err := repo.MigrateTable(); err != nil {
			return nil, fmt.Errorf("failed to migrate community table: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
