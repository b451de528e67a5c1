package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"bantrap/internal/logger"
	"bantrap/internal/models"
	"bantrap/internal/storage"
)

// ConfigStore is the in-memory community config cache in front of a storage
// backend. Mutations are serialized per community and written through to
// the backend before they return.
type ConfigStore struct {
	configs *models.CommunityConfigManager
	backend storage.Backend

	locks *xsync.MapOf[string, *sync.Mutex]
	// persistMu orders snapshot writes so the last writer stores the latest state
	persistMu sync.Mutex
}

// NewConfigStore loads the persisted mapping from backend. A load error is
// logged and the store starts empty.
func NewConfigStore(ctx context.Context, backend storage.Backend) *ConfigStore {
	s := &ConfigStore{
		configs: models.NewCommunityConfigManager(),
		backend: backend,
		locks:   xsync.NewMapOf[string, *sync.Mutex](),
	}

	configs, err := backend.Load(ctx)
	if err != nil {
		logger.Warningf("Error loading community configs, starting empty: %v", err)
		return s
	}
	s.configs.Replace(configs)
	logger.Infof("Loaded configuration for %d communities", s.configs.Len())
	return s
}

// Get returns the config for communityID. Unknown communities get an empty config.
func (s *ConfigStore) Get(communityID string) models.CommunityConfig {
	return s.configs.Get(communityID)
}

// Snapshot returns a copy of every community config.
func (s *ConfigStore) Snapshot() map[string]models.CommunityConfig {
	return s.configs.Snapshot()
}

func (s *ConfigStore) SetTrapChannel(ctx context.Context, communityID, channelID string) (models.CommunityConfig, error) {
	return s.mutate(ctx, communityID, func(cfg *models.CommunityConfig) {
		cfg.TrapChannelID = channelID
	})
}

func (s *ConfigStore) ClearTrapChannel(ctx context.Context, communityID string) (models.CommunityConfig, error) {
	return s.mutate(ctx, communityID, func(cfg *models.CommunityConfig) {
		cfg.TrapChannelID = ""
	})
}

func (s *ConfigStore) SetLogChannel(ctx context.Context, communityID, channelID string) (models.CommunityConfig, error) {
	return s.mutate(ctx, communityID, func(cfg *models.CommunityConfig) {
		cfg.LogChannelID = channelID
	})
}

func (s *ConfigStore) ClearLogChannel(ctx context.Context, communityID string) (models.CommunityConfig, error) {
	return s.mutate(ctx, communityID, func(cfg *models.CommunityConfig) {
		cfg.LogChannelID = ""
	})
}

// Close closes the backend.
func (s *ConfigStore) Close() error {
	return s.backend.Close()
}

func (s *ConfigStore) lockFor(communityID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrCompute(communityID, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	return mu
}

// mutate applies fn and persists. On a persist error the new value stays in
// memory and the error is returned.
func (s *ConfigStore) mutate(ctx context.Context, communityID string, fn func(cfg *models.CommunityConfig)) (models.CommunityConfig, error) {
	mu := s.lockFor(communityID)
	mu.Lock()
	defer mu.Unlock()

	cfg := s.configs.Update(communityID, fn)

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := s.backend.Persist(ctx, s.configs.Snapshot(), communityID); err != nil {
		logger.Errorf("Error persisting config for community %s: %v", communityID, err)
		return cfg, fmt.Errorf("failed to persist config for community %s: %w", communityID, err)
	}
	return cfg, nil
}
