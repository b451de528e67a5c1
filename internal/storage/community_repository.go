package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"bantrap/internal/models"
)

// CommunityRepository stores community configs in a relational database via GORM.
type CommunityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository creates a new CommunityRepository
func NewCommunityRepository(db *gorm.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

// MigrateTable ensures the community_configs table exists with the right schema
func (r *CommunityRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.CommunityConfig{})
}

// GetCommunityConfig returns the stored config, or nil when there is none.
func (r *CommunityRepository) GetCommunityConfig(ctx context.Context, communityID string) (*models.CommunityConfig, error) {
	var cfg models.CommunityConfig
	result := r.db.WithContext(ctx).Where("community_id = ?", communityID).First(&cfg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &cfg, nil
}

// CreateOrUpdate inserts a new row or updates the existing one for the same community.
func (r *CommunityRepository) CreateOrUpdate(ctx context.Context, cfg *models.CommunityConfig) error {
	db := r.db.WithContext(ctx)

	var existing models.CommunityConfig
	result := db.Where("community_id = ?", cfg.CommunityID).First(&existing)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			cfg.CreatedAt = time.Now()
			cfg.UpdatedAt = cfg.CreatedAt
			return db.Create(cfg).Error
		}
		return result.Error
	}

	cfg.ID = existing.ID
	cfg.CreatedAt = existing.CreatedAt
	cfg.UpdatedAt = time.Now()
	return db.Save(cfg).Error
}

// GetAll returns every stored community config.
func (r *CommunityRepository) GetAll(ctx context.Context) ([]*models.CommunityConfig, error) {
	var configs []*models.CommunityConfig
	if err := r.db.WithContext(ctx).Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// Count returns the number of stored rows.
func (r *CommunityRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CommunityConfig{}).Count(&count).Error
	return count, err
}

// Load implements Backend.
func (r *CommunityRepository) Load(ctx context.Context) (map[string]models.CommunityConfig, error) {
	rows, err := r.GetAll(ctx)
	if err != nil {
		return map[string]models.CommunityConfig{}, fmt.Errorf("failed to load community configs: %w", err)
	}
	configs := make(map[string]models.CommunityConfig, len(rows))
	for _, row := range rows {
		configs[row.CommunityID] = *row
	}
	return configs, nil
}

// Persist implements Backend by upserting the changed community only.
func (r *CommunityRepository) Persist(ctx context.Context, snapshot map[string]models.CommunityConfig, changed string) error {
	cfg, ok := snapshot[changed]
	if !ok {
		cfg = models.CommunityConfig{CommunityID: changed}
	}
	cfg.CommunityID = changed
	if err := r.CreateOrUpdate(ctx, &cfg); err != nil {
		return fmt.Errorf("failed to save community %s: %w", changed, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *CommunityRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
