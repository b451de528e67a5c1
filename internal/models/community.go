package models

import (
	"sync"
	"time"
)

// CommunityConfig holds the trap and log channel of one community.
// Empty channel IDs mean the feature is disabled.
type CommunityConfig struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	CommunityID   string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	TrapChannelID string    `gorm:"size:64;default:''" json:"trapChannelId,omitempty"`
	LogChannelID  string    `gorm:"size:64;default:''" json:"logChannelId,omitempty"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}

// TableName pins the table name used by the relational backends.
func (CommunityConfig) TableName() string {
	return "community_configs"
}

// HasTrap reports whether enforcement is enabled.
func (c CommunityConfig) HasTrap() bool {
	return c.TrapChannelID != ""
}

// HasLog reports whether audit logging is enabled.
func (c CommunityConfig) HasLog() bool {
	return c.LogChannelID != ""
}

// IsEmpty reports whether the config is equivalent to having no entry.
func (c CommunityConfig) IsEmpty() bool {
	return !c.HasTrap() && !c.HasLog()
}

// SameChannels compares the persisted fields only.
func (c CommunityConfig) SameChannels(o CommunityConfig) bool {
	return c.CommunityID == o.CommunityID &&
		c.TrapChannelID == o.TrapChannelID &&
		c.LogChannelID == o.LogChannelID
}

// CommunityConfigManager is the in-memory view of every community config.
// Values are stored by copy so readers never observe a half-applied update.
type CommunityConfigManager struct {
	configs map[string]CommunityConfig
	mu      sync.RWMutex
}

func NewCommunityConfigManager() *CommunityConfigManager {
	return &CommunityConfigManager{
		configs: make(map[string]CommunityConfig),
	}
}

// Get returns the config for communityID, or an empty one.
func (m *CommunityConfigManager) Get(communityID string) CommunityConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if cfg, ok := m.configs[communityID]; ok {
		return cfg
	}
	return CommunityConfig{CommunityID: communityID}
}

// Update applies fn to the current config for communityID and stores the result.
func (m *CommunityConfigManager) Update(communityID string, fn func(cfg *CommunityConfig)) CommunityConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[communityID]
	if !ok {
		cfg = CommunityConfig{CommunityID: communityID}
	}
	fn(&cfg)
	cfg.CommunityID = communityID
	m.configs[communityID] = cfg
	return cfg
}

// Replace swaps in a whole mapping, used when loading persisted state.
func (m *CommunityConfigManager) Replace(configs map[string]CommunityConfig) {
	fresh := make(map[string]CommunityConfig, len(configs))
	for id, cfg := range configs {
		cfg.CommunityID = id
		fresh[id] = cfg
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs = fresh
}

// Snapshot returns a copy of the full mapping.
func (m *CommunityConfigManager) Snapshot() map[string]CommunityConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]CommunityConfig, len(m.configs))
	for id, cfg := range m.configs {
		out[id] = cfg
	}
	return out
}

// Len returns the number of communities with an entry.
func (m *CommunityConfigManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}
