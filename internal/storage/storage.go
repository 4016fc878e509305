package storage

import (
	"context"

	"github.com/sshdeck/sshdeck/internal/models"
)

// Store aggregates all storage interfaces
type Store interface {
	SSHKeys() SSHKeyStore
	Servers() ServerStore
	Settings() SettingStore
	Close() error
}

// SSHKeyStore manages SSH key records
type SSHKeyStore interface {
	// Add inserts a new key and returns its assigned id. When the key is
	// marked default, any prior default is cleared in the same transaction.
	Add(ctx context.Context, key models.SSHKey) (int64, error)
	// Get retrieves a key by id
	Get(ctx context.Context, id int64) (*models.SSHKey, error)
	// List returns all keys
	List(ctx context.Context) ([]models.SSHKey, error)
	// SetDefault makes the given key the single default, atomically
	SetDefault(ctx context.Context, id int64) error
	// Delete removes a key record by id
	Delete(ctx context.Context, id int64) error
}

// ServerStore manages server connection records
type ServerStore interface {
	Add(ctx context.Context, server models.Server) (int64, error)
	Get(ctx context.Context, id int64) (*models.Server, error)
	List(ctx context.Context) ([]models.Server, error)
	Update(ctx context.Context, server models.Server) error
	Delete(ctx context.Context, id int64) error
}

// SettingStore manages key-value settings
type SettingStore interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	List(ctx context.Context) ([]models.Setting, error)
	Update(ctx context.Context, key, value string) error
}
