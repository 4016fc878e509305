// Package commands implements the operations the UI layer invokes.
// Each exported method is one named command: it validates input, talks
// to storage, performs any filesystem or subprocess side effect, and
// returns a tagged error on failure.
package commands

import (
	"context"
	"os"

	"golang.org/x/crypto/ssh"

	"github.com/sshdeck/sshdeck/internal/audit"
	"github.com/sshdeck/sshdeck/internal/keygen"
	"github.com/sshdeck/sshdeck/internal/models"
	"github.com/sshdeck/sshdeck/internal/storage"
	"github.com/sshdeck/sshdeck/pkg/errors"
	"github.com/sshdeck/sshdeck/pkg/logger"
)

// Commands bundles the dependencies shared by every command
type Commands struct {
	store storage.Store
	gen   keygen.Generator
	audit *audit.Logger
}

// New creates the command set. The audit logger may be nil to disable
// audit logging (used by some tests).
func New(store storage.Store, gen keygen.Generator, auditLogger *audit.Logger) *Commands {
	return &Commands{
		store: store,
		gen:   gen,
		audit: auditLogger,
	}
}

func (c *Commands) logEvent(eventType audit.EventType, action, resource string, details map[string]any) {
	if c.audit == nil {
		return
	}
	if err := c.audit.Event(eventType, action, resource, details); err != nil {
		logger.Warn("audit write failed", "error", err)
	}
}

// --- SSH key commands ---

// AddKey registers an existing key file and returns the new record id.
// When isDefault is set, any previous default is cleared atomically.
func (c *Commands) AddKey(ctx context.Context, name, path string, isDefault bool) (int64, error) {
	const op = "commands.AddKey"

	if name == "" {
		return 0, errors.New(errors.ErrInvalidInput, op, "key name is required")
	}
	if path == "" {
		return 0, errors.New(errors.ErrInvalidInput, op, "key path is required")
	}

	id, err := c.store.SSHKeys().Add(ctx, models.SSHKey{
		Name:        name,
		Path:        path,
		Fingerprint: fingerprintOf(path),
		IsDefault:   isDefault,
	})
	if err != nil {
		return 0, err
	}

	c.logEvent(audit.EventKeyAdded, "Added SSH key", name, map[string]any{
		"path":       path,
		"is_default": isDefault,
	})
	return id, nil
}

// GetKey returns the key record with the given id
func (c *Commands) GetKey(ctx context.Context, id int64) (*models.SSHKey, error) {
	return c.store.SSHKeys().Get(ctx, id)
}

// ListKeys returns all key records
func (c *Commands) ListKeys(ctx context.Context) ([]models.SSHKey, error) {
	return c.store.SSHKeys().List(ctx)
}

// SetDefaultKey makes the given key the single default
func (c *Commands) SetDefaultKey(ctx context.Context, id int64) error {
	if err := c.store.SSHKeys().SetDefault(ctx, id); err != nil {
		return err
	}
	c.logEvent(audit.EventDefaultChanged, "Changed default SSH key", "", map[string]any{"id": id})
	return nil
}

// DeleteKey removes a key record. When deleteFile is set, the private
// key file is removed as well and its failure fails the command; the
// companion .pub file is removed best-effort. The row is deleted before
// the file, so a file removal failure can leave an orphaned file. The
// record is gone either way.
func (c *Commands) DeleteKey(ctx context.Context, id int64, deleteFile bool) error {
	const op = "commands.DeleteKey"

	var path string
	if deleteFile {
		key, err := c.store.SSHKeys().Get(ctx, id)
		if err != nil {
			return err
		}
		path = key.Path
	}

	if err := c.store.SSHKeys().Delete(ctx, id); err != nil {
		return err
	}

	if deleteFile {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, errors.ErrIO, op, "failed to delete key file")
		}
		// Companion public key is best-effort
		_ = os.Remove(path + ".pub")
	}

	c.logEvent(audit.EventKeyDeleted, "Deleted SSH key", "", map[string]any{
		"id":           id,
		"deleted_file": deleteFile,
	})
	return nil
}

// GenerateKey creates a new ed25519 key pair named name under the ssh
// directory, registers it (not as default), and returns the private
// key path.
func (c *Commands) GenerateKey(ctx context.Context, name string) (string, error) {
	path, err := c.gen.Generate(ctx, name)
	if err != nil {
		return "", err
	}

	if _, err := c.AddKey(ctx, name, path, false); err != nil {
		return "", err
	}

	c.logEvent(audit.EventKeyGenerated, "Generated SSH key", name, map[string]any{"path": path})
	return path, nil
}

// fingerprintOf returns the SHA256 fingerprint of the public key next
// to the private key at path, or "" when it cannot be read or parsed.
func fingerprintOf(path string) string {
	data, err := os.ReadFile(path + ".pub")
	if err != nil {
		return ""
	}
	pub, _, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return ""
	}
	return ssh.FingerprintSHA256(pub)
}

// --- Server commands ---

func validateServer(op string, server models.Server) error {
	if server.Name == "" {
		return errors.New(errors.ErrInvalidInput, op, "server name is required")
	}
	if server.Host == "" {
		return errors.New(errors.ErrInvalidInput, op, "server host is required")
	}
	if server.Username == "" {
		return errors.New(errors.ErrInvalidInput, op, "server username is required")
	}
	if !server.AuthType.Valid() {
		return errors.Newf(errors.ErrInvalidInput, op, "unknown auth type: %q", server.AuthType).
			WithSuggestion(`Use "password" or "key"`)
	}
	if server.Port < 0 || server.Port > 65535 {
		return errors.Newf(errors.ErrInvalidInput, op, "invalid port: %d", server.Port)
	}
	return nil
}

// AddServer creates a server record and returns its id
func (c *Commands) AddServer(ctx context.Context, server models.Server) (int64, error) {
	if err := validateServer("commands.AddServer", server); err != nil {
		return 0, err
	}

	id, err := c.store.Servers().Add(ctx, server)
	if err != nil {
		return 0, err
	}

	c.logEvent(audit.EventServerAdded, "Added server", server.Name, map[string]any{"host": server.Host})
	return id, nil
}

// GetServer returns the server record with the given id
func (c *Commands) GetServer(ctx context.Context, id int64) (*models.Server, error) {
	return c.store.Servers().Get(ctx, id)
}

// ListServers returns all server records
func (c *Commands) ListServers(ctx context.Context) ([]models.Server, error) {
	return c.store.Servers().List(ctx)
}

// UpdateServer replaces the server record with the given id
func (c *Commands) UpdateServer(ctx context.Context, server models.Server) error {
	if err := validateServer("commands.UpdateServer", server); err != nil {
		return err
	}

	if err := c.store.Servers().Update(ctx, server); err != nil {
		return err
	}

	c.logEvent(audit.EventServerUpdated, "Updated server", server.Name, map[string]any{"id": server.ID})
	return nil
}

// DeleteServer removes a server record
func (c *Commands) DeleteServer(ctx context.Context, id int64) error {
	if err := c.store.Servers().Delete(ctx, id); err != nil {
		return err
	}

	c.logEvent(audit.EventServerDeleted, "Deleted server", "", map[string]any{"id": id})
	return nil
}

// --- Setting commands ---

// GetSetting returns a single setting by key
func (c *Commands) GetSetting(ctx context.Context, key string) (*models.Setting, error) {
	return c.store.Settings().Get(ctx, key)
}

// ListSettings returns all settings
func (c *Commands) ListSettings(ctx context.Context) ([]models.Setting, error) {
	return c.store.Settings().List(ctx)
}

// UpdateSetting changes the value of an existing setting
func (c *Commands) UpdateSetting(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New(errors.ErrInvalidInput, "commands.UpdateSetting", "setting key is required")
	}

	if err := c.store.Settings().Update(ctx, key, value); err != nil {
		return err
	}

	c.logEvent(audit.EventSettingUpdated, "Updated setting", key, map[string]any{"value": value})
	return nil
}
