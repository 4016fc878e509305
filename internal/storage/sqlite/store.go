package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sshdeck/sshdeck/internal/models"
	"github.com/sshdeck/sshdeck/internal/storage"
	apperr "github.com/sshdeck/sshdeck/pkg/errors"
)

// Store implements storage.Store for SQLite
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if necessary) the database at dbPath
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := s.seedSettings(); err != nil {
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SSHKeys() storage.SSHKeyStore {
	return &sshKeyStore{db: s.db}
}

func (s *Store) Servers() storage.ServerStore {
	return &serverStore{db: s.db}
}

func (s *Store) Settings() storage.SettingStore {
	return &settingStore{db: s.db}
}

// migrate creates tables if they don't exist
func (s *Store) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS ssh_keys (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			fingerprint TEXT,
			is_default INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS servers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			host TEXT NOT NULL,
			port INTEGER NOT NULL DEFAULT 22,
			username TEXT NOT NULL,
			auth_type TEXT NOT NULL DEFAULT 'password',
			password TEXT,
			ssh_key_id INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// seedSettings inserts default settings that aren't present yet
func (s *Store) seedSettings() error {
	for key, value := range models.DefaultSettings() {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO settings (key, value, updated_at) VALUES (?, ?, ?)`,
			key, value, time.Now(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// --- SSHKeyStore Implementation ---

type sshKeyStore struct {
	db *sql.DB
}

func (s *sshKeyStore) Add(ctx context.Context, key models.SSHKey) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.ErrStorage, "sqlite.SSHKeys.Add", "failed to begin transaction")
	}
	defer tx.Rollback()

	// A new default displaces any existing one; doing it inside the
	// transaction keeps the single-default invariant under concurrency.
	if key.IsDefault {
		if _, err := tx.ExecContext(ctx,
			`UPDATE ssh_keys SET is_default = 0 WHERE is_default = 1`); err != nil {
			return 0, apperr.Wrap(err, apperr.ErrStorage, "sqlite.SSHKeys.Add", "failed to clear previous default")
		}
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO ssh_keys (name, path, fingerprint, is_default, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key.Name, key.Path, key.Fingerprint, key.IsDefault, now, now,
	)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.ErrStorage, "sqlite.SSHKeys.Add", "failed to insert ssh key")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Wrap(err, apperr.ErrStorage, "sqlite.SSHKeys.Add", "failed to read inserted id")
	}

	if err := tx.Commit(); err != nil {
		return 0, apperr.Wrap(err, apperr.ErrStorage, "sqlite.SSHKeys.Add", "failed to commit")
	}
	return id, nil
}

func (s *sshKeyStore) Get(ctx context.Context, id int64) (*models.SSHKey, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, path, fingerprint, is_default, created_at, updated_at
		 FROM ssh_keys WHERE id = ?`, id)

	k, err := scanSSHKey(row)
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.ErrNotFound, "sqlite.SSHKeys.Get", "ssh key not found: %d", id)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrStorage, "sqlite.SSHKeys.Get", "failed to query ssh key")
	}
	return k, nil
}

func (s *sshKeyStore) List(ctx context.Context) ([]models.SSHKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, path, fingerprint, is_default, created_at, updated_at FROM ssh_keys`)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrStorage, "sqlite.SSHKeys.List", "failed to query ssh keys")
	}
	defer rows.Close()

	var keys []models.SSHKey
	for rows.Next() {
		k, err := scanSSHKey(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrStorage, "sqlite.SSHKeys.List", "failed to scan ssh key")
		}
		keys = append(keys, *k)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrStorage, "sqlite.SSHKeys.List", "failed to iterate ssh keys")
	}
	return keys, nil
}

func (s *sshKeyStore) SetDefault(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrStorage, "sqlite.SSHKeys.SetDefault", "failed to begin transaction")
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM ssh_keys WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return apperr.Newf(apperr.ErrNotFound, "sqlite.SSHKeys.SetDefault", "ssh key not found: %d", id)
	}
	if err != nil {
		return apperr.Wrap(err, apperr.ErrStorage, "sqlite.SSHKeys.SetDefault", "failed to look up ssh key")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE ssh_keys SET is_default = 0 WHERE is_default = 1`); err != nil {
		return apperr.Wrap(err, apperr.ErrStorage, "sqlite.SSHKeys.SetDefault", "failed to clear previous default")
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE ssh_keys SET is_default = 1, updated_at = ? WHERE id = ?`, time.Now(), id); err != nil {
		return apperr.Wrap(err, apperr.ErrStorage, "sqlite.SSHKeys.SetDefault", "failed to set default")
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(err, apperr.ErrStorage, "sqlite.SSHKeys.SetDefault", "failed to commit")
	}
	return nil
}

func (s *sshKeyStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ssh_keys WHERE id = ?`, id)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrStorage, "sqlite.SSHKeys.Delete", "failed to delete ssh key")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Newf(apperr.ErrNotFound, "sqlite.SSHKeys.Delete", "ssh key not found: %d", id)
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanSSHKey(row scanner) (*models.SSHKey, error) {
	var k models.SSHKey
	var fingerprint sql.NullString
	err := row.Scan(&k.ID, &k.Name, &k.Path, &fingerprint, &k.IsDefault, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return nil, err
	}
	k.Fingerprint = fingerprint.String
	return &k, nil
}

// --- ServerStore Implementation ---

type serverStore struct {
	db *sql.DB
}

func (s *serverStore) Add(ctx context.Context, server models.Server) (int64, error) {
	if server.Port == 0 {
		server.Port = models.DefaultPort
	}
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO servers (name, host, port, username, auth_type, password, ssh_key_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		server.Name, server.Host, server.Port, server.Username, server.AuthType,
		server.Password, server.SSHKeyID, now, now,
	)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.ErrStorage, "sqlite.Servers.Add", "failed to insert server")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Wrap(err, apperr.ErrStorage, "sqlite.Servers.Add", "failed to read inserted id")
	}
	return id, nil
}

func (s *serverStore) Get(ctx context.Context, id int64) (*models.Server, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, host, port, username, auth_type, password, ssh_key_id, created_at, updated_at
		 FROM servers WHERE id = ?`, id)

	srv, err := scanServer(row)
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.ErrNotFound, "sqlite.Servers.Get", "server not found: %d", id)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrStorage, "sqlite.Servers.Get", "failed to query server")
	}
	return srv, nil
}

func (s *serverStore) List(ctx context.Context) ([]models.Server, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, host, port, username, auth_type, password, ssh_key_id, created_at, updated_at
		 FROM servers`)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrStorage, "sqlite.Servers.List", "failed to query servers")
	}
	defer rows.Close()

	var servers []models.Server
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrStorage, "sqlite.Servers.List", "failed to scan server")
		}
		servers = append(servers, *srv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrStorage, "sqlite.Servers.List", "failed to iterate servers")
	}
	return servers, nil
}

func (s *serverStore) Update(ctx context.Context, server models.Server) error {
	if server.Port == 0 {
		server.Port = models.DefaultPort
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE servers SET name=?, host=?, port=?, username=?, auth_type=?, password=?, ssh_key_id=?, updated_at=?
		 WHERE id=?`,
		server.Name, server.Host, server.Port, server.Username, server.AuthType,
		server.Password, server.SSHKeyID, time.Now(), server.ID,
	)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrStorage, "sqlite.Servers.Update", "failed to update server")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Newf(apperr.ErrNotFound, "sqlite.Servers.Update", "server not found: %d", server.ID)
	}
	return nil
}

func (s *serverStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM servers WHERE id = ?`, id)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrStorage, "sqlite.Servers.Delete", "failed to delete server")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Newf(apperr.ErrNotFound, "sqlite.Servers.Delete", "server not found: %d", id)
	}
	return nil
}

func scanServer(row scanner) (*models.Server, error) {
	var srv models.Server
	var password sql.NullString
	var keyID sql.NullInt64
	err := row.Scan(&srv.ID, &srv.Name, &srv.Host, &srv.Port, &srv.Username,
		&srv.AuthType, &password, &keyID, &srv.CreatedAt, &srv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	srv.Password = password.String
	if keyID.Valid {
		srv.SSHKeyID = &keyID.Int64
	}
	return &srv, nil
}

// --- SettingStore Implementation ---

type settingStore struct {
	db *sql.DB
}

func (s *settingStore) Get(ctx context.Context, key string) (*models.Setting, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM settings WHERE key = ?`, key)

	var setting models.Setting
	err := row.Scan(&setting.Key, &setting.Value, &setting.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.ErrNotFound, "sqlite.Settings.Get", "setting not found: %s", key)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrStorage, "sqlite.Settings.Get", "failed to query setting")
	}
	return &setting, nil
}

func (s *settingStore) List(ctx context.Context) ([]models.Setting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, updated_at FROM settings`)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrStorage, "sqlite.Settings.List", "failed to query settings")
	}
	defer rows.Close()

	var settings []models.Setting
	for rows.Next() {
		var setting models.Setting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.UpdatedAt); err != nil {
			return nil, apperr.Wrap(err, apperr.ErrStorage, "sqlite.Settings.List", "failed to scan setting")
		}
		settings = append(settings, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrStorage, "sqlite.Settings.List", "failed to iterate settings")
	}
	return settings, nil
}

func (s *settingStore) Update(ctx context.Context, key, value string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE settings SET value = ?, updated_at = ? WHERE key = ?`, value, time.Now(), key)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrStorage, "sqlite.Settings.Update", "failed to update setting")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Newf(apperr.ErrNotFound, "sqlite.Settings.Update", "setting not found: %s", key)
	}
	return nil
}
