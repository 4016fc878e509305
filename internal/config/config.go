package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".config/sshdeck"
	DefaultConfigFile = "config.yaml"
	DefaultDBFile     = "sshdeck.db"
)

// Config holds the application configuration
type Config struct {
	// DataDir is where the database and audit log live. Defaults to
	// the config file's directory.
	DataDir string `yaml:"data_dir,omitempty"`

	// SSHDir is where generated keys are written. Empty means ~/.ssh.
	SSHDir string `yaml:"ssh_dir,omitempty"`

	// ListenAddr is the command server bind address
	ListenAddr string `yaml:"listen_addr"`

	// KeygenBinary overrides the ssh-keygen executable
	KeygenBinary string `yaml:"keygen_binary,omitempty"`

	LogFormat string `yaml:"log_format"`
	LogLevel  string `yaml:"log_level"`

	// AuditMaxEntries caps the audit log history
	AuditMaxEntries int `yaml:"audit_max_entries"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		ListenAddr:      "127.0.0.1:7422",
		LogFormat:       "text",
		LogLevel:        "info",
		AuditMaxEntries: 1000,
	}
}

// Manager handles configuration persistence
type Manager struct {
	configPath string
	config     *Config
}

// NewManager creates a manager for the config at configPath. An empty
// path means ~/.config/sshdeck/config.yaml.
func NewManager(configPath string) (*Manager, error) {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, DefaultConfigDir, DefaultConfigFile)
	}

	return &Manager{configPath: configPath}, nil
}

// ConfigPath returns the path to the configuration file
func (m *Manager) ConfigPath() string {
	return m.configPath
}

// Load reads the configuration from disk, falling back to defaults
// when the file does not exist yet.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			m.config = Default()
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	m.config = config
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	if m.config == nil {
		return fmt.Errorf("no configuration to save")
	}

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Get returns the current configuration, loading defaults if Load was
// never called.
func (m *Manager) Get() *Config {
	if m.config == nil {
		m.config = Default()
	}
	return m.config
}

// DataDir returns the effective data directory
func (m *Manager) DataDir() string {
	cfg := m.Get()
	if cfg.DataDir != "" {
		return cfg.DataDir
	}
	return filepath.Dir(m.configPath)
}

// DBPath returns the SQLite database path
func (m *Manager) DBPath() string {
	return filepath.Join(m.DataDir(), DefaultDBFile)
}

// SSHDir returns the effective SSH directory. An empty configured
// value resolves to ~/.ssh, where ssh-keygen writes by default.
func (m *Manager) SSHDir() (string, error) {
	cfg := m.Get()
	if cfg.SSHDir != "" {
		return cfg.SSHDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".ssh"), nil
}
