package models

import (
	"time"
)

// SSHKey represents a tracked SSH key pair. The private key lives on
// disk at Path; the public half is expected at Path + ".pub".
type SSHKey struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Fingerprint string    `json:"fingerprint,omitempty"` // SHA256, when the .pub file was readable
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuthType is how a server connection authenticates
type AuthType string

const (
	AuthTypePassword AuthType = "password"
	AuthTypeKey      AuthType = "key"
)

// Valid reports whether the auth type is a known value
func (a AuthType) Valid() bool {
	return a == AuthTypePassword || a == AuthTypeKey
}

// Server represents a remote server connection record
type Server struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Username  string    `json:"username"`
	AuthType  AuthType  `json:"auth_type"`
	Password  string    `json:"password,omitempty"`
	SSHKeyID  *int64    `json:"ssh_key_id,omitempty"` // Reference to SSHKey.ID when AuthType is "key"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting is a single key-value configuration entry
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultPort is used when a server record does not specify one
const DefaultPort = 22

// DefaultSettings returns the settings seeded on first startup
func DefaultSettings() map[string]string {
	return map[string]string{
		"theme":              "system",
		"language":           "en",
		"terminal_font_size": "14",
	}
}
