package keygen

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sshdeck/sshdeck/pkg/errors"
	"github.com/sshdeck/sshdeck/pkg/platform"
)

// Generator produces a new SSH key pair named name and returns the
// path of the private key file.
type Generator interface {
	Generate(ctx context.Context, name string) (string, error)
}

// SSHKeygen generates ed25519 key pairs by invoking the ssh-keygen
// binary with an empty passphrase.
type SSHKeygen struct {
	sshDir string
	binary string
}

// Option configures an SSHKeygen
type Option func(*SSHKeygen)

// WithBinary overrides the ssh-keygen executable, mainly for tests
func WithBinary(path string) Option {
	return func(g *SSHKeygen) { g.binary = path }
}

// NewSSHKeygen creates a generator targeting sshDir. When sshDir is
// empty, ~/.ssh is used.
func NewSSHKeygen(sshDir string, opts ...Option) (*SSHKeygen, error) {
	if sshDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrIO, "keygen.NewSSHKeygen", "could not resolve home directory")
		}
		sshDir = filepath.Join(home, ".ssh")
	}

	g := &SSHKeygen{sshDir: sshDir, binary: "ssh-keygen"}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// SSHDir returns the directory keys are generated into
func (g *SSHKeygen) SSHDir() string {
	return g.sshDir
}

// ValidateName rejects key names that would escape the ssh directory
func ValidateName(name string) error {
	const op = "keygen.ValidateName"
	if name == "" {
		return errors.New(errors.ErrInvalidInput, op, "key name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return errors.Newf(errors.ErrInvalidInput, op, "invalid key name: %q", name).
			WithSuggestion("Use a plain file name without path separators, e.g. id_work")
	}
	return nil
}

// Generate creates the key pair at <sshDir>/<name> and returns that path.
// The companion public key is written to <path>.pub by ssh-keygen.
func (g *SSHKeygen) Generate(ctx context.Context, name string) (string, error) {
	const op = "keygen.Generate"

	if err := ValidateName(name); err != nil {
		return "", err
	}

	if err := platform.EnsureSSHDir(g.sshDir); err != nil {
		return "", errors.Wrap(err, errors.ErrIO, op, "could not prepare ssh directory")
	}

	keyPath := filepath.Join(g.sshDir, name)
	if _, err := os.Stat(keyPath); err == nil {
		return "", errors.Newf(errors.ErrConflict, op, "key file already exists: %s", keyPath).
			WithSuggestion("Pick a different name or delete the existing key first")
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.binary,
		"-t", "ed25519",
		"-f", keyPath,
		"-N", "",
	)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return "", errors.Wrap(err, errors.ErrSubprocess, op,
				"ssh-keygen failed: "+strings.TrimSpace(stderr.String()))
		}
		return "", errors.Wrap(err, errors.ErrSubprocess, op, "failed to run ssh-keygen").
			WithSuggestion("Make sure ssh-keygen is installed and on PATH")
	}

	// ssh-keygen writes 0600 itself, but re-apply the mode so an
	// overridden binary cannot leave the key world-readable
	if err := os.Chmod(keyPath, platform.PrivateKeyMode()); err != nil {
		return "", errors.Wrap(err, errors.ErrIO, op, "failed to set private key permissions")
	}

	return keyPath, nil
}
