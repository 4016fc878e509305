//go:build !windows

package platform

import (
	"fmt"
	"os"
)

// EnsureSSHDir creates the SSH directory if it doesn't exist.
// On Unix the directory must be owner-only or sshd refuses the keys.
func EnsureSSHDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists but is not a directory", dir)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat ssh directory: %w", err)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create ssh directory: %w", err)
	}
	// MkdirAll honors umask, so re-apply the mode explicitly
	if err := os.Chmod(dir, 0700); err != nil {
		return fmt.Errorf("failed to set ssh directory permissions: %w", err)
	}
	return nil
}

// PrivateKeyMode is the file mode for private key files
func PrivateKeyMode() os.FileMode {
	return 0600
}
