//go:build windows

package platform

import (
	"fmt"
	"os"
)

// EnsureSSHDir creates the SSH directory if it doesn't exist.
// Windows ACLs are inherited from the profile directory, so no
// explicit permission handling is done here.
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
	return nil
}

// PrivateKeyMode is the file mode for private key files
func PrivateKeyMode() os.FileMode {
	return 0600
}
