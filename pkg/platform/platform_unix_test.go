//go:build !windows

package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureSSHDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".ssh")

	if err := EnsureSSHDir(dir); err != nil {
		t.Fatalf("EnsureSSHDir failed: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("expected a directory")
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("expected mode 0700, got %o", perm)
	}

	// Idempotent on an existing directory
	if err := EnsureSSHDir(dir); err != nil {
		t.Fatalf("second EnsureSSHDir failed: %v", err)
	}
}

func TestEnsureSSHDirNotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ssh")
	if err := os.WriteFile(path, []byte("not a dir"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := EnsureSSHDir(path); err == nil {
		t.Error("expected error when path is a regular file")
	}
}
