package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sshdeck/sshdeck/pkg/errors"
)

func writeDataDir(t *testing.T) string {
	t.Helper()
	dataDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, "sshdeck.db"), []byte("db-bytes"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "audit.log"), []byte("[]"), 0600); err != nil {
		t.Fatal(err)
	}
	return dataDir
}

func TestCreateAndList(t *testing.T) {
	dataDir := writeDataDir(t)
	manager := NewManager(dataDir)

	path, err := manager.Create("before upgrade")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !strings.HasSuffix(path, ".zip") {
		t.Errorf("expected zip path, got %s", path)
	}
	if !strings.Contains(filepath.Base(path), "before-upgrade") {
		t.Errorf("label missing from filename: %s", path)
	}

	backups, err := manager.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(backups))
	}
	if backups[0].Size == 0 {
		t.Error("expected non-zero backup size")
	}
}

func TestCreateExcludesBackupDir(t *testing.T) {
	dataDir := writeDataDir(t)
	manager := NewManager(dataDir)

	if _, err := manager.Create(""); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	// A second archive must not swallow the first one.
	path, err := manager.Create("second")
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() > 4096 {
		t.Errorf("backup suspiciously large (%d bytes), backups dir likely included", info.Size())
	}
}

func TestListEmpty(t *testing.T) {
	manager := NewManager(t.TempDir())

	backups, err := manager.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected no backups, got %d", len(backups))
	}
}

func TestRestore(t *testing.T) {
	dataDir := writeDataDir(t)
	manager := NewManager(dataDir)

	path, err := manager.Create("")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Mutate and delete data, then restore.
	if err := os.WriteFile(filepath.Join(dataDir, "sshdeck.db"), []byte("corrupted"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dataDir, "audit.log")); err != nil {
		t.Fatal(err)
	}

	if err := manager.Restore(filepath.Base(path)); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	db, err := os.ReadFile(filepath.Join(dataDir, "sshdeck.db"))
	if err != nil {
		t.Fatal(err)
	}
	if string(db) != "db-bytes" {
		t.Errorf("database not restored, got %q", db)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "audit.log")); err != nil {
		t.Errorf("audit log not restored: %v", err)
	}
}

func TestRestoreNotFound(t *testing.T) {
	manager := NewManager(t.TempDir())

	err := manager.Restore("no-such-backup.zip")
	if err == nil {
		t.Fatal("expected error for missing backup")
	}
	if !errors.IsCode(err, errors.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	dataDir := writeDataDir(t)
	manager := NewManager(dataDir)

	path, err := manager.Create("")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := manager.Delete(filepath.Base(path)); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("backup still exists after delete")
	}

	if err := manager.Delete(filepath.Base(path)); !errors.IsCode(err, errors.ErrNotFound) {
		t.Errorf("expected NOT_FOUND on second delete, got %v", err)
	}
}

func TestRestoreAndDeleteRejectPathInName(t *testing.T) {
	dataDir := writeDataDir(t)
	manager := NewManager(dataDir)

	// A file reachable only by escaping the backup directory.
	outside := filepath.Join(dataDir, "escape-target.zip")
	if err := os.WriteFile(outside, []byte("zip"), 0600); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"../escape-target.zip", "a/b.zip", "..", ""} {
		if err := manager.Restore(name); !errors.IsCode(err, errors.ErrInvalidInput) {
			t.Errorf("Restore(%q): expected INVALID_INPUT, got %v", name, err)
		}
		if err := manager.Delete(name); !errors.IsCode(err, errors.ErrInvalidInput) {
			t.Errorf("Delete(%q): expected INVALID_INPUT, got %v", name, err)
		}
	}

	if _, err := os.Stat(outside); err != nil {
		t.Errorf("file outside backup dir was touched: %v", err)
	}
}
