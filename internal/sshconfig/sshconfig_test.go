package sshconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sshdeck/sshdeck/internal/models"
)

func TestNewManager(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	want := filepath.Join(tmpDir, "config")
	if manager.ConfigPath() != want {
		t.Errorf("expected config path %s, got %s", want, manager.ConfigPath())
	}
}

func TestEntries(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	config := `# personal hosts
Host work
    HostName work.example.com
    User deploy
    Port 2222
    IdentityFile /keys/work

Host *
    ServerAliveInterval 60

Host home
    HostName 192.168.1.10
    User pi
`
	if err := os.WriteFile(manager.ConfigPath(), []byte(config), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	entries, err := manager.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}

	work := entries[0]
	if work.Alias != "work" || work.HostName != "work.example.com" ||
		work.User != "deploy" || work.Port != 2222 || work.IdentityFile != "/keys/work" {
		t.Errorf("unexpected first entry: %+v", work)
	}

	home := entries[1]
	if home.Alias != "home" || home.HostName != "192.168.1.10" || home.User != "pi" {
		t.Errorf("unexpected second entry: %+v", home)
	}
	if home.Port != 0 {
		t.Errorf("expected no port on second entry, got %d", home.Port)
	}
}

func TestEntriesMissingFile(t *testing.T) {
	manager := NewManager(t.TempDir())

	entries, err := manager.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestEntriesSkipsManagedSection(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	keyID := int64(1)
	servers := []models.Server{
		{Name: "staging", Host: "staging.example.com", Port: 22, Username: "ops",
			AuthType: models.AuthTypeKey, SSHKeyID: &keyID},
	}
	if err := manager.Update(servers, map[int64]string{1: "/keys/staging"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	entries, err := manager.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected managed hosts to be skipped, got %+v", entries)
	}
}

func TestUpdate(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	existing := "Host manual\n    HostName manual.example.com\n"
	if err := os.WriteFile(manager.ConfigPath(), []byte(existing), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	keyID := int64(7)
	servers := []models.Server{
		{Name: "build", Host: "build.example.com", Port: 2200, Username: "ci",
			AuthType: models.AuthTypeKey, SSHKeyID: &keyID},
		{Name: "legacy", Host: "legacy.example.com", Port: 22, Username: "root",
			AuthType: models.AuthTypePassword},
	}

	if err := manager.Update(servers, map[int64]string{7: "/keys/build"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	content, err := os.ReadFile(manager.ConfigPath())
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	got := string(content)

	for _, want := range []string{
		"Host manual",
		"Host build",
		"HostName build.example.com",
		"User ci",
		"Port 2200",
		"IdentityFile /keys/build",
		"IdentitiesOnly yes",
		"Host legacy",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("config missing %q:\n%s", want, got)
		}
	}

	if strings.Contains(got, "IdentityFile /keys/legacy") {
		t.Error("password server should not get an IdentityFile")
	}

	// A second update must replace the section, not append to it.
	if err := manager.Update(servers[:1], map[int64]string{7: "/keys/build"}); err != nil {
		t.Fatalf("second Update failed: %v", err)
	}
	content, err = os.ReadFile(manager.ConfigPath())
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	got = string(content)

	if strings.Count(got, managedStart) != 1 {
		t.Errorf("expected exactly one managed section:\n%s", got)
	}
	if strings.Contains(got, "Host legacy") {
		t.Error("removed server still present after update")
	}
	if !strings.Contains(got, "Host manual") {
		t.Error("hand-written block lost after update")
	}
}

func TestRemoveManagedSection(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	existing := "Host manual\n    HostName manual.example.com\n"
	if err := os.WriteFile(manager.ConfigPath(), []byte(existing), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	servers := []models.Server{
		{Name: "tmp", Host: "tmp.example.com", Port: 22, Username: "ops",
			AuthType: models.AuthTypePassword},
	}
	if err := manager.Update(servers, nil); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := manager.RemoveManagedSection(); err != nil {
		t.Fatalf("RemoveManagedSection failed: %v", err)
	}

	content, err := os.ReadFile(manager.ConfigPath())
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	got := string(content)

	if strings.Contains(got, managedStart) || strings.Contains(got, "Host tmp") {
		t.Errorf("managed section not removed:\n%s", got)
	}
	if !strings.Contains(got, "Host manual") {
		t.Error("hand-written block lost")
	}
}

func TestRemoveManagedSectionMissingFile(t *testing.T) {
	manager := NewManager(t.TempDir())
	if err := manager.RemoveManagedSection(); err != nil {
		t.Fatalf("RemoveManagedSection failed: %v", err)
	}
}
