package sshconfig

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sshdeck/sshdeck/internal/models"
)

const (
	managedStart = "# === SSHDECK MANAGED START ==="
	managedEnd   = "# === SSHDECK MANAGED END ==="
)

// HostEntry is one Host block read from an SSH config file.
type HostEntry struct {
	Alias        string
	HostName     string
	User         string
	Port         int
	IdentityFile string
}

// Manager reads and writes the user's SSH config file. Writes are
// confined to a marked section so hand-edited blocks survive.
type Manager struct {
	configPath string
}

// NewManager returns a Manager for the config file under sshDir
func NewManager(sshDir string) *Manager {
	return &Manager{
		configPath: filepath.Join(sshDir, "config"),
	}
}

// ConfigPath returns the path of the SSH config file
func (m *Manager) ConfigPath() string {
	return m.configPath
}

// Entries parses the SSH config file and returns its Host blocks.
// Wildcard patterns and the managed section are skipped. A missing
// file yields no entries and no error.
func (m *Manager) Entries() ([]HostEntry, error) {
	file, err := os.Open(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open SSH config: %w", err)
	}
	defer file.Close()

	var (
		entries   []HostEntry
		current   *HostEntry
		inManaged bool
	)

	flush := func() {
		if current != nil {
			entries = append(entries, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.Contains(line, managedStart) {
			inManaged = true
			flush()
			continue
		}
		if strings.Contains(line, managedEnd) {
			inManaged = false
			continue
		}
		if inManaged || line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		keyword, value, ok := splitLine(line)
		if !ok {
			continue
		}

		if keyword == "host" {
			flush()
			// Multi-pattern and wildcard Host lines are not
			// importable as single server records.
			if strings.ContainsAny(value, "*? ") {
				continue
			}
			current = &HostEntry{Alias: value}
			continue
		}

		if current == nil {
			continue
		}

		switch keyword {
		case "hostname":
			current.HostName = value
		case "user":
			current.User = value
		case "port":
			if port, err := strconv.Atoi(value); err == nil {
				current.Port = port
			}
		case "identityfile":
			current.IdentityFile = expandHome(value)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read SSH config: %w", err)
	}
	return entries, nil
}

// splitLine splits an ssh_config line into a lowercased keyword and
// its value. Both "Key value" and "Key=value" forms are accepted.
func splitLine(line string) (string, string, bool) {
	if i := strings.IndexAny(line, " \t="); i > 0 {
		return strings.ToLower(line[:i]), strings.TrimSpace(line[i+1:]), true
	}
	return "", "", false
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Update rewrites the managed section with one Host block per server.
// keyPaths maps SSH key ids to private key paths; servers whose key
// has no path get no IdentityFile line. Content outside the managed
// markers is preserved as-is.
func (m *Manager) Update(servers []models.Server, keyPaths map[int64]string) error {
	existing, err := m.readUnmanaged()
	if err != nil {
		return err
	}

	managed := []string{managedStart}
	managed = append(managed, "# This section is managed by sshdeck. Do not edit manually.")
	managed = append(managed, "")

	for _, server := range servers {
		managed = append(managed, fmt.Sprintf("Host %s", server.Name))
		managed = append(managed, fmt.Sprintf("    HostName %s", server.Host))
		if server.Username != "" {
			managed = append(managed, fmt.Sprintf("    User %s", server.Username))
		}
		if server.Port > 0 && server.Port != models.DefaultPort {
			managed = append(managed, fmt.Sprintf("    Port %d", server.Port))
		}
		if server.AuthType == models.AuthTypeKey && server.SSHKeyID != nil {
			if path, ok := keyPaths[*server.SSHKeyID]; ok && path != "" {
				managed = append(managed, fmt.Sprintf("    IdentityFile %s", path))
				managed = append(managed, "    IdentitiesOnly yes")
			}
		}
		managed = append(managed, "")
	}

	managed = append(managed, managedEnd)
	managed = append(managed, "")

	final := existing
	if final != "" && !strings.HasSuffix(final, "\n\n") {
		final += "\n"
	}
	final += strings.Join(managed, "\n")

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0700); err != nil {
		return fmt.Errorf("failed to create SSH directory: %w", err)
	}
	if err := os.WriteFile(m.configPath, []byte(final), 0600); err != nil {
		return fmt.Errorf("failed to write SSH config: %w", err)
	}
	return nil
}

// RemoveManagedSection strips the managed section, leaving the rest
// of the file untouched
func (m *Manager) RemoveManagedSection() error {
	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		return nil
	}

	existing, err := m.readUnmanaged()
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.configPath, []byte(existing), 0600); err != nil {
		return fmt.Errorf("failed to write SSH config: %w", err)
	}
	return nil
}

// readUnmanaged returns the file content with the managed section
// removed. A missing file yields "".
func (m *Manager) readUnmanaged() (string, error) {
	file, err := os.Open(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to open SSH config: %w", err)
	}
	defer file.Close()

	var (
		sb        strings.Builder
		inManaged bool
	)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, managedStart) {
			inManaged = true
			continue
		}
		if strings.Contains(line, managedEnd) {
			inManaged = false
			continue
		}
		if !inManaged {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read SSH config: %w", err)
	}
	return sb.String(), nil
}
