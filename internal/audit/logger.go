package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of audit event
type EventType string

const (
	EventKeyAdded       EventType = "key_added"
	EventKeyGenerated   EventType = "key_generated"
	EventKeyDeleted     EventType = "key_deleted"
	EventDefaultChanged EventType = "default_changed"
	EventServerAdded    EventType = "server_added"
	EventServerUpdated  EventType = "server_updated"
	EventServerDeleted  EventType = "server_deleted"
	EventSettingUpdated EventType = "setting_updated"
)

// Entry represents a single audit log entry
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	EventType EventType      `json:"event_type"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Result    string         `json:"result"` // success, failure
	Error     string         `json:"error,omitempty"`
}

// Logger appends audit entries to a JSON log file, keeping at most
// maxEntries of history.
type Logger struct {
	logFile    string
	mu         sync.Mutex
	maxEntries int
	entries    []Entry
}

// NewLogger creates an audit logger writing to <dataDir>/audit.log
func NewLogger(dataDir string, maxEntries int) (*Logger, error) {
	l := &Logger{
		logFile:    filepath.Join(dataDir, "audit.log"),
		maxEntries: maxEntries,
		entries:    []Entry{},
	}

	// Load existing entries; a missing file is fine
	_ = l.load()

	return l, nil
}

// Log records an audit entry
func (l *Logger) Log(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Result == "" {
		entry.Result = "success"
	}

	l.entries = append(l.entries, entry)
	if len(l.entries) > l.maxEntries {
		l.entries = l.entries[len(l.entries)-l.maxEntries:]
	}

	return l.save()
}

// Event records a successful event with the given action and resource
func (l *Logger) Event(eventType EventType, action, resource string, details map[string]any) error {
	return l.Log(Entry{
		EventType: eventType,
		Action:    action,
		Resource:  resource,
		Details:   details,
	})
}

// Recent returns up to n most recent entries, newest last
func (l *Logger) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > len(l.entries) {
		n = len(l.entries)
	}
	return l.entries[len(l.entries)-n:]
}

func (l *Logger) load() error {
	data, err := os.ReadFile(l.logFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if err := json.Unmarshal(data, &l.entries); err != nil {
		return fmt.Errorf("failed to parse audit log: %w", err)
	}
	return nil
}

func (l *Logger) save() error {
	dir := filepath.Dir(l.logFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit entries: %w", err)
	}

	if err := os.WriteFile(l.logFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
