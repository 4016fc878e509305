// Package backup archives and restores the sshdeck data directory,
// which holds the SQLite database and the audit log.
package backup

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sshdeck/sshdeck/pkg/errors"
)

// backups live inside the data directory so a restore never has to
// look anywhere else
const backupSubdir = "backups"

// Manager creates and restores zip archives of a data directory
type Manager struct {
	dataDir   string
	backupDir string
}

// NewManager returns a Manager for the given data directory
func NewManager(dataDir string) *Manager {
	return &Manager{
		dataDir:   dataDir,
		backupDir: filepath.Join(dataDir, backupSubdir),
	}
}

// BackupDir returns the directory where archives are written
func (m *Manager) BackupDir() string {
	return m.backupDir
}

// Create archives the data directory into a timestamped zip and
// returns its path. The backup directory itself is excluded.
func (m *Manager) Create(label string) (string, error) {
	const op = "backup.Create"

	if err := os.MkdirAll(m.backupDir, 0700); err != nil {
		return "", errors.Wrap(err, errors.ErrIO, op, "failed to create backup directory")
	}

	name := "sshdeck-" + time.Now().Format("20060102-150405")
	if label != "" {
		name += "-" + sanitizeLabel(label)
	}
	destPath := filepath.Join(m.backupDir, name+".zip")

	zipFile, err := os.Create(destPath)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrIO, op, "failed to create backup file")
	}
	defer zipFile.Close()

	archive := zip.NewWriter(zipFile)
	defer archive.Close()

	err = filepath.Walk(m.dataDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == m.backupDir || strings.HasPrefix(path, m.backupDir+string(os.PathSeparator)) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(m.dataDir, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(relPath)
		if info.IsDir() {
			header.Name += "/"
		} else {
			header.Method = zip.Deflate
		}

		writer, err := archive.CreateHeader(header)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(writer, file)
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrIO, op, "failed to archive data directory")
	}

	return destPath, nil
}

func sanitizeLabel(label string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, label)
}

// Info describes one backup archive
type Info struct {
	Name      string
	Path      string
	Size      int64
	Timestamp time.Time
}

// List returns the available backups, newest first
func (m *Manager) List() ([]Info, error) {
	const op = "backup.List"

	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrIO, op, "failed to read backup directory")
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".zip") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Name:      entry.Name(),
			Path:      filepath.Join(m.backupDir, entry.Name()),
			Size:      info.Size(),
			Timestamp: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// validateName rejects archive names that would resolve outside the
// backup directory
func validateName(op, name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return errors.Newf(errors.ErrInvalidInput, op, "invalid backup name: %q", name).
			WithSuggestion("Use a plain archive name as printed by \"sshdeck backup list\"")
	}
	return nil
}

// Restore extracts the named backup over the data directory.
// Existing files are overwritten. The caller must make sure nothing
// holds the database open.
func (m *Manager) Restore(name string) error {
	const op = "backup.Restore"

	if err := validateName(op, name); err != nil {
		return err
	}

	archivePath := filepath.Join(m.backupDir, name)
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Newf(errors.ErrNotFound, op, "backup %q not found", name).
				WithSuggestion("Run \"sshdeck backup list\" to see available backups")
		}
		return errors.Wrap(err, errors.ErrIO, op, "failed to open backup file")
	}
	defer reader.Close()

	root := filepath.Clean(m.dataDir) + string(os.PathSeparator)
	for _, file := range reader.File {
		path := filepath.Join(m.dataDir, file.Name)
		if !strings.HasPrefix(path, root) {
			return errors.Newf(errors.ErrInvalidInput, op, "illegal path in archive: %s", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(path, file.Mode()); err != nil {
				return errors.Wrap(err, errors.ErrIO, op, "failed to create directory")
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return errors.Wrap(err, errors.ErrIO, op, "failed to create directory")
		}

		if err := extractFile(file, path); err != nil {
			return errors.Wrap(err, errors.ErrIO, op, "failed to extract "+file.Name)
		}
	}
	return nil
}

func extractFile(file *zip.File, path string) error {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(out, rc)
	return err
}

// Delete removes the named backup archive
func (m *Manager) Delete(name string) error {
	const op = "backup.Delete"

	if err := validateName(op, name); err != nil {
		return err
	}

	path := filepath.Join(m.backupDir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return errors.Newf(errors.ErrNotFound, op, "backup %q not found", name)
	}
	if err := os.Remove(path); err != nil {
		return errors.Wrap(err, errors.ErrIO, op, "failed to delete backup")
	}
	return nil
}
