package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/semmidev/custos/internal/domain"
)

// LocalStorage is the backup directory on the host.
type LocalStorage struct {
	basePath string
}

func NewLocal(basePath string) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backup directory: %w", err)
	}
	l := &LocalStorage{basePath: abs}
	if err := l.EnsureDir(); err != nil {
		return nil, err
	}
	return l, nil
}

// EnsureDir creates the backup directory if it is missing.
func (l *LocalStorage) EnsureDir() error {
	if err := os.MkdirAll(l.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	return nil
}

func (l *LocalStorage) BasePath() string {
	return l.basePath
}

func (l *LocalStorage) GetPath(filename string) string {
	return filepath.Join(l.basePath, filename)
}

// List returns the backups in the directory, newest first.
func (l *LocalStorage) List(ctx context.Context) ([]domain.Backup, error) {
	if err := l.EnsureDir(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	backups := make([]domain.Backup, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !domain.IsBackupFilename(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if errors.Is(err, fs.ErrNotExist) {
			// pruned or deleted since ReadDir
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get file info for %s: %w", entry.Name(), err)
		}
		backups = append(backups, l.record(entry.Name(), info))
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].Filename > backups[j].Filename
		}
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Stat looks up a single backup by name.
func (l *LocalStorage) Stat(ctx context.Context, filename string) (*domain.Backup, error) {
	if !validName(filename) {
		return nil, fmt.Errorf("%w: %s", domain.ErrBackupNotFound, filename)
	}

	info, err := os.Stat(l.GetPath(filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBackupNotFound, filename)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", filename, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrBackupNotFound, filename)
	}

	record := l.record(filename, info)
	return &record, nil
}

func (l *LocalStorage) Delete(ctx context.Context, filename string) error {
	if !validName(filename) {
		return fmt.Errorf("%w: %s", domain.ErrBackupNotFound, filename)
	}
	if err := os.Remove(l.GetPath(filename)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrBackupNotFound, filename)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (l *LocalStorage) record(name string, info fs.FileInfo) domain.Backup {
	created, err := domain.ParseBackupTimestamp(name)
	if err != nil {
		created = info.ModTime()
	}
	return domain.Backup{
		Filename:  name,
		FilePath:  l.GetPath(name),
		Size:      info.Size(),
		CreatedAt: created,
	}
}

// validName rejects anything that could escape the backup directory.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return filepath.Base(name) == name
}
