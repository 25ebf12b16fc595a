package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/semmidev/custos/internal/domain"
)

// LocalStorage is the backup directory.
type LocalStorage interface {
	ArchiveStore
	EnsureDir() error
	GetPath(filename string) string
	Stat(ctx context.Context, filename string) (*domain.Backup, error)
}

// EngineFactory picks the dump/restore engine for a connection.
type EngineFactory func(engine string) (domain.Engine, error)

// Backup creates, restores, lists and deletes archives of the database behind
// databaseURL. Create and Restore never run concurrently within one process.
type Backup struct {
	mu sync.Mutex

	databaseURL  string
	engines      EngineFactory
	localStorage LocalStorage
	retention    *Retention
	mirror       *Mirror
	logger       Logger
	metrics      Metrics
	now          func() time.Time
}

type BackupOption func(*Backup)

func WithMetrics(m Metrics) BackupOption {
	return func(uc *Backup) { uc.metrics = m }
}

func WithClock(now func() time.Time) BackupOption {
	return func(uc *Backup) { uc.now = now }
}

func NewBackup(
	databaseURL string,
	engines EngineFactory,
	localStorage LocalStorage,
	retention *Retention,
	mirror *Mirror,
	logger Logger,
	opts ...BackupOption,
) *Backup {
	uc := &Backup{
		databaseURL:  databaseURL,
		engines:      engines,
		localStorage: localStorage,
		retention:    retention,
		mirror:       mirror,
		logger:       logger,
		metrics:      nopMetrics{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Execute lets the scheduler drive Create.
func (uc *Backup) Execute(ctx context.Context) error {
	backup, err := uc.Create(ctx)
	if err != nil {
		return err
	}
	uc.logger.Infof("Automatic backup completed: %s", backup.Filename)
	return nil
}

// Create dumps the database into a new timestamped archive, prunes old
// archives and mirrors the new one to the upload targets.
func (uc *Backup) Create(ctx context.Context) (*domain.Backup, error) {
	// a launched dump is never cancelled
	ctx = context.WithoutCancel(ctx)

	uc.mu.Lock()
	defer uc.mu.Unlock()

	start := uc.now()
	backup, err := uc.create(ctx)
	if err != nil {
		uc.metrics.ObserveBackup(resultFailure, uc.now().Sub(start))
		uc.logger.Errorf("Backup creation failed: %v", err)
		return nil, err
	}
	uc.metrics.ObserveBackup(resultSuccess, uc.now().Sub(start))

	if _, err := uc.retention.Prune(ctx); err != nil {
		uc.logger.Errorf("Failed to clean old backups: %v", err)
	}

	if uc.mirror != nil && len(uc.mirror.Targets()) > 0 {
		uc.mirror.Upload(ctx, backup)
		uc.retention.PruneTargets(ctx)
	}

	return backup, nil
}

func (uc *Backup) create(ctx context.Context) (*domain.Backup, error) {
	if err := uc.localStorage.EnsureDir(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackupFailed, err)
	}

	conn, engine, err := uc.connect()
	if err != nil {
		return nil, err
	}

	filename := domain.BackupFilename(uc.now())
	filePath := uc.localStorage.GetPath(filename)

	uc.logger.Infof("[%s] Creating backup of %s", filename, conn)
	if err := engine.Backup(ctx, conn, filePath); err != nil {
		uc.removePartial(filePath)
		return nil, fmt.Errorf("%w: %w", domain.ErrBackupFailed, err)
	}

	backup, err := uc.localStorage.Stat(ctx, filename)
	if err != nil {
		uc.removePartial(filePath)
		return nil, fmt.Errorf("%w: dump produced no file: %w", domain.ErrBackupFailed, err)
	}

	uc.logger.Infof("Backup created successfully: %s (%s)", backup.Filename, domain.FormatSize(backup.Size))
	return backup, nil
}

// Restore replaces the database contents with the named archive. The caller
// is responsible for confirming this destructive step.
func (uc *Backup) Restore(ctx context.Context, filename string) error {
	backup, err := uc.localStorage.Stat(ctx, filename)
	if err != nil {
		return err
	}

	conn, engine, err := uc.connect()
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)

	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.logger.Warnf("Restoring %s from %s", conn, backup.Filename)
	if err := engine.Restore(ctx, conn, backup.FilePath); err != nil {
		uc.metrics.ObserveRestore(resultFailure)
		uc.logger.Errorf("Database restore failed: %v", err)
		return fmt.Errorf("%w: %w", domain.ErrRestoreFailed, err)
	}

	uc.metrics.ObserveRestore(resultSuccess)
	uc.logger.Infof("Database restored successfully from: %s", backup.Filename)
	return nil
}

func (uc *Backup) List(ctx context.Context) ([]domain.Backup, error) {
	backups, err := uc.localStorage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	return backups, nil
}

func (uc *Backup) Get(ctx context.Context, filename string) (*domain.Backup, error) {
	return uc.localStorage.Stat(ctx, filename)
}

func (uc *Backup) Delete(ctx context.Context, filename string) error {
	if err := uc.localStorage.Delete(ctx, filename); err != nil {
		uc.logger.Errorf("Failed to delete backup %s: %v", filename, err)
		return err
	}
	uc.logger.Infof("Backup deleted: %s", filename)
	return nil
}

// Prune runs retention outside of a backup.
func (uc *Backup) Prune(ctx context.Context) (int, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	return uc.retention.Prune(ctx)
}

// Ping checks that the database is reachable with the configured URL.
func (uc *Backup) Ping(ctx context.Context) error {
	conn, engine, err := uc.connect()
	if err != nil {
		return err
	}
	return engine.Ping(ctx, conn)
}

func (uc *Backup) connect() (*domain.ConnectionDescriptor, domain.Engine, error) {
	conn, err := domain.ParseConnectionString(uc.databaseURL)
	if err != nil {
		return nil, nil, err
	}

	engine, err := uc.engines(conn.Engine)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrMalformedConnectionString, err)
	}

	return conn, engine, nil
}

func (uc *Backup) removePartial(filePath string) {
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		uc.logger.Warnf("Failed to remove partial backup %s: %v", filePath, err)
	}
}
