package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/semmidev/custos/internal/domain"
)

// ArchiveStore is the part of the backup directory retention needs.
type ArchiveStore interface {
	List(ctx context.Context) ([]domain.Backup, error)
	Delete(ctx context.Context, filename string) error
}

// Retention keeps only the newest maxBackups archives, locally and on every
// remote target that can list its objects.
type Retention struct {
	local         ArchiveStore
	uploadTargets []UploadTarget
	logger        Logger
	metrics       Metrics
	maxBackups    int
}

func NewRetention(
	local ArchiveStore,
	uploadTargets []UploadTarget,
	logger Logger,
	maxBackups int,
) *Retention {
	return &Retention{
		local:         local,
		uploadTargets: uploadTargets,
		logger:        logger,
		metrics:       nopMetrics{},
		maxBackups:    maxBackups,
	}
}

func (uc *Retention) WithMetrics(m Metrics) *Retention {
	uc.metrics = m
	return uc
}

func (uc *Retention) MaxBackups() int {
	return uc.maxBackups
}

// Prune deletes local archives beyond the newest maxBackups, oldest first.
// A file that cannot be deleted is logged and skipped.
func (uc *Retention) Prune(ctx context.Context) (int, error) {
	backups, err := uc.local.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list backups: %w", err)
	}

	if len(backups) <= uc.maxBackups {
		return 0, nil
	}

	stale := backups[uc.maxBackups:]
	deleted := 0
	for i := len(stale) - 1; i >= 0; i-- {
		name := stale[i].Filename
		if err := uc.local.Delete(ctx, name); err != nil {
			uc.logger.Errorf("%v %s: %v", domain.ErrPruneDeletionFailed, name, err)
			continue
		}
		deleted++
	}

	uc.metrics.AddPruned(deleted)
	uc.logger.Infof("Cleaned %d old backup(s), keeping %d", deleted, uc.maxBackups)
	return deleted, nil
}

// PruneTargets applies the same count policy to the remote targets.
func (uc *Retention) PruneTargets(ctx context.Context) {
	var wg sync.WaitGroup

	for _, target := range uc.uploadTargets {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			if err := uc.pruneTarget(ctx, t); err != nil {
				uc.logger.Errorf("Cleanup failed for %s: %v", t.Name, err)
			}
		}(target)
	}

	wg.Wait()
}

func (uc *Retention) pruneTarget(ctx context.Context, target UploadTarget) error {
	files, err := target.Storage.List(ctx)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	var names []string
	for _, name := range files {
		if domain.IsBackupFilename(strings.TrimSuffix(name, ".gz")) {
			names = append(names, name)
		}
	}
	if len(names) <= uc.maxBackups {
		return nil
	}

	// timestamped names sort chronologically
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	deleted := 0
	for _, name := range names[uc.maxBackups:] {
		uc.logger.Infof("Deleting old backup from %s: %s", target.Name, name)

		if err := target.Storage.Delete(ctx, name); err != nil {
			uc.logger.Errorf("%v %s from %s: %v", domain.ErrPruneDeletionFailed, name, target.Name, err)
		} else {
			deleted++
		}
	}

	uc.logger.Infof("Deleted %d old backup(s) from %s", deleted, target.Name)
	return nil
}
