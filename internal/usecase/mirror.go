package usecase

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/semmidev/custos/internal/domain"
)

// Mirror copies finished archives to the remote upload targets.
type Mirror struct {
	uploadTargets []UploadTarget
	compressor    domain.Compressor
	logger        Logger
	compress      bool
}

func NewMirror(
	uploadTargets []UploadTarget,
	compressor domain.Compressor,
	logger Logger,
	compress bool,
) *Mirror {
	return &Mirror{
		uploadTargets: uploadTargets,
		compressor:    compressor,
		logger:        logger,
		compress:      compress,
	}
}

func (m *Mirror) Targets() []UploadTarget {
	return m.uploadTargets
}

// Upload never fails the backup; every problem is logged.
func (m *Mirror) Upload(ctx context.Context, backup *domain.Backup) {
	if len(m.uploadTargets) == 0 {
		return
	}

	filePath, filename := backup.FilePath, backup.Filename

	if m.compress && m.compressor != nil {
		compressedPath, compressedName, ok := m.compressBackup(backup)
		if !ok {
			return
		}
		defer os.Remove(compressedPath)
		filePath, filename = compressedPath, compressedName
	}

	m.uploadToTargets(ctx, filePath, filename)
}

func (m *Mirror) compressBackup(backup *domain.Backup) (string, string, bool) {
	compressedFilename := backup.Filename + ".gz"
	compressedPath := filepath.Join(os.TempDir(), compressedFilename)

	m.logger.Infof("[%s] Compressing backup for upload...", backup.Filename)
	if err := m.compressor.Compress(backup.FilePath, compressedPath); err != nil {
		m.logger.Errorf("[%s] Compression failed: %v", backup.Filename, err)
		os.Remove(compressedPath)
		return "", "", false
	}

	if info, err := os.Stat(compressedPath); err == nil && backup.Size > 0 {
		m.logger.Infof("[%s] Compression complete, size: %s (%.1f%% of original)",
			backup.Filename,
			domain.FormatSize(info.Size()),
			float64(info.Size())/float64(backup.Size)*100)
	}

	return compressedPath, compressedFilename, true
}

func (m *Mirror) uploadToTargets(ctx context.Context, filePath, filename string) {
	var wg sync.WaitGroup

	for _, target := range m.uploadTargets {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			m.logger.Infof("[%s] Uploading to %s...", filename, t.Name)
			if err := t.Storage.Upload(ctx, filePath, filename); err != nil {
				m.logger.Errorf("[%s] Failed to upload to %s: %v", filename, t.Name, err)
			} else {
				m.logger.Infof("[%s] Successfully uploaded to %s", filename, t.Name)
			}
		}(target)
	}

	wg.Wait()
}
