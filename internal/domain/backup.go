package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	FilenamePrefix = "backup-"
	FilenameExt    = ".sql"
)

// Backup describes one archive in the backup directory. It is derived from
// the filesystem and never persisted.
type Backup struct {
	Filename  string    `json:"filename"`
	FilePath  string    `json:"filepath"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created"`
}

var timestampReplacer = strings.NewReplacer(":", "-", ".", "-")

// BackupFilename returns backup-<ts>.sql where ts is the UTC ISO-8601 instant
// with millisecond precision and ':' and '.' replaced by '-'.
func BackupFilename(t time.Time) string {
	ts := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return FilenamePrefix + timestampReplacer.Replace(ts) + FilenameExt
}

// IsBackupFilename reports whether name looks like an archive this service
// produced.
func IsBackupFilename(name string) bool {
	return strings.HasPrefix(name, FilenamePrefix) && strings.HasSuffix(name, FilenameExt)
}

// ParseBackupTimestamp recovers the creation instant from a name produced by
// BackupFilename.
func ParseBackupTimestamp(name string) (time.Time, error) {
	if !IsBackupFilename(name) {
		return time.Time{}, fmt.Errorf("invalid filename format: %s", name)
	}
	ts := strings.TrimSuffix(strings.TrimPrefix(name, FilenamePrefix), FilenameExt)

	// 2006-01-02T15-04-05-000Z
	date, clock, ok := strings.Cut(ts, "T")
	if !ok {
		return time.Time{}, fmt.Errorf("invalid filename format: %s", name)
	}
	parts := strings.Split(strings.TrimSuffix(clock, "Z"), "-")
	if len(parts) != 4 {
		return time.Time{}, fmt.Errorf("invalid filename format: %s", name)
	}

	iso := fmt.Sprintf("%sT%s:%s:%s.%sZ", date, parts[0], parts[1], parts[2], parts[3])
	return time.Parse("2006-01-02T15:04:05.000Z", iso)
}

// FormatSize renders a byte count the way the admin UI shows it.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	sizes := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	v := math.Round(float64(bytes)/math.Pow(1024, float64(i))*100) / 100
	return fmt.Sprintf("%g %s", v, sizes[i])
}
