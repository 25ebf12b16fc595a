package usecase

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/semmidev/custos/internal/domain"
)

type fakeEngine struct {
	mu        sync.Mutex
	backups   []string
	restores  []string
	active    int32
	maxActive int32

	failBackup  error
	failRestore error
	partial     bool
}

func (e *fakeEngine) Backup(ctx context.Context, conn *domain.ConnectionDescriptor, outputPath string) error {
	e.enter()
	defer atomic.AddInt32(&e.active, -1)

	e.mu.Lock()
	e.backups = append(e.backups, outputPath)
	e.mu.Unlock()

	if e.failBackup != nil {
		if e.partial {
			_ = os.WriteFile(outputPath, []byte("PGDMP-partial"), 0644)
		}
		return e.failBackup
	}

	time.Sleep(2 * time.Millisecond)
	return os.WriteFile(outputPath, []byte("PGDMP"), 0644)
}

func (e *fakeEngine) Restore(ctx context.Context, conn *domain.ConnectionDescriptor, inputPath string) error {
	e.enter()
	defer atomic.AddInt32(&e.active, -1)

	e.mu.Lock()
	e.restores = append(e.restores, inputPath)
	e.mu.Unlock()

	return e.failRestore
}

func (e *fakeEngine) Ping(ctx context.Context, conn *domain.ConnectionDescriptor) error {
	return nil
}

func (e *fakeEngine) GetType() string {
	return domain.EnginePostgreSQL
}

func (e *fakeEngine) enter() {
	n := atomic.AddInt32(&e.active, 1)
	for {
		m := atomic.LoadInt32(&e.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&e.maxActive, m, n) {
			return
		}
	}
}

func (e *fakeEngine) factory() EngineFactory {
	return func(string) (domain.Engine, error) { return e, nil }
}

// stepClock advances one second per reading.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// memoryStore is an in-memory ArchiveStore and remote Storage.
type memoryStore struct {
	mu       sync.Mutex
	names    map[string]time.Time
	uploaded []string
	failOn   map[string]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{names: map[string]time.Time{}, failOn: map[string]bool{}}
}

func (s *memoryStore) add(name string, created time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[name] = created
}

func (s *memoryStore) List(ctx context.Context) ([]domain.Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Backup
	for name, created := range s.names {
		out = append(out, domain.Backup{Filename: name, CreatedAt: created})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[name] {
		return errors.New("permission denied")
	}
	if _, ok := s.names[name]; !ok {
		return domain.ErrBackupNotFound
	}
	delete(s.names, name)
	return nil
}

func (s *memoryStore) Upload(ctx context.Context, localPath string, remoteName string) error {
	if _, err := os.Stat(localPath); err != nil {
		return err
	}
	s.mu.Lock()
	s.uploaded = append(s.uploaded, remoteName)
	s.mu.Unlock()
	s.add(remoteName, time.Now())
	return nil
}

func (s *memoryStore) remoteNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// storageAdapter exposes memoryStore through the domain.Storage name list.
type storageAdapter struct{ *memoryStore }

func (a storageAdapter) List(ctx context.Context) ([]string, error) {
	return a.remoteNames(), nil
}

type countingMetrics struct {
	mu       sync.Mutex
	backups  map[string]int
	restores map[string]int
	pruned   int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{backups: map[string]int{}, restores: map[string]int{}}
}

func (m *countingMetrics) ObserveBackup(result string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backups[result]++
}

func (m *countingMetrics) ObserveRestore(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restores[result]++
}

func (m *countingMetrics) AddPruned(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned += n
}
