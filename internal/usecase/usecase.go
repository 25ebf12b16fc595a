package usecase

import (
	"time"

	"github.com/semmidev/custos/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// Metrics receives backup outcomes. Result is "success" or "failure".
type Metrics interface {
	ObserveBackup(result string, duration time.Duration)
	ObserveRestore(result string)
	AddPruned(n int)
}

type UploadTarget struct {
	Name    string
	Storage domain.Storage
}

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

type nopMetrics struct{}

func (nopMetrics) ObserveBackup(string, time.Duration) {}
func (nopMetrics) ObserveRestore(string)               {}
func (nopMetrics) AddPruned(int)                       {}
