package database

import (
	"fmt"

	"github.com/semmidev/custos/internal/domain"
)

// New returns the engine for a ConnectionDescriptor.Engine value.
func New(engine string, runner domain.ProcessRunner) (domain.Engine, error) {
	switch engine {
	case domain.EnginePostgreSQL:
		return NewPostgreSQL(runner), nil
	case domain.EngineMySQL:
		return NewMySQL(runner), nil
	case domain.EngineMongoDB:
		return NewMongoDB(runner), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", engine)
	}
}
