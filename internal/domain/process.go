package domain

import "context"

// Command is one external tool invocation. Env holds KEY=VALUE pairs added on
// top of the process environment; secrets go here, never into Args.
type Command struct {
	Name      string
	Args      []string
	Env       []string
	StdinFile string
}

type ProcessResult struct {
	ExitCode int
	Output   []byte
}

// ProcessRunner starts external dump and restore utilities.
type ProcessRunner interface {
	Run(ctx context.Context, cmd Command) (*ProcessResult, error)
}
