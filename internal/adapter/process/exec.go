package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/semmidev/custos/internal/domain"
)

// ExecRunner runs commands on the host with os/exec.
type ExecRunner struct{}

func NewExec() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, c domain.Command) (*domain.ProcessResult, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)

	if c.StdinFile != "" {
		stdin, err := os.Open(c.StdinFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open stdin file: %w", err)
		}
		defer stdin.Close()
		cmd.Stdin = stdin
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	result := &domain.ProcessResult{
		ExitCode: cmd.ProcessState.ExitCode(),
		Output:   output.Bytes(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, fmt.Errorf("%s exited with code %d: %s", c.Name, exitErr.ExitCode(), bytes.TrimSpace(output.Bytes()))
		}
		return result, fmt.Errorf("%s failed to start: %w", c.Name, err)
	}

	return result, nil
}
