package database

import (
	"context"
	"fmt"

	"github.com/semmidev/custos/internal/domain"
)

type MySQLDatabase struct {
	runner domain.ProcessRunner
}

func NewMySQL(runner domain.ProcessRunner) *MySQLDatabase {
	return &MySQLDatabase{runner: runner}
}

// MYSQL_PWD keeps the password out of the process list.
func (m *MySQLDatabase) Backup(ctx context.Context, conn *domain.ConnectionDescriptor, outputPath string) error {
	_, err := m.runner.Run(ctx, domain.Command{
		Name: "mysqldump",
		Args: append(m.connArgs(conn),
			"--single-transaction",
			"--quick",
			"--lock-tables=false",
			"--routines",
			"--triggers",
			"--events",
			"--verbose",
			fmt.Sprintf("--result-file=%s", outputPath),
			conn.Database,
		),
		Env: []string{"MYSQL_PWD=" + conn.Password},
	})
	if err != nil {
		return fmt.Errorf("mysqldump failed: %w", err)
	}

	return nil
}

// The dump carries DROP TABLE statements, which gives the clean restore.
func (m *MySQLDatabase) Restore(ctx context.Context, conn *domain.ConnectionDescriptor, inputPath string) error {
	_, err := m.runner.Run(ctx, domain.Command{
		Name:      "mysql",
		Args:      append(m.connArgs(conn), "--verbose", conn.Database),
		Env:       []string{"MYSQL_PWD=" + conn.Password},
		StdinFile: inputPath,
	})
	if err != nil {
		return fmt.Errorf("mysql restore failed: %w", err)
	}

	return nil
}

func (m *MySQLDatabase) GetType() string {
	return domain.EngineMySQL
}

func (m *MySQLDatabase) Ping(ctx context.Context, conn *domain.ConnectionDescriptor) error {
	_, err := m.runner.Run(ctx, domain.Command{
		Name: "mysql",
		Args: append(m.connArgs(conn), "-e", "SELECT 1"),
		Env:  []string{"MYSQL_PWD=" + conn.Password},
	})
	if err != nil {
		return fmt.Errorf("mysql ping failed: %w", err)
	}

	return nil
}

func (m *MySQLDatabase) connArgs(conn *domain.ConnectionDescriptor) []string {
	return []string{
		fmt.Sprintf("--host=%s", conn.Host),
		fmt.Sprintf("--port=%s", conn.Port),
		fmt.Sprintf("--user=%s", conn.User),
	}
}
