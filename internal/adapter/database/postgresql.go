package database

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/jackc/pgx/v5"

	"github.com/semmidev/custos/internal/domain"
)

type PostgreSQLDatabase struct {
	runner domain.ProcessRunner
}

func NewPostgreSQL(runner domain.ProcessRunner) *PostgreSQLDatabase {
	return &PostgreSQLDatabase{runner: runner}
}

func (p *PostgreSQLDatabase) Backup(ctx context.Context, conn *domain.ConnectionDescriptor, outputPath string) error {
	_, err := p.runner.Run(ctx, domain.Command{
		Name: "pg_dump",
		Args: []string{
			"-h", conn.Host,
			"-p", conn.Port,
			"-U", conn.User,
			"-F", "c",
			"-b",
			"-v",
			"-f", outputPath,
			conn.Database,
		},
		Env: []string{"PGPASSWORD=" + conn.Password},
	})
	if err != nil {
		return fmt.Errorf("pg_dump failed: %w", err)
	}

	return nil
}

func (p *PostgreSQLDatabase) Restore(ctx context.Context, conn *domain.ConnectionDescriptor, inputPath string) error {
	_, err := p.runner.Run(ctx, domain.Command{
		Name: "pg_restore",
		Args: []string{
			"-h", conn.Host,
			"-p", conn.Port,
			"-U", conn.User,
			"-d", conn.Database,
			"-c",
			"-v",
			inputPath,
		},
		Env: []string{"PGPASSWORD=" + conn.Password},
	})
	if err != nil {
		return fmt.Errorf("pg_restore failed: %w", err)
	}

	return nil
}

func (p *PostgreSQLDatabase) GetType() string {
	return domain.EnginePostgreSQL
}

func (p *PostgreSQLDatabase) Ping(ctx context.Context, conn *domain.ConnectionDescriptor) error {
	c, err := pgx.Connect(ctx, postgresURL(conn))
	if err != nil {
		return fmt.Errorf("postgresql ping failed: %w", err)
	}
	defer c.Close(ctx)

	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("postgresql ping failed: %w", err)
	}

	return nil
}

func postgresURL(conn *domain.ConnectionDescriptor) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(conn.User, conn.Password),
		Host:   net.JoinHostPort(conn.Host, conn.Port),
		Path:   "/" + conn.Database,
	}
	return u.String()
}
