package database

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/semmidev/custos/internal/domain"
)

type MongoDBDatabase struct {
	runner domain.ProcessRunner
}

func NewMongoDB(runner domain.ProcessRunner) *MongoDBDatabase {
	return &MongoDBDatabase{runner: runner}
}

func (m *MongoDBDatabase) Backup(ctx context.Context, conn *domain.ConnectionDescriptor, outputPath string) error {
	return m.withPasswordConfig(conn, func(configPath string) error {
		_, err := m.runner.Run(ctx, domain.Command{
			Name: "mongodump",
			Args: append(m.connArgs(conn, configPath),
				fmt.Sprintf("--db=%s", conn.Database),
				fmt.Sprintf("--archive=%s", outputPath),
				"--gzip",
				"--verbose",
			),
		})
		if err != nil {
			return fmt.Errorf("mongodump failed: %w", err)
		}
		return nil
	})
}

func (m *MongoDBDatabase) Restore(ctx context.Context, conn *domain.ConnectionDescriptor, inputPath string) error {
	return m.withPasswordConfig(conn, func(configPath string) error {
		_, err := m.runner.Run(ctx, domain.Command{
			Name: "mongorestore",
			Args: append(m.connArgs(conn, configPath),
				fmt.Sprintf("--nsInclude=%s.*", conn.Database),
				fmt.Sprintf("--archive=%s", inputPath),
				"--gzip",
				"--drop",
				"--verbose",
			),
		})
		if err != nil {
			return fmt.Errorf("mongorestore failed: %w", err)
		}
		return nil
	})
}

func (m *MongoDBDatabase) GetType() string {
	return domain.EngineMongoDB
}

// Ping authenticates by dumping a collection that does not exist; mongodump
// has no password env var and mongosh would prompt.
func (m *MongoDBDatabase) Ping(ctx context.Context, conn *domain.ConnectionDescriptor) error {
	return m.withPasswordConfig(conn, func(configPath string) error {
		_, err := m.runner.Run(ctx, domain.Command{
			Name: "mongodump",
			Args: append(m.connArgs(conn, configPath),
				fmt.Sprintf("--db=%s", conn.Database),
				"--collection=__custos_ping",
				fmt.Sprintf("--archive=%s", os.DevNull),
			),
		})
		if err != nil {
			return fmt.Errorf("mongodb ping failed: %w", err)
		}
		return nil
	})
}

func (m *MongoDBDatabase) connArgs(conn *domain.ConnectionDescriptor, configPath string) []string {
	return []string{
		fmt.Sprintf("--host=%s", conn.Host),
		fmt.Sprintf("--port=%s", conn.Port),
		fmt.Sprintf("--username=%s", conn.User),
		"--authenticationDatabase=admin",
		fmt.Sprintf("--config=%s", configPath),
	}
}

// withPasswordConfig writes the password to a 0600 YAML file read through
// --config and removes it when fn returns.
func (m *MongoDBDatabase) withPasswordConfig(conn *domain.ConnectionDescriptor, fn func(configPath string) error) error {
	data, err := yaml.Marshal(map[string]string{"password": conn.Password})
	if err != nil {
		return fmt.Errorf("failed to encode mongo tool config: %w", err)
	}

	f, err := os.CreateTemp("", "custos-mongo-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create mongo tool config: %w", err)
	}
	defer os.Remove(f.Name())

	if err := f.Chmod(0600); err != nil {
		f.Close()
		return fmt.Errorf("failed to protect mongo tool config: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write mongo tool config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write mongo tool config: %w", err)
	}

	return fn(f.Name())
}
