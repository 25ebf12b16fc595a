package domain

import "context"

// Engine knows how to dump and restore one kind of database through a
// ProcessRunner.
type Engine interface {
	Backup(ctx context.Context, conn *ConnectionDescriptor, outputPath string) error
	Restore(ctx context.Context, conn *ConnectionDescriptor, inputPath string) error
	Ping(ctx context.Context, conn *ConnectionDescriptor) error
	GetType() string
}
