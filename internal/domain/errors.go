package domain

import "errors"

var (
	ErrMalformedConnectionString = errors.New("malformed connection string")
	ErrBackupFailed              = errors.New("backup creation failed")
	ErrRestoreFailed             = errors.New("database restore failed")
	ErrPruneDeletionFailed       = errors.New("failed to delete old backup")
	ErrBackupNotFound            = errors.New("backup not found")
)
