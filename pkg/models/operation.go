package models

import (
	"time"
)

// SourceType selects how the source tree is listed
type SourceType string

const (
	// SourceGit lists the files of a git commit
	SourceGit SourceType = "git"
	// SourceDir lists every file under a directory
	SourceDir SourceType = "dir"
)

// Operation describes one reconciliation run
type Operation struct {
	ID             string
	SourceRoot     string
	SourceType     SourceType
	Revision       string
	Stream         string
	WorkspaceRoot  string
	SourceIgnore   []string
	DestIgnore     []string
	DryRun         bool
	MaxWorkers     int
	BatchByteLimit int
	BandwidthLimit int64 // bytes per second, 0 = unlimited
	BufferSize     int
	CreatedAt      time.Time
}

// Scope returns the depot path pattern covering the whole stream
func (op *Operation) Scope() string {
	return op.Stream + "/..."
}

// Validate checks if the operation configuration is valid
func (op *Operation) Validate() error {
	if op.SourceRoot == "" {
		return &ValidationError{Field: "SourceRoot", Message: "source root is required"}
	}
	if op.Stream == "" {
		return &ValidationError{Field: "Stream", Message: "destination stream is required"}
	}
	if op.WorkspaceRoot == "" {
		return &ValidationError{Field: "WorkspaceRoot", Message: "destination root is required"}
	}
	if op.SourceType != SourceGit && op.SourceType != SourceDir {
		return &ValidationError{Field: "SourceType", Message: "must be 'git' or 'dir'"}
	}
	if op.MaxWorkers < 1 {
		return &ValidationError{Field: "MaxWorkers", Message: "max workers must be at least 1"}
	}
	if op.BatchByteLimit < 0 {
		return &ValidationError{Field: "BatchByteLimit", Message: "batch byte limit cannot be negative"}
	}
	if op.BufferSize < 1024 {
		return &ValidationError{Field: "BufferSize", Message: "buffer size must be at least 1024 bytes"}
	}
	return nil
}
