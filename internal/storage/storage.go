// Package storage provides SQLite persistence for field masking rules.
package storage

import (
	"context"
)

// Storage defines the interface for SQLite persistence operations.
type Storage interface {
	// Field rule operations
	CreateFieldRule(ctx context.Context, rule *FieldRule) (*FieldRule, error)
	GetFieldRule(ctx context.Context, id int64) (*FieldRule, error)
	ListFieldRules(ctx context.Context) ([]*FieldRule, error)
	UpdateFieldRule(ctx context.Context, rule *FieldRule) (*FieldRule, error)
	DeleteFieldRule(ctx context.Context, id int64) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
