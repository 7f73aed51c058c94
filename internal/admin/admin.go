// Package admin provides the administration API for masking rules.
package admin

import (
	"context"
	"log/slog"

	"github.com/sipico/payload-masker/internal/masking"
	"github.com/sipico/payload-masker/internal/rules"
	"github.com/sipico/payload-masker/internal/storage"
)

// Handler provides admin endpoints
type Handler struct {
	storage   Storage
	rules     RuleSet
	masker    *masking.Masker
	logger    *slog.Logger
	logLevel  *slog.LevelVar
	tokenHash string
}

// Storage interface for admin operations
type Storage interface {
	// Health check
	Ping(ctx context.Context) error

	// Field rule operations
	CreateFieldRule(ctx context.Context, rule *storage.FieldRule) (*storage.FieldRule, error)
	GetFieldRule(ctx context.Context, id int64) (*storage.FieldRule, error)
	ListFieldRules(ctx context.Context) ([]*storage.FieldRule, error)
	UpdateFieldRule(ctx context.Context, rule *storage.FieldRule) (*storage.FieldRule, error)
	DeleteFieldRule(ctx context.Context, id int64) error
}

// RuleSet is the live rule set the admin API reloads after each change.
type RuleSet interface {
	Reload(ctx context.Context, source string) error
	Snapshot() *rules.Snapshot
}

// NewHandler creates an admin handler. The /api routes stay disabled until
// SetAdminTokenHash is called.
func NewHandler(storage Storage, ruleSet RuleSet, masker *masking.Masker, logLevel *slog.LevelVar, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if logLevel == nil {
		logLevel = new(slog.LevelVar)
	}

	return &Handler{
		storage:  storage,
		rules:    ruleSet,
		masker:   masker,
		logLevel: logLevel,
		logger:   logger,
	}
}

// SetAdminTokenHash sets the bcrypt hash (see storage.HashKey) that admin API
// requests must present the plaintext of.
func (h *Handler) SetAdminTokenHash(hash string) {
	h.tokenHash = hash
}
