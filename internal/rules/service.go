// Package rules assembles the live field masking rules from the rules file, the
// remote manifest and the database, and installs them into a Masker.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sipico/payload-masker/internal/config"
	"github.com/sipico/payload-masker/internal/masking"
	"github.com/sipico/payload-masker/internal/metrics"
	"github.com/sipico/payload-masker/internal/storage"
)

// Reload sources, used as the metrics "source" label.
const (
	SourceStartup = "startup"
	SourceAdmin   = "admin"
	SourceRemote  = "remote"
)

// FieldStore lists the field rules persisted through the admin API.
type FieldStore interface {
	ListFieldRules(ctx context.Context) ([]*storage.FieldRule, error)
}

// Snapshot describes the rule set currently installed in the Masker.
type Snapshot struct {
	Fields      []masking.FieldConfig `json:"fields"`
	CodeField   string                `json:"code_field"`
	ValueField  string                `json:"value_field"`
	FileRules   int                   `json:"file_rules"`
	RemoteRules int                   `json:"remote_rules"`
	StoredRules int                   `json:"stored_rules"`
	Source      string                `json:"source"`
	LoadedAt    time.Time             `json:"loaded_at"`
}

// Service rebuilds the masking registry from three layers: the rules file, the
// remote manifest and the database. Later layers override earlier ones by field
// name. Rebuilds are serialized; the installed registry is swapped atomically.
type Service struct {
	masker   *masking.Masker
	store    FieldStore
	filePath string
	logger   *slog.Logger

	mu     sync.Mutex
	remote *config.RulesFile

	current atomic.Pointer[Snapshot]
}

// Option configures a Service.
type Option func(*Service)

// WithStore adds the database layer.
func WithStore(store FieldStore) Option {
	return func(s *Service) { s.store = store }
}

// WithRulesFile adds the file layer. The file is re-read on every reload.
func WithRulesFile(path string) Option {
	return func(s *Service) { s.filePath = path }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService returns a Service feeding masker. Call Reload to install the first
// rule set.
func NewService(masker *masking.Masker, opts ...Option) *Service {
	s := &Service{
		masker: masker,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reload rebuilds the registry from all layers and installs it. On error the
// previously installed rules stay active.
func (s *Service) Reload(ctx context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(ctx, source)
}

// SetRemote replaces the remote layer and reloads. A nil document clears it.
// The new layer is kept only if the rebuild succeeds.
func (s *Service) SetRemote(ctx context.Context, remote *config.RulesFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.remote
	s.remote = remote
	if err := s.reloadLocked(ctx, SourceRemote); err != nil {
		s.remote = prev
		return err
	}
	return nil
}

// Snapshot returns the installed rule set, or nil before the first successful reload.
func (s *Service) Snapshot() *Snapshot {
	return s.current.Load()
}

func (s *Service) reloadLocked(ctx context.Context, source string) error {
	snap, reg, err := s.build(ctx)
	if err != nil {
		metrics.RecordRuleReload(source, "error")
		s.logger.Error("Failed to reload masking rules, keeping previous rules",
			"source", source,
			"error", err)
		return err
	}

	snap.Source = source
	snap.LoadedAt = time.Now().UTC()

	s.masker.SetLookup(reg)
	s.current.Store(snap)

	metrics.RecordRuleReload(source, "success")
	metrics.SetRulesLoaded(reg.Len())
	s.logger.Info("Masking rules loaded",
		"source", source,
		"rules", reg.Len(),
		"file_rules", snap.FileRules,
		"remote_rules", snap.RemoteRules,
		"stored_rules", snap.StoredRules)
	return nil
}

func (s *Service) build(ctx context.Context) (*Snapshot, *masking.Registry, error) {
	snap := &Snapshot{}
	var (
		fields []masking.FieldConfig
		opts   []masking.RegistryOption
	)

	if s.filePath != "" {
		file, err := config.LoadRulesFile(s.filePath)
		if err != nil {
			return nil, nil, fmt.Errorf("rules file: %w", err)
		}
		fields = append(fields, file.Masking.Fields...)
		opts = append(opts, file.RegistryOptions()...)
		snap.FileRules = len(file.Masking.Fields)
	}

	if s.remote != nil {
		fields = append(fields, s.remote.Masking.Fields...)
		opts = append(opts, s.remote.RegistryOptions()...)
		snap.RemoteRules = len(s.remote.Masking.Fields)
	}

	if s.store != nil {
		stored, err := s.store.ListFieldRules(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("stored rules: %w", err)
		}
		fields = append(fields, storage.FieldConfigs(stored)...)
		snap.StoredRules = len(stored)
	}

	reg, err := masking.NewRegistry(fields, opts...)
	if err != nil {
		return nil, nil, err
	}

	snap.Fields = effective(fields)
	snap.CodeField, snap.ValueField = reg.Discriminator()
	return snap, reg, nil
}

// effective drops entries overridden by a later entry for the same field name,
// keeping the position of the winning entry.
func effective(fields []masking.FieldConfig) []masking.FieldConfig {
	last := make(map[string]int, len(fields))
	for i, f := range fields {
		last[f.FieldName] = i
	}
	out := make([]masking.FieldConfig, 0, len(last))
	for i, f := range fields {
		if last[f.FieldName] == i {
			out = append(out, f)
		}
	}
	return out
}
