// Package mockstore provides a configurable mock implementation of storage.Storage for testing.
//
// The MockStorage type uses function fields for each method, allowing tests to customize behavior
// as needed while providing sensible defaults for methods that aren't customized.
package mockstore

import (
	"context"

	"github.com/sipico/payload-masker/internal/storage"
)

// MockStorage is a configurable mock implementation of storage.Storage.
// If a function field is nil, the method returns a sensible default value.
type MockStorage struct {
	CreateFieldRuleFunc func(ctx context.Context, rule *storage.FieldRule) (*storage.FieldRule, error)
	GetFieldRuleFunc    func(ctx context.Context, id int64) (*storage.FieldRule, error)
	ListFieldRulesFunc  func(ctx context.Context) ([]*storage.FieldRule, error)
	UpdateFieldRuleFunc func(ctx context.Context, rule *storage.FieldRule) (*storage.FieldRule, error)
	DeleteFieldRuleFunc func(ctx context.Context, id int64) error

	PingFunc  func(ctx context.Context) error
	CloseFunc func() error
}

// CreateFieldRule returns a copy of rule with ID 1 by default.
func (m *MockStorage) CreateFieldRule(ctx context.Context, rule *storage.FieldRule) (*storage.FieldRule, error) {
	if m.CreateFieldRuleFunc != nil {
		return m.CreateFieldRuleFunc(ctx, rule)
	}
	created := *rule
	created.ID = 1
	return &created, nil
}

// GetFieldRule returns storage.ErrNotFound by default.
func (m *MockStorage) GetFieldRule(ctx context.Context, id int64) (*storage.FieldRule, error) {
	if m.GetFieldRuleFunc != nil {
		return m.GetFieldRuleFunc(ctx, id)
	}
	return nil, storage.ErrNotFound
}

// ListFieldRules returns an empty slice by default.
func (m *MockStorage) ListFieldRules(ctx context.Context) ([]*storage.FieldRule, error) {
	if m.ListFieldRulesFunc != nil {
		return m.ListFieldRulesFunc(ctx)
	}
	return []*storage.FieldRule{}, nil
}

// UpdateFieldRule returns rule unchanged by default.
func (m *MockStorage) UpdateFieldRule(ctx context.Context, rule *storage.FieldRule) (*storage.FieldRule, error) {
	if m.UpdateFieldRuleFunc != nil {
		return m.UpdateFieldRuleFunc(ctx, rule)
	}
	return rule, nil
}

// DeleteFieldRule succeeds by default.
func (m *MockStorage) DeleteFieldRule(ctx context.Context, id int64) error {
	if m.DeleteFieldRuleFunc != nil {
		return m.DeleteFieldRuleFunc(ctx, id)
	}
	return nil
}

// Ping succeeds by default.
func (m *MockStorage) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Close succeeds by default.
func (m *MockStorage) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
