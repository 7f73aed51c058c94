package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const fieldColumns = "id, field_name, mask_char, mask_start_index, mask_end_index, mask_all, created_at, updated_at"

// CreateFieldRule stores a new field rule and returns it as persisted.
// Returns ErrDuplicate if a rule for the same field name already exists.
func (s *SQLiteStorage) CreateFieldRule(ctx context.Context, rule *FieldRule) (*FieldRule, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO mask_fields (field_name, mask_char, mask_start_index, mask_end_index, mask_all) VALUES (?, ?, ?, ?, ?)",
		rule.FieldName, rule.MaskChar, nullInt(rule.MaskStartIndex), nullInt(rule.MaskEndIndex), rule.MaskAll)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create field rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get insert ID: %w", err)
	}

	return s.GetFieldRule(ctx, id)
}

// GetFieldRule retrieves a field rule by ID.
// Returns ErrNotFound if the rule doesn't exist.
func (s *SQLiteStorage) GetFieldRule(ctx context.Context, id int64) (*FieldRule, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+fieldColumns+" FROM mask_fields WHERE id = ?", id)

	rule, err := scanFieldRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get field rule: %w", err)
	}
	return rule, nil
}

// ListFieldRules returns all field rules in insertion order.
// Returns empty slice if no rules exist.
func (s *SQLiteStorage) ListFieldRules(ctx context.Context) ([]*FieldRule, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+fieldColumns+" FROM mask_fields ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query field rules: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	rules := make([]*FieldRule, 0)
	for rows.Next() {
		rule, err := scanFieldRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field rule row: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating field rules: %w", err)
	}

	return rules, nil
}

// UpdateFieldRule replaces the rule stored under rule.ID and returns it as persisted.
// Returns ErrNotFound if the rule doesn't exist and ErrDuplicate if the new field
// name belongs to another rule.
func (s *SQLiteStorage) UpdateFieldRule(ctx context.Context, rule *FieldRule) (*FieldRule, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE mask_fields
		 SET field_name = ?, mask_char = ?, mask_start_index = ?, mask_end_index = ?, mask_all = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		rule.FieldName, rule.MaskChar, nullInt(rule.MaskStartIndex), nullInt(rule.MaskEndIndex), rule.MaskAll, rule.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to update field rule: %w", err)
	}

	if err := requireAffected(result); err != nil {
		return nil, err
	}

	return s.GetFieldRule(ctx, rule.ID)
}

// DeleteFieldRule deletes a field rule by ID.
// Returns ErrNotFound if the rule doesn't exist.
func (s *SQLiteStorage) DeleteFieldRule(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM mask_fields WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete field rule: %w", err)
	}
	return requireAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFieldRule(row rowScanner) (*FieldRule, error) {
	var (
		r          FieldRule
		start, end sql.NullInt64
	)
	if err := row.Scan(&r.ID, &r.FieldName, &r.MaskChar, &start, &end, &r.MaskAll, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.MaskStartIndex = intPtr(start)
	r.MaskEndIndex = intPtr(end)
	return &r, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation reports a UNIQUE constraint failure: extended code 2067,
// or the base SQLITE_CONSTRAINT code.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == 2067 || (sqliteErr.Code()&0xFF) == sqlite3.SQLITE_CONSTRAINT
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
