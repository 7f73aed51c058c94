package storage

import (
	"time"

	"github.com/sipico/payload-masker/internal/masking"
)

// FieldRule is a persisted field masking rule. The embedded FieldConfig carries
// the rule itself and serializes flat alongside the row metadata.
type FieldRule struct {
	ID int64 `json:"id"`
	masking.FieldConfig
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FieldConfigs extracts the masking configuration of rules, in order.
func FieldConfigs(rules []*FieldRule) []masking.FieldConfig {
	out := make([]masking.FieldConfig, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.FieldConfig)
	}
	return out
}
