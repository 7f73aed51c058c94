package masking

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Default discriminator member names.
const (
	DefaultCodeField      = "code"
	DefaultCodeValueField = "codeValue"
)

// ErrInvalidFieldConfig is returned for a FieldConfig that cannot be turned into a Rule.
var ErrInvalidFieldConfig = errors.New("invalid field masking config")

// FieldConfig is one configured field rule. Indices are 0-based and half-open:
// MaskStartIndex is the first masked character, MaskEndIndex the first one kept.
type FieldConfig struct {
	FieldName      string `yaml:"field-name" json:"field_name"`
	MaskChar       string `yaml:"mask-char,omitempty" json:"mask_char,omitempty"`
	MaskStartIndex *int   `yaml:"mask-start-index,omitempty" json:"mask_start_index,omitempty"`
	MaskEndIndex   *int   `yaml:"mask-end-index,omitempty" json:"mask_end_index,omitempty"`
	MaskAll        bool   `yaml:"mask-all,omitempty" json:"mask_all,omitempty"`
}

// Validate reports whether the entry can be converted to a Rule. Index geometry
// is not checked: a range that ends at or before its start masks nothing.
func (c FieldConfig) Validate() error {
	if strings.TrimSpace(c.FieldName) == "" {
		return fmt.Errorf("%w: field name is required", ErrInvalidFieldConfig)
	}
	if c.MaskChar != "" && utf8.RuneCountInString(c.MaskChar) != 1 {
		return fmt.Errorf("%w: field %q: mask char must be a single character, got %q",
			ErrInvalidFieldConfig, c.FieldName, c.MaskChar)
	}
	return nil
}

// Rule converts the entry to a Rule. A negative start is floored to 0, and an
// end index at or below the start yields a rule that leaves values unchanged.
func (c FieldConfig) Rule() Rule {
	var r Rule
	if c.MaskChar != "" {
		r.MaskChar, _ = utf8.DecodeRuneInString(c.MaskChar)
	}

	if c.MaskAll || (c.MaskStartIndex == nil && c.MaskEndIndex == nil) {
		r.MaskAll = true
		return r
	}

	start := 0
	if c.MaskStartIndex != nil && *c.MaskStartIndex > 0 {
		start = *c.MaskStartIndex
	}
	switch {
	case c.MaskEndIndex == nil:
		// Open end: MaskValue caps the range at the value length.
		r.StartIndex = start
		r.Length = maxInt
	case *c.MaskEndIndex <= start:
		// Starts past any value, so the range is always empty.
		r.StartIndex = maxInt
		r.Length = 1
	default:
		r.StartIndex = start
		r.Length = *c.MaskEndIndex - start
	}
	return r
}

const maxInt = int(^uint(0) >> 1)

// Registry is a flat field name to rule table built from configuration. It also
// resolves the discriminator envelope. A Registry is immutable once built and safe
// for concurrent use.
type Registry struct {
	rules      map[string]Rule
	codeField  string
	valueField string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDiscriminator overrides the code and value member names of the
// discriminator envelope. Empty names keep the defaults.
func WithDiscriminator(codeField, valueField string) RegistryOption {
	return func(r *Registry) {
		if codeField != "" {
			r.codeField = codeField
		}
		if valueField != "" {
			r.valueField = valueField
		}
	}
}

// NewRegistry validates fields and builds a registry. A later entry for the same
// field name replaces an earlier one. The discriminator code and value members
// must have different names.
func NewRegistry(fields []FieldConfig, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		rules:      make(map[string]Rule, len(fields)),
		codeField:  DefaultCodeField,
		valueField: DefaultCodeValueField,
	}
	for _, opt := range opts {
		opt(r)
	}

	var errs []error
	if r.codeField == r.valueField {
		errs = append(errs, fmt.Errorf("%w: discriminator code and value fields are both %q",
			ErrInvalidFieldConfig, r.codeField))
	}
	for _, f := range fields {
		if err := f.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		r.rules[f.FieldName] = f.Rule()
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

// RuleFor implements Lookup.
func (r *Registry) RuleFor(field string) (Rule, bool) {
	if r == nil {
		return Rule{}, false
	}
	rule, ok := r.rules[field]
	return rule, ok
}

// RuleForCode implements Discriminating. The code value is looked up in the same
// table as field names.
func (r *Registry) RuleForCode(code string) (Rule, bool) {
	return r.RuleFor(code)
}

// Discriminator implements Discriminating.
func (r *Registry) Discriminator() (codeField, valueField string) {
	if r == nil {
		return DefaultCodeField, DefaultCodeValueField
	}
	return r.codeField, r.valueField
}

// Len returns the number of configured fields.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}
