package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/sipico/payload-masker/internal/masking"
)

// RulesFile is the YAML rules document:
//
//	masking:
//	  request-enabled: true
//	  response-enabled: true
//	  default-mask-char: "*"
//	  discriminator:
//	    code-field: code
//	    value-field: codeValue
//	  fields:
//	    - field-name: password
//	      mask-all: true
//	    - field-name: cardNumber
//	      mask-char: "#"
//	      mask-start-index: 4
//	      mask-end-index: 12
//
// Remote rule manifests use the same shape. A manifest may also be written as
// JSON, since JSON is valid YAML, but the keys stay kebab-case ("field-name",
// "mask-all"); the snake_case names of the admin API are rejected here.
type RulesFile struct {
	Masking MaskingRules `yaml:"masking"`
}

// MaskingRules is the masking section of a rules document.
type MaskingRules struct {
	RequestEnabled  *bool                 `yaml:"request-enabled,omitempty"`
	ResponseEnabled *bool                 `yaml:"response-enabled,omitempty"`
	DefaultMaskChar string                `yaml:"default-mask-char,omitempty"`
	Discriminator   Discriminator         `yaml:"discriminator,omitempty"`
	Fields          []masking.FieldConfig `yaml:"fields"`
}

// Discriminator names the members of the code/value envelope.
type Discriminator struct {
	CodeField  string `yaml:"code-field,omitempty"`
	ValueField string `yaml:"value-field,omitempty"`
}

// names returns the member names with the defaults applied.
func (d Discriminator) names() (codeField, valueField string) {
	codeField, valueField = d.CodeField, d.ValueField
	if codeField == "" {
		codeField = masking.DefaultCodeField
	}
	if valueField == "" {
		valueField = masking.DefaultCodeValueField
	}
	return codeField, valueField
}

// LoadRulesFile reads and validates the rules file at path.
func LoadRulesFile(path string) (*RulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRulesFileNotFound, path)
		}
		return nil, err
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes and validates a rules document. Unknown keys are rejected
// so that a misspelt option does not silently disable masking. An empty document
// yields an empty rule set.
func ParseRules(data []byte) (*RulesFile, error) {
	var rules RulesFile

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rules); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &rules, nil
}

// Validate checks every field rule and the section-level settings. All problems
// are reported, joined.
func (r *RulesFile) Validate() error {
	var errs []error
	m := r.Masking

	if m.DefaultMaskChar != "" && utf8.RuneCountInString(m.DefaultMaskChar) != 1 {
		errs = append(errs, NewValidationError("masking", "default-mask-char", "",
			fmt.Errorf("%w: must be a single character, got %q", ErrInvalidValue, m.DefaultMaskChar)))
	}
	if code, value := m.Discriminator.names(); code == value {
		errs = append(errs, NewValidationError("masking", "discriminator", "value-field",
			fmt.Errorf("%w: %q must differ from code-field", ErrInvalidValue, value)))
	}
	for i, f := range m.Fields {
		if err := f.Validate(); err != nil {
			id := f.FieldName
			if id == "" {
				id = fmt.Sprintf("#%d", i)
			}
			errs = append(errs, NewValidationError("field", id, "", err))
		}
	}
	return errors.Join(errs...)
}

// RegistryOptions returns the masking registry options the document asks for.
func (r *RulesFile) RegistryOptions() []masking.RegistryOption {
	d := r.Masking.Discriminator
	if d.CodeField == "" && d.ValueField == "" {
		return nil
	}
	return []masking.RegistryOption{masking.WithDiscriminator(d.CodeField, d.ValueField)}
}

// ApplyRules lets the rules file override the logging toggles and the default
// mask character set through the environment.
func (c *Config) ApplyRules(r *RulesFile) {
	if r == nil {
		return
	}
	if r.Masking.RequestEnabled != nil {
		c.MaskRequestEnabled = *r.Masking.RequestEnabled
	}
	if r.Masking.ResponseEnabled != nil {
		c.MaskResponseEnabled = *r.Masking.ResponseEnabled
	}
	if r.Masking.DefaultMaskChar != "" {
		c.DefaultMaskChar = r.Masking.DefaultMaskChar
	}
}
