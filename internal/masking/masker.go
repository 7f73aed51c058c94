package masking

import (
	"fmt"
	"sync/atomic"

	"github.com/sipico/payload-masker/internal/jsontree"
)

// Masker masks JSON payloads with a swappable Lookup. The lookup is replaced
// atomically, so a reload never races with payloads being masked; each call
// sees either the old or the new rules, never a mix.
type Masker struct {
	lookup      atomic.Pointer[lookupBox]
	defaultChar rune
}

type lookupBox struct {
	l Lookup
}

// Result describes one masked payload.
type Result struct {
	// Body is the re-encoded masked document.
	Body []byte
	// Masked is the number of string members that had a rule applied.
	Masked int
}

// NewMasker returns a Masker using lookup (nil means no rules) and defaultChar
// (0 means DefaultMaskChar).
func NewMasker(lookup Lookup, defaultChar rune) *Masker {
	m := &Masker{defaultChar: orDefault(defaultChar)}
	m.SetLookup(lookup)
	return m
}

// SetLookup replaces the rules used by subsequent calls.
func (m *Masker) SetLookup(lookup Lookup) {
	if lookup == nil {
		lookup = NoRules
	}
	m.lookup.Store(&lookupBox{l: lookup})
}

// Lookup returns the current rules.
func (m *Masker) Lookup() Lookup {
	if b := m.lookup.Load(); b != nil {
		return b.l
	}
	return NoRules
}

// DefaultChar returns the mask character used when a rule sets none.
func (m *Masker) DefaultChar() rune {
	return m.defaultChar
}

// MaskNode masks a parsed tree with the current rules.
func (m *Masker) MaskNode(n jsontree.Node) (jsontree.Node, int) {
	return newWalker(m.Lookup(), orDefault(m.defaultChar)).walk(n)
}

// MaskJSON parses data, masks it and encodes the result. If data is not valid
// JSON the returned Result carries data unchanged together with an error wrapping
// jsontree.ErrInvalidJSON; callers should log and pass the original through.
func (m *Masker) MaskJSON(data []byte) (Result, error) {
	tree, err := jsontree.Parse(data)
	if err != nil {
		return Result{Body: data}, fmt.Errorf("failed to parse payload: %w", err)
	}
	masked, count := m.MaskNode(tree)
	return Result{Body: jsontree.Encode(masked), Masked: count}, nil
}
