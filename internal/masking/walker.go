package masking

import "github.com/sipico/payload-masker/internal/jsontree"

// MaskTree returns a copy of node in which every string member whose name
// resolves to a rule is masked. Shapes, member order, array lengths and all other
// values are preserved; node itself is never modified.
//
// Rules are keyed by field name, so a string that is not the value of an object
// member (the root, or an array element) is never masked. When lookup implements
// Discriminating, objects carrying both discriminator members as strings have their
// value member masked with the rule named by their code member.
func MaskTree(node jsontree.Node, lookup Lookup, defaultChar rune) jsontree.Node {
	out, _ := newWalker(lookup, defaultChar).walk(node)
	return out
}

type walker struct {
	lookup      Lookup
	disc        Discriminating
	defaultChar rune
}

func newWalker(lookup Lookup, defaultChar rune) *walker {
	if lookup == nil {
		lookup = NoRules
	}
	w := &walker{lookup: lookup, defaultChar: defaultChar}
	w.disc, _ = lookup.(Discriminating)
	return w
}

// walk returns the masked copy of n and the number of masked string members.
func (w *walker) walk(n jsontree.Node) (jsontree.Node, int) {
	switch v := n.(type) {
	case *jsontree.Object:
		if v == nil {
			return v, 0
		}
		return w.walkObject(v)
	case *jsontree.Array:
		if v == nil {
			return v, 0
		}
		return w.walkArray(v)
	default:
		return n, 0
	}
}

func (w *walker) walkArray(a *jsontree.Array) (jsontree.Node, int) {
	out := &jsontree.Array{Elements: make([]jsontree.Node, len(a.Elements))}
	total := 0
	for i, e := range a.Elements {
		var c int
		out.Elements[i], c = w.walk(e)
		total += c
	}
	return out, total
}

func (w *walker) walkObject(o *jsontree.Object) (jsontree.Node, int) {
	ov := w.override(o)

	out := &jsontree.Object{Members: make([]jsontree.Member, len(o.Members))}
	total := 0
	for i, m := range o.Members {
		out.Members[i].Name = m.Name

		if ov.ok {
			switch m.Name {
			case ov.valueField:
				out.Members[i].Value = jsontree.String(MaskValue(ov.value, ov.rule, w.defaultChar))
				total++
				continue
			case ov.codeField:
				out.Members[i].Value = m.Value
				continue
			}
		}

		var c int
		out.Members[i].Value, c = w.member(m)
		total += c
	}
	return out, total
}

// member masks a single object member by its own name.
func (w *walker) member(m jsontree.Member) (jsontree.Node, int) {
	if s, ok := m.Value.(jsontree.String); ok {
		if rule, found := w.lookup.RuleFor(m.Name); found {
			return jsontree.String(MaskValue(string(s), rule, w.defaultChar)), 1
		}
		return s, 0
	}
	return w.walk(m.Value)
}

// override is the outcome of the discriminator pre-pass: either no override, or
// the rule that governs the value member of this one object.
type override struct {
	ok         bool
	codeField  string
	valueField string
	value      string
	rule       Rule
}

func (w *walker) override(o *jsontree.Object) override {
	if w.disc == nil {
		return override{}
	}
	codeField, valueField := w.disc.Discriminator()

	code, ok := o.GetString(codeField)
	if !ok {
		return override{}
	}
	value, ok := o.GetString(valueField)
	if !ok {
		return override{}
	}
	rule, ok := w.disc.RuleForCode(code)
	if !ok {
		return override{}
	}
	return override{
		ok:         true,
		codeField:  codeField,
		valueField: valueField,
		value:      value,
		rule:       rule,
	}
}
