package masking

// Lookup resolves the masking rule for a named field.
type Lookup interface {
	RuleFor(field string) (Rule, bool)
}

// Discriminating is a Lookup that also supports the discriminator envelope, where
// the value of one member (the code field) names the rule applied to a sibling
// member (the value field), e.g. {"code":"inn","codeValue":"455444343"}.
type Discriminating interface {
	Lookup
	// Discriminator returns the names of the code and value members.
	Discriminator() (codeField, valueField string)
	// RuleForCode resolves a rule by the value of the code member.
	RuleForCode(code string) (Rule, bool)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(field string) (Rule, bool)

// RuleFor calls f.
func (f LookupFunc) RuleFor(field string) (Rule, bool) {
	return f(field)
}

// noRules resolves nothing.
type noRules struct{}

func (noRules) RuleFor(string) (Rule, bool) { return Rule{}, false }

// NoRules is a Lookup that never resolves a rule.
var NoRules Lookup = noRules{}

// StaticTable is a fixed field name to rule table, usually derived from the
// struct tags of one type and its embedded types. It is read-only once built.
type StaticTable map[string]Rule

// RuleFor implements Lookup.
func (t StaticTable) RuleFor(field string) (Rule, bool) {
	r, ok := t[field]
	return r, ok
}

// Inherit returns a new table holding t's rules followed by the rules of each
// ancestor that t and earlier ancestors do not already declare. The first
// declaration of a name wins.
func (t StaticTable) Inherit(ancestors ...StaticTable) StaticTable {
	size := len(t)
	for _, a := range ancestors {
		size += len(a)
	}

	merged := make(StaticTable, size)
	for name, r := range t {
		merged[name] = r
	}
	for _, a := range ancestors {
		for name, r := range a {
			if _, ok := merged[name]; !ok {
				merged[name] = r
			}
		}
	}
	return merged
}
