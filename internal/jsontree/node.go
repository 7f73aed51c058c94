// Package jsontree provides an ordered, format-independent tree for parsed JSON payloads.
//
// Unlike map[string]any, an Object keeps its members in document order, and scalar
// values other than strings are kept as their verbatim JSON literal so that a tree can
// be re-encoded without changing numbers such as 1.50 or 1e3.
package jsontree

// Node is a parsed JSON value: *Object, *Array, String or Other.
type Node interface {
	node()
}

// Member is a single name/value pair of an Object.
type Member struct {
	Name  string
	Value Node
}

// Object is a JSON object with members in document order. Names are unique.
type Object struct {
	Members []Member
}

// Array is a JSON array.
type Array struct {
	Elements []Node
}

// String is a JSON string value.
type String string

// Other is any non-string scalar (number, true, false, null) kept as its raw literal.
type Other struct {
	Raw string
}

func (*Object) node() {}
func (*Array) node()  {}
func (String) node()  {}
func (Other) node()   {}

// Null is the JSON null literal.
var Null = Other{Raw: "null"}

// NewObject builds an object from members, keeping order.
func NewObject(members ...Member) *Object {
	return &Object{Members: members}
}

// NewArray builds an array from elements.
func NewArray(elements ...Node) *Array {
	return &Array{Elements: elements}
}

// Get returns the value of the named member.
func (o *Object) Get(name string) (Node, bool) {
	if o == nil {
		return nil, false
	}
	for _, m := range o.Members {
		if m.Name == name {
			return m.Value, true
		}
	}
	return nil, false
}

// GetString returns the named member when it is a string.
func (o *Object) GetString(name string) (string, bool) {
	v, ok := o.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(String)
	return string(s), ok
}

// set replaces the value of an existing member in place, or appends a new one.
func (o *Object) set(name string, value Node) {
	for i := range o.Members {
		if o.Members[i].Name == name {
			o.Members[i].Value = value
			return
		}
	}
	o.Members = append(o.Members, Member{Name: name, Value: value})
}

// IsNull reports whether n is the JSON null literal.
func IsNull(n Node) bool {
	o, ok := n.(Other)
	return ok && o.Raw == "null"
}
