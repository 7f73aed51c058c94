package jsontree

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when a payload is not a single valid JSON document.
var ErrInvalidJSON = errors.New("invalid JSON document")

// Parse parses a JSON document into a tree.
// Member order is preserved. When an object repeats a member name, the later value
// replaces the earlier one at the earlier position.
func Parse(data []byte) (Node, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// ParseString is Parse for string input.
func ParseString(s string) (Node, error) {
	if !gjson.Valid(s) {
		return nil, ErrInvalidJSON
	}
	return fromResult(gjson.Parse(s)), nil
}

func fromResult(r gjson.Result) Node {
	switch {
	case r.IsObject():
		obj := &Object{}
		r.ForEach(func(key, value gjson.Result) bool {
			obj.set(key.String(), fromResult(value))
			return true
		})
		return obj
	case r.IsArray():
		arr := &Array{}
		r.ForEach(func(_, value gjson.Result) bool {
			arr.Elements = append(arr.Elements, fromResult(value))
			return true
		})
		return arr
	case r.Type == gjson.String:
		return String(r.Str)
	default:
		return Other{Raw: r.Raw}
	}
}
