package masking

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// TagKey is the struct tag read by TableFor.
const TagKey = "mask"

// ErrInvalidTag is returned when a mask struct tag cannot be parsed.
var ErrInvalidTag = errors.New("invalid mask tag")

type tableEntry struct {
	table StaticTable
	err   error
}

// tables memoises one StaticTable per struct type.
var tables sync.Map // reflect.Type -> tableEntry

// TableFor returns the static rule table of v's struct type. v may be a struct,
// a pointer to one, or a reflect.Type. Any other value yields an empty table.
//
// Fields declare rules with a mask tag whose options mirror Rule:
//
//	INN       string `json:"inn" mask:"maskChars=*#,maskLength=10"`
//	TxnNum    string `json:"transactionNum" mask:"startIndex=3,length=4,maskChar=X"`
//	EpkID     string `json:"epkId" mask:""`
//	PayerName string `json:"payerName" mask:"nameMaskLength=2,maskChar=."`
//
// Keys are the names encoding/json would use. Rules of embedded structs whose
// fields are promoted act as ancestors: a name declared by the outer type wins,
// then embedded types in declaration order.
func TableFor(v any) (StaticTable, error) {
	var t reflect.Type
	switch x := v.(type) {
	case reflect.Type:
		t = x
	case nil:
		return StaticTable{}, nil
	default:
		t = reflect.TypeOf(v)
	}
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return StaticTable{}, nil
	}
	return tableOf(t, nil)
}

// MustTableFor is TableFor that panics on an invalid tag. Intended for
// package-level variables.
func MustTableFor(v any) StaticTable {
	t, err := TableFor(v)
	if err != nil {
		panic(err)
	}
	return t
}

// tableOf builds the table of t. visiting holds the embedding path being built;
// only tables built from the outermost call are memoised, because a table built
// inside a cycle misses the rules of the types still on the path.
func tableOf(t reflect.Type, visiting map[reflect.Type]bool) (StaticTable, error) {
	if e, ok := tables.Load(t); ok {
		entry := e.(tableEntry)
		return entry.table, entry.err
	}
	outermost := visiting == nil
	if outermost {
		visiting = map[reflect.Type]bool{}
	}
	visiting[t] = true
	table, err := buildTable(t, visiting)
	delete(visiting, t)
	if !outermost {
		return table, err
	}
	e, _ := tables.LoadOrStore(t, tableEntry{table: table, err: err})
	entry := e.(tableEntry)
	return entry.table, entry.err
}

func buildTable(t reflect.Type, visiting map[reflect.Type]bool) (StaticTable, error) {
	own := StaticTable{}
	var ancestors []StaticTable

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)

		name, skip := jsonName(f)
		if skip {
			continue
		}

		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if visiting[ft] {
					continue
				}
				parent, err := tableOf(ft, visiting)
				if err != nil {
					return nil, err
				}
				ancestors = append(ancestors, parent)
				continue
			}
		}

		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}

		tag, ok := f.Tag.Lookup(TagKey)
		if !ok || tag == "-" {
			continue
		}
		rule, err := ParseTag(tag)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), f.Name, err)
		}
		if _, dup := own[name]; !dup {
			own[name] = rule
		}
	}

	return own.Inherit(ancestors...), nil
}

// jsonName returns the name encoding/json uses for f, "" when it uses the Go name
// (or promotes an embedded struct), and skip for fields excluded with json:"-".
func jsonName(f reflect.StructField) (name string, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	name, _, _ = strings.Cut(tag, ",")
	return name, false
}

// ParseTag parses the options of a mask struct tag into a Rule. An empty tag
// yields the zero Rule, which masks the whole value.
func ParseTag(tag string) (Rule, error) {
	var r Rule
	if strings.TrimSpace(tag) == "" {
		return r, nil
	}

	for _, opt := range strings.Split(tag, ",") {
		key, val, hasVal := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "maskChars":
			r.MaskChars = val
		case "maskChar":
			if utf8.RuneCountInString(val) != 1 {
				return Rule{}, fmt.Errorf("%w: maskChar must be a single character, got %q", ErrInvalidTag, val)
			}
			r.MaskChar, _ = utf8.DecodeRuneInString(val)
		case "maskAll":
			if !hasVal {
				r.MaskAll = true
				continue
			}
			b, err := strconv.ParseBool(val)
			if err != nil {
				return Rule{}, fmt.Errorf("%w: maskAll: %v", ErrInvalidTag, err)
			}
			r.MaskAll = b
		case "startIndex", "length", "maskLength", "nameMaskLength":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Rule{}, fmt.Errorf("%w: %s: %v", ErrInvalidTag, key, err)
			}
			switch key {
			case "startIndex":
				r.StartIndex = n
			case "length":
				r.Length = n
			case "maskLength":
				r.MaskLength = n
			case "nameMaskLength":
				r.NameMaskLength = n
			}
		case "":
		default:
			return Rule{}, fmt.Errorf("%w: unknown option %q", ErrInvalidTag, key)
		}
	}
	return r, nil
}
