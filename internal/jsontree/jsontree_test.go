package jsontree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty object", `{}`, `{}`},
		{"empty array", `[]`, `[]`},
		{"member order kept", `{"z":1,"a":2,"m":3}`, `{"z":1,"a":2,"m":3}`},
		{"numbers kept verbatim", `{"a":1.50,"b":1e3,"c":-0}`, `{"a":1.50,"b":1e3,"c":-0}`},
		{"literals", `[true,false,null]`, `[true,false,null]`},
		{"whitespace dropped", "{ \"a\" : [ 1 , 2 ] }", `{"a":[1,2]}`},
		{"nested", `{"user":{"items":[{"id":1},{"id":2}]}}`, `{"user":{"items":[{"id":1},{"id":2}]}}`},
		{"escaped strings", `{"q":"say \"hi\"\n","html":"<b>&</b>"}`, `{"q":"say \"hi\"\n","html":"<b>&</b>"}`},
		{"unicode", `{"name":"Иван"}`, `{"name":"Иван"}`},
		{"top level string", `"plain"`, `"plain"`},
		{"top level number", `42`, `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n, err := ParseString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, EncodeString(n))
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{``, `{invalid json}`, `{"a":}`, `[1,2`, `not json`} {
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(in))
			assert.ErrorIs(t, err, ErrInvalidJSON)
		})
	}
}

func TestParse_Shapes(t *testing.T) {
	t.Parallel()

	n, err := ParseString(`{"name":"John","age":30,"tags":["a","b"],"addr":null}`)
	require.NoError(t, err)

	obj, ok := n.(*Object)
	require.True(t, ok)
	require.Len(t, obj.Members, 4)

	name, ok := obj.GetString("name")
	assert.True(t, ok)
	assert.Equal(t, "John", name)

	age, ok := obj.Get("age")
	require.True(t, ok)
	assert.Equal(t, Other{Raw: "30"}, age)

	_, ok = obj.GetString("age")
	assert.False(t, ok, "number is not a string")

	tags, ok := obj.Get("tags")
	require.True(t, ok)
	arr, ok := tags.(*Array)
	require.True(t, ok)
	assert.Equal(t, []Node{String("a"), String("b")}, arr.Elements)

	addr, _ := obj.Get("addr")
	assert.True(t, IsNull(addr))

	_, ok = obj.Get("missing")
	assert.False(t, ok)
}

func TestParse_DuplicateNameReplacesInPlace(t *testing.T) {
	t.Parallel()

	n, err := ParseString(`{"a":1,"b":2,"a":3}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"b":2}`, EncodeString(n))
}

func TestEncode_BuiltTree(t *testing.T) {
	t.Parallel()

	tree := NewObject(
		Member{Name: "id", Value: Other{Raw: "7"}},
		Member{Name: "list", Value: NewArray(String("x"), Null)},
		Member{Name: "empty", Value: Other{}},
	)
	assert.Equal(t, `{"id":7,"list":["x",null],"empty":null}`, EncodeString(tree))
}
