package masking

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipico/payload-masker/internal/jsontree"
)

func TestMasker_MaskJSON(t *testing.T) {
	t.Parallel()

	m := NewMasker(testRegistry(t), 0)
	assert.Equal(t, DefaultMaskChar, m.DefaultChar())

	res, err := m.MaskJSON([]byte(`{"user":{"password":"secret","code":"inn","codeValue":"123"},"cardNumber":"4111111111111111","id":9}`))
	require.NoError(t, err)
	assert.Equal(t, `{"user":{"password":"******","code":"inn","codeValue":"***"},"cardNumber":"4111######111111","id":9}`, string(res.Body))
	assert.Equal(t, 3, res.Masked)
}

func TestMasker_MaskJSON_NothingMasked(t *testing.T) {
	t.Parallel()

	m := NewMasker(nil, '#')
	res, err := m.MaskJSON([]byte(`{"password":"secret"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"password":"secret"}`, string(res.Body))
	assert.Zero(t, res.Masked)
}

func TestMasker_MaskJSON_InvalidPassesThrough(t *testing.T) {
	tests := []string{
		`{"password":"secret"`,
		`not json`,
		``,
		`{"a":1} trailing`,
	}

	m := NewMasker(StaticTable{"password": {}}, 0)
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			res, err := m.MaskJSON([]byte(in))
			require.Error(t, err)
			assert.ErrorIs(t, err, jsontree.ErrInvalidJSON)
			assert.Equal(t, in, string(res.Body))
			assert.Zero(t, res.Masked)
		})
	}
}

func TestMasker_SetLookup(t *testing.T) {
	t.Parallel()

	m := NewMasker(StaticTable{"a": {}}, 0)
	in := []byte(`{"a":"xx","b":"yy"}`)

	res, err := m.MaskJSON(in)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"**","b":"yy"}`, string(res.Body))

	m.SetLookup(StaticTable{"b": {MaskChar: '#'}})
	res, err = m.MaskJSON(in)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"xx","b":"##"}`, string(res.Body))

	m.SetLookup(nil)
	assert.Equal(t, NoRules, m.Lookup())
}

func TestMasker_ZeroValue(t *testing.T) {
	t.Parallel()

	var m Masker
	assert.Equal(t, NoRules, m.Lookup())

	node, count := m.MaskNode(jsontree.String("x"))
	assert.Equal(t, jsontree.String("x"), node)
	assert.Zero(t, count)
}

func TestMasker_ConcurrentReload(t *testing.T) {
	t.Parallel()

	first := StaticTable{"secret": {MaskChar: 'A'}}
	second := StaticTable{"secret": {MaskChar: 'B'}}
	m := NewMasker(first, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if i == 0 {
					if j%2 == 0 {
						m.SetLookup(second)
					} else {
						m.SetLookup(first)
					}
					continue
				}
				res, err := m.MaskJSON([]byte(`{"secret":"xyz","other":{"secret":"xyz"}}`))
				if !assert.NoError(t, err) {
					return
				}
				body := string(res.Body)
				assert.Contains(t, []string{
					`{"secret":"AAA","other":{"secret":"AAA"}}`,
					`{"secret":"BBB","other":{"secret":"BBB"}}`,
				}, body, "one payload must see a single rule set")
			}
		}(i)
	}
	wg.Wait()
}

func TestLookupFunc(t *testing.T) {
	t.Parallel()

	l := LookupFunc(func(field string) (Rule, bool) {
		if field == "pin" {
			return Rule{MaskChar: '0'}, true
		}
		return Rule{}, false
	})
	assert.Equal(t, `{"pin":"0000","x":"1"}`, maskJSON(t, `{"pin":"1234","x":"1"}`, l))
}
