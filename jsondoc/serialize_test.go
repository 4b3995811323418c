package jsondoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompactInline(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{name: "string unquoted", value: String("hello"), expected: "hello"},
		{name: "string with quotes", value: String(`say "hi"`), expected: `say "hi"`},
		{name: "empty string", value: String(""), expected: ""},
		{name: "number", value: Int(42), expected: "42"},
		{name: "bool", value: Bool(false), expected: "false"},
		{name: "null", value: Null(), expected: "null"},
		{name: "array", value: MustParse(`[ "a", 1, [true] ]`), expected: `["a",1,[true]]`},
		{name: "array with newline in item", value: Array(String("a\nb")), expected: `["a\nb"]`},
		{name: "object", value: MustParse(`{ "k" : { "n" : null } }`), expected: `{"k":{"n":null}}`},
		{name: "html not escaped", value: Array(String("<b>&</b>")), expected: `["<b>&</b>"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CompactInline(tt.value))
		})
	}
}

func TestPrettyLayout(t *testing.T) {
	v := MustParse(`{"a":1,"b":[1,{"c":"d"}],"e":{},"f":[],"g":{"h":null}}`)

	expected := `{
    "a": 1,
    "b": [
        1,
        {
            "c": "d"
        }
    ],
    "e": {},
    "f": [],
    "g": {
        "h": null
    }
}`
	assert.Equal(t, expected, Pretty(v))
}

func TestPrettyEmptyDocument(t *testing.T) {
	assert.Equal(t, "{}", PrettyObject(NewObject()))
	assert.Equal(t, "{}", PrettyObject(nil))
}

func TestQuotedEscapes(t *testing.T) {
	v := String("tab\tquote\" back\\ nl\n ctrl\x01 é")
	assert.Equal(t, `"tab\tquote\" back\\ nl\n ctrl\u0001 é"`, Compact(v))
}

func TestPrettyParseRoundTrip(t *testing.T) {
	docs := []string{
		`{}`,
		`{"title":"Hello","nested":{"x":"A"}}`,
		`{"list":[1,2,[3,{"deep":[]}]],"n":-0.5,"t":true,"z":null}`,
		`{"unicode":"日本語 ✓","escaped":"line\nbreak \"q\" \\"}`,
		`[{"a":1},{"b":2}]`,
		`"just a string"`,
	}

	for _, doc := range docs {
		t.Run(doc, func(t *testing.T) {
			original := MustParse(doc)
			reparsed, err := Parse(Pretty(original))
			require.NoError(t, err)
			assert.True(t, Equal(original, reparsed))
			assert.Equal(t, Compact(original), Compact(reparsed))
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(MustParse(`{"a":1,"b":2}`), MustParse(`{"b":2,"a":1}`)))
	assert.True(t, Equal(MustParse(`1.0`), MustParse(`1`)))
	assert.False(t, Equal(MustParse(`[1,2]`), MustParse(`[2,1]`)))
	assert.False(t, Equal(MustParse(`{"a":1}`), MustParse(`{"a":"1"}`)))
	assert.False(t, Equal(MustParse(`{"a":1}`), MustParse(`{"a":1,"b":1}`)))
	assert.True(t, Equal(Null(), Value{}))
}

func BenchmarkPretty(b *testing.B) {
	v := MustParse(`{"menu":{"play":"Play","options":{"volume":"Volume","keys":["w","a","s","d"]}},"title":"Hello"}`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Pretty(v)
	}
}
