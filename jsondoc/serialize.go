package jsondoc

import (
	"strings"
	"unicode/utf8"
)

// PrettyIndent is the indentation unit of exported documents.
const PrettyIndent = "    "

// Compact renders v as single-line JSON without insignificant whitespace.
func Compact(v Value) string {
	var b strings.Builder
	writeCompact(&b, v)
	return b.String()
}

// CompactInline renders v for a single-line edit control: strings appear
// without quotes, arrays and objects as compact JSON (arrays also lose any
// embedded newline), other scalars as their JSON literal.
func CompactInline(v Value) string {
	switch v.kind {
	case KindString:
		return v.s
	case KindArray:
		return strings.ReplaceAll(Compact(v), "\n", "")
	default:
		return Compact(v)
	}
}

// Pretty renders v as a multi-line document indented by PrettyIndent per
// level. Empty containers stay on one line ("{}", "[]").
func Pretty(v Value) string {
	var b strings.Builder
	writePretty(&b, v, 0)
	return b.String()
}

// PrettyObject is Pretty for a document root.
func PrettyObject(o *Object) string {
	return Pretty(FromObject(o))
}

func writeCompact(b *strings.Builder, v Value) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		if v.b {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindNumber:
		b.WriteString(v.s)
	case KindString:
		writeQuoted(b, v.s)
	case KindArray:
		b.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCompact(b, item)
		}
		b.WriteByte(']')
	case KindObject:
		b.WriteByte('{')
		for i, key := range v.obj.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeQuoted(b, key)
			b.WriteByte(':')
			writeCompact(b, v.obj.values[key])
		}
		b.WriteByte('}')
	}
}

func writePretty(b *strings.Builder, v Value, depth int) {
	switch v.kind {
	case KindArray:
		if len(v.arr) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				b.WriteByte(',')
			}
			newline(b, depth+1)
			writePretty(b, item, depth+1)
		}
		newline(b, depth)
		b.WriteByte(']')
	case KindObject:
		if v.obj.Len() == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteByte('{')
		for i, key := range v.obj.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			newline(b, depth+1)
			writeQuoted(b, key)
			b.WriteString(": ")
			writePretty(b, v.obj.values[key], depth+1)
		}
		newline(b, depth)
		b.WriteByte('}')
	default:
		writeCompact(b, v)
	}
}

func newline(b *strings.Builder, depth int) {
	b.WriteByte('\n')
	for i := 0; i < depth; i++ {
		b.WriteString(PrettyIndent)
	}
}

const hexDigits = "0123456789abcdef"

// writeQuoted escapes like JSON.stringify: quote, backslash and control
// characters only. HTML characters and U+2028/U+2029 are written as-is.
func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' {
			if c < utf8.RuneSelf {
				i++
				continue
			}
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				b.WriteString(s[start:i])
				b.WriteString(`�`)
				i += size
				start = i
				continue
			}
			i += size
			continue
		}
		b.WriteString(s[start:i])
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteString(`\u00`)
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0xF])
		}
		i++
		start = i
	}
	b.WriteString(s[start:])
	b.WriteByte('"')
}
