package jsondoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tailscale/hujson"
)

// MaxNestingDepth bounds how many objects and arrays may be open at once.
// Locale files stay within a handful of levels; the bound keeps decoding and
// pretty output linear in the input.
const MaxNestingDepth = 64

// Parse decodes strict JSON text: no comments, no trailing commas and nothing
// after the top-level value.
func Parse(text string) (Value, error) {
	return ParseBytes([]byte(text))
}

// ParseBytes is Parse over a byte slice.
func ParseBytes(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec, 0)
	if err != nil {
		return Value{}, wrapParseError(dec, err)
	}
	if tok, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("unexpected %v after top-level value", tok)
		}
		return Value{}, wrapParseError(dec, err)
	}
	return v, nil
}

// ParseObject parses text and requires an object at the root.
func ParseObject(text string) (*Object, error) {
	v, err := Parse(text)
	if err != nil {
		return nil, err
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrNotObject, v.Kind())
	}
	return obj, nil
}

// ParseLenient accepts JSON with comments and trailing commas, as found in
// hand-maintained locale files, and normalises it before a strict parse.
func ParseLenient(data []byte) (Value, error) {
	// hujson рекурсивен, глубину проверяем до него
	if offset, ok := withinDepth(data, MaxNestingDepth); !ok {
		return Value{}, &ParseError{Offset: offset, Err: ErrTooDeep}
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return Value{}, &ParseError{Err: err}
	}
	return ParseBytes(std)
}

// MustParse parses text and panics on error. Intended for tests and literals.
func MustParse(text string) Value {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

// MustParseObject is MustParse for object documents.
func MustParseObject(text string) *Object {
	obj, err := ParseObject(text)
	if err != nil {
		panic(err)
	}
	return obj
}

// decodeValue reads one value; depth is the number of enclosing containers.
func decodeValue(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		if (t == '{' || t == '[') && depth >= MaxNestingDepth {
			return Value{}, ErrTooDeep
		}
		switch t {
		case '{':
			return decodeObject(dec, depth+1)
		case '[':
			return decodeArray(dec, depth+1)
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", rune(t))
		}
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("unexpected token %T", tok)
	}
}

func decodeObject(dec *json.Decoder, depth int) (Value, error) {
	obj := NewObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("object key must be a string, got %v", tok)
		}
		v, err := decodeValue(dec, depth)
		if err != nil {
			return Value{}, err
		}
		obj.Set(key, v)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return Value{}, err
	}
	return FromObject(obj), nil
}

func decodeArray(dec *json.Decoder, depth int) (Value, error) {
	items := make([]Value, 0)
	for dec.More() {
		v, err := decodeValue(dec, depth)
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return Value{}, err
	}
	return Value{kind: KindArray, arr: items}, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", rune(want), tok)
	}
	return nil
}

func wrapParseError(dec *json.Decoder, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &ParseError{Offset: syntaxErr.Offset, Err: err}
	}
	return &ParseError{Offset: dec.InputOffset(), Err: err}
}

// withinDepth scans JSON-with-comments text and reports whether container
// nesting stays within limit. On failure it returns the offending offset.
func withinDepth(data []byte, limit int) (int64, bool) {
	depth := 0
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '"':
			for i++; i < len(data) && data[i] != '"'; i++ {
				if data[i] == '\\' {
					i++
				}
			}
		case '/':
			if i+1 >= len(data) {
				continue
			}
			switch data[i+1] {
			case '/':
				for i < len(data) && data[i] != '\n' {
					i++
				}
			case '*':
				for i += 2; i+1 < len(data) && !(data[i] == '*' && data[i+1] == '/'); i++ {
				}
				i++
			}
		case '{', '[':
			depth++
			if depth > limit {
				return int64(i), false
			}
		case '}', ']':
			depth--
		}
	}
	return 0, true
}
