// Package reconcile merges a reference document and a translation document
// into one ordered tree of editable rows.
//
// Rows are a pure projection of the two documents: they are rebuilt on every
// read and never stored.
package reconcile

import (
	"fmt"

	"localeditor/jsondoc"
	"localeditor/keypath"
)

// Kind distinguishes group rows (objects) from leaf rows (editable values).
type Kind uint8

const (
	KindGroup Kind = iota
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindLeaf:
		return "leaf"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MarshalText encodes the kind as "group" or "leaf".
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the MarshalText form.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "group":
		*k = KindGroup
	case "leaf":
		*k = KindLeaf
	default:
		return fmt.Errorf("unknown row kind %q", text)
	}
	return nil
}

// Row is one node of the reconciled tree.
type Row struct {
	Kind  Kind
	Path  keypath.Path
	Label string

	// Children is set for groups only.
	Children []Row

	// Leaf values. Has* is false when the side has no value at Path.
	Reference      jsondoc.Value
	HasReference   bool
	Translation    jsondoc.Value
	HasTranslation bool
}

// Key returns the dotted form of the row path.
func (r Row) Key() string {
	return r.Path.String()
}

// ReferenceText is the inline rendering of the reference value, "" if absent.
func (r Row) ReferenceText() string {
	if !r.HasReference {
		return ""
	}
	return jsondoc.CompactInline(r.Reference)
}

// TranslationText is the inline rendering of the translation value, "" if absent.
func (r Row) TranslationText() string {
	if !r.HasTranslation {
		return ""
	}
	return jsondoc.CompactInline(r.Translation)
}
