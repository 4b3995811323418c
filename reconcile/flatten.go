package reconcile

import "localeditor/keypath"

// FlatRow is the render-ready form of a Row.
type FlatRow struct {
	Kind  Kind         `json:"kind"`
	Path  keypath.Path `json:"path"`
	Key   string       `json:"key"`
	Label string       `json:"label"`
	// Depth is 0 for top-level keys.
	Depth int `json:"depth"`

	// Groups only.
	Expanded bool `json:"expanded,omitempty"`

	// Leaves only.
	Reference      string `json:"reference"`
	HasReference   bool   `json:"has_reference"`
	Translation    string `json:"translation"`
	HasTranslation bool   `json:"has_translation"`
}

// Flatten lists the rows below root in depth-first order. The root itself has
// no header. Groups are expanded unless their dotted key is in collapsed; a
// collapsed group keeps its header and hides its children.
func Flatten(root Row, collapsed map[string]bool) []FlatRow {
	out := make([]FlatRow, 0, 32)
	if root.Kind == KindLeaf {
		return append(out, flatLeaf(root))
	}
	for _, child := range root.Children {
		out = flatten(out, child, collapsed)
	}
	return out
}

func flatten(out []FlatRow, row Row, collapsed map[string]bool) []FlatRow {
	if row.Kind == KindLeaf {
		return append(out, flatLeaf(row))
	}

	key := row.Key()
	expanded := !collapsed[key]
	out = append(out, FlatRow{
		Kind:     KindGroup,
		Path:     row.Path,
		Key:      key,
		Label:    row.Label,
		Depth:    depthOf(row.Path),
		Expanded: expanded,
	})
	if !expanded {
		return out
	}
	for _, child := range row.Children {
		out = flatten(out, child, collapsed)
	}
	return out
}

func flatLeaf(row Row) FlatRow {
	return FlatRow{
		Kind:           KindLeaf,
		Path:           row.Path,
		Key:            row.Key(),
		Label:          row.Label,
		Depth:          depthOf(row.Path),
		Reference:      row.ReferenceText(),
		HasReference:   row.HasReference,
		Translation:    row.TranslationText(),
		HasTranslation: row.HasTranslation,
	}
}

func depthOf(path keypath.Path) int {
	if len(path) == 0 {
		return 0
	}
	return len(path) - 1
}

// Leaves returns every leaf below root in display order, ignoring collapse state.
func Leaves(root Row) []Row {
	var out []Row
	var walk func(Row)
	walk = func(r Row) {
		if r.Kind == KindLeaf {
			out = append(out, r)
			return
		}
		for _, c := range r.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}

// Stats summarises translation progress.
type Stats struct {
	Leaves     int `json:"leaves"`
	Translated int `json:"translated"`
	// Missing holds reference keys without a translation value.
	Missing []string `json:"missing"`
	// Extra holds translation keys the reference does not define.
	Extra []string `json:"extra"`
}

// Summarize computes Stats over the leaves of root. A leaf counts as
// translated when its translation renders to non-empty text.
func Summarize(root Row) Stats {
	stats := Stats{Missing: []string{}, Extra: []string{}}
	for _, l := range Leaves(root) {
		stats.Leaves++
		switch {
		case l.HasReference && !l.HasTranslation:
			stats.Missing = append(stats.Missing, l.Key())
		case !l.HasReference && l.HasTranslation:
			stats.Extra = append(stats.Extra, l.Key())
		}
		if l.HasTranslation && l.TranslationText() != "" {
			stats.Translated++
		}
	}
	return stats
}
