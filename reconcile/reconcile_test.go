package reconcile

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"localeditor/jsondoc"
	"localeditor/keypath"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leafKeys(root Row) []string {
	keys := []string{}
	for _, l := range Leaves(root) {
		keys = append(keys, l.Key())
	}
	return keys
}

func TestReconcileKeyOrder(t *testing.T) {
	ref := jsondoc.MustParseObject(`{"a": 1, "b": 2}`)
	tr := jsondoc.MustParseObject(`{"b": 9, "c": 9}`)

	root := Documents(ref, tr)

	assert.Equal(t, []string{"a", "b", "c"}, leafKeys(root))
}

func TestReconcileNestedOrderAndExtras(t *testing.T) {
	ref := jsondoc.MustParseObject(`{"menu": {"play": "Play", "quit": "Quit"}, "title": "Hello"}`)
	tr := jsondoc.MustParseObject(`{"title": "Hallo", "extra": "x", "menu": {"credits": "C", "quit": "Ende"}}`)

	root := Documents(ref, tr)

	assert.Equal(t, []string{"menu.play", "menu.quit", "menu.credits", "title", "extra"}, leafKeys(root))
}

func TestReconcileLeafValues(t *testing.T) {
	ref := jsondoc.MustParseObject(`{"a": "A", "b": "B"}`)
	tr := jsondoc.MustParseObject(`{"b": "bee", "c": "see"}`)

	leaves := Leaves(Documents(ref, tr))
	require.Len(t, leaves, 3)

	assert.True(t, leaves[0].HasReference)
	assert.False(t, leaves[0].HasTranslation)
	assert.Equal(t, "A", leaves[0].ReferenceText())
	assert.Equal(t, "", leaves[0].TranslationText())

	assert.Equal(t, "B", leaves[1].ReferenceText())
	assert.Equal(t, "bee", leaves[1].TranslationText())

	assert.False(t, leaves[2].HasReference)
	assert.Equal(t, "", leaves[2].ReferenceText())
	assert.Equal(t, "see", leaves[2].TranslationText())
}

func TestReconcileSkipsSchema(t *testing.T) {
	ref := jsondoc.MustParseObject(`{"$schema": "https://example.com/lang.schema.json", "a": "1"}`)

	root := Documents(ref, nil)

	assert.Equal(t, []string{"a"}, leafKeys(root))
}

func TestReconcileSkipsSchemaAtEveryLevel(t *testing.T) {
	ref := jsondoc.MustParseObject(`{"g": {"$schema": "x", "k": "v"}}`)
	tr := jsondoc.MustParseObject(`{"$schema": "y", "g": {"$schema": "z"}}`)

	root := Documents(ref, tr)

	assert.Equal(t, []string{"g.k"}, leafKeys(root))
	for _, row := range Flatten(root, nil) {
		assert.NotEqual(t, SchemaKey, row.Label)
	}
}

func TestReconcileArraysAreLeaves(t *testing.T) {
	ref := jsondoc.MustParseObject(`{"tips": ["one", "two"], "obj": {"list": [{"deep": 1}]}}`)

	root := Documents(ref, jsondoc.MustParseObject(`{"tips": ["eins"]}`))
	leaves := Leaves(root)

	require.Len(t, leaves, 2)
	assert.Equal(t, "tips", leaves[0].Key())
	assert.Equal(t, `["one","two"]`, leaves[0].ReferenceText())
	assert.Equal(t, `["eins"]`, leaves[0].TranslationText())
	assert.Equal(t, "obj.list", leaves[1].Key())
}

func TestReconcileTranslationTypeMismatch(t *testing.T) {
	// reference object vs translation scalar: recurse as if the translation were {}
	ref := jsondoc.MustParseObject(`{"menu": {"play": "Play"}}`)
	tr := jsondoc.MustParseObject(`{"menu": "not an object"}`)

	root := Documents(ref, tr)
	leaves := Leaves(root)

	require.Len(t, leaves, 1)
	assert.Equal(t, "menu.play", leaves[0].Key())
	assert.False(t, leaves[0].HasTranslation)

	// input untouched
	menu, _ := tr.Get("menu")
	assert.Equal(t, jsondoc.KindString, menu.Kind())
}

func TestReconcileReferenceScalarTranslationObject(t *testing.T) {
	ref := jsondoc.MustParseObject(`{"a": "A"}`)
	tr := jsondoc.MustParseObject(`{"a": {"x": 1}}`)

	leaves := Leaves(Documents(ref, tr))

	require.Len(t, leaves, 1)
	assert.Equal(t, "a", leaves[0].Key())
	assert.Equal(t, `{"x":1}`, leaves[0].TranslationText())
}

func TestReconcileTranslationOnlyObjectExpands(t *testing.T) {
	ref := jsondoc.MustParseObject(`{"a": "A"}`)
	tr := jsondoc.MustParseObject(`{"extra": {"x": "1", "y": {"z": "2"}}}`)

	root := Documents(ref, tr)

	assert.Equal(t, []string{"a", "extra.x", "extra.y.z"}, leafKeys(root))
	for _, l := range Leaves(root)[1:] {
		assert.False(t, l.HasReference)
		assert.True(t, l.HasTranslation)
	}
}

func TestReconcileScalarRoot(t *testing.T) {
	row := Reconcile(jsondoc.String("hi"), jsondoc.String("salut"), keypath.Path{"greeting"})

	assert.Equal(t, KindLeaf, row.Kind)
	assert.Equal(t, "greeting", row.Label)
	assert.Equal(t, "hi", row.ReferenceText())
	assert.Equal(t, "salut", row.TranslationText())
}

func TestReconcileDeterministic(t *testing.T) {
	ref := jsondoc.MustParseObject(`{"b": {"y": 1, "x": [1]}, "a": "A", "$schema": "s"}`)
	tr := jsondoc.MustParseObject(`{"z": 1, "b": {"w": 2}}`)

	first := Documents(ref, tr)
	second := Documents(ref, tr)

	assert.Equal(t, first, second)
	assert.Equal(t, Flatten(first, nil), Flatten(second, nil))
}

func TestEndToEndScenarioRows(t *testing.T) {
	ref := jsondoc.MustParseObject(`{"title":"Hello","nested":{"x":"A"}}`)

	leaves := Leaves(Documents(ref, jsondoc.NewObject()))

	require.Len(t, leaves, 2)
	assert.Equal(t, "title", leaves[0].Key())
	assert.Equal(t, "nested.x", leaves[1].Key())
	for _, l := range leaves {
		assert.Equal(t, "", l.TranslationText())
	}
}

// shapedPair builds two documents from one random shape so that no path is
// an object on one side and a leaf on the other.
func shapedPair(rnd *rand.Rand, depth int) (*jsondoc.Object, *jsondoc.Object, []string) {
	var leaves []string
	var build func(prefix keypath.Path, d int) (*jsondoc.Object, *jsondoc.Object)
	build = func(prefix keypath.Path, d int) (*jsondoc.Object, *jsondoc.Object) {
		ref, tr := jsondoc.NewObject(), jsondoc.NewObject()
		n := 1 + rnd.Intn(4)
		for i := 0; i < n; i++ {
			key := fmt.Sprintf("k%d", rnd.Intn(6))
			if ref.Has(key) || tr.Has(key) {
				continue
			}
			path := prefix.Child(key)
			inRef, inTr := true, true
			switch rnd.Intn(4) {
			case 0:
				inRef = false
			case 1:
				inTr = false
			}
			if d > 0 && rnd.Intn(3) == 0 {
				subRef, subTr := build(path, d-1)
				if inRef {
					ref.Set(key, jsondoc.FromObject(subRef))
				}
				if inTr {
					tr.Set(key, jsondoc.FromObject(subTr))
				}
				continue
			}
			leaves = append(leaves, path.String())
			if inRef {
				ref.Set(key, jsondoc.String("r"))
			}
			if inTr {
				tr.Set(key, jsondoc.String("t"))
			}
		}
		return ref, tr
	}
	ref, tr := build(keypath.Path{}, depth)
	ref.Set(SchemaKey, jsondoc.String("schema"))
	return ref, tr, leaves
}

func TestReconcileLeafCountEqualsLeafPathUnion(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		ref, tr, want := shapedPair(rnd, 3)

		got := leafKeys(Documents(ref, tr))

		sort.Strings(want)
		sort.Strings(got)
		// sub-objects that ended up empty on both sides contribute no leaves
		// on either side, so the sets still match exactly
		require.Equal(t, filterPresent(ref, tr, want), got, "iteration %d", i)
	}
}

// filterPresent drops generated leaf paths whose parent object was never
// attached on either side.
func filterPresent(ref, tr *jsondoc.Object, paths []string) []string {
	out := []string{}
	for _, p := range paths {
		segs := keypath.Split(p)
		_, inRef := ref.Lookup(segs)
		_, inTr := tr.Lookup(segs)
		if inRef || inTr {
			out = append(out, p)
		}
	}
	return out
}

func TestSummarize(t *testing.T) {
	ref := jsondoc.MustParseObject(`{"a": "A", "b": "B", "c": "C"}`)
	tr := jsondoc.MustParseObject(`{"a": "x", "b": "", "d": "D"}`)

	stats := Summarize(Documents(ref, tr))

	assert.Equal(t, 4, stats.Leaves)
	assert.Equal(t, 2, stats.Translated)
	assert.Equal(t, []string{"c"}, stats.Missing)
	assert.Equal(t, []string{"d"}, stats.Extra)
}

func TestKindText(t *testing.T) {
	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("leaf")))
	assert.Equal(t, KindLeaf, k)
	text, err := KindGroup.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "group", string(text))
	assert.Error(t, k.UnmarshalText([]byte("branch")))
}
