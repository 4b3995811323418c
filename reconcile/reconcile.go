package reconcile

import (
	"localeditor/jsondoc"
	"localeditor/keypath"
)

// SchemaKey is schema metadata, never translatable content. It is skipped at
// every level on both sides.
const SchemaKey = "$schema"

type side struct {
	value   jsondoc.Value
	present bool
}

func sideOf(o *jsondoc.Object, key string) side {
	v, ok := o.Get(key)
	return side{value: v, present: ok}
}

// Documents reconciles two document roots. A nil translation is an empty one.
func Documents(reference, translation *jsondoc.Object) Row {
	return Reconcile(jsondoc.FromObject(reference), jsondoc.FromObject(translation), keypath.Path{})
}

// Reconcile builds the row for path given the values both documents hold there.
//
// A reference that is not an object (scalar, null or array) yields a leaf.
// A reference object yields a group over the reference keys in order followed
// by keys only the translation has, in translation order. A translation value
// that is not an object is read as an empty object below a reference object.
func Reconcile(reference, translation jsondoc.Value, path keypath.Path) Row {
	return reconcile(side{reference, true}, side{translation, true}, path)
}

func reconcile(ref, tr side, path keypath.Path) Row {
	if ref.present {
		refObj, ok := ref.value.AsObject()
		if !ok {
			return leaf(ref, tr, path)
		}
		trObj, _ := tr.value.AsObject()
		return group(refObj, trObj, path)
	}

	// Keys only the translation has: expand nested objects so every entered
	// value stays individually editable.
	if trObj, ok := tr.value.AsObject(); tr.present && ok {
		return group(nil, trObj, path)
	}
	return leaf(ref, tr, path)
}

func group(refObj, trObj *jsondoc.Object, path keypath.Path) Row {
	keys := mergedKeys(refObj, trObj)
	children := make([]Row, 0, len(keys))
	for _, key := range keys {
		children = append(children, reconcile(sideOf(refObj, key), sideOf(trObj, key), path.Child(key)))
	}
	return Row{
		Kind:     KindGroup,
		Path:     path,
		Label:    path.Last(),
		Children: children,
	}
}

func leaf(ref, tr side, path keypath.Path) Row {
	return Row{
		Kind:           KindLeaf,
		Path:           path,
		Label:          path.Last(),
		Reference:      ref.value,
		HasReference:   ref.present,
		Translation:    tr.value,
		HasTranslation: tr.present,
	}
}

// mergedKeys returns reference keys first, then translation-only keys.
func mergedKeys(refObj, trObj *jsondoc.Object) []string {
	keys := make([]string, 0, refObj.Len()+trObj.Len())
	refObj.Range(func(key string, _ jsondoc.Value) bool {
		if key != SchemaKey {
			keys = append(keys, key)
		}
		return true
	})
	trObj.Range(func(key string, _ jsondoc.Value) bool {
		if key != SchemaKey && !refObj.Has(key) {
			keys = append(keys, key)
		}
		return true
	})
	return keys
}
