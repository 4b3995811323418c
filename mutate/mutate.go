// Package mutate edits JSON documents by key path without touching unrelated
// branches. Every edit returns a new root; unmodified subtrees are shared
// with the input.
package mutate

import (
	"localeditor/jsondoc"
	"localeditor/keypath"
)

// SetAtPath returns a copy of root with the value at path replaced by value.
//
// Missing intermediate objects are created, and intermediate values that are
// not objects (strings, arrays, null) are replaced by empty objects. An empty
// path returns root unchanged. SetAtPath never fails.
func SetAtPath(root *jsondoc.Object, path keypath.Path, value jsondoc.Value) *jsondoc.Object {
	if len(path) == 0 {
		return root
	}
	head := path[0]
	if len(path) == 1 {
		return root.With(head, value)
	}

	child, _ := root.Get(head)
	childObj, ok := child.AsObject()
	if !ok {
		childObj = jsondoc.NewObject()
	}
	return root.With(head, jsondoc.FromObject(SetAtPath(childObj, path[1:], value)))
}

// SetString sets a string leaf addressed by a dotted path.
func SetString(root *jsondoc.Object, dotted string, text string) *jsondoc.Object {
	return SetAtPath(root, keypath.Split(dotted), jsondoc.String(text))
}
