package jsondoc

// Object is a JSON object that remembers key insertion order.
//
// Objects reachable from a Value are treated as immutable: Set is only used
// while building a fresh object, and every edit goes through With, which
// copies the top level and shares the children.
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{values: make(map[string]Value)}
}

// Len is nil-safe.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores v under key in place. An existing key keeps its position.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Clone returns a shallow copy: child values are shared.
func (o *Object) Clone() *Object {
	out := &Object{
		keys:   make([]string, o.Len(), o.Len()+1),
		values: make(map[string]Value, o.Len()+1),
	}
	if o == nil {
		return out
	}
	copy(out.keys, o.keys)
	for k, v := range o.values {
		out.values[k] = v
	}
	return out
}

// With returns a copy of o with key set to v. o itself is not modified.
func (o *Object) With(key string, v Value) *Object {
	out := o.Clone()
	out.Set(key, v)
	return out
}

// Range calls fn for each entry in order until fn returns false.
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.values[k]) {
			return
		}
	}
}

// Lookup follows path through nested objects.
func (o *Object) Lookup(path []string) (Value, bool) {
	if len(path) == 0 {
		return FromObject(o), o != nil
	}
	cur := o
	for i, key := range path {
		v, ok := cur.Get(key)
		if !ok {
			return Value{}, false
		}
		if i == len(path)-1 {
			return v, true
		}
		next, ok := v.AsObject()
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return Value{}, false
}
