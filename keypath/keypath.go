// Package keypath converts between dotted key paths ("a.b.c") and their segments.
//
// Keys that contain a literal "." cannot be represented: Split(Join(p)) only
// reproduces p when no segment contains the separator. There is no escaping.
package keypath

import "strings"

// Separator joins path segments.
const Separator = "."

// Path is an ordered sequence of object keys from the document root.
type Path []string

// Join concatenates segments with Separator. An empty sequence yields "".
func Join(segments []string) string {
	return strings.Join(segments, Separator)
}

// Split is the inverse of Join. The empty string yields an empty path.
func Split(path string) Path {
	if path == "" {
		return Path{}
	}
	return Path(strings.Split(path, Separator))
}

// Append adds one segment to a dotted path.
func Append(path, segment string) string {
	if segment == "" {
		return path
	}
	if path == "" {
		return segment
	}
	return path + Separator + segment
}

// String returns the dotted form of p.
func (p Path) String() string {
	return Join(p)
}

// Child returns a new path with segment appended. The result never shares
// its backing array with p, so sibling paths built from the same parent stay
// independent.
func (p Path) Child(segment string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, segment)
}

// Last returns the final segment, or "" for the root path.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// IsRoot reports whether p addresses the document root.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Equal reports whether both paths have the same segments.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}
