package field

import "strings"

// TypeUnknown is the type tag of fields that have not been disambiguated into
// a concrete particle or grid domain.
const TypeUnknown = "unknown"

// Key identifies a field: a name plus an optional field-type tag. Type+name
// pairs disambiguate identically named fields across particle and grid
// domains.
type Key struct {
	Type string
	Name string
}

// NewKey builds a key with an explicit type.
func NewKey(ftype, name string) Key { return Key{Type: ftype, Name: name} }

// BareKey builds a key without a type tag.
func BareKey(name string) Key { return Key{Type: TypeUnknown, Name: name} }

// ParseKey parses "type/name" or a bare "name".
func ParseKey(s string) Key {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return Key{Type: s[:i], Name: s[i+1:]}
	}
	return BareKey(s)
}

func (k Key) String() string {
	if k.Type == "" || k.Type == TypeUnknown {
		return k.Name
	}
	return k.Type + "/" + k.Name
}

// vectorNames are the particle field names that denote 3-wide vector
// quantities when synthesized.
var vectorNames = map[string]struct{}{
	"Coordinates": {},
	"Velocities":  {},
	"Velocity":    {},
}

// IsVectorName reports whether a field name denotes a per-particle vector
// quantity (position/velocity aliases).
func IsVectorName(name string) bool {
	_, ok := vectorNames[name]
	return ok
}
