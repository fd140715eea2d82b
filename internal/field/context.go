package field

import (
	"github.com/gridfire-labs/fieldkit/internal/array"
	"github.com/gridfire-labs/fieldkit/internal/dataset"
	"github.com/gridfire-labs/fieldkit/internal/units"
)

// Parameter is a field parameter value: a scalar or a small vector with an
// optional unit tag.
type Parameter struct {
	Values []float64
	Units  units.Unit
}

// Scalar returns the first component, or 0 for an empty parameter.
func (p Parameter) Scalar() float64 {
	if len(p.Values) == 0 {
		return 0
	}
	return p.Values[0]
}

// Vector returns the parameter as a 3-vector; missing components are zero.
func (p Parameter) Vector() [3]float64 {
	var v [3]float64
	copy(v[:], p.Values)
	return v
}

// Context is the data-context capability set consumed by field computations
// and validators. A context may be backed by real data or by a synthetic
// probe; validators distinguish the two through IsProbe.
type Context interface {
	// Value resolves a field, computing it on demand. Nested requests made
	// by a computation recurse through the same resolution path.
	Value(key Key) (*array.Array, error)

	// Keys lists the field keys currently materialized in the context.
	Keys() []Key

	// Delete removes a materialized field. Evaluate uses this to strip
	// temporaries a computation left behind.
	Delete(key Key)

	// Parameter returns a field parameter, recording the request.
	Parameter(name string) (Parameter, error)

	// HasParameter reports parameter availability without fetching it.
	HasParameter(name string) bool

	// HasCapability reports whether the context declares a named
	// attribute/capability (explicit replacement for reflective attribute
	// checks).
	HasCapability(name string) bool

	// OnDiskFields lists the primitive fields stored in the backing
	// dataset.
	OnDiskFields() []string

	// IsSpatial reports whether the context has a three-dimensional
	// layout.
	IsSpatial() bool

	// GhostZones returns the context's current ghost-zone count.
	GhostZones() int

	// IsBaseGrid reports whether the context is an unresampled base grid
	// patch.
	IsBaseGrid() bool

	// IsProbe reports whether the context is a synthetic probe.
	IsProbe() bool

	// Descriptor returns the backing dataset descriptor.
	Descriptor() dataset.Descriptor
}

// Recorder is a Context that logs every field and parameter request. The
// dependency-detection probe implements it.
type Recorder interface {
	Context

	// Record appends a key to the request log (ordered, deduplicated).
	Record(key Key)

	// Requested returns the ordered, de-duplicated raw-field request log.
	Requested() []Key

	// RequestedParameters returns the ordered parameter request log.
	RequestedParameters() []string
}
