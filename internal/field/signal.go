package field

import (
	"fmt"
	"strings"
)

// SignalKind discriminates the recoverable validation signals.
type SignalKind int

const (
	// SpatialInsufficient means the context lacks spatial layout or ghost
	// zones; the probe remedies it by widening itself.
	SpatialInsufficient SignalKind = iota + 1
	// DataFieldMissing means required on-disk fields are absent.
	DataFieldMissing
	// PropertyMissing means the context lacks declared capabilities.
	PropertyMissing
	// ParameterMissing means required field parameters are unavailable.
	ParameterMissing
	// GridTypeRequired means the context is not an unresampled base grid.
	GridTypeRequired
)

func (k SignalKind) String() string {
	switch k {
	case SpatialInsufficient:
		return "spatial insufficient"
	case DataFieldMissing:
		return "data field missing"
	case PropertyMissing:
		return "property missing"
	case ParameterMissing:
		return "parameter missing"
	case GridTypeRequired:
		return "grid type required"
	default:
		return fmt.Sprintf("signal(%d)", int(k))
	}
}

// Signal is a recoverable control signal raised by a validator: not a
// failure, but a statement of what the context is missing. It carries the
// exact missing-item payload so the remedy never needs guessing.
type Signal struct {
	Kind SignalKind

	// GhostZones is the requested ghost-zone count (SpatialInsufficient).
	GhostZones int
	// Fields are the field names involved (SpatialInsufficient,
	// DataFieldMissing).
	Fields []string
	// Names are the missing parameter or capability names
	// (ParameterMissing, PropertyMissing).
	Names []string
}

func (s *Signal) Error() string {
	switch s.Kind {
	case SpatialInsufficient:
		return fmt.Sprintf("%s: need %d ghost zones for [%s]",
			s.Kind, s.GhostZones, strings.Join(s.Fields, ", "))
	case DataFieldMissing:
		return fmt.Sprintf("%s: [%s]", s.Kind, strings.Join(s.Fields, ", "))
	case PropertyMissing, ParameterMissing:
		return fmt.Sprintf("%s: [%s]", s.Kind, strings.Join(s.Names, ", "))
	default:
		return s.Kind.String()
	}
}

// ConfigurationError is fatal and never retried: a misconfigured registry or
// field definition, not a recoverable condition of a data context.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// Configf builds a ConfigurationError from a format string.
func Configf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
