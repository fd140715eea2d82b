// Package field implements derived fields: named quantities computed on
// demand from other fields. A Spec pairs a computation closure with the
// validators that guard it; evaluation runs against a Context, which may be
// real data or a synthetic dependency-detection probe.
package field

import (
	"fmt"
	"reflect"

	"github.com/gridfire-labs/fieldkit/internal/array"
	"github.com/gridfire-labs/fieldkit/internal/units"
)

// ComputeFunc computes a field's value against a data context. Nested field
// requests go back through the context and recurse into the same resolution
// path.
type ComputeFunc func(s *Spec, data Context) (*array.Array, error)

// NullFunc is the no-op sentinel used for fields that exist only as on-disk
// data. Evaluating a spec whose computation is NullFunc is a configuration
// error; the probe synthesizes such fields instead of evaluating them.
func NullFunc(*Spec, Context) (*array.Array, error) { return nil, nil }

// Translation returns a computation that aliases another field.
func Translation(key Key) ComputeFunc {
	return func(_ *Spec, data Context) (*array.Array, error) {
		return data.Value(key)
	}
}

// Spec describes a derived field. Immutable after construction.
type Spec struct {
	key    Key
	fn     ComputeFunc
	isNull bool

	unit                 units.Unit
	takeLog              bool
	displayField         bool
	particleType         bool
	vectorField          bool
	notInAll             bool
	opaque               bool
	displayName          string
	projectionConversion string

	validators []Validator
}

// Option configures a Spec at construction time.
type Option func(*Spec)

// WithFieldType sets the key's type tag.
func WithFieldType(ftype string) Option { return func(s *Spec) { s.key.Type = ftype } }

// WithUnits declares the field's unit as text. Powers use "**" syntax. The
// string is parsed lazily; an unparsable unit surfaces as a
// ConfigurationError on first use.
func WithUnits(expr string) Option { return func(s *Spec) { s.unit = units.New(expr) } }

// WithValidators appends validators, preserving declaration order.
func WithValidators(vs ...Validator) Option {
	return func(s *Spec) { s.validators = append(s.validators, vs...) }
}

// WithDisplayName sets the plot label.
func WithDisplayName(name string) Option { return func(s *Spec) { s.displayName = name } }

// WithProjectionConversion sets the unit to multiply by in a projection.
func WithProjectionConversion(u string) Option {
	return func(s *Spec) { s.projectionConversion = u }
}

// NoLog marks the field as linearly scaled in plots.
func NoLog() Option { return func(s *Spec) { s.takeLog = false } }

// NotDisplayed hides the field from display listings.
func NotDisplayed() Option { return func(s *Spec) { s.displayField = false } }

// ParticleType marks the field as defined per particle (flat storage).
func ParticleType() Option { return func(s *Spec) { s.particleType = true } }

// VectorField marks the field as vector valued.
func VectorField() Option { return func(s *Spec) { s.vectorField = true } }

// NotInAll marks a baryon field that is absent from some grids.
func NotInAll() Option { return func(s *Spec) { s.notInAll = true } }

// Opaque marks the computation as un-introspectable: dependency detection
// records only the field's own name instead of executing the closure.
func Opaque() Option { return func(s *Spec) { s.opaque = true } }

// New builds a Spec. A nil computation (or NullFunc itself) installs the
// no-op sentinel.
func New(name string, fn ComputeFunc, opts ...Option) *Spec {
	s := &Spec{
		key:                  BareKey(name),
		fn:                   fn,
		takeLog:              true,
		displayField:         true,
		projectionConversion: "cm",
	}
	if fn == nil {
		s.fn = NullFunc
		s.isNull = true
	} else if reflect.ValueOf(fn).Pointer() == reflect.ValueOf(ComputeFunc(NullFunc)).Pointer() {
		s.isNull = true
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the field's key.
func (s *Spec) Key() Key { return s.key }

// Name returns the field's name without the type tag.
func (s *Spec) Name() string { return s.key.Name }

// UnitsText returns the declared unit string.
func (s *Spec) UnitsText() string { return s.unit.Expr() }

// Units returns the declared unit, parsing it on first use. An unparsable
// declaration is a ConfigurationError.
func (s *Spec) Units() (units.Unit, error) {
	if err := s.unit.Validate(); err != nil {
		return units.Unit{}, Configf("field %s: %v", s.key, err)
	}
	return s.unit, nil
}

// TakeLog reports whether the field is plotted on a log scale.
func (s *Spec) TakeLog() bool { return s.takeLog }

// DisplayField reports whether the field shows up in display listings.
func (s *Spec) DisplayField() bool { return s.displayField }

// IsParticleType reports whether the field is defined per particle.
func (s *Spec) IsParticleType() bool { return s.particleType }

// IsVectorField reports whether the field is vector valued.
func (s *Spec) IsVectorField() bool { return s.vectorField }

// IsNotInAll reports whether the field may be absent from some grids.
func (s *Spec) IsNotInAll() bool { return s.notInAll }

// IsNull reports whether the computation is the no-op sentinel.
func (s *Spec) IsNull() bool { return s.isNull }

// IsOpaque reports whether dependency detection must not execute the
// computation.
func (s *Spec) IsOpaque() bool { return s.opaque }

// Validators returns the ordered validator list.
func (s *Spec) Validators() []Validator { return s.validators }

// DisplayName returns the configured plot label, or "".
func (s *Spec) DisplayName() string { return s.displayName }

// Label returns a data label for the field, including units when the
// declared unit is not dimensionless.
func (s *Spec) Label() string {
	name := s.key.Name
	if s.displayName != "" {
		name = s.displayName
	}
	if s.unit.IsDimensionless() {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, s.unit.Expr())
}

// Evaluate checks the validators in declared order and, if all pass, invokes
// the computation. The first failing validator's signal is returned
// immediately; the remaining validators are skipped. Any keys the
// computation materialized in the context beyond the pre-call key set are
// stripped before returning, so temporaries never leak into the caller's
// context.
func (s *Spec) Evaluate(data Context) (*array.Array, error) {
	for _, v := range s.validators {
		if err := v.Validate(data); err != nil {
			return nil, err
		}
	}
	if s.isNull {
		return nil, Configf("field %s: computation is the no-op sentinel", s.key)
	}

	before := make(map[Key]struct{})
	for _, k := range data.Keys() {
		before[k] = struct{}{}
	}

	out, err := s.fn(s, data)
	if err != nil {
		return nil, err
	}

	for _, k := range data.Keys() {
		if _, ok := before[k]; !ok {
			data.Delete(k)
		}
	}
	return out, nil
}

// Dependencies discovers which raw fields this field's computation reads by
// executing it against the given recording probe. Opaque specs record only
// their own key. The returned slice is the probe's accumulated request log;
// recoverable signals other than spatial insufficiency propagate as the
// error.
func (s *Spec) Dependencies(rec Recorder) ([]Key, error) {
	if s.opaque {
		rec.Record(s.key)
		return rec.Requested(), nil
	}
	if _, err := rec.Value(s.key); err != nil {
		return rec.Requested(), err
	}
	return rec.Requested(), nil
}
