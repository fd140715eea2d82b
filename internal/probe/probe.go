// Package probe implements the synthetic data context used for dependency
// detection. A Probe answers every field request with synthesized values,
// recording each request, and recursively widens itself when a computation
// signals that it needs ghost zones. Probes are created fresh per dependency
// query and discarded afterwards; nothing is persisted.
package probe

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/gridfire-labs/fieldkit/internal/array"
	"github.com/gridfire-labs/fieldkit/internal/dataset"
	"github.com/gridfire-labs/fieldkit/internal/field"
	"github.com/gridfire-labs/fieldkit/internal/registry"
	"github.com/gridfire-labs/fieldkit/internal/units"
)

const (
	// DefaultSide is the default side length of the synthetic cubic grid.
	DefaultSide = 16

	// DefaultParticles is the default synthetic particle count.
	DefaultParticles = 1

	// jitterScale perturbs synthesized placeholders so derivative stencils
	// never see perfectly flat data.
	jitterScale = 1e-4

	// maxWidenDepth bounds recursive ghost-zone widening. A dependency
	// chain that keeps demanding more ghost zones at every level is a
	// programming error and is surfaced instead of absorbed.
	maxWidenDepth = 8
)

// capabilities are the attributes a probe declares for PropertyPresence
// validators.
var capabilities = map[string]struct{}{
	"ActiveDimensions":  {},
	"LeftEdge":          {},
	"RightEdge":         {},
	"Level":             {},
	"NumberOfParticles": {},
	"dds":               {},
	"shape":             {},
	"size":              {},
	"fcoords":           {},
	"icoords":           {},
	"ires":              {},
	"fwidth":            {},
}

// paramUnits are the canned units of the parameters the probe answers with
// random physically plausible vectors.
var paramUnits = map[string]string{
	"bulk_velocity": "cm/s",
	"center":        "cm",
	"normal":        "",
}

// Probe is a synthetic data context: a cubic grid of side nd, or an
// equivalent flat particle-count domain. It implements field.Recorder.
type Probe struct {
	nd           int
	flat         bool
	ghostZones   int
	numParticles int
	depth        int

	reg    *registry.Registry
	desc   dataset.Descriptor
	logger *slog.Logger
	rng    *rand.Rand

	values          map[field.Key]*array.Array
	order           []field.Key
	requested       []field.Key
	requestedParams []string
	inflight        map[field.Key]struct{}
}

// Option configures a Probe.
type Option func(*Probe)

// WithSide sets the synthetic grid's side length.
func WithSide(nd int) Option { return func(p *Probe) { p.nd = nd } }

// Flat puts the probe in flat/particle mode: results are flattened and the
// context reports no spatial layout.
func Flat() Option { return func(p *Probe) { p.flat = true } }

// WithParticles sets the synthetic particle count.
func WithParticles(n int) Option { return func(p *Probe) { p.numParticles = n } }

// WithDescriptor attaches the dataset descriptor backing the probe's
// defaults and raw reads.
func WithDescriptor(desc dataset.Descriptor) Option {
	return func(p *Probe) { p.desc = desc }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option { return func(p *Probe) { p.logger = logger } }

// WithRand seeds the jitter source, for reproducible probing.
func WithRand(seed int64) Option {
	return func(p *Probe) { p.rng = rand.New(rand.NewSource(seed)) }
}

// New creates a probe resolving field specs through the given registry. A
// nil registry behaves like an empty one: every request synthesizes a raw
// placeholder.
func New(reg *registry.Registry, opts ...Option) *Probe {
	p := &Probe{
		nd:           DefaultSide,
		numParticles: DefaultParticles,
		reg:          reg,
		values:       make(map[field.Key]*array.Array),
		inflight:     make(map[field.Key]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.reg == nil {
		p.reg = registry.New("empty")
	}
	if p.desc == nil {
		p.desc = dataset.NewSynthetic("synthetic")
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(0x11f))
	}
	return p
}

// child creates the nested probe used for ghost-zone widening. It shares the
// registry, descriptor and jitter source, but keeps its own logs and values.
func (p *Probe) child(nd, ghostZones int) *Probe {
	return &Probe{
		nd:           nd,
		ghostZones:   ghostZones,
		numParticles: p.numParticles,
		depth:        p.depth + 1,
		reg:          p.reg,
		desc:         p.desc,
		logger:       p.logger,
		rng:          p.rng,
		values:       make(map[field.Key]*array.Array),
		inflight:     make(map[field.Key]struct{}),
	}
}

// Side returns the synthetic grid's side length.
func (p *Probe) Side() int { return p.nd }

// NumberOfParticles returns the synthetic particle count.
func (p *Probe) NumberOfParticles() int { return p.numParticles }

// Value resolves a field request. Registered fields evaluate against the
// probe itself; a spatial-insufficiency signal spawns a wider nested probe
// whose logs are merged back. Everything else is synthesized and logged.
func (p *Probe) Value(key field.Key) (*array.Array, error) {
	if v, ok := p.values[key]; ok {
		return v, nil
	}

	// Bare names may be disambiguated into typed keys by the dataset.
	if key.Type == field.TypeUnknown || key.Type == "" {
		if ftype, fname, ok := p.desc.ResolveAlias(key.Name); ok {
			key = field.NewKey(ftype, fname)
			if v, ok := p.values[key]; ok {
				return v, nil
			}
		}
	}

	spec, err := p.reg.Lookup(key)
	if err != nil && !errors.Is(err, registry.ErrKeyNotFound) {
		return nil, err
	}

	if spec != nil && !spec.IsNull() {
		v, err := p.evaluate(key, spec)
		if err != nil {
			return nil, err
		}
		if v != nil {
			if p.flat {
				v = v.Ravel()
			}
			p.store(key, v)
			return v, nil
		}
		// The computation produced nothing; synthesize instead.
	}

	var u units.Unit
	if spec != nil {
		if u, err = spec.Units(); err != nil {
			return nil, err
		}
	}

	if spec != nil && spec.IsParticleType() {
		var v *array.Array
		if field.IsVectorName(key.Name) {
			v = array.Ones(p.numParticles, 3)
		} else {
			v = array.Ones(p.numParticles)
		}
		v.Units = u
		p.Record(key)
		p.store(key, v)
		return v, nil
	}

	p.Record(key)
	v, err := p.readRaw(key, u)
	if err != nil {
		return nil, err
	}
	p.store(key, v)
	return v, nil
}

// evaluate runs the spec against this probe, handling the
// spatial-insufficiency retry.
func (p *Probe) evaluate(key field.Key, spec *field.Spec) (*array.Array, error) {
	if _, busy := p.inflight[key]; busy {
		return nil, field.Configf("field %s: cyclic dependency detected while probing", key)
	}
	p.inflight[key] = struct{}{}
	defer delete(p.inflight, key)

	v, err := spec.Evaluate(p)
	if err == nil {
		return v, nil
	}

	var sig *field.Signal
	if !errors.As(err, &sig) || sig.Kind != field.SpatialInsufficient || sig.GhostZones <= 0 {
		return nil, err
	}
	return p.widen(key, spec, sig.GhostZones)
}

// widen re-runs the computation on a nested probe of side nd+2g, trims the
// ghost border from the result so its shape matches this probe, and merges
// the nested request logs back, preserving first-seen order.
func (p *Probe) widen(key field.Key, spec *field.Spec, g int) (*array.Array, error) {
	if p.depth >= maxWidenDepth {
		return nil, field.Configf(
			"field %s: ghost-zone demand still growing after %d widenings", key, p.depth)
	}

	nested := p.child(p.nd+2*g, g)
	p.logger.Debug("widening probe",
		"field", key.String(), "ghost_zones", g, "side", nested.nd)

	// Evaluate through the nested probe so a still-unsatisfied spatial
	// demand widens again, up to the depth bound.
	v, err := nested.evaluate(key, spec)
	if err != nil {
		return nil, err
	}
	if v != nil {
		if v, err = v.TrimBorder(g); err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
	}

	for _, k := range nested.requested {
		p.Record(k)
	}
	for _, name := range nested.requestedParams {
		p.recordParam(name)
	}
	return v, nil
}

// readRaw synthesizes a primitive field through the dataset's raw-read
// callback, falling back to a jittered placeholder of ones when the dataset
// has nothing to offer.
func (p *Probe) readRaw(key field.Key, u units.Unit) (*array.Array, error) {
	size := p.nd * p.nd * p.nd
	vals, err := p.desc.ReadRaw(key.Name, size)
	if err != nil {
		return nil, fmt.Errorf("raw read %s: %w", key, err)
	}

	var a *array.Array
	switch {
	case vals != nil && p.flat:
		a = &array.Array{Shape: []int{size}, Data: vals}
	case vals != nil:
		a = &array.Array{Shape: []int{p.nd, p.nd, p.nd}, Data: vals}
	case p.flat:
		a = array.Ones(size).Jitter(p.rng, jitterScale)
	default:
		a = array.Ones(p.nd, p.nd, p.nd).Jitter(p.rng, jitterScale)
	}
	a.Units = u
	return a, nil
}

func (p *Probe) store(key field.Key, v *array.Array) {
	if _, ok := p.values[key]; !ok {
		p.order = append(p.order, key)
	}
	p.values[key] = v
}

// Keys lists the materialized field keys in first-stored order.
func (p *Probe) Keys() []field.Key {
	return append([]field.Key(nil), p.order...)
}

// Delete removes a materialized field.
func (p *Probe) Delete(key field.Key) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Parameter answers a field-parameter request with a canned, physically
// plausible value, logging the request. bulk_velocity, center and normal get
// small random 3-vectors with matching units; axis gets 0; everything else
// gets 0.0.
func (p *Probe) Parameter(name string) (field.Parameter, error) {
	p.recordParam(name)
	if uexpr, ok := paramUnits[name]; ok {
		vals := []float64{
			p.rng.Float64() * 1e-2,
			p.rng.Float64() * 1e-2,
			p.rng.Float64() * 1e-2,
		}
		return field.Parameter{Values: vals, Units: units.New(uexpr)}, nil
	}
	return field.Parameter{Values: []float64{0}}, nil
}

// HasParameter always reports true: parameter-presence validators never
// block probing.
func (p *Probe) HasParameter(string) bool { return true }

// HasCapability reports whether the probe declares the named attribute.
func (p *Probe) HasCapability(name string) bool {
	_, ok := capabilities[name]
	return ok
}

// OnDiskFields returns the backing dataset's primitive field list.
func (p *Probe) OnDiskFields() []string { return p.desc.OnDiskFields() }

// IsSpatial reports whether the probe has a three-dimensional layout.
func (p *Probe) IsSpatial() bool { return !p.flat }

// GhostZones returns the probe's current ghost-zone count.
func (p *Probe) GhostZones() int { return p.ghostZones }

// IsBaseGrid reports true: the probe stands in for any grid patch.
func (p *Probe) IsBaseGrid() bool { return true }

// IsProbe reports true.
func (p *Probe) IsProbe() bool { return true }

// Descriptor returns the backing dataset descriptor.
func (p *Probe) Descriptor() dataset.Descriptor { return p.desc }

// Record appends a key to the raw-field request log, first-seen order,
// no duplicates.
func (p *Probe) Record(key field.Key) {
	for _, k := range p.requested {
		if k == key {
			return
		}
	}
	p.requested = append(p.requested, key)
}

// Requested returns the ordered, de-duplicated raw-field request log.
func (p *Probe) Requested() []field.Key {
	return append([]field.Key(nil), p.requested...)
}

// RequestedParameters returns the ordered parameter request log.
func (p *Probe) RequestedParameters() []string {
	return append([]string(nil), p.requestedParams...)
}

func (p *Probe) recordParam(name string) {
	for _, n := range p.requestedParams {
		if n == name {
			return
		}
	}
	p.requestedParams = append(p.requestedParams, name)
}
