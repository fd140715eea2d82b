// Package fields ships the universal derived-field set: the definitions every
// dataset gets regardless of its file format. Frontend registries chain to
// the universal registry as their fallback.
package fields

import (
	"math"
	"sync"

	"github.com/gridfire-labs/fieldkit/internal/array"
	"github.com/gridfire-labs/fieldkit/internal/field"
	"github.com/gridfire-labs/fieldkit/internal/registry"
)

// gamma is the adiabatic index of an ideal monatomic gas.
const gamma = 5.0 / 3.0

var (
	universalOnce sync.Once
	universal     *registry.Registry
)

// Universal returns the shared registry of built-in fields, constructed once.
// Callers must not register into it; chain a frontend registry on top via
// registry.CreateWithFallback.
func Universal() *registry.Registry {
	universalOnce.Do(func() {
		universal = registry.New("universal")
		registerInto(universal)
	})
	return universal
}

// NewUniversal builds a fresh registry with the built-in set, for callers
// that need an isolated copy to mutate.
func NewUniversal() *registry.Registry {
	reg := registry.New("universal")
	registerInto(reg)
	return reg
}

func registerInto(reg *registry.Registry) {
	reg.Add("CellVolume", cellVolume,
		field.WithUnits("cm**3"),
		field.WithDisplayName("Cell Volume"),
		field.NoLog())

	reg.Add("CellMass", cellMass,
		field.WithUnits("g"),
		field.WithDisplayName("Cell Mass"))

	reg.Add("VelocityMagnitude", velocityMagnitude,
		field.WithUnits("cm/s"),
		field.WithDisplayName("Velocity Magnitude"),
		field.NoLog())

	reg.Add("Pressure", pressure,
		field.WithUnits("dyne/cm**2"))

	reg.Add("SoundSpeed", soundSpeed,
		field.WithUnits("cm/s"),
		field.NoLog())

	reg.Add("RadialVelocity", radialVelocity,
		field.WithUnits("cm/s"),
		field.NoLog(),
		field.WithValidators(field.RequireParameters("center", "bulk_velocity")))

	// Primitive particle fields, synthesized by shape.
	reg.Add("ParticleMass", field.NullFunc,
		field.WithUnits("g"),
		field.ParticleType())
	reg.Add("Coordinates", field.NullFunc,
		field.WithUnits("cm"),
		field.ParticleType(),
		field.VectorField())
	reg.Add("Velocities", field.NullFunc,
		field.WithUnits("cm/s"),
		field.ParticleType(),
		field.VectorField())

	reg.RegisterGradient("Density", field.WithUnits("g/cm**4"))
}

func cellVolume(_ *field.Spec, data field.Context) (*array.Array, error) {
	dx, err := data.Value(field.BareKey("dx"))
	if err != nil {
		return nil, err
	}
	dy, err := data.Value(field.BareKey("dy"))
	if err != nil {
		return nil, err
	}
	dz, err := data.Value(field.BareKey("dz"))
	if err != nil {
		return nil, err
	}
	v, err := array.Mul(dx, dy)
	if err != nil {
		return nil, err
	}
	return array.Mul(v, dz)
}

func cellMass(_ *field.Spec, data field.Context) (*array.Array, error) {
	density, err := data.Value(field.BareKey("Density"))
	if err != nil {
		return nil, err
	}
	volume, err := data.Value(field.BareKey("CellVolume"))
	if err != nil {
		return nil, err
	}
	return array.Mul(density, volume)
}

// velocityComponents fetches the three velocity fields.
func velocityComponents(data field.Context) (vx, vy, vz *array.Array, err error) {
	if vx, err = data.Value(field.BareKey("x-velocity")); err != nil {
		return nil, nil, nil, err
	}
	if vy, err = data.Value(field.BareKey("y-velocity")); err != nil {
		return nil, nil, nil, err
	}
	if vz, err = data.Value(field.BareKey("z-velocity")); err != nil {
		return nil, nil, nil, err
	}
	return vx, vy, vz, nil
}

func velocityMagnitude(_ *field.Spec, data field.Context) (*array.Array, error) {
	vx, vy, vz, err := velocityComponents(data)
	if err != nil {
		return nil, err
	}
	sum := array.New(vx.Shape...)
	for i := range sum.Data {
		sum.Data[i] = vx.Data[i]*vx.Data[i] + vy.Data[i]*vy.Data[i] + vz.Data[i]*vz.Data[i]
	}
	return sum.Sqrt(), nil
}

func pressure(_ *field.Spec, data field.Context) (*array.Array, error) {
	density, err := data.Value(field.BareKey("Density"))
	if err != nil {
		return nil, err
	}
	thermal, err := data.Value(field.BareKey("ThermalEnergy"))
	if err != nil {
		return nil, err
	}
	p, err := array.Mul(density, thermal)
	if err != nil {
		return nil, err
	}
	return p.Scale(gamma - 1), nil
}

func soundSpeed(_ *field.Spec, data field.Context) (*array.Array, error) {
	p, err := data.Value(field.BareKey("Pressure"))
	if err != nil {
		return nil, err
	}
	density, err := data.Value(field.BareKey("Density"))
	if err != nil {
		return nil, err
	}
	cs, err := array.Div(p, density)
	if err != nil {
		return nil, err
	}
	return cs.Scale(gamma).Sqrt(), nil
}

// radialVelocity projects the bulk-corrected velocity onto the unit vector
// from the center parameter to each cell.
func radialVelocity(_ *field.Spec, data field.Context) (*array.Array, error) {
	center, err := data.Parameter("center")
	if err != nil {
		return nil, err
	}
	bulk, err := data.Parameter("bulk_velocity")
	if err != nil {
		return nil, err
	}

	vx, vy, vz, err := velocityComponents(data)
	if err != nil {
		return nil, err
	}
	x, err := data.Value(field.BareKey("x"))
	if err != nil {
		return nil, err
	}
	y, err := data.Value(field.BareKey("y"))
	if err != nil {
		return nil, err
	}
	z, err := data.Value(field.BareKey("z"))
	if err != nil {
		return nil, err
	}

	c := center.Vector()
	b := bulk.Vector()
	out := array.New(vx.Shape...)
	for i := range out.Data {
		rx := x.Data[i] - c[0]
		ry := y.Data[i] - c[1]
		rz := z.Data[i] - c[2]
		r := math.Sqrt(rx*rx + ry*ry + rz*rz)
		if r == 0 {
			continue
		}
		out.Data[i] = ((vx.Data[i]-b[0])*rx + (vy.Data[i]-b[1])*ry + (vz.Data[i]-b[2])*rz) / r
	}
	return out, nil
}
