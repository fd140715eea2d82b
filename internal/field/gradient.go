package field

import (
	"fmt"

	"github.com/gridfire-labs/fieldkit/internal/array"
)

var axisNames = [3]string{"x", "y", "z"}
var spacingFields = [3]string{"dx", "dy", "dz"}

// GradientSpecs builds the four derived fields for the gradient of a base
// field: three centered-difference partials (one per spatial axis, each
// requiring one ghost zone) and the gradient magnitude, which only reads its
// sibling partials. The shared options apply to all four; display names are
// derived per field unless overridden.
func GradientSpecs(base string, opts ...Option) []*Spec {
	specs := make([]*Spec, 0, 4)

	for axis := 0; axis < 3; axis++ {
		name := fmt.Sprintf("Grad_%s_%s", base, axisNames[axis])
		s := New(name, gradientPartial(BareKey(base), axis),
			append(append([]Option{}, opts...),
				NoLog(),
				WithValidators(RequireSpatial(1, base)),
			)...)
		if s.displayName == "" {
			s.displayName = fmt.Sprintf("d%s/d%s", base, axisNames[axis])
		} else {
			s.displayName = fmt.Sprintf("%s_%s", s.displayName, axisNames[axis])
		}
		specs = append(specs, s)
	}

	mag := New("Grad_"+base, gradientMagnitude(base),
		append(append([]Option{}, opts...), NoLog())...)
	if mag.displayName == "" {
		mag.displayName = fmt.Sprintf("|grad %s|", base)
	}
	specs = append(specs, mag)

	return specs
}

// gradientPartial differentiates the base field along one axis: value at
// index+1 minus value at index-1, divided by twice the cell spacing. The
// outer 1-cell border of the result stays zero (undefined there).
func gradientPartial(base Key, axis int) ComputeFunc {
	return func(_ *Spec, data Context) (*array.Array, error) {
		f, err := data.Value(base)
		if err != nil {
			return nil, err
		}
		d, err := data.Value(BareKey(spacingFields[axis]))
		if err != nil {
			return nil, err
		}
		if d.Len() == 0 {
			return nil, Configf("field %s: empty %s", base, spacingFields[axis])
		}
		return array.CentralDiff(f, axis, d.Data[0])
	}
}

// gradientMagnitude is the square root of the sum of squares of the three
// partials. It carries no spatial validator: the siblings it reads are
// already materialized at the right shape.
func gradientMagnitude(base string) ComputeFunc {
	return func(_ *Spec, data Context) (*array.Array, error) {
		sum := (*array.Array)(nil)
		for axis := 0; axis < 3; axis++ {
			g, err := data.Value(BareKey(fmt.Sprintf("Grad_%s_%s", base, axisNames[axis])))
			if err != nil {
				return nil, err
			}
			sq, err := array.Mul(g, g)
			if err != nil {
				return nil, err
			}
			if sum == nil {
				sum = sq
				continue
			}
			if sum, err = array.Add(sum, sq); err != nil {
				return nil, err
			}
		}
		return sum.Sqrt(), nil
	}
}
