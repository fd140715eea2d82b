package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridfire-labs/fieldkit/internal/array"
)

func TestGradientSpecNames(t *testing.T) {
	specs := GradientSpecs("Density")
	require.Len(t, specs, 4)

	names := make([]string, 0, 4)
	for _, s := range specs {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"Grad_Density_x", "Grad_Density_y", "Grad_Density_z", "Grad_Density",
	}, names)

	for _, s := range specs[:3] {
		assert.False(t, s.TakeLog())
		require.Len(t, s.Validators(), 1)
		sv, ok := s.Validators()[0].(SpatialShape)
		require.True(t, ok)
		assert.Equal(t, 1, sv.GhostZones)
		assert.Equal(t, []string{"Density"}, sv.Fields)
	}

	// The magnitude only reads its siblings: no spatial validator.
	assert.Empty(t, specs[3].Validators())
	assert.Equal(t, "|grad Density|", specs[3].DisplayName())
	assert.Equal(t, "dDensity/dx", specs[0].DisplayName())
}

func TestGradientDisplayNameOverride(t *testing.T) {
	specs := GradientSpecs("Density", WithDisplayName("rho"))
	assert.Equal(t, "rho_x", specs[0].DisplayName())
	assert.Equal(t, "rho_y", specs[1].DisplayName())
	assert.Equal(t, "rho_z", specs[2].DisplayName())
	assert.Equal(t, "rho", specs[3].DisplayName())
}

func TestGradientPartialMath(t *testing.T) {
	n := 6
	f := array.New(n, n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				f.Set(i, j, k, 3*float64(i))
			}
		}
	}

	ctx := newFakeContext()
	ctx.ghosts = 1
	ctx.set(BareKey("Density"), f)
	ctx.set(BareKey("dx"), array.Full(0.5, n, n, n))

	specs := GradientSpecs("Density")
	out, err := specs[0].Evaluate(ctx)
	require.NoError(t, err)

	// d(3x)/dx with spacing 0.5: (3*(i+1)-3*(i-1)) / (2*0.5) = 6.
	assert.InDelta(t, 6.0, out.At(2, 2, 2), 1e-12)
	// The border is zero-filled: undefined there.
	assert.Zero(t, out.At(0, 2, 2))
	assert.Zero(t, out.At(n-1, 2, 2))
	assert.Zero(t, out.At(2, 0, 2))
}

func TestGradientMagnitudeMath(t *testing.T) {
	n := 4
	ctx := newFakeContext()
	ctx.set(BareKey("Grad_T_x"), array.Full(3, n, n, n))
	ctx.set(BareKey("Grad_T_y"), array.Full(4, n, n, n))
	ctx.set(BareKey("Grad_T_z"), array.New(n, n, n))

	specs := GradientSpecs("T")
	out, err := specs[3].Evaluate(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, out.At(1, 1, 1), 1e-12)
}
