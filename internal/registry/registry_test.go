package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridfire-labs/fieldkit/internal/field"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New("universal")
	spec := r.Add("Density", field.NullFunc, field.WithUnits("g/cm**3"))

	got, err := r.Lookup(field.BareKey("Density"))
	require.NoError(t, err)
	assert.Same(t, spec, got)

	_, err = r.Lookup(field.BareKey("Pressure"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRegisterOverwrites(t *testing.T) {
	r := New("universal")
	r.Add("Density", field.NullFunc)
	second := r.Add("Density", field.NullFunc, field.WithUnits("g/cm**3"))

	got, err := r.Lookup(field.BareKey("Density"))
	require.NoError(t, err)
	assert.Same(t, second, got, "last write wins")
	assert.Equal(t, 1, r.Len())
}

func TestTypedKeysAreDistinct(t *testing.T) {
	r := New("universal")
	grid := r.Add("Mass", field.NullFunc, field.WithFieldType("gas"))
	part := r.Add("Mass", field.NullFunc, field.WithFieldType("io"), field.ParticleType())

	g, err := r.Lookup(field.NewKey("gas", "Mass"))
	require.NoError(t, err)
	p, err := r.Lookup(field.NewKey("io", "Mass"))
	require.NoError(t, err)
	assert.Same(t, grid, g)
	assert.Same(t, part, p)
}

func TestFallbackResolution(t *testing.T) {
	universal := New("universal")
	universal.Add("Density", field.NullFunc)
	universal.Add("Temperature", field.NullFunc)

	local, err := CreateWithFallback(universal, "per-dataset")
	require.NoError(t, err)
	shadow := local.Add("Density", field.NullFunc, field.WithUnits("g/cm**3"))

	// Local always shadows the fallback.
	got, err := local.Lookup(field.BareKey("Density"))
	require.NoError(t, err)
	assert.Same(t, shadow, got)

	// Absent locally, present in fallback.
	assert.True(t, local.Contains(field.BareKey("Temperature")))
	_, err = local.Lookup(field.BareKey("Temperature"))
	assert.NoError(t, err)

	// Absent everywhere.
	assert.False(t, local.Contains(field.BareKey("Entropy")))
	_, err = local.Lookup(field.BareKey("Entropy"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestKeysYieldShadowedDuplicates(t *testing.T) {
	universal := New("universal")
	universal.Add("Density", field.NullFunc)
	universal.Add("Temperature", field.NullFunc)

	local, err := CreateWithFallback(universal, "per-dataset")
	require.NoError(t, err)
	local.Add("Density", field.NullFunc)

	// Local keys first, then the fallback's; the shadowed key shows up
	// twice. This mirrors the original container's iteration contract.
	assert.Equal(t, []field.Key{
		field.BareKey("Density"),
		field.BareKey("Density"),
		field.BareKey("Temperature"),
	}, local.Keys())

	assert.Equal(t, []field.Key{field.BareKey("Density")}, local.LocalKeys())
}

func TestFallbackCycleRejected(t *testing.T) {
	a := New("a")
	b, err := CreateWithFallback(a, "b")
	require.NoError(t, err)

	err = a.SetFallback(b)
	var cerr *field.ConfigurationError
	assert.ErrorAs(t, err, &cerr)

	err = a.SetFallback(a)
	assert.ErrorAs(t, err, &cerr)
}

func TestRegisterGradient(t *testing.T) {
	r := New("universal")
	r.Add("Density", field.NullFunc, field.WithUnits("g/cm**3"))
	specs := r.RegisterGradient("Density")
	require.Len(t, specs, 4)

	for _, name := range []string{
		"Grad_Density_x", "Grad_Density_y", "Grad_Density_z", "Grad_Density",
	} {
		assert.True(t, r.Contains(field.BareKey(name)), "missing %s", name)
	}
	assert.Equal(t, 5, r.Len())
}
