package scriptfield

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridfire-labs/fieldkit/internal/field"
	"github.com/gridfire-labs/fieldkit/internal/probe"
	"github.com/gridfire-labs/fieldkit/internal/registry"
)

func TestDefField(t *testing.T) {
	reg := registry.New("scripts")
	l := NewLoader(reg, nil)

	src := `
def double_density(data):
    return data["Density"] * 2.0

def_field(name="DoubleDensity", fn=double_density, units="g/cm**3")
`
	require.NoError(t, l.Exec("test.star", src))

	spec, err := reg.Lookup(field.BareKey("DoubleDensity"))
	require.NoError(t, err)
	u, err := spec.Units()
	require.NoError(t, err)
	assert.Equal(t, "g/cm**3", u.Expr())

	p := probe.New(reg, probe.WithSide(8))
	v, err := p.Value(field.BareKey("DoubleDensity"))
	require.NoError(t, err)
	assert.Equal(t, []int{8, 8, 8}, v.Shape)
	assert.GreaterOrEqual(t, v.Data[0], 2.0)
	assert.Equal(t, []field.Key{field.BareKey("Density")}, p.Requested())
}

func TestDefField_Metadata(t *testing.T) {
	reg := registry.New("scripts")
	l := NewLoader(reg, nil)

	src := `
def mass(data):
    return data["ParticleMass"]

def_field(name="StarMass", fn=mass, units="g", field_type="star",
          display_name="Stellar Mass", take_log=False, particle_type=True)
`
	require.NoError(t, l.Exec("meta.star", src))

	spec, err := reg.Lookup(field.NewKey("star", "StarMass"))
	require.NoError(t, err)
	assert.False(t, spec.TakeLog())
	assert.True(t, spec.IsParticleType())
	assert.Equal(t, "Stellar Mass", spec.DisplayName())
}

func TestScriptArithmetic(t *testing.T) {
	reg := registry.New("scripts")
	l := NewLoader(reg, nil)

	src := `
def spread(data):
    d = data["Density"]
    return sqrt((d - 1.0) * (d - 1.0)) + 0.5

def_field(name="Spread", fn=spread)
`
	require.NoError(t, l.Exec("math.star", src))

	p := probe.New(reg, probe.WithSide(4))
	v, err := p.Value(field.BareKey("Spread"))
	require.NoError(t, err)
	for _, x := range v.Data {
		assert.GreaterOrEqual(t, x, 0.5)
		assert.Less(t, x, 0.6)
	}
}

func TestScriptScalarDivision(t *testing.T) {
	reg := registry.New("scripts")
	l := NewLoader(reg, nil)

	src := `
def inverse(data):
    return 1.0 / data["Density"]

def_field(name="InverseDensity", fn=inverse)
`
	require.NoError(t, l.Exec("div.star", src))

	p := probe.New(reg, probe.WithSide(4))
	v, err := p.Value(field.BareKey("InverseDensity"))
	require.NoError(t, err)
	for _, x := range v.Data {
		assert.InDelta(t, 1.0, x, 0.01)
	}
}

func TestScriptParameters(t *testing.T) {
	reg := registry.New("scripts")
	l := NewLoader(reg, nil)

	src := `
def offset(data):
    c = data.parameter("center")
    return data["x"] - c[0]

def_field(name="RelativeX", fn=offset)
`
	require.NoError(t, l.Exec("param.star", src))

	p := probe.New(reg, probe.WithSide(4))
	_, err := p.Value(field.BareKey("RelativeX"))
	require.NoError(t, err)
	assert.Equal(t, []string{"center"}, p.RequestedParameters())
}

func TestScriptErrorsSurface(t *testing.T) {
	reg := registry.New("scripts")
	l := NewLoader(reg, nil)

	err := l.Exec("bad.star", `def_field(name="", fn=len)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.star")
}

func TestScriptBadReturnType(t *testing.T) {
	reg := registry.New("scripts")
	l := NewLoader(reg, nil)

	src := `
def broken(data):
    return "not an array"

def_field(name="Broken", fn=broken)
`
	require.NoError(t, l.Exec("broken.star", src))

	p := probe.New(reg, probe.WithSide(4))
	_, err := p.Value(field.BareKey("Broken"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want field_array")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	script := `
def one(data):
    return data["Density"] * 1.0

def_field(name="ScriptedOne", fn=one)
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fields.star"), []byte(script), 0o644))

	reg := registry.New("scripts")
	l := NewLoader(reg, nil)
	require.NoError(t, l.LoadDir(dir))
	assert.True(t, reg.Contains(field.BareKey("ScriptedOne")))
}

func TestLoadDir_Missing(t *testing.T) {
	reg := registry.New("scripts")
	l := NewLoader(reg, nil)
	assert.NoError(t, l.LoadDir(filepath.Join(t.TempDir(), "absent")))
}
