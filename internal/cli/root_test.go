package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "fieldkit")
	assert.Contains(t, out, Version)
}

func TestListCommand(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "CellMass")
	assert.Contains(t, out, "VelocityMagnitude")
	assert.Contains(t, out, "fields)")
}

func TestListCommand_JSON(t *testing.T) {
	out, err := execute(t, "list", "--json")
	require.NoError(t, err)

	var infos []fieldInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	names := make(map[string]bool)
	for _, info := range infos {
		names[info.Field] = true
	}
	assert.True(t, names["CellMass"])
	assert.True(t, names["ParticleMass"])
}

func TestDepsCommand(t *testing.T) {
	out, err := execute(t, "deps", "CellMass")
	require.NoError(t, err)
	assert.Contains(t, out, "Density")
	assert.Contains(t, out, "dx")
}

func TestDepsCommand_JSON(t *testing.T) {
	out, err := execute(t, "deps", "RadialVelocity", "--json")
	require.NoError(t, err)

	var result struct {
		Field      string   `json:"field"`
		Fields     []string `json:"fields"`
		Parameters []string `json:"parameters"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "RadialVelocity", result.Field)
	assert.Equal(t, []string{"center", "bulk_velocity"}, result.Parameters)
}

func TestDepsCommand_Unknown(t *testing.T) {
	_, err := execute(t, "deps", "NoSuchField")
	assert.Error(t, err)
}

func TestDAGCommand(t *testing.T) {
	out, err := execute(t, "dag")
	require.NoError(t, err)
	assert.Contains(t, out, "Level")
	assert.Contains(t, out, "edges")
}

func TestScriptFieldsVisibleToCommands(t *testing.T) {
	dir := t.TempDir()
	scripts := filepath.Join(dir, "fields")
	require.NoError(t, os.MkdirAll(scripts, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "extra.star"), []byte(`
def halved(data):
    return data["Density"] * 0.5

def_field(name="HalfDensity", fn=halved, units="g/cm**3")
`), 0o644))

	t.Chdir(dir)

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"list", "--scripts-dir", scripts})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "HalfDensity")
}
