package array

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridfire-labs/fieldkit/internal/units"
)

func TestOnesAndRavel(t *testing.T) {
	a := Ones(4, 4, 4).WithUnits(units.New("g/cm**3"))
	assert.Equal(t, 64, a.Len())

	flat := a.Ravel()
	assert.Equal(t, []int{64}, flat.Shape)
	assert.Equal(t, "g/cm**3", flat.Units.Expr())

	// Raveling shares data.
	flat.Data[0] = 7
	assert.Equal(t, 7.0, a.At(0, 0, 0))
}

func TestTrimBorder(t *testing.T) {
	a := New(6, 6, 6)
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			for k := 0; k < 6; k++ {
				a.Set(i, j, k, float64(i*100+j*10+k))
			}
		}
	}

	out, err := a.TrimBorder(1)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4, 4}, out.Shape)
	assert.Equal(t, a.At(1, 1, 1), out.At(0, 0, 0))
	assert.Equal(t, a.At(4, 4, 4), out.At(3, 3, 3))

	// Zero ghost zones is a no-op.
	same, err := a.TrimBorder(0)
	require.NoError(t, err)
	assert.Same(t, a, same)

	_, err = a.TrimBorder(3)
	assert.Error(t, err, "trimming more than half the side must fail")

	_, err = New(8).TrimBorder(1)
	assert.Error(t, err, "flat arrays have no border")
}

func TestCentralDiff(t *testing.T) {
	// f(i,j,k) = 2*i: df/dx = 2 everywhere in the interior, 0 on the border.
	n := 5
	f := New(n, n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				f.Set(i, j, k, 2*float64(i))
			}
		}
	}

	g, err := CentralDiff(f, 0, 1.0)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				want := 2.0
				if i == 0 || i == n-1 || j == 0 || j == n-1 || k == 0 || k == n-1 {
					want = 0.0
				}
				assert.InDelta(t, want, g.At(i, j, k), 1e-12)
			}
		}
	}

	// A constant field has zero derivative along every axis.
	c := Ones(n, n, n)
	for axis := 0; axis < 3; axis++ {
		g, err := CentralDiff(c, axis, 0.5)
		require.NoError(t, err)
		for _, v := range g.Data {
			assert.Zero(t, v)
		}
	}

	_, err = CentralDiff(New(8), 0, 1.0)
	assert.Error(t, err)
	_, err = CentralDiff(c, 3, 1.0)
	assert.Error(t, err)
}

func TestElementwise(t *testing.T) {
	a := Full(6, 2, 2).WithUnits(units.New("cm"))
	b := Full(2, 2, 2)

	sum, err := Add(a, b)
	require.NoError(t, err)
	assert.Equal(t, 8.0, sum.Data[0])
	assert.Equal(t, "cm", sum.Units.Expr())

	diff, err := Sub(a, b)
	require.NoError(t, err)
	assert.Equal(t, 4.0, diff.Data[0])

	prod, err := Mul(a, b)
	require.NoError(t, err)
	assert.Equal(t, 12.0, prod.Data[0])

	quot, err := Div(a, b)
	require.NoError(t, err)
	assert.Equal(t, 3.0, quot.Data[0])

	_, err = Add(a, Full(1, 3))
	assert.Error(t, err)

	assert.Equal(t, 12.0, a.Scale(2).Data[0])
	assert.Equal(t, 7.0, a.Shift(1).Data[0])
	assert.Equal(t, 36.0, a.Pow(2).Data[0])
	assert.InDelta(t, 3.0, Full(9, 1).Sqrt().Data[0], 1e-12)
}

func TestJitter(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := Ones(4, 4, 4).Jitter(rng, 1e-4)
	for _, v := range a.Data {
		assert.GreaterOrEqual(t, v, 1.0)
		assert.Less(t, v, 1.0+1e-4)
	}
}
