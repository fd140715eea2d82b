// Package array provides the dense float64 arrays that field computations
// operate on: cubic grids, flattened grids, and per-particle rows. Arrays
// carry the declared unit of the field that produced them; no unit algebra is
// performed on operations.
package array

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/gridfire-labs/fieldkit/internal/units"
)

// Array is a dense float64 array with an explicit shape, stored in row-major
// (C) order.
type Array struct {
	Shape []int
	Data  []float64
	Units units.Unit
}

// New creates a zero-filled array of the given shape.
func New(shape ...int) *Array {
	return &Array{Shape: shape, Data: make([]float64, Size(shape))}
}

// Ones creates an array of the given shape filled with 1.0.
func Ones(shape ...int) *Array {
	a := New(shape...)
	for i := range a.Data {
		a.Data[i] = 1.0
	}
	return a
}

// Full creates an array of the given shape filled with v.
func Full(v float64, shape ...int) *Array {
	a := New(shape...)
	for i := range a.Data {
		a.Data[i] = v
	}
	return a
}

// Size returns the number of elements implied by a shape.
func Size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.Data) }

// WithUnits tags the array with a unit and returns it.
func (a *Array) WithUnits(u units.Unit) *Array {
	a.Units = u
	return a
}

// SameShape reports whether b has the same shape as a.
func (a *Array) SameShape(b *Array) bool {
	if len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	out := &Array{
		Shape: append([]int(nil), a.Shape...),
		Data:  append([]float64(nil), a.Data...),
		Units: a.Units,
	}
	return out
}

// Ravel returns the array flattened to one dimension. The data is shared.
func (a *Array) Ravel() *Array {
	if len(a.Shape) == 1 {
		return a
	}
	return &Array{Shape: []int{len(a.Data)}, Data: a.Data, Units: a.Units}
}

// index converts a 3-D coordinate to a flat offset. Only valid for cubes.
func (a *Array) index(i, j, k int) int {
	n1, n2 := a.Shape[1], a.Shape[2]
	return (i*n1+j)*n2 + k
}

// At returns the element at a 3-D coordinate.
func (a *Array) At(i, j, k int) float64 { return a.Data[a.index(i, j, k)] }

// Set assigns the element at a 3-D coordinate.
func (a *Array) Set(i, j, k int, v float64) { a.Data[a.index(i, j, k)] = v }

// Jitter perturbs every element by a small uniform random amount. Synthetic
// placeholder data uses this to avoid degenerate zero derivatives.
func (a *Array) Jitter(rng *rand.Rand, scale float64) *Array {
	for i := range a.Data {
		a.Data[i] += scale * rng.Float64()
	}
	return a
}

// TrimBorder strips g cells from every face of a cubic array, returning a new
// array of side n-2g.
func (a *Array) TrimBorder(g int) (*Array, error) {
	if len(a.Shape) != 3 {
		return nil, fmt.Errorf("trim border: need 3-D array, got shape %v", a.Shape)
	}
	if g <= 0 {
		return a, nil
	}
	nx, ny, nz := a.Shape[0], a.Shape[1], a.Shape[2]
	if nx <= 2*g || ny <= 2*g || nz <= 2*g {
		return nil, fmt.Errorf("trim border: %d ghost cells exceed shape %v", g, a.Shape)
	}
	out := New(nx-2*g, ny-2*g, nz-2*g)
	out.Units = a.Units
	for i := 0; i < nx-2*g; i++ {
		for j := 0; j < ny-2*g; j++ {
			for k := 0; k < nz-2*g; k++ {
				out.Set(i, j, k, a.At(i+g, j+g, k+g))
			}
		}
	}
	return out, nil
}

// CentralDiff computes the centered finite difference of a cubic array along
// the given axis (0, 1 or 2), divided by twice the cell spacing. The outer
// 1-cell border of the result is zero.
func CentralDiff(f *Array, axis int, spacing float64) (*Array, error) {
	if len(f.Shape) != 3 {
		return nil, fmt.Errorf("central diff: need 3-D array, got shape %v", f.Shape)
	}
	if axis < 0 || axis > 2 {
		return nil, fmt.Errorf("central diff: bad axis %d", axis)
	}
	nx, ny, nz := f.Shape[0], f.Shape[1], f.Shape[2]
	out := New(nx, ny, nz)
	inv := 1.0 / (2.0 * spacing)
	var di, dj, dk int
	switch axis {
	case 0:
		di = 1
	case 1:
		dj = 1
	case 2:
		dk = 1
	}
	for i := 1; i < nx-1; i++ {
		for j := 1; j < ny-1; j++ {
			for k := 1; k < nz-1; k++ {
				hi := f.At(i+di, j+dj, k+dk)
				lo := f.At(i-di, j-dj, k-dk)
				out.Set(i, j, k, (hi-lo)*inv)
			}
		}
	}
	return out, nil
}

// Add returns a+b elementwise. The unit tag of a is kept.
func Add(a, b *Array) (*Array, error) { return binary(a, b, "add", func(x, y float64) float64 { return x + y }) }

// Sub returns a-b elementwise. The unit tag of a is kept.
func Sub(a, b *Array) (*Array, error) { return binary(a, b, "sub", func(x, y float64) float64 { return x - y }) }

// Mul returns a*b elementwise. The unit tag of a is kept.
func Mul(a, b *Array) (*Array, error) { return binary(a, b, "mul", func(x, y float64) float64 { return x * y }) }

// Div returns a/b elementwise. The unit tag of a is kept.
func Div(a, b *Array) (*Array, error) { return binary(a, b, "div", func(x, y float64) float64 { return x / y }) }

func binary(a, b *Array, op string, fn func(x, y float64) float64) (*Array, error) {
	if !a.SameShape(b) {
		return nil, fmt.Errorf("%s: shape mismatch %v vs %v", op, a.Shape, b.Shape)
	}
	out := a.Clone()
	for i := range out.Data {
		out.Data[i] = fn(a.Data[i], b.Data[i])
	}
	return out, nil
}

// Scale returns a*s elementwise.
func (a *Array) Scale(s float64) *Array {
	out := a.Clone()
	for i := range out.Data {
		out.Data[i] *= s
	}
	return out
}

// Shift returns a+s elementwise.
func (a *Array) Shift(s float64) *Array {
	out := a.Clone()
	for i := range out.Data {
		out.Data[i] += s
	}
	return out
}

// Apply returns fn applied elementwise.
func (a *Array) Apply(fn func(float64) float64) *Array {
	out := a.Clone()
	for i := range out.Data {
		out.Data[i] = fn(a.Data[i])
	}
	return out
}

// Sqrt returns the elementwise square root.
func (a *Array) Sqrt() *Array { return a.Apply(math.Sqrt) }

// Pow returns the elementwise power a**p.
func (a *Array) Pow(p float64) *Array {
	return a.Apply(func(x float64) float64 { return math.Pow(x, p) })
}
