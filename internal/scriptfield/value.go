package scriptfield

import (
	"fmt"
	"math"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/gridfire-labs/fieldkit/internal/array"
	"github.com/gridfire-labs/fieldkit/internal/field"
)

// arrayValue wraps a field array for Starlark scripts. It supports
// elementwise arithmetic against other arrays and scalars.
type arrayValue struct {
	arr *array.Array
}

var (
	_ starlark.Value     = (*arrayValue)(nil)
	_ starlark.HasBinary = (*arrayValue)(nil)
)

func wrapArray(a *array.Array) *arrayValue { return &arrayValue{arr: a} }

func (v *arrayValue) String() string {
	return fmt.Sprintf("field_array(shape=%v)", v.arr.Shape)
}

func (v *arrayValue) Type() string          { return "field_array" }
func (v *arrayValue) Freeze()               {}
func (v *arrayValue) Truth() starlark.Bool  { return starlark.Bool(v.arr.Len() > 0) }
func (v *arrayValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: field_array") }

// Binary implements elementwise +, -, * and / against arrays and scalars.
func (v *arrayValue) Binary(op syntax.Token, y starlark.Value, side starlark.Side) (starlark.Value, error) {
	switch op {
	case syntax.PLUS, syntax.MINUS, syntax.STAR, syntax.SLASH:
	default:
		return nil, nil // defer to the interpreter's default error
	}

	if other, ok := y.(*arrayValue); ok {
		left, right := v.arr, other.arr
		if side == starlark.Right {
			left, right = right, left
		}
		out, err := applyBinary(op, left, right)
		if err != nil {
			return nil, err
		}
		return wrapArray(out), nil
	}

	s, ok := starlark.AsFloat(y)
	if !ok {
		return nil, nil
	}
	return wrapArray(applyScalar(op, v.arr, s, side)), nil
}

func applyBinary(op syntax.Token, left, right *array.Array) (*array.Array, error) {
	switch op {
	case syntax.PLUS:
		return array.Add(left, right)
	case syntax.MINUS:
		return array.Sub(left, right)
	case syntax.STAR:
		return array.Mul(left, right)
	default:
		return array.Div(left, right)
	}
}

func applyScalar(op syntax.Token, a *array.Array, s float64, side starlark.Side) *array.Array {
	switch op {
	case syntax.PLUS:
		return a.Shift(s)
	case syntax.MINUS:
		if side == starlark.Right {
			return a.Apply(func(x float64) float64 { return s - x })
		}
		return a.Shift(-s)
	case syntax.STAR:
		return a.Scale(s)
	default:
		if side == starlark.Right {
			return a.Apply(func(x float64) float64 { return s / x })
		}
		return a.Scale(1 / s)
	}
}

// dataValue exposes an evaluation context to scripts. Indexing with a field
// name returns the field's array; the "parameter" attribute looks up field
// parameters.
type dataValue struct {
	ctx field.Context
}

var (
	_ starlark.Value    = (*dataValue)(nil)
	_ starlark.Mapping  = (*dataValue)(nil)
	_ starlark.HasAttrs = (*dataValue)(nil)
)

func (d *dataValue) String() string        { return "field_data" }
func (d *dataValue) Type() string          { return "field_data" }
func (d *dataValue) Freeze()               {}
func (d *dataValue) Truth() starlark.Bool  { return starlark.True }
func (d *dataValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: field_data") }

// Get resolves data["name"] or data["type/name"] to a field array.
func (d *dataValue) Get(k starlark.Value) (starlark.Value, bool, error) {
	name, ok := starlark.AsString(k)
	if !ok {
		return nil, false, fmt.Errorf("field keys must be strings, got %s", k.Type())
	}
	v, err := d.ctx.Value(field.ParseKey(name))
	if err != nil {
		return nil, false, err
	}
	return wrapArray(v), true, nil
}

func (d *dataValue) Attr(name string) (starlark.Value, error) {
	if name != "parameter" {
		return nil, nil
	}
	return starlark.NewBuiltin("parameter", func(
		_ *starlark.Thread, _ *starlark.Builtin,
		args starlark.Tuple, kwargs []starlark.Tuple,
	) (starlark.Value, error) {
		var pname string
		if err := starlark.UnpackPositionalArgs("parameter", args, kwargs, 1, &pname); err != nil {
			return nil, err
		}
		p, err := d.ctx.Parameter(pname)
		if err != nil {
			return nil, err
		}
		vals := make([]starlark.Value, len(p.Values))
		for i, x := range p.Values {
			vals[i] = starlark.Float(x)
		}
		return starlark.NewList(vals), nil
	}), nil
}

func (d *dataValue) AttrNames() []string { return []string{"parameter"} }

// mathBuiltins are the elementwise helpers available to scripts.
func mathBuiltins() starlark.StringDict {
	unary := func(name string, fn func(float64) float64) *starlark.Builtin {
		return starlark.NewBuiltin(name, func(
			_ *starlark.Thread, _ *starlark.Builtin,
			args starlark.Tuple, kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			var x starlark.Value
			if err := starlark.UnpackPositionalArgs(name, args, kwargs, 1, &x); err != nil {
				return nil, err
			}
			if av, ok := x.(*arrayValue); ok {
				return wrapArray(av.arr.Apply(fn)), nil
			}
			if s, ok := starlark.AsFloat(x); ok {
				return starlark.Float(fn(s)), nil
			}
			return nil, fmt.Errorf("%s: want field_array or number, got %s", name, x.Type())
		})
	}
	return starlark.StringDict{
		"sqrt":  unary("sqrt", math.Sqrt),
		"log10": unary("log10", math.Log10),
	}
}
