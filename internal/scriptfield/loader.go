// Package scriptfield registers derived fields defined in Starlark scripts.
// Scripts call a def_field builtin; the computation stays a Starlark function
// invoked through a data bridge at evaluation time.
package scriptfield

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.starlark.net/starlark"

	"github.com/gridfire-labs/fieldkit/internal/array"
	"github.com/gridfire-labs/fieldkit/internal/field"
	"github.com/gridfire-labs/fieldkit/internal/registry"
)

// Loader executes field scripts against a registry.
type Loader struct {
	reg    *registry.Registry
	logger *slog.Logger
}

// NewLoader creates a loader that registers into reg.
func NewLoader(reg *registry.Registry, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{reg: reg, logger: logger}
}

// LoadDir executes every .star file in dir, in lexical order. A missing
// directory is not an error.
func (l *Loader) LoadDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to access script directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("script path is not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.star"))
	if err != nil {
		return fmt.Errorf("failed to scan script directory: %w", err)
	}
	for _, file := range files {
		if err := l.LoadFile(file); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile executes one script file.
func (l *Loader) LoadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read script %s: %w", path, err)
	}
	if err := l.Exec(path, content); err != nil {
		return err
	}
	l.logger.Debug("loaded field script", "path", path)
	return nil
}

// Exec runs a script from memory. The name is used in error positions.
func (l *Loader) Exec(name string, src any) error {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			l.logger.Info("script print", "script", name, "message", msg)
		},
	}

	predeclared := mathBuiltins()
	predeclared["def_field"] = starlark.NewBuiltin("def_field", l.defField)

	if _, err := starlark.ExecFile(thread, name, src, predeclared); err != nil { //nolint:staticcheck // SA1019: will migrate to ExecFileOptions later
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return fmt.Errorf("script %s: %s", name, evalErr.Backtrace())
		}
		return fmt.Errorf("script %s: %w", name, err)
	}
	return nil
}

// defField implements the def_field(name=..., fn=..., ...) builtin.
func (l *Loader) defField(
	thread *starlark.Thread, _ *starlark.Builtin,
	args starlark.Tuple, kwargs []starlark.Tuple,
) (starlark.Value, error) {
	var (
		name         string
		fn           starlark.Callable
		units        string
		fieldType    string
		displayName  string
		takeLog      = true
		particleType bool
	)
	if err := starlark.UnpackArgs("def_field", args, kwargs,
		"name", &name,
		"fn", &fn,
		"units?", &units,
		"field_type?", &fieldType,
		"display_name?", &displayName,
		"take_log?", &takeLog,
		"particle_type?", &particleType,
	); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("def_field: name must not be empty")
	}

	opts := []field.Option{field.WithUnits(units)}
	if fieldType != "" {
		opts = append(opts, field.WithFieldType(fieldType))
	}
	if displayName != "" {
		opts = append(opts, field.WithDisplayName(displayName))
	}
	if !takeLog {
		opts = append(opts, field.NoLog())
	}
	if particleType {
		opts = append(opts, field.ParticleType())
	}

	compute := l.bridge(thread.Name, name, fn)
	l.reg.Add(name, compute, opts...)
	l.logger.Debug("script registered field", "script", thread.Name, "field", name)
	return starlark.None, nil
}

// bridge wraps a Starlark callable as a compute function. Script failures
// come back as errors, never panics.
func (l *Loader) bridge(script, name string, fn starlark.Callable) field.ComputeFunc {
	return func(_ *field.Spec, data field.Context) (*array.Array, error) {
		thread := &starlark.Thread{
			Name: fmt.Sprintf("%s!%s", script, name),
			Print: func(_ *starlark.Thread, msg string) {
				l.logger.Info("script print", "field", name, "message", msg)
			},
		}

		out, err := starlark.Call(thread, fn, starlark.Tuple{&dataValue{ctx: data}}, nil)
		if err != nil {
			return nil, fmt.Errorf("script field %s: %w", name, err)
		}

		av, ok := out.(*arrayValue)
		if !ok {
			return nil, fmt.Errorf("script field %s: computation returned %s, want field_array", name, out.Type())
		}
		return av.arr, nil
	}
}
