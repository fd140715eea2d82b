// Package analyzer discovers the dependency structure of a field registry by
// probing every registered field and assembling the results into a graph.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gridfire-labs/fieldkit/internal/dag"
	"github.com/gridfire-labs/fieldkit/internal/dataset"
	"github.com/gridfire-labs/fieldkit/internal/field"
	"github.com/gridfire-labs/fieldkit/internal/probe"
	"github.com/gridfire-labs/fieldkit/internal/registry"
)

// DefaultConcurrency bounds how many fields are probed at once.
const DefaultConcurrency = 8

// Dependencies describes what a single field needs from the dataset.
type Dependencies struct {
	Key        field.Key
	Fields     []field.Key // raw fields read during evaluation, first-seen order
	Parameters []string    // field parameters requested, first-seen order
}

// Analyzer probes registered fields to discover their dependencies.
type Analyzer struct {
	reg         *registry.Registry
	desc        dataset.Descriptor
	logger      *slog.Logger
	side        int
	particles   int
	concurrency int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithDescriptor sets the dataset the probes consult.
func WithDescriptor(desc dataset.Descriptor) Option {
	return func(a *Analyzer) { a.desc = desc }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithSide sets the probe grid side length.
func WithSide(nd int) Option { return func(a *Analyzer) { a.side = nd } }

// WithParticles sets the synthetic particle count.
func WithParticles(n int) Option { return func(a *Analyzer) { a.particles = n } }

// WithConcurrency bounds parallel probing.
func WithConcurrency(n int) Option { return func(a *Analyzer) { a.concurrency = n } }

// New creates an analyzer over the given registry.
func New(reg *registry.Registry, opts ...Option) *Analyzer {
	a := &Analyzer{
		reg:         reg,
		side:        probe.DefaultSide,
		particles:   probe.DefaultParticles,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	return a
}

func (a *Analyzer) newProbe() *probe.Probe {
	opts := []probe.Option{
		probe.WithSide(a.side),
		probe.WithParticles(a.particles),
		probe.WithLogger(a.logger),
	}
	if a.desc != nil {
		opts = append(opts, probe.WithDescriptor(a.desc))
	}
	return probe.New(a.reg, opts...)
}

// FieldDependencies probes a single field.
func (a *Analyzer) FieldDependencies(key field.Key) (*Dependencies, error) {
	spec, err := a.reg.Lookup(key)
	if err != nil {
		return nil, err
	}

	rec := a.newProbe()
	fields, err := spec.Dependencies(rec)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", key, err)
	}
	return &Dependencies{
		Key:        key,
		Fields:     fields,
		Parameters: rec.RequestedParameters(),
	}, nil
}

// AnalyzeAll probes every registered field. Each field gets its own probe so
// request logs stay independent; probes run concurrently up to the configured
// bound. Fields whose probes fail are reported in the errors map rather than
// aborting the whole analysis.
func (a *Analyzer) AnalyzeAll(ctx context.Context) (map[field.Key]*Dependencies, map[field.Key]error) {
	keys := dedupe(a.reg.Keys())
	a.logger.Debug("analyzing registry", "fields", len(keys))

	var mu sync.Mutex
	results := make(map[field.Key]*Dependencies, len(keys))
	failures := make(map[field.Key]error)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for _, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			deps, err := a.FieldDependencies(key)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.logger.Debug("field probe failed", "field", key.String(), "error", err)
				failures[key] = err
				return nil
			}
			results[key] = deps
			return nil
		})
	}
	// Goroutines only return the context error, surfaced via failures below.
	if err := g.Wait(); err != nil {
		for _, key := range keys {
			if _, ok := results[key]; !ok {
				if _, ok := failures[key]; !ok {
					failures[key] = err
				}
			}
		}
	}
	return results, failures
}

// BuildGraph assembles the probed dependencies into a DAG. Raw fields appear
// as nodes without specs. Returns an error if the result contains a cycle.
func (a *Analyzer) BuildGraph(deps map[field.Key]*Dependencies) (*dag.Graph, error) {
	g := dag.NewGraph()

	keys := make([]field.Key, 0, len(deps))
	for key := range deps {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, key := range keys {
		spec, err := a.reg.Lookup(key)
		if err != nil {
			return nil, err
		}
		g.AddNode(key, spec)
	}
	for _, key := range keys {
		for _, dep := range deps[key].Fields {
			if _, ok := g.GetNode(dep); !ok {
				g.AddNode(dep, nil)
			}
			if dep == key {
				continue
			}
			if err := g.AddEdge(dep, key); err != nil {
				return nil, err
			}
		}
	}

	if hasCycle, path := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("field dependency cycle: %v", path)
	}
	return g, nil
}

// Analyze probes the whole registry and returns the dependency graph plus
// the per-field results.
func (a *Analyzer) Analyze(ctx context.Context) (*dag.Graph, map[field.Key]*Dependencies, map[field.Key]error, error) {
	results, failures := a.AnalyzeAll(ctx)
	graph, err := a.BuildGraph(results)
	if err != nil {
		return nil, nil, nil, err
	}
	return graph, results, failures, nil
}

func dedupe(keys []field.Key) []field.Key {
	seen := make(map[field.Key]struct{}, len(keys))
	out := make([]field.Key, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
