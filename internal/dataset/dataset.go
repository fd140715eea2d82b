// Package dataset defines the descriptor through which the field engine sees
// a dataset: a raw-field read callback, the on-disk field list, physically
// sane scalar defaults, and a side channel for disambiguating bare field
// names into typed keys. Real file formats live behind implementations of
// Descriptor; this package only ships the synthetic one used for probing.
package dataset

import (
	"math/rand"
	"sort"
	"sync"
)

// Physical holds the scalar and geometric defaults a dataset reports.
type Physical struct {
	HubbleConstant         float64
	OmegaMatter            float64
	OmegaLambda            float64
	CurrentRedshift        float64
	CosmologicalSimulation bool

	DomainLeftEdge  [3]float64
	DomainRightEdge [3]float64
	Dimensionality  int
	Periodicity     [3]bool
}

// Descriptor supplies raw data and metadata to field computations.
type Descriptor interface {
	// Name identifies the dataset, e.g. for cache keys.
	Name() string

	// OnDiskFields lists the primitive field names stored in the dataset.
	OnDiskFields() []string

	// ReadRaw reads (or synthesizes) n values of a primitive field.
	ReadRaw(name string, n int) ([]float64, error)

	// Physical returns the dataset's scalar defaults.
	Physical() Physical

	// ResolveAlias disambiguates a bare field name into a (type, name) pair.
	// ok is false when the dataset has no opinion about the name.
	ResolveAlias(name string) (ftype, fname string, ok bool)
}

// Defaults returns the physical defaults used when no real dataset is
// attached: a unit, non-cosmological, periodic 3-D box with h = 0.7.
func Defaults() Physical {
	return Physical{
		HubbleConstant:  0.7,
		DomainLeftEdge:  [3]float64{0, 0, 0},
		DomainRightEdge: [3]float64{1, 1, 1},
		Dimensionality:  3,
		Periodicity:     [3]bool{true, true, true},
	}
}

// Synthetic is a fully in-memory Descriptor. ReadRaw answers every request
// with a placeholder of ones plus a small jitter, so probing never blocks on
// missing data.
type Synthetic struct {
	name     string
	physical Physical
	aliases  map[string][2]string

	mu     sync.Mutex
	ondisk map[string]struct{}
	rng    *rand.Rand
}

// NewSynthetic creates a synthetic descriptor with default physics.
func NewSynthetic(name string) *Synthetic {
	return &Synthetic{
		name:     name,
		physical: Defaults(),
		aliases:  make(map[string][2]string),
		ondisk:   make(map[string]struct{}),
		rng:      rand.New(rand.NewSource(0x5eed)),
	}
}

// WithPhysical overrides the physical defaults.
func (s *Synthetic) WithPhysical(p Physical) *Synthetic {
	s.physical = p
	return s
}

// AddOnDisk declares primitive fields as present on disk.
func (s *Synthetic) AddOnDisk(names ...string) *Synthetic {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range names {
		s.ondisk[n] = struct{}{}
	}
	return s
}

// AddAlias maps a bare name to a typed key.
func (s *Synthetic) AddAlias(bare, ftype, fname string) *Synthetic {
	s.aliases[bare] = [2]string{ftype, fname}
	return s
}

func (s *Synthetic) Name() string { return s.name }

func (s *Synthetic) OnDiskFields() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ondisk))
	for n := range s.ondisk {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (s *Synthetic) ReadRaw(_ string, n int) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.0 + 1e-4*s.rng.Float64()
	}
	return out, nil
}

func (s *Synthetic) Physical() Physical { return s.physical }

func (s *Synthetic) ResolveAlias(name string) (string, string, bool) {
	if pair, ok := s.aliases[name]; ok {
		return pair[0], pair[1], true
	}
	return "", "", false
}
