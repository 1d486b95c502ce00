package fitness

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"genelab/internal/genome"
)

const (
	DefaultTrapBlockSize      = 4
	DefaultRoyalRoadBlockSize = 8
)

var (
	ErrFunctionExists  = errors.New("fitness function already registered")
	ErrUnknownFunction = errors.New("unknown fitness function")
)

// Spec names a landscape and its parameters.
type Spec struct {
	Name      string `json:"name" yaml:"name"`
	BlockSize int    `json:"block_size,omitempty" yaml:"block_size,omitempty"`
}

func (s Spec) String() string {
	if s.BlockSize > 0 {
		return fmt.Sprintf("%s(k=%d)", s.Name, s.BlockSize)
	}
	return s.Name
}

// Factory builds a fitness function from a spec.
type Factory func(spec Spec) (genome.FitnessFunc, error)

var registry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: make(map[string]Factory),
}

func init() {
	mustRegister("onemax", constant(OneMax))
	mustRegister("leading-ones", constant(LeadingOnes))
	mustRegister("hiff", constant(HIFF))
	mustRegister("trap", func(spec Spec) (genome.FitnessFunc, error) {
		return Trap(blockSizeOr(spec, DefaultTrapBlockSize)), nil
	})
	mustRegister("royal-road", func(spec Spec) (genome.FitnessFunc, error) {
		return RoyalRoad(blockSizeOr(spec, DefaultRoyalRoadBlockSize)), nil
	})
}

// Register adds a named landscape.
func Register(name string, factory Factory) error {
	name = normalizeName(name)
	if name == "" {
		return errors.New("fitness function name is required")
	}
	if factory == nil {
		return errors.New("fitness factory is required")
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, exists := registry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrFunctionExists, name)
	}
	registry.m[name] = factory
	return nil
}

// Resolve builds the fitness function described by spec.
func Resolve(spec Spec) (genome.FitnessFunc, error) {
	name := normalizeName(spec.Name)
	if spec.BlockSize < 0 {
		return nil, fmt.Errorf("block size must be >= 0, got %d", spec.BlockSize)
	}

	registry.mu.RLock()
	factory, ok := registry.m[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, spec.Name)
	}
	return factory(spec)
}

// List returns the registered names in sorted order.
func List() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.m))
	for name := range registry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

func constant(fn genome.FitnessFunc) Factory {
	return func(Spec) (genome.FitnessFunc, error) {
		return fn, nil
	}
}

func blockSizeOr(spec Spec, fallback int) int {
	if spec.BlockSize > 0 {
		return spec.BlockSize
	}
	return fallback
}

func normalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}
