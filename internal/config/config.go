package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"genelab/internal/evo"
	"genelab/internal/fitness"
	"genelab/internal/genome"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	DefaultGenomeLength = 64
	DefaultGenerations  = 50
	DefaultTopCount     = 10
)

// Run describes one evolutionary run. It is what `genelab run --config`
// reads and what gets persisted next to the run's artifacts.
type Run struct {
	RunID            string              `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Seed             int64               `json:"seed" yaml:"seed"`
	GenomeLength     int                 `json:"genome_length" yaml:"genome_length"`
	PopulationSize   int                 `json:"population_size" yaml:"population_size"`
	Generations      int                 `json:"generations" yaml:"generations"`
	Fitness          fitness.Spec        `json:"fitness" yaml:"fitness"`
	FitnessGoal      float64             `json:"fitness_goal,omitempty" yaml:"fitness_goal,omitempty"`
	ChildrenCount    int                 `json:"children_count" yaml:"children_count"`
	Strategy         string              `json:"strategy" yaml:"strategy"`
	Recombination    string              `json:"recombination" yaml:"recombination"`
	FreshGenomes     int                 `json:"fresh_genomes,omitempty" yaml:"fresh_genomes,omitempty"`
	Workers          int                 `json:"workers" yaml:"workers"`
	Climb            genome.ClimbOptions `json:"climb" yaml:"climb"`
	ReseedOnCollapse bool                `json:"reseed_on_collapse,omitempty" yaml:"reseed_on_collapse,omitempty"`
	TopCount         int                 `json:"top_count" yaml:"top_count"`
}

func Default() Run {
	return Run{
		Seed:           1,
		GenomeLength:   DefaultGenomeLength,
		PopulationSize: evo.DefaultPopulationSize,
		Generations:    DefaultGenerations,
		Fitness:        fitness.Spec{Name: "onemax"},
		ChildrenCount:  evo.DefaultChildrenCount,
		Strategy:       string(genome.StrategyMix),
		Recombination:  string(evo.RecombinationFiltered),
		Workers:        1,
		Climb:          genome.DefaultClimbOptions(),
		TopCount:       DefaultTopCount,
	}
}

// Load reads a YAML (or JSON) run file over the defaults, applies GENELAB_*
// environment overrides and validates the result.
func Load(path string) (Run, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes YAML, falling back to JSON, into cfg.
func Parse(data []byte, cfg *Run) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func applyEnv(cfg *Run) error {
	if v := os.Getenv("GENELAB_SEED"); v != "" {
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: GENELAB_SEED=%q is not an integer", ErrInvalidConfig, v)
		}
		cfg.Seed = i
	}
	if v := os.Getenv("GENELAB_WORKERS"); v != "" {
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: GENELAB_WORKERS=%q is not an integer", ErrInvalidConfig, v)
		}
		cfg.Workers = i
	}
	if v := os.Getenv("GENELAB_FITNESS"); v != "" {
		cfg.Fitness.Name = v
	}
	return nil
}

// ValidateRunID accepts an empty id (one is generated) or a single path
// element, since run ids name directories under the runs directory.
func ValidateRunID(id string) error {
	if id == "" {
		return nil
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\:`) ||
		filepath.Base(id) != id || filepath.IsAbs(id) || strings.TrimSpace(id) != id {
		return fmt.Errorf("%w: run_id %q must be a single path element", ErrInvalidConfig, id)
	}
	return nil
}

// Normalize canonicalizes names and fills zero values with defaults.
func (c Run) Normalize() Run {
	d := Default()
	if c.GenomeLength == 0 {
		c.GenomeLength = d.GenomeLength
	}
	if c.PopulationSize == 0 {
		c.PopulationSize = d.PopulationSize
	}
	if c.ChildrenCount == 0 {
		c.ChildrenCount = d.ChildrenCount
	}
	if c.Workers == 0 {
		c.Workers = d.Workers
	}
	if c.TopCount == 0 {
		c.TopCount = d.TopCount
	}
	if strings.TrimSpace(c.Fitness.Name) == "" {
		c.Fitness.Name = d.Fitness.Name
	}
	c.Fitness.Name = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(c.Fitness.Name)), "_", "-")
	if s, err := genome.ParseStrategy(c.Strategy); err == nil {
		c.Strategy = string(s)
	}
	if m, err := evo.ParseRecombinationMode(c.Recombination); err == nil {
		c.Recombination = string(m)
	}
	c.Climb = c.Climb.WithDefaults()
	return c
}

func (c Run) Validate() error {
	if err := ValidateRunID(c.RunID); err != nil {
		return err
	}
	if c.GenomeLength < 1 {
		return fmt.Errorf("%w: genome_length must be >= 1", ErrInvalidConfig)
	}
	if c.PopulationSize < 1 {
		return fmt.Errorf("%w: population_size must be >= 1", ErrInvalidConfig)
	}
	if c.Generations < 0 {
		return fmt.Errorf("%w: generations must be >= 0", ErrInvalidConfig)
	}
	if c.ChildrenCount < 1 {
		return fmt.Errorf("%w: children_count must be >= 1", ErrInvalidConfig)
	}
	if c.FreshGenomes < 0 {
		return fmt.Errorf("%w: fresh_genomes must be >= 0", ErrInvalidConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1", ErrInvalidConfig)
	}
	if c.TopCount < 1 {
		return fmt.Errorf("%w: top_count must be >= 1", ErrInvalidConfig)
	}
	if c.FitnessGoal < 0 || c.FitnessGoal > 1 {
		return fmt.Errorf("%w: fitness_goal must be between 0 and 1", ErrInvalidConfig)
	}
	if c.Fitness.BlockSize < 0 {
		return fmt.Errorf("%w: fitness.block_size must be >= 0", ErrInvalidConfig)
	}
	if _, err := fitness.Resolve(c.Fitness); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := genome.ParseStrategy(c.Strategy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := evo.ParseRecombinationMode(c.Recombination); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Generation converts the run into the per-generation parameters.
func (c Run) Generation() evo.GenerationConfig {
	return evo.GenerationConfig{
		ChildrenCount: c.ChildrenCount,
		Strategy:      genome.Strategy(c.Strategy),
		Recombination: evo.RecombinationMode(c.Recombination),
		Climb:         c.Climb,
		FreshGenomes:  c.FreshGenomes,
		Workers:       c.Workers,
	}
}

// Marshal renders the run as YAML.
func (c Run) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
