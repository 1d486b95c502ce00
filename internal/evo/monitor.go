package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"

	"genelab/internal/genome"
)

// GenerationDiagnostics summarizes one generation of a monitored run.
type GenerationDiagnostics struct {
	Generation      int     `json:"generation"`
	BestFitness     float64 `json:"best_fitness"`
	MeanFitness     float64 `json:"mean_fitness"`
	MinFitness      float64 `json:"min_fitness"`
	StdDevFitness   float64 `json:"stddev_fitness"`
	Diversity       float64 `json:"diversity"`
	UniqueGenotypes int     `json:"unique_genotypes"`
	Evaluations     int64   `json:"evaluations"`
	Reseeded        bool    `json:"reseeded,omitempty"`
}

type RunResult struct {
	// BestByGeneration starts with the initial population at index 0.
	BestByGeneration []float64
	Diagnostics      []GenerationDiagnostics
	Final            *Population
	Best             *genome.Genome
	Evaluations      int64
	GoalReached      bool
}

type MonitorConfig struct {
	RunID          string
	GenomeLength   int
	PopulationSize int
	Generations    int
	// FitnessGoal stops the run early once reached; disabled when <= 0.
	FitnessGoal float64
	Seed        int64
	Fitness     genome.FitnessFunc
	Generation  GenerationConfig
	// ReseedOnCollapse rebuilds the population around its champion when
	// recombination reports ErrSearchExhausted instead of failing the run.
	ReseedOnCollapse bool
	Logger           *slog.Logger
}

// Monitor drives the generational loop of a single run.
type Monitor struct {
	cfg         MonitorConfig
	rng         *rand.Rand
	fitness     genome.FitnessFunc
	evaluations atomic.Int64
}

func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if cfg.Fitness == nil {
		return nil, fmt.Errorf("fitness function is required")
	}
	if cfg.GenomeLength <= 0 {
		return nil, fmt.Errorf("genome length must be > 0")
	}
	if cfg.PopulationSize <= 0 {
		cfg.PopulationSize = DefaultPopulationSize
	}
	if cfg.Generations < 0 {
		return nil, fmt.Errorf("generations must be >= 0")
	}
	if cfg.Generation.Recombination != "" {
		if _, err := ParseRecombinationMode(string(cfg.Generation.Recombination)); err != nil {
			return nil, err
		}
	}
	if cfg.Generation.Strategy != "" {
		if _, err := genome.ParseStrategy(string(cfg.Generation.Strategy)); err != nil {
			return nil, err
		}
	}
	cfg.Generation = cfg.Generation.WithDefaults()
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RunID == "" {
		cfg.RunID = "default"
	}

	m := &Monitor{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
	m.fitness = func(bits []uint8) float64 {
		m.evaluations.Add(1)
		fitnessEvaluations.Inc()
		return cfg.Fitness(bits)
	}
	return m, nil
}

// Evaluations is the number of fitness function calls so far.
func (m *Monitor) Evaluations() int64 {
	return m.evaluations.Load()
}

func (m *Monitor) Run(ctx context.Context) (RunResult, error) {
	logger := m.cfg.Logger.With("run_id", m.cfg.RunID)
	logger.Info("run started",
		"genome_length", m.cfg.GenomeLength,
		"population", m.cfg.PopulationSize,
		"generations", m.cfg.Generations,
		"strategy", m.cfg.Generation.Strategy,
		"recombination", m.cfg.Generation.Recombination,
	)

	population, err := Initial(ctx, m.rng, m.cfg.GenomeLength, m.fitness, m.cfg.PopulationSize, m.cfg.Generation)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{
		BestByGeneration: make([]float64, 0, m.cfg.Generations+1),
		Diagnostics:      make([]GenerationDiagnostics, 0, m.cfg.Generations+1),
	}
	m.record(&result, population, 0, false, logger)

	for gen := 1; gen <= m.cfg.Generations; gen++ {
		if m.goalReached(population) {
			break
		}
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		next, err := population.NextGeneration(ctx, m.rng, m.cfg.Generation)
		reseeded := false
		if err != nil {
			if !errors.Is(err, ErrSearchExhausted) || !m.cfg.ReseedOnCollapse {
				return RunResult{}, fmt.Errorf("generation %d: %w", gen, err)
			}
			logger.Warn("population collapsed, reseeding", "generation", gen)
			next, err = m.reseed(ctx, population)
			if err != nil {
				return RunResult{}, fmt.Errorf("reseed generation %d: %w", gen, err)
			}
			reseeded = true
		}
		population = next
		m.record(&result, population, gen, reseeded, logger)
	}

	result.Final = population
	result.Best = population.BestGenome()
	result.Evaluations = m.Evaluations()
	result.GoalReached = m.goalReached(population)
	logger.Info("run finished",
		"generations", len(result.Diagnostics)-1,
		"best_fitness", result.Best.Fitness(),
		"evaluations", result.Evaluations,
		"goal_reached", result.GoalReached,
	)
	return result, nil
}

func (m *Monitor) goalReached(population *Population) bool {
	return m.cfg.FitnessGoal > 0 && population.BestGenome().Fitness() >= m.cfg.FitnessGoal
}

// reseed keeps the champion and refills the population with fresh locally
// optimized genomes.
func (m *Monitor) reseed(ctx context.Context, population *Population) (*Population, error) {
	champion := population.BestGenome()
	if population.Size() == 1 {
		return NewPopulation([]*genome.Genome{champion}), nil
	}
	fresh, err := Initial(ctx, m.rng, m.cfg.GenomeLength, m.fitness, population.Size()-1, m.cfg.Generation)
	if err != nil {
		return nil, err
	}
	return NewPopulation(append([]*genome.Genome{champion}, fresh.genomes...)), nil
}

func (m *Monitor) record(result *RunResult, population *Population, gen int, reseeded bool, logger *slog.Logger) {
	diag := GenerationDiagnostics{
		Generation:      gen,
		BestFitness:     population.BestGenome().Fitness(),
		MeanFitness:     population.AverageFitness(),
		MinFitness:      population.MinFitness(),
		StdDevFitness:   population.FitnessStdDev(),
		Diversity:       population.Diversity(),
		UniqueGenotypes: population.UniqueCount(),
		Evaluations:     m.Evaluations(),
		Reseeded:        reseeded,
	}
	result.BestByGeneration = append(result.BestByGeneration, diag.BestFitness)
	result.Diagnostics = append(result.Diagnostics, diag)
	bestFitness.Set(diag.BestFitness)

	logger.Debug("generation",
		"generation", gen,
		"best", diag.BestFitness,
		"mean", diag.MeanFitness,
		"diversity", diag.Diversity,
		"unique", diag.UniqueGenotypes,
	)
}
