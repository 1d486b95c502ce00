package genelab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"genelab/internal/blocks"
	"genelab/internal/config"
	"genelab/internal/evo"
	"genelab/internal/fitness"
	"genelab/internal/genome"
	"genelab/internal/model"
	"genelab/internal/stats"
	"genelab/internal/storage"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "genelab.db"
	defaultBlockWidth = 4

	// Fixed width keeps timestamps ordered as strings.
	createdAtLayout = "2006-01-02T15:04:05.000000000Z"
)

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
	Logger     *slog.Logger
}

type Client struct {
	store  storage.Store
	logger *slog.Logger

	initOnce sync.Once
	initErr  error

	runsDir    string
	exportsDir string
}

// RunRequest is a run configuration; zero fields take config.Default values.
type RunRequest = config.Run

type RunSummary struct {
	RunID            string    `json:"run_id"`
	ArtifactsDir     string    `json:"artifacts_dir"`
	BestByGeneration []float64 `json:"best_by_generation"`
	FinalBestFitness float64   `json:"final_best_fitness"`
	BestGenome       string    `json:"best_genome"`
	Evaluations      int64     `json:"evaluations"`
	GoalReached      bool      `json:"goal_reached"`
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string  `json:"run_id"`
	CreatedAtUTC     string  `json:"created_at_utc"`
	Fitness          string  `json:"fitness"`
	GenomeLength     int     `json:"genome_length"`
	Population       int     `json:"population_size"`
	Generations      int     `json:"generations"`
	Seed             int64   `json:"seed"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	GoalReached      bool    `json:"goal_reached"`
}

// RunRef selects a run by id or the most recent one.
type RunRef struct {
	RunID  string
	Latest bool
}

type ExportRequest struct {
	RunRef
	OutDir string
}

type ExportSummary struct {
	RunID     string `json:"run_id"`
	Directory string `json:"directory"`
}

type FitnessHistoryRequest struct {
	RunRef
	Limit int
}

type DiagnosticsRequest struct {
	RunRef
	Limit int
}

type TopGenomesRequest struct {
	RunRef
	Limit int
}

type BlocksRequest struct {
	RunRef
	Width    int
	Stride   int
	PoolSize int
	Rounds   int
	Workers  int
	Seed     int64
	Limit    int
}

type CompareRequest struct {
	RunIDs []string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		logger:     logger,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	cfg := req.Normalize()
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, err
	}
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	fn, err := fitness.Resolve(cfg.Fitness)
	if err != nil {
		return RunSummary{}, err
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	monitor, err := evo.NewMonitor(evo.MonitorConfig{
		RunID:            cfg.RunID,
		GenomeLength:     cfg.GenomeLength,
		PopulationSize:   cfg.PopulationSize,
		Generations:      cfg.Generations,
		FitnessGoal:      cfg.FitnessGoal,
		Seed:             cfg.Seed,
		Fitness:          fn,
		Generation:       cfg.Generation(),
		ReseedOnCollapse: cfg.ReseedOnCollapse,
		Logger:           c.logger,
	})
	if err != nil {
		return RunSummary{}, err
	}
	result, err := monitor.Run(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("run %s: %w", cfg.RunID, err)
	}

	top := topGenomeRecords(result.Final.Top(cfg.TopCount))
	diagnostics := diagnosticRecords(result.Diagnostics)
	best := result.Best
	now := time.Now().UTC()

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return RunSummary{}, err
	}
	record := model.RunRecord{
		VersionedRecord:      storage.CurrentVersion(),
		ID:                   cfg.RunID,
		CreatedAtUTC:         now.Format(createdAtLayout),
		Fitness:              cfg.Fitness.String(),
		Seed:                 cfg.Seed,
		GenomeLength:         cfg.GenomeLength,
		PopulationSize:       cfg.PopulationSize,
		Generations:          cfg.Generations,
		CompletedGenerations: len(result.BestByGeneration) - 1,
		Strategy:             cfg.Strategy,
		Recombination:        cfg.Recombination,
		BestFitness:          best.Fitness(),
		BestGenome:           best.String(),
		Evaluations:          result.Evaluations,
		GoalReached:          result.GoalReached,
		Config:               configJSON,
	}
	if err := c.persist(ctx, record, result.BestByGeneration, diagnostics, top); err != nil {
		return RunSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config:                cfg,
		BestByGeneration:      result.BestByGeneration,
		GenerationDiagnostics: diagnostics,
		FinalBestFitness:      best.Fitness(),
		TopGenomes:            top,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:            cfg.RunID,
		Fitness:          cfg.Fitness.String(),
		GenomeLength:     cfg.GenomeLength,
		PopulationSize:   cfg.PopulationSize,
		Generations:      cfg.Generations,
		Seed:             cfg.Seed,
		Workers:          cfg.Workers,
		FinalBestFitness: best.Fitness(),
		GoalReached:      result.GoalReached,
		CreatedAtUTC:     record.CreatedAtUTC,
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            cfg.RunID,
		ArtifactsDir:     filepath.Clean(runDir),
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		FinalBestFitness: best.Fitness(),
		BestGenome:       best.String(),
		Evaluations:      result.Evaluations,
		GoalReached:      result.GoalReached,
	}, nil
}

func (c *Client) persist(ctx context.Context, run model.RunRecord, history []float64, diagnostics []model.GenerationDiagnostics, top []model.GenomeRecord) error {
	if err := c.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if err := c.store.SaveFitnessHistory(ctx, run.ID, history); err != nil {
		return fmt.Errorf("save fitness history: %w", err)
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, run.ID, diagnostics); err != nil {
		return fmt.Errorf("save diagnostics: %w", err)
	}
	if err := c.store.SaveTopGenomes(ctx, run.ID, top); err != nil {
		return fmt.Errorf("save top genomes: %w", err)
	}
	return nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:            e.RunID,
			CreatedAtUTC:     e.CreatedAtUTC,
			Fitness:          e.Fitness,
			GenomeLength:     e.GenomeLength,
			Population:       e.PopulationSize,
			Generations:      e.Generations,
			Seed:             e.Seed,
			FinalBestFitness: e.FinalBestFitness,
			GoalReached:      e.GoalReached,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunRef, "export")
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// FitnessHistory reads from the store and falls back to the run's artifacts,
// so a memory-backed CLI can still inspect earlier runs.
func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunRef, "fitness history")
	if err != nil {
		return nil, err
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		history, ok, err = stats.ReadFitnessSeries(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunRef, "diagnostics")
	if err != nil {
		return nil, err
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		diagnostics, ok, err = stats.ReadGenerationDiagnostics(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

func (c *Client) TopGenomes(ctx context.Context, req TopGenomesRequest) ([]model.GenomeRecord, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunRef, "top genomes")
	if err != nil {
		return nil, err
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	top, ok, err := c.store.GetTopGenomes(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		top, ok, err = stats.ReadTopGenomes(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("top genomes not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(top) > req.Limit {
		top = top[:req.Limit]
	}
	out := make([]model.GenomeRecord, len(top))
	copy(out, top)
	return out, nil
}

// AnalyzeBlocks measures contiguous building blocks of a run's best genome
// and stores the ranking with the run.
func (c *Client) AnalyzeBlocks(ctx context.Context, req BlocksRequest) ([]model.BuildingBlockRecord, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunRef, "block analysis")
	if err != nil {
		return nil, err
	}
	cfg, ok, err := stats.ReadRunConfig(c.runsDir, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("run config not found for run id: %s", runID)
	}
	fn, err := fitness.Resolve(cfg.Fitness)
	if err != nil {
		return nil, err
	}
	top, err := c.TopGenomes(ctx, TopGenomesRequest{RunRef: RunRef{RunID: runID}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(top) == 0 {
		return nil, fmt.Errorf("run %s has no genomes to analyze", runID)
	}
	source, err := genomeFromBits(top[0].Bits, fn)
	if err != nil {
		return nil, err
	}

	width := req.Width
	if width <= 0 {
		width = min(defaultBlockWidth, source.Len())
	}
	masks, err := blocks.ContiguousMasks(source.Len(), width, req.Stride)
	if err != nil {
		return nil, err
	}
	analyzer := blocks.Analyzer{PoolSize: req.PoolSize, Rounds: req.Rounds, Workers: req.Workers}
	results, err := analyzer.Analyze(ctx, rand.New(rand.NewSource(req.Seed)), source, masks)
	if err != nil {
		return nil, err
	}

	records := make([]model.BuildingBlockRecord, 0, len(results))
	for i, r := range results {
		records = append(records, model.BuildingBlockRecord{
			VersionedRecord: storage.CurrentVersion(),
			Rank:            i + 1,
			Pattern:         r.Pattern(),
			MeanGain:        r.Mean,
			StdDev:          r.StdDev,
			Samples:         r.Samples,
		})
	}
	if err := c.store.SaveBuildingBlocks(ctx, runID, records); err != nil {
		return nil, err
	}
	if err := stats.WriteBuildingBlocks(c.runsDir, runID, records); err != nil {
		return nil, err
	}
	c.logger.Info("building blocks analyzed", "run_id", runID, "blocks", len(records), "width", width)

	if req.Limit > 0 && len(records) > req.Limit {
		records = records[:req.Limit]
	}
	return records, nil
}

// Compare aligns the best-fitness histories of several runs by generation.
func (c *Client) Compare(ctx context.Context, req CompareRequest) ([]stats.SeriesPoint, error) {
	if len(req.RunIDs) == 0 {
		return nil, errors.New("compare requires at least one run id")
	}
	lists := make([][]float64, 0, len(req.RunIDs))
	for _, runID := range req.RunIDs {
		history, err := c.FitnessHistory(ctx, FitnessHistoryRequest{RunRef: RunRef{RunID: runID}})
		if err != nil {
			return nil, err
		}
		lists = append(lists, history)
	}
	return stats.AverageSeries(lists), nil
}

// Reset drops every stored run and its artifacts.
func (c *Client) Reset(ctx context.Context) error {
	if err := c.Init(ctx); err != nil {
		return err
	}
	if err := c.store.Reset(ctx); err != nil {
		return err
	}
	return stats.ResetRunIndex(c.runsDir)
}

func (c *Client) resolveRunID(ref RunRef, what string) (string, error) {
	if ref.RunID != "" && ref.Latest {
		return "", errors.New("use either run id or latest")
	}
	if !ref.Latest {
		if ref.RunID == "" {
			return "", fmt.Errorf("%s requires run id or latest", what)
		}
		return ref.RunID, nil
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func topGenomeRecords(genomes []*genome.Genome) []model.GenomeRecord {
	out := make([]model.GenomeRecord, 0, len(genomes))
	for i, g := range genomes {
		out = append(out, model.GenomeRecord{
			VersionedRecord: storage.CurrentVersion(),
			Rank:            i + 1,
			Bits:            g.String(),
			Fitness:         g.Fitness(),
		})
	}
	return out
}

func diagnosticRecords(in []evo.GenerationDiagnostics) []model.GenerationDiagnostics {
	out := make([]model.GenerationDiagnostics, 0, len(in))
	for _, d := range in {
		out = append(out, model.GenerationDiagnostics{
			Generation:      d.Generation,
			BestFitness:     d.BestFitness,
			MeanFitness:     d.MeanFitness,
			MinFitness:      d.MinFitness,
			StdDevFitness:   d.StdDevFitness,
			Diversity:       d.Diversity,
			UniqueGenotypes: d.UniqueGenotypes,
			Evaluations:     d.Evaluations,
			Reseeded:        d.Reseeded,
		})
	}
	return out
}

func genomeFromBits(bits string, fn genome.FitnessFunc) (*genome.Genome, error) {
	values := make([]uint8, len(bits))
	for i, r := range bits {
		switch r {
		case '0':
		case '1':
			values[i] = 1
		default:
			return nil, fmt.Errorf("%w: genome bits %q", genome.ErrInvalidArgument, bits)
		}
	}
	return genome.New(values, fn)
}
