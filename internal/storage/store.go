package storage

import (
	"context"

	"genelab/internal/model"
)

// Store defines persistence for evolutionary runs and their per-run series.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
	SaveTopGenomes(ctx context.Context, runID string, top []model.GenomeRecord) error
	GetTopGenomes(ctx context.Context, runID string) ([]model.GenomeRecord, bool, error)
	SaveBuildingBlocks(ctx context.Context, runID string, blocks []model.BuildingBlockRecord) error
	GetBuildingBlocks(ctx context.Context, runID string) ([]model.BuildingBlockRecord, bool, error)
	// Reset drops every stored record.
	Reset(ctx context.Context) error
}
