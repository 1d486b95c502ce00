//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"genelab/internal/model"
)

func newInitializedSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store := NewSQLiteStore(filepath.Join(t.TempDir(), "genelab.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestSQLiteStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newInitializedSQLiteStore(t)

	run := model.RunRecord{
		VersionedRecord: CurrentVersion(),
		ID:              "r1",
		CreatedAtUTC:    "2025-03-01T10:00:00Z",
		Fitness:         "onemax",
		GenomeLength:    8,
		BestFitness:     0.875,
		BestGenome:      "11111110",
		Config:          []byte(`{"seed":1}`),
	}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	run.BestFitness = 1
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("upsert run: %v", err)
	}

	loaded, ok, err := store.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected run r1")
	}
	if loaded.BestFitness != 1 || loaded.BestGenome != run.BestGenome || string(loaded.Config) != `{"seed":1}` {
		t.Fatalf("unexpected run loaded: %+v", loaded)
	}

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing run, ok=%t err=%v", ok, err)
	}
}

func TestSQLiteStoreListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newInitializedSQLiteStore(t)

	for _, run := range []model.RunRecord{
		{VersionedRecord: CurrentVersion(), ID: "old", CreatedAtUTC: "2025-01-01T00:00:00Z"},
		{VersionedRecord: CurrentVersion(), ID: "new", CreatedAtUTC: "2025-06-01T00:00:00Z"},
	} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "old" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}

func TestSQLiteStoreSeriesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newInitializedSQLiteStore(t)

	if err := store.SaveFitnessHistory(ctx, "r1", []float64{0.5, 0.75, 1}); err != nil {
		t.Fatalf("save history: %v", err)
	}
	history, ok, err := store.GetFitnessHistory(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("get history: ok=%t err=%v", ok, err)
	}
	if len(history) != 3 || history[2] != 1 {
		t.Fatalf("unexpected history: %+v", history)
	}

	diagnostics := []model.GenerationDiagnostics{{Generation: 0, BestFitness: 0.5, UniqueGenotypes: 4}}
	if err := store.SaveGenerationDiagnostics(ctx, "r1", diagnostics); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	loadedDiagnostics, ok, err := store.GetGenerationDiagnostics(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("get diagnostics: ok=%t err=%v", ok, err)
	}
	if len(loadedDiagnostics) != 1 || loadedDiagnostics[0].UniqueGenotypes != 4 {
		t.Fatalf("unexpected diagnostics: %+v", loadedDiagnostics)
	}

	top := []model.GenomeRecord{{VersionedRecord: CurrentVersion(), Rank: 1, Bits: "1111", Fitness: 1}}
	if err := store.SaveTopGenomes(ctx, "r1", top); err != nil {
		t.Fatalf("save top genomes: %v", err)
	}
	loadedTop, ok, err := store.GetTopGenomes(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("get top genomes: ok=%t err=%v", ok, err)
	}
	if len(loadedTop) != 1 || loadedTop[0].Bits != "1111" {
		t.Fatalf("unexpected top genomes: %+v", loadedTop)
	}

	blocks := []model.BuildingBlockRecord{{VersionedRecord: CurrentVersion(), Rank: 1, Pattern: "--11", MeanGain: 0.125, Samples: 3}}
	if err := store.SaveBuildingBlocks(ctx, "r1", blocks); err != nil {
		t.Fatalf("save building blocks: %v", err)
	}
	loadedBlocks, ok, err := store.GetBuildingBlocks(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("get building blocks: ok=%t err=%v", ok, err)
	}
	if len(loadedBlocks) != 1 || loadedBlocks[0].Pattern != "--11" {
		t.Fatalf("unexpected building blocks: %+v", loadedBlocks)
	}

	if _, ok, err := store.GetTopGenomes(ctx, "other"); err != nil || ok {
		t.Fatalf("expected no top genomes for unknown run, ok=%t err=%v", ok, err)
	}
}

func TestSQLiteStoreReset(t *testing.T) {
	ctx := context.Background()
	store := newInitializedSQLiteStore(t)

	if err := store.SaveRun(ctx, model.RunRecord{VersionedRecord: CurrentVersion(), ID: "r1", CreatedAtUTC: "2025-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.SaveFitnessHistory(ctx, "r1", []float64{1}); err != nil {
		t.Fatalf("save history: %v", err)
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected empty store, got %+v", runs)
	}
	if _, ok, _ := store.GetFitnessHistory(ctx, "r1"); ok {
		t.Fatal("expected history to be dropped")
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "genelab.db"))
	if _, _, err := store.GetRun(context.Background(), "r1"); err == nil {
		t.Fatal("expected error before init")
	}
}
