package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"genelab/internal/model"
)

func TestDecodeRunFixture(t *testing.T) {
	data := readFixture(t, "minimal_run_v1.json")

	run, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if run.ID != "run-minimal-1" {
		t.Fatalf("unexpected run id: %s", run.ID)
	}
	if run.BestGenome != "11111111" || !run.GoalReached {
		t.Fatalf("unexpected run summary: %+v", run)
	}
	if len(run.Config) == 0 {
		t.Fatal("expected embedded config")
	}
}

func TestDecodeTopGenomesFixture(t *testing.T) {
	top, err := DecodeTopGenomes(readFixture(t, "minimal_top_genomes_v1.json"))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if len(top) != 2 || top[1].Bits != "11111110" || top[1].Fitness != 0.875 {
		t.Fatalf("unexpected top genomes: %+v", top)
	}
}

func TestDecodeBuildingBlocksFixture(t *testing.T) {
	blocks, err := DecodeBuildingBlocks(readFixture(t, "minimal_building_blocks_v1.json"))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Pattern != "1111----" || blocks[0].Samples != 10 {
		t.Fatalf("unexpected building blocks: %+v", blocks)
	}
}

func TestDecodeRunRejectsStaleVersion(t *testing.T) {
	_, err := DecodeRun(readFixture(t, "stale_run_v0.json"))
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestDecodeTopGenomesRejectsVersionMismatch(t *testing.T) {
	data, err := EncodeTopGenomes([]model.GenomeRecord{{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion + 1},
		Rank:            1,
		Bits:            "01",
	}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeTopGenomes(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestRunCodecRoundTrip(t *testing.T) {
	input := model.RunRecord{
		VersionedRecord: CurrentVersion(),
		ID:              "r1",
		CreatedAtUTC:    "2025-03-01T10:00:00Z",
		Fitness:         "trap(k=4)",
		Seed:            3,
		GenomeLength:    16,
		PopulationSize:  10,
		Generations:     20,
		Strategy:        "two-cuts",
		Recombination:   "distinct",
		BestFitness:     0.75,
		BestGenome:      "1111000011110000",
		Evaluations:     1000,
		Config:          []byte(`{"seed":3}`),
	}

	data, err := EncodeRun(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(input, output) {
		t.Fatalf("round trip mismatch:\nin=%+v\nout=%+v", input, output)
	}
}

func TestGenerationDiagnosticsCodecRoundTrip(t *testing.T) {
	input := []model.GenerationDiagnostics{
		{Generation: 0, BestFitness: 0.5, MeanFitness: 0.4, MinFitness: 0.2, UniqueGenotypes: 4, Evaluations: 10},
		{Generation: 1, BestFitness: 0.6, MeanFitness: 0.5, MinFitness: 0.3, Diversity: 0.25, Reseeded: true},
	}
	data, err := EncodeGenerationDiagnostics(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodeGenerationDiagnostics(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(input, output) {
		t.Fatalf("round trip mismatch: %+v", output)
	}
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()

	data, err := os.ReadFile(fixturePath(name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}
