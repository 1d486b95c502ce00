package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"genelab/internal/model"
	"genelab/internal/stats"
	"genelab/pkg/genelab"
)

type cliEnv struct {
	runsDir    string
	exportsDir string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	base := t.TempDir()
	return cliEnv{
		runsDir:    filepath.Join(base, "runs"),
		exportsDir: filepath.Join(base, "exports"),
	}
}

func (e cliEnv) exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	full := append([]string{
		"--store", "memory",
		"--runs-dir", e.runsDir,
		"--exports-dir", e.exportsDir,
		"--log-level", "error",
	}, args...)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), full, &stdout, &stderr)
	return stdout.String(), err
}

func (e cliEnv) mustExec(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.exec(t, args...)
	if err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out
}

func (e cliEnv) runSmall(t *testing.T, id string, extra ...string) genelab.RunSummary {
	t.Helper()
	args := append([]string{
		"--json", "run",
		"--id", id,
		"--seed", "3",
		"--genome-length", "8",
		"--population", "6",
		"--generations", "4",
		"--children", "4",
		"--reseed",
	}, extra...)
	out := e.mustExec(t, args...)

	var summary genelab.RunSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode run summary: %v\n%s", err, out)
	}
	return summary
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestRunAndInspectCommands(t *testing.T) {
	env := newCLIEnv(t)

	summary := env.runSmall(t, "cli-run")
	if summary.RunID != "cli-run" || len(summary.BestByGeneration) != 5 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	out := env.mustExec(t, "runs")
	if !strings.Contains(out, "RUN ID") || !strings.Contains(out, "cli-run") {
		t.Fatalf("expected run in table:\n%s", out)
	}

	out = env.mustExec(t, "--json", "fitness", "--latest")
	var history []float64
	if err := json.Unmarshal([]byte(out), &history); err != nil {
		t.Fatalf("decode fitness: %v\n%s", err, out)
	}
	if len(history) != 5 || history[4] != summary.FinalBestFitness {
		t.Fatalf("unexpected history: %+v", history)
	}

	out = env.mustExec(t, "diagnostics", "--run-id", "cli-run", "--limit", "2")
	if !strings.Contains(out, "DIVERSITY") || len(nonEmptyLines(out)) != 3 {
		t.Fatalf("expected header and two rows:\n%s", out)
	}

	out = env.mustExec(t, "--json", "top", "--run-id", "cli-run", "--limit", "1")
	var top []model.GenomeRecord
	if err := json.Unmarshal([]byte(out), &top); err != nil {
		t.Fatalf("decode top: %v\n%s", err, out)
	}
	if len(top) != 1 || top[0].Bits != summary.BestGenome {
		t.Fatalf("unexpected top genomes: %+v", top)
	}

	out = env.mustExec(t, "export", "--latest")
	if !strings.Contains(out, "exported run_id=cli-run") {
		t.Fatalf("unexpected export output: %s", out)
	}
	if _, err := os.Stat(filepath.Join(env.exportsDir, "cli-run", "top_genomes.json")); err != nil {
		t.Fatalf("expected exported top genomes: %v", err)
	}
}

func TestRunCommandReadsConfigFile(t *testing.T) {
	env := newCLIEnv(t)
	path := filepath.Join(t.TempDir(), "run.yaml")
	content := "seed: 5\ngenome_length: 12\npopulation_size: 6\ngenerations: 2\nfitness:\n  name: trap\n  block_size: 4\nreseed_on_collapse: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	summary := env.runSmall(t, "from-file", "--config", path, "--genome-length", "12")
	if len(summary.BestGenome) != 12 {
		t.Fatalf("expected 12-bit genome, got %q", summary.BestGenome)
	}

	cfg, ok, err := stats.ReadRunConfig(env.runsDir, "from-file")
	if err != nil || !ok {
		t.Fatalf("read config: ok=%t err=%v", ok, err)
	}
	if cfg.Fitness.Name != "trap" || cfg.Fitness.BlockSize != 4 {
		t.Fatalf("expected trap landscape from file, got %+v", cfg.Fitness)
	}
	if cfg.Generations != 4 || cfg.Seed != 3 {
		t.Fatalf("expected flags to override the file, got %+v", cfg)
	}
}

func TestBlocksAndCompareCommands(t *testing.T) {
	env := newCLIEnv(t)
	env.runSmall(t, "a")
	env.runSmall(t, "b")

	out := env.mustExec(t, "--json", "blocks", "--run-id", "a", "--width", "4", "--rounds", "2", "--pool", "5")
	var records []model.BuildingBlockRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode blocks: %v\n%s", err, out)
	}
	if len(records) != 2 || records[0].Samples != 2 {
		t.Fatalf("unexpected blocks: %+v", records)
	}

	out = env.mustExec(t, "--json", "compare", "a", "b")
	var points []stats.SeriesPoint
	if err := json.Unmarshal([]byte(out), &points); err != nil {
		t.Fatalf("decode compare: %v\n%s", err, out)
	}
	if len(points) != 5 || points[0].Runs != 2 {
		t.Fatalf("unexpected comparison: %+v", points)
	}

	if _, err := env.exec(t, "compare"); err == nil {
		t.Fatal("expected error without run ids")
	}
}

func TestResetCommand(t *testing.T) {
	env := newCLIEnv(t)
	env.runSmall(t, "doomed")

	out := env.mustExec(t, "reset")
	if !strings.Contains(out, "reset store=memory") {
		t.Fatalf("unexpected reset output: %s", out)
	}
	if _, err := env.exec(t, "fitness", "--latest"); err == nil {
		t.Fatal("expected no runs after reset")
	}
}

func TestCommandErrors(t *testing.T) {
	env := newCLIEnv(t)

	cases := [][]string{
		{"bogus"},
		{"run", "--fitness", "nope"},
		{"run", "--id", "../.."},
		{"run", "--population", "0", "--genome-length", "-1"},
		{"fitness"},
		{"top", "--run-id", "x", "--latest"},
		{"--log-level", "loud", "runs"},
		{"--store", "cassandra", "runs"},
	}
	for _, args := range cases {
		if _, err := env.exec(t, args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}
