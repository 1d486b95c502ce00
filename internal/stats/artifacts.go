package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"genelab/internal/config"
	"genelab/internal/model"
)

const (
	runIndexFile       = "run_index.json"
	buildingBlocksFile = "building_blocks.json"
)

// Files every run directory carries.
var runFiles = []string{
	"config.json",
	"fitness_history.json",
	"fitness_history.csv",
	"generation_diagnostics.json",
	"top_genomes.json",
}

type FitnessHistory struct {
	BestByGeneration []float64 `json:"best_by_generation"`
	FinalBestFitness float64   `json:"final_best_fitness"`
	Summary          Summary   `json:"summary"`
}

type RunArtifacts struct {
	Config                config.Run                    `json:"config"`
	BestByGeneration      []float64                     `json:"best_by_generation"`
	GenerationDiagnostics []model.GenerationDiagnostics `json:"generation_diagnostics,omitempty"`
	FinalBestFitness      float64                       `json:"final_best_fitness"`
	TopGenomes            []model.GenomeRecord          `json:"top_genomes"`
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	Fitness          string  `json:"fitness"`
	GenomeLength     int     `json:"genome_length"`
	PopulationSize   int     `json:"population_size"`
	Generations      int     `json:"generations"`
	Seed             int64   `json:"seed"`
	Workers          int     `json:"workers"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	GoalReached      bool    `json:"goal_reached"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

// runPath joins a validated run id onto baseDir, so the result is always a
// direct child of baseDir.
func runPath(baseDir, runID string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}
	if err := config.ValidateRunID(runID); err != nil {
		return "", err
	}
	return filepath.Join(baseDir, runID), nil
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	runDir, err := runPath(baseDir, artifacts.Config.RunID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	history := FitnessHistory{
		BestByGeneration: artifacts.BestByGeneration,
		FinalBestFitness: artifacts.FinalBestFitness,
		Summary:          Summarize(artifacts.BestByGeneration),
	}
	if err := writeJSON(filepath.Join(runDir, "fitness_history.json"), history); err != nil {
		return "", err
	}
	if err := WriteFitnessSeries(runDir, artifacts.BestByGeneration); err != nil {
		return "", err
	}
	diagnostics := artifacts.GenerationDiagnostics
	if diagnostics == nil {
		diagnostics = []model.GenerationDiagnostics{}
	}
	if err := writeJSON(filepath.Join(runDir, "generation_diagnostics.json"), diagnostics); err != nil {
		return "", err
	}
	top := artifacts.TopGenomes
	if top == nil {
		top = []model.GenomeRecord{}
	}
	if err := writeJSON(filepath.Join(runDir, "top_genomes.json"), top); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if _, err := runPath(baseDir, entry.RunID); err != nil {
		return err
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	// Upsert in file order; only ListRunIndex sorts.
	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns entries newest first; among equal timestamps the
// later appended entry comes first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// readRunIndex returns entries in append order.
func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ResetRunIndex removes the run index and every run directory it lists.
// Entries whose id does not name a directory directly under baseDir are
// dropped from the index without touching the filesystem.
func ResetRunIndex(baseDir string) error {
	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}
	for _, entry := range index {
		dir, err := runPath(baseDir, entry.RunID)
		if err != nil {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	if err := os.Remove(filepath.Join(baseDir, runIndexFile)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	src, err := runPath(baseDir, runID)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range runFiles {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	blocksPath := filepath.Join(src, buildingBlocksFile)
	if _, err := os.Stat(blocksPath); err == nil {
		if err := copyFile(blocksPath, filepath.Join(dst, buildingBlocksFile)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (config.Run, bool, error) {
	runDir, err := runPath(baseDir, runID)
	if err != nil {
		return config.Run{}, false, err
	}
	data, err := os.ReadFile(filepath.Join(runDir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return config.Run{}, false, nil
		}
		return config.Run{}, false, err
	}

	var cfg config.Run
	if err := json.Unmarshal(data, &cfg); err != nil {
		return config.Run{}, false, err
	}
	return cfg, true, nil
}

func ReadTopGenomes(baseDir, runID string) ([]model.GenomeRecord, bool, error) {
	runDir, err := runPath(baseDir, runID)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(filepath.Join(runDir, "top_genomes.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var top []model.GenomeRecord
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, false, err
	}
	return top, true, nil
}

func ReadGenerationDiagnostics(baseDir, runID string) ([]model.GenerationDiagnostics, bool, error) {
	runDir, err := runPath(baseDir, runID)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(filepath.Join(runDir, "generation_diagnostics.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var diagnostics []model.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, false, err
	}
	return diagnostics, true, nil
}

// WriteBuildingBlocks stores an analysis next to the run's artifacts.
func WriteBuildingBlocks(baseDir, runID string, blocks []model.BuildingBlockRecord) error {
	runDir, err := runPath(baseDir, runID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(runDir, buildingBlocksFile), blocks)
}

func WriteFitnessSeries(runDir string, bestByGeneration []float64) error {
	path := filepath.Join(runDir, "fitness_history.csv")
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "best_fitness"}); err != nil {
		return err
	}
	for i, best := range bestByGeneration {
		if err := writer.Write([]string{
			strconv.Itoa(i),
			strconv.FormatFloat(best, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadFitnessSeries(baseDir, runID string) ([]float64, bool, error) {
	runDir, err := runPath(baseDir, runID)
	if err != nil {
		return nil, false, err
	}
	file, err := os.Open(filepath.Join(runDir, "fitness_history.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("fitness series header must have at least 2 columns")
	}

	series := make([]float64, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("fitness series row must have at least 2 columns")
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
