package model

import "encoding/json"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord is the persisted summary of one evolutionary run.
type RunRecord struct {
	VersionedRecord
	ID                   string          `json:"id"`
	CreatedAtUTC         string          `json:"created_at_utc"`
	Fitness              string          `json:"fitness"`
	Seed                 int64           `json:"seed"`
	GenomeLength         int             `json:"genome_length"`
	PopulationSize       int             `json:"population_size"`
	Generations          int             `json:"generations"`
	CompletedGenerations int             `json:"completed_generations"`
	Strategy             string          `json:"strategy"`
	Recombination        string          `json:"recombination"`
	BestFitness          float64         `json:"best_fitness"`
	BestGenome           string          `json:"best_genome"`
	Evaluations          int64           `json:"evaluations"`
	GoalReached          bool            `json:"goal_reached"`
	Config               json.RawMessage `json:"config,omitempty"`
}

// GenomeRecord is a ranked genome of a run's final population, its bits
// rendered as a 0/1 string.
type GenomeRecord struct {
	VersionedRecord
	Rank    int     `json:"rank"`
	Bits    string  `json:"bits"`
	Fitness float64 `json:"fitness"`
}

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

// BuildingBlockRecord is one analyzed building block. Pattern marks loci
// outside the block with '-'.
type BuildingBlockRecord struct {
	VersionedRecord
	Rank     int     `json:"rank"`
	Pattern  string  `json:"pattern"`
	MeanGain float64 `json:"mean_gain"`
	StdDev   float64 `json:"stddev"`
	Samples  int     `json:"samples"`
}
