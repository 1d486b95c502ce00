package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"genelab/internal/config"
	"genelab/pkg/genelab"
)

func addRunRefFlags(cmd *cobra.Command, ref *genelab.RunRef) {
	cmd.Flags().StringVar(&ref.RunID, "run-id", "", "run id")
	cmd.Flags().BoolVar(&ref.Latest, "latest", false, "use the most recent run")
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var (
		configPath  string
		metricsAddr string
		overrides   config.Run
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evolve a population and record the run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyRunOverrides(cmd, &cfg, overrides)

			if metricsAddr != "" {
				stop := serveMetrics(cmd, metricsAddr)
				defer stop()
			}

			return flags.withClient(cmd, func(client *genelab.Client) error {
				summary, err := client.Run(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				if flags.jsonOutput {
					return printJSON(cmd.OutOrStdout(), summary)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "run_id=%s fitness=%s generations=%d final_best=%.6f goal_reached=%t\n",
					summary.RunID, cfg.Fitness, len(summary.BestByGeneration)-1, summary.FinalBestFitness, summary.GoalReached)
				fmt.Fprintf(out, "best_genome=%s evaluations=%d\n", summary.BestGenome, summary.Evaluations)
				fmt.Fprintf(out, "artifacts=%s\n", summary.ArtifactsDir)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML or JSON run file")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	f.StringVar(&overrides.RunID, "id", "", "run id (generated when empty)")
	f.Int64Var(&overrides.Seed, "seed", 0, "random seed")
	f.IntVar(&overrides.GenomeLength, "genome-length", 0, "bits per genome")
	f.IntVar(&overrides.PopulationSize, "population", 0, "population size")
	f.IntVar(&overrides.Generations, "generations", 0, "generations to evolve")
	f.StringVar(&overrides.Fitness.Name, "fitness", "", "fitness landscape name")
	f.IntVar(&overrides.Fitness.BlockSize, "block-size", 0, "block size for block-structured landscapes")
	f.Float64Var(&overrides.FitnessGoal, "goal", 0, "stop once best fitness reaches this value")
	f.IntVar(&overrides.ChildrenCount, "children", 0, "children produced per generation")
	f.StringVar(&overrides.Strategy, "strategy", "", "crossover strategy: mix|one-cut|two-cuts")
	f.StringVar(&overrides.Recombination, "recombination", "", "recombination mode: filtered|distinct")
	f.IntVar(&overrides.FreshGenomes, "fresh", 0, "random genomes injected per generation")
	f.IntVar(&overrides.Workers, "workers", 0, "parallel climb workers")
	f.BoolVar(&overrides.ReseedOnCollapse, "reseed", false, "reseed around the champion when the population collapses")
	f.IntVar(&overrides.TopCount, "top", 0, "genomes kept in the run record")
	return cmd
}

// applyRunOverrides copies explicitly set flags over the loaded run file.
func applyRunOverrides(cmd *cobra.Command, cfg *config.Run, o config.Run) {
	changed := cmd.Flags().Changed
	if changed("id") {
		cfg.RunID = o.RunID
	}
	if changed("seed") {
		cfg.Seed = o.Seed
	}
	if changed("genome-length") {
		cfg.GenomeLength = o.GenomeLength
	}
	if changed("population") {
		cfg.PopulationSize = o.PopulationSize
	}
	if changed("generations") {
		cfg.Generations = o.Generations
	}
	if changed("fitness") {
		cfg.Fitness.Name = o.Fitness.Name
	}
	if changed("block-size") {
		cfg.Fitness.BlockSize = o.Fitness.BlockSize
	}
	if changed("goal") {
		cfg.FitnessGoal = o.FitnessGoal
	}
	if changed("children") {
		cfg.ChildrenCount = o.ChildrenCount
	}
	if changed("strategy") {
		cfg.Strategy = o.Strategy
	}
	if changed("recombination") {
		cfg.Recombination = o.Recombination
	}
	if changed("fresh") {
		cfg.FreshGenomes = o.FreshGenomes
	}
	if changed("workers") {
		cfg.Workers = o.Workers
	}
	if changed("reseed") {
		cfg.ReseedOnCollapse = o.ReseedOnCollapse
	}
	if changed("top") {
		cfg.TopCount = o.TopCount
	}
}

// serveMetrics exposes the default Prometheus registry until stop is called.
func serveMetrics(cmd *cobra.Command, addr string) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(cmd.ErrOrStderr(), "metrics server: %v\n", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

func newRunsCmd(flags *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withClient(cmd, func(client *genelab.Client) error {
				runs, err := client.Runs(cmd.Context(), genelab.RunsRequest{Limit: limit})
				if err != nil {
					return err
				}
				if flags.jsonOutput {
					return printJSON(cmd.OutOrStdout(), runs)
				}
				table := newTable("RUN ID", "CREATED", "FITNESS", "LENGTH", "POPULATION", "GENERATIONS", "SEED", "BEST", "GOAL")
				for _, r := range runs {
					table.AddRow(r.RunID, r.CreatedAtUTC, r.Fitness, r.GenomeLength, r.Population, r.Generations, r.Seed,
						strconv.FormatFloat(r.FinalBestFitness, 'f', 6, 64), r.GoalReached)
				}
				return printTable(cmd.OutOrStdout(), table)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

func newFitnessCmd(flags *globalFlags) *cobra.Command {
	var req genelab.FitnessHistoryRequest
	cmd := &cobra.Command{
		Use:   "fitness",
		Short: "Show best fitness by generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withClient(cmd, func(client *genelab.Client) error {
				history, err := client.FitnessHistory(cmd.Context(), req)
				if err != nil {
					return err
				}
				if flags.jsonOutput {
					return printJSON(cmd.OutOrStdout(), history)
				}
				table := newTable("GENERATION", "BEST FITNESS")
				for i, best := range history {
					table.AddRow(i, strconv.FormatFloat(best, 'f', 6, 64))
				}
				return printTable(cmd.OutOrStdout(), table)
			})
		},
	}
	addRunRefFlags(cmd, &req.RunRef)
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "maximum generations to show (0 for all)")
	return cmd
}

func newDiagnosticsCmd(flags *globalFlags) *cobra.Command {
	var req genelab.DiagnosticsRequest
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Show per-generation population statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withClient(cmd, func(client *genelab.Client) error {
				diagnostics, err := client.Diagnostics(cmd.Context(), req)
				if err != nil {
					return err
				}
				if flags.jsonOutput {
					return printJSON(cmd.OutOrStdout(), diagnostics)
				}
				table := newTable("GEN", "BEST", "MEAN", "MIN", "STD", "DIVERSITY", "UNIQUE", "EVALUATIONS", "RESEEDED")
				for _, d := range diagnostics {
					table.AddRow(d.Generation,
						strconv.FormatFloat(d.BestFitness, 'f', 4, 64),
						strconv.FormatFloat(d.MeanFitness, 'f', 4, 64),
						strconv.FormatFloat(d.MinFitness, 'f', 4, 64),
						strconv.FormatFloat(d.StdDevFitness, 'f', 4, 64),
						strconv.FormatFloat(d.Diversity, 'f', 4, 64),
						d.UniqueGenotypes, d.Evaluations, d.Reseeded)
				}
				return printTable(cmd.OutOrStdout(), table)
			})
		},
	}
	addRunRefFlags(cmd, &req.RunRef)
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "maximum generations to show (0 for all)")
	return cmd
}

func newTopCmd(flags *globalFlags) *cobra.Command {
	var req genelab.TopGenomesRequest
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the fittest genomes of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withClient(cmd, func(client *genelab.Client) error {
				top, err := client.TopGenomes(cmd.Context(), req)
				if err != nil {
					return err
				}
				if flags.jsonOutput {
					return printJSON(cmd.OutOrStdout(), top)
				}
				table := newTable("RANK", "FITNESS", "GENOME")
				for _, g := range top {
					table.AddRow(g.Rank, strconv.FormatFloat(g.Fitness, 'f', 6, 64), g.Bits)
				}
				return printTable(cmd.OutOrStdout(), table)
			})
		},
	}
	addRunRefFlags(cmd, &req.RunRef)
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "maximum genomes to show (0 for all)")
	return cmd
}

func newBlocksCmd(flags *globalFlags) *cobra.Command {
	var req genelab.BlocksRequest
	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Rank contiguous building blocks of a run's best genome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withClient(cmd, func(client *genelab.Client) error {
				records, err := client.AnalyzeBlocks(cmd.Context(), req)
				if err != nil {
					return err
				}
				if flags.jsonOutput {
					return printJSON(cmd.OutOrStdout(), records)
				}
				table := newTable("RANK", "PATTERN", "MEAN GAIN", "STD", "SAMPLES")
				for _, r := range records {
					table.AddRow(r.Rank, r.Pattern,
						strconv.FormatFloat(r.MeanGain, 'f', 6, 64),
						strconv.FormatFloat(r.StdDev, 'f', 6, 64),
						r.Samples)
				}
				return printTable(cmd.OutOrStdout(), table)
			})
		},
	}
	addRunRefFlags(cmd, &req.RunRef)
	f := cmd.Flags()
	f.IntVar(&req.Width, "width", 0, "block width in loci (default 4)")
	f.IntVar(&req.Stride, "stride", 0, "distance between block starts (default width)")
	f.IntVar(&req.PoolSize, "pool", 0, "random genomes per sampling round")
	f.IntVar(&req.Rounds, "rounds", 0, "sampling rounds")
	f.IntVar(&req.Workers, "workers", 1, "parallel workers")
	f.Int64Var(&req.Seed, "seed", 1, "random seed")
	f.IntVar(&req.Limit, "limit", 0, "maximum blocks to show (0 for all)")
	return cmd
}

func newCompareCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare RUN_ID [RUN_ID...]",
		Short: "Average best fitness by generation across runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withClient(cmd, func(client *genelab.Client) error {
				points, err := client.Compare(cmd.Context(), genelab.CompareRequest{RunIDs: args})
				if err != nil {
					return err
				}
				if flags.jsonOutput {
					return printJSON(cmd.OutOrStdout(), points)
				}
				table := newTable("GENERATION", "MEAN", "STD", "MAX", "RUNS")
				for _, p := range points {
					table.AddRow(p.Generation,
						strconv.FormatFloat(p.Mean, 'f', 6, 64),
						strconv.FormatFloat(p.Std, 'f', 6, 64),
						strconv.FormatFloat(p.Max, 'f', 6, 64),
						p.Runs)
				}
				return printTable(cmd.OutOrStdout(), table)
			})
		},
	}
	return cmd
}

func newExportCmd(flags *globalFlags) *cobra.Command {
	var req genelab.ExportRequest
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a run's artifacts to the exports directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withClient(cmd, func(client *genelab.Client) error {
				exported, err := client.Export(cmd.Context(), req)
				if err != nil {
					return err
				}
				if flags.jsonOutput {
					return printJSON(cmd.OutOrStdout(), exported)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
				return nil
			})
		},
	}
	addRunRefFlags(cmd, &req.RunRef)
	cmd.Flags().StringVar(&req.OutDir, "out", "", "export directory (default --exports-dir)")
	return cmd
}

func newResetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every recorded run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withClient(cmd, func(client *genelab.Client) error {
				if err := client.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset store=%s runs_dir=%s\n", flags.storeKind, flags.runsDir)
				return nil
			})
		},
	}
}
