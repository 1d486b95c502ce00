package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"genelab/internal/storage"
	"genelab/pkg/genelab"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "genelab.db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	storeKind  string
	dbPath     string
	runsDir    string
	exportsDir string
	logLevel   string
	jsonOutput bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "genelab",
		Short:         "Evolve bit-string genomes and inspect the runs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.storeKind, "store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	pf.StringVar(&flags.dbPath, "db-path", defaultDBPath, "sqlite database path")
	pf.StringVar(&flags.runsDir, "runs-dir", defaultRunsDir, "directory holding run artifacts")
	pf.StringVar(&flags.exportsDir, "exports-dir", defaultExportsDir, "directory receiving exports")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	pf.BoolVar(&flags.jsonOutput, "json", false, "print JSON instead of tables")

	root.AddCommand(
		newRunCmd(flags),
		newRunsCmd(flags),
		newFitnessCmd(flags),
		newDiagnosticsCmd(flags),
		newTopCmd(flags),
		newBlocksCmd(flags),
		newCompareCmd(flags),
		newExportCmd(flags),
		newResetCmd(flags),
	)
	return root
}

func (f *globalFlags) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(f.logLevel))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", f.logLevel)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func (f *globalFlags) client(cmd *cobra.Command) (*genelab.Client, error) {
	logger, err := f.logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return genelab.New(genelab.Options{
		StoreKind:  f.storeKind,
		DBPath:     f.dbPath,
		RunsDir:    f.runsDir,
		ExportsDir: f.exportsDir,
		Logger:     logger,
	})
}

// withClient opens a client for the duration of fn.
func (f *globalFlags) withClient(cmd *cobra.Command, fn func(*genelab.Client) error) error {
	client, err := f.client(cmd)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	return fn(client)
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func newTable(header ...any) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 80
	table.Wrap = false
	table.AddRow(header...)
	return table
}

func printTable(w io.Writer, table *uitable.Table) error {
	_, err := fmt.Fprintln(w, table)
	return err
}
