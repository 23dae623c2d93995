package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ledgerflow/internal/config"
	"ledgerflow/internal/listener"
	"ledgerflow/internal/logger"
	"ledgerflow/internal/pipeline"
	"ledgerflow/internal/reference"
	"ledgerflow/internal/storage"
)

var version = "dev"

type app struct {
	cfg config.Config
	log zerolog.Logger

	salesDir     string
	purchasesDir string
	outputDir    string
	logLevel     string
	exportXLSX   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "ledgerflow",
		Short:         "Turn weekly branch statements into ledger and upload files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.salesDir, "sales-dir", "", "sales input folder (overrides SALES_INPUT_DIR)")
	flags.StringVar(&a.purchasesDir, "purchases-dir", "", "purchases input folder (overrides PURCHASES_INPUT_DIR)")
	flags.StringVar(&a.outputDir, "output-dir", "", "output folder (overrides OUTPUT_DIR)")
	flags.StringVar(&a.logLevel, "log-level", "", "debug|info|warn|error (overrides LOG_LEVEL)")
	flags.BoolVar(&a.exportXLSX, "xlsx", false, "also write .xlsx copies of the tables (overrides EXPORT_XLSX)")

	root.AddCommand(
		extractCmd(a),
		combineCmd(a),
		runCmd(a),
		renameCmd(a),
		watchCmd(a),
		runsCmd(a),
		localitiesCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.salesDir != "" {
		cfg.SalesInputDir = a.salesDir
	}
	if a.purchasesDir != "" {
		cfg.PurchasesInputDir = a.purchasesDir
	}
	if a.outputDir != "" {
		if _, set := os.LookupEnv("RENAMED_DIR"); !set {
			cfg.RenamedDir = filepath.Join(a.outputDir, "Renamed Invoices")
		}
		cfg.OutputDir = a.outputDir
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if cmd.Flags().Changed("xlsx") {
		cfg.ExportXLSX = a.exportXLSX
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.New(cfg.LogLevel, cfg.LogFormat)
	return nil
}

// open returns the pipeline service with the run registry; the caller
// closes the database.
func (a *app) open() (*pipeline.Service, *storage.DB, error) {
	db, err := storage.Open(a.cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	svc, err := pipeline.NewService(a.cfg, db, a.log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return svc, db, nil
}

func extractCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Extract one record per document into sales_data.csv and purchases_data.csv",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			svc, db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			docs, err := svc.Discover()
			if err != nil {
				return err
			}
			report, registryErr := svc.Extract(docs)
			writeErr := svc.WriteCategories(report)
			printExtract(report)
			return errors.Join(registryErr, writeErr)
		},
	}
}

func combineCmd(a *app) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Merge the category files into combined_data.csv and upload_data.csv",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			svc, db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			var combined pipeline.CombineReport
			if runID != "" {
				combined, err = svc.CombineRun(runID)
			} else {
				combined, err = svc.CombineFromFiles(a.cfg.SalesCSV(), a.cfg.PurchasesCSV())
			}
			printCombine(combined)
			return err
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "merge the records stored for this run instead of the category files")
	return cmd
}

func localitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "localities",
		Short:             "List the known branches and their codes",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(*cobra.Command, []string) {
			for _, e := range reference.Default().Entries() {
				fmt.Printf("%-10s supplier=%s nc=%s\n", e.DisplayName, e.SupplierCode, e.NominalCode)
			}
		},
	}
}

func runCmd(a *app) *cobra.Command {
	var rename bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract and combine in one pass",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			svc, db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			docs, err := svc.Discover()
			if err != nil {
				return err
			}
			report, combined, runErr := svc.Process(docs)
			printExtract(report)
			printCombine(combined)
			if !rename {
				return runErr
			}
			results, renameErr := svc.RenameSales(docs, a.cfg.RenamedDir)
			printRenames(results)
			return errors.Join(runErr, renameErr)
		},
	}
	cmd.Flags().BoolVar(&rename, "rename", false, "also copy sales statements under their canonical names")
	return cmd
}

func renameCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Copy sales statements into the renamed folder as \"Weekly Sales - {Locality} Wk{NN}.pdf\"",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			svc, db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			if dir == "" {
				dir = a.cfg.RenamedDir
			}
			docs, err := svc.Discover()
			if err != nil {
				return err
			}
			results, err := svc.RenameSales(docs, dir)
			printRenames(results)
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "target folder (overrides RENAMED_DIR)")
	return cmd
}

func watchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rerun the pipeline whenever the input folders change",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			svc, db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := signal.NotifyContext(logger.WithContext(context.Background(), a.log), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return listener.NewService(db, a.cfg, svc).Run(ctx)
		},
	}
}

func runsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			db, err := storage.Open(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns(limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%s started=%s finished=%s documents=%d failed=%d sales=%d purchases=%d\n",
					r.ID, r.StartedAt, r.FinishedAt, r.Documents, r.Failed, r.Sales, r.Purchases)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// No configuration needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(*cobra.Command, []string) {
			fmt.Printf("ledgerflow %s (%s)\n", version, runtime.Version())
		},
	}
}

func printExtract(r pipeline.ExtractReport) {
	fmt.Printf("extract done run=%s documents=%d failed=%d sales=%d purchases=%d\n",
		r.RunID, len(r.Documents), r.Failed, len(r.Sales), len(r.Purchases))
	for _, d := range r.Documents {
		if d.Err != nil {
			fmt.Printf("  failed %s: %v\n", d.Path, d.Err)
		}
	}
}

func printCombine(r pipeline.CombineReport) {
	fmt.Printf("combine done ledger=%d upload=%d\n", len(r.Ledger), len(r.Upload))
}

func printRenames(results []pipeline.RenameResult) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Printf("  error %s: %v\n", r.Document.Label(), r.Err)
		case !r.Rename.Resolved():
			fmt.Printf("  skipped %s\n", r.Document.Label())
		default:
			fmt.Printf("  %s -> %s\n", r.Document.Name, r.Rename.Canonical)
		}
	}
}
