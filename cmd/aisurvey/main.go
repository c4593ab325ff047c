package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dev-omotenashi/ai-usage-survey/internal/config"
	"github.com/dev-omotenashi/ai-usage-survey/internal/database"
	"github.com/dev-omotenashi/ai-usage-survey/internal/pipeline"
	"github.com/dev-omotenashi/ai-usage-survey/internal/report"
	"github.com/dev-omotenashi/ai-usage-survey/internal/server"
	"github.com/dev-omotenashi/ai-usage-survey/internal/session"
	"github.com/dev-omotenashi/ai-usage-survey/internal/tui"
	"github.com/dev-omotenashi/ai-usage-survey/internal/watch"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     = zap.NewNop()
)

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	logger.Sync() //nolint:errcheck
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "aisurvey",
	Short:   "AI usage survey analysis",
	Long:    "aisurvey aggregates the monthly AI usage survey into CSV exports, a markdown report and web and terminal dashboards.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		// .env is optional
		_ = godotenv.Load()

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, err = config.NewLogger(cfg.Logging)
		if err != nil {
			return err
		}
		logger.Debug("config loaded", zap.String("path", path))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("aisurvey", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/aisurvey/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit data.path to point at the survey export.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run history and data status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Data: %s", cfg.Data.Path)
		if info, err := os.Stat(cfg.Data.Path); err == nil {
			fmt.Printf(" (%d bytes, modified %s)\n", info.Size(), info.ModTime().Format("2006-01-02 15:04"))
		} else {
			fmt.Println(" (missing)")
		}
		fmt.Printf("Database: %s\n\n", db.Path())

		fmt.Println("Runs:")
		fmt.Printf("  Total: %d\n", stats.Runs)
		fmt.Printf("  Succeeded: %d\n", stats.SucceededRuns)
		fmt.Printf("  Failed: %d\n", stats.FailedRuns)
		if stats.LastRunAt != nil {
			fmt.Printf("  Last run: %s\n", *stats.LastRunAt)
		}
		fmt.Println("\nStored:")
		fmt.Printf("  Aggregates: %d\n", stats.Aggregates)
		fmt.Printf("  Counts: %d\n", stats.Counts)

		runs, err := db.GetRecentRuns(5)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		if len(runs) > 0 {
			fmt.Println("\nRecent runs:")
			for _, r := range runs {
				started := ""
				if r.StartedAt != nil {
					started = *r.StartedAt
				}
				fmt.Printf("  %s  %-7s  %4d responses  %3d files  %s\n", r.ID[:8], r.Status, r.Responses, r.Files, started)
			}
		}
		return nil
	},
}

// --- run command ---

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: load -> aggregate -> export -> record -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db, logger)

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun()
		} else {
			result = pipe.Run(cmd.Context())
		}
		printSteps(result)

		if result.Failed() {
			return errors.New("pipeline finished with errors")
		}
		if !dryRun {
			fmt.Println("\nPipeline complete! Run 'aisurvey serve' to view the dashboard.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the CSV exports only",
	RunE: func(cmd *cobra.Command, args []string) error {
		result := pipeline.New(cfg, nil, logger).Export(cmd.Context())
		printSteps(result)
		if result.Failed() {
			return errors.New("export failed")
		}
		return nil
	},
}

var reportStdout bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the markdown report only",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportStdout {
			cfg.Output.ReportPath = ""
		}
		result := pipeline.New(cfg, nil, logger).Report(cmd.Context())
		if reportStdout && result.Report != nil {
			fmt.Print(result.Report.Markdown())
			return nil
		}
		printSteps(result)
		if result.Failed() {
			return errors.New("report failed")
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportStdout, "stdout", false, "Print the report instead of writing report_path")
}

func printSteps(result *pipeline.Result) {
	for i, step := range result.Steps {
		fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
		switch {
		case step.Err != nil:
			fmt.Printf("  Error: %v\n", step.Err)
		case step.Skipped:
			fmt.Printf("  Skipped: %s\n", step.Summary)
		default:
			fmt.Printf("  %s\n", step.Summary)
		}
	}
}

// --- serve command ---

var (
	servePort  int
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		sess := session.New(cfg.Data.Path, cfg.Periods.Months, logger)
		if serveWatch || cfg.Server.Watch {
			w := watch.New(cfg.Data.Path, sess, logger)
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("watching data file: %w", err)
			}
			defer w.Stop()
		}

		srv, err := server.New(sess, report.NewBuilder(pipeline.Period(cfg), logger), db, logger)
		if err != nil {
			return err
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return srv.Serve(ctx, fmt.Sprintf("localhost:%d", port))
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "Reload when the data file changes")
}

// --- tui command ---

var tuiStyle string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
		defer stop()

		// Log lines would corrupt the alternate screen.
		sess := session.New(cfg.Data.Path, cfg.Periods.Months, nil)
		builder := report.NewBuilder(pipeline.Period(cfg), nil)
		return tui.Run(ctx, sess, builder, tui.Options{Style: tuiStyle})
	},
}

func init() {
	tuiCmd.Flags().StringVar(&tuiStyle, "style", "auto", "Markdown style: auto, dark, light or notty")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "aisurvey.db")
	return database.Open(dbPath, database.WithLogger(logger))
}
