package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"widgetforge/internal/config"
	"widgetforge/internal/dataset"
	"widgetforge/internal/fetch"
	"widgetforge/internal/logging"
	"widgetforge/internal/perception"
	"widgetforge/internal/pipeline"
	"widgetforge/internal/widget"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string

	// ask flags
	model      string
	dataSource string
	jsonOutput bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "widgetforge",
	Short: "widgetforge - resilient LLM widget generation pipeline",
	Long: `widgetforge turns a free-text question into a structured dashboard widget.

A query is driven through three validated phases - Plan, Data, Render - each
retried with corrective feedback, and the whole run is wrapped in a fallback
chain that always terminates with a usable widget.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Generate a widget for a free-text query",
	Long: `Runs the full pipeline for one query and prints the resulting widget.

Examples:
  widgetforge ask "stock price of Acme Corp"
  widgetforge ask --data-source synthetic "monthly revenue trend"
  widgetforge ask --json "population of Iceland" | jq .`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the widgetforge version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("widgetforge 0.1.0")
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory (holds .widgetforge/)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default <workspace>/.widgetforge/config.yaml)")

	askCmd.Flags().StringVarP(&model, "model", "m", "", "generation model override")
	askCmd.Flags().StringVar(&dataSource, "data-source", "", "force a data source: live-fetch, synthetic or canned-dataset")
	askCmd.Flags().BoolVar(&jsonOutput, "json", false, "print only the final response as JSON")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(versionCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	if err := logging.Initialize(workspace); err != nil {
		logger.Warn("file logging unavailable", zap.Error(err))
	}

	path := configPath
	if path == "" {
		path = config.DefaultPath(workspace)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	override, err := parseDataSource(dataSource)
	if err != nil {
		return err
	}

	client, err := perception.NewClient(cfg.LLM)
	if err != nil {
		return err
	}

	orch := pipeline.NewOrchestrator(client, cfg.Pipeline)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	if cfg.Dataset.SeedDir != "" || cfg.Dataset.Path != "" {
		store, err := dataset.NewStore(cfg.Dataset)
		if err != nil {
			logger.Warn("canned dataset unavailable", zap.Error(err))
		} else {
			defer store.Close()
			orch.SetDatasetLookup(store)
			if cfg.Dataset.SeedDir != "" {
				if watcher, werr := dataset.NewSeedWatcher(store, cfg.Dataset.SeedDir); werr == nil {
					_ = watcher.Start(ctx)
					defer watcher.Stop()
				}
			}
		}
	}

	search := fetch.NewDuckDuckGoProvider(&http.Client{Timeout: cfg.Fetch.TimeoutDuration()})
	orch.SetLiveFetcher(fetch.NewFetcher(cfg.Fetch, search, logger))

	runner := pipeline.NewRunner(orch)

	opts := []pipeline.RunOption{}
	if model != "" {
		opts = append(opts, pipeline.WithModel(model))
	}
	if override != "" {
		opts = append(opts, pipeline.WithDataSourceOverride(override))
	}

	var final widget.Response
	runner.Run(ctx, query, func(ev widget.ProgressEvent) {
		switch ev.Type {
		case widget.EventProgress:
			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "[%3d%%] %s: %s\n", ev.Progress, ev.Phase, ev.Message)
			}
		case widget.EventPlan:
			logger.Info("plan ready",
				zap.String("request", ev.RequestID),
				zap.String("widgetType", string(ev.Plan.WidgetType)),
				zap.String("dataSource", string(ev.Plan.DataSource)))
		case widget.EventData:
			logger.Info("data ready",
				zap.String("request", ev.RequestID),
				zap.String("confidence", string(ev.DataResult.Confidence)),
				zap.Int("fields", len(ev.DataResult.Data)))
		case widget.EventComplete:
			final = *ev.Response
		}
	}, opts...)

	out, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func parseDataSource(s string) (widget.DataSource, error) {
	if s == "" {
		return "", nil
	}
	ds := widget.DataSource(s)
	if !widget.KnownDataSources[ds] {
		return "", fmt.Errorf("unknown data source %q (expected live-fetch, synthetic or canned-dataset)", s)
	}
	return ds, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
