package main

import (
	"context"

	"github.com/spf13/cobra"

	"DeSynth/internal/config"
	"DeSynth/internal/logging"
	"DeSynth/pkg/cache"
	"DeSynth/pkg/pipeline"
)

// Version is the CLI version
const Version = "1.0.0"

var (
	configFile string
	logLevel   string
	appConfig  *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "desynth",
	Short: "Detect AI-generated images",
	Long: `DeSynth inspects images for signs of synthetic generation.

Every image is standardized, then examined by independent evidence modules:
- Visual (skin smoothing, texture melting, symmetry)
- Metadata (EXIF generator tags, camera details, timestamps)
- Physics (lighting and shadow consistency)
- Frequency (FFT peaks, structured noise, DCT energy)
- ML (an ensemble of remote classifiers, when configured)
- Provenance (C2PA content credential markers)

The module scores are fused into a confidence and a verdict with explanations.
Configuration is read from desynth.yaml (or --config) and DESYNTH_* variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		cfg.Log.Output = cmd.ErrOrStderr()
		logging.Init(cfg.Log)
		appConfig = cfg
		return nil
	},
}

// Execute runs the root command and returns the process exit code
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		newPrinter(rootCmd.ErrOrStderr()).Error("%v", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: desynth.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(analyzeCmd, watchCmd, explainCmd, formatsCmd)

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("desynth {{.Version}}\n")
}

// newAnalyzer builds the pipeline described by cfg, fronted by the result cache when enabled
func newAnalyzer(cfg *config.Config) (pipeline.Analyzer, func(), error) {
	p := pipeline.New(cfg.PipelineConfig(), cfg.Classifier())

	store, err := cfg.OpenCache()
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return p, func() {}, nil
	}
	return pipeline.NewCachedAnalyzer(p, store), func() { closeStore(store) }, nil
}

func closeStore(store cache.Cache) {
	if err := store.Close(); err != nil {
		logging.Error().Err(err).Msg("close result cache")
	}
}
