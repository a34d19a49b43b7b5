// Package cmd provides the CLI commands for memoryd.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/amanmcp-labs/memoryd/internal/config"
	"github.com/amanmcp-labs/memoryd/pkg/version"
)

var (
	flagConfigPath  string
	flagDataDir     string
	flagModel       string
	flagMRLDim      int
	flagCacheSize   int
	flagBatchSize   int
	flagLogLevel    string
	flagForceModel  bool
	flagResetMemory bool
)

// NewRootCmd creates the root command for the memoryd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memoryd",
		Short: "Local-first hybrid memory server for AI agents",
		Long: `memoryd is a local-first MCP server that gives AI agents durable,
searchable memory: episodic and semantic notes, a temporal-aware knowledge
graph, and a code index, all retrieved through a hybrid vector + lexical +
graph recall pipeline.

It runs entirely on your machine. Just run 'memoryd serve' to start it.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("memoryd version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to config.yaml (defaults to <data-dir>/config.yaml)")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "override the data directory (default ~/.memoryd)")
	cmd.PersistentFlags().StringVar(&flagModel, "model", "", "embedding model name (see 'memoryd list-models')")
	cmd.PersistentFlags().IntVar(&flagMRLDim, "mrl-dim", 0, "Matryoshka truncation dimension, 0 uses the model's native dimension")
	cmd.PersistentFlags().IntVar(&flagCacheSize, "cache-size", 0, "embedding L1 cache entry count, 0 keeps the configured default")
	cmd.PersistentFlags().IntVar(&flagBatchSize, "batch-size", 0, "embedding batch size, 0 keeps the configured default")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&flagForceModel, "force-model", false, "on a dimension mismatch, keep stored vectors and switch to a registry model whose dimension matches them")
	cmd.PersistentFlags().BoolVar(&flagResetMemory, "reset-memory", false, "wipe stored memories before switching to a configured model with a different dimension")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newListModelsCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig layers hardcoded defaults, the YAML file, environment
// variables, and finally these persistent flags (highest precedence),
// then validates the result.
func loadConfig() (*config.Config, error) {
	path := flagConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flagMRLDim != 0 {
		cfg.MRLDim = flagMRLDim
	}
	if flagCacheSize != 0 {
		cfg.CacheSize = flagCacheSize
	}
	if flagBatchSize != 0 {
		cfg.BatchSize = flagBatchSize
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	cfg.ForceModel = cfg.ForceModel || flagForceModel
	cfg.ResetMemory = cfg.ResetMemory || flagResetMemory

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
