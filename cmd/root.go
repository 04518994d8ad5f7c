package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"go-groove/config"
	"go-groove/debug"
	"go-groove/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "go-groove",
	Short: "Drum practice trainer",
	Long: `go-groove plays a beat, listens to your drum pads and scores every hit
against the pattern: timing, velocity, misses and the tempo you are really playing at.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		debug.Disable()
		logger = zap.NewNop()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/go-groove/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

// setupLogger logs to the configured file, or to stderr when console is set
func setupLogger(console bool) error {
	var paths []string
	if path := cfg.LogPath(); path != "" {
		paths = append(paths, path)
	}
	if console {
		paths = append(paths, "stderr")
	}
	l, err := debug.New(cfg.Log.Level, false, paths...)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logger = l
	debug.Set(l)
	return nil
}

func openStore() (store.Store, error) {
	switch cfg.Store.Backend {
	case "dynamo":
		return store.NewDynamoStore(store.DynamoConfig{
			Region:            cfg.Store.Region,
			Endpoint:          cfg.Store.Endpoint,
			BeatsTable:        cfg.Store.BeatsTable,
			PerformancesTable: cfg.Store.PerformancesTable,
		}, logger)
	case "file", "":
		dir, err := cfg.StoreDir()
		if err != nil {
			return nil, err
		}
		return store.NewFileStore(dir), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// resolveBeat finds a stored beat by ID, then by name
func resolveBeat(ctx context.Context, st store.BeatStore, ref string) (*store.Beat, error) {
	b, err := st.LoadBeatByID(ctx, ref)
	if err == nil {
		return b, nil
	}
	return st.LoadBeatByName(ctx, ref)
}

func readFile(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
