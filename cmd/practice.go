package cmd

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"go-groove/midi"
	"go-groove/theme"
	"go-groove/tui"
)

var practiceOpts sessionFlags

func init() {
	f := practiceCmd.Flags()
	f.StringVar(&practiceOpts.pattern, "pattern", "", "beat pattern JSON file instead of a stored beat")
	f.Float64Var(&practiceOpts.tempo, "tempo", 0, "tempo in bpm (default from config)")
	f.StringVar(&practiceOpts.kit, "kit", "", kitUsage())
	f.StringSliceVar(&practiceOpts.inputs, "in", nil, "input port name substrings")
	f.StringVar(&practiceOpts.output, "out", "", "output port for pattern playback")
	f.BoolVar(&practiceOpts.echo, "echo", false, "echo hits to the output port")
	rootCmd.AddCommand(practiceCmd)
}

var practiceCmd = &cobra.Command{
	Use:   "practice [beat]",
	Short: "Practice a beat with live scoring",
	Long: `Loads a stored beat (by ID or name, default the last one practiced) and opens
the practice screen. Hits from connected drum pads are scored as you play.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogger(false); err != nil {
			return err
		}
		ref := cfg.UI.LastBeat
		if len(args) > 0 {
			ref = args[0]
		}
		return practice(cmd.Context(), ref)
	},
}

func practice(ctx context.Context, ref string) error {
	defer midi.Close()
	run := practiceOpts.apply(*cfg)

	src, name, err := loadSource(ctx, practiceOpts.pattern, ref)
	if err != nil {
		return err
	}
	mgr, err := newManager(run)
	if err != nil {
		return err
	}
	if err := mgr.SetSource(src); err != nil {
		return err
	}
	if practiceOpts.pattern == "" && cfg.UI.LastBeat != ref {
		cfg.UI.LastBeat = ref
		if err := saveConfig(); err != nil {
			logger.Sugar().Warnf("save last beat: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	dm := attachPads(ctx, mgr, run)

	palette, err := theme.Load(cfg.UI.Palette)
	if err != nil {
		return err
	}
	m := tui.NewModel(mgr, dm, theme.New(palette), cfg)
	m.BeatName = name
	m.ConfigPath = configPath

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func saveConfig() error {
	if configPath != "" {
		return cfg.SaveFile(configPath)
	}
	return cfg.Save()
}
