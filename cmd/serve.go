package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-groove/midi"
	"go-groove/server"
	"go-groove/trainer"
)

var serveOpts struct {
	sessionFlags
	addr     string
	beat     string
	simulate bool
	pads     bool
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveOpts.addr, "addr", "", "listen address (default from config)")
	f.StringVar(&serveOpts.beat, "beat", "", "stored beat to load at startup")
	f.StringVar(&serveOpts.pattern, "pattern", "", "beat pattern JSON file to load at startup")
	f.Float64Var(&serveOpts.tempo, "tempo", 0, "tempo in bpm (default from config)")
	f.StringVar(&serveOpts.kit, "kit", "", kitUsage())
	f.StringVar(&serveOpts.output, "out", "", "output port for pattern playback")
	f.BoolVar(&serveOpts.simulate, "simulate", false, "start on the simulated clock")
	f.BoolVar(&serveOpts.pads, "pads", false, "listen to connected drum pads")
	f.StringSliceVar(&serveOpts.inputs, "in", nil, "input port name substrings (with --pads)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the practice session over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogger(true); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	defer midi.Close()
	run := serveOpts.apply(*cfg)

	var extra []trainer.Option
	if serveOpts.simulate {
		extra = append(extra, trainer.WithSimulatedClock())
	}
	mgr, err := newManager(run, extra...)
	if err != nil {
		return err
	}
	if serveOpts.beat != "" || serveOpts.pattern != "" {
		src, name, err := loadSource(ctx, serveOpts.pattern, serveOpts.beat)
		if err != nil {
			return err
		}
		if err := mgr.SetSource(src); err != nil {
			return err
		}
		logger.Info("beat loaded", zap.String("beat", name))
	}
	if serveOpts.pads {
		attachPads(ctx, mgr, run)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	addr := serveOpts.addr
	if addr == "" {
		addr = run.Server.Addr
	}
	srv := server.New(mgr, st,
		server.WithLogger(logger),
		server.WithAllowedOrigins(run.Server.AllowedOrigins),
		server.WithUserID(run.Practice.UserID),
	)
	err = srv.ListenAndServe(ctx, addr)
	mgr.Stop()
	return err
}
