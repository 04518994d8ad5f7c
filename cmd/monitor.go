package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"go-groove/midi"
)

var monitorOpts struct {
	channel int
	kit     string
}

func init() {
	monitorCmd.Flags().IntVar(&monitorOpts.channel, "channel", -1, "only show this channel (-1 for all)")
	monitorCmd.Flags().StringVar(&monitorOpts.kit, "kit", "", kitUsage()+" (default from config)")
	rootCmd.AddCommand(monitorCmd)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor <port>",
	Short: "Print the hits a drum pad sends",
	Long:  "Opens the first input port whose name contains <port> and prints every hit with the voice it maps to. Ctrl+C stops.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kitName := monitorOpts.kit
		if kitName == "" {
			kitName = cfg.MIDI.Kit
		}
		kit, err := lookupKit(kitName)
		if err != nil {
			return err
		}

		defer midi.Close()
		pad, err := midi.OpenDrumPad(args[0], monitorOpts.channel)
		if err != nil {
			return err
		}
		defer pad.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return monitor(ctx, cmd, pad, kit)
	},
}

func monitor(ctx context.Context, cmd *cobra.Command, pad midi.Controller, kit midi.Kit) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "listening on %s (%s)\n", pad.ID(), kit.Name)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-pad.NoteEvents():
			if !ok {
				return nil
			}
			voice := "-"
			if v, ok := kit.VoiceFor(ev.Note); ok {
				voice = string(v)
			}
			fmt.Fprintf(out, "ch %2d  note %3d  vel %3d  %s\n", ev.Channel+1, ev.Note, ev.Velocity, voice)
		}
	}
}
