package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-groove/midi"
	"go-groove/store"
)

var exportOpts struct {
	id     string
	output string
	kit    string
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportOpts.id, "id", "", "stored performance ID instead of a file")
	f.StringVarP(&exportOpts.output, "output", "o", "performance.mid", "MIDI file to write")
	f.StringVar(&exportOpts.kit, "kit", "", kitUsage()+" (default from config)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [performance.json]",
	Short: "Write a recorded performance as a Standard MIDI File",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kitName := exportOpts.kit
		if kitName == "" {
			kitName = cfg.MIDI.Kit
		}
		kit, err := lookupKit(kitName)
		if err != nil {
			return err
		}

		var p store.Performance
		switch {
		case exportOpts.id != "":
			st, err := openStore()
			if err != nil {
				return err
			}
			list, err := st.ListPerformances(cmd.Context(), "")
			if err != nil {
				return err
			}
			found := false
			for _, candidate := range list {
				if candidate.ID == exportOpts.id {
					p, found = candidate, true
					break
				}
			}
			if !found {
				return fmt.Errorf("performance %q: %w", exportOpts.id, store.ErrNotFound)
			}
		case len(args) == 1:
			data, err := readFile(args[0])
			if err != nil {
				return err
			}
			if err := json.Unmarshal(data, &p); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
		default:
			return fmt.Errorf("give a performance file or --id")
		}

		f, err := os.Create(exportOpts.output)
		if err != nil {
			return err
		}
		if err := midi.WriteSMF(f, p.Capture, kit, cfg.MIDI.OutChannel); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d hits to %s\n", len(p.Capture.Notes), exportOpts.output)
		return nil
	},
}
