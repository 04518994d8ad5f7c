package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"go-groove/midi"
)

func init() {
	rootCmd.AddCommand(portsCmd)
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer midi.Close()
		ports, err := midi.ListPorts(midi.PortScanTimeout)
		if errors.Is(err, midi.ErrPortsTimeout) {
			return fmt.Errorf("%w: the MIDI service may be stuck, try reconnecting the device", err)
		}
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "inputs:")
		for i, name := range ports.InNames() {
			fmt.Fprintf(out, "  %d: %s\n", i, name)
		}
		fmt.Fprintln(out, "outputs:")
		for i, name := range ports.OutNames() {
			fmt.Fprintf(out, "  %d: %s\n", i, name)
		}
		return nil
	},
}
