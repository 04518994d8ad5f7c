package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go-groove/beat"
	"go-groove/store"
)

var importOpts struct {
	name        string
	index       int
	description string
}

func init() {
	beatCmd.AddCommand(beatDecodeCmd, beatEncodeCmd, beatListCmd, beatImportCmd, beatDeleteCmd)

	f := beatImportCmd.Flags()
	f.StringVar(&importOpts.name, "name", "", "beat name (required)")
	f.IntVar(&importOpts.index, "index", 0, "position in the beat list")
	f.StringVar(&importOpts.description, "description", "", "free text shown with the beat")
	_ = beatImportCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(beatCmd)
}

var beatCmd = &cobra.Command{
	Use:   "beat",
	Short: "Convert and manage beat patterns",
}

var beatDecodeCmd = &cobra.Command{
	Use:   "decode <pattern.json>",
	Short: "Print a pattern as timed notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), beat.FormatTimedNotes(beat.Decode(src)))
		return err
	},
}

var beatEncodeCmd = &cobra.Command{
	Use:   "encode <timed.txt>",
	Short: "Turn timed notes back into a pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readFile(args[0])
		if err != nil {
			return err
		}
		seq, errs := beat.ParseTimedNotes(string(data))
		for _, e := range errs {
			fmt.Fprintln(cmd.ErrOrStderr(), e)
		}
		if len(seq) == 0 && len(errs) > 0 {
			return errors.Join(errs...)
		}
		return printJSON(cmd, beat.Encode(seq))
	},
}

var beatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored beats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		beats, err := st.ListBeats(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tNAME\tSLOTS\tID")
		for i := range beats {
			b := &beats[i]
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", b.Index, b.Name, len(b.Sequence()), b.ID)
		}
		return w.Flush()
	},
}

var beatImportCmd = &cobra.Command{
	Use:   "import <pattern.json>",
	Short: "Store a pattern as a named beat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(args[0])
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		b := &store.Beat{
			Name:        importOpts.name,
			Index:       importOpts.index,
			Description: importOpts.description,
			Pattern:     src,
		}
		if err := st.SaveBeat(cmd.Context(), b); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s as %s\n", b.Name, b.ID)
		return nil
	},
}

var beatDeleteCmd = &cobra.Command{
	Use:   "delete <id|name>",
	Short: "Remove a stored beat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		b, err := resolveBeat(cmd.Context(), st, args[0])
		if err != nil {
			return fmt.Errorf("beat %q: %w", args[0], err)
		}
		return st.DeleteBeat(cmd.Context(), b.ID)
	},
}

func readSource(path string) (beat.Source, error) {
	data, err := readFile(path)
	if err != nil {
		return beat.Source{}, err
	}
	var src beat.Source
	if err := json.Unmarshal(data, &src); err != nil {
		return beat.Source{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return src, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
