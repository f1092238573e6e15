package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yangguang01/vibesub/internal/subtitle"
)

func init() {
	parseCmd.Flags().BoolVar(&parseLenient, "lenient", false, "Skip malformed blocks instead of failing")
	parseCmd.Flags().BoolVar(&parseVTT, "vtt", false, "Print the cues as WebVTT")
	rootCmd.AddCommand(parseCmd)
}

var (
	parseLenient bool
	parseVTT     bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <file.srt|file.vtt>",
	Short: "Validate an SRT file and print its cues",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	cues, skipped, err := readCues(args[0], parseLenient)
	if err != nil {
		return err
	}
	for _, pe := range skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %v\n", pe)
	}

	out := cmd.OutOrStdout()
	if parseVTT {
		fmt.Fprint(out, subtitle.ToVTT(cues))
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTART\tEND\tTEXT")
	for i, c := range cues {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1,
			subtitle.FormatTimestamp(c.Start), subtitle.FormatTimestamp(c.End), oneLine(c.Text))
	}
	tw.Flush()
	fmt.Fprintf(out, "\n%d cues\n", len(cues))
	return nil
}
