package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"subforge/internal/media/ffprobe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var rawJSON bool

	cmd := &cobra.Command{
		Use:   "probe <media-file>",
		Short: "Inspect a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := resolveSource(cfg, args[0])
			if err != nil {
				return err
			}

			prober := ffprobe.NewProber(cfg.Tools.FFprobe)
			report, err := prober.Inspect(cmd.Context(), source)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if rawJSON {
				fmt.Fprintln(out, string(report.RawJSON()))
				return nil
			}

			rows := [][]string{
				{"Container", report.Format.FormatName},
				{"Duration", formatSeconds(report.DurationSeconds())},
				{"Size", humanize.Bytes(uint64(report.SizeBytes()))},
				{"Video", yesNo(report.HasVideo())},
				{"Audio", yesNo(report.HasAudio())},
				{"Streams", fmt.Sprintf("%d", len(report.Streams))},
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&rawJSON, "json", false, "Print the raw ffprobe report")
	return cmd
}
