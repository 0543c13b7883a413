package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"subforge/internal/pipeline"
	"subforge/internal/workflow"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var formats []string
	var languages []string
	var style string
	var burn bool

	cmd := &cobra.Command{
		Use:   "process <media-file>",
		Short: "Run one media file through the pipeline immediately",
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
			logger, err := ctx.newLogger(true)
			if err != nil {
				return err
			}
			deps, err := workflow.BuildDeps(cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			orchestrator, err := pipeline.New(deps, pipeline.Options{
				Workers: cfg.Pipeline.Workers,
				OnState: func(_ context.Context, _ string, state pipeline.State) {
					fmt.Fprintf(out, "  %s\n", state)
				},
			})
			if err != nil {
				return err
			}

			job, err := pipeline.NewJob(source, formats, languages, style, burn, cfg.Dub.EmbedSubtitles)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Processing %s (job %s)\n", source, job.ID)
			result, err := orchestrator.Run(cmd.Context(), job)
			if err != nil {
				return err
			}

			for _, warning := range result.Warnings {
				fmt.Fprintln(out, colorize(cmd.OutOrStderr(), ansiYellow, "warning: "+warning))
			}
			fmt.Fprintln(out, renderArtifactTable(result))
			if result.ManifestPath != "" {
				fmt.Fprintf(out, "Manifest: %s\n", result.ManifestPath)
			}
			if result.Degraded {
				fmt.Fprintln(out, "Completed with degraded output.")
			} else {
				fmt.Fprintln(out, "Completed.")
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "Caption format to produce: srt, vtt, ass, txt (repeatable)")
	cmd.Flags().StringSliceVarP(&languages, "dub", "d", nil, "Language code to dub (repeatable)")
	cmd.Flags().StringVarP(&style, "style", "s", "", "Caption style preset")
	cmd.Flags().BoolVarP(&burn, "burn", "b", false, "Burn captions onto the video")
	return cmd
}

func renderArtifactTable(result pipeline.Result) string {
	rows := make([][]string, 0, len(result.Artifacts))
	for _, artifact := range result.Artifacts {
		lang := artifact.Language
		if lang == "" {
			lang = "-"
		}
		format := artifact.Format
		if format == "" {
			format = "-"
		}
		rows = append(rows, []string{
			artifact.Kind,
			format,
			lang,
			humanize.Bytes(uint64(artifact.Bytes)),
			artifact.Path,
		})
	}
	return renderTable(
		[]string{"Kind", "Format", "Lang", "Size", "Path"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}
