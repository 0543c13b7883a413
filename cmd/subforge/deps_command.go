package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subforge/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check the external tools the pipeline needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			out := cmd.OutOrStdout()
			for _, status := range statuses {
				line := fmt.Sprintf("  %-10s %s", status.Name, depDetail(status))
				switch {
				case status.Available:
					line = colorize(out, ansiGreen, line)
				case status.Optional:
					line = colorize(out, ansiYellow, line)
				default:
					line = colorize(out, ansiRed, line)
				}
				fmt.Fprintln(out, line)
			}

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required tool(s) missing", len(missing))
			}
			fmt.Fprintln(out, "All required tools available")
			return nil
		},
	}
}

func depDetail(status deps.Status) string {
	if status.Available {
		return fmt.Sprintf("ok (%s)", status.Command)
	}
	detail := status.Detail
	if status.Optional {
		detail += " [optional]"
	}
	return detail
}
