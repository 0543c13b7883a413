package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"subforge/internal/styles"
)

func newStylesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "styles",
		Short:       "List caption style presets",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(styles.Names()))
			for _, name := range styles.Names() {
				desc, err := styles.Lookup(name)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					desc.Name,
					desc.FontName,
					strconv.Itoa(desc.FontSize),
					desc.FontColor,
					strconv.Itoa(desc.MaxCharsPerLine),
					alignmentName(desc.Alignment),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Preset", "Font", "Size", "Color", "Max Line", "Align"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func alignmentName(alignment int) string {
	switch alignment {
	case styles.AlignLeft:
		return "left"
	case styles.AlignRight:
		return "right"
	default:
		return "center"
	}
}
