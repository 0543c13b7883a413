package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"subforge/internal/render"
)

func newEmbedCommand(ctx *commandContext) *cobra.Command {
	var output string
	var languageCode string

	cmd := &cobra.Command{
		Use:   "embed <video-file> <caption-file>",
		Short: "Mux a caption file into a video as a soft subtitle track",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			video, err := resolveSource(cfg, args[0])
			if err != nil {
				return err
			}
			captionPath := strings.TrimSpace(args[1])
			if _, err := os.Stat(captionPath); err != nil {
				return fmt.Errorf("stat caption file: %w", err)
			}

			destination := strings.TrimSpace(output)
			if destination == "" {
				ext := filepath.Ext(video)
				destination = strings.TrimSuffix(video, ext) + ".subbed" + ext
			}

			renderer := render.NewRenderer(render.Options{
				FFmpegBinary: cfg.Tools.FFmpeg,
				VideoCodec:   cfg.Render.VideoCodec,
				Preset:       cfg.Render.Preset,
				CRF:          cfg.Render.CRF,
				AudioBitrate: cfg.Render.AudioBitrate,
			})
			if err := renderer.MuxSoftCaptions(cmd.Context(), video, captionPath, destination, languageCode); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", destination)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path (defaults to <video>.subbed.<ext>)")
	cmd.Flags().StringVarP(&languageCode, "language", "l", "", "Subtitle track language tag")
	return cmd
}
