package main

import (
	"fmt"

	"github.com/keagan/viddup/internal/config"
	"github.com/keagan/viddup/internal/ffmpeg"
	"github.com/keagan/viddup/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var fixMetadataCmd = &cobra.Command{
	Use:   "fix-metadata",
	Short: "Re-probe files with missing fps or duration and update them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close()

		files, err := st.FilesMissingMetadata(ctx)
		if err != nil {
			return err
		}

		fixed := 0
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := exec.ProbeVideo(ctx, f.Path)
			if err != nil {
				log.Warn().Err(err).Str("file", f.Path).Msg("probe failed")
				continue
			}
			if err := st.UpdateMetadata(ctx, f.ID, info.FPS, info.Duration); err != nil {
				log.Warn().Err(err).Str("file", f.Path).Msg("update failed")
				continue
			}
			fixed++
		}

		fmt.Printf("Updated metadata for %d of %d files.\n", fixed, len(files))
		return nil
	},
}
