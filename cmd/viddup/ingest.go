package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/keagan/viddup/internal/config"
	"github.com/keagan/viddup/internal/ffmpeg"
	"github.com/keagan/viddup/internal/ingest"
	"github.com/keagan/viddup/internal/store"
	"github.com/keagan/viddup/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var ingestExts []string

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Fingerprint new video files under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)

		exts := cfg.Extensions
		if cmd.Flags().Changed("exts") {
			exts = ingestExts
		}

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close()

		ctl := ingest.New(st, ingest.NewFFmpegDecoder(exec),
			util.NormalizeExts(exts), cfg.Fingerprint.PeakSpacing, log.Logger)

		n, err := ctl.Run(ctx, util.TruePath(args[0]))
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				log.Info().Int("ingested", n).Msg("ingest canceled")
				return nil
			}
			return err
		}

		fmt.Printf("Ingested %d new files.\n", n)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringSliceVar(&ingestExts, "exts", nil, "extensions to ingest (default from config)")
}
