package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/keagan/viddup/internal/ann"
	"github.com/keagan/viddup/internal/config"
	"github.com/keagan/viddup/internal/search"
	"github.com/keagan/viddup/internal/store"
	"github.com/keagan/viddup/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	searchLen       int
	searchSceneCap  float64
	searchRadius    float64
	searchStep      int
	searchTrimStart float64
	searchTrimEnd   float64
	searchBackend   string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find duplicate clusters across the ingested library",
	Long:  "Projects every file's fingerprints into fixed-length windows, indexes them with the selected ANN backend and prints suspected duplicate groups. Each line carries a seek offset usable with a player's --ss flag.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)

		params := search.Params{
			WindowLen: pickInt(cmd, "len", searchLen, cfg.Search.WindowLen),
			SceneCap:  pickFloat(cmd, "scene", searchSceneCap, cfg.Search.SceneCap),
			TrimStart: pickFloat(cmd, "trim-start", searchTrimStart, cfg.Search.TrimStart),
			TrimEnd:   pickFloat(cmd, "trim-end", searchTrimEnd, cfg.Search.TrimEnd),
		}
		radius := pickFloat(cmd, "radius", searchRadius, cfg.Search.Radius)
		step := pickInt(cmd, "step", searchStep, cfg.Search.Step)
		backend := searchBackend
		if !cmd.Flags().Changed("backend") {
			backend = cfg.Search.Backend
		}

		// Fail fast before touching the store.
		idx, err := ann.New(backend)
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close()

		windows, files, err := search.Assemble(ctx, st, params, log.Logger)
		if err != nil {
			return canceledOrErr(ctx, err)
		}
		if len(windows) == 0 {
			log.Info().Msg("nothing to search")
			return nil
		}

		vecs := make([][]float64, len(windows))
		for i, w := range windows {
			vecs[i] = w.Vec
		}
		if err := idx.Build(vecs); err != nil {
			return fmt.Errorf("build %s index: %w", backend, err)
		}

		log.Info().
			Str("backend", backend).
			Int("windows", len(windows)).
			Int("files", len(files)).
			Msg("index built")

		clusters, err := search.Reduce(ctx, windows, files, idx, step, radius, st, log.Logger)
		if err != nil {
			return canceledOrErr(ctx, err)
		}

		for i, cluster := range clusters {
			if i > 0 {
				fmt.Println()
			}
			for _, e := range cluster.Entries {
				fmt.Printf("%s --ss %s\n", e.File.Path, util.FormatOffset(e.Offset))
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLen, "len", 10, "fingerprints per search window")
	searchCmd.Flags().Float64Var(&searchSceneCap, "scene", 300, "max cumulative scene seconds per window")
	searchCmd.Flags().Float64Var(&searchRadius, "radius", 3.0, "neighborhood radius (L2)")
	searchCmd.Flags().IntVar(&searchStep, "step", 1, "row step through the index")
	searchCmd.Flags().Float64Var(&searchTrimStart, "trim-start", 0, "seconds to ignore at the start of each file")
	searchCmd.Flags().Float64Var(&searchTrimEnd, "trim-end", 0, "seconds to ignore at the end of each file")
	searchCmd.Flags().StringVar(&searchBackend, "backend", "kdtree", "ANN backend: linear, kdtree or hnsw")
}

func pickInt(cmd *cobra.Command, flag string, flagVal, cfgVal int) int {
	if cmd.Flags().Changed(flag) {
		return flagVal
	}
	return cfgVal
}

func pickFloat(cmd *cobra.Command, flag string, flagVal, cfgVal float64) float64 {
	if cmd.Flags().Changed(flag) {
		return flagVal
	}
	return cfgVal
}

func canceledOrErr(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		log.Info().Msg("search canceled")
		return nil
	}
	return err
}
