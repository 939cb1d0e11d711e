package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/keagan/viddup/internal/config"
	"github.com/keagan/viddup/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	dbPath  string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "viddup",
	Short: "viddup - near-duplicate video detection",
	Long:  "Fingerprints a video library by scene structure and finds files that share long stretches of it, across containers and re-encodes.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Database = dbPath
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./viddup.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config and "+config.EnvDatabase+")")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(whitelistCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(fixMetadataCmd)
}
