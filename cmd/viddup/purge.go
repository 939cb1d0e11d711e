package main

import (
	"fmt"

	"github.com/keagan/viddup/internal/config"
	"github.com/keagan/viddup/internal/store"
	"github.com/spf13/cobra"
)

var purgeDelete bool

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Report or remove records for missing files and orphan rows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)

		st, err := store.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := st.Purge(ctx, purgeDelete)
		if err != nil {
			return err
		}

		for _, f := range report.MissingFiles {
			fmt.Printf("missing: %s\n", f.Path)
		}
		verb := "found"
		if purgeDelete {
			verb = "removed"
		}
		fmt.Printf("Purge: %s %d missing files, %d orphan fingerprints.\n",
			verb, len(report.MissingFiles), report.OrphanFingerprints)
		return nil
	},
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeDelete, "delete", false, "delete the reported rows instead of only listing them")
}
