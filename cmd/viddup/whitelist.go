package main

import (
	"fmt"

	"github.com/keagan/viddup/internal/config"
	"github.com/keagan/viddup/internal/store"
	"github.com/keagan/viddup/pkg/util"
	"github.com/spf13/cobra"
)

var whitelistCmd = &cobra.Command{
	Use:   "whitelist [file...]",
	Short: "Mark a group of files as legitimately similar",
	Long:  "Records every pair among the listed files so search stops reporting the group. All files must already be ingested; a single file is rejected.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)

		st, err := store.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close()

		ids := make([]int64, 0, len(args))
		for _, arg := range args {
			path := util.TruePath(arg)
			rec, err := st.FileByPath(ctx, path)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("%s is not in the library; whitelist rejected", path)
			}
			ids = append(ids, rec.ID)
		}

		if err := st.WhitelistAdd(ctx, ids); err != nil {
			return err
		}

		fmt.Printf("Whitelisted %d files (%d pairs).\n", len(ids), len(ids)*(len(ids)-1)/2)
		return nil
	},
}
