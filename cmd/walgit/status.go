package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current branch and cache occupancy",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := ensureRepo()
		if err != nil {
			return err
		}
		fmt.Printf("On branch %s\n", currentBranchName(repo))
		stats, err := repo.Objects.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("%d objects, %d bytes in local store\n", stats.ObjectCount, stats.TotalBytes)
		return nil
	},
}

func init() { rootCmd.AddCommand(statusCmd) }
