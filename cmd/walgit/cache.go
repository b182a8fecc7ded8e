package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the local multi-level cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show local object store occupancy",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := ensureRepo()
		if err != nil {
			return err
		}
		stats, err := repo.Objects.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("objects: %d\nbytes:   %d\n", stats.ObjectCount, stats.TotalBytes)
		return nil
	},
}

var cacheRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Verify local objects and re-download any that are corrupt",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := ensureRepo()
		if err != nil {
			return err
		}
		result, err := repo.Objects.Repair(cmdContext(), repo.ChunkMap)
		if err != nil {
			return err
		}
		fmt.Printf("checked %d objects, %d corrupt, %d repaired\n", result.Checked, len(result.Corrupt), len(result.Repaired))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheRepairCmd)
	rootCmd.AddCommand(cacheCmd)
}
