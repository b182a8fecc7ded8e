package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"walgit/core"
)

var pushCmd = &cobra.Command{
	Use:   "push [branch]",
	Short: "Push the current or named branch to the ledger",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := ensureRepo()
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")

		branch := currentBranchName(repo)
		if len(args) > 0 {
			branch = args[0]
		}
		branchRef := "refs/heads/" + branch

		local, err := repo.Refs.Read(branchRef)
		if err != nil {
			return err
		}

		events := make(chan core.BatchStateChange, 16)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range events {
				fmt.Printf("push: %s %s\n", ev.State, ev.Detail)
			}
		}()

		receipt, err := repo.Push(cmdContext(), core.PushRequest{
			Branch:      branchRef,
			LocalTarget: local,
			Force:       force,
		}, events)
		close(events)
		<-done
		if err != nil {
			return err
		}
		fmt.Printf("pushed %s -> %s (gas used: %d)\n", branch, receipt.TxDigest, receipt.GasUsed)
		return nil
	},
}

func init() {
	pushCmd.Flags().Bool("force", false, "overwrite the remote branch even if not a fast-forward")
	rootCmd.AddCommand(pushCmd)
}
