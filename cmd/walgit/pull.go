package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"walgit/core"
)

var pullCmd = &cobra.Command{
	Use:   "pull <remote-commit-hash>",
	Short: "Fetch, fast-forward the current branch, and materialize changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := ensureRepo()
		if err != nil {
			return err
		}
		remoteTarget, err := core.HashFromHex(args[0])
		if err != nil {
			return core.FormatError("invalid commit hash", err)
		}
		signer, err := loadSigner()
		if err != nil {
			return err
		}
		branch := "refs/heads/" + currentBranchName(repo)
		result, err := repo.Pull(cmdContext(), core.FetchRequest{Branch: branch, RemoteTarget: remoteTarget}, core.DeriveKeyring(signer))
		if err != nil {
			return err
		}
		fmt.Printf("fast-forwarded %s to %s\n", branch, remoteTarget.Short())
		for _, p := range result.Conflicts {
			fmt.Printf("conflict: %s (local copy saved as %s.local)\n", p, p)
		}
		for _, p := range result.UpdatedFiles {
			fmt.Printf("updated: %s\n", p)
		}
		return nil
	},
}

func init() { rootCmd.AddCommand(pullCmd) }
