package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"walgit/core"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <branch> <remote-commit-hash>",
	Short: "Download new commits for a remote branch without updating local branches",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := ensureRepo()
		if err != nil {
			return err
		}
		remoteTarget, err := core.HashFromHex(args[1])
		if err != nil {
			return core.FormatError("invalid commit hash", err)
		}
		result, err := repo.Fetch(cmdContext(), core.FetchRequest{Branch: "refs/heads/" + args[0], RemoteTarget: remoteTarget})
		if err != nil {
			return err
		}
		fmt.Printf("fetched %d new commit(s)\n", len(result.NewCommits))
		return nil
	},
}

func init() { rootCmd.AddCommand(fetchCmd) }
