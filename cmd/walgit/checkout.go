package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"walgit/core"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout <branch>",
	Short: "Switch HEAD to a branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := ensureRepo()
		if err != nil {
			return err
		}
		branch := args[0]
		ref := "refs/heads/" + branch
		if _, err := repo.Refs.Read(ref); err != nil {
			return core.NotFoundError("branch", branch)
		}
		if err := repo.Refs.SetHeadSymbolic(ref); err != nil {
			return err
		}
		fmt.Printf("switched to branch '%s'\n", branch)
		return nil
	},
}

func init() { rootCmd.AddCommand(checkoutCmd) }
