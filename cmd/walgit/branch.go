package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"walgit/core"
)

var branchCmd = &cobra.Command{
	Use:   "branch [name]",
	Short: "List or create branches",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := ensureRepo()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			refs, err := repo.Refs.List("refs/heads")
			if err != nil {
				return err
			}
			current := currentBranchName(repo)
			for _, r := range refs {
				name := r.Name[len("refs/heads/"):]
				marker := "  "
				if name == current {
					marker = "* "
				}
				fmt.Printf("%s%s\t%s\n", marker, name, r.Target.Short())
			}
			return nil
		}

		name := args[0]
		head, err := repo.Refs.ResolveHead()
		if err != nil {
			return err
		}
		return repo.Refs.Write("refs/heads/"+name, head)
	},
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := ensureRepo()
		if err != nil {
			return err
		}
		if args[0] == currentBranchName(repo) {
			return core.FormatError("cannot delete the currently checked-out branch", nil)
		}
		return repo.Refs.Delete("refs/heads/" + args[0])
	},
}

func init() {
	branchCmd.AddCommand(branchDeleteCmd)
	rootCmd.AddCommand(branchCmd)
}
