package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"walgit/core"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Create a new WalGit repository",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		branch, _ := cmd.Flags().GetString("default-branch")

		repo, _, err := core.Clone(cmd.Context(), core.CloneRequest{
			RepositoryID:  uuid.NewString(),
			Name:          dir,
			DefaultBranch: branch,
			RemoteTarget:  core.ZeroHash,
			LocalRoot:     dir,
		}, nil, nil)
		if err != nil {
			if ce, ok := core.AsCoreError(err); ok && ce.Kind == core.KindNotFound {
				// ZeroHash target with a nil transport: nothing to fetch,
				// treat as a plain local init rather than an error.
			} else {
				return err
			}
		}
		if repo != nil {
			fmt.Printf("initialized empty WalGit repository in %s/.walgit\n", dir)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().String("default-branch", "main", "name of the initial branch")
}

// RegisterInit adds the init command to the root CLI.
func RegisterInit(root *cobra.Command) { root.AddCommand(initCmd) }

func init() { RegisterInit(rootCmd) }
