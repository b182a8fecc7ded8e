package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"walgit/core"
)

var stashCmd = &cobra.Command{
	Use:   "stash",
	Short: "Save and list working-tree snapshots",
}

var stashPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Save the current working tree as a stash entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")
		repo, err := ensureRepo()
		if err != nil {
			return err
		}
		dek, err := core.NewDEK()
		if err != nil {
			return err
		}
		tree, _, err := buildWorkingTree(repo, repo.Repository.LocalRoot, dek)
		if err != nil {
			return err
		}
		store := core.NewStashStore(repo.Repository.WalgitDir())
		branchRef := "refs/heads/" + currentBranchName(repo)
		if err := store.Push(message, tree.Hash, branchRef, uuid.NewString(), dek); err != nil {
			return err
		}
		fmt.Println("saved working tree as a stash entry")
		return nil
	},
}

var stashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stash entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := ensureRepo()
		if err != nil {
			return err
		}
		store := core.NewStashStore(repo.Repository.WalgitDir())
		entries, err := store.List()
		if err != nil {
			return err
		}
		for i, e := range entries {
			fmt.Printf("stash@{%d}: %s %s\n", i, e.Tree.Short(), e.Message)
		}
		return nil
	},
}

var stashPopCmd = &cobra.Command{
	Use:   "pop",
	Short: "Remove and report the most recent stash entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := ensureRepo()
		if err != nil {
			return err
		}
		store := core.NewStashStore(repo.Repository.WalgitDir())
		entry, err := store.Pop()
		if err != nil {
			return err
		}
		written, err := repo.Materialize(cmdContext(), repo.Repository.LocalRoot, entry)
		if err != nil {
			return err
		}
		fmt.Printf("popped stash entry %s (tree %s)\n", entry.ID, entry.Tree.Short())
		for _, p := range written {
			fmt.Printf("restored: %s\n", p)
		}
		return nil
	},
}

func init() {
	stashPushCmd.Flags().StringP("message", "m", "", "stash message")
	stashCmd.AddCommand(stashPushCmd, stashListCmd, stashPopCmd)
	rootCmd.AddCommand(stashCmd)
}
