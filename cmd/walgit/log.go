package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"walgit/core"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show commit history reachable from HEAD",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := ensureRepo()
		if err != nil {
			return err
		}
		head, err := repo.Refs.ResolveHead()
		if err != nil {
			return err
		}
		ancestry, err := core.Ancestors(cmdContext(), repo, head)
		if err != nil {
			return err
		}
		for _, h := range ancestry {
			c, err := repo.LoadCommit(cmdContext(), h)
			if err != nil {
				return err
			}
			fmt.Printf("commit %s\nAuthor: %s\nDate:   %s\n\n    %s\n\n", h.String(), c.Author.Hex(), c.Timestamp, c.Message)
		}
		return nil
	},
}

func init() { rootCmd.AddCommand(logCmd) }
