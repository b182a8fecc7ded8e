// Command walgit is the WalGit CLI front-end, structured the way
// cmd/synnergy/main.go's flat root command plus cmd/cli's per-file
// command groups are structured in the teacher repo: one root cobra
// command, one file per command group, each with an init() that wires
// its commands onto the root.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	walgitcfg "walgit/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "walgit",
	Short: "WalGit: decentralized version control over a content-addressed store",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load() // optional .env in the working directory; absence is not an error
		env, _ := cmd.Flags().GetString("env")
		_, err := walgitcfg.Load(env)
		return err
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "config environment to merge over default.yaml (devnet, testnet)")
}
