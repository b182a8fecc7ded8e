package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"walgit/core"
	"walgit/core/blobclient"
	"walgit/core/ledgerclient"
	walgitcfg "walgit/pkg/config"
)

var cloneCmd = &cobra.Command{
	Use:   "clone <remote-commit-hash> [directory]",
	Short: "Clone a repository's default branch into a new directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		remoteTarget, err := core.HashFromHex(args[0])
		if err != nil {
			return core.FormatError("invalid commit hash", err)
		}
		dir := "repo"
		if len(args) > 1 {
			dir = args[1]
		}

		cfg := walgitcfg.AppConfig
		local, err := core.NewLocalStore(dir + "/.walgit")
		if err != nil {
			return err
		}
		var client blobclient.Client = blobclient.NewHTTPClient(cfg.Transport.GatewayURL)
		transport := core.NewRemoteTransport(client)
		objects := core.NewObjectStore(local, nil, transport)

		var ledger ledgerclient.Client
		if cfg.Network.UseBlockchain {
			grpcClient, err := ledgerclient.Dial(cfg.Network.LedgerEndpoint)
			if err != nil {
				return err
			}
			ledger = grpcClient
		} else {
			ledger = ledgerclient.NewFake()
		}
		engine := core.NewTxEngine(ledger)

		signer, err := loadSigner()
		if err != nil {
			return err
		}

		_, result, err := core.Clone(cmdContext(), core.CloneRequest{
			RepositoryID:  uuid.NewString(),
			Name:          dir,
			DefaultBranch: "main",
			RemoteTarget:  remoteTarget,
			LocalRoot:     dir,
			Keyring:       core.DeriveKeyring(signer),
		}, objects, engine)
		if err != nil {
			return err
		}
		fmt.Printf("cloned into %s (%d commits)\n", dir, len(result.NewCommits))
		return nil
	},
}

func init() { rootCmd.AddCommand(cloneCmd) }
