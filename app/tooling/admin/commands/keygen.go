package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardanlabs/chainsim/foundation/blockchain/wallet"
	"github.com/spf13/cobra"
)

func newKeygenCmd() *cobra.Command {
	var path string

	keygenCmd := &cobra.Command{
		Use:   "keygen NAME...",
		Short: "Generate named private key files for the wallet folder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(path, 0755); err != nil {
				return err
			}

			store := wallet.NewStore(wallet.Config{})

			for _, name := range args {
				fileName := filepath.Join(path, name+".ecdsa")
				if _, err := os.Stat(fileName); err == nil {
					return fmt.Errorf("key file %s already exists", fileName)
				}

				kp, err := store.Create(name)
				if err != nil {
					return err
				}

				if err := kp.Save(fileName); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", kp.Address, fileName)
			}

			return nil
		},
	}

	keygenCmd.Flags().StringVarP(&path, "path", "p", "zblock/accounts/", "Path to the directory with private keys.")

	return keygenCmd
}
