package cmd

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate new key pair",
		RunE:  generateRun,
	}
}

func generateRun(cmd *cobra.Command, args []string) error {
	path := getPrivateKeyPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("key file %s already exists", path)
	}

	if err := os.MkdirAll(accountPath, 0755); err != nil {
		return err
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}

	if err := crypto.SaveECDSA(path, privateKey); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), crypto.PubkeyToAddress(privateKey.PublicKey).Hex())
	return nil
}
