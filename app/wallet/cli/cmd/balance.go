package cmd

import (
	"fmt"

	"github.com/ardanlabs/chainsim/foundation/blockchain/ledger"
	"github.com/spf13/cobra"
)

func newBalanceCmd() *cobra.Command {
	var chainID string

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Print your balance on a chain.",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := address()
			if err != nil {
				return err
			}

			var bal ledger.Balance
			if err := call("GET", fmt.Sprintf("/v1/wallets/%s/balance/%s", addr, chainID), nil, &bal); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "For Account: %s\nReceived: %d\nSent: %d\nTransactions: %d\n", addr, bal.Received, bal.Sent, bal.TxCount)
			return nil
		},
	}

	balanceCmd.Flags().StringVarP(&chainID, "chain", "c", "", "Id of the chain.")
	balanceCmd.MarkFlagRequired("chain")

	return balanceCmd
}
