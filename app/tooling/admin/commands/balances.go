package commands

import (
	"fmt"
	"slices"

	"github.com/ardanlabs/chainsim/foundation/blockchain/ledger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newBalancesCmd(log *zap.SugaredLogger) *cobra.Command {
	var path string
	var chainID string

	balancesCmd := &cobra.Command{
		Use:   "balances [ADDRESS]",
		Short: "Print the balances on a chain",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedger(log, path)
			if err != nil {
				return err
			}
			defer l.Shutdown()

			addresses := args
			if len(addresses) == 0 {
				if addresses, err = participants(l, chainID); err != nil {
					return err
				}
			}

			for _, addr := range addresses {
				bal, err := l.Balance(chainID, addr)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Account: %s  Received: %d  Sent: %d  Txs: %d\n", bal.Address, bal.Received, bal.Sent, bal.TxCount)
			}

			return nil
		},
	}

	balancesCmd.Flags().StringVarP(&path, "path", "p", "zblock/data", "Path to the disk storage.")
	balancesCmd.Flags().StringVarP(&chainID, "chain", "c", "", "Id of the chain.")
	balancesCmd.MarkFlagRequired("chain")

	return balancesCmd
}

// participants returns every address that sent or received value on the
// chain.
func participants(l *ledger.Ledger, chainID string) ([]string, error) {
	info, err := l.Chain(chainID)
	if err != nil {
		return nil, err
	}

	blocks, err := l.Blocks(chainID, 0, int(info.Height)+1)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, block := range blocks {
		for _, tx := range block.Trans {
			seen[tx.From] = true
			seen[tx.To] = true
		}
	}

	addresses := make([]string, 0, len(seen))
	for addr := range seen {
		addresses = append(addresses, addr)
	}
	slices.Sort(addresses)

	return addresses, nil
}
