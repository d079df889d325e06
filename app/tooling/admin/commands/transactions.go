package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTransactionsCmd(log *zap.SugaredLogger) *cobra.Command {
	var path string
	var chainID string

	transCmd := &cobra.Command{
		Use:   "transactions [ADDRESS]",
		Short: "Print the transactions on a chain, oldest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedger(log, path)
			if err != nil {
				return err
			}
			defer l.Shutdown()

			var address string
			if len(args) == 1 {
				address = args[0]
			}

			info, err := l.Chain(chainID)
			if err != nil {
				return err
			}

			for height := uint64(0); int64(height) <= info.Height; height++ {
				block, found, err := l.BlockByHeight(chainID, height)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("block %d is missing", height)
				}

				for _, tx := range block.Trans {
					if address != "" && !strings.EqualFold(tx.From, address) && !strings.EqualFold(tx.To, address) {
						continue
					}

					fmt.Fprintf(cmd.OutOrStdout(), "Block: %d  Hash: %s  From: %s  To: %s  Value: %d  Tip: %d  Nonce: %d\n",
						height, tx.HashHex(), tx.From, tx.To, tx.Value, tx.Tip, tx.Nonce)
				}
			}

			return nil
		},
	}

	transCmd.Flags().StringVarP(&path, "path", "p", "zblock/data", "Path to the disk storage.")
	transCmd.Flags().StringVarP(&chainID, "chain", "c", "", "Id of the chain.")
	transCmd.MarkFlagRequired("chain")

	return transCmd
}
