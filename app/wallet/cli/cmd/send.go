package cmd

import (
	"fmt"

	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/wallet"
	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var (
		chainID string
		nonce   uint64
		to      string
		value   uint64
		tip     uint64
		data    []byte
	)

	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Send transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := address()
			if err != nil {
				return err
			}

			toAddr, err := wallet.ParseAddress(to)
			if err != nil {
				return err
			}

			tx := database.BlockTx{
				From:  from,
				To:    toAddr,
				Value: value,
				Tip:   tip,
				Nonce: nonce,
				Data:  data,
			}

			if err := call("POST", fmt.Sprintf("/v1/chains/%s/tx", chainID), tx, nil); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sent %d from %s to %s\n", value, from, toAddr)
			return nil
		},
	}

	sendCmd.Flags().StringVarP(&chainID, "chain", "c", "", "Id of the chain.")
	sendCmd.Flags().Uint64VarP(&nonce, "nonce", "n", 0, "Sequence number of the transaction for the account.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address of the receiver.")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
	sendCmd.Flags().Uint64Var(&tip, "tip", 0, "Tip to send.")
	sendCmd.Flags().BytesHexVarP(&data, "data", "d", nil, "Data to send.")
	sendCmd.MarkFlagRequired("chain")
	sendCmd.MarkFlagRequired("to")

	return sendCmd
}
