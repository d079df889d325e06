package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAddressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the address for the specific wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := address()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
}
