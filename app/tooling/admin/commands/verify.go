package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newVerifyCmd(log *zap.SugaredLogger) *cobra.Command {
	var path string

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Validate every chain kept in storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedger(log, path)
			if err != nil {
				return err
			}
			defer l.Shutdown()

			var invalid int
			for _, info := range l.Chains() {
				status, err := l.Status(info.ID)
				if err != nil {
					return err
				}

				result := "VALID"
				if !status.Valid {
					result = "INVALID"
					invalid++
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s  name[%s] height[%d] difficulty[%d] value[%d]\n",
					result, status.ID, status.Name, status.Height, status.Difficulty, status.TotalValue)
			}

			if invalid > 0 {
				return fmt.Errorf("%d chains failed validation", invalid)
			}

			return nil
		},
	}

	verifyCmd.Flags().StringVarP(&path, "path", "p", "zblock/data", "Path to the disk storage.")

	return verifyCmd
}
