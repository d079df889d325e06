// Package commands contains the admin commands.
package commands

import (
	"fmt"

	"github.com/ardanlabs/chainsim/foundation/blockchain/genesis"
	"github.com/ardanlabs/chainsim/foundation/blockchain/ledger"
	"github.com/ardanlabs/chainsim/foundation/blockchain/storage/disk"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCmd constructs the admin command tree.
func NewRootCmd(log *zap.SugaredLogger, build string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Administrative tasks for the blockchain simulator",
		Version:       build,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newSimulateCmd(log),
		newVerifyCmd(log),
		newKeygenCmd(),
		newBalancesCmd(log),
		newTransactionsCmd(log),
	)

	return rootCmd
}

// openLedger loads the chains kept in the disk storage at the path.
func openLedger(log *zap.SugaredLogger, path string) (*ledger.Ledger, error) {
	store, err := disk.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	gen := genesis.Default()

	l, err := ledger.New(ledger.Config{
		Storage:           store,
		DefaultDifficulty: gen.Difficulty,
		MaxSealAttempts:   gen.MaxSealAttempts,
		MaxStaleRetries:   gen.MaxStaleRetries,
		EvHandler: func(v string, args ...any) {
			log.Debugw(fmt.Sprintf(v, args...))
		},
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("loading ledger: %w", err)
	}

	return l, nil
}
