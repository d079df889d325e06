package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/genesis"
	"github.com/ardanlabs/chainsim/foundation/blockchain/ledger"
	"github.com/ardanlabs/chainsim/foundation/blockchain/mempool"
	"github.com/ardanlabs/chainsim/foundation/blockchain/peer"
	"github.com/ardanlabs/chainsim/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/chainsim/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/chainsim/foundation/blockchain/wallet"
	"github.com/ardanlabs/chainsim/foundation/blockchain/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// storage is what a simulation persists chains and nodes with.
type storage interface {
	database.Storage
	peer.Storage
}

type simulateArgs struct {
	genesisFile string
	path        string
	accounts    int
	txs         int
	timeout     time.Duration
}

func newSimulateCmd(log *zap.SugaredLogger) *cobra.Command {
	var args simulateArgs

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Mine a batch of random transactions and print the resulting state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return simulate(cmd, log, args)
		},
	}

	simulateCmd.Flags().StringVarP(&args.genesisFile, "genesis", "g", "", "Path to a genesis file, the default genesis when empty.")
	simulateCmd.Flags().StringVarP(&args.path, "path", "p", "", "Path to disk storage, memory storage when empty.")
	simulateCmd.Flags().IntVarP(&args.accounts, "accounts", "a", 4, "Number of accounts moving value.")
	simulateCmd.Flags().IntVarP(&args.txs, "txs", "n", 25, "Number of transactions submitted to each chain.")
	simulateCmd.Flags().DurationVarP(&args.timeout, "timeout", "t", time.Minute, "How long to wait for the transactions to be mined.")

	return simulateCmd
}

func simulate(cmd *cobra.Command, log *zap.SugaredLogger, args simulateArgs) error {
	if args.accounts < 2 || args.txs < 1 {
		return errors.New("simulate needs at least 2 accounts and 1 transaction")
	}

	gen := genesis.Default()
	if args.genesisFile != "" {
		var err error
		if gen, err = genesis.Load(args.genesisFile); err != nil {
			return err
		}
	}

	ev := func(v string, a ...any) {
		log.Debugw(fmt.Sprintf(v, a...))
	}

	var store storage
	var err error
	switch args.path {
	case "":
		store, err = memory.New()
	default:
		store, err = disk.New(args.path)
	}
	if err != nil {
		return fmt.Errorf("constructing storage: %w", err)
	}

	ldg, err := ledger.New(ledger.Config{
		Storage:           store,
		DefaultDifficulty: gen.Difficulty,
		MaxSealAttempts:   gen.MaxSealAttempts,
		MaxStaleRetries:   gen.MaxStaleRetries,
		EvHandler:         ev,
	})
	if err != nil {
		store.Close()
		return fmt.Errorf("constructing ledger: %w", err)
	}
	defer ldg.Shutdown()

	registry, err := peer.NewRegistry(peer.Config{Storage: store, EvHandler: ev})
	if err != nil {
		return fmt.Errorf("constructing registry: %w", err)
	}
	graph := peer.NewGraph(registry)

	if err := gen.Apply(cmd.Context(), ldg, registry, graph); err != nil {
		return fmt.Errorf("applying genesis: %w", err)
	}

	mp, err := mempool.NewWithStrategy(gen.Strategy)
	if err != nil {
		return err
	}

	miners := gen.Miners
	if len(miners) == 0 {
		miners = []string{"admin"}
	}

	chains := ldg.Chains()
	if len(chains) == 0 {
		return errors.New("genesis has no chains to simulate")
	}

	wrk, err := worker.Run(worker.Config{
		Ledger:        ldg,
		Mempool:       mp,
		Registry:      registry,
		Miners:        miners,
		TransPerBlock: gen.TransPerBlock,
		SyncChainID:   chains[0].ID,
		SyncInterval:  time.Hour,
		EvHandler:     ev,
	})
	if err != nil {
		return err
	}
	defer wrk.Shutdown()

	// -------------------------------------------------------------------------
	// Submit the transactions.

	wallets := wallet.NewStore(wallet.Config{})
	addrs := make([]string, args.accounts)
	for i := range addrs {
		kp, err := wallets.Create(fmt.Sprintf("account-%d", i))
		if err != nil {
			return err
		}
		addrs[i] = kp.Address
	}

	want := make(map[string]uint64)
	for _, info := range chains {
		start, err := ldg.Status(info.ID)
		if err != nil {
			return err
		}
		want[info.ID] = start.TotalValue

		nonces := make(map[string]uint64)
		for i := range args.txs {
			from := addrs[i%len(addrs)]
			to := addrs[(i+1)%len(addrs)]
			nonces[from]++

			tx := database.BlockTx{
				From:  from,
				To:    to,
				Value: uint64(i%10 + 1),
				Tip:   uint64(i % 3),
				Nonce: nonces[from],
				Data:  []byte("simulate"),
			}

			if err := wrk.SignalShareTx(info.ID, tx); err != nil {
				return err
			}
			want[info.ID] += tx.Value
		}
	}

	// -------------------------------------------------------------------------
	// Wait for the chains to carry every transaction.

	ctx, cancel := context.WithTimeout(cmd.Context(), args.timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for !mined(ldg, mp, want) {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("waiting for transactions to be mined: %w", ctx.Err())
		}
	}

	// Give lagging nodes enough rounds to catch up.
	for range 4 {
		wrk.SyncNodes()
	}

	// -------------------------------------------------------------------------
	// Report.

	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "CHAINS")
	for _, info := range chains {
		status, err := ldg.Status(info.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s name[%s] consensus[%s] height[%d] blocks[%d] value[%d] valid[%t]\n",
			status.ID, status.Name, status.Consensus, status.Height, status.Blocks, status.TotalValue, status.Valid)
	}

	fmt.Fprintln(out, "NODES")
	for _, node := range registry.Nodes() {
		fmt.Fprintf(out, "  %-10s type[%s] status[%s] trusted[%t] height[%d] peers%v\n",
			node.ID, node.Type, node.Status, node.Trusted, node.BlockHeight, node.Peers)
	}

	return nil
}

// mined reports whether every chain's pool is empty and the chain carries
// the expected value.
func mined(ldg *ledger.Ledger, mp *mempool.Mempool, want map[string]uint64) bool {
	for chainID, value := range want {
		if mp.Count(chainID) > 0 {
			return false
		}

		status, err := ldg.Status(chainID)
		if err != nil || status.TotalValue != value {
			return false
		}
	}

	return true
}
