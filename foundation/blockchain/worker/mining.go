package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/peer"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			for _, chainID := range w.takePending() {
				if w.isShutdown() {
					break
				}
				w.runMiningOperation(chainID)
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation takes the best transactions from the chain's mempool and
// has every eligible miner race to seal them. The first block appended wins,
// the other miners are cancelled or find their seal stale.
func (w *Worker) runMiningOperation(chainID string) {
	w.evHandler("worker: runMiningOperation: MINING: chain[%s]: started", chainID)
	defer w.evHandler("worker: runMiningOperation: MINING: chain[%s]: completed", chainID)

	miners := w.eligibleMiners()
	if len(miners) == 0 {
		w.evHandler("worker: runMiningOperation: MINING: chain[%s]: no eligible miners", chainID)
		return
	}

	// Every miner in this operation must seal on top of this block. A miner
	// that reads the tip after the winner is appended would seal the same
	// transactions again one height higher.
	parent, err := w.tip(chainID)
	if err != nil {
		w.evHandler("worker: runMiningOperation: MINING: chain[%s]: ERROR: %s", chainID, err)
		return
	}

	// Make sure there are transactions in the mempool.
	trans := w.mempool.PickBest(chainID, w.transPerBlock)
	if len(trans) == 0 {
		w.evHandler("worker: runMiningOperation: MINING: chain[%s]: no transactions to mine", chainID)
		return
	}

	// After running a mining operation, check if a new operation should
	// be signaled again.
	defer func() {
		length := w.mempool.Count(chainID)
		if length > 0 && !w.isShutdown() {
			w.evHandler("worker: runMiningOperation: MINING: chain[%s]: signal new mining operation: Txs[%d]", chainID, length)
			w.SignalStartMining(chainID)
		}
	}()

	// If mining is signalled to be cancelled, this G can't terminate until
	// it is told it can.
	var wait chan struct{}
	defer func() {
		if wait != nil {
			w.evHandler("worker: runMiningOperation: MINING: termination signal: waiting")
			<-wait
			w.evHandler("worker: runMiningOperation: MINING: termination signal: received")
		}
	}()

	// Drain the cancel mining channel before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	// Create a context so mining can be cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// This G exists to cancel the mining operation. It is not part of the
	// miners' waitgroup so it can be told to stop once they are done.
	cancelDone := make(chan struct{})
	go func() {
		defer close(cancelDone)

		select {
		case wait = <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Can't return from this function until the miners are complete.
	var wg sync.WaitGroup
	wg.Add(len(miners))

	for _, miner := range miners {
		go func(miner string) {
			defer wg.Done()

			t := time.Now()
			block, err := w.ledger.SealBlock(ctx, chainID, trans, miner)
			duration := time.Since(t)

			if err != nil {
				switch {
				case ctx.Err() != nil:
					w.evHandler("worker: runMiningOperation: MINING: miner[%s]: CANCEL: complete", miner)
				default:
					w.evHandler("worker: runMiningOperation: MINING: miner[%s]: ERROR: %s", miner, err)
				}
				return
			}

			if block.Header.PrevBlockHash != parent.Hash() {
				w.evHandler("worker: runMiningOperation: MINING: miner[%s]: lost race: sealed blk[%d] past the operation's tip", miner, block.Header.Number)
				return
			}

			if err := w.ledger.AppendBlock(chainID, block); err != nil {
				switch {
				case errors.Is(err, errs.ErrStaleSeal):
					w.evHandler("worker: runMiningOperation: MINING: miner[%s]: lost race: %s", miner, err)
				default:
					w.evHandler("worker: runMiningOperation: MINING: miner[%s]: ERROR: %s", miner, err)
				}
				return
			}

			// WOW, we mined a block. Stop the other miners.
			cancel()

			w.evHandler("worker: runMiningOperation: MINING: miner[%s]: won block[%d]: duration[%v]", miner, block.Header.Number, duration)

			w.mempool.Delete(chainID, block.Trans...)

			if _, exists := w.registry.Node(miner); exists {
				if _, err := w.registry.UpdateBlockHeight(miner, block.Header.Number, false); err != nil {
					w.evHandler("worker: runMiningOperation: MINING: miner[%s]: WARNING: %s", miner, err)
				}
			}
		}(miner)
	}

	// Wait for the miners, then release the cancel G.
	wg.Wait()
	cancel()
	<-cancelDone
}

// tip returns the current tip of the chain.
func (w *Worker) tip(chainID string) (database.Block, error) {
	height, err := w.ledger.Height(chainID)
	if err != nil {
		return database.Block{}, err
	}

	if height < 0 {
		return database.Block{}, fmt.Errorf("chain %q has no blocks", chainID)
	}

	block, _, err := w.ledger.BlockByHeight(chainID, uint64(height))
	return block, err
}

// eligibleMiners returns the configured miners that are allowed to mine.
// A miner that is not in the registry mines on its own, a registered one
// must be ACTIVE.
func (w *Worker) eligibleMiners() []string {
	var miners []string
	for _, miner := range w.miners {
		node, exists := w.registry.Node(miner)
		if exists && node.Status != peer.StatusActive {
			continue
		}
		miners = append(miners, miner)
	}

	return miners
}
