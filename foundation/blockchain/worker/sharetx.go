package worker

import (
	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
)

// maxTxShareRequests represents the max number of pending tx share requests
// that can be outstanding before share requests are dropped. To keep this
// simple, a buffered channel of this arbitrary number is being used. If the
// channel does become full, requests for new transactions to be shared will
// not be accepted.
const maxTxShareRequests = 100

// submission is a transaction headed for a chain's mempool.
type submission struct {
	chainID string
	tx      database.BlockTx
}

// =============================================================================

// shareTxOperations handles sharing new block transactions.
func (w *Worker) shareTxOperations() {
	w.evHandler("worker: shareTxOperations: G started")
	defer w.evHandler("worker: shareTxOperations: G completed")

	for {
		select {
		case sub := <-w.txSharing:
			if !w.isShutdown() {
				w.runShareTxOperation(sub)
			}
		case <-w.shut:
			w.evHandler("worker: shareTxOperations: received shut signal")
			return
		}
	}
}

// runShareTxOperation adds the transaction to the chain's mempool and
// signals the miners.
func (w *Worker) runShareTxOperation(sub submission) {
	w.evHandler("worker: runShareTxOperation: started")
	defer w.evHandler("worker: runShareTxOperation: completed")

	if _, err := w.ledger.Chain(sub.chainID); err != nil {
		w.evHandler("worker: runShareTxOperation: WARNING: %s", err)
		return
	}

	n, err := w.mempool.Upsert(sub.chainID, sub.tx)
	if err != nil {
		w.evHandler("worker: runShareTxOperation: WARNING: %s", err)
		return
	}

	w.evHandler("viewer: chain[%s]: tx[%s] added to mempool: Txs[%d]", sub.chainID, sub.tx, n)
	w.SignalStartMining(sub.chainID)
}
