// Package worker implements the simulated miners, node syncing, and
// transaction intake for the blockchains.
package worker

import (
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/ledger"
	"github.com/ardanlabs/chainsim/foundation/blockchain/mempool"
	"github.com/ardanlabs/chainsim/foundation/blockchain/peer"
	"github.com/ardanlabs/chainsim/foundation/validate"
)

// EventHandler defines a function that is called when events
// occur in the processing of the worker.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to run the worker.
type Config struct {
	Ledger        *ledger.Ledger   `validate:"required"`
	Mempool       *mempool.Mempool `validate:"required"`
	Registry      *peer.Registry   `validate:"required"`
	Miners        []string         `validate:"required,min=1,dive,required"`
	TransPerBlock int              `validate:"min=1"`
	SyncChainID   string           // Chain node heights are tracked against, empty disables syncing.
	SyncInterval  time.Duration    `validate:"required"`
	EvHandler     EventHandler
}

// =============================================================================

// Worker manages the mining and sync workflows for the blockchains.
type Worker struct {
	ledger        *ledger.Ledger
	mempool       *mempool.Mempool
	registry      *peer.Registry
	miners        []string
	transPerBlock int
	syncChainID   string

	wg           sync.WaitGroup
	ticker       *time.Ticker
	shut         chan struct{}
	startMining  chan struct{}
	cancelMining chan chan struct{}
	txSharing    chan submission
	evHandler    EventHandler

	mu      sync.Mutex
	pending map[string]bool
}

// Run creates a worker and starts up all the background processes.
func Run(cfg Config) (*Worker, error) {
	if err := validate.Check(cfg); err != nil {
		return nil, fmt.Errorf("worker config: %w: %w", errs.ErrInvalidArgument, err)
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	w := Worker{
		ledger:        cfg.Ledger,
		mempool:       cfg.Mempool,
		registry:      cfg.Registry,
		miners:        cfg.Miners,
		transPerBlock: cfg.TransPerBlock,
		syncChainID:   cfg.SyncChainID,
		ticker:        time.NewTicker(cfg.SyncInterval),
		shut:          make(chan struct{}),
		startMining:   make(chan struct{}, 1),
		cancelMining:  make(chan chan struct{}, 1),
		txSharing:     make(chan submission, maxTxShareRequests),
		evHandler:     ev,
		pending:       make(map[string]bool),
	}

	// Load the set of operations we need to run.
	operations := []func(){
		w.peerOperations,
		w.miningOperations,
		w.shareTxOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w, nil
}

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop ticker")
	w.ticker.Stop()

	w.evHandler("worker: shutdown: signal cancel mining")
	done := w.SignalCancelMining()
	done()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining starts a mining operation for the chain. If there is
// already a signal pending in the channel, the chain is added to the set of
// chains that operation will mine.
func (w *Worker) SignalStartMining(chainID string) {
	w.mu.Lock()
	w.pending[chainID] = true
	w.mu.Unlock()

	select {
	case w.startMining <- struct{}{}:
	default:
	}
	w.evHandler("worker: SignalStartMining: chain[%s]: mining signaled", chainID)
}

// SignalCancelMining signals the G executing the runMiningOperation function
// to stop immediately. That G will not return from the function until done
// is called. This allows the caller to complete any state changes before a
// new mining operation takes place.
func (w *Worker) SignalCancelMining() (done func()) {
	wait := make(chan struct{})

	select {
	case w.cancelMining <- wait:
	default:
	}
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")

	return func() { close(wait) }
}

// SignalShareTx signals a transaction to be added to the chain's mempool.
// If maxTxShareRequests signals exist in the channel, we won't accept it.
func (w *Worker) SignalShareTx(chainID string, tx database.BlockTx) error {
	select {
	case w.txSharing <- submission{chainID: chainID, tx: tx}:
		w.evHandler("worker: SignalShareTx: chain[%s]: share Tx signaled", chainID)
		return nil
	default:
		w.evHandler("worker: SignalShareTx: queue full, transactions won't be shared.")
		return fmt.Errorf("transaction queue is full: %w", errs.ErrInvalidArgument)
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

// takePending returns the chains waiting to be mined and clears the set.
func (w *Worker) takePending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	chains := make([]string, 0, len(w.pending))
	for chainID := range w.pending {
		chains = append(chains, chainID)
	}
	clear(w.pending)

	return chains
}
