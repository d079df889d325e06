package worker

import (
	"github.com/ardanlabs/chainsim/foundation/blockchain/peer"
)

// Sync simulation parameters.
const (
	syncStep      = 4 // Blocks a node catches up on each sync pass.
	syncThreshold = 2 // Lag at which an ACTIVE node starts syncing.
)

// peerOperations handles keeping the nodes in step with the chain.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.SyncNodes()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}

// SyncNodes moves every live node closer to the tip of the sync chain. An
// ACTIVE node that has fallen behind by more than the threshold switches to
// SYNCING, and a SYNCING node that reaches the tip becomes ACTIVE again.
func (w *Worker) SyncNodes() {
	if w.syncChainID == "" {
		return
	}

	w.evHandler("worker: SyncNodes: started")
	defer w.evHandler("worker: SyncNodes: completed")

	height, err := w.ledger.Height(w.syncChainID)
	if err != nil {
		w.evHandler("worker: SyncNodes: chain[%s]: ERROR: %s", w.syncChainID, err)
		return
	}

	if height < 0 {
		return
	}
	tip := uint64(height)

	for _, node := range w.registry.Nodes() {
		if node.Status != peer.StatusActive && node.Status != peer.StatusSyncing {
			continue
		}

		if err := w.syncNode(node, tip); err != nil {
			w.evHandler("worker: SyncNodes: node[%s]: WARNING: %s", node.ID, err)
		}
	}
}

// syncNode applies one sync pass to the node.
func (w *Worker) syncNode(node peer.Node, tip uint64) error {
	lag, err := w.registry.SyncLag(node.ID, tip)
	if err != nil {
		return err
	}

	if lag == 0 {
		if node.Status == peer.StatusSyncing {
			w.evHandler("viewer: node[%s]: caught up at block[%d]", node.ID, tip)
			_, err := w.registry.UpdateStatus(node.ID, peer.StatusActive)
			return err
		}
		return nil
	}

	if node.Status == peer.StatusActive && lag > syncThreshold {
		w.evHandler("viewer: node[%s]: behind by %d blocks, syncing", node.ID, lag)
		if _, err := w.registry.UpdateStatus(node.ID, peer.StatusSyncing); err != nil {
			return err
		}
	}

	next := node.BlockHeight + min(lag, syncStep)
	if _, err := w.registry.UpdateBlockHeight(node.ID, next, false); err != nil {
		return err
	}

	return nil
}
