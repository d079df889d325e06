// Package mempool maintains the pools of pending transactions for each chain.
package mempool

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/mempool/selector"
)

// Mempool represents a cache of transactions per chain organized by
// sender:nonce.
type Mempool struct {
	mu       sync.RWMutex
	pools    map[string]map[string]database.BlockTx
	selectFn selector.Func
}

// New constructs a new mempool using the default sort strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyTip)
}

// NewWithStrategy constructs a new mempool with specified sort strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pools:    make(map[string]map[string]database.BlockTx),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transactions in the chain's pool.
func (mp *Mempool) Count(chainID string) int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pools[chainID])
}

// Upsert adds or replaces a transaction in the chain's pool. A transaction
// from the same sender with the same nonce is replaced.
func (mp *Mempool) Upsert(chainID string, tx database.BlockTx) (int, error) {
	if strings.TrimSpace(chainID) == "" {
		return 0, fmt.Errorf("chain id is empty: %w", errs.ErrInvalidArgument)
	}

	if err := tx.Validate(); err != nil {
		return 0, err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	pool, exists := mp.pools[chainID]
	if !exists {
		pool = make(map[string]database.BlockTx)
		mp.pools[chainID] = pool
	}

	pool[mapKey(tx)] = tx

	return len(pool), nil
}

// Delete removes the transactions from the chain's pool.
func (mp *Mempool) Delete(chainID string, trans ...database.BlockTx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	pool := mp.pools[chainID]
	for _, tx := range trans {
		delete(pool, mapKey(tx))
	}
}

// Truncate clears all the transactions from the chain's pool.
func (mp *Mempool) Truncate(chainID string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pools, chainID)
}

// PickBest uses the configured sort strategy to return the next set
// of transactions for the next block. Pass -1 for all the transactions.
func (mp *Mempool) PickBest(chainID string, howMany int) []database.BlockTx {

	// Group the transactions by sender.
	m := make(map[string][]database.BlockTx)
	mp.mu.RLock()
	{
		pool := mp.pools[chainID]
		if howMany == -1 {
			howMany = len(pool)
		}

		for _, tx := range pool {
			m[tx.From] = append(m[tx.From], tx)
		}
	}
	mp.mu.RUnlock()

	return mp.selectFn(m, howMany)
}

// =============================================================================

// mapKey is used to generate the map key.
func mapKey(tx database.BlockTx) string {
	return fmt.Sprintf("%s:%d", tx.From, tx.Nonce)
}
