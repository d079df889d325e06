package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/ardanlabs/chainsim/foundation/blockchain/consensus"
	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/merkle"
)

// ChainInfo describes a chain without its blocks.
type ChainInfo struct {
	ID         string                      `json:"id"`
	Name       string                      `json:"name"`
	Consensus  consensus.Type              `json:"consensus"`
	Difficulty uint                        `json:"difficulty"`
	Schedule   []database.DifficultyChange `json:"schedule"`
	Height     int64                       `json:"height"` // -1 when the chain has no blocks.
	CreatedAt  time.Time                   `json:"created_at"`
}

// Status is a summary of the state of a chain.
type Status struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Consensus  consensus.Type `json:"consensus"`
	Height     int64          `json:"height"`
	Blocks     int            `json:"blocks"`
	TotalValue uint64         `json:"total_value"`
	Difficulty uint           `json:"difficulty"`
	Valid      bool           `json:"valid"`
}

// Balance is the value moved to and from an address on a chain.
type Balance struct {
	Address  string `json:"address"`
	Received uint64 `json:"received"`
	Sent     uint64 `json:"sent"`
	TxCount  int    `json:"tx_count"`
}

// TxInclusion shows a transaction is committed to by the merkle root of the
// block that holds it.
type TxInclusion struct {
	ChainID   string           `json:"chain_id"`
	Height    uint64           `json:"height"`
	BlockHash string           `json:"block_hash"`
	TransRoot string           `json:"trans_root"`
	Tx        database.BlockTx `json:"tx"`
	Proof     merkle.Proof     `json:"proof"`
}

// =============================================================================

// Chains returns every chain in the order they were created.
func (l *Ledger) Chains() []ChainInfo {
	l.mu.RLock()
	states := make([]*chainState, len(l.order))
	for i, id := range l.order {
		states[i] = l.chains[id]
	}
	l.mu.RUnlock()

	infos := make([]ChainInfo, len(states))
	for i, cs := range states {
		cs.mu.RLock()
		infos[i] = cs.info()
		cs.mu.RUnlock()
	}

	return infos
}

// Chain returns the information about the specified chain.
func (l *Ledger) Chain(chainID string) (ChainInfo, error) {
	cs, err := l.state(chainID)
	if err != nil {
		return ChainInfo{}, err
	}

	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return cs.info(), nil
}

// Height returns the height of the chain's tip, -1 if it has no blocks.
func (l *Ledger) Height(chainID string) (int64, error) {
	cs, err := l.state(chainID)
	if err != nil {
		return 0, err
	}

	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return int64(cs.chain.Len()) - 1, nil
}

// BlockByHeight returns the block at the specified height. A height past the
// tip is reported as not found, not as an error.
func (l *Ledger) BlockByHeight(chainID string, height uint64) (database.Block, bool, error) {
	cs, err := l.state(chainID)
	if err != nil {
		return database.Block{}, false, err
	}

	cs.mu.RLock()
	defer cs.mu.RUnlock()

	block, exists := cs.chain.BlockByHeight(height)
	return block, exists, nil
}

// BlockByHash returns the block with the specified hash.
func (l *Ledger) BlockByHash(chainID string, hash string) (database.Block, bool, error) {
	cs, err := l.state(chainID)
	if err != nil {
		return database.Block{}, false, err
	}

	cs.mu.RLock()
	defer cs.mu.RUnlock()

	block, exists := cs.chain.BlockByHash(hash)
	return block, exists, nil
}

// Blocks returns up to limit blocks, newest first, after skipping offset
// blocks from the tip.
func (l *Ledger) Blocks(chainID string, offset int, limit int) ([]database.Block, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("offset %d limit %d: %w", offset, limit, errs.ErrInvalidArgument)
	}

	cs, err := l.state(chainID)
	if err != nil {
		return nil, err
	}

	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return cs.chain.Page(offset, limit), nil
}

// TxProof returns the inclusion proof for the transaction with the specified
// hash in the block at the specified height. A missing block or transaction is
// reported as not found, not as an error.
func (l *Ledger) TxProof(chainID string, height uint64, txHash string) (TxInclusion, bool, error) {
	cs, err := l.state(chainID)
	if err != nil {
		return TxInclusion{}, false, err
	}

	cs.mu.RLock()
	block, exists := cs.chain.BlockByHeight(height)
	cs.mu.RUnlock()

	if !exists {
		return TxInclusion{}, false, nil
	}

	for i, tx := range block.Trans {
		if !strings.EqualFold(tx.HashHex(), txHash) {
			continue
		}

		proof, err := database.TxProof(block.Trans, i)
		if err != nil {
			return TxInclusion{}, false, fmt.Errorf("proof: %w", err)
		}

		inc := TxInclusion{
			ChainID:   chainID,
			Height:    height,
			BlockHash: block.Hash(),
			TransRoot: block.Header.TransRoot,
			Tx:        tx,
			Proof:     proof,
		}

		return inc, true, nil
	}

	return TxInclusion{}, false, nil
}

// LatestBlocks returns up to n blocks from the tip, newest first.
func (l *Ledger) LatestBlocks(chainID string, n int) ([]database.Block, error) {
	return l.Blocks(chainID, 0, n)
}

// Balance totals the value sent and received by the address on the chain.
// Addresses are matched without regard to case.
func (l *Ledger) Balance(chainID string, address string) (Balance, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Balance{}, fmt.Errorf("address is empty: %w", errs.ErrInvalidArgument)
	}

	cs, err := l.state(chainID)
	if err != nil {
		return Balance{}, err
	}

	cs.mu.RLock()
	defer cs.mu.RUnlock()

	bal := Balance{Address: address}
	cs.chain.Range(func(block database.Block) bool {
		for _, tx := range block.Trans {
			from := strings.EqualFold(tx.From, address)
			to := strings.EqualFold(tx.To, address)

			if from {
				bal.Sent += tx.Value
			}
			if to {
				bal.Received += tx.Value
			}
			if from || to {
				bal.TxCount++
			}
		}
		return true
	})

	return bal, nil
}

// ValidateChain walks the chain from genesis and reports whether every block
// is still consistent with its parent and its proof.
func (l *Ledger) ValidateChain(chainID string) (bool, error) {
	cs, err := l.state(chainID)
	if err != nil {
		return false, err
	}

	cs.mu.RLock()
	defer cs.mu.RUnlock()

	if err := validateChain(cs, nil); err != nil {
		l.evHandler("ledger: ValidateChain: chain[%s]: INVALID: %s", chainID, err)
		return false, nil
	}

	return true, nil
}

// Status returns a summary of the chain including the outcome of validating
// it.
func (l *Ledger) Status(chainID string) (Status, error) {
	cs, err := l.state(chainID)
	if err != nil {
		return Status{}, err
	}

	cs.mu.RLock()
	defer cs.mu.RUnlock()

	valid := validateChain(cs, nil) == nil

	st := Status{
		ID:         cs.data.ID,
		Name:       cs.data.Name,
		Consensus:  cs.data.Consensus,
		Height:     int64(cs.chain.Len()) - 1,
		Blocks:     cs.chain.Len(),
		TotalValue: cs.totalValue,
		Difficulty: cs.data.Difficulty(),
		Valid:      valid,
	}

	return st, nil
}
