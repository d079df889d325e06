// Package database handles the lower level support for maintaining the
// blocks of a blockchain: sealing and validating blocks, the in memory chain
// store and the storage contract used to persist chains.
package database

import (
	"time"

	"github.com/ardanlabs/chainsim/foundation/blockchain/consensus"
)

//go:generate mockgen -destination=mocks/storage.go -package=mocks github.com/ardanlabs/chainsim/foundation/blockchain/database Storage,Iterator

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading blockchains.
type Storage interface {
	SaveChain(chain ChainData) error
	LoadChains() ([]ChainData, error)
	Write(chainID string, blockData BlockData) error
	ForEach(chainID string) Iterator
	Close() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks of a chain.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// DifficultyChange records the difficulty required from a height onward.
type DifficultyChange struct {
	FromHeight uint64 `json:"from_height"`
	Difficulty uint   `json:"difficulty"`
}

// ChainData represents the descriptive information about a chain that is
// written to storage. Blocks are written separately.
type ChainData struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Consensus consensus.Type     `json:"consensus"`
	Schedule  []DifficultyChange `json:"schedule"`
	CreatedAt time.Time          `json:"created_at"`
}

// Difficulty returns the difficulty that applies to new blocks.
func (cd ChainData) Difficulty() uint {
	if len(cd.Schedule) == 0 {
		return 0
	}
	return cd.Schedule[len(cd.Schedule)-1].Difficulty
}

// DifficultyAt returns the difficulty that applies to the block at the
// specified height.
func (cd ChainData) DifficultyAt(height uint64) uint {
	var difficulty uint
	for _, dc := range cd.Schedule {
		if dc.FromHeight > height {
			break
		}
		difficulty = dc.Difficulty
	}
	return difficulty
}

// Clone returns a deep copy of the chain data.
func (cd ChainData) Clone() ChainData {
	cd.Schedule = append([]DifficultyChange(nil), cd.Schedule...)
	return cd
}
