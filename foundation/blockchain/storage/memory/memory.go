// Package memory implements the ability to read and write chains, blocks and
// nodes to memory using maps and slices.
package memory

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/peer"
)

// Memory represents the serialization implementation for reading and storing
// chains and nodes in memory. This implements the database.Storage and the
// peer.Storage interfaces.
type Memory struct {
	mu     sync.RWMutex
	chains map[string]database.ChainData
	order  []string
	blocks map[string][]database.BlockData
	nodes  map[string]peer.Node
}

// New constructs a Memory value for use.
func New() (*Memory, error) {
	m := Memory{
		chains: make(map[string]database.ChainData),
		blocks: make(map[string][]database.BlockData),
		nodes:  make(map[string]peer.Node),
	}

	return &m, nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// SaveChain adds or replaces the descriptive information for a chain.
func (m *Memory) SaveChain(chain database.ChainData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.chains[chain.ID]; !exists {
		m.order = append(m.order, chain.ID)
	}
	m.chains[chain.ID] = chain.Clone()

	return nil
}

// LoadChains returns every chain in the order they were first saved.
func (m *Memory) LoadChains() ([]database.ChainData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chains := make([]database.ChainData, 0, len(m.order))
	for _, id := range m.order {
		chains = append(chains, m.chains[id].Clone())
	}

	return chains, nil
}

// Write takes the specified block and stores it in memory.
func (m *Memory) Write(chainID string, blockData database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.chains[chainID]; !exists {
		return fmt.Errorf("chain %q does not exist", chainID)
	}

	l := len(m.blocks[chainID])
	if uint64(l) != blockData.Header.Number {
		return errors.New("block is out of order")
	}

	m.blocks[chainID] = append(m.blocks[chainID], database.NewBlockData(database.ToBlock(blockData)))

	return nil
}

// GetBlock returns the block at the specified number for the chain.
func (m *Memory) GetBlock(chainID string, num uint64) (database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks := m.blocks[chainID]
	if num >= uint64(len(blocks)) {
		return database.BlockData{}, errors.New("block does not exist")
	}

	return database.NewBlockData(database.ToBlock(blocks[num])), nil
}

// ForEach returns an iterator to walk through all the blocks of the chain
// starting with the genesis block.
func (m *Memory) ForEach(chainID string) database.Iterator {
	return &memoryIterator{storage: m, chainID: chainID}
}

// SaveNode adds or replaces the node.
func (m *Memory) SaveNode(node peer.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nodes[node.ID] = node.Clone()

	return nil
}

// LoadNodes returns every node ordered by id.
func (m *Memory) LoadNodes() ([]peer.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	nodes := make([]peer.Node, len(ids))
	for i, id := range ids {
		nodes[i] = m.nodes[id].Clone()
	}

	return nodes, nil
}

// =============================================================================

// memoryIterator represents the iteration implementation for walking
// through and reading blocks in memory. This implements the database
// Iterator interface.
type memoryIterator struct {
	storage *Memory // Access to the storage API.
	chainID string  // Chain being iterated over.
	current uint64  // Current block number being iterated over.
	eoc     bool    // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from memory.
func (mi *memoryIterator) Next() (database.BlockData, error) {
	if mi.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	blockData, err := mi.storage.GetBlock(mi.chainID, mi.current)
	if err != nil {
		mi.eoc = true
	}

	mi.current++

	return blockData, err
}

// Done returns the end of chain value.
func (mi *memoryIterator) Done() bool {
	return mi.eoc
}
