// Package disk implements the ability to read and write chains, blocks and
// nodes to disk as JSON files.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/peer"
)

// Set of names used for the layout on disk.
const (
	chainsDir = "chains"
	nodesDir  = "nodes"
	chainFile = "chain.json"
)

// Disk represents the serialization implementation for reading and storing
// blocks in their own separate files on disk. Each chain has its own folder
// with a chain.json file describing it and one file per block labeled with
// the block number. Nodes are stored one file per node. This implements the
// database.Storage and the peer.Storage interfaces.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	for _, dir := range []string{chainsDir, nodesDir} {
		if err := os.MkdirAll(filepath.Join(dbPath, dir), 0755); err != nil {
			return nil, err
		}
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each new block and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// SaveChain writes the descriptive information for a chain to its folder.
func (d *Disk) SaveChain(chain database.ChainData) error {
	if err := os.MkdirAll(d.chainPath(chain.ID), 0755); err != nil {
		return err
	}

	return writeJSON(filepath.Join(d.chainPath(chain.ID), chainFile), chain)
}

// LoadChains reads the descriptive information for every chain on disk
// ordered by the time the chains were created.
func (d *Disk) LoadChains() ([]database.ChainData, error) {
	entries, err := os.ReadDir(filepath.Join(d.dbPath, chainsDir))
	if err != nil {
		return nil, err
	}

	var chains []database.ChainData
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		var chain database.ChainData
		if err := readJSON(filepath.Join(d.dbPath, chainsDir, entry.Name(), chainFile), &chain); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading chain %q: %w", entry.Name(), err)
		}

		chains = append(chains, chain)
	}

	slices.SortStableFunc(chains, func(a, b database.ChainData) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return chains, nil
}

// Write takes the specified database block and stores it on disk in a
// file labeled with the block number.
func (d *Disk) Write(chainID string, blockData database.BlockData) error {
	if _, err := os.Stat(d.chainPath(chainID)); err != nil {
		return fmt.Errorf("chain %q: %w", chainID, err)
	}

	return writeJSON(d.blockPath(chainID, blockData.Header.Number), blockData)
}

// GetBlock searches the chain on disk to locate and return the
// contents of the specified block by number.
func (d *Disk) GetBlock(chainID string, num uint64) (database.BlockData, error) {
	var blockData database.BlockData
	if err := readJSON(d.blockPath(chainID, num), &blockData); err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks of the chain
// starting with the genesis block.
func (d *Disk) ForEach(chainID string) database.Iterator {
	return &DiskIterator{disk: d, chainID: chainID}
}

// SaveNode writes the node to its own file.
func (d *Disk) SaveNode(node peer.Node) error {
	return writeJSON(d.nodePath(node.ID), node)
}

// LoadNodes reads every node on disk ordered by id.
func (d *Disk) LoadNodes() ([]peer.Node, error) {
	entries, err := os.ReadDir(filepath.Join(d.dbPath, nodesDir))
	if err != nil {
		return nil, err
	}

	var nodes []peer.Node
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		var node peer.Node
		if err := readJSON(filepath.Join(d.dbPath, nodesDir, entry.Name()), &node); err != nil {
			return nil, fmt.Errorf("reading node %q: %w", entry.Name(), err)
		}

		nodes = append(nodes, node)
	}

	slices.SortFunc(nodes, func(a, b peer.Node) int {
		return strings.Compare(a.ID, b.ID)
	})

	return nodes, nil
}

// =============================================================================

// chainPath forms the path to the folder for the specified chain.
func (d *Disk) chainPath(chainID string) string {
	return filepath.Join(d.dbPath, chainsDir, url.PathEscape(chainID))
}

// blockPath forms the path to the specified block.
func (d *Disk) blockPath(chainID string, blockNum uint64) string {
	name := strconv.FormatUint(blockNum, 10)
	return filepath.Join(d.chainPath(chainID), fmt.Sprintf("%s.json", name))
}

// nodePath forms the path to the specified node.
func (d *Disk) nodePath(nodeID string) string {
	return filepath.Join(d.dbPath, nodesDir, fmt.Sprintf("%s.json", url.PathEscape(nodeID)))
}

// writeJSON replaces the file with the JSON form of the value. The data is
// written to a temporary file first and renamed so a reader never sees a
// partial file.
func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// readJSON decodes the contents of the file into the value.
func readJSON(path string, value any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(value)
}

// =============================================================================

// DiskIterator represents the iteration implementation for walking
// through and reading blocks on disk. This implements the database
// Iterator interface.
type DiskIterator struct {
	disk    *Disk  // Access to the storage API.
	chainID string // Chain being iterated over.
	current uint64 // Current block number being iterated over.
	eoc     bool   // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from disk.
func (di *DiskIterator) Next() (database.BlockData, error) {
	if di.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	blockData, err := di.disk.GetBlock(di.chainID, di.current)
	if errors.Is(err, fs.ErrNotExist) {
		di.eoc = true
	}

	di.current++

	return blockData, err
}

// Done returns the end of chain value.
func (di *DiskIterator) Done() bool {
	return di.eoc
}
