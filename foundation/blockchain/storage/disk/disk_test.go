package disk_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ardanlabs/chainsim/foundation/blockchain/consensus"
	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/peer"
	"github.com/ardanlabs/chainsim/foundation/blockchain/storage/disk"
	"github.com/stretchr/testify/require"
)

func TestDisk_ChainsAndBlocks(t *testing.T) {
	dbPath := t.TempDir()

	d, err := disk.New(dbPath)
	require.NoError(t, err)

	newer := database.ChainData{
		ID:        "c2",
		Name:      "newer",
		Consensus: consensus.ProofOfWork,
		Schedule:  []database.DifficultyChange{{FromHeight: 0, Difficulty: 4}},
		CreatedAt: time.UnixMilli(2000).UTC(),
	}
	older := newer
	older.ID, older.Name, older.CreatedAt = "c1", "older", time.UnixMilli(1000).UTC()

	require.NoError(t, d.SaveChain(newer))
	require.NoError(t, d.SaveChain(older))

	for i := uint64(0); i < 3; i++ {
		bd := database.BlockData{
			Hash:   "0x01",
			Header: database.BlockHeader{ChainID: "c1", Number: i},
			Trans:  []database.BlockTx{{From: "a", To: "b", Value: i, Data: []byte("memo")}},
		}
		require.NoError(t, d.Write("c1", bd))
	}

	require.Error(t, d.Write("missing", database.BlockData{}), "writing to an unknown chain")

	_, err = os.Stat(filepath.Join(dbPath, "chains", "c1", "2.json"))
	require.NoError(t, err, "each block is written to its own file")

	// A new value over the same folder sees what was written.
	d, err = disk.New(dbPath)
	require.NoError(t, err)

	chains, err := d.LoadChains()
	require.NoError(t, err)
	require.Len(t, chains, 2)
	require.Equal(t, "c1", chains[0].ID, "chains are ordered by creation time")
	require.Equal(t, consensus.ProofOfWork, chains[0].Consensus)

	var got []database.BlockData
	iter := d.ForEach("c1")
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		require.NoError(t, err)
		got = append(got, blockData)
	}
	require.Len(t, got, 3)
	require.Equal(t, uint64(2), got[2].Trans[0].Value)
	require.Equal(t, []byte("memo"), got[2].Trans[0].Data)
}

func TestDisk_RewriteBlock(t *testing.T) {
	dbPath := t.TempDir()

	d, err := disk.New(dbPath)
	require.NoError(t, err)

	require.NoError(t, d.SaveChain(database.ChainData{ID: "c1", Name: "main", Consensus: consensus.ProofOfWork}))

	long := database.BlockData{
		Hash:   "0x01",
		Header: database.BlockHeader{ChainID: "c1", Number: 0},
		Trans:  []database.BlockTx{{From: "a", To: "b", Value: 1, Data: []byte("a much longer memo than the one that replaces it")}},
	}
	require.NoError(t, d.Write("c1", long))

	short := long
	short.Hash = "0x02"
	short.Trans = nil
	require.NoError(t, d.Write("c1", short))

	got, err := d.GetBlock("c1", 0)
	require.NoError(t, err, "the rewritten file decodes with nothing left over")
	require.Equal(t, "0x02", got.Hash)
	require.Empty(t, got.Trans)

	entries, err := os.ReadDir(filepath.Join(dbPath, "chains", "c1"))
	require.NoError(t, err)
	for _, entry := range entries {
		require.NotEqual(t, ".tmp", filepath.Ext(entry.Name()), "no temporary file is left behind")
	}
}

func TestDisk_Nodes(t *testing.T) {
	d, err := disk.New(t.TempDir())
	require.NoError(t, err)

	registered := time.UnixMilli(1000).UTC()
	require.NoError(t, d.SaveNode(peer.Node{ID: "node/b", Type: peer.TypeLight, Status: peer.StatusInactive, Peers: []string{}, RegisteredAt: registered}))
	require.NoError(t, d.SaveNode(peer.Node{ID: "node-a", Type: peer.TypeFull, Status: peer.StatusActive, Peers: []string{"node/b"}, RegisteredAt: registered}))
	require.NoError(t, d.SaveNode(peer.Node{ID: "node-a", Type: peer.TypeFull, Status: peer.StatusSyncing, Peers: []string{"node/b"}, RegisteredAt: registered}))

	nodes, err := d.LoadNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.Equal(t, "node-a", nodes[0].ID)
	require.Equal(t, peer.StatusSyncing, nodes[0].Status)
	require.Equal(t, "node/b", nodes[1].ID, "ids that aren't safe file names are escaped")
	require.True(t, nodes[1].RegisteredAt.Equal(registered))
}
