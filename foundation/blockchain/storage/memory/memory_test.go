package memory_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/chainsim/foundation/blockchain/consensus"
	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/peer"
	"github.com/ardanlabs/chainsim/foundation/blockchain/storage/memory"
	"github.com/stretchr/testify/require"
)

func TestMemory_Chains(t *testing.T) {
	m, err := memory.New()
	require.NoError(t, err)

	first := database.ChainData{
		ID:        "c1",
		Name:      "first",
		Consensus: consensus.ProofOfWork,
		Schedule:  []database.DifficultyChange{{FromHeight: 0, Difficulty: 4}},
		CreatedAt: time.UnixMilli(1000).UTC(),
	}
	second := first
	second.ID, second.Name = "c2", "second"

	require.NoError(t, m.SaveChain(first))
	require.NoError(t, m.SaveChain(second))

	first.Schedule = append(first.Schedule, database.DifficultyChange{FromHeight: 3, Difficulty: 6})
	require.NoError(t, m.SaveChain(first))

	chains, err := m.LoadChains()
	require.NoError(t, err)
	require.Len(t, chains, 2)
	require.Equal(t, "c1", chains[0].ID)
	require.Equal(t, "c2", chains[1].ID)
	require.Equal(t, uint(6), chains[0].Difficulty())
}

func TestMemory_Blocks(t *testing.T) {
	m, err := memory.New()
	require.NoError(t, err)

	require.Error(t, m.Write("missing", database.BlockData{}), "writing to an unknown chain")

	require.NoError(t, m.SaveChain(database.ChainData{ID: "c1"}))

	for i := uint64(0); i < 3; i++ {
		bd := database.BlockData{
			Hash:   "0x01",
			Header: database.BlockHeader{ChainID: "c1", Number: i},
			Trans:  []database.BlockTx{{From: "a", To: "b", Value: i}},
		}
		require.NoError(t, m.Write("c1", bd))
	}

	require.Error(t, m.Write("c1", database.BlockData{Header: database.BlockHeader{Number: 7}}), "writing out of order")

	var got []uint64
	iter := m.ForEach("c1")
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		require.NoError(t, err)
		got = append(got, blockData.Header.Number)
	}
	require.Equal(t, []uint64{0, 1, 2}, got)

	iter = m.ForEach("unknown")
	_, err = iter.Next()
	require.Error(t, err)
	require.True(t, iter.Done())
}

func TestMemory_Nodes(t *testing.T) {
	m, err := memory.New()
	require.NoError(t, err)

	node := peer.Node{ID: "n2", Type: peer.TypeFull, Status: peer.StatusInactive, Peers: []string{"n1"}}
	require.NoError(t, m.SaveNode(node))
	require.NoError(t, m.SaveNode(peer.Node{ID: "n1", Type: peer.TypeMiner, Status: peer.StatusActive}))

	node.Peers[0] = "changed"

	nodes, err := m.LoadNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.Equal(t, "n1", nodes[0].ID)
	require.Equal(t, []string{"n1"}, nodes[1].Peers, "stored node must not share memory with the caller")
}
