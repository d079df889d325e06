package genesis_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/genesis"
	"github.com/ardanlabs/chainsim/foundation/blockchain/ledger"
	"github.com/ardanlabs/chainsim/foundation/blockchain/peer"
	"github.com/ardanlabs/chainsim/foundation/blockchain/storage/memory"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `{
		"difficulty": 6,
		"trans_per_block": 3,
		"chains": [{"name": "alpha", "consensus": "proof_of_work"}, {"name": "beta", "consensus": "PROOF_OF_WORK"}]
	}`)

	g, err := genesis.Load(path)
	require.NoError(t, err)
	require.Equal(t, uint(6), g.Difficulty)
	require.Equal(t, 3, g.TransPerBlock)
	require.Len(t, g.Chains, 2)
	require.Equal(t, genesis.Default().MaxSealAttempts, g.MaxSealAttempts, "missing values keep their defaults")
	require.Equal(t, genesis.Default().Nodes, g.Nodes)
}

func TestLoadReplacesLists(t *testing.T) {
	g, err := genesis.Load(writeFile(t, `{"nodes": [{"id": "n1", "type": "LIGHT"}], "links": []}`))
	require.NoError(t, err)

	require.Equal(t, []genesis.Node{{ID: "n1", Type: "LIGHT"}}, g.Nodes, "file nodes do not inherit default fields")
	require.Empty(t, g.Links)
	require.Equal(t, genesis.Default().Miners, g.Miners)
}

func TestLoadInvalid(t *testing.T) {
	_, err := genesis.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	_, err = genesis.Load(writeFile(t, `{"difficulty":`))
	require.Error(t, err)

	_, err = genesis.Load(writeFile(t, `{"difficulty": 300}`))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = genesis.Load(writeFile(t, `{"nodes": [{"id": "n1", "type": "ROUTER"}]}`))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestApply(t *testing.T) {
	store, err := memory.New()
	require.NoError(t, err)

	g := genesis.Default()
	g.Difficulty = 4

	l, err := ledger.New(ledger.Config{
		Storage:           store,
		DefaultDifficulty: g.Difficulty,
		MaxSealAttempts:   g.MaxSealAttempts,
		MaxStaleRetries:   g.MaxStaleRetries,
	})
	require.NoError(t, err)

	reg, err := peer.NewRegistry(peer.Config{Storage: store})
	require.NoError(t, err)
	graph := peer.NewGraph(reg)

	require.NoError(t, g.Apply(context.Background(), l, reg, graph))

	// A second pass leaves everything as it is.
	require.NoError(t, g.Apply(context.Background(), l, reg, graph))

	chains := l.Chains()
	require.Len(t, chains, 1)
	require.Equal(t, "main", chains[0].Name)

	nodes := reg.Nodes()
	require.Len(t, nodes, len(g.Nodes))

	full, exists := reg.Node("full-1")
	require.True(t, exists)
	require.Equal(t, peer.StatusActive, full.Status)
	require.True(t, full.Trusted)
	require.Equal(t, []string{"light-1", "miner-1", "miner-2"}, full.Peers)

	light, exists := reg.Node("light-1")
	require.True(t, exists)
	require.False(t, light.Trusted)
	require.Equal(t, []string{"full-1"}, light.Peers)
}
