package peer_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/peer"
	"github.com/ardanlabs/chainsim/foundation/blockchain/storage/memory"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*peer.Registry, *peer.Graph) {
	t.Helper()

	store, err := memory.New()
	require.NoError(t, err)

	reg, err := peer.NewRegistry(peer.Config{
		Storage: store,
		Now:     func() time.Time { return time.UnixMilli(1000) },
	})
	require.NoError(t, err)

	return reg, peer.NewGraph(reg)
}

// failingStorage fails every save after the first n.
type failingStorage struct {
	mu    sync.Mutex
	saves int
	limit int
	nodes map[string]peer.Node
}

func (fs *failingStorage) SaveNode(node peer.Node) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.saves >= fs.limit {
		return errors.New("disk full")
	}
	fs.saves++

	if fs.nodes == nil {
		fs.nodes = make(map[string]peer.Node)
	}
	fs.nodes[node.ID] = node.Clone()

	return nil
}

func (fs *failingStorage) LoadNodes() ([]peer.Node, error) {
	return nil, nil
}

// =============================================================================

func Test_Register(t *testing.T) {
	reg, _ := newRegistry(t)

	node, err := reg.Register("n1", peer.TypeFull)
	require.NoError(t, err)
	require.Equal(t, peer.StatusInactive, node.Status)
	require.False(t, node.Trusted)
	require.Empty(t, node.Peers)

	_, err = reg.Register("n1", peer.TypeMiner)
	require.ErrorIs(t, err, errs.ErrDuplicateNode)

	_, err = reg.Register("", peer.TypeFull)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = reg.Register("n2", peer.NodeType("ARCHIVE"))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	got, ok := reg.Node("n1")
	require.True(t, ok)
	require.Equal(t, peer.TypeFull, got.Type, "the first registration is untouched")

	_, ok = reg.Node("missing")
	require.False(t, ok)
}

func Test_Parse(t *testing.T) {
	typ, err := peer.ParseNodeType("miner")
	require.NoError(t, err)
	require.Equal(t, peer.TypeMiner, typ)

	_, err = peer.ParseNodeType("archive")
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	status, err := peer.ParseStatus("suspect")
	require.NoError(t, err)
	require.Equal(t, peer.StatusSuspect, status)

	_, err = peer.ParseStatus("offline")
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func Test_Trust(t *testing.T) {
	reg, _ := newRegistry(t)

	_, err := reg.Register("n1", peer.TypeFull)
	require.NoError(t, err)

	for range 2 {
		node, err := reg.Trust("n1")
		require.NoError(t, err)
		require.True(t, node.Trusted)
	}

	for range 2 {
		node, err := reg.Untrust("n1")
		require.NoError(t, err)
		require.False(t, node.Trusted)
	}

	_, err = reg.Trust("missing")
	require.ErrorIs(t, err, errs.ErrNodeNotFound)

	_, err = reg.Untrust("missing")
	require.ErrorIs(t, err, errs.ErrNodeNotFound)
}

func Test_Transitions(t *testing.T) {
	statuses := []peer.Status{
		peer.StatusInactive,
		peer.StatusActive,
		peer.StatusSyncing,
		peer.StatusSuspect,
		peer.StatusBanned,
	}

	allowed := map[[2]peer.Status]bool{
		{peer.StatusInactive, peer.StatusActive}: true,
		{peer.StatusActive, peer.StatusSyncing}:  true,
		{peer.StatusSyncing, peer.StatusActive}:  true,
		{peer.StatusActive, peer.StatusSuspect}:  true,
		{peer.StatusSyncing, peer.StatusSuspect}: true,
		{peer.StatusSuspect, peer.StatusBanned}:  true,
		{peer.StatusSuspect, peer.StatusActive}:  true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			name := fmt.Sprintf("%s->%s", from, to)
			t.Run(name, func(t *testing.T) {
				require.Equal(t, allowed[[2]peer.Status{from, to}], peer.CanTransition(from, to))
			})
		}
	}
}

func Test_UpdateStatus(t *testing.T) {
	reg, _ := newRegistry(t)

	_, err := reg.Register("n1", peer.TypeFull)
	require.NoError(t, err)

	path := []peer.Status{peer.StatusActive, peer.StatusSyncing, peer.StatusSuspect, peer.StatusActive, peer.StatusSuspect, peer.StatusBanned}
	for _, status := range path {
		node, err := reg.UpdateStatus("n1", status)
		require.NoError(t, err, "moving to %s", status)
		require.Equal(t, status, node.Status)
	}

	_, err = reg.UpdateStatus("n1", peer.StatusActive)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)

	var te *errs.TransitionError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "BANNED", te.From)
	require.Equal(t, "ACTIVE", te.To)

	node, ok := reg.Node("n1")
	require.True(t, ok)
	require.Equal(t, peer.StatusBanned, node.Status, "a rejected transition changes nothing")

	_, err = reg.UpdateStatus("missing", peer.StatusActive)
	require.ErrorIs(t, err, errs.ErrNodeNotFound)

	_, err = reg.UpdateStatus("n1", peer.Status("OFFLINE"))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func Test_UpdateBlockHeight(t *testing.T) {
	reg, _ := newRegistry(t)

	_, err := reg.Register("n1", peer.TypeFull)
	require.NoError(t, err)

	node, err := reg.UpdateBlockHeight("n1", 10, false)
	require.NoError(t, err)
	require.Equal(t, uint64(10), node.BlockHeight)

	_, err = reg.UpdateBlockHeight("n1", 4, false)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	node, err = reg.UpdateBlockHeight("n1", 4, true)
	require.NoError(t, err)
	require.Equal(t, uint64(4), node.BlockHeight)

	lag, err := reg.SyncLag("n1", 9)
	require.NoError(t, err)
	require.Equal(t, uint64(5), lag)

	lag, err = reg.SyncLag("n1", 2)
	require.NoError(t, err)
	require.Zero(t, lag)

	_, err = reg.UpdateBlockHeight("missing", 1, false)
	require.ErrorIs(t, err, errs.ErrNodeNotFound)

	_, err = reg.SyncLag("missing", 1)
	require.ErrorIs(t, err, errs.ErrNodeNotFound)
}

func Test_Latency(t *testing.T) {
	reg, graph := newRegistry(t)

	for _, id := range []string{"n1", "n2", "n3"} {
		_, err := reg.Register(id, peer.TypeFull)
		require.NoError(t, err)
	}

	l1, err := reg.Latency("n1")
	require.NoError(t, err)

	again, err := reg.Latency("n1")
	require.NoError(t, err)
	require.Equal(t, l1, again, "latency is deterministic")
	require.GreaterOrEqual(t, l1, 10*time.Millisecond)
	require.Less(t, l1, 50*time.Millisecond)

	require.NoError(t, graph.Connect("n1", "n2"))
	require.NoError(t, graph.Connect("n1", "n3"))

	connected, err := reg.Latency("n1")
	require.NoError(t, err)
	require.Equal(t, l1+4*time.Millisecond, connected, "each peer adds latency")

	_, err = reg.UpdateStatus("n1", peer.StatusSyncing)
	require.NoError(t, err)

	syncing, err := reg.Latency("n1")
	require.NoError(t, err)
	require.Equal(t, connected+25*time.Millisecond, syncing)

	_, err = reg.Latency("missing")
	require.ErrorIs(t, err, errs.ErrNodeNotFound)
}

func Test_ConnectDisconnect(t *testing.T) {
	reg, graph := newRegistry(t)

	for _, id := range []string{"n1", "n2", "n3"} {
		_, err := reg.Register(id, peer.TypeFull)
		require.NoError(t, err)
	}

	require.NoError(t, graph.Connect("n1", "n2"))
	require.NoError(t, graph.Connect("n1", "n2"), "connecting twice is idempotent")

	peers, err := graph.Peers("n1")
	require.NoError(t, err)
	require.Equal(t, []string{"n2"}, peers)

	peers, err = graph.Peers("n2")
	require.NoError(t, err)
	require.Equal(t, []string{"n1"}, peers)

	n1, _ := reg.Node("n1")
	n2, _ := reg.Node("n2")
	require.Equal(t, peer.StatusActive, n1.Status, "first connect activates the node")
	require.Equal(t, peer.StatusActive, n2.Status)

	require.NoError(t, graph.Disconnect("n2", "n1"))

	peers, err = graph.Peers("n1")
	require.NoError(t, err)
	require.Empty(t, peers)

	peers, err = graph.Peers("n2")
	require.NoError(t, err)
	require.Empty(t, peers)

	require.NoError(t, graph.Disconnect("n1", "n3"), "disconnecting unlinked nodes is a no-op")

	require.ErrorIs(t, graph.Connect("n1", "missing"), errs.ErrNodeNotFound)
	require.ErrorIs(t, graph.Connect("missing", "n1"), errs.ErrNodeNotFound)
	require.ErrorIs(t, graph.Disconnect("n1", "missing"), errs.ErrNodeNotFound)
	require.ErrorIs(t, graph.Connect("n1", "n1"), errs.ErrInvalidArgument)

	_, err = graph.Peers("missing")
	require.ErrorIs(t, err, errs.ErrNodeNotFound)
}

func Test_ConnectBanned(t *testing.T) {
	reg, graph := newRegistry(t)

	for _, id := range []string{"n1", "n2"} {
		_, err := reg.Register(id, peer.TypeFull)
		require.NoError(t, err)
	}

	for _, status := range []peer.Status{peer.StatusActive, peer.StatusSuspect, peer.StatusBanned} {
		_, err := reg.UpdateStatus("n2", status)
		require.NoError(t, err)
	}

	require.ErrorIs(t, graph.Connect("n1", "n2"), errs.ErrInvalidArgument)

	n1, _ := reg.Node("n1")
	require.Equal(t, peer.StatusInactive, n1.Status)
	require.Empty(t, n1.Peers)
}

func Test_ConnectStorageFailure(t *testing.T) {
	store := failingStorage{limit: 3}

	reg, err := peer.NewRegistry(peer.Config{Storage: &store})
	require.NoError(t, err)
	graph := peer.NewGraph(reg)

	_, err = reg.Register("n1", peer.TypeFull)
	require.NoError(t, err)
	_, err = reg.Register("n2", peer.TypeFull)
	require.NoError(t, err)

	// The first endpoint saves, the second fails.
	require.Error(t, graph.Connect("n1", "n2"))

	for _, id := range []string{"n1", "n2"} {
		node, ok := reg.Node(id)
		require.True(t, ok)
		require.Empty(t, node.Peers, "a failed connect leaves %s unchanged", id)
		require.Equal(t, peer.StatusInactive, node.Status)
	}
}

func Test_LoadOnStart(t *testing.T) {
	store, err := memory.New()
	require.NoError(t, err)

	reg, err := peer.NewRegistry(peer.Config{Storage: store})
	require.NoError(t, err)
	graph := peer.NewGraph(reg)

	for _, id := range []string{"n1", "n2"} {
		_, err := reg.Register(id, peer.TypeMiner)
		require.NoError(t, err)
	}
	require.NoError(t, graph.Connect("n1", "n2"))
	_, err = reg.Trust("n2")
	require.NoError(t, err)

	reloaded, err := peer.NewRegistry(peer.Config{Storage: store})
	require.NoError(t, err)

	nodes := reloaded.Nodes()
	require.Len(t, nodes, 2)
	require.Equal(t, []string{"n2"}, nodes[0].Peers)
	require.Equal(t, []string{"n1"}, nodes[1].Peers)
	require.True(t, nodes[1].Trusted)
	require.Equal(t, peer.StatusActive, nodes[0].Status)
}

func Test_ConcurrentConnect(t *testing.T) {
	reg, graph := newRegistry(t)

	const n = 20
	for i := range n {
		_, err := reg.Register(fmt.Sprintf("n%02d", i), peer.TypeFull)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := range n {
		for j := range n {
			if i == j {
				continue
			}
			wg.Add(1)
			go func(a, b string) {
				defer wg.Done()
				if err := graph.Connect(a, b); err != nil {
					t.Errorf("connect %s %s: %v", a, b, err)
				}
			}(fmt.Sprintf("n%02d", i), fmt.Sprintf("n%02d", j))
		}
	}
	wg.Wait()

	for _, node := range reg.Nodes() {
		require.Len(t, node.Peers, n-1, "node %s", node.ID)
		for _, p := range node.Peers {
			other, ok := reg.Node(p)
			require.True(t, ok)
			require.True(t, other.HasPeer(node.ID), "link %s-%s must be symmetric", node.ID, p)
		}
	}
}
