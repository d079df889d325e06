package peer

import (
	"fmt"

	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
)

// Graph manages the undirected connections between registered nodes. It only
// changes the peer sets of the nodes it links, everything else about a node
// belongs to the registry.
type Graph struct {
	reg *Registry
}

// NewGraph constructs a graph over the nodes in the registry.
func NewGraph(reg *Registry) *Graph {
	return &Graph{reg: reg}
}

// Connect links the two nodes in both directions. A node that is INACTIVE
// becomes ACTIVE on its first connection. Connecting nodes that are already
// linked changes nothing. If either node is BANNED the link is refused with
// ErrInvalidArgument.
func (g *Graph) Connect(id string, peerID string) error {
	return g.link(id, peerID, true)
}

// Disconnect removes the link between the two nodes in both directions.
// Nodes that are not linked are left as they are.
func (g *Graph) Disconnect(id string, peerID string) error {
	return g.link(id, peerID, false)
}

// Peers returns the ids of the nodes linked to the specified node.
func (g *Graph) Peers(id string) ([]string, error) {
	node, exists := g.reg.Node(id)
	if !exists {
		return nil, fmt.Errorf("node %q: %w", id, errs.ErrNodeNotFound)
	}

	return node.Peers, nil
}

// =============================================================================

// link adds or removes the link between two nodes. Both node locks are held,
// taken in id order, so the link is never visible from one side only. Both
// records are written to storage before either is replaced in memory.
func (g *Graph) link(id string, peerID string, connect bool) error {
	a, exists := g.reg.lookup(id)
	if !exists {
		return fmt.Errorf("node %q: %w", id, errs.ErrNodeNotFound)
	}

	b, exists := g.reg.lookup(peerID)
	if !exists {
		return fmt.Errorf("node %q: %w", peerID, errs.ErrNodeNotFound)
	}

	if id == peerID {
		return fmt.Errorf("node %q can't be its own peer: %w", id, errs.ErrInvalidArgument)
	}

	first, second := a, b
	if peerID < id {
		first, second = b, a
	}

	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	na, nb := a.node, b.node

	if connect {
		if na.Status == StatusBanned || nb.Status == StatusBanned {
			return fmt.Errorf("connect %q to %q: banned node: %w", id, peerID, errs.ErrInvalidArgument)
		}

		if na.HasPeer(peerID) && nb.HasPeer(id) {
			return nil
		}

		na, nb = na.withPeer(peerID), nb.withPeer(id)
		if na.Status == StatusInactive {
			na.Status = StatusActive
		}
		if nb.Status == StatusInactive {
			nb.Status = StatusActive
		}
	} else {
		if !na.HasPeer(peerID) && !nb.HasPeer(id) {
			return nil
		}

		na, nb = na.withoutPeer(peerID), nb.withoutPeer(id)
	}

	now := g.reg.now().UTC()
	na.UpdatedAt = now
	nb.UpdatedAt = now

	if err := g.reg.storage.SaveNode(na); err != nil {
		return fmt.Errorf("saving node %q: %w", id, err)
	}

	if err := g.reg.storage.SaveNode(nb); err != nil {
		if rerr := g.reg.storage.SaveNode(a.node); rerr != nil {
			g.reg.ev("peer: link: node[%s]: ERROR: restoring stored record: %s", id, rerr)
		}
		return fmt.Errorf("saving node %q: %w", peerID, err)
	}

	a.node, b.node = na, nb

	g.reg.ev("peer: link: node[%s]: peer[%s]: connected[%t]", id, peerID, connect)

	return nil
}
