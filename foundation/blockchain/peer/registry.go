package peer

import (
	"fmt"
	"hash/fnv"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
)

// Latency simulation parameters.
const (
	baseLatency    = 10 * time.Millisecond
	jitterLatency  = 40 // Milliseconds of jitter derived from the node id.
	perPeerLatency = 2 * time.Millisecond
	syncingPenalty = 25 * time.Millisecond
	suspectPenalty = 50 * time.Millisecond
)

// Config represents the configuration required to construct a registry.
type Config struct {
	Storage   Storage
	EvHandler EventHandler
	Now       func() time.Time
}

// entry holds a node record and serializes the mutations made to it.
type entry struct {
	mu   sync.Mutex
	node Node
}

// Registry is the catalog of simulated nodes. Mutations are serialized per
// node and every change is written to storage before it becomes visible.
type Registry struct {
	mu      sync.RWMutex
	nodes   map[string]*entry
	storage Storage
	ev      EventHandler
	now     func() time.Time
}

// NewRegistry constructs a registry and loads any nodes already in storage.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("registry storage is nil: %w", errs.ErrInvalidArgument)
	}

	ev := cfg.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	nodes, err := cfg.Storage.LoadNodes()
	if err != nil {
		return nil, fmt.Errorf("loading nodes: %w", err)
	}

	reg := Registry{
		nodes:   make(map[string]*entry, len(nodes)),
		storage: cfg.Storage,
		ev:      ev,
		now:     now,
	}

	for _, node := range nodes {
		node = node.Clone()
		slices.Sort(node.Peers)
		reg.nodes[node.ID] = &entry{node: node}
	}

	ev("peer: NewRegistry: loaded nodes[%d]", len(nodes))

	return &reg, nil
}

// Register adds a new node to the registry. The node starts INACTIVE and
// untrusted.
func (r *Registry) Register(id string, typ NodeType) (Node, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Node{}, fmt.Errorf("node id is empty: %w", errs.ErrInvalidArgument)
	}

	if !nodeTypes[typ] {
		return Node{}, fmt.Errorf("node type %q: %w", typ, errs.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[id]; exists {
		return Node{}, fmt.Errorf("node %q: %w", id, errs.ErrDuplicateNode)
	}

	now := r.now().UTC()
	node := Node{
		ID:           id,
		Type:         typ,
		Status:       StatusInactive,
		Trusted:      false,
		Peers:        []string{},
		RegisteredAt: now,
		UpdatedAt:    now,
	}

	if err := r.storage.SaveNode(node); err != nil {
		return Node{}, fmt.Errorf("saving node %q: %w", id, err)
	}

	r.nodes[id] = &entry{node: node}

	r.ev("peer: Register: node[%s]: type[%s]", id, typ)

	return node.Clone(), nil
}

// Node returns the node for the specified id.
func (r *Registry) Node(id string) (Node, bool) {
	e, exists := r.lookup(id)
	if !exists {
		return Node{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.node.Clone(), true
}

// Nodes returns a copy of every node ordered by id.
func (r *Registry) Nodes() []Node {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.nodes))
	for _, e := range r.nodes {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	nodes := make([]Node, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		nodes = append(nodes, e.node.Clone())
		e.mu.Unlock()
	}

	slices.SortFunc(nodes, func(a, b Node) int {
		return strings.Compare(a.ID, b.ID)
	})

	return nodes
}

// Trust marks the node as trusted.
func (r *Registry) Trust(id string) (Node, error) {
	return r.update(id, func(node Node) (Node, error) {
		node.Trusted = true
		return node, nil
	})
}

// Untrust marks the node as not trusted.
func (r *Registry) Untrust(id string) (Node, error) {
	return r.update(id, func(node Node) (Node, error) {
		node.Trusted = false
		return node, nil
	})
}

// UpdateStatus moves the node to the specified status if the status state
// machine allows it.
func (r *Registry) UpdateStatus(id string, status Status) (Node, error) {
	if _, exists := transitions[status]; !exists {
		return Node{}, fmt.Errorf("node status %q: %w", status, errs.ErrInvalidArgument)
	}

	return r.update(id, func(node Node) (Node, error) {
		if !CanTransition(node.Status, status) {
			return Node{}, &errs.TransitionError{From: string(node.Status), To: string(status)}
		}

		r.ev("peer: UpdateStatus: node[%s]: from[%s]: to[%s]", id, node.Status, status)

		node.Status = status
		return node, nil
	})
}

// UpdateBlockHeight records the last height reported by the node. A height
// lower than the one recorded is only accepted when resync is true.
func (r *Registry) UpdateBlockHeight(id string, height uint64, resync bool) (Node, error) {
	return r.update(id, func(node Node) (Node, error) {
		if height < node.BlockHeight && !resync {
			return Node{}, fmt.Errorf("height %d is below recorded height %d without resync: %w", height, node.BlockHeight, errs.ErrInvalidArgument)
		}

		node.BlockHeight = height
		return node, nil
	})
}

// Latency returns the simulated round trip latency for the node. The value is
// derived from the node id, the number of peers and the node's status so the
// same registry state always reports the same latency.
func (r *Registry) Latency(id string) (time.Duration, error) {
	node, exists := r.Node(id)
	if !exists {
		return 0, fmt.Errorf("node %q: %w", id, errs.ErrNodeNotFound)
	}

	h := fnv.New32a()
	h.Write([]byte(node.ID))
	jitter := time.Duration(h.Sum32()%jitterLatency) * time.Millisecond

	latency := baseLatency + jitter + time.Duration(len(node.Peers))*perPeerLatency

	switch node.Status {
	case StatusSyncing:
		latency += syncingPenalty
	case StatusSuspect:
		latency += suspectPenalty
	}

	return latency, nil
}

// SyncLag returns how many blocks the node is behind the specified tip
// height. A node at or ahead of the tip has no lag.
func (r *Registry) SyncLag(id string, tipHeight uint64) (uint64, error) {
	node, exists := r.Node(id)
	if !exists {
		return 0, fmt.Errorf("node %q: %w", id, errs.ErrNodeNotFound)
	}

	if node.BlockHeight >= tipHeight {
		return 0, nil
	}

	return tipHeight - node.BlockHeight, nil
}

// =============================================================================

// lookup finds the entry for the specified node id.
func (r *Registry) lookup(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.nodes[id]
	return e, exists
}

// update applies the change to the node under the node's lock. The changed
// node is written to storage before it replaces the current record.
func (r *Registry) update(id string, change func(node Node) (Node, error)) (Node, error) {
	e, exists := r.lookup(id)
	if !exists {
		return Node{}, fmt.Errorf("node %q: %w", id, errs.ErrNodeNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	node, err := change(e.node.Clone())
	if err != nil {
		return Node{}, err
	}
	node.UpdatedAt = r.now().UTC()

	if err := r.storage.SaveNode(node); err != nil {
		return Node{}, fmt.Errorf("saving node %q: %w", id, err)
	}

	e.node = node

	return node.Clone(), nil
}
