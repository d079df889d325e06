// Package peer maintains the registry of simulated nodes in the network and
// the symmetric peer graph between them, including the status each node is
// in and how far behind the chain it has fallen.
package peer

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
)

// EventHandler defines a function that is called when events occur in the
// processing of registry and graph operations.
type EventHandler func(v string, args ...any)

// =============================================================================

// NodeType represents the role a node plays in the network.
type NodeType string

// Set of node types.
const (
	TypeFull  NodeType = "FULL"
	TypeLight NodeType = "LIGHT"
	TypeMiner NodeType = "MINER"
)

var nodeTypes = map[NodeType]bool{
	TypeFull:  true,
	TypeLight: true,
	TypeMiner: true,
}

// ParseNodeType converts a string into a node type. The match is not case
// sensitive.
func ParseNodeType(s string) (NodeType, error) {
	typ := NodeType(strings.ToUpper(strings.TrimSpace(s)))
	if !nodeTypes[typ] {
		return "", fmt.Errorf("node type %q: %w", s, errs.ErrInvalidArgument)
	}
	return typ, nil
}

// =============================================================================

// Status represents where a node is in its lifecycle.
type Status string

// Set of node statuses.
const (
	StatusInactive Status = "INACTIVE"
	StatusActive   Status = "ACTIVE"
	StatusSyncing  Status = "SYNCING"
	StatusSuspect  Status = "SUSPECT"
	StatusBanned   Status = "BANNED"
)

// transitions is the status state machine. BANNED has no way out.
var transitions = map[Status][]Status{
	StatusInactive: {StatusActive},
	StatusActive:   {StatusSyncing, StatusSuspect},
	StatusSyncing:  {StatusActive, StatusSuspect},
	StatusSuspect:  {StatusBanned, StatusActive},
	StatusBanned:   {},
}

// ParseStatus converts a string into a status. The match is not case
// sensitive.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, exists := transitions[status]; !exists {
		return "", fmt.Errorf("node status %q: %w", s, errs.ErrInvalidArgument)
	}
	return status, nil
}

// CanTransition reports whether a node can move from one status to another.
func CanTransition(from Status, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// =============================================================================

// Node represents information about a node in the network.
type Node struct {
	ID           string    `json:"id"`
	Type         NodeType  `json:"type"`
	Status       Status    `json:"status"`
	Trusted      bool      `json:"trusted"`
	BlockHeight  uint64    `json:"block_height"`
	Peers        []string  `json:"peers"`
	RegisteredAt time.Time `json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPeer reports whether the node lists the specified peer.
func (n Node) HasPeer(id string) bool {
	_, found := slices.BinarySearch(n.Peers, id)
	return found
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Peers = slices.Clone(n.Peers)
	if n.Peers == nil {
		n.Peers = []string{}
	}
	return n
}

// withPeer returns a copy of the node with the peer added.
func (n Node) withPeer(id string) Node {
	n = n.Clone()
	if i, found := slices.BinarySearch(n.Peers, id); !found {
		n.Peers = slices.Insert(n.Peers, i, id)
	}
	return n
}

// withoutPeer returns a copy of the node with the peer removed.
func (n Node) withoutPeer(id string) Node {
	n = n.Clone()
	if i, found := slices.BinarySearch(n.Peers, id); found {
		n.Peers = slices.Delete(n.Peers, i, i+1)
	}
	return n
}

// =============================================================================

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading nodes.
type Storage interface {
	SaveNode(node Node) error
	LoadNodes() ([]Node, error)
}
