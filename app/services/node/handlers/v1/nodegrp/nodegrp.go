// Package nodegrp maintains the group of handlers for the simulated nodes
// and their peer links.
package nodegrp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ardanlabs/chainsim/business/web/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/ledger"
	"github.com/ardanlabs/chainsim/foundation/blockchain/peer"
	"github.com/ardanlabs/chainsim/foundation/web"
	"go.uber.org/zap"
)

// AppNewNode contains the information needed to register a node.
type AppNewNode struct {
	ID   string `json:"id" validate:"required"`
	Type string `json:"type" validate:"required"`
}

// AppStatus contains the status a node moves to.
type AppStatus struct {
	Status string `json:"status" validate:"required"`
}

// AppTrust sets whether a node is trusted.
type AppTrust struct {
	Trusted bool `json:"trusted"`
}

// AppHeight contains the block height reported by a node.
type AppHeight struct {
	Height uint64 `json:"height"`
	Resync bool   `json:"resync"`
}

// =============================================================================

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log      *zap.SugaredLogger
	Registry *peer.Registry
	Graph    *peer.Graph
	Ledger   *ledger.Ledger
}

// Register adds a new node to the registry.
func (h Handlers) Register(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app AppNewNode
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	typ, err := peer.ParseNodeType(app.Type)
	if err != nil {
		return err
	}

	node, err := h.Registry.Register(app.ID, typ)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, node, http.StatusCreated)
}

// List returns all the nodes.
func (h Handlers) List(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Registry.Nodes(), http.StatusOK)
}

// QueryByID returns a node by its id.
func (h Handlers) QueryByID(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := web.Param(r, "id")

	node, exists := h.Registry.Node(id)
	if !exists {
		return errs.NewTrusted(fmt.Errorf("node %q not found", id), http.StatusNotFound)
	}

	return web.Respond(ctx, w, node, http.StatusOK)
}

// UpdateStatus moves a node to a new status.
func (h Handlers) UpdateStatus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app AppStatus
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	status, err := peer.ParseStatus(app.Status)
	if err != nil {
		return err
	}

	node, err := h.Registry.UpdateStatus(web.Param(r, "id"), status)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, node, http.StatusOK)
}

// UpdateTrust marks a node as trusted or untrusted.
func (h Handlers) UpdateTrust(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app AppTrust
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	id := web.Param(r, "id")

	update := h.Registry.Untrust
	if app.Trusted {
		update = h.Registry.Trust
	}

	node, err := update(id)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, node, http.StatusOK)
}

// UpdateHeight records the block height reported by a node.
func (h Handlers) UpdateHeight(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app AppHeight
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	node, err := h.Registry.UpdateBlockHeight(web.Param(r, "id"), app.Height, app.Resync)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, node, http.StatusOK)
}

// Latency returns the simulated latency for a node.
func (h Handlers) Latency(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := web.Param(r, "id")

	latency, err := h.Registry.Latency(id)
	if err != nil {
		return err
	}

	resp := struct {
		ID        string `json:"id"`
		LatencyMS int64  `json:"latency_ms"`
	}{
		ID:        id,
		LatencyMS: latency.Milliseconds(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SyncLag returns how far a node is behind the tip of a chain.
func (h Handlers) SyncLag(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := web.Param(r, "id")
	chainID := web.Param(r, "chain")

	height, err := h.Ledger.Height(chainID)
	if err != nil {
		return err
	}

	var tip uint64
	if height > 0 {
		tip = uint64(height)
	}

	lag, err := h.Registry.SyncLag(id, tip)
	if err != nil {
		return err
	}

	resp := struct {
		ID      string `json:"id"`
		ChainID string `json:"chain_id"`
		Tip     uint64 `json:"tip"`
		Lag     uint64 `json:"lag"`
	}{
		ID:      id,
		ChainID: chainID,
		Tip:     tip,
		Lag:     lag,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

// Peers returns the ids of the nodes linked to a node.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	peers, err := h.Graph.Peers(web.Param(r, "id"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, peers, http.StatusOK)
}

// Connect links two nodes.
func (h Handlers) Connect(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := web.Param(r, "id")

	if err := h.Graph.Connect(id, web.Param(r, "peer")); err != nil {
		return err
	}

	return h.respondNode(ctx, w, id)
}

// Disconnect removes the link between two nodes.
func (h Handlers) Disconnect(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := web.Param(r, "id")

	if err := h.Graph.Disconnect(id, web.Param(r, "peer")); err != nil {
		return err
	}

	return h.respondNode(ctx, w, id)
}

func (h Handlers) respondNode(ctx context.Context, w http.ResponseWriter, id string) error {
	node, exists := h.Registry.Node(id)
	if !exists {
		return errs.NewTrusted(fmt.Errorf("node %q not found", id), http.StatusNotFound)
	}

	return web.Respond(ctx, w, node, http.StatusOK)
}
