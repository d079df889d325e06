// Package chaingrp maintains the group of handlers for chains, blocks and
// transactions.
package chaingrp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ardanlabs/chainsim/business/web/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/consensus"
	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/ledger"
	"github.com/ardanlabs/chainsim/foundation/blockchain/mempool"
	"github.com/ardanlabs/chainsim/foundation/web"
	"go.uber.org/zap"
)

// Miner is the behavior needed from the mining worker.
type Miner interface {
	SignalStartMining(chainID string)
	SignalCancelMining() (done func())
	SignalShareTx(chainID string, tx database.BlockTx) error
}

// Handlers manages the set of chain endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	Ledger  *ledger.Ledger
	Mempool *mempool.Mempool
	Miner   Miner
}

// Create initializes a new chain with its genesis block.
func (h Handlers) Create(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app AppNewChain
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	typ, err := consensus.Parse(app.Consensus)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	info, err := h.Ledger.InitializeChain(ctx, app.Name, typ)
	if err != nil {
		return fmt.Errorf("create: name[%s]: %w", app.Name, err)
	}

	return web.Respond(ctx, w, info, http.StatusCreated)
}

// List returns all the chains.
func (h Handlers) List(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Ledger.Chains(), http.StatusOK)
}

// QueryByID returns a chain by its id.
func (h Handlers) QueryByID(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	info, err := h.Ledger.Chain(web.Param(r, "id"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// Status returns the summary for a chain.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status, err := h.Ledger.Status(web.Param(r, "id"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// Height returns the height of the tip of a chain.
func (h Handlers) Height(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := h.Ledger.Height(web.Param(r, "id"))
	if err != nil {
		return err
	}

	resp := struct {
		Height int64 `json:"height"`
	}{
		Height: height,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Validate walks the chain and reports whether it is still consistent.
func (h Handlers) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	valid, err := h.Ledger.ValidateChain(web.Param(r, "id"))
	if err != nil {
		return err
	}

	resp := struct {
		Valid bool `json:"valid"`
	}{
		Valid: valid,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// UpdateDifficulty changes the difficulty for new blocks. Any mining in
// progress is cancelled and restarted under the new difficulty.
func (h Handlers) UpdateDifficulty(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app AppDifficulty
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	chainID := web.Param(r, "id")

	done := h.Miner.SignalCancelMining()
	err := h.Ledger.UpdateDifficulty(chainID, app.Difficulty)
	done()

	if err != nil {
		return err
	}

	h.Miner.SignalStartMining(chainID)

	info, err := h.Ledger.Chain(chainID)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// =============================================================================

// Blocks returns a page of blocks, newest first.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	offset, err := web.QueryInt(r, "offset", 0)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	limit, err := web.QueryInt(r, "limit", 20)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	blocks, err := h.Ledger.Blocks(web.Param(r, "id"), offset, limit)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, toAppBlocks(blocks), http.StatusOK)
}

// LatestBlocks returns the newest blocks of a chain.
func (h Handlers) LatestBlocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	n, err := web.QueryInt(r, "n", 10)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	blocks, err := h.Ledger.LatestBlocks(web.Param(r, "id"), n)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, toAppBlocks(blocks), http.StatusOK)
}

// BlockByHeight returns the block at the specified height.
func (h Handlers) BlockByHeight(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := strconv.ParseUint(web.Param(r, "height"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("height %q is not a number", web.Param(r, "height")), http.StatusBadRequest)
	}

	block, found, err := h.Ledger.BlockByHeight(web.Param(r, "id"), height)
	if err != nil {
		return err
	}

	if !found {
		return errs.NewTrusted(fmt.Errorf("block at height %d not found", height), http.StatusNotFound)
	}

	return web.Respond(ctx, w, toAppBlock(block), http.StatusOK)
}

// TxProof returns the merkle inclusion proof for a transaction sealed in the
// block at the specified height.
func (h Handlers) TxProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := strconv.ParseUint(web.Param(r, "height"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("height %q is not a number", web.Param(r, "height")), http.StatusBadRequest)
	}

	txHash := web.Param(r, "tx")

	inc, found, err := h.Ledger.TxProof(web.Param(r, "id"), height, txHash)
	if err != nil {
		return err
	}

	if !found {
		return errs.NewTrusted(fmt.Errorf("transaction %s not found in block %d", txHash, height), http.StatusNotFound)
	}

	return web.Respond(ctx, w, inc, http.StatusOK)
}

// BlockByHash returns the block with the specified hash.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash := web.Param(r, "hash")

	block, found, err := h.Ledger.BlockByHash(web.Param(r, "id"), hash)
	if err != nil {
		return err
	}

	if !found {
		return errs.NewTrusted(fmt.Errorf("block with hash %s not found", hash), http.StatusNotFound)
	}

	return web.Respond(ctx, w, toAppBlock(block), http.StatusOK)
}

// Balance returns the value moved to and from an address on a chain.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	bal, err := h.Ledger.Balance(web.Param(r, "id"), web.Param(r, "address"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, bal, http.StatusOK)
}

// =============================================================================

// SubmitTx queues a transaction for the chain's mempool.
func (h Handlers) SubmitTx(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app AppNewTx
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	chainID := web.Param(r, "id")
	if _, err := h.Ledger.Chain(chainID); err != nil {
		return err
	}

	tx := toBlockTx(app)
	if err := tx.Validate(); err != nil {
		return err
	}

	h.Log.Infow("submit tx", "traceid", web.GetTraceID(ctx), "chain", chainID, "from:nonce", fmt.Sprintf("%s:%d", tx.From, tx.Nonce), "to", tx.To, "value", tx.Value, "tip", tx.Tip)

	if err := h.Miner.SignalShareTx(chainID, tx); err != nil {
		return errs.NewTrusted(err, http.StatusServiceUnavailable)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transaction queued for the mempool",
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// Mempool returns the transactions waiting to be mined on the chain.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chainID := web.Param(r, "id")
	if _, err := h.Ledger.Chain(chainID); err != nil {
		return err
	}

	trans := h.Mempool.PickBest(chainID, -1)
	if trans == nil {
		trans = []database.BlockTx{}
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// SignalMining asks the miners to work on the chain's mempool.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chainID := web.Param(r, "id")
	if _, err := h.Ledger.Chain(chainID); err != nil {
		return err
	}

	h.Miner.SignalStartMining(chainID)

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signalled",
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

