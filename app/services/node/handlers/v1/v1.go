// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/chainsim/app/services/node/handlers/v1/chaingrp"
	"github.com/ardanlabs/chainsim/app/services/node/handlers/v1/eventgrp"
	"github.com/ardanlabs/chainsim/app/services/node/handlers/v1/nodegrp"
	"github.com/ardanlabs/chainsim/app/services/node/handlers/v1/walletgrp"
	"github.com/ardanlabs/chainsim/foundation/blockchain/ledger"
	"github.com/ardanlabs/chainsim/foundation/blockchain/mempool"
	"github.com/ardanlabs/chainsim/foundation/blockchain/peer"
	"github.com/ardanlabs/chainsim/foundation/blockchain/wallet"
	"github.com/ardanlabs/chainsim/foundation/events"
	"github.com/ardanlabs/chainsim/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log      *zap.SugaredLogger
	Ledger   *ledger.Ledger
	Mempool  *mempool.Mempool
	Miner    chaingrp.Miner
	Registry *peer.Registry
	Graph    *peer.Graph
	Wallets  *wallet.Store
	Evts     *events.Events
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	cgh := chaingrp.Handlers{
		Log:     cfg.Log,
		Ledger:  cfg.Ledger,
		Mempool: cfg.Mempool,
		Miner:   cfg.Miner,
	}

	app.Handle(http.MethodPost, version, "/chains", cgh.Create)
	app.Handle(http.MethodGet, version, "/chains", cgh.List)
	app.Handle(http.MethodGet, version, "/chains/:id", cgh.QueryByID)
	app.Handle(http.MethodGet, version, "/chains/:id/status", cgh.Status)
	app.Handle(http.MethodGet, version, "/chains/:id/height", cgh.Height)
	app.Handle(http.MethodGet, version, "/chains/:id/validate", cgh.Validate)
	app.Handle(http.MethodPut, version, "/chains/:id/difficulty", cgh.UpdateDifficulty)
	app.Handle(http.MethodGet, version, "/chains/:id/blocks", cgh.Blocks)
	app.Handle(http.MethodGet, version, "/chains/:id/blocks/latest", cgh.LatestBlocks)
	app.Handle(http.MethodGet, version, "/chains/:id/blocks/height/:height", cgh.BlockByHeight)
	app.Handle(http.MethodGet, version, "/chains/:id/blocks/height/:height/tx/:tx/proof", cgh.TxProof)
	app.Handle(http.MethodGet, version, "/chains/:id/blocks/hash/:hash", cgh.BlockByHash)
	app.Handle(http.MethodGet, version, "/chains/:id/balances/:address", cgh.Balance)
	app.Handle(http.MethodPost, version, "/chains/:id/tx", cgh.SubmitTx)
	app.Handle(http.MethodGet, version, "/chains/:id/mempool", cgh.Mempool)
	app.Handle(http.MethodPost, version, "/chains/:id/mining/signal", cgh.SignalMining)

	ngh := nodegrp.Handlers{
		Log:      cfg.Log,
		Registry: cfg.Registry,
		Graph:    cfg.Graph,
		Ledger:   cfg.Ledger,
	}

	app.Handle(http.MethodPost, version, "/nodes", ngh.Register)
	app.Handle(http.MethodGet, version, "/nodes", ngh.List)
	app.Handle(http.MethodGet, version, "/nodes/:id", ngh.QueryByID)
	app.Handle(http.MethodPut, version, "/nodes/:id/status", ngh.UpdateStatus)
	app.Handle(http.MethodPut, version, "/nodes/:id/trust", ngh.UpdateTrust)
	app.Handle(http.MethodPut, version, "/nodes/:id/height", ngh.UpdateHeight)
	app.Handle(http.MethodGet, version, "/nodes/:id/latency", ngh.Latency)
	app.Handle(http.MethodGet, version, "/nodes/:id/lag/:chain", ngh.SyncLag)
	app.Handle(http.MethodGet, version, "/nodes/:id/peers", ngh.Peers)
	app.Handle(http.MethodPost, version, "/nodes/:id/peers/:peer", ngh.Connect)
	app.Handle(http.MethodDelete, version, "/nodes/:id/peers/:peer", ngh.Disconnect)

	wgh := walletgrp.Handlers{
		Log:     cfg.Log,
		Wallets: cfg.Wallets,
		Ledger:  cfg.Ledger,
	}

	app.Handle(http.MethodPost, version, "/wallets", wgh.Create)
	app.Handle(http.MethodGet, version, "/wallets", wgh.List)
	app.Handle(http.MethodGet, version, "/wallets/:address", wgh.QueryByAddress)
	app.Handle(http.MethodGet, version, "/wallets/:address/validate", wgh.ValidateAddress)
	app.Handle(http.MethodGet, version, "/wallets/:address/balance/:chain", wgh.Balance)

	egh := eventgrp.Handlers{
		Log:  cfg.Log,
		WS:   websocket.Upgrader{},
		Evts: cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", egh.Events)
}
