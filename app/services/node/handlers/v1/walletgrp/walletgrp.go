// Package walletgrp maintains the group of handlers for wallets.
package walletgrp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ardanlabs/chainsim/business/web/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/ledger"
	"github.com/ardanlabs/chainsim/foundation/blockchain/wallet"
	"github.com/ardanlabs/chainsim/foundation/web"
	"go.uber.org/zap"
)

// AppNewWallet contains the information needed to create a wallet.
type AppNewWallet struct {
	Name string `json:"name"`
}

// Handlers manages the set of wallet endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	Wallets *wallet.Store
	Ledger  *ledger.Ledger
}

// Create generates a new wallet. The private key is only returned here.
func (h Handlers) Create(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app AppNewWallet
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	kp, err := h.Wallets.Create(app.Name)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}

	h.Log.Infow("create wallet", "traceid", web.GetTraceID(ctx), "address", kp.Address, "name", kp.Name)

	return web.Respond(ctx, w, kp, http.StatusCreated)
}

// List returns all the wallets.
func (h Handlers) List(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Wallets.List(), http.StatusOK)
}

// QueryByAddress returns the wallet for an address.
func (h Handlers) QueryByAddress(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	wlt, exists := h.Wallets.Get(address)
	if !exists {
		return errs.NewTrusted(fmt.Errorf("wallet %s not found", address), http.StatusNotFound)
	}

	return web.Respond(ctx, w, wlt, http.StatusOK)
}

// ValidateAddress reports whether the address is well formed.
func (h Handlers) ValidateAddress(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	resp := struct {
		Address string `json:"address"`
		Valid   bool   `json:"valid"`
	}{
		Address: address,
		Valid:   wallet.ValidateAddress(address),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Balance returns the value moved to and from the wallet on a chain.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address, err := wallet.ParseAddress(web.Param(r, "address"))
	if err != nil {
		return err
	}

	bal, err := h.Ledger.Balance(web.Param(r, "chain"), address)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, bal, http.StatusOK)
}
