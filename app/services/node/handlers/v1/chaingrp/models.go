package chaingrp

import (
	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
)

// AppNewChain contains the information needed to create a chain.
type AppNewChain struct {
	Name      string `json:"name" validate:"required"`
	Consensus string `json:"consensus" validate:"required"`
}

// AppDifficulty contains the new difficulty for a chain.
type AppDifficulty struct {
	Difficulty uint `json:"difficulty" validate:"required,min=1,max=256"`
}

// AppNewTx contains the information needed to submit a transaction.
type AppNewTx struct {
	From  string `json:"from" validate:"required"`
	To    string `json:"to" validate:"required"`
	Value uint64 `json:"value"`
	Tip   uint64 `json:"tip"`
	Nonce uint64 `json:"nonce"`
	Data  []byte `json:"data"`
}

func toBlockTx(app AppNewTx) database.BlockTx {
	return database.BlockTx{
		From:  app.From,
		To:    app.To,
		Value: app.Value,
		Tip:   app.Tip,
		Nonce: app.Nonce,
		Data:  app.Data,
	}
}

// =============================================================================

// AppBlock is a block as returned by the api.
type AppBlock struct {
	Hash   string               `json:"hash"`
	Header database.BlockHeader `json:"header"`
	Trans  []database.BlockTx   `json:"trans"`
}

func toAppBlock(block database.Block) AppBlock {
	trans := block.Trans
	if trans == nil {
		trans = []database.BlockTx{}
	}

	return AppBlock{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  trans,
	}
}

func toAppBlocks(blocks []database.Block) []AppBlock {
	items := make([]AppBlock, len(blocks))
	for i, block := range blocks {
		items[i] = toAppBlock(block)
	}
	return items
}
