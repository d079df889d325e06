package database

import (
	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
)

// Chain is the append only sequence of committed blocks for a single
// blockchain with an index to locate blocks by hash. Chain does no locking
// of its own; the owner of the chain must serialize access to it.
type Chain struct {
	blocks []Block
	byHash map[string]uint64
}

// NewChain constructs an empty chain.
func NewChain() *Chain {
	return &Chain{
		byHash: make(map[string]uint64),
	}
}

// Len returns the number of blocks in the chain.
func (c *Chain) Len() int {
	return len(c.blocks)
}

// Append adds the block to the end of the chain. The block's number must be
// the next height in the chain.
func (c *Chain) Append(block Block) error {
	next := uint64(len(c.blocks))
	if block.Header.Number != next {
		return errs.NewInvalidBlock(errs.RuleHeightGap, block.Header.Number, "got %d, exp %d", block.Header.Number, next)
	}

	block = block.Clone()
	c.blocks = append(c.blocks, block)
	c.byHash[block.Hash()] = block.Header.Number

	return nil
}

// Tip returns the last block in the chain.
func (c *Chain) Tip() (Block, bool) {
	if len(c.blocks) == 0 {
		return Block{}, false
	}

	return c.blocks[len(c.blocks)-1].Clone(), true
}

// BlockByHeight returns the block at the specified height.
func (c *Chain) BlockByHeight(height uint64) (Block, bool) {
	if height >= uint64(len(c.blocks)) {
		return Block{}, false
	}

	return c.blocks[height].Clone(), true
}

// BlockByHash returns the block with the specified hash.
func (c *Chain) BlockByHash(hash string) (Block, bool) {
	height, exists := c.byHash[hash]
	if !exists {
		return Block{}, false
	}

	return c.blocks[height].Clone(), true
}

// Blocks returns a copy of every block in ascending height order.
func (c *Chain) Blocks() []Block {
	blocks := make([]Block, len(c.blocks))
	for i, block := range c.blocks {
		blocks[i] = block.Clone()
	}
	return blocks
}

// Page returns up to limit blocks in descending height order after skipping
// offset blocks from the tip. Requests past the end of the chain return
// what is available.
func (c *Chain) Page(offset int, limit int) []Block {
	if offset < 0 {
		offset = 0
	}

	l := len(c.blocks)
	if limit <= 0 || offset >= l {
		return []Block{}
	}

	start := l - 1 - offset
	end := max(start-limit+1, 0)

	blocks := make([]Block, 0, start-end+1)
	for i := start; i >= end; i-- {
		blocks = append(blocks, c.blocks[i].Clone())
	}

	return blocks
}

// Latest returns up to n blocks from the tip in descending height order.
func (c *Chain) Latest(n int) []Block {
	return c.Page(0, n)
}

// Range calls fn for each block in ascending height order until fn returns
// false. The blocks passed to fn are copies.
func (c *Chain) Range(fn func(block Block) bool) {
	for _, block := range c.blocks {
		if !fn(block.Clone()) {
			return
		}
	}
}
