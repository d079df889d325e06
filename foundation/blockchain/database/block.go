package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ardanlabs/chainsim/foundation/blockchain/consensus"
	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/hashing"
)

// EventHandler defines a function that is called when events occur in the
// processing of blocks.
type EventHandler func(v string, args ...any)

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	ChainID       string `json:"chain_id"`        // Chain the block was sealed for.
	Number        uint64 `json:"number"`          // Block height in the chain, genesis is 0.
	PrevBlockHash string `json:"prev_block_hash"` // Hash of the previous block in the chain.
	TimeStamp     uint64 `json:"timestamp"`       // Time the block was sealed in unix milliseconds.
	Nonce         uint64 `json:"nonce"`           // Value identified to solve the proof.
	Producer      string `json:"producer"`        // Identifier of the node or miner that sealed the block.
	Difficulty    uint   `json:"difficulty"`      // Number of leading zero bits needed to solve the proof.
	TransRoot     string `json:"trans_root"`      // Merkle tree root hash for the transactions in this block.
}

// Block represents a group of transactions batched together and sealed.
// A block is a value; its hash is set when it is sealed or decoded.
type Block struct {
	Header BlockHeader
	Trans  []BlockTx
	hash   string
}

// Hash returns the hash recorded for the block when it was sealed.
func (b Block) Hash() string {
	return b.hash
}

// ComputeHash recalculates the hash from the block's identifying fields.
func (b Block) ComputeHash() string {
	return hashing.BlockHash(b.Header.Number, b.Header.PrevBlockHash, b.Header.TransRoot, b.Header.Nonce, b.Header.TimeStamp, b.Header.Producer)
}

// TotalValue returns the sum of the value moved by the block's transactions.
func (b Block) TotalValue() uint64 {
	var total uint64
	for _, tx := range b.Trans {
		total += tx.Value
	}
	return total
}

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	b.Trans = cloneTrans(b.Trans)
	return b
}

// candidate returns the consensus view of the block.
func (b Block) candidate() consensus.Candidate {
	return consensus.Candidate{
		Height:     b.Header.Number,
		PrevHash:   b.Header.PrevBlockHash,
		MerkleRoot: b.Header.TransRoot,
		TimeStamp:  b.Header.TimeStamp,
		Producer:   b.Header.Producer,
		Difficulty: b.Header.Difficulty,
	}
}

// =============================================================================

// SealArgs represents the set of arguments required to seal a new block.
type SealArgs struct {
	ChainID     string
	Rule        consensus.Rule
	Difficulty  uint
	MaxAttempts uint64
	Parent      *Block // nil when sealing the genesis block.
	Trans       []BlockTx
	Producer    string
	Now         func() time.Time
	EvHandler   EventHandler
}

// Seal constructs a new block on top of the parent and performs the work
// required by the consensus rule. The timestamp is captured once before the
// proof search starts and is never earlier than the parent's timestamp.
// Seal never touches chain state, it returns the block and the number of
// attempts it took.
func Seal(ctx context.Context, args SealArgs) (Block, uint64, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	now := args.Now
	if now == nil {
		now = time.Now
	}

	if args.Rule.Seal == nil {
		return Block{}, 0, errs.NewConsensus("no seal rule provided")
	}

	// When sealing the first block, the previous block's hash will be zero.
	number := uint64(0)
	prevBlockHash := hashing.ZeroHash
	timeStamp := uint64(now().UTC().UnixMilli())

	if args.Parent != nil {
		number = args.Parent.Header.Number + 1
		prevBlockHash = args.Parent.Hash()
		if timeStamp < args.Parent.Header.TimeStamp {
			timeStamp = args.Parent.Header.TimeStamp
		}
	}

	trans := cloneTrans(args.Trans)
	for _, tx := range trans {
		if err := tx.Validate(); err != nil {
			return Block{}, 0, err
		}
	}

	// The root of the merkle tree is part of the data being hashed.
	root, err := MerkleRoot(trans)
	if err != nil {
		return Block{}, 0, err
	}

	nb := Block{
		Header: BlockHeader{
			ChainID:       args.ChainID,
			Number:        number,
			PrevBlockHash: prevBlockHash,
			TimeStamp:     timeStamp,
			Nonce:         0, // Will be identified by the consensus rule.
			Producer:      args.Producer,
			Difficulty:    args.Difficulty,
			TransRoot:     root,
		},
		Trans: trans,
	}

	for _, tx := range trans {
		ev("database: Seal: blk[%d]: tx[%s]", number, tx)
	}

	proof, err := args.Rule.Seal(ctx, nb.candidate(), args.MaxAttempts, consensus.EventHandler(ev))
	if err != nil {
		return Block{}, proof.Attempts, err
	}

	nb.Header.Nonce = proof.Nonce
	nb.hash = proof.Hash

	return nb, proof.Attempts, nil
}

// =============================================================================

// ValidateArgs represents what a block is validated against.
type ValidateArgs struct {
	ChainID    string
	Parent     *Block // nil when validating the genesis block.
	Difficulty uint   // Difficulty required at the block's height.
	Rule       consensus.Rule
	EvHandler  EventHandler
}

// ValidateBlock takes a block and validates it to be included into the
// blockchain. Checks are ordered so the reported rule is the first one
// the block breaks.
func (b Block) ValidateBlock(args ValidateArgs) error {
	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	number := b.Header.Number

	ev("database: ValidateBlock: validate: blk[%d]: check: block belongs to the chain", number)

	if b.Header.ChainID != args.ChainID {
		return errs.NewInvalidBlock(errs.RuleChainMismatch, number, "got %q, exp %q", b.Header.ChainID, args.ChainID)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", number)

	var nextNumber uint64
	prevBlockHash := hashing.ZeroHash
	if args.Parent != nil {
		nextNumber = args.Parent.Header.Number + 1
		prevBlockHash = args.Parent.Hash()
	}

	if number != nextNumber {
		return errs.NewInvalidBlock(errs.RuleHeightGap, number, "got %d, exp %d", number, nextNumber)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", number)

	if b.Header.PrevBlockHash != prevBlockHash {
		return errs.NewInvalidBlock(errs.RulePrevHashMismatch, number, "got %s, exp %s", b.Header.PrevBlockHash, prevBlockHash)
	}

	if args.Parent != nil {
		ev("database: ValidateBlock: validate: blk[%d]: check: block's timestamp is not before parent block's timestamp", number)

		if b.Header.TimeStamp < args.Parent.Header.TimeStamp {
			parentTime := time.UnixMilli(int64(args.Parent.Header.TimeStamp))
			blockTime := time.UnixMilli(int64(b.Header.TimeStamp))
			return errs.NewInvalidBlock(errs.RuleTimestampOrder, number, "block timestamp is before parent block, parent %s, block %s", parentTime, blockTime)
		}
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: merkle root does match transactions", number)

	root, err := MerkleRoot(b.Trans)
	if err != nil {
		return fmt.Errorf("merkle root: %w", err)
	}

	if b.Header.TransRoot != root {
		return errs.NewInvalidBlock(errs.RuleMerkleMismatch, number, "got %s, exp %s", b.Header.TransRoot, root)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: block hash does match block fields", number)

	if computed := b.ComputeHash(); b.hash != computed {
		return errs.NewInvalidBlock(errs.RuleHashMismatch, number, "got %s, exp %s", b.hash, computed)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: block difficulty meets the chain difficulty", number)

	if b.Header.Difficulty < args.Difficulty {
		return errs.NewInvalidBlock(errs.RuleProofInsufficient, number, "block difficulty %d is less than required difficulty %d", b.Header.Difficulty, args.Difficulty)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", number)

	if args.Rule.Verify == nil {
		return errs.NewConsensus("no verify rule provided")
	}

	if err := args.Rule.Verify(b.candidate(), b.Header.Nonce, b.hash); err != nil {
		return err
	}

	return nil
}

// =============================================================================

// BlockData represents what can be serialized to storage.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []BlockTx   `json:"trans"`
}

// NewBlockData constructs block data from a block.
func NewBlockData(block Block) BlockData {
	blockData := BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  cloneTrans(block.Trans),
	}

	return blockData
}

// ToBlock converts a storage block into a block. The recorded hash is kept
// as is so validation can detect data that no longer matches it.
func ToBlock(blockData BlockData) Block {
	block := Block{
		Header: blockData.Header,
		Trans:  cloneTrans(blockData.Trans),
		hash:   blockData.Hash,
	}

	return block
}
