package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ardanlabs/chainsim/foundation/blockchain/consensus"
	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/hashing"
	"github.com/google/uuid"
)

// GenesisProducer is recorded as the producer of every genesis block.
const GenesisProducer = "genesis"

// InitializeChain creates a new chain with the specified name and consensus
// type and commits its genesis block. Chain names are unique.
func (l *Ledger) InitializeChain(ctx context.Context, name string, typ consensus.Type) (ChainInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ChainInfo{}, fmt.Errorf("chain name is empty: %w", errs.ErrInvalidArgument)
	}

	rule, err := consensus.Retrieve(typ)
	if err != nil {
		return ChainInfo{}, err
	}

	release, err := l.reserve(name)
	if err != nil {
		return ChainInfo{}, err
	}
	defer release()

	data := database.ChainData{
		ID:        uuid.NewString(),
		Name:      name,
		Consensus: typ,
		Schedule:  []database.DifficultyChange{{FromHeight: 0, Difficulty: l.difficulty}},
		CreatedAt: l.now().UTC(),
	}

	l.evHandler("ledger: InitializeChain: chain[%s]: name[%s]: sealing genesis", data.ID, name)

	start := time.Now()
	genesis, attempts, err := database.Seal(ctx, database.SealArgs{
		ChainID:     data.ID,
		Rule:        rule,
		Difficulty:  l.difficulty,
		MaxAttempts: l.maxSealAttempts,
		Producer:    GenesisProducer,
		Now:         l.now,
		EvHandler:   database.EventHandler(l.evHandler),
	})
	if err != nil {
		return ChainInfo{}, fmt.Errorf("sealing genesis: %w", err)
	}
	l.metrics.BlockSealed(data.ID, attempts, time.Since(start))

	// A chain saved without its genesis block is skipped on load.
	if err := l.storage.SaveChain(data); err != nil {
		return ChainInfo{}, fmt.Errorf("saving chain: %w", err)
	}

	if err := l.storage.Write(data.ID, database.NewBlockData(genesis)); err != nil {
		return ChainInfo{}, fmt.Errorf("writing genesis: %w", err)
	}

	cs := chainState{
		data:  data,
		rule:  rule,
		chain: database.NewChain(),
	}
	if err := cs.chain.Append(genesis); err != nil {
		return ChainInfo{}, err
	}
	info := cs.info()

	l.mu.Lock()
	l.chains[data.ID] = &cs
	l.names[name] = data.ID
	l.order = append(l.order, data.ID)
	l.mu.Unlock()

	l.metrics.BlockAppended(data.ID, 0, 0)

	l.evHandler("viewer: chain[%s]: name[%s]: genesis[%s]", data.ID, name, genesis.Hash())

	return info, nil
}

// SealBlock seals a new block with the transactions on top of the chain's
// current tip. The tip is read under the chain lock and the proof search runs
// without it, so the block may be stale by the time it is appended.
func (l *Ledger) SealBlock(ctx context.Context, chainID string, trans []database.BlockTx, producer string) (database.Block, error) {
	cs, err := l.state(chainID)
	if err != nil {
		return database.Block{}, err
	}

	cs.mu.RLock()
	tip, exists := cs.chain.Tip()
	difficulty := cs.data.Difficulty()
	rule := cs.rule
	cs.mu.RUnlock()

	if !exists {
		return database.Block{}, errs.NewConsensus("chain %q has no genesis block", chainID)
	}

	l.evHandler("ledger: SealBlock: chain[%s]: MINING: blk[%d]: difficulty[%d]", chainID, tip.Header.Number+1, difficulty)

	start := time.Now()
	block, attempts, err := database.Seal(ctx, database.SealArgs{
		ChainID:     chainID,
		Rule:        rule,
		Difficulty:  difficulty,
		MaxAttempts: l.maxSealAttempts,
		Parent:      &tip,
		Trans:       trans,
		Producer:    producer,
		Now:         l.now,
		EvHandler:   database.EventHandler(l.evHandler),
	})
	l.metrics.BlockSealed(chainID, attempts, time.Since(start))

	if err != nil {
		return database.Block{}, err
	}

	l.evHandler("ledger: SealBlock: chain[%s]: MINING: SOLVED: blk[%d]: attempts[%d]", chainID, block.Header.Number, attempts)

	return block, nil
}

// AppendBlock validates the block against the chain's current tip and
// commits it. A block sealed on a tip or a difficulty that has since been
// replaced is rejected with ErrStaleSeal. The block is written to storage
// before it becomes visible, any failure leaves the chain unchanged.
func (l *Ledger) AppendBlock(chainID string, block database.Block) error {
	cs, err := l.state(chainID)
	if err != nil {
		return err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if isStale(cs, block) {
		l.metrics.StaleSeal(chainID)
		l.evHandler("ledger: AppendBlock: chain[%s]: blk[%d]: stale seal", chainID, block.Header.Number)
		return fmt.Errorf("chain %q: block %d: %w", chainID, block.Header.Number, errs.ErrStaleSeal)
	}

	var parent *database.Block
	if tip, exists := cs.chain.Tip(); exists {
		parent = &tip
	}

	err = block.ValidateBlock(database.ValidateArgs{
		ChainID:    chainID,
		Parent:     parent,
		Difficulty: cs.data.Difficulty(),
		Rule:       cs.rule,
		EvHandler:  database.EventHandler(l.evHandler),
	})
	if err != nil {
		return err
	}

	if err := l.storage.Write(chainID, database.NewBlockData(block)); err != nil {
		return fmt.Errorf("writing block %d: %w", block.Header.Number, err)
	}

	if err := cs.chain.Append(block); err != nil {
		return err
	}

	value := block.TotalValue()
	cs.totalValue += value

	l.metrics.BlockAppended(chainID, block.Header.Number, value)

	l.evHandler("viewer: chain[%s]: block[%d]: hash[%s]: producer[%s]: trans[%d]", chainID, block.Header.Number, block.Hash(), block.Header.Producer, len(block.Trans))

	return nil
}

// MineBlock seals a block with the transactions and appends it to the chain.
// When another block wins the race to the tip the block is sealed again on
// the new tip, up to the configured number of retries.
func (l *Ledger) MineBlock(ctx context.Context, chainID string, trans []database.BlockTx, producer string) (database.Block, error) {
	for retry := 0; ; retry++ {
		block, err := l.SealBlock(ctx, chainID, trans, producer)
		if err != nil {
			return database.Block{}, err
		}

		err = l.AppendBlock(chainID, block)
		if err == nil {
			return block, nil
		}

		if !errors.Is(err, errs.ErrStaleSeal) || retry >= l.maxStaleRetries {
			return database.Block{}, err
		}

		l.evHandler("ledger: MineBlock: chain[%s]: producer[%s]: retry[%d]: sealing on new tip", chainID, producer, retry+1)
	}
}

// UpdateDifficulty changes the difficulty required from the next block on.
// Blocks already committed keep the difficulty they were sealed under.
func (l *Ledger) UpdateDifficulty(chainID string, difficulty uint) error {
	if difficulty == 0 || difficulty > hashing.MaxDifficulty {
		return fmt.Errorf("difficulty %d must be between 1 and %d: %w", difficulty, hashing.MaxDifficulty, errs.ErrInvalidArgument)
	}

	cs, err := l.state(chainID)
	if err != nil {
		return err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.data.Difficulty() == difficulty {
		return nil
	}

	next := uint64(cs.chain.Len())
	data := cs.data.Clone()

	if last := len(data.Schedule) - 1; last >= 0 && data.Schedule[last].FromHeight == next {
		data.Schedule[last].Difficulty = difficulty
	} else {
		data.Schedule = append(data.Schedule, database.DifficultyChange{FromHeight: next, Difficulty: difficulty})
	}

	if err := l.storage.SaveChain(data); err != nil {
		return fmt.Errorf("saving chain: %w", err)
	}

	cs.data = data

	l.evHandler("viewer: chain[%s]: difficulty[%d]: from[%d]", chainID, difficulty, next)

	return nil
}
