// Package ledger is the core API for the simulated blockchains. It owns every
// chain, decides which sealed blocks are committed and answers the queries
// made against the committed state.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/chainsim/foundation/blockchain/consensus"
	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/hashing"
	"github.com/ardanlabs/chainsim/foundation/validate"
)

// EventHandler defines a function that is called when events
// occur in the processing of chains and blocks.
type EventHandler func(v string, args ...any)

//go:generate mockgen -destination=mocks/metrics.go -package=mocks github.com/ardanlabs/chainsim/foundation/blockchain/ledger Metrics

// Metrics interface represents the behavior required to record what the
// ledger is doing. A nil Metrics in the config records nothing.
type Metrics interface {
	BlockSealed(chainID string, attempts uint64, duration time.Duration)
	BlockAppended(chainID string, height uint64, value uint64)
	StaleSeal(chainID string)
}

type nopMetrics struct{}

func (nopMetrics) BlockSealed(string, uint64, time.Duration) {}
func (nopMetrics) BlockAppended(string, uint64, uint64)      {}
func (nopMetrics) StaleSeal(string)                          {}

// =============================================================================

// Config represents the configuration required to construct the ledger.
type Config struct {
	Storage           database.Storage `validate:"required"`
	DefaultDifficulty uint             `validate:"min=1,max=256"`
	MaxSealAttempts   uint64           `validate:"required"`
	MaxStaleRetries   int              `validate:"min=0"`
	Metrics           Metrics
	EvHandler         EventHandler
	Now               func() time.Time
}

// chainState is a chain and everything known about it. The mutex serializes
// appends and difficulty changes against reads of the same chain.
type chainState struct {
	mu         sync.RWMutex
	data       database.ChainData
	rule       consensus.Rule
	chain      *database.Chain
	totalValue uint64
}

// info returns the public view of the chain. The caller must hold the lock.
func (cs *chainState) info() ChainInfo {
	return ChainInfo{
		ID:         cs.data.ID,
		Name:       cs.data.Name,
		Consensus:  cs.data.Consensus,
		Difficulty: cs.data.Difficulty(),
		Schedule:   cs.data.Clone().Schedule,
		Height:     int64(cs.chain.Len()) - 1,
		CreatedAt:  cs.data.CreatedAt,
	}
}

// Ledger manages the set of chains.
type Ledger struct {
	mu     sync.RWMutex
	chains map[string]*chainState
	names  map[string]string // Chain name to id, an empty id is a reservation.
	order  []string

	storage         database.Storage
	difficulty      uint
	maxSealAttempts uint64
	maxStaleRetries int
	metrics         Metrics
	evHandler       EventHandler
	now             func() time.Time
}

// New constructs a ledger and loads every chain found in storage.
func New(cfg Config) (*Ledger, error) {
	if err := validate.Check(cfg); err != nil {
		return nil, fmt.Errorf("ledger config: %w: %w", errs.ErrInvalidArgument, err)
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	l := Ledger{
		chains:          make(map[string]*chainState),
		names:           make(map[string]string),
		storage:         cfg.Storage,
		difficulty:      cfg.DefaultDifficulty,
		maxSealAttempts: cfg.MaxSealAttempts,
		maxStaleRetries: cfg.MaxStaleRetries,
		metrics:         metrics,
		evHandler:       ev,
		now:             now,
	}

	if err := l.load(); err != nil {
		return nil, err
	}

	return &l, nil
}

// Shutdown releases the storage held by the ledger.
func (l *Ledger) Shutdown() error {
	l.evHandler("ledger: Shutdown: closing storage")

	return l.storage.Close()
}

// =============================================================================

// load reads every stored chain and its blocks into memory. Blocks are taken
// as they were stored; ValidateChain reports on their integrity.
func (l *Ledger) load() error {
	chains, err := l.storage.LoadChains()
	if err != nil {
		return fmt.Errorf("loading chains: %w", err)
	}

	for _, data := range chains {
		if _, exists := l.names[data.Name]; exists {
			l.evHandler("ledger: load: WARNING: chain[%s]: duplicate name[%s] ignored", data.ID, data.Name)
			continue
		}

		rule, err := consensus.Retrieve(data.Consensus)
		if err != nil {
			return fmt.Errorf("loading chain %q: %w", data.ID, err)
		}

		cs := chainState{
			data:  data.Clone(),
			rule:  rule,
			chain: database.NewChain(),
		}

		iter := l.storage.ForEach(data.ID)
		for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
			if err != nil {
				return fmt.Errorf("loading chain %q: %w", data.ID, err)
			}

			block := database.ToBlock(blockData)
			if err := cs.chain.Append(block); err != nil {
				return fmt.Errorf("loading chain %q: %w", data.ID, err)
			}
			cs.totalValue += block.TotalValue()
		}

		if cs.chain.Len() == 0 {
			l.evHandler("ledger: load: WARNING: chain[%s]: name[%s]: no genesis block, skipped", data.ID, data.Name)
			continue
		}

		l.chains[data.ID] = &cs
		l.names[data.Name] = data.ID
		l.order = append(l.order, data.ID)

		l.evHandler("ledger: load: chain[%s]: name[%s]: blocks[%d]", data.ID, data.Name, cs.chain.Len())
	}

	return nil
}

// state returns the chain state for the specified chain.
func (l *Ledger) state(chainID string) (*chainState, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cs, exists := l.chains[chainID]
	if !exists {
		return nil, fmt.Errorf("chain %q: %w", chainID, errs.ErrChainNotFound)
	}

	return cs, nil
}

// reserve claims the chain name until the chain is committed or the
// reservation is released.
func (l *Ledger) reserve(name string) (release func(), err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.names[name]; exists {
		return nil, fmt.Errorf("chain name %q: %w", name, errs.ErrDuplicateChain)
	}
	l.names[name] = ""

	release = func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		if l.names[name] == "" {
			delete(l.names, name)
		}
	}

	return release, nil
}

// isStale reports whether the block was sealed on a tip or a difficulty that
// has since been replaced. The caller must hold the chain lock.
func isStale(cs *chainState, block database.Block) bool {
	number := block.Header.Number
	length := uint64(cs.chain.Len())

	// The block extends an ancestor of the current tip.
	if number < length {
		if number == 0 {
			return block.Header.PrevBlockHash == hashing.ZeroHash
		}
		parent, found := cs.chain.BlockByHash(block.Header.PrevBlockHash)
		if found && parent.Header.Number+1 == number {
			return true
		}
	}

	// The block extends the tip with a difficulty that has been superseded.
	required := cs.data.Difficulty()
	if number == length && block.Header.Difficulty < required && len(cs.data.Schedule) > 1 {
		for _, dc := range cs.data.Schedule[:len(cs.data.Schedule)-1] {
			if dc.Difficulty == block.Header.Difficulty {
				return true
			}
		}
	}

	return false
}

// validateChain walks the chain from genesis and validates each block
// against its parent and the difficulty that applied at its height. The
// caller must hold the chain lock.
func validateChain(cs *chainState, ev EventHandler) error {
	var parent *database.Block
	var err error

	cs.chain.Range(func(block database.Block) bool {
		err = block.ValidateBlock(database.ValidateArgs{
			ChainID:    cs.data.ID,
			Parent:     parent,
			Difficulty: cs.data.DifficultyAt(block.Header.Number),
			Rule:       cs.rule,
			EvHandler:  database.EventHandler(ev),
		})
		if err != nil {
			return false
		}

		parent = &block
		return true
	})

	return err
}
