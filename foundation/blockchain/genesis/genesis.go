// Package genesis maintains access to the genesis file that seeds a new
// simulation with its settings, chains, nodes and peer links.
package genesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/chainsim/foundation/blockchain/consensus"
	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/ledger"
	"github.com/ardanlabs/chainsim/foundation/blockchain/peer"
	"github.com/ardanlabs/chainsim/foundation/validate"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date            time.Time `json:"date"`
	Difficulty      uint      `json:"difficulty" validate:"min=1,max=256"`      // Leading zero bits new chains start with.
	MaxSealAttempts uint64    `json:"max_seal_attempts" validate:"required"`    // Nonces tried before sealing gives up.
	MaxStaleRetries int       `json:"max_stale_retries" validate:"min=0"`       // Reseals allowed when another block wins the tip.
	TransPerBlock   int       `json:"trans_per_block" validate:"min=1"`         // The maximum number of transactions that can be in a block.
	Strategy        string    `json:"mempool_strategy" validate:"required"`     // How the mempool picks transactions.
	Chains          []Chain   `json:"chains" validate:"dive"`
	Nodes           []Node    `json:"nodes" validate:"dive"`
	Links           []Link    `json:"links" validate:"dive"`
	Miners          []string  `json:"miners" validate:"dive,required"`
}

// Chain is a chain created when the simulation starts.
type Chain struct {
	Name      string `json:"name" validate:"required"`
	Consensus string `json:"consensus" validate:"required"`
}

// Node is a node registered when the simulation starts.
type Node struct {
	ID      string `json:"id" validate:"required"`
	Type    string `json:"type" validate:"required,oneof=FULL LIGHT MINER"`
	Active  bool   `json:"active"`
	Trusted bool   `json:"trusted"`
}

// Link is a peer connection made when the simulation starts.
type Link struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// =============================================================================

// Default returns the genesis used when no file is provided.
func Default() Genesis {
	return Genesis{
		Date:            time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Difficulty:      12,
		MaxSealAttempts: 1 << 26,
		MaxStaleRetries: 10,
		TransPerBlock:   10,
		Strategy:        "tip",
		Chains: []Chain{
			{Name: "main", Consensus: string(consensus.ProofOfWork)},
		},
		Nodes: []Node{
			{ID: "miner-1", Type: "MINER", Active: true, Trusted: true},
			{ID: "miner-2", Type: "MINER", Active: true},
			{ID: "full-1", Type: "FULL", Active: true, Trusted: true},
			{ID: "light-1", Type: "LIGHT", Active: true},
		},
		Links: []Link{
			{From: "miner-1", To: "full-1"},
			{From: "miner-2", To: "full-1"},
			{From: "light-1", To: "full-1"},
		},
		Miners: []string{"miner-1", "miner-2"},
	}
}

// Load opens and consumes the genesis file. Values missing from the file
// keep their defaults.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	def := Default()

	// Decoding an array into a populated slice merges into the existing
	// elements, so the lists start empty and take their defaults only when
	// the file leaves them out.
	genesis := def
	genesis.Chains, genesis.Nodes, genesis.Links, genesis.Miners = nil, nil, nil, nil

	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis: %w", err)
	}

	if genesis.Chains == nil {
		genesis.Chains = def.Chains
	}
	if genesis.Nodes == nil {
		genesis.Nodes = def.Nodes
	}
	if genesis.Links == nil {
		genesis.Links = def.Links
	}
	if genesis.Miners == nil {
		genesis.Miners = def.Miners
	}

	if err := validate.Check(genesis); err != nil {
		return Genesis{}, fmt.Errorf("genesis: %w: %w", errs.ErrInvalidArgument, err)
	}

	return genesis, nil
}

// =============================================================================

// Apply seeds the ledger and the peer graph. Chains and nodes that already
// exist are left as they are so a restarted simulation keeps its state.
func (g Genesis) Apply(ctx context.Context, l *ledger.Ledger, reg *peer.Registry, graph *peer.Graph) error {
	existing := make(map[string]bool)
	for _, info := range l.Chains() {
		existing[info.Name] = true
	}

	for _, chain := range g.Chains {
		if existing[chain.Name] {
			continue
		}

		typ, err := consensus.Parse(chain.Consensus)
		if err != nil {
			return err
		}

		if _, err := l.InitializeChain(ctx, chain.Name, typ); err != nil {
			return fmt.Errorf("chain %q: %w", chain.Name, err)
		}
	}

	for _, n := range g.Nodes {
		typ, err := peer.ParseNodeType(n.Type)
		if err != nil {
			return err
		}

		if _, err := reg.Register(n.ID, typ); err != nil {
			if errors.Is(err, errs.ErrDuplicateNode) {
				continue
			}
			return err
		}

		if n.Trusted {
			if _, err := reg.Trust(n.ID); err != nil {
				return err
			}
		}

		if n.Active {
			if _, err := reg.UpdateStatus(n.ID, peer.StatusActive); err != nil {
				return err
			}
		}
	}

	for _, link := range g.Links {
		if err := graph.Connect(link.From, link.To); err != nil {
			return fmt.Errorf("link %s-%s: %w", link.From, link.To, err)
		}
	}

	return nil
}
