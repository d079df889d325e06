// Package consensus provides the set of rules that can seal a block and
// verify a sealed block. Rules are looked up by consensus type so new rules
// can be added without changing the ledger.
package consensus

import (
	"context"
	"fmt"
	"strings"

	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/hashing"
)

// Type identifies a consensus rule.
type Type string

// Set of supported consensus types.
const (
	ProofOfWork Type = "PROOF_OF_WORK"
)

// Map of consensus types with their rules.
var rules = map[Type]Rule{
	ProofOfWork: {
		Seal:   sealPOW,
		Verify: verifyPOW,
	},
}

// Parse converts a string into a supported consensus type. The match is not
// case sensitive.
func Parse(s string) (Type, error) {
	typ := Type(strings.ToUpper(strings.TrimSpace(s)))
	if _, exists := rules[typ]; !exists {
		return "", fmt.Errorf("consensus type %q: %w", s, errs.ErrInvalidArgument)
	}
	return typ, nil
}

// Retrieve returns the rule registered for the consensus type.
func Retrieve(typ Type) (Rule, error) {
	rule, exists := rules[typ]
	if !exists {
		return Rule{}, fmt.Errorf("consensus type %q does not exist: %w", typ, errs.ErrInvalidArgument)
	}
	return rule, nil
}

// =============================================================================

// EventHandler defines a function that is called when events occur in the
// processing of sealing a block.
type EventHandler func(v string, args ...any)

// Candidate represents the fields of a block that are fixed before a proof
// is searched for.
type Candidate struct {
	Height     uint64
	PrevHash   string
	MerkleRoot string
	TimeStamp  uint64
	Producer   string
	Difficulty uint
}

// Hash returns the hash of the candidate for the specified nonce.
func (c Candidate) Hash(nonce uint64) string {
	return hashing.BlockHash(c.Height, c.PrevHash, c.MerkleRoot, nonce, c.TimeStamp, c.Producer)
}

// Proof is the outcome of a successful seal.
type Proof struct {
	Nonce    uint64
	Hash     string
	Attempts uint64
}

// SealFunc searches for a proof for the candidate, giving up after
// maxAttempts tries.
type SealFunc func(ctx context.Context, c Candidate, maxAttempts uint64, ev EventHandler) (Proof, error)

// VerifyFunc checks the nonce and hash reported for a sealed candidate.
type VerifyFunc func(c Candidate, nonce uint64, hash string) error

// Rule pairs the seal and verify behavior of a consensus type.
type Rule struct {
	Seal   SealFunc
	Verify VerifyFunc
}
