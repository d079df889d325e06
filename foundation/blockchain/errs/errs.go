// Package errs declares the error kinds shared by the ledger, the consensus
// rules and the node registry. Callers match them with errors.Is and
// errors.As.
package errs

import (
	"errors"
	"fmt"
)

// Set of error kinds reported by the blockchain packages.
var (
	ErrChainNotFound     = errors.New("chain not found")
	ErrDuplicateChain    = errors.New("chain name already exists")
	ErrInvalidBlock      = errors.New("invalid block")
	ErrConsensus         = errors.New("consensus failure")
	ErrStaleSeal         = errors.New("block sealed against a stale tip")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNodeNotFound      = errors.New("node not found")
	ErrDuplicateNode     = errors.New("node already registered")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// =============================================================================

// Rule names the block validation check that failed.
type Rule string

// Set of block validation rules.
const (
	RuleChainMismatch     Rule = "chain-mismatch"
	RuleHeightGap         Rule = "height-gap"
	RulePrevHashMismatch  Rule = "prev-hash-mismatch"
	RuleMerkleMismatch    Rule = "merkle-mismatch"
	RuleHashMismatch      Rule = "hash-mismatch"
	RuleProofInsufficient Rule = "proof-insufficient"
	RuleTimestampOrder    Rule = "timestamp-order"
)

// InvalidBlockError is returned when a block fails validation against the
// chain it is being appended to.
type InvalidBlockError struct {
	Rule   Rule
	Height uint64
	Detail string
}

// NewInvalidBlock constructs an InvalidBlockError.
func NewInvalidBlock(rule Rule, height uint64, format string, args ...any) error {
	return &InvalidBlockError{
		Rule:   rule,
		Height: height,
		Detail: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *InvalidBlockError) Error() string {
	return fmt.Sprintf("invalid block %d: %s: %s", e.Height, e.Rule, e.Detail)
}

// Is allows errors.Is to match the ErrInvalidBlock kind.
func (e *InvalidBlockError) Is(target error) bool {
	return target == ErrInvalidBlock
}

// IsRule reports whether the error is an InvalidBlockError for the rule.
func IsRule(err error, rule Rule) bool {
	var ibe *InvalidBlockError
	if !errors.As(err, &ibe) {
		return false
	}
	return ibe.Rule == rule
}

// =============================================================================

// ConsensusError is returned when a consensus rule can't produce or accept
// a proof.
type ConsensusError struct {
	Reason string
}

// NewConsensus constructs a ConsensusError.
func NewConsensus(format string, args ...any) error {
	return &ConsensusError{Reason: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *ConsensusError) Error() string {
	return "consensus failure: " + e.Reason
}

// Is allows errors.Is to match the ErrConsensus kind.
func (e *ConsensusError) Is(target error) bool {
	return target == ErrConsensus
}

// =============================================================================

// TransitionError is returned when a node status change is not allowed by
// the status state machine.
type TransitionError struct {
	From string
	To   string
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// Is allows errors.Is to match the ErrInvalidTransition kind.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
