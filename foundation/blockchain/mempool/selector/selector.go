// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"
	"slices"

	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
)

// List of different select strategies.
const (
	StrategyTip         = "tip"
	StrategyTipAdvanced = "advanced"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyTip:         tipSelect,
	StrategyTipAdvanced: advancedTipSelect,
}

// Func defines a function that takes a mempool of transactions grouped by
// sender and selects howMany of them in an order based on the functions
// strategy. All selector functions MUST respect nonce ordering.
type Func func(transactions map[string][]database.BlockTx, howMany int) []database.BlockTx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist: %w", strategy, errs.ErrInvalidArgument)
	}
	return fn, nil
}

// =============================================================================

// senders returns the senders in the map in sorted order so selections are
// repeatable.
func senders(m map[string][]database.BlockTx) []string {
	keys := make([]string, 0, len(m))
	for from := range m {
		keys = append(keys, from)
	}
	slices.Sort(keys)

	return keys
}

// byNonce provides sorting support by the transaction nonce value.
type byNonce []database.BlockTx

// Len returns the number of transactions in the list.
func (bn byNonce) Len() int {
	return len(bn)
}

// Less helps to sort the list by nonce in ascending order to keep the
// transactions in the right order of processing.
func (bn byNonce) Less(i, j int) bool {
	return bn[i].Nonce < bn[j].Nonce
}

// Swap moves transactions in the order of the nonce value.
func (bn byNonce) Swap(i, j int) {
	bn[i], bn[j] = bn[j], bn[i]
}

// =============================================================================

// byTip provides sorting support by the transaction tip value.
type byTip []database.BlockTx

// Len returns the number of transactions in the list.
func (bt byTip) Len() int {
	return len(bt)
}

// Less helps to sort the list by tip in decending order to pick the
// transactions that provide the best reward.
func (bt byTip) Less(i, j int) bool {
	return bt[i].Tip > bt[j].Tip
}

// Swap moves transactions in the order of the tip value.
func (bt byTip) Swap(i, j int) {
	bt[i], bt[j] = bt[j], bt[i]
}
