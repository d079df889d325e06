package selector

import (
	"maps"
	"sort"

	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
)

// advancedTipSelect returns transactions with the best tip while respecting
// the nonce for each sender. This strategy takes into account high-value
// transactions that happen to be stuck behind a low-nonce transaction with
// a low tip.
var advancedTipSelect = func(m map[string][]database.BlockTx, howMany int) []database.BlockTx {
	final := []database.BlockTx{}

	// Sort the transactions per sender by nonce.
	for key := range m {
		if len(m[key]) > 1 {
			sort.Stable(byNonce(m[key]))
		}
	}

	at := newAdvancedTips(m, howMany)
	best := at.findBest()

	for _, from := range at.groups {
		for i := 0; i < best[from]; i++ {
			final = append(final, m[from][i])
		}
	}

	return final
}

// =============================================================================

// advancedTips searches every combination of prefixes of the senders'
// transactions for the one that pays the most in tips.
type advancedTips struct {
	howMany   int
	bestTip   uint64
	bestCount int
	bestPos   map[string]int
	groupTips map[string][]uint64
	groups    []string
}

func newAdvancedTips(m map[string][]database.BlockTx, howMany int) *advancedTips {
	groups := senders(m)
	groupTips := make(map[string][]uint64, len(groups))

	// groupTips[from][n] is the total tip of the first n transactions.
	for _, from := range groups {
		groupTips[from] = []uint64{0}
		for i, tx := range m[from] {
			if i >= howMany {
				break
			}
			groupTips[from] = append(groupTips[from], tx.Tip+groupTips[from][i])
		}
	}

	return &advancedTips{
		howMany:   howMany,
		bestPos:   map[string]int{},
		groupTips: groupTips,
		groups:    groups,
	}
}

func (at *advancedTips) findBest() map[string]int {
	at.findBestTransactions(0, at.howMany, map[string]int{}, 0)
	return at.bestPos
}

func (at *advancedTips) findBestTransactions(groupID int, left int, currPos map[string]int, prevTip uint64) {
	count := at.howMany - left

	// Prefer the higher tip, then the fuller block.
	if prevTip > at.bestTip || (prevTip == at.bestTip && count > at.bestCount) {
		at.bestTip = prevTip
		at.bestCount = count
		at.bestPos = currPos
	}

	if groupID >= len(at.groups) {
		return
	}
	from := at.groups[groupID]

	for pos, tip := range at.groupTips[from] {
		if left-pos < 0 {
			break
		}

		newCurrPos := maps.Clone(currPos)
		newCurrPos[from] = pos
		at.findBestTransactions(groupID+1, left-pos, newCurrPos, prevTip+tip)
	}
}
