package selector

import (
	"sort"

	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
)

// tipSelect returns transactions with the best tip while respecting the nonce
// for each sender.
var tipSelect = func(m map[string][]database.BlockTx, howMany int) []database.BlockTx {

	/*
		alice: {Nonce: 2, To: "bob", Tip: 250},
		       {Nonce: 1, To: "carol", Tip: 150},
		bob:   {Nonce: 2, To: "dave", Tip: 200},
		       {Nonce: 1, To: "carol", Tip: 75},
	*/

	// Sort the transactions per sender by nonce.
	for key := range m {
		if len(m[key]) > 1 {
			sort.Stable(byNonce(m[key]))
		}
	}

	/*
		alice: {Nonce: 1, To: "carol", Tip: 150},
		       {Nonce: 2, To: "bob", Tip: 250},
		bob:   {Nonce: 1, To: "carol", Tip: 75},
		       {Nonce: 2, To: "dave", Tip: 200},
	*/

	// Pick the first transaction in the slice for each sender. Each iteration
	// represents a new row of selections. Keep doing that until all the
	// transactions have been selected.
	keys := senders(m)

	var rows [][]database.BlockTx
	for {
		var row []database.BlockTx
		for _, key := range keys {
			if len(m[key]) > 0 {
				row = append(row, m[key][0])
				m[key] = m[key][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	/*
		0: alice: {Nonce: 1, To: "carol", Tip: 150},
		0: bob:   {Nonce: 1, To: "carol", Tip: 75},
		1: alice: {Nonce: 2, To: "bob", Tip: 250},
		1: bob:   {Nonce: 2, To: "dave", Tip: 200},
	*/

	// Sort each row by tip unless we will take all transactions from that row
	// anyway. Then try to select the number of requested transactions. Keep
	// pulling transactions from each row until the amount of fulfilled or
	// there are no more transactions.
	final := []database.BlockTx{}
done:
	for _, row := range rows {
		need := howMany - len(final)
		if len(row) > need {
			sort.Stable(byTip(row))
			final = append(final, row[:need]...)
			break done
		}
		final = append(final, row...)
	}

	return final
}
