package database_test

import (
	"testing"

	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
)

func buildChain(t *testing.T, n int) *database.Chain {
	t.Helper()

	chain := database.NewChain()

	var parent *database.Block
	for i := 0; i < n; i++ {
		trans := []database.BlockTx{{From: "alice", To: "bob", Value: uint64(i), Nonce: uint64(i)}}
		block := seal(t, parent, trans, "miner1", clock(int64(1000+i)))
		if err := chain.Append(block); err != nil {
			t.Fatalf("Should be able to append block %d: %v", i, err)
		}
		parent = &block
	}

	return chain
}

func heights(blocks []database.Block) []uint64 {
	hs := make([]uint64, len(blocks))
	for i, b := range blocks {
		hs[i] = b.Header.Number
	}
	return hs
}

func equal(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// =============================================================================

func Test_ChainLookups(t *testing.T) {
	chain := buildChain(t, 5)

	t.Log("Given the need to look up committed blocks.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen looking up by height and hash.", testID)
		{
			b, ok := chain.BlockByHeight(3)
			if !ok || b.Header.Number != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould find block 3.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould find block 3.", success, testID)

			byHash, ok := chain.BlockByHash(b.Hash())
			if !ok || byHash.Header.Number != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould find block 3 by hash.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould find block 3 by hash.", success, testID)

			if _, ok := chain.BlockByHeight(5); ok {
				t.Fatalf("\t%s\tTest %d:\tShould not find a height past the tip.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not find a height past the tip.", success, testID)

			if _, ok := chain.BlockByHash("0x1234"); ok {
				t.Fatalf("\t%s\tTest %d:\tShould not find an unknown hash.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not find an unknown hash.", success, testID)

			tip, ok := chain.Tip()
			if !ok || tip.Header.Number != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould get the tip.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get the tip.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen mutating a returned block.", testID)
		{
			b, _ := chain.BlockByHeight(2)
			b.Trans[0].Value = 1_000
			b.Header.Nonce = 42

			again, _ := chain.BlockByHeight(2)
			if again.Trans[0].Value != 2 || again.Header.Nonce == 42 {
				t.Fatalf("\t%s\tTest %d:\tShould not change the committed block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not change the committed block.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen appending a block out of order.", testID)
		{
			b, _ := chain.BlockByHeight(2)
			if err := chain.Append(b); !errs.IsRule(err, errs.RuleHeightGap) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the block, got %v.", failed, testID, err)
			}
			if chain.Len() != 5 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the chain unchanged.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the block and leave the chain unchanged.", success, testID)
		}
	}
}

func Test_ChainPaging(t *testing.T) {
	chain := buildChain(t, 5)

	type table struct {
		name   string
		blocks []database.Block
		exp    []uint64
	}

	tt := []table{
		{name: "first-page", blocks: chain.Page(0, 2), exp: []uint64{4, 3}},
		{name: "second-page", blocks: chain.Page(2, 2), exp: []uint64{2, 1}},
		{name: "last-partial-page", blocks: chain.Page(4, 2), exp: []uint64{0}},
		{name: "past-end", blocks: chain.Page(10, 2), exp: []uint64{}},
		{name: "zero-limit", blocks: chain.Page(0, 0), exp: []uint64{}},
		{name: "latest", blocks: chain.Latest(3), exp: []uint64{4, 3, 2}},
		{name: "latest-over-request", blocks: chain.Latest(50), exp: []uint64{4, 3, 2, 1, 0}},
		{name: "ascending", blocks: chain.Blocks(), exp: []uint64{0, 1, 2, 3, 4}},
	}

	t.Log("Given the need to page through blocks.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
			{
				got := heights(tst.blocks)
				if !equal(got, tst.exp) {
					t.Logf("\t\tTest %d:\tgot: %v", testID, got)
					t.Logf("\t\tTest %d:\texp: %v", testID, tst.exp)
					t.Fatalf("\t%s\tTest %d:\tShould get back the right heights.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the right heights.", success, testID)
			}
		}
	}
}
