package merkle_test

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"testing"

	"github.com/ardanlabs/chainsim/foundation/blockchain/hashing"
	"github.com/ardanlabs/chainsim/foundation/blockchain/merkle"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// data implements the merkle Hashable interface over a string.
type data string

func (d data) Hash() ([]byte, error) {
	h := sha256.Sum256([]byte(d))
	return h[:], nil
}

func values(s ...string) []data {
	vs := make([]data, len(s))
	for i, v := range s {
		vs[i] = data(v)
	}
	return vs
}

// =============================================================================

func Test_Root(t *testing.T) {
	type table struct {
		name string
		data []data
		exp  string
	}

	tt := []table{
		{name: "single", data: values("a"), exp: "0x516f7b1677cf7ff999e44ae93847a60e5ccbc709d49b98996f084513999bcfcc"},
		{name: "pair", data: values("a", "a"), exp: "0xfbe1175b2c860fb411e0b9517dd6bbf8ce550edcd3836a1f44472b58c5c5e428"},
		{name: "odd", data: values("a", "b", "c"), exp: "0x374555ef88b17d9d2ca53a9ec3e0fa8cf68288866b536c1854b879cc6c6439f9"},
		{name: "even", data: values("a", "b", "c", "c"), exp: "0xd9858f2c5003ffd282a6e3453a8f59366b3e31f1c4ff0f7e2a524e03e10e4401"},
	}

	t.Log("Given the need to compute the root of a list of values.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling the %q list.", testID, tst.name)
			{
				root, err := merkle.RootHex(tst.data)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to compute the root: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould be able to compute the root.", success, testID)

				if root != tst.exp {
					t.Logf("\t\tTest %d:\tgot: %s", testID, root)
					t.Logf("\t\tTest %d:\texp: %s", testID, tst.exp)
					t.Fatalf("\t%s\tTest %d:\tShould get back the known root.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the known root.", success, testID)
			}
		}
	}
}

func Test_EmptyRoot(t *testing.T) {
	t.Log("Given the need to handle a list with no values.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen computing the root of an empty list.", testID)
		{
			root, err := merkle.RootHex([]data{})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to compute the root: %v", failed, testID, err)
			}
			if root != hashing.EmptyRoot {
				t.Logf("\t\tTest %d:\tgot: %s", testID, root)
				t.Fatalf("\t%s\tTest %d:\tShould get back the empty root.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get back the empty root.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen constructing a tree over an empty list.", testID)
		{
			if _, err := merkle.NewTree([]data{}); !errors.Is(err, merkle.ErrNoContent) {
				t.Fatalf("\t%s\tTest %d:\tShould get ErrNoContent: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get ErrNoContent.", success, testID)
		}
	}
}

func Test_RepeatedLastLeaf(t *testing.T) {
	type table struct {
		name  string
		short []data
		long  []data
	}

	tt := []table{
		{name: "one and two", short: values("tx"), long: values("tx", "tx")},
		{name: "three and four", short: values("a", "b", "c"), long: values("a", "b", "c", "c")},
		{name: "five and six", short: values("a", "b", "c", "d", "e"), long: values("a", "b", "c", "d", "e", "e")},
	}

	t.Log("Given the need for a repeated last value to change the root.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen comparing lists of %s values.", testID, tst.name)
			{
				short, err := merkle.RootHex(tst.short)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to compute the short root: %v", failed, testID, err)
				}
				long, err := merkle.RootHex(tst.long)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to compute the long root: %v", failed, testID, err)
				}

				if short == long {
					t.Logf("\t\tTest %d:\troot: %s", testID, short)
					t.Fatalf("\t%s\tTest %d:\tShould get different roots.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get different roots.", success, testID)
			}
		}
	}
}

func Test_Proof(t *testing.T) {
	t.Log("Given the need to prove a value is part of a tree.")
	{
		for count := 1; count <= 9; count++ {
			testID := count - 1
			t.Logf("\tTest %d:\tWhen handling a tree with %d values.", testID, count)
			{
				vs := make([]data, count)
				for i := range vs {
					vs[i] = data(fmt.Sprintf("value-%d", i))
				}

				tree, err := merkle.NewTree(vs)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to build the tree: %v", failed, testID, err)
				}

				for i, v := range vs {
					proof, err := tree.Proof(i)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to get a proof for index %d: %v", failed, testID, i, err)
					}

					if err := merkle.Verify(tree.RootHex(), v, proof); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould verify the proof for index %d: %v", failed, testID, i, err)
					}

					if err := merkle.Verify(tree.RootHex(), data("other"), proof); !errors.Is(err, merkle.ErrProofInvalid) {
						t.Fatalf("\t%s\tTest %d:\tShould reject a different value for index %d: %v", failed, testID, i, err)
					}
				}
				t.Logf("\t%s\tTest %d:\tShould verify every proof and reject a different value.", success, testID)

				if _, err := tree.Proof(count); !errors.Is(err, merkle.ErrOutOfRange) {
					t.Fatalf("\t%s\tTest %d:\tShould reject an index past the end: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould reject an index past the end.", success, testID)
			}
		}
	}
}

func Test_ProofCount(t *testing.T) {
	t.Log("Given the need for a proof to be bound to the size of the tree.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen changing the leaf count of a valid proof.", testID)
		{
			vs := values("a", "b", "c")

			tree, err := merkle.NewTree(vs)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build the tree: %v", failed, testID, err)
			}

			proof, err := tree.Proof(2)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to get a proof: %v", failed, testID, err)
			}

			proof.Count = 4
			if err := merkle.Verify(tree.RootHex(), vs[2], proof); !errors.Is(err, merkle.ErrProofInvalid) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the altered proof: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the altered proof.", success, testID)
		}
	}
}
