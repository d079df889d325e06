package consensus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ardanlabs/chainsim/foundation/blockchain/consensus"
	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/hashing"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func candidate(difficulty uint) consensus.Candidate {
	return consensus.Candidate{
		Height:     1,
		PrevHash:   hashing.ZeroHash,
		MerkleRoot: hashing.EmptyRoot,
		TimeStamp:  1700000000000,
		Producer:   "miner1",
		Difficulty: difficulty,
	}
}

func Test_Parse(t *testing.T) {
	t.Log("Given the need to parse consensus types.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a known type in any case.", testID)
		{
			typ, err := consensus.Parse("proof_of_work")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to parse the type: %v", failed, testID, err)
			}
			if typ != consensus.ProofOfWork {
				t.Fatalf("\t%s\tTest %d:\tShould get back PROOF_OF_WORK, got %s.", failed, testID, typ)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to parse the type.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen handling an unknown type.", testID)
		{
			_, err := consensus.Parse("PROOF_OF_STAKE")
			if !errors.Is(err, errs.ErrInvalidArgument) {
				t.Fatalf("\t%s\tTest %d:\tShould get an invalid argument error, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get an invalid argument error.", success, testID)

			_, err = consensus.Retrieve(consensus.Type("PROOF_OF_STAKE"))
			if !errors.Is(err, errs.ErrInvalidArgument) {
				t.Fatalf("\t%s\tTest %d:\tShould not retrieve a rule, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not retrieve a rule.", success, testID)
		}
	}
}

func Test_SealAndVerify(t *testing.T) {
	rule, err := consensus.Retrieve(consensus.ProofOfWork)
	if err != nil {
		t.Fatalf("Should be able to retrieve the rule: %v", err)
	}

	t.Log("Given the need to seal a block with proof of work.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen sealing at a low difficulty.", testID)
		{
			c := candidate(8)

			proof, err := rule.Seal(context.Background(), c, 1_000_000, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to seal: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to seal.", success, testID)

			if proof.Attempts != proof.Nonce+1 {
				t.Logf("\t\tTest %d:\tnonce: %d attempts: %d", testID, proof.Nonce, proof.Attempts)
				t.Fatalf("\t%s\tTest %d:\tShould search nonces from zero.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould search nonces from zero.", success, testID)

			if hashing.LeadingZeroBitsHex(proof.Hash) < 8 {
				t.Fatalf("\t%s\tTest %d:\tShould produce a hash with 8 leading zero bits: %s", failed, testID, proof.Hash)
			}
			t.Logf("\t%s\tTest %d:\tShould produce a hash with 8 leading zero bits.", success, testID)

			if err := rule.Verify(c, proof.Nonce, proof.Hash); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould verify the proof: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould verify the proof.", success, testID)

			err = rule.Verify(c, proof.Nonce+1, proof.Hash)
			if !errs.IsRule(err, errs.RuleHashMismatch) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the wrong nonce, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the wrong nonce.", success, testID)

			hard := c
			hard.Difficulty = uint(hashing.LeadingZeroBitsHex(proof.Hash)) + 1
			err = rule.Verify(hard, proof.Nonce, proof.Hash)
			if !errs.IsRule(err, errs.RuleProofInsufficient) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a proof below the difficulty, got %v.", failed, testID, err)
			}
			if !errors.Is(err, errs.ErrInvalidBlock) {
				t.Fatalf("\t%s\tTest %d:\tShould match the invalid block kind.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a proof below the difficulty.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the attempt bound is exceeded.", testID)
		{
			_, err := rule.Seal(context.Background(), candidate(hashing.MaxDifficulty), 100, nil)
			if !errors.Is(err, errs.ErrConsensus) {
				t.Fatalf("\t%s\tTest %d:\tShould get a consensus error, got %v.", failed, testID, err)
			}

			var ce *errs.ConsensusError
			if !errors.As(err, &ce) {
				t.Fatalf("\t%s\tTest %d:\tShould get a ConsensusError value.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get a consensus error.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the context is cancelled.", testID)
		{
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := rule.Seal(ctx, candidate(hashing.MaxDifficulty), 1_000_000, nil)
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("\t%s\tTest %d:\tShould get the context error, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get the context error.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the difficulty is out of range.", testID)
		{
			_, err := rule.Seal(context.Background(), candidate(hashing.MaxDifficulty+1), 10, nil)
			if !errors.Is(err, errs.ErrInvalidArgument) {
				t.Fatalf("\t%s\tTest %d:\tShould get an invalid argument error, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get an invalid argument error.", success, testID)
		}
	}
}
