package consensus

import (
	"context"
	"fmt"

	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/hashing"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// sealPOW does the work of mining to find a nonce that produces a digest
// with the candidate's difficulty in leading zero bits. The nonce starts at
// zero and is incremented by one until a solution is found, the context is
// cancelled or maxAttempts is reached.
func sealPOW(ctx context.Context, c Candidate, maxAttempts uint64, ev EventHandler) (Proof, error) {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	if c.Difficulty > hashing.MaxDifficulty {
		return Proof{}, fmt.Errorf("difficulty %d exceeds %d: %w", c.Difficulty, hashing.MaxDifficulty, errs.ErrInvalidArgument)
	}

	ev("consensus: sealPOW: MINING: started: blk[%d]: difficulty[%d]", c.Height, c.Difficulty)
	defer ev("consensus: sealPOW: MINING: completed: blk[%d]", c.Height)

	var nonce uint64
	for attempts := uint64(1); attempts <= maxAttempts; attempts++ {
		if attempts%1_000_000 == 0 {
			ev("consensus: sealPOW: MINING: attempts[%d]", attempts)
		}

		// Did we get told to stop trying to solve the problem.
		if ctx.Err() != nil {
			ev("consensus: sealPOW: MINING: CANCELLED")
			return Proof{}, ctx.Err()
		}

		digest := hashing.BlockDigest(c.Height, c.PrevHash, c.MerkleRoot, nonce, c.TimeStamp, c.Producer)
		if !hashing.IsHashSolved(c.Difficulty, digest[:]) {
			nonce++
			continue
		}

		hash := hexutil.Encode(digest[:])
		ev("consensus: sealPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", c.PrevHash, hash, attempts)

		proof := Proof{
			Nonce:    nonce,
			Hash:     hash,
			Attempts: attempts,
		}

		return proof, nil
	}

	ev("consensus: sealPOW: MINING: EXHAUSTED: attempts[%d]", maxAttempts)

	return Proof{}, errs.NewConsensus("no proof found for block %d at difficulty %d within %d attempts", c.Height, c.Difficulty, maxAttempts)
}

// verifyPOW recomputes the hash for the nonce and checks it carries the
// required number of leading zero bits.
func verifyPOW(c Candidate, nonce uint64, hash string) error {
	digest := hashing.BlockDigest(c.Height, c.PrevHash, c.MerkleRoot, nonce, c.TimeStamp, c.Producer)

	if exp := hexutil.Encode(digest[:]); exp != hash {
		return errs.NewInvalidBlock(errs.RuleHashMismatch, c.Height, "got %s, exp %s", hash, exp)
	}

	if !hashing.IsHashSolved(c.Difficulty, digest[:]) {
		return errs.NewInvalidBlock(errs.RuleProofInsufficient, c.Height, "hash %s has %d leading zero bits, need %d", hash, hashing.LeadingZeroBits(digest[:]), c.Difficulty)
	}

	return nil
}
