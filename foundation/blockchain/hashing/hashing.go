// Package hashing provides the canonical encoding and digest functions used
// to link blocks together and to prove work was performed on them.
package hashing

import (
	"crypto/sha256"
	"encoding/binary"
	"math/bits"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ZeroHash represents a hash code of zeros. It is used as the previous block
// hash for the genesis block.
const ZeroHash string = "0x0000000000000000000000000000000000000000000000000000000000000000"

// EmptyRoot is the merkle root reported for a block with no transactions.
const EmptyRoot = ZeroHash

// MaxDifficulty is the largest number of leading zero bits a 32 byte
// digest can have.
const MaxDifficulty = sha256.Size * 8

// =============================================================================

// Encoder produces the canonical byte layout for hashing. Unsigned integers
// are written as 8 byte big-endian values. Strings and byte slices are written
// as a 4 byte big-endian length followed by the raw bytes so adjacent fields
// can never run into each other.
type Encoder struct {
	buf []byte
}

// Uint64 appends an unsigned integer to the encoding.
func (e *Encoder) Uint64(v uint64) *Encoder {
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
	return e
}

// String appends a length prefixed string to the encoding.
func (e *Encoder) String(s string) *Encoder {
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(s)))
	e.buf = append(e.buf, s...)
	return e
}

// Bytes appends a length prefixed byte slice to the encoding.
func (e *Encoder) Bytes(b []byte) *Encoder {
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(b)))
	e.buf = append(e.buf, b...)
	return e
}

// Encoded returns the bytes written so far.
func (e *Encoder) Encoded() []byte {
	return e.buf
}

// Sum returns the SHA-256 digest of the bytes written so far.
func (e *Encoder) Sum() [sha256.Size]byte {
	return sha256.Sum256(e.buf)
}

// =============================================================================

// BlockDigest returns the SHA-256 digest over the canonical encoding of the
// fields that identify a block.
func BlockDigest(height uint64, prevHash string, merkleRoot string, nonce uint64, timeStamp uint64, producer string) [sha256.Size]byte {
	var e Encoder
	e.Uint64(height).
		String(prevHash).
		String(merkleRoot).
		Uint64(nonce).
		Uint64(timeStamp).
		String(producer)

	return e.Sum()
}

// BlockHash returns the hex encoded form of BlockDigest.
func BlockHash(height uint64, prevHash string, merkleRoot string, nonce uint64, timeStamp uint64, producer string) string {
	digest := BlockDigest(height, prevHash, merkleRoot, nonce, timeStamp, producer)
	return hexutil.Encode(digest[:])
}

// =============================================================================

// LeadingZeroBits returns the number of leading zero bits in the digest.
func LeadingZeroBits(digest []byte) int {
	var n int
	for _, b := range digest {
		if b == 0 {
			n += 8
			continue
		}
		n += bits.LeadingZeros8(b)
		break
	}

	return n
}

// LeadingZeroBitsHex decodes a hex encoded hash and returns the number of
// leading zero bits. A hash that can't be decoded reports zero.
func LeadingZeroBitsHex(hash string) int {
	digest, err := hexutil.Decode(hash)
	if err != nil {
		return 0
	}

	return LeadingZeroBits(digest)
}

// IsHashSolved checks the digest has at least difficulty leading zero bits.
func IsHashSolved(difficulty uint, digest []byte) bool {
	return uint(LeadingZeroBits(digest)) >= difficulty
}
