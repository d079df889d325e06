package database

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
	"github.com/ardanlabs/chainsim/foundation/blockchain/hashing"
	"github.com/ardanlabs/chainsim/foundation/blockchain/merkle"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BlockTx represents a transaction recorded in a block.
type BlockTx struct {
	From  string `json:"from"`  // Identifier or address of the sending party.
	To    string `json:"to"`    // Identifier or address of the receiving party.
	Value uint64 `json:"value"` // Monetary value moved by this transaction.
	Tip   uint64 `json:"tip"`   // Tip offered by the sender to have the transaction sealed.
	Nonce uint64 `json:"nonce"` // Per sender sequence number.
	Data  []byte `json:"data"`  // Extra data related to the transaction.
}

// Validate checks the transaction has the fields needed to be sealed.
func (tx BlockTx) Validate() error {
	if strings.TrimSpace(tx.From) == "" {
		return fmt.Errorf("transaction from is empty: %w", errs.ErrInvalidArgument)
	}

	if strings.TrimSpace(tx.To) == "" {
		return fmt.Errorf("transaction to is empty: %w", errs.ErrInvalidArgument)
	}

	return nil
}

// Digest returns the SHA-256 digest of the canonical encoding of the
// transaction.
func (tx BlockTx) Digest() [sha256.Size]byte {
	var e hashing.Encoder
	e.String(tx.From).
		String(tx.To).
		Uint64(tx.Value).
		Uint64(tx.Tip).
		Uint64(tx.Nonce).
		Bytes(tx.Data)

	return e.Sum()
}

// Hash implements the merkle Hashable interface for providing a hash
// of a block transaction.
func (tx BlockTx) Hash() ([]byte, error) {
	digest := tx.Digest()
	return digest[:], nil
}

// HashHex returns the hex encoded transaction hash.
func (tx BlockTx) HashHex() string {
	digest := tx.Digest()
	return hexutil.Encode(digest[:])
}

// String implements the fmt.Stringer interface for logging.
func (tx BlockTx) String() string {
	return fmt.Sprintf("%s:%d", tx.From, tx.Nonce)
}

// clone returns a deep copy of the transaction.
func (tx BlockTx) clone() BlockTx {
	if tx.Data != nil {
		tx.Data = append([]byte(nil), tx.Data...)
	}
	return tx
}

// cloneTrans returns a deep copy of the transactions.
func cloneTrans(trans []BlockTx) []BlockTx {
	if trans == nil {
		return nil
	}

	cpy := make([]BlockTx, len(trans))
	for i, tx := range trans {
		cpy[i] = tx.clone()
	}
	return cpy
}

// MerkleRoot returns the hex encoded merkle root of the transactions. No
// transactions produce the empty root.
func MerkleRoot(trans []BlockTx) (string, error) {
	return merkle.RootHex(trans)
}

// TxProof returns the merkle inclusion proof for the transaction at the
// specified index.
func TxProof(trans []BlockTx, index int) (merkle.Proof, error) {
	tree, err := merkle.NewTree(trans)
	if err != nil {
		return merkle.Proof{}, err
	}

	return tree.Proof(index)
}

// VerifyTxProof checks the proof shows the transaction is committed to by
// the merkle root.
func VerifyTxProof(merkleRoot string, tx BlockTx, proof merkle.Proof) error {
	return merkle.Verify(merkleRoot, tx, proof)
}
