// Package wallet generates key pairs and keeps the catalog of wallets known
// to the simulator. Only the address and public key are kept, the private
// key is handed back once when the wallet is created.
package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// EventHandler defines a function that is called when events occur in the
// processing of wallets.
type EventHandler func(v string, args ...any)

// Wallet represents the public information for a wallet.
type Wallet struct {
	Address   string    `json:"address"`
	Name      string    `json:"name,omitempty"`
	PublicKey string    `json:"public_key"`
	CreatedAt time.Time `json:"created_at"`
}

// KeyPair is a newly created wallet along with its private key.
type KeyPair struct {
	Wallet
	PrivateKey string `json:"private_key"`
}

// Save writes the private key to the specified file in the format the
// LoadFolder function can read back.
func (kp KeyPair) Save(fileName string) error {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(kp.PrivateKey, "0x"))
	if err != nil {
		return fmt.Errorf("decoding private key: %w", err)
	}

	if err := crypto.SaveECDSA(fileName, privateKey); err != nil {
		return fmt.Errorf("saving private key: %w", err)
	}

	return nil
}

// =============================================================================

// Config represents the configuration required to construct a store.
type Config struct {
	EvHandler EventHandler
	Now       func() time.Time
}

// Store maintains the set of wallets by address.
type Store struct {
	mu      sync.RWMutex
	wallets map[common.Address]Wallet
	ev      EventHandler
	now     func() time.Time
}

// NewStore constructs an empty wallet store.
func NewStore(cfg Config) *Store {
	ev := cfg.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		wallets: make(map[common.Address]Wallet),
		ev:      ev,
		now:     now,
	}
}

// Create generates a new key pair and adds the wallet to the store.
func (s *Store) Create(name string) (KeyPair, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return KeyPair{}, fmt.Errorf("generating key: %w", err)
	}

	w := s.add(privateKey, strings.TrimSpace(name))

	kp := KeyPair{
		Wallet:     w,
		PrivateKey: hexutil.Encode(crypto.FromECDSA(privateKey)),
	}

	return kp, nil
}

// Get returns the wallet for the specified address. The address match is
// not case sensitive.
func (s *Store) Get(address string) (Wallet, bool) {
	if !ValidateAddress(address) {
		return Wallet{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.wallets[common.HexToAddress(address)]
	return w, exists
}

// List returns all the wallets ordered by creation time and address.
func (s *Store) List() []Wallet {
	s.mu.RLock()
	wallets := make([]Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		wallets = append(wallets, w)
	}
	s.mu.RUnlock()

	slices.SortFunc(wallets, func(a, b Wallet) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Address, b.Address)
	})

	return wallets
}

// Lookup returns the name for the specified address, or the address itself
// when the wallet has no name.
func (s *Store) Lookup(address string) string {
	w, exists := s.Get(address)
	if !exists || w.Name == "" {
		return address
	}
	return w.Name
}

// LoadFolder reads every .ecdsa key file under the root folder and adds the
// wallets to the store. The file name becomes the wallet name.
func (s *Store) LoadFolder(root string) (int, error) {
	var count int

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("loading key %q: %w", fileName, err)
		}

		s.add(privateKey, strings.TrimSuffix(path.Base(fileName), ".ecdsa"))
		count++

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return count, fmt.Errorf("walking directory: %w", err)
	}

	return count, nil
}

// add records the wallet for the private key. An existing wallet for the
// same address is replaced.
func (s *Store) add(privateKey *ecdsa.PrivateKey, name string) Wallet {
	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	w := Wallet{
		Address:   address.Hex(),
		Name:      name,
		PublicKey: hexutil.Encode(crypto.FromECDSAPub(&privateKey.PublicKey)),
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.wallets[address] = w
	s.mu.Unlock()

	s.ev("viewer: wallet[%s]: name[%s]: created", w.Address, w.Name)

	return w
}

// =============================================================================

// ValidateAddress reports whether the string is a hex encoded 20 byte
// address, with or without the 0x prefix.
func ValidateAddress(address string) bool {
	return common.IsHexAddress(address)
}

// ParseAddress returns the checksummed form of the address.
func ParseAddress(address string) (string, error) {
	if !ValidateAddress(address) {
		return "", fmt.Errorf("address %q: %w", address, errs.ErrInvalidArgument)
	}
	return common.HexToAddress(address).Hex(), nil
}
