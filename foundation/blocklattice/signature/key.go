package signature

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrInvalidKey is returned when a key file doesn't hold a valid seed.
var ErrInvalidKey = errors.New("invalid private key")

// PrivateKey is an ed25519 private key.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// GenerateKey creates a new private key using the provided source of
// randomness. A nil reader uses crypto/rand.
func GenerateKey(rand io.Reader) (PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand)
	if err != nil {
		return PrivateKey{}, err
	}

	return PrivateKey{key: key}, nil
}

// NewKeyFromSeed derives the private key for the 32 byte seed.
func NewKeyFromSeed(seed []byte) (PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return PrivateKey{}, ErrInvalidKey
	}

	return PrivateKey{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// PublicKey returns the public half of the key.
func (k PrivateKey) PublicKey() PublicKey {
	var pk PublicKey
	copy(pk[:], k.key.Public().(ed25519.PublicKey))
	return pk
}

// Sign signs the hash.
func (k PrivateKey) Sign(hash Hash) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(k.key, hash[:]))
	return sig
}

// Seed returns the 32 byte seed the key was derived from.
func (k PrivateKey) Seed() []byte {
	return k.key.Seed()
}

// Verify checks the signature of the hash was produced by the owner
// of the public key.
func Verify(pk PublicKey, hash Hash, sig Signature) bool {
	return ed25519.Verify(pk[:], hash[:], sig[:])
}

// =============================================================================

// SaveKey writes the hex encoded seed of the key to the file.
func SaveKey(path string, k PrivateKey) error {
	return os.WriteFile(path, []byte(hexutil.Encode(k.Seed())), 0600)
}

// LoadKey reads a key written by SaveKey.
func LoadKey(path string) (PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PrivateKey{}, err
	}

	seed, err := hexutil.Decode(strings.TrimSpace(string(data)))
	if err != nil {
		return PrivateKey{}, fmt.Errorf("%w: %s", ErrInvalidKey, err)
	}

	return NewKeyFromSeed(seed)
}
