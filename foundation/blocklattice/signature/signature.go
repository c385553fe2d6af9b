// Package signature provides the hashing and signing primitives shared by
// blocks, transactions and votes.
package signature

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

// Sizes of the fixed length values.
const (
	HashSize      = 32
	PublicKeySize = 32
	SignatureSize = 64
)

// Hash is a 32 byte blake2b digest.
type Hash [HashSize]byte

// ZeroHash represents a hash with every byte set to zero.
var ZeroHash Hash

// PublicKey is an ed25519 public key.
type PublicKey [PublicKeySize]byte

// Signature is a detached ed25519 signature.
type Signature [SignatureSize]byte

// =============================================================================

// Digest calculates a blake2b digest of the requested size over the
// concatenation of the inputs. Size must be between 1 and 64.
func Digest(size int, inputs ...[]byte) []byte {
	h, err := blake2b.New(size, nil)
	if err != nil {
		panic(fmt.Sprintf("signature: digest size %d: %s", size, err))
	}

	for _, in := range inputs {
		h.Write(in)
	}

	return h.Sum(nil)
}

// HashOf calculates the 32 byte digest of the concatenation of the inputs.
func HashOf(inputs ...[]byte) Hash {
	var h Hash
	copy(h[:], Digest(HashSize, inputs...))
	return h
}

// =============================================================================

// String returns the 0x prefixed hex form of the hash.
func (h Hash) String() string {
	return hexutil.Encode(h[:])
}

// IsZero reports whether every byte of the hash is zero.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Less provides a stable ordering for hashes.
func (h Hash) Less(o Hash) bool {
	return bytes.Compare(h[:], o[:]) < 0
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h Hash) MarshalText() ([]byte, error) {
	return hexutil.Bytes(h[:]).MarshalText()
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (h *Hash) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Hash", input, h[:])
}

// ParseHash converts a 0x prefixed hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if err := h.UnmarshalText([]byte(s)); err != nil {
		return Hash{}, err
	}

	return h, nil
}

// =============================================================================

// String returns the 0x prefixed hex form of the key.
func (pk PublicKey) String() string {
	return hexutil.Encode(pk[:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return hexutil.Bytes(pk[:]).MarshalText()
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (pk *PublicKey) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("PublicKey", input, pk[:])
}

// ParsePublicKey converts a 0x prefixed hex string into a PublicKey.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	if err := pk.UnmarshalText([]byte(s)); err != nil {
		return PublicKey{}, err
	}

	return pk, nil
}

// =============================================================================

// String returns the 0x prefixed hex form of the signature.
func (s Signature) String() string {
	return hexutil.Encode(s[:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (s Signature) MarshalText() ([]byte, error) {
	return hexutil.Bytes(s[:]).MarshalText()
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (s *Signature) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Signature", input, s[:])
}
