// Package block defines the entities stored in the lattice: blocks, the
// signed transactions that carry them and the account snapshots they build.
package block

import (
	"errors"
	"fmt"
	"time"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/genesis"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

// MaxVersion is the highest block version this node understands.
const MaxVersion uint16 = 0

// Type identifies the block variant. The value is the first byte of the
// canonical layout.
type Type uint8

// Set of block variants.
const (
	Open    Type = 0
	Receive Type = 1
	Send    Type = 2
	Change  Type = 3
)

var typeNames = map[Type]string{
	Open:    "OPEN",
	Receive: "RECEIVE",
	Send:    "SEND",
	Change:  "CHANGE",
}

// String implements the fmt.Stringer interface.
func (t Type) String() string {
	s, exists := typeNames[t]
	if !exists {
		return "UNKNOWN"
	}

	return s
}

// MarshalText implements the encoding.TextMarshaler interface.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (t *Type) UnmarshalText(data []byte) error {
	for k, v := range typeNames {
		if v == string(data) {
			*t = k
			return nil
		}
	}

	return fmt.Errorf("unknown block type %q", data)
}

// Algorithm identifies the signing scheme used by a block or vote.
type Algorithm uint8

// V1 is ed25519 over a blake2b-256 hash.
const V1 Algorithm = 0

// Set of errors returned by Validate.
var (
	ErrUnknownType      = errors.New("unknown block type")
	ErrUnknownNetwork   = errors.New("unknown network")
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
	ErrVersion          = errors.New("unsupported version")
	ErrFutureTimestamp  = errors.New("timestamp in the future")
	ErrHeight           = errors.New("invalid height")
	ErrAmount           = errors.New("invalid amount")
	ErrBalance          = errors.New("invalid balance")
	ErrReceiver         = errors.New("invalid receiver")
)

// =============================================================================

// Block represents every block variant. Only the fields in the layout of
// the block's Type are meaningful; the rest hold their zero value.
type Block struct {
	Type      Type                `json:"type"`
	Network   genesis.Network     `json:"network"`
	Version   uint16              `json:"version"`
	Algorithm Algorithm           `json:"algorithm"`
	PublicKey signature.PublicKey `json:"public_key"`
	Height    uint64              `json:"height"`
	Balance   Amount              `json:"balance"`
	Timestamp time.Time           `json:"timestamp"`

	Previous       signature.Hash      `json:"previous"`
	SendHash       signature.Hash      `json:"send_hash"`
	Representative signature.PublicKey `json:"representative"`
	Receiver       signature.PublicKey `json:"receiver"`
	Amount         Amount              `json:"amount,omitempty"`
}

// NewOpen constructs the first block of an account.
func NewOpen(network genesis.Network, publicKey signature.PublicKey, balance Amount, ts time.Time, sendHash signature.Hash, representative signature.PublicKey) Block {
	return Block{
		Type:           Open,
		Network:        network,
		Version:        MaxVersion,
		Algorithm:      V1,
		PublicKey:      publicKey,
		Height:         1,
		Balance:        balance,
		Timestamp:      toMillis(ts),
		SendHash:       sendHash,
		Representative: representative,
	}
}

// NewReceive constructs a block that takes ownership of a send.
func NewReceive(network genesis.Network, publicKey signature.PublicKey, height uint64, balance Amount, ts time.Time, previous signature.Hash, sendHash signature.Hash) Block {
	return Block{
		Type:      Receive,
		Network:   network,
		Version:   MaxVersion,
		Algorithm: V1,
		PublicKey: publicKey,
		Height:    height,
		Balance:   balance,
		Timestamp: toMillis(ts),
		Previous:  previous,
		SendHash:  sendHash,
	}
}

// NewSend constructs a block that moves amount to the receiver.
func NewSend(network genesis.Network, publicKey signature.PublicKey, height uint64, balance Amount, ts time.Time, previous signature.Hash, receiver signature.PublicKey, amount Amount) Block {
	return Block{
		Type:      Send,
		Network:   network,
		Version:   MaxVersion,
		Algorithm: V1,
		PublicKey: publicKey,
		Height:    height,
		Balance:   balance,
		Timestamp: toMillis(ts),
		Previous:  previous,
		Receiver:  receiver,
		Amount:    amount,
	}
}

// NewChange constructs a block that moves the account's weight to a
// new representative.
func NewChange(network genesis.Network, publicKey signature.PublicKey, height uint64, balance Amount, ts time.Time, previous signature.Hash, representative signature.PublicKey) Block {
	return Block{
		Type:           Change,
		Network:        network,
		Version:        MaxVersion,
		Algorithm:      V1,
		PublicKey:      publicKey,
		Height:         height,
		Balance:        balance,
		Timestamp:      toMillis(ts),
		Previous:       previous,
		Representative: representative,
	}
}

// Hash returns the blake2b-256 digest of the canonical layout.
func (b Block) Hash() signature.Hash {
	return signature.HashOf(b.Bytes())
}

// WorkSubject returns the bytes the proof of work is calculated against.
func (b Block) WorkSubject() []byte {
	if b.Type == Open {
		return b.PublicKey[:]
	}

	return b.Previous[:]
}

// Validate checks the structural rules of the block. Rules that need the
// account being extended are checked by the ledger.
func (b Block) Validate(now time.Time) error {
	if _, exists := layouts[b.Type]; !exists {
		return ErrUnknownType
	}

	if !b.Network.IsKnown() {
		return ErrUnknownNetwork
	}

	if b.Algorithm != V1 {
		return ErrUnknownAlgorithm
	}

	if b.Version > MaxVersion {
		return fmt.Errorf("%w: %d", ErrVersion, b.Version)
	}

	if b.Timestamp.After(now) {
		return ErrFutureTimestamp
	}

	switch b.Type {
	case Open:
		if b.Height != 1 {
			return ErrHeight
		}
		if b.Balance == 0 {
			return ErrBalance
		}

	case Receive:
		if b.Height <= 1 {
			return ErrHeight
		}
		if b.Balance == 0 {
			return ErrBalance
		}

	case Send:
		if b.Height <= 1 {
			return ErrHeight
		}
		if b.Amount == 0 {
			return ErrAmount
		}
		if b.Receiver == b.PublicKey {
			return ErrReceiver
		}

	case Change:
		if b.Height <= 1 {
			return ErrHeight
		}
	}

	return nil
}

// IsValid reports whether the block passes Validate.
func (b Block) IsValid(now time.Time) bool {
	return b.Validate(now) == nil
}

// toMillis drops the precision the canonical layout can't carry so a block
// compares equal to its parsed copy.
func toMillis(ts time.Time) time.Time {
	return time.UnixMilli(ts.UnixMilli()).UTC()
}
