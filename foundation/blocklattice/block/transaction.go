package block

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/work"
)

// Set of errors returned by Transaction.Validate.
var (
	ErrSignature = errors.New("invalid signature")
	ErrWork      = errors.New("invalid work")
)

// PublicKeyHeight identifies a slot in an account chain.
type PublicKeyHeight struct {
	PublicKey signature.PublicKey `json:"public_key"`
	Height    uint64              `json:"height"`
}

// String implements the fmt.Stringer interface.
func (pkh PublicKeyHeight) String() string {
	return fmt.Sprintf("%s:%d", pkh.PublicKey, pkh.Height)
}

// Transaction is a block with the signature of its owner and the
// proof of work needed to publish it.
type Transaction struct {
	Block      Block               `json:"block"`
	Signature  signature.Signature `json:"signature"`
	Work       work.Work           `json:"work"`
	ReceivedAt time.Time           `json:"received_at"`
}

// Sign constructs a transaction for the block signed by the key.
func Sign(b Block, key signature.PrivateKey, w work.Work) Transaction {
	return Transaction{
		Block:      b,
		Signature:  key.Sign(b.Hash()),
		Work:       w,
		ReceivedAt: time.Now().UTC(),
	}
}

// Hash returns the hash of the block.
func (tx Transaction) Hash() signature.Hash {
	return tx.Block.Hash()
}

// PublicKeyHeight returns the slot this transaction competes for.
func (tx Transaction) PublicKeyHeight() PublicKeyHeight {
	return PublicKeyHeight{
		PublicKey: tx.Block.PublicKey,
		Height:    tx.Block.Height,
	}
}

// Bytes returns the block layout followed by the signature and work.
func (tx Transaction) Bytes() []byte {
	buf := tx.Block.Bytes()
	buf = append(buf, tx.Signature[:]...)
	buf = append(buf, tx.Work[:]...)
	return buf
}

// Hex returns the 0x prefixed hex form of Bytes.
func (tx Transaction) Hex() string {
	return hexutil.Encode(tx.Bytes())
}

// Validate checks the block structure, the signature and the work.
func (tx Transaction) Validate(now time.Time) error {
	if err := tx.Block.Validate(now); err != nil {
		return err
	}

	if !signature.Verify(tx.Block.PublicKey, tx.Hash(), tx.Signature) {
		return ErrSignature
	}

	if !work.Verify(tx.Work, tx.Block.WorkSubject(), tx.Block.Network, tx.Block.Timestamp) {
		return ErrWork
	}

	return nil
}

// IsValid reports whether the transaction passes Validate.
func (tx Transaction) IsValid(now time.Time) bool {
	return tx.Validate(now) == nil
}

// ParseTransaction reads a transaction written by Bytes. The received time
// is set to now. It reports false for truncated or unknown input.
func ParseTransaction(buf []byte) (Transaction, bool) {
	b, ok := Parse(buf)
	if !ok {
		return Transaction{}, false
	}

	size := Size(b.Type)
	if len(buf) < size+signature.SignatureSize+work.Size {
		return Transaction{}, false
	}

	tx := Transaction{
		Block:      b,
		ReceivedAt: time.Now().UTC(),
	}
	copy(tx.Signature[:], buf[size:])
	copy(tx.Work[:], buf[size+signature.SignatureSize:])

	return tx, true
}

// DecodeTransaction parses a transaction from its hex form.
func DecodeTransaction(s string) (Transaction, error) {
	buf, err := hexutil.Decode(s)
	if err != nil {
		return Transaction{}, err
	}

	tx, ok := ParseTransaction(buf)
	if !ok {
		return Transaction{}, errors.New("malformed transaction")
	}

	return tx, nil
}
