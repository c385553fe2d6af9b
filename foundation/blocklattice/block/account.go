package block

import (
	"errors"
	"fmt"
	"time"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/genesis"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

// ErrOutOfOrder is returned when a transaction doesn't extend the account.
var ErrOutOfOrder = errors.New("transaction doesn't extend the account")

// Account is the head of an account chain.
type Account struct {
	PublicKey                signature.PublicKey `json:"public_key"`
	Network                  genesis.Network     `json:"network"`
	Version                  uint16              `json:"version"`
	Algorithm                Algorithm           `json:"algorithm"`
	Height                   uint64              `json:"height"`
	Balance                  Amount              `json:"balance"`
	LastTransactionHash      signature.Hash      `json:"last_transaction_hash"`
	LastTransactionTimestamp time.Time           `json:"last_transaction_timestamp"`
	Representative           signature.PublicKey `json:"representative"`
}

// NewAccount constructs the account created by an open transaction.
func NewAccount(tx Transaction) (Account, error) {
	b := tx.Block
	if b.Type != Open {
		return Account{}, fmt.Errorf("%w: %s can't open an account", ErrOutOfOrder, b.Type)
	}

	return Account{
		PublicKey:                b.PublicKey,
		Network:                  b.Network,
		Version:                  b.Version,
		Algorithm:                b.Algorithm,
		Height:                   1,
		Balance:                  b.Balance,
		LastTransactionHash:      tx.Hash(),
		LastTransactionTimestamp: b.Timestamp,
		Representative:           b.Representative,
	}, nil
}

// Apply returns the account after the transaction. The transaction
// must be the next one in the chain.
func (a Account) Apply(tx Transaction) (Account, error) {
	b := tx.Block

	if b.Type == Open || b.PublicKey != a.PublicKey || b.Height != a.Height+1 || b.Previous != a.LastTransactionHash {
		return Account{}, fmt.Errorf("%w: account[%s] height[%d] tx height[%d]", ErrOutOfOrder, a.PublicKey, a.Height, b.Height)
	}

	a.Version = b.Version
	a.Algorithm = b.Algorithm
	a.Height = b.Height
	a.Balance = b.Balance
	a.LastTransactionHash = tx.Hash()
	a.LastTransactionTimestamp = b.Timestamp

	if b.Type == Change {
		a.Representative = b.Representative
	}

	return a, nil
}

// =============================================================================
// Builders used by wallets to produce the next block of the account.

// Send builds the block that transfers amount to the receiver.
func (a Account) Send(receiver signature.PublicKey, amount Amount, ts time.Time) (Block, error) {
	if receiver == a.PublicKey {
		return Block{}, ErrReceiver
	}

	balance, err := a.Balance.Sub(amount)
	if err != nil {
		return Block{}, err
	}

	return NewSend(a.Network, a.PublicKey, a.Height+1, balance, ts, a.LastTransactionHash, receiver, amount), nil
}

// Receive builds the block that takes ownership of the send.
func (a Account) Receive(sendHash signature.Hash, amount Amount, ts time.Time) (Block, error) {
	balance, err := a.Balance.Add(amount)
	if err != nil {
		return Block{}, err
	}

	return NewReceive(a.Network, a.PublicKey, a.Height+1, balance, ts, a.LastTransactionHash, sendHash), nil
}

// Change builds the block that moves the account to a new representative.
func (a Account) Change(representative signature.PublicKey, ts time.Time) Block {
	return NewChange(a.Network, a.PublicKey, a.Height+1, a.Balance, ts, a.LastTransactionHash, representative)
}
