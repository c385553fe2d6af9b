package database

import (
	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
)

// validate checks the transaction against the account it extends. The
// caller must hold the lock.
func (db *Database) validate(tx block.Transaction) error {
	b := tx.Block

	if b.Network != db.network {
		return block.Reject(block.InvalidNetwork, "network %s, ledger is %s", b.Network, db.network)
	}

	account, exists := db.accounts[b.PublicKey]

	if b.Type == block.Open {
		if exists {
			if _, known := db.transactions[tx.Hash()]; known {
				return block.Reject(block.OldTransaction, "account %s already opened by this transaction", b.PublicKey)
			}
			return block.Reject(block.AccountExists, "account %s already opened", b.PublicKey)
		}

		return db.validateOpen(tx)
	}

	if !exists {
		return block.Reject(block.PreviousNotFound, "account %s not found", b.PublicKey)
	}

	switch {
	case b.Height <= account.Height:
		return block.Reject(block.OldTransaction, "height %d, account is at %d", b.Height, account.Height)

	case b.Height > account.Height+1:
		return block.Reject(block.PreviousNotFound, "height %d, account is at %d", b.Height, account.Height)

	case b.Previous != account.LastTransactionHash:
		return block.Reject(block.InvalidPrevious, "previous %s, account head is %s", b.Previous, account.LastTransactionHash)

	case b.Timestamp.Before(account.LastTransactionTimestamp):
		return block.Reject(block.InvalidTimestamp, "timestamp %s before account head %s", b.Timestamp, account.LastTransactionTimestamp)

	case b.Version < account.Version:
		return block.Reject(block.InvalidVersion, "version %d, account is at %d", b.Version, account.Version)
	}

	switch b.Type {
	case block.Send:
		if b.Amount == 0 {
			return block.Reject(block.InvalidAmount, "send of zero")
		}
		if b.Receiver == b.PublicKey {
			return block.Reject(block.InvalidReceiver, "account can't send to itself")
		}

		balance, err := account.Balance.Sub(b.Amount)
		if err != nil {
			return block.Reject(block.InvalidAmount, "amount %s exceeds balance %s", b.Amount, account.Balance)
		}
		if b.Balance != balance {
			return block.Reject(block.InvalidBalance, "balance %s, expected %s", b.Balance, balance)
		}

	case block.Receive:
		r, exists := db.receivables[b.SendHash]
		if !exists {
			return block.Reject(block.ReceivableNotFound, "send %s", b.SendHash)
		}
		if r.Receiver != b.PublicKey {
			return block.Reject(block.InvalidReceiver, "send %s belongs to %s", b.SendHash, r.Receiver)
		}

		balance, err := account.Balance.Add(r.Amount)
		if err != nil || b.Balance != balance {
			return block.Reject(block.InvalidBalance, "balance %s, expected %s", b.Balance, balance)
		}

	case block.Change:
		if b.Balance != account.Balance {
			return block.Reject(block.InvalidBalance, "balance %s, expected %s", b.Balance, account.Balance)
		}
		if b.Representative == account.Representative {
			return block.Reject(block.InvalidChange, "representative is already %s", b.Representative)
		}

	default:
		return block.Reject(block.InvalidTransaction, "unknown type %s", b.Type)
	}

	return nil
}

// validateOpen checks the first transaction of an account. The genesis
// transaction is the only open allowed without a receivable.
func (db *Database) validateOpen(tx block.Transaction) error {
	b := tx.Block

	if len(db.accounts) == 0 {
		if tx.Hash() != db.genesisTx.Hash() {
			return block.Reject(block.InvalidTransaction, "first transaction must be the genesis")
		}
		return nil
	}

	r, exists := db.receivables[b.SendHash]
	if !exists {
		return block.Reject(block.ReceivableNotFound, "send %s", b.SendHash)
	}

	switch {
	case r.Receiver != b.PublicKey:
		return block.Reject(block.InvalidReceiver, "send %s belongs to %s", b.SendHash, r.Receiver)

	case b.Balance != r.Amount:
		return block.Reject(block.InvalidBalance, "balance %s, expected %s", b.Balance, r.Amount)

	case b.Timestamp.Before(r.Timestamp):
		return block.Reject(block.InvalidTimestamp, "timestamp %s before send %s", b.Timestamp, r.Timestamp)
	}

	return nil
}
