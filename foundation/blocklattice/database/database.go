// Package database maintains the lattice ledger: account heads, applied
// transactions, pending receivables and representative weights.
package database

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/genesis"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
)

// ErrNotFound is returned when a query finds nothing.
var ErrNotFound = errors.New("not found")

// Default weighting configuration.
const (
	DefaultConfirmationThreshold                  = 65
	DefaultMinimalConfirmationWeight block.Amount = 4_500_000_000_000_000_000
)

// Receivable is a send that the receiver hasn't taken ownership of yet.
type Receivable struct {
	Hash      signature.Hash      `json:"hash"`
	Sender    signature.PublicKey `json:"sender"`
	Receiver  signature.PublicKey `json:"receiver"`
	Amount    block.Amount        `json:"amount"`
	Timestamp time.Time           `json:"timestamp"`
}

// Config represents the configuration required to open the database.
type Config struct {
	Genesis                   genesis.Genesis
	Storage                   Storage
	ConfirmationThreshold     uint64
	MinimalConfirmationWeight block.Amount
	EvHandler                 func(v string, args ...any)
}

// Database manages the ledger state built from the applied transactions.
type Database struct {
	mu sync.RWMutex

	network      genesis.Network
	genesisTx    block.Transaction
	accounts     map[signature.PublicKey]block.Account
	transactions map[signature.Hash]block.Transaction
	receivables  map[signature.Hash]Receivable
	weights      map[signature.PublicKey]block.Amount
	latest       uint64

	confirmationThreshold     uint64
	minimalConfirmationWeight block.Amount

	storage   Storage
	evHandler func(v string, args ...any)
}

// New constructs the database, replays every stored transaction and
// writes the genesis transaction when the storage is empty.
func New(cfg Config) (*Database, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	genesisTx, err := block.DecodeTransaction(cfg.Genesis.Transaction)
	if err != nil {
		return nil, fmt.Errorf("decoding genesis transaction: %w", err)
	}

	if genesisTx.Block.Type != block.Open || genesisTx.Block.Network != cfg.Genesis.Network {
		return nil, errors.New("genesis transaction must open an account on the genesis network")
	}

	threshold := cfg.ConfirmationThreshold
	if threshold == 0 || threshold > 100 {
		threshold = DefaultConfirmationThreshold
	}

	floor := cfg.MinimalConfirmationWeight
	if floor == 0 {
		floor = DefaultMinimalConfirmationWeight
	}

	db := Database{
		network:                   cfg.Genesis.Network,
		genesisTx:                 genesisTx,
		confirmationThreshold:     threshold,
		minimalConfirmationWeight: floor,
		storage:                   cfg.Storage,
		evHandler:                 ev,
	}
	db.reset()

	if err := db.replay(); err != nil {
		return nil, err
	}

	if db.latest == 0 {
		ev("database: New: writing genesis transaction[%s]", genesisTx.Hash())
		if _, err := db.Apply(genesisTx); err != nil {
			return nil, fmt.Errorf("applying genesis: %w", err)
		}
	}

	return &db, nil
}

// reset clears the in memory state.
func (db *Database) reset() {
	db.accounts = make(map[signature.PublicKey]block.Account)
	db.transactions = make(map[signature.Hash]block.Transaction)
	db.receivables = make(map[signature.Hash]Receivable)
	db.weights = make(map[signature.PublicKey]block.Amount)
	db.latest = 0
}

// replay loads every stored transaction back into memory. Stored
// transactions were validated before they were written.
func (db *Database) replay() error {
	iter := db.storage.ForEach()
	for data, err := iter.Next(); !iter.Done(); data, err = iter.Next() {
		if err != nil {
			return err
		}

		if err := db.validate(data.Transaction); err != nil {
			return fmt.Errorf("replaying transaction %d: %w", data.Number, err)
		}

		account, err := db.next(data.Transaction)
		if err != nil {
			return fmt.Errorf("replaying transaction %d: %w", data.Number, err)
		}

		db.mutate(data.Transaction, account)
		db.latest = data.Number
	}

	db.evHandler("database: replay: loaded transactions[%d]", db.latest)

	return nil
}

// Close closes the storage.
func (db *Database) Close() {
	db.storage.Close()
}

// Reset clears the ledger on disk and in memory and writes the genesis
// transaction again.
func (db *Database) Reset() error {
	db.mu.Lock()
	if err := db.storage.Reset(); err != nil {
		db.mu.Unlock()
		return err
	}
	db.reset()
	db.mu.Unlock()

	_, err := db.Apply(db.genesisTx)
	return err
}

// Network returns the network the ledger belongs to.
func (db *Database) Network() genesis.Network {
	return db.network
}

// Genesis returns the genesis transaction.
func (db *Database) Genesis() block.Transaction {
	return db.genesisTx
}

// =============================================================================

// Validate checks the transaction extends its account and returns the
// account it extends. For an open transaction the account is empty apart
// from the public key and network.
func (db *Database) Validate(tx block.Transaction) (block.Account, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if err := db.validate(tx); err != nil {
		return block.Account{}, err
	}

	if tx.Block.Type == block.Open {
		return block.Account{PublicKey: tx.Block.PublicKey, Network: tx.Block.Network}, nil
	}

	return db.accounts[tx.Block.PublicKey], nil
}

// Apply validates the transaction and adds it to the ledger. Applying a
// transaction that is already in the ledger returns the current account
// and does nothing else.
func (db *Database) Apply(tx block.Transaction) (block.Account, error) {
	hash := tx.Hash()

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.transactions[hash]; exists {
		return db.accounts[tx.Block.PublicKey], nil
	}

	if err := db.validate(tx); err != nil {
		return block.Account{}, err
	}

	account, err := db.next(tx)
	if err != nil {
		return block.Account{}, fmt.Errorf("computing account: %w", err)
	}

	data := TransactionData{
		Number:      db.latest + 1,
		Hash:        hash,
		Transaction: tx,
	}
	if err := db.storage.Write(data); err != nil {
		return block.Account{}, fmt.Errorf("writing transaction: %w", err)
	}

	db.mutate(tx, account)
	db.latest = data.Number

	db.evHandler("database: Apply: tx[%s]: type[%s]: account[%s]: height[%d]", hash, tx.Block.Type, account.PublicKey, account.Height)

	return account, nil
}

// next returns the account head after the transaction without changing
// any state.
func (db *Database) next(tx block.Transaction) (block.Account, error) {
	prev, exists := db.accounts[tx.Block.PublicKey]
	if !exists {
		return block.NewAccount(tx)
	}

	return prev.Apply(tx)
}

// mutate applies a validated transaction and the account it produces to
// the in memory state.
func (db *Database) mutate(tx block.Transaction, account block.Account) {
	b := tx.Block
	hash := tx.Hash()

	prev := db.accounts[b.PublicKey]

	switch b.Type {
	case block.Open:
		delete(db.receivables, b.SendHash)
		db.weights[account.Representative] += b.Balance

	case block.Receive:
		r := db.receivables[b.SendHash]
		delete(db.receivables, b.SendHash)
		db.weights[account.Representative] += r.Amount

	case block.Send:
		db.receivables[hash] = Receivable{
			Hash:      hash,
			Sender:    b.PublicKey,
			Receiver:  b.Receiver,
			Amount:    b.Amount,
			Timestamp: b.Timestamp,
		}
		db.weights[account.Representative] -= b.Amount

	case block.Change:
		db.weights[prev.Representative] -= prev.Balance
		db.weights[account.Representative] += account.Balance
	}

	db.accounts[b.PublicKey] = account
	db.transactions[hash] = tx
}

// =============================================================================

// SaveVotes stores the votes that confirmed a transaction.
func (db *Database) SaveVotes(votes []vote.Vote) error {
	byHash := make(map[signature.Hash][]vote.Vote)
	for _, v := range votes {
		byHash[v.BlockHash] = append(byHash[v.BlockHash], v)
	}

	for hash, vs := range byHash {
		if err := db.storage.WriteVotes(hash, vs); err != nil {
			return err
		}
	}

	return nil
}

// QueryVotes returns the stored votes for the transaction.
func (db *Database) QueryVotes(hash signature.Hash) ([]vote.Vote, error) {
	return db.storage.ReadVotes(hash)
}

// QueryAccount returns a copy of the account head.
func (db *Database) QueryAccount(publicKey signature.PublicKey) (block.Account, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	account, exists := db.accounts[publicKey]
	if !exists {
		return block.Account{}, ErrNotFound
	}

	return account, nil
}

// QueryTransaction returns the applied transaction with the hash.
func (db *Database) QueryTransaction(hash signature.Hash) (block.Transaction, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	tx, exists := db.transactions[hash]
	if !exists {
		return block.Transaction{}, ErrNotFound
	}

	return tx, nil
}

// HasTransaction reports whether the transaction was applied.
func (db *Database) HasTransaction(hash signature.Hash) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, exists := db.transactions[hash]
	return exists
}

// QueryReceivables returns the sends waiting for the receiver, oldest first.
func (db *Database) QueryReceivables(receiver signature.PublicKey) []Receivable {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []Receivable
	for _, r := range db.receivables {
		if r.Receiver == receiver {
			out = append(out, r)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	return out
}

// CopyAccounts makes a copy of every account head.
func (db *Database) CopyAccounts() map[signature.PublicKey]block.Account {
	db.mu.RLock()
	defer db.mu.RUnlock()

	accounts := make(map[signature.PublicKey]block.Account, len(db.accounts))
	for pk, account := range db.accounts {
		accounts[pk] = account
	}

	return accounts
}

// Latest returns the number of transactions in the ledger.
func (db *Database) Latest() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latest
}
