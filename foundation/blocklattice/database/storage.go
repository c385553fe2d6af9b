package database

import (
	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
)

// TransactionData is what gets written to storage for every applied
// transaction. Number is the order the transaction was applied in,
// starting at 1 with the genesis transaction.
type TransactionData struct {
	Number      uint64            `json:"number"`
	Hash        signature.Hash    `json:"hash"`
	Transaction block.Transaction `json:"transaction"`
}

// Storage is the persistence the database writes applied transactions
// and election votes to.
type Storage interface {
	Write(data TransactionData) error
	ForEach() Iterator
	WriteVotes(hash signature.Hash, votes []vote.Vote) error
	ReadVotes(hash signature.Hash) ([]vote.Vote, error)
	Close() error
	Reset() error
}

// Iterator walks the stored transactions in the order they were applied.
type Iterator interface {
	Next() (TransactionData, error)
	Done() bool
}
