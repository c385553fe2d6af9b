// Package disk implements the ability to read and write transactions and
// votes to disk, one JSON document per file.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/database"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
)

const votesDir = "votes"

// Disk represents the storage implementation for reading and storing
// transactions in their own separate files on disk. This implements the
// database.Storage interface.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(path.Join(dbPath, votesDir), 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a new file is
// written for each transaction and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Write stores the transaction in a file named after its number.
func (d *Disk) Write(txData database.TransactionData) error {
	return writeJSON(d.txPath(txData.Number), txData)
}

// GetTransaction reads the transaction stored under the number.
func (d *Disk) GetTransaction(num uint64) (database.TransactionData, error) {
	var txData database.TransactionData
	if err := readJSON(d.txPath(num), &txData); err != nil {
		return database.TransactionData{}, err
	}

	return txData, nil
}

// WriteVotes stores the votes that confirmed the transaction, replacing
// any stored before.
func (d *Disk) WriteVotes(hash signature.Hash, votes []vote.Vote) error {
	return writeJSON(d.votesPath(hash), votes)
}

// ReadVotes returns the stored votes for the transaction.
func (d *Disk) ReadVotes(hash signature.Hash) ([]vote.Vote, error) {
	var votes []vote.Vote
	if err := readJSON(d.votesPath(hash), &votes); err != nil {
		return nil, err
	}

	return votes, nil
}

// ForEach returns an iterator to walk through all the transactions
// starting with number 1.
func (d *Disk) ForEach() database.Iterator {
	return &diskIterator{storage: d}
}

// Reset will clear out the ledger on disk.
func (d *Disk) Reset() error {
	if err := os.RemoveAll(d.dbPath); err != nil {
		return err
	}

	return os.MkdirAll(path.Join(d.dbPath, votesDir), 0755)
}

func (d *Disk) txPath(num uint64) string {
	name := strconv.FormatUint(num, 10)
	return path.Join(d.dbPath, fmt.Sprintf("%s.json", name))
}

func (d *Disk) votesPath(hash signature.Hash) string {
	return path.Join(d.dbPath, votesDir, fmt.Sprintf("%s.json", hash))
}

// =============================================================================

func writeJSON(name string, v any) error {

	// Marshal for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return err
	}

	return nil
}

func readJSON(name string, v any) error {
	f, err := os.OpenFile(name, os.O_RDONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(v)
}

// =============================================================================

// diskIterator represents the iteration implementation for walking
// through and reading transactions on disk. This implements the database
// Iterator interface.
type diskIterator struct {
	storage *Disk  // Access to the Disk storage API.
	current uint64 // Current transaction number being iterated over.
	eol     bool   // Represents the iterator is at the end of the ledger.
}

// Next retrieves the next transaction from disk.
func (di *diskIterator) Next() (database.TransactionData, error) {
	if di.eol {
		return database.TransactionData{}, errors.New("end of ledger")
	}

	di.current++
	txData, err := di.storage.GetTransaction(di.current)
	if errors.Is(err, fs.ErrNotExist) {
		di.eol = true
	}

	return txData, err
}

// Done returns the end of ledger value.
func (di *diskIterator) Done() bool {
	return di.eol
}
