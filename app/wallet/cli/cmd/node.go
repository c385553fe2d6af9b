package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/database"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/genesis"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/peer"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/work"
)

// errNotOpened is returned when the node doesn't know the account.
var errNotOpened = errors.New("account not opened")

type account struct {
	Account     block.Account         `json:"account"`
	Weight      block.Amount          `json:"weight"`
	Receivables []database.Receivable `json:"receivables"`
}

func queryAccount(url string, pk signature.PublicKey) (account, error) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/accounts/%s", url, pk))
	if err != nil {
		return account{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return account{}, errNotOpened
	}

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return account{}, errors.New(string(msg))
	}

	var acct account
	if err := json.NewDecoder(resp.Body).Decode(&acct); err != nil {
		return account{}, err
	}

	// A node answers for an account that only has sends waiting.
	if acct.Account.Height == 0 {
		return acct, errNotOpened
	}

	return acct, nil
}

func queryGenesis(url string) (genesis.Genesis, error) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/genesis", url))
	if err != nil {
		return genesis.Genesis{}, err
	}
	defer resp.Body.Close()

	var gen genesis.Genesis
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return genesis.Genesis{}, err
	}

	return gen, nil
}

// signBlock searches for the proof of work and signs the block.
func signBlock(ctx context.Context, key signature.PrivateKey, b block.Block) (block.Transaction, error) {
	fmt.Println("Searching for work...")

	start := time.Now()
	w, err := work.Search(ctx, b.WorkSubject(), b.Network, b.Timestamp)
	if err != nil {
		return block.Transaction{}, err
	}
	fmt.Println("Work found in", time.Since(start).Round(time.Millisecond))

	return block.Sign(b, key, w), nil
}

// submit sends the transaction to the node to start its election.
func submit(url string, tx block.Transaction) error {
	data, err := json.Marshal(peer.TransactionMessage{Transaction: tx.Hex()})
	if err != nil {
		return err
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("node rejected transaction: %s", msg)
	}

	fmt.Println("Submitted:", tx.Hash())

	return nil
}

// head loads the key and the head of its account from the node.
func head(url string, key signature.PrivateKey) (block.Account, error) {
	acct, err := queryAccount(url, key.PublicKey())
	if err != nil {
		return block.Account{}, err
	}

	return acct.Account, nil
}
