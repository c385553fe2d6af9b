package database

import (
	"errors"
	"testing"
	"time"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/genesis"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

func newLedger() *Database {
	db := Database{evHandler: func(v string, args ...any) {}}
	db.reset()

	return &db
}

func TestNextAccount(t *testing.T) {
	var owner, rep signature.PublicKey
	owner[0] = 1
	rep[0] = 2

	ts := time.Date(2024, time.March, 3, 10, 30, 0, 0, time.UTC)
	open := block.Transaction{Block: block.NewOpen(genesis.Local, owner, 1_000, ts, signature.ZeroHash, rep)}

	db := newLedger()

	tt := []struct {
		name string
		tx   block.Transaction
		err  bool
	}{
		{name: "send without an account", tx: block.Transaction{Block: block.NewSend(genesis.Local, owner, 2, 900, ts, open.Hash(), rep, 100)}, err: true},
		{name: "open", tx: open},
	}

	for i, tc := range tt {
		account, err := db.next(tc.tx)
		if tc.err {
			if !errors.Is(err, block.ErrOutOfOrder) {
				t.Errorf("[case:%d] error: %s expected ErrOutOfOrder, got %v", i, tc.name, err)
			}
			continue
		}

		if err != nil || account.Height != 1 || account.Representative != rep {
			t.Errorf("[case:%d] error: %s wrong account %+v, err %v", i, tc.name, account, err)
		}
	}

	if len(db.accounts) != 0 || len(db.weights) != 0 {
		t.Fatal("computing the next account should not change the ledger")
	}

	account, err := db.next(open)
	if err != nil {
		t.Fatalf("computing open account: %s", err)
	}
	db.mutate(open, account)

	gap := block.Transaction{Block: block.NewSend(genesis.Local, owner, 3, 900, ts, open.Hash(), rep, 100)}
	if _, err := db.next(gap); !errors.Is(err, block.ErrOutOfOrder) {
		t.Fatalf("skipping a height should fail, got %v", err)
	}

	if db.weights[rep] != 1_000 || db.accounts[owner].Height != 1 {
		t.Fatalf("failed transaction changed the ledger: weight %d account %+v", db.weights[rep], db.accounts[owner])
	}
}

func TestTotalWeightOverflow(t *testing.T) {
	db := newLedger()

	var a, b signature.PublicKey
	a[0] = 1
	b[0] = 2
	db.weights[a] = block.MaxAmount
	db.weights[b] = 1

	defer func() {
		if recover() == nil {
			t.Fatal("an overflowing total weight should panic")
		}
	}()

	db.TotalWeight()
}
