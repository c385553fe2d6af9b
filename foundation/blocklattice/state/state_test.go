package state_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/election"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/genesis"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/state"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/storage/disk"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/work"
)

const supply = election.DefaultMinWeight * 10

type worker struct {
	mu      sync.Mutex
	flushes int
	txs     []block.Transaction
	votes   []vote.Vote
	finals  int
}

func (w *worker) Shutdown() {}
func (w *worker) Sync()     {}

func (w *worker) SignalFlush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushes++
}

func (w *worker) SignalBroadcastTx(tx block.Transaction, strategy election.Strategy) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.txs = append(w.txs, tx)
}

func (w *worker) SignalBroadcastVote(v vote.Vote, strategy election.Strategy) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.votes = append(w.votes, v)
	if v.IsFinal() && strategy == election.Everyone {
		w.finals++
	}
}

func (w *worker) snapshot() (flushes int, txs int, votes int, finals int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushes, len(w.txs), len(w.votes), w.finals
}

// =============================================================================

func sign(t *testing.T, key signature.PrivateKey, b block.Block) block.Transaction {
	t.Helper()

	w, err := work.Search(context.Background(), b.WorkSubject(), b.Network, b.Timestamp)
	if err != nil {
		t.Fatalf("searching work: %s", err)
	}

	return block.Sign(b, key, w)
}

func waitIdle(t *testing.T, s *state.State) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if events, _ := s.Pending(); events == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatal("events were not delivered in time")
}

func newState(t *testing.T, voter bool) (*state.State, signature.PrivateKey, *worker) {
	t.Helper()

	key, err := signature.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}

	open := block.NewOpen(genesis.Local, key.PublicKey(), supply, time.Now().Add(-time.Minute), signature.ZeroHash, key.PublicKey())
	gen := genesis.Genesis{
		Network:     genesis.Local,
		Transaction: sign(t, key, open).Hex(),
	}

	storage, err := disk.New(t.TempDir())
	if err != nil {
		t.Fatalf("opening disk: %s", err)
	}

	s, err := state.New(state.Config{
		Key:                       key,
		Host:                      "node-a:9080",
		Genesis:                   gen,
		Storage:                   storage,
		Voter:                     voter,
		Historical:                true,
		MinimalConfirmationWeight: 1,
	})
	if err != nil {
		t.Fatalf("constructing state: %s", err)
	}

	w := &worker{}
	s.Worker = w

	t.Cleanup(func() {
		s.Shutdown()
	})

	return s, key, w
}

func TestConfirmation(t *testing.T) {
	s, key, w := newState(t, true)

	alice, err := signature.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}

	head, err := s.QueryAccount(key.PublicKey())
	if err != nil {
		t.Fatalf("querying genesis account: %s", err)
	}

	sb, err := head.Send(alice.PublicKey(), 1_000, time.Now())
	if err != nil {
		t.Fatalf("building send: %s", err)
	}
	send := sign(t, key, sb)

	if err := s.SubmitTransaction(send); err != nil {
		t.Fatalf("submitting send: %s", err)
	}
	waitIdle(t, s)

	if _, confirmed := s.Pending(); confirmed != 1 {
		t.Fatalf("the node's own weight should confirm the send, pending %d", confirmed)
	}

	flushes, txs, votes, finals := w.snapshot()
	if flushes == 0 || txs != 1 || votes != 2 || finals != 1 {
		t.Fatalf("wrong worker signals: flushes[%d] txs[%d] votes[%d] finals[%d]", flushes, txs, votes, finals)
	}

	if err := s.Flush(); err != nil {
		t.Fatalf("flushing: %s", err)
	}
	waitIdle(t, s)

	got, err := s.QueryAccount(key.PublicKey())
	if err != nil || got.Height != 2 || got.LastTransactionHash != send.Hash() {
		t.Fatalf("send should be applied, got %+v, err %v", got, err)
	}

	if len(s.QueryReceivables(alice.PublicKey())) != 1 {
		t.Fatal("alice should have a receivable")
	}

	// The quorum was provisional so there's no final vote to keep.
	if saved, err := s.QueryVotes(send.Hash()); err == nil && len(saved) != 0 {
		t.Fatalf("provisional votes should not be kept, got %d", len(saved))
	}

	if len(s.RetrieveElections()) != 0 {
		t.Fatal("no election should be left")
	}

	// Seeing the confirmed transaction again makes the node repeat its final vote.
	err = s.SubmitTransaction(send)

	var re *block.RejectionError
	if !errors.As(err, &re) || re.Reason != block.OldTransaction {
		t.Fatalf("expected OLD_TRANSACTION, got %v", err)
	}
	waitIdle(t, s)

	if _, _, _, finals := w.snapshot(); finals != 2 {
		t.Fatalf("expected a repeated final vote, got %d final votes", finals)
	}
}

func TestSubmitRejects(t *testing.T) {
	s, key, _ := newState(t, false)

	head, err := s.QueryAccount(key.PublicKey())
	if err != nil {
		t.Fatalf("querying genesis account: %s", err)
	}

	other, err := signature.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}

	badBalance := block.NewSend(genesis.Local, key.PublicKey(), 2, head.Balance, time.Now(), head.LastTransactionHash, other.PublicKey(), 10)
	forged := sign(t, other, head.Change(other.PublicKey(), time.Now()))

	tt := []struct {
		name   string
		tx     block.Transaction
		reason block.RejectionReason
	}{
		{name: "wrong balance", tx: sign(t, key, badBalance), reason: block.InvalidBalance},
		{name: "forged signature", tx: forged, reason: block.InvalidTransaction},
	}

	for i, tc := range tt {
		err := s.SubmitTransaction(tc.tx)

		var re *block.RejectionError
		if !errors.As(err, &re) || re.Reason != tc.reason {
			t.Errorf("[case:%d] error: %s expected %s, got %v", i, tc.name, tc.reason, err)
		}
	}

	if len(s.RetrieveElections()) != 0 {
		t.Fatal("rejected transactions should not start elections")
	}

	stranger := vote.Sign(other, head.LastTransactionHash, time.Now())
	if err := s.SubmitVote(stranger); !errors.Is(err, state.ErrZeroWeight) {
		t.Fatalf("expected ErrZeroWeight, got %v", err)
	}

	stale := vote.Sign(key, head.LastTransactionHash, time.Now().Add(-2*vote.MaxAge))
	if err := s.SubmitVote(stale); !errors.Is(err, vote.ErrTooOld) {
		t.Fatalf("expected ErrTooOld, got %v", err)
	}
}

func TestPeerVotes(t *testing.T) {
	s, key, w := newState(t, false)

	head, err := s.QueryAccount(key.PublicKey())
	if err != nil {
		t.Fatalf("querying genesis account: %s", err)
	}

	other, err := signature.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}

	change := sign(t, key, head.Change(other.PublicKey(), time.Now()))
	if err := s.SubmitTransaction(change); err != nil {
		t.Fatalf("submitting change: %s", err)
	}
	waitIdle(t, s)

	elections := s.RetrieveElections()
	if len(elections) != 1 || elections[0].Leader != change.Hash() {
		t.Fatalf("expected one election led by the change, got %+v", elections)
	}

	// A node that doesn't vote relies on the votes of its peers.
	if _, _, votes, _ := w.snapshot(); votes != 0 {
		t.Fatalf("a non voting node cast %d votes", votes)
	}

	if err := s.SubmitVote(vote.Sign(key, change.Hash(), vote.FinalTimestamp)); err != nil {
		t.Fatalf("submitting vote: %s", err)
	}
	waitIdle(t, s)

	if _, confirmed := s.Pending(); confirmed != 1 {
		t.Fatalf("peer vote should confirm the change, pending %d", confirmed)
	}

	if err := s.Flush(); err != nil {
		t.Fatalf("flushing: %s", err)
	}
	waitIdle(t, s)

	saved, err := s.QueryVotes(change.Hash())
	if err != nil || len(saved) != 1 || !saved[0].IsFinal() {
		t.Fatalf("historical node should keep the final vote, got %+v, err %v", saved, err)
	}
}
