package election_test

import (
	"sync"
	"testing"
	"time"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/election"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/genesis"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
)

var base = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

type weighter struct {
	mu      sync.Mutex
	weights map[signature.PublicKey]block.Amount
	min     block.Amount
}

func (w *weighter) Weight(pk signature.PublicKey) block.Amount {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.weights[pk]
}

func (w *weighter) MinimalConfirmationWeight() block.Amount {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.min
}

func (w *weighter) setMin(weight block.Amount) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.min = weight
}

type recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *recorder) Publish(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) take() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.events
	r.events = nil
	return events
}

func pk(b byte) signature.PublicKey {
	var k signature.PublicKey
	k[0] = b
	return k
}

func account(owner signature.PublicKey, height uint64) block.Account {
	return block.Account{PublicKey: owner, Network: genesis.Local, Height: height, Balance: 1000}
}

// competitor builds a send at the height. Different balances give
// different hashes for the same slot.
func competitor(owner signature.PublicKey, height uint64, balance block.Amount, receivedAt time.Time) block.Transaction {
	b := block.NewSend(genesis.Local, owner, height, balance, base, signature.ZeroHash, pk(200), 1000-balance)
	return block.Transaction{Block: b, ReceivedAt: receivedAt}
}

func ballot(voter signature.PublicKey, tx block.Transaction, weight block.Amount, ts time.Time) vote.Vote {
	return vote.Vote{
		PublicKey: voter,
		BlockHash: tx.Hash(),
		Timestamp: ts,
		Weight:    weight,
	}
}

func totalWeight(t *testing.T, e *election.Election, tx block.Transaction) block.Amount {
	t.Helper()

	for _, s := range e.Snapshot() {
		for _, c := range s.Competitors {
			if c.Transaction.Hash() == tx.Hash() {
				return c.TotalWeight
			}
		}
	}

	t.Fatalf("transaction %s is not in any election", tx.Hash())
	return 0
}

func newElection(w *weighter, r *recorder, now func() time.Time) *election.Election {
	return election.New(election.Config{
		Weighter:      w,
		Publisher:     r,
		ExpiringAfter: time.Minute,
		ExpiredAfter:  time.Hour,
		Now:           now,
	})
}

// =============================================================================

func TestConsensusReached(t *testing.T) {
	w := &weighter{min: 10}
	r := &recorder{}
	e := newElection(w, r, nil)

	owner := pk(1)
	x := competitor(owner, 5, 900, base)
	y := competitor(owner, 5, 800, base.Add(time.Second))

	e.Start(account(owner, 4), x)
	e.Start(account(owner, 4), y)
	r.take()

	e.Process(x, ballot(pk(10), x, 4, base))
	e.Process(x, ballot(pk(11), x, 7, base.Add(time.Second)))

	events := r.take()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d: %+v", len(events), events)
	}

	reached, ok := events[0].(election.ConsensusReached)
	if !ok {
		t.Fatalf("expected ConsensusReached, got %T", events[0])
	}
	if reached.Transaction.Hash() != x.Hash() {
		t.Fatalf("wrong winner, got %s, exp %s", reached.Transaction.Hash(), x.Hash())
	}
	if len(reached.Votes) != 2 {
		t.Fatalf("expected 2 votes, got %d", len(reached.Votes))
	}

	if e.Size() != 0 {
		t.Fatalf("slot should be removed, size %d", e.Size())
	}

	// The slot is gone so nothing else can happen to it.
	e.Process(y, ballot(pk(12), y, 100, base.Add(2*time.Second)))
	e.ProcessVote(ballot(pk(12), y, 100, base.Add(3*time.Second)))

	if events := r.take(); len(events) != 0 {
		t.Fatalf("votes after consensus should be ignored, got %+v", events)
	}
}

func TestFlip(t *testing.T) {
	w := &weighter{min: 100}
	r := &recorder{}
	e := newElection(w, r, nil)

	owner := pk(1)
	x := competitor(owner, 2, 900, base)
	y := competitor(owner, 2, 800, base.Add(time.Second))

	e.Start(account(owner, 1), x)
	e.Start(account(owner, 1), y)

	voter := pk(10)
	e.Process(x, ballot(voter, x, 3, base))
	e.Process(y, ballot(voter, y, 3, base.Add(time.Second)))

	if got := totalWeight(t, e, x); got != 0 {
		t.Errorf("x should have lost the voter, got %d", got)
	}
	if got := totalWeight(t, e, y); got != 3 {
		t.Errorf("y should have the voter, got %d", got)
	}

	// Timestamps are compared per transaction, so an older vote for x
	// that arrives late still moves the voter back.
	e.Process(x, ballot(voter, x, 3, base.Add(500*time.Millisecond)))

	if got := totalWeight(t, e, x); got != 3 {
		t.Errorf("x should have the voter back, got %d", got)
	}
	if got := totalWeight(t, e, y); got != 0 {
		t.Errorf("y should have lost the voter, got %d", got)
	}
}

func TestStaleVote(t *testing.T) {
	w := &weighter{min: 100}
	r := &recorder{}
	e := newElection(w, r, nil)

	owner := pk(1)
	x := competitor(owner, 2, 900, base)
	e.Start(account(owner, 1), x)

	voter := pk(10)
	e.Process(x, ballot(voter, x, 5, base.Add(time.Second)))

	tt := []struct {
		name string
		ts   time.Time
	}{
		{name: "same timestamp", ts: base.Add(time.Second)},
		{name: "older timestamp", ts: base},
	}

	for i, tc := range tt {
		e.Process(x, ballot(voter, x, 50, tc.ts))

		if got := totalWeight(t, e, x); got != 5 {
			t.Errorf("[case:%d] error: %s changed the weight, got %d, exp 5", i, tc.name, got)
		}
	}

	// A newer vote replaces the old one without counting it twice.
	e.Process(x, ballot(voter, x, 6, base.Add(2*time.Second)))
	if got := totalWeight(t, e, x); got != 6 {
		t.Errorf("newer vote should replace the old one, got %d, exp 6", got)
	}
}

func TestStaleVoteAcrossCompetitors(t *testing.T) {
	owner := pk(1)
	x := competitor(owner, 5, 900, base)
	y := competitor(owner, 5, 800, base.Add(time.Second))
	voter := pk(10)

	type cast struct {
		tx block.Transaction
		ts time.Time
	}

	tt := []struct {
		name  string
		votes []cast
		expX  block.Amount
		expY  block.Amount
	}{
		{
			name:  "older vote for other transaction flips",
			votes: []cast{{tx: x, ts: base.Add(2 * time.Second)}, {tx: y, ts: base.Add(time.Second)}},
			expX:  0,
			expY:  3,
		},
		{
			name:  "replayed vote after flip flips back",
			votes: []cast{{tx: x, ts: base.Add(time.Second)}, {tx: y, ts: base.Add(2 * time.Second)}, {tx: x, ts: base.Add(time.Second)}},
			expX:  3,
			expY:  0,
		},
		{
			name:  "replayed vote for current choice ignored",
			votes: []cast{{tx: y, ts: base.Add(time.Second)}, {tx: x, ts: base.Add(2 * time.Second)}, {tx: x, ts: base.Add(2 * time.Second)}},
			expX:  3,
			expY:  0,
		},
		{
			name:  "older vote for current choice ignored",
			votes: []cast{{tx: x, ts: base.Add(2 * time.Second)}, {tx: x, ts: base.Add(time.Second)}},
			expX:  3,
			expY:  0,
		},
	}

	for i, tc := range tt {
		w := &weighter{min: 10}
		e := newElection(w, &recorder{}, nil)

		e.Start(account(owner, 4), x)
		e.Start(account(owner, 4), y)

		for _, c := range tc.votes {
			e.Process(c.tx, ballot(voter, c.tx, 3, c.ts))
		}

		if got := totalWeight(t, e, x); got != tc.expX {
			t.Errorf("[case:%d] error: %s x weight got %d, exp %d", i, tc.name, got, tc.expX)
		}
		if got := totalWeight(t, e, y); got != tc.expY {
			t.Errorf("[case:%d] error: %s y weight got %d, exp %d", i, tc.name, got, tc.expY)
		}
	}
}

func TestWeightCap(t *testing.T) {
	w := &weighter{min: 10}
	r := &recorder{}
	e := newElection(w, r, nil)

	owner := pk(1)
	x := competitor(owner, 2, 900, base)
	y := competitor(owner, 2, 800, base)
	e.Start(account(owner, 1), x)
	e.Start(account(owner, 1), y)

	e.Process(x, ballot(pk(10), x, 8, base))

	// The threshold moves under the election.
	w.setMin(6)
	if got := totalWeight(t, e, x); got != 6 {
		t.Fatalf("weight should be capped at the current threshold, got %d", got)
	}

	w.setMin(50)
	r.take()
	e.Process(y, ballot(pk(11), y, 1_000, base))

	events := r.take()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %+v", events)
	}

	reached, ok := events[0].(election.ConsensusReached)
	if !ok || reached.Transaction.Hash() != y.Hash() {
		t.Fatalf("y should reach consensus with capped weight, got %+v", events[0])
	}
	if e.Size() != 0 {
		t.Fatalf("slot should be removed, size %d", e.Size())
	}
}

func TestIdempotentStart(t *testing.T) {
	w := &weighter{min: 100}
	r := &recorder{}
	e := newElection(w, r, nil)

	owner := pk(1)
	x := competitor(owner, 2, 900, base)

	e.Start(account(owner, 1), x)
	e.Process(x, ballot(pk(10), x, 7, base))
	e.Start(account(owner, 1), x)

	var started int
	for _, ev := range r.take() {
		if _, ok := ev.(election.Started); ok {
			started++
		}
	}
	if started != 1 {
		t.Errorf("expected one Started event, got %d", started)
	}

	slots := e.Snapshot()
	if len(slots) != 1 || len(slots[0].Competitors) != 1 {
		t.Fatalf("expected one slot with one competitor, got %+v", slots)
	}

	if got := totalWeight(t, e, x); got != 7 {
		t.Errorf("restart should keep the votes, got %d, exp 7", got)
	}
}

func TestConsensusChanged(t *testing.T) {
	w := &weighter{min: 100}
	r := &recorder{}
	e := newElection(w, r, nil)

	owner := pk(1)
	x := competitor(owner, 2, 900, base)
	y := competitor(owner, 2, 800, base.Add(time.Second))
	e.Start(account(owner, 1), x)
	e.Start(account(owner, 1), y)
	r.take()

	tt := []struct {
		name    string
		tx      block.Transaction
		voter   signature.PublicKey
		weight  block.Amount
		changed bool
		leader  block.Transaction
	}{
		{name: "x keeps the lead", tx: x, voter: pk(10), weight: 5, changed: false},
		{name: "y takes the lead", tx: y, voter: pk(11), weight: 6, changed: true, leader: y},
		{name: "y extends the lead", tx: y, voter: pk(12), weight: 1, changed: false},
		{name: "x takes it back", tx: x, voter: pk(13), weight: 3, changed: true, leader: x},
	}

	for i, tc := range tt {
		e.Process(tc.tx, ballot(tc.voter, tc.tx, tc.weight, base))
		events := r.take()

		if !tc.changed {
			if len(events) != 0 {
				t.Errorf("[case:%d] error: %s should not publish, got %+v", i, tc.name, events)
			}
			continue
		}

		if len(events) != 1 {
			t.Errorf("[case:%d] error: %s expected one event, got %d", i, tc.name, len(events))
			continue
		}

		changed, ok := events[0].(election.ConsensusChanged)
		if !ok || changed.Transaction.Hash() != tc.leader.Hash() {
			t.Errorf("[case:%d] error: %s wrong event %+v", i, tc.name, events[0])
		}
	}
}

func TestMissingCompetitorPanics(t *testing.T) {
	w := &weighter{min: 100}
	r := &recorder{}
	e := newElection(w, r, nil)

	owner := pk(1)
	x := competitor(owner, 2, 900, base)
	y := competitor(owner, 2, 800, base)
	e.Start(account(owner, 1), x)

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for a vote without a transaction election")
		}
	}()

	e.Process(y, ballot(pk(10), y, 1, base))
}

func TestSweeps(t *testing.T) {
	w := &weighter{min: 100}
	r := &recorder{}

	var mu sync.Mutex
	now := base
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	e := newElection(w, r, clock)

	old := competitor(pk(1), 2, 900, base)
	fresh := competitor(pk(2), 2, 900, base.Add(50*time.Minute))
	e.Start(account(pk(1), 1), old)
	e.Start(account(pk(2), 1), fresh)
	r.take()

	advance(2 * time.Minute)
	e.ProcessExpiring()

	events := r.take()
	if len(events) != 1 {
		t.Fatalf("expected one Expiring event, got %+v", events)
	}
	if ev, ok := events[0].(election.Expiring); !ok || ev.Transaction.Hash() != old.Hash() {
		t.Fatalf("wrong expiring event %+v", events[0])
	}
	if e.Size() != 2 {
		t.Fatalf("expiring must not remove slots, size %d", e.Size())
	}

	advance(time.Hour)
	e.StopObservingStaled()

	events = r.take()
	if len(events) != 1 {
		t.Fatalf("expected one Expired event, got %+v", events)
	}
	if ev, ok := events[0].(election.Expired); !ok || ev.Transaction.Hash() != old.Hash() {
		t.Fatalf("wrong expired event %+v", events[0])
	}
	if e.Size() != 1 {
		t.Fatalf("expired slot should be removed, size %d", e.Size())
	}

	// Votes for the abandoned transaction are now noise.
	e.ProcessVote(ballot(pk(10), old, 1, now))
	if events := r.take(); len(events) != 0 {
		t.Fatalf("vote for expired slot should be ignored, got %+v", events)
	}
}

func TestSweepBatches(t *testing.T) {
	w := &weighter{min: 100}
	r := &recorder{}
	e := newElection(w, r, func() time.Time { return base.Add(2 * time.Hour) })

	const slots = 250
	for i := 0; i < slots; i++ {
		var owner signature.PublicKey
		owner[0] = byte(i)
		owner[1] = byte(i >> 8)
		e.Start(account(owner, 1), competitor(owner, 2, 900, base))
	}
	r.take()

	e.StopObservingStaled()

	if got := len(r.take()); got != slots {
		t.Fatalf("expected %d Expired events, got %d", slots, got)
	}
	if e.Size() != 0 {
		t.Fatalf("all slots should be removed, size %d", e.Size())
	}
}

func TestCancelAndClear(t *testing.T) {
	w := &weighter{min: 100}
	r := &recorder{}
	e := newElection(w, r, nil)

	x := competitor(pk(1), 2, 900, base)
	y := competitor(pk(2), 2, 900, base)
	e.Start(account(pk(1), 1), x)
	e.Start(account(pk(2), 1), y)

	if !e.Cancel(x) {
		t.Fatal("cancel should remove the slot")
	}
	if e.Cancel(x) {
		t.Fatal("second cancel should find nothing")
	}
	if e.Size() != 1 {
		t.Fatalf("expected one slot, got %d", e.Size())
	}

	e.Clear()
	if e.Size() != 0 || len(e.Snapshot()) != 0 {
		t.Fatal("clear should drop every slot")
	}
}
