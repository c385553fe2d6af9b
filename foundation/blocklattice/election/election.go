// Package election resolves competing transactions for the same account
// height by counting the weight of the representatives voting for them.
package election

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
)

// sweepBatchSize is the number of slots a sweep handles per lock
// acquisition so vote processing isn't starved.
const sweepBatchSize = 100

// Default expiry tiers.
const (
	DefaultExpiringAfter = time.Minute
	DefaultExpiredAfter  = time.Hour
)

// Config represents the configuration required to construct an Election.
type Config struct {
	Weighter      vote.Weighter
	Publisher     Publisher
	ExpiringAfter time.Duration
	ExpiredAfter  time.Duration
	EvHandler     func(v string, args ...any)
	TrHandler     func(v string, args ...any)
	Now           func() time.Time
}

// Election owns every open slot. All mutation happens under one mutex and
// events are published after it's released.
type Election struct {
	mu    sync.Mutex
	slots map[block.PublicKeyHeight]*PublicKeyHeightElection
	index map[signature.Hash]block.PublicKeyHeight
	size  int64

	weighter      vote.Weighter
	publisher     Publisher
	expiringAfter time.Duration
	expiredAfter  time.Duration
	evHandler     func(v string, args ...any)
	trHandler     func(v string, args ...any)
	now           func() time.Time
}

// New constructs an Election ready for use.
func New(cfg Config) *Election {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	tr := func(v string, args ...any) {
		if cfg.TrHandler != nil {
			cfg.TrHandler(v, args...)
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	expiringAfter := cfg.ExpiringAfter
	if expiringAfter <= 0 {
		expiringAfter = DefaultExpiringAfter
	}

	expiredAfter := cfg.ExpiredAfter
	if expiredAfter <= 0 {
		expiredAfter = DefaultExpiredAfter
	}

	return &Election{
		slots:         make(map[block.PublicKeyHeight]*PublicKeyHeightElection),
		index:         make(map[signature.Hash]block.PublicKeyHeight),
		weighter:      cfg.Weighter,
		publisher:     cfg.Publisher,
		expiringAfter: expiringAfter,
		expiredAfter:  expiredAfter,
		evHandler:     ev,
		trHandler:     tr,
		now:           now,
	}
}

// Start adds the transaction to its slot, creating the slot if needed.
// Starting a transaction that is already competing does nothing.
func (e *Election) Start(account block.Account, tx block.Transaction) {
	hash := tx.Hash()
	pkh := tx.PublicKeyHeight()

	e.mu.Lock()

	slot, exists := e.slots[pkh]
	if !exists {
		slot = &PublicKeyHeightElection{
			ID:           uuid.New(),
			Account:      account,
			transactions: make(map[signature.Hash]*TransactionElection),
		}
		e.slots[pkh] = slot
		atomic.AddInt64(&e.size, 1)
	}

	if _, exists := slot.transactions[hash]; exists {
		e.mu.Unlock()
		e.trHandler("election: Start: slot[%s]: tx[%s]: already started", slot.ID, hash)
		return
	}

	slot.transactions[hash] = &TransactionElection{
		Transaction: tx,
		votes:       make(map[signature.PublicKey]ballot),
	}
	e.index[hash] = pkh

	e.mu.Unlock()

	e.evHandler("election: Start: slot[%s]: pkh[%s]: tx[%s]: started", slot.ID, pkh, hash)
	e.publisher.Publish(Started{Account: account, Transaction: tx})
}

// Process applies the vote to the transaction's slot. Votes for unknown
// slots and votes not newer than the voter's vote for the same
// transaction are ignored.
func (e *Election) Process(tx block.Transaction, v vote.Vote) {
	e.mu.Lock()
	event := e.process(tx.PublicKeyHeight(), v)
	e.mu.Unlock()

	if event != nil {
		e.publisher.Publish(event)
	}
}

// ProcessVote applies the vote to whichever slot the voted transaction is
// competing in. Votes for transactions without a slot are ignored.
func (e *Election) ProcessVote(v vote.Vote) {
	e.mu.Lock()

	pkh, exists := e.index[v.BlockHash]
	if !exists {
		e.mu.Unlock()
		e.trHandler("election: ProcessVote: tx[%s]: no election, vote ignored", v.BlockHash)
		return
	}
	event := e.process(pkh, v)

	e.mu.Unlock()

	if event != nil {
		e.publisher.Publish(event)
	}
}

// process must be called with the lock held. It returns the event to
// publish, if any.
func (e *Election) process(pkh block.PublicKeyHeight, v vote.Vote) any {
	slot, exists := e.slots[pkh]
	if !exists {
		e.trHandler("election: Process: pkh[%s]: no election, vote ignored", pkh)
		return nil
	}

	target, exists := slot.transactions[v.BlockHash]
	if !exists {
		panic(fmt.Sprintf("election: slot[%s] pkh[%s] has no transaction election for block %s", slot.ID, pkh, v.BlockHash))
	}

	// Votes only replace the voter's earlier vote for the same transaction.
	if b, exists := target.votes[v.PublicKey]; exists && !b.vote.Timestamp.Before(v.Timestamp) {
		e.trHandler("election: Process: slot[%s]: tx[%s]: voter[%s]: vote is not newer, ignored", slot.ID, v.BlockHash, v.PublicKey)
		return nil
	}

	threshold := e.weighter.MinimalConfirmationWeight()
	before := slot.leader()

	// A voter counts toward one transaction only.
	for _, te := range slot.transactions {
		te.retract(v.PublicKey)
	}
	target.add(v, threshold)

	if winner := slot.consensus(threshold, target); winner != nil {
		e.remove(pkh, slot)

		e.evHandler("election: Process: slot[%s]: tx[%s]: consensus reached: weight[%s]: threshold[%s]", slot.ID, winner.Transaction.Hash(), winner.totalWeight, threshold)

		return ConsensusReached{
			Account:     slot.Account,
			Transaction: winner.Transaction,
			Votes:       winner.Votes(),
		}
	}

	after := slot.leader()
	if after == before {
		return nil
	}

	e.evHandler("election: Process: slot[%s]: tx[%s]: consensus changed: weight[%s]", slot.ID, after.Transaction.Hash(), after.totalWeight)

	return ConsensusChanged{
		Account:     slot.Account,
		Transaction: after.Transaction,
	}
}

// Cancel removes the slot the transaction belongs to. It's used once a
// transaction for the slot has been applied to the ledger.
func (e *Election) Cancel(tx block.Transaction) bool {
	pkh := tx.PublicKeyHeight()

	e.mu.Lock()
	defer e.mu.Unlock()

	slot, exists := e.slots[pkh]
	if !exists {
		return false
	}
	e.remove(pkh, slot)

	e.trHandler("election: Cancel: slot[%s]: tx[%s]: stopped, transaction saved", slot.ID, tx.Hash())

	return true
}

// ProcessExpiring publishes Expiring for every slot whose leader was
// received longer than the expiring period ago.
func (e *Election) ProcessExpiring() {
	e.sweep(e.expiringAfter, false)
}

// StopObservingStaled removes every slot whose leader was received longer
// than the expired period ago and publishes Expired for it.
func (e *Election) StopObservingStaled() {
	e.sweep(e.expiredAfter, true)
}

// sweep snapshots the slots that are older than the period and then
// handles them in batches, checking each one again under the lock.
func (e *Election) sweep(period time.Duration, expire bool) {
	cutoff := e.now().Add(-period)

	e.mu.Lock()
	var candidates []block.PublicKeyHeight
	for pkh, slot := range e.slots {
		if slot.leader().Transaction.ReceivedAt.Before(cutoff) {
			candidates = append(candidates, pkh)
		}
	}
	e.mu.Unlock()

	for len(candidates) > 0 {
		n := sweepBatchSize
		if n > len(candidates) {
			n = len(candidates)
		}
		batch := candidates[:n]
		candidates = candidates[n:]

		var events []any

		e.mu.Lock()
		for _, pkh := range batch {
			slot, exists := e.slots[pkh]
			if !exists {
				continue
			}

			leader := slot.leader()
			if !leader.Transaction.ReceivedAt.Before(cutoff) {
				continue
			}

			if !expire {
				events = append(events, Expiring{Account: slot.Account, Transaction: leader.Transaction})
				continue
			}

			e.remove(pkh, slot)
			events = append(events, Expired{Account: slot.Account, Transaction: leader.Transaction})
		}
		e.mu.Unlock()

		for _, event := range events {
			switch ev := event.(type) {
			case Expiring:
				e.evHandler("election: sweep: tx[%s]: expiring", ev.Transaction.Hash())
			case Expired:
				e.evHandler("election: sweep: tx[%s]: expired", ev.Transaction.Hash())
			}
			e.publisher.Publish(event)
		}
	}
}

// remove must be called with the lock held.
func (e *Election) remove(pkh block.PublicKeyHeight, slot *PublicKeyHeightElection) {
	for hash := range slot.transactions {
		delete(e.index, hash)
	}
	delete(e.slots, pkh)
	atomic.AddInt64(&e.size, -1)
}

// Clear drops every slot.
func (e *Election) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.slots = make(map[block.PublicKeyHeight]*PublicKeyHeightElection)
	e.index = make(map[signature.Hash]block.PublicKeyHeight)
	atomic.StoreInt64(&e.size, 0)
}

// Size returns the number of open slots without taking the lock.
func (e *Election) Size() int {
	return int(atomic.LoadInt64(&e.size))
}

// Contains reports whether the transaction is competing in a slot.
func (e *Election) Contains(hash signature.Hash) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, exists := e.index[hash]
	return exists
}

// =============================================================================

// Competitor describes one transaction in a slot snapshot.
type Competitor struct {
	Transaction block.Transaction `json:"transaction"`
	TotalWeight block.Amount      `json:"total_weight"`
	Voters      int               `json:"voters"`
}

// Slot describes a slot in a snapshot.
type Slot struct {
	ID              uuid.UUID             `json:"id"`
	PublicKeyHeight block.PublicKeyHeight `json:"public_key_height"`
	Account         block.Account         `json:"account"`
	Leader          signature.Hash        `json:"leader"`
	Competitors     []Competitor          `json:"competitors"`
}

// Snapshot returns a copy of every open slot ordered by public key
// and height.
func (e *Election) Snapshot() []Slot {
	threshold := e.weighter.MinimalConfirmationWeight()

	e.mu.Lock()
	slots := make([]Slot, 0, len(e.slots))
	for pkh, pkhe := range e.slots {
		s := Slot{
			ID:              pkhe.ID,
			PublicKeyHeight: pkh,
			Account:         pkhe.Account,
			Leader:          pkhe.leader().Transaction.Hash(),
		}
		for _, te := range pkhe.sorted() {
			s.Competitors = append(s.Competitors, Competitor{
				Transaction: te.Transaction,
				TotalWeight: te.TotalWeight(threshold),
				Voters:      len(te.votes),
			})
		}
		slots = append(slots, s)
	}
	e.mu.Unlock()

	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i].PublicKeyHeight, slots[j].PublicKeyHeight
		if a.PublicKey != b.PublicKey {
			return signature.Hash(a.PublicKey).Less(signature.Hash(b.PublicKey))
		}
		return a.Height < b.Height
	})

	return slots
}
