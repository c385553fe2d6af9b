package election

import (
	"sync"
	"time"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
)

// DefaultMinWeight is the weight a representative needs before it starts
// voting: one million units of 10^9 raw.
const DefaultMinWeight block.Amount = 1_000_000 * 1_000_000_000

// TransactionFinder reports whether a transaction is in the ledger.
type TransactionFinder interface {
	HasTransaction(hash signature.Hash) bool
}

// VoterConfig represents the configuration required to construct a Voter.
type VoterConfig struct {
	Key         signature.PrivateKey
	IsVoter     bool
	MinWeight   block.Amount
	Weighter    vote.Weighter
	Ledger      TransactionFinder
	Broadcaster Broadcaster
	Publisher   Publisher
	EvHandler   func(v string, args ...any)
	TrHandler   func(v string, args ...any)
	Now         func() time.Time
}

// Voter casts this node's votes in reaction to election events.
type Voter struct {
	mu     sync.Mutex
	voted  map[block.PublicKeyHeight]signature.Hash
	finals map[block.PublicKeyHeight]signature.Hash

	key         signature.PrivateKey
	isVoter     bool
	minWeight   block.Amount
	weighter    vote.Weighter
	ledger      TransactionFinder
	broadcaster Broadcaster
	publisher   Publisher
	evHandler   func(v string, args ...any)
	trHandler   func(v string, args ...any)
	now         func() time.Time
}

// NewVoter constructs a Voter ready for use.
func NewVoter(cfg VoterConfig) *Voter {
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

	minWeight := cfg.MinWeight
	if minWeight == 0 {
		minWeight = DefaultMinWeight
	}

	return &Voter{
		voted:       make(map[block.PublicKeyHeight]signature.Hash),
		finals:      make(map[block.PublicKeyHeight]signature.Hash),
		key:         cfg.Key,
		isVoter:     cfg.IsVoter,
		minWeight:   minWeight,
		weighter:    cfg.Weighter,
		ledger:      cfg.Ledger,
		broadcaster: cfg.Broadcaster,
		publisher:   cfg.Publisher,
		evHandler:   ev,
		trHandler:   tr,
		now:         now,
	}
}

// Handle reacts to the events the voter cares about and ignores the rest.
func (vr *Voter) Handle(event any) {
	switch ev := event.(type) {
	case Started:
		vr.provisional(ev.Transaction)

	case ConsensusChanged:
		vr.provisional(ev.Transaction)

	case Expiring:
		vr.vote(ev.Transaction, vr.now())

	case ConsensusReached:
		vr.consensusReached(ev.Transaction)

	case Expired:
		vr.mu.Lock()
		delete(vr.voted, ev.Transaction.PublicKeyHeight())
		vr.mu.Unlock()

	case AccountUpdated:
		vr.accountUpdated(ev.Transaction)

	case TransactionRejected:

		// A confirmed transaction the ledger refused won't be applied, so
		// the next winner for its height needs a final vote of its own.
		pkh := ev.Transaction.PublicKeyHeight()
		vr.mu.Lock()
		if vr.finals[pkh] == ev.Transaction.Hash() {
			delete(vr.finals, pkh)
		}
		vr.mu.Unlock()

		if ev.Reason != block.OldTransaction {
			return
		}
		if vr.ledger == nil || !vr.ledger.HasTransaction(ev.Transaction.Hash()) {
			return
		}
		vr.vote(ev.Transaction, vote.FinalTimestamp)
	}
}

// provisional votes for the transaction unless it's the one this node
// already voted for in the slot.
func (vr *Voter) provisional(tx block.Transaction) {
	pkh := tx.PublicKeyHeight()
	hash := tx.Hash()

	vr.mu.Lock()
	if last, exists := vr.voted[pkh]; exists && last == hash {
		vr.mu.Unlock()
		return
	}
	vr.voted[pkh] = hash
	vr.mu.Unlock()

	vr.vote(tx, vr.now())
}

// consensusReached casts the final vote the first time a transaction wins
// its slot. The slot is gone so its provisional bookkeeping is dropped.
func (vr *Voter) consensusReached(tx block.Transaction) {
	pkh := tx.PublicKeyHeight()
	hash := tx.Hash()

	vr.mu.Lock()
	delete(vr.voted, pkh)
	if final, exists := vr.finals[pkh]; exists && final == hash {
		vr.mu.Unlock()
		vr.trHandler("election: Voter: tx[%s]: consensus already reached", hash)
		return
	}
	vr.finals[pkh] = hash
	vr.mu.Unlock()

	vr.vote(tx, vote.FinalTimestamp)
}

// accountUpdated casts the final vote for an applied transaction unless
// one was already cast when consensus was reached.
func (vr *Voter) accountUpdated(tx block.Transaction) {
	pkh := tx.PublicKeyHeight()
	hash := tx.Hash()

	vr.mu.Lock()
	final, exists := vr.finals[pkh]
	delete(vr.finals, pkh)
	delete(vr.voted, pkh)
	vr.mu.Unlock()

	if exists && final == hash {
		return
	}

	vr.vote(tx, vote.FinalTimestamp)
}

// vote signs and broadcasts a vote. The vote is also published so this
// node's own weight counts in its election.
func (vr *Voter) vote(tx block.Transaction, ts time.Time) {
	weight := vr.weighter.Weight(vr.key.PublicKey())
	if !vr.canVote(weight) {
		vr.trHandler("election: Voter: tx[%s]: node can't vote: weight[%s]", tx.Hash(), weight)
		return
	}

	v := vote.Sign(vr.key, tx.Hash(), ts)
	v.Weight = weight

	strategy := Voters
	if v.IsFinal() {
		strategy = Everyone
	}

	vr.evHandler("election: Voter: tx[%s]: final[%t]: sending vote to %s", tx.Hash(), v.IsFinal(), strategy)

	vr.broadcaster.BroadcastVote(v, strategy)
	vr.publisher.Publish(VoteValidated{Transaction: tx, Vote: v})
}

func (vr *Voter) canVote(weight block.Amount) bool {
	return vr.isVoter && weight >= vr.minWeight
}

// Clear drops the voter's bookkeeping.
func (vr *Voter) Clear() {
	vr.mu.Lock()
	defer vr.mu.Unlock()

	vr.voted = make(map[block.PublicKeyHeight]signature.Hash)
	vr.finals = make(map[block.PublicKeyHeight]signature.Hash)
}
