package election

import (
	"errors"
	"sync"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/vote"
)

// flushBatchSize is the maximum number of confirmed transactions applied
// to the ledger at once.
const flushBatchSize = 1_000

// Ledger persists the outcome of elections. Apply must be idempotent by
// transaction hash and return the account after the transaction.
type Ledger interface {
	Apply(tx block.Transaction) (block.Account, error)
	SaveVotes(votes []vote.Vote) error
}

// MonitorConfig represents the configuration required to construct
// a Monitor.
type MonitorConfig struct {
	Ledger      Ledger
	Historical  bool
	Broadcaster Broadcaster
	Publisher   Publisher
	EvHandler   func(v string, args ...any)
}

// Monitor persists the transactions elections confirm and rebroadcasts
// the ones that are stuck.
type Monitor struct {
	mu     sync.Mutex
	buffer []ConsensusReached

	flushMu sync.Mutex

	ledger      Ledger
	historical  bool
	broadcaster Broadcaster
	publisher   Publisher
	evHandler   func(v string, args ...any)
}

// NewMonitor constructs a Monitor ready for use.
func NewMonitor(cfg MonitorConfig) *Monitor {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	return &Monitor{
		ledger:      cfg.Ledger,
		historical:  cfg.Historical,
		broadcaster: cfg.Broadcaster,
		publisher:   cfg.Publisher,
		evHandler:   ev,
	}
}

// Handle reacts to the events the monitor cares about and ignores the rest.
// It reports whether a flush is needed.
func (m *Monitor) Handle(event any) bool {
	switch ev := event.(type) {
	case ConsensusReached:
		m.mu.Lock()
		m.buffer = append(m.buffer, ev)
		m.mu.Unlock()
		return true

	case Expiring:
		m.evHandler("election: Monitor: tx[%s]: expiring transaction will be rebroadcast", ev.Transaction.Hash())
		m.broadcaster.BroadcastTransaction(ev.Transaction, Voters)
	}

	return false
}

// Pending returns the number of confirmed transactions waiting to be
// applied to the ledger.
func (m *Monitor) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.buffer)
}

// Flush applies the buffered confirmations to the ledger in batches. When
// a batch fails, what wasn't applied goes back in the buffer and the
// error is returned.
func (m *Monitor) Flush() error {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	for {
		batch := m.take(flushBatchSize)
		if len(batch) == 0 {
			return nil
		}

		for i, ev := range batch {
			err := m.apply(ev)
			if err == nil {
				continue
			}

			// Rejected transactions can never apply and are dropped.
			var re *block.RejectionError
			if errors.As(err, &re) {
				m.evHandler("election: Monitor: Flush: tx[%s]: dropped: %s", ev.Transaction.Hash(), err)
				m.publisher.Publish(TransactionRejected{Reason: re.Reason, Message: re.Message, Transaction: ev.Transaction})
				continue
			}

			m.requeue(batch[i:])
			m.evHandler("election: Monitor: Flush: tx[%s]: ERROR: %s", ev.Transaction.Hash(), err)
			return err
		}
	}
}

// apply saves one confirmation. Applying a transaction twice is a no-op in
// the ledger so a retried batch can't corrupt the account.
func (m *Monitor) apply(ev ConsensusReached) error {
	account, err := m.ledger.Apply(ev.Transaction)
	if err != nil {
		return err
	}

	if m.historical {
		if finals := finalVotes(ev.Votes); len(finals) > 0 {
			if err := m.ledger.SaveVotes(finals); err != nil {
				return err
			}
		}
	}

	m.evHandler("election: Monitor: tx[%s]: saved: height[%d]", ev.Transaction.Hash(), account.Height)
	m.publisher.Publish(AccountUpdated{Account: account, Transaction: ev.Transaction})

	return nil
}

// finalVotes returns the final votes from the quorum. Provisional votes
// aren't kept as history.
func finalVotes(votes []vote.Vote) []vote.Vote {
	var finals []vote.Vote
	for _, v := range votes {
		if v.IsFinal() {
			finals = append(finals, v)
		}
	}

	return finals
}

func (m *Monitor) take(n int) []ConsensusReached {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n > len(m.buffer) {
		n = len(m.buffer)
	}

	batch := make([]ConsensusReached, n)
	copy(batch, m.buffer[:n])
	m.buffer = m.buffer[n:]

	return batch
}

func (m *Monitor) requeue(events []ConsensusReached) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buffer = append(append([]ConsensusReached{}, events...), m.buffer...)
}
